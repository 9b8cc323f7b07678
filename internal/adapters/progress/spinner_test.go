package progress

import (
	"bytes"
	"context"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/dopedao/govsim/internal/usecase"
)

func TestSpinnerProgressReporter(t *testing.T) {
	color.NoColor = true
	ctx := context.Background()
	var out bytes.Buffer
	r := NewSpinnerProgressReporter(&out)

	r.OnProgress(ctx, usecase.ProgressEvent{Stage: usecase.StagePropose, Message: "Proposing 1 action(s)", Spinner: true})
	r.OnProgress(ctx, usecase.ProgressEvent{Stage: usecase.StageVote, Current: 1, Total: 2, Message: "Voting", Spinner: true})
	r.OnProgress(ctx, usecase.ProgressEvent{Stage: usecase.StageVote, Current: 2, Total: 2, Message: "Voting", Spinner: true})
	r.Info("skipped a voter")
	r.OnProgress(ctx, usecase.ProgressEvent{Stage: usecase.StageCompleted, Message: "done"})
	r.Error("boom")

	got := out.String()
	assert.Contains(t, got, "✓ Propose (")
	assert.Contains(t, got, "✓ Vote (")
	assert.Contains(t, got, "skipped a voter\n")
	assert.Contains(t, got, "boom\n")
	assert.NotContains(t, got, "✓ Completed")
	assert.Less(t, bytes.Index(out.Bytes(), []byte("Propose")), bytes.Index(out.Bytes(), []byte("skipped")))
}

func TestDisplay(t *testing.T) {
	color.NoColor = true
	r := NewSpinnerProgressReporter(&bytes.Buffer{})

	assert.Equal(t, "Vote [2/5]: Voting as 0x1",
		r.display(usecase.ProgressEvent{Stage: usecase.StageVote, Current: 2, Total: 5, Message: "Voting as 0x1"}))
	assert.Equal(t, "custom", r.display(usecase.ProgressEvent{Stage: "custom"}))
}

func TestNopSink(t *testing.T) {
	sink := NewNopSink()
	sink.OnProgress(context.Background(), usecase.ProgressEvent{Stage: usecase.StageStake})
	sink.Info("ignored")
	sink.Error("ignored")
}
