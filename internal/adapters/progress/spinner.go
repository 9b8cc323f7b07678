package progress

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"

	"github.com/dopedao/govsim/internal/usecase"
)

// SpinnerProgressReporter shows the running scenario stage behind a spinner
// and prints a line for every finished stage
type SpinnerProgressReporter struct {
	mu      sync.Mutex
	out     io.Writer
	spinner *spinner.Spinner
	current *stageInfo
}

type stageInfo struct {
	Stage     usecase.Stage
	StartTime time.Time
	Message   string
}

var stageNames = map[usecase.Stage]string{
	usecase.StageBootstrap: "Bootstrap",
	usecase.StagePropose:   "Propose",
	usecase.StageVote:      "Vote",
	usecase.StageQueue:     "Queue",
	usecase.StageExecute:   "Execute",
	usecase.StageStake:     "Stake",
	usecase.StageHarvest:   "Harvest",
	usecase.StageUnstake:   "Unstake",
	usecase.StageCompleted: "Completed",
}

// NewSpinnerProgressReporter creates a spinner writing to out. The spinner
// only animates when out is a terminal.
func NewSpinnerProgressReporter(out io.Writer) *SpinnerProgressReporter {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	s.HideCursor = false

	return &SpinnerProgressReporter{
		out:     out,
		spinner: s,
	}
}

// OnProgress handles progress events
func (r *SpinnerProgressReporter) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil && r.current.Stage != event.Stage {
		r.completeCurrentStage()
	}
	if r.current == nil && event.Stage != usecase.StageCompleted {
		r.current = &stageInfo{Stage: event.Stage, StartTime: time.Now()}
	}
	if r.current != nil {
		r.current.Message = event.Message
	}

	if event.Spinner {
		r.spinner.Suffix = " " + r.display(event)
		if !r.spinner.Active() {
			r.spinner.Start()
		}
	} else if r.spinner.Active() {
		r.spinner.Stop()
	}
	if event.Stage == usecase.StageCompleted {
		r.spinner.Stop()
	}
}

// Info prints an info message
func (r *SpinnerProgressReporter) Info(message string) {
	r.println(color.New(color.FgCyan), message)
}

// Error prints an error message
func (r *SpinnerProgressReporter) Error(message string) {
	r.println(color.New(color.FgRed), message)
}

func (r *SpinnerProgressReporter) println(c *color.Color, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Stop spinner temporarily
	wasActive := r.spinner.Active()
	if wasActive {
		r.spinner.Stop()
	}
	c.Fprintln(r.out, message)
	if wasActive {
		r.spinner.Start()
	}
}

// completeCurrentStage prints the finished stage with its duration
func (r *SpinnerProgressReporter) completeCurrentStage() {
	stage := r.current
	r.current = nil

	wasActive := r.spinner.Active()
	if wasActive {
		r.spinner.Stop()
	}
	elapsed := time.Since(stage.StartTime).Round(time.Millisecond)
	fmt.Fprintf(r.out, "%s %s (%s)\n", color.GreenString("✓"), stageName(stage.Stage), elapsed)
	if wasActive {
		r.spinner.Start()
	}
}

// display is the spinner suffix for an event
func (r *SpinnerProgressReporter) display(event usecase.ProgressEvent) string {
	var b strings.Builder
	b.WriteString(color.New(color.FgYellow).Sprint(stageName(event.Stage)))
	if event.Total > 0 {
		fmt.Fprintf(&b, " [%d/%d]", event.Current, event.Total)
	}
	if event.Message != "" {
		b.WriteString(": ")
		b.WriteString(event.Message)
	}
	return b.String()
}

func stageName(stage usecase.Stage) string {
	if name, ok := stageNames[stage]; ok {
		return name
	}
	return string(stage)
}

// Ensure SpinnerProgressReporter implements ProgressSink
var _ usecase.ProgressSink = (*SpinnerProgressReporter)(nil)
