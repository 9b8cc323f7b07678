package usecase

import (
	"errors"
	"fmt"

	"github.com/dopedao/govsim/internal/domain"
)

// ErrUnexpectedSuccess is returned when a call that must revert went through
var ErrUnexpectedSuccess = errors.New("call should have reverted")

// ErrCheckFailed is returned when a scenario observes state it did not expect
var ErrCheckFailed = errors.New("check failed")

// expectRevert turns a successful call into an error and passes any
// non-revert failure through. It returns the revert reason on success.
func expectRevert(step string, err error) (string, error) {
	if err == nil {
		return "", fmt.Errorf("%s: %w", step, ErrUnexpectedSuccess)
	}
	reason, ok := domain.RevertReason(err)
	if !ok {
		return "", fmt.Errorf("%s: %w", step, err)
	}
	return reason, nil
}

func checkf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCheckFailed, fmt.Sprintf(format, args...))
}
