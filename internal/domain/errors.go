package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain operations
var (
	// ErrNotFound is returned when a requested resource doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when the caller lacks the role an operation requires
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTooEarly is returned when an action is attempted before its block or time threshold
	ErrTooEarly = errors.New("too early")

	// ErrStale is returned when a queued action has outlived its grace period
	ErrStale = errors.New("stale")

	// ErrDuplicate is returned for repeated votes, queued actions, or stakes
	ErrDuplicate = errors.New("duplicate")

	// ErrTermsNotAccepted is returned when the staking terms flag is false
	ErrTermsNotAccepted = errors.New("terms not accepted")

	// ErrInvalidArgument is returned for malformed call arguments
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidState is returned when a proposal is not in the state an operation requires
	ErrInvalidState = errors.New("invalid state")

	// ErrInsufficientFunds is returned when a balance cannot cover a transfer
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrUnknownAccount is returned when a transaction is sent from an account the chain cannot sign for
	ErrUnknownAccount = errors.New("unknown account")

	// ErrNotConfigured is returned when a required setting is missing
	ErrNotConfigured = errors.New("not configured")
)

// RevertError is a failed contract call. Kind is one of the sentinel errors
// above so callers can classify reverts with errors.Is.
type RevertError struct {
	Reason string
	Kind   error
	Cause  error
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return "execution reverted"
	}
	return fmt.Sprintf("execution reverted: %s", e.Reason)
}

func (e *RevertError) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

func (e *RevertError) Unwrap() error {
	return e.Cause
}

// Revert builds a RevertError of the given kind.
func Revert(kind error, reason string) *RevertError {
	return &RevertError{Reason: reason, Kind: kind}
}

// RevertReason extracts the outermost revert reason from err.
func RevertReason(err error) (string, bool) {
	var rerr *RevertError
	if errors.As(err, &rerr) {
		return rerr.Reason, true
	}
	return "", false
}

// IsRevert reports whether err is a contract revert.
func IsRevert(err error) bool {
	var rerr *RevertError
	return errors.As(err, &rerr)
}
