package checkout

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCart is returned when cart creation is attempted with no
	// resolved items (every cart item was skipped).
	ErrEmptyCart = errors.New("no matched items to put in the cart")

	// ErrNoCandidates is returned by Confirm when the current pending
	// item has no candidates; skip is the only valid action.
	ErrNoCandidates = errors.New("pending item has no candidates to confirm")

	// ErrUnknownCandidate is returned when the confirmed candidate index
	// is out of range for the current pending item.
	ErrUnknownCandidate = errors.New("candidate index out of range")

	// ErrDrained is returned by Confirm/Skip once every pending item has
	// been decided.
	ErrDrained = errors.New("confirmation queue is drained")

	// ErrDuplicateMatch is returned when a match for the same cart item
	// is added twice.
	ErrDuplicateMatch = errors.New("cart item already matched")

	// ErrInvalidState is returned when an operation is called in a state
	// that does not support it.
	ErrInvalidState = errors.New("operation not valid in current session state")

	// ErrCancelled is returned for any operation on a cancelled session.
	ErrCancelled = errors.New("checkout session cancelled")
)

// ValidationError reports a retailer-selection guard failure. It blocks
// the transition out of StateSelectingRetailer but is not a session
// failure; the UI surfaces it inline next to the named field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
