package checkout

// ConfirmationQueue walks the pending confirmations one at a time and
// records the user's accept/skip decisions. The cursor only moves
// forward; once it reaches the end the queue is drained and the session
// moves on to cart creation.
type ConfirmationQueue struct {
	pending []PendingConfirmation
	cursor  int
	skipped int
}

// NewConfirmationQueue creates a queue over the engine's pending items.
func NewConfirmationQueue(pending []PendingConfirmation) *ConfirmationQueue {
	return &ConfirmationQueue{pending: pending}
}

// Current returns the pending confirmation under the cursor, or false
// when the queue is drained.
func (q *ConfirmationQueue) Current() (PendingConfirmation, bool) {
	if q.Drained() {
		return PendingConfirmation{}, false
	}
	return q.pending[q.cursor], true
}

// Confirm resolves the current pending item to the candidate at the
// given index, returning the user-confirmed match and advancing the
// cursor. Confirming an item with no candidates is rejected; skip is
// the only valid action there.
func (q *ConfirmationQueue) Confirm(candidateIndex int) (Match, error) {
	current, ok := q.Current()
	if !ok {
		return Match{}, ErrDrained
	}
	if len(current.Candidates) == 0 {
		return Match{}, ErrNoCandidates
	}
	if candidateIndex < 0 || candidateIndex >= len(current.Candidates) {
		return Match{}, ErrUnknownCandidate
	}

	q.cursor++
	return Match{
		CartItem:   current.CartItem,
		Product:    current.Candidates[candidateIndex],
		Provenance: ProvenanceUserConfirmed,
	}, nil
}

// Skip discards the current pending item without creating a match; the
// item is excluded from the final cart.
func (q *ConfirmationQueue) Skip() error {
	if q.Drained() {
		return ErrDrained
	}
	q.cursor++
	q.skipped++
	return nil
}

// Drained reports whether every pending item has been decided.
func (q *ConfirmationQueue) Drained() bool {
	return q.cursor >= len(q.pending)
}

// Remaining returns how many pending items still await a decision,
// including the current one.
func (q *ConfirmationQueue) Remaining() int {
	return len(q.pending) - q.cursor
}

// Skipped returns how many items the user skipped.
func (q *ConfirmationQueue) Skipped() int {
	return q.skipped
}

// Len returns the total number of pending items the queue started with.
func (q *ConfirmationQueue) Len() int {
	return len(q.pending)
}
