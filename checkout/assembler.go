package checkout

import "github.com/cartify/cartify/grocer"

// CartAssembler accumulates resolved matches and builds the payload for
// the platform's cart creation call. The running total is always
// derived from the held matches; there is no separate counter to drift
// out of sync.
type CartAssembler struct {
	matches []Match
	seen    map[string]bool // cart item IDs already matched
}

// NewCartAssembler creates an empty assembler.
func NewCartAssembler() *CartAssembler {
	return &CartAssembler{seen: make(map[string]bool)}
}

// AddMatch appends a match to the cart. Adding a second match for the
// same cart item is rejected.
func (a *CartAssembler) AddMatch(m Match) error {
	if a.seen[m.CartItem.ID] {
		return ErrDuplicateMatch
	}
	a.seen[m.CartItem.ID] = true
	a.matches = append(a.matches, m)
	return nil
}

// RunningTotal is the sum of extended prices over all held matches.
func (a *CartAssembler) RunningTotal() float64 {
	var total float64
	for _, m := range a.matches {
		total += m.ExtendedPrice()
	}
	return total
}

// Len returns the number of held matches.
func (a *CartAssembler) Len() int {
	return len(a.matches)
}

// Matches returns a copy of the held matches in insertion order.
func (a *CartAssembler) Matches() []Match {
	out := make([]Match, len(a.matches))
	copy(out, a.matches)
	return out
}

// Payload maps the held matches to the platform's cart line shape,
// carrying the original free text for traceability. It never mutates
// the matches; calling it repeatedly yields structurally identical
// results.
func (a *CartAssembler) Payload() []grocer.CartLine {
	lines := make([]grocer.CartLine, 0, len(a.matches))
	for _, m := range a.matches {
		lines = append(lines, grocer.CartLine{
			RetailerSKU:  m.Product.SKU,
			Quantity:     m.CartItem.Quantity,
			Price:        m.Product.Price,
			ProductName:  m.Product.Name,
			OriginalItem: m.CartItem.ProductName,
		})
	}
	return lines
}
