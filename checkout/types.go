package checkout

import "github.com/cartify/cartify/grocer"

// CartItem is a single free-text grocery entry awaiting resolution to a
// real product. Produced by the parse package or the consuming UI;
// treated as immutable here.
type CartItem struct {
	ID          string
	ProductName string
	Quantity    float64
	Unit        string
	Category    string
}

// Provenance records how a match was decided.
type Provenance string

const (
	// ProvenanceAuto means the top candidate met the confidence
	// threshold and was accepted without user input.
	ProvenanceAuto Provenance = "auto"
	// ProvenanceUserConfirmed means the user picked the candidate
	// during the confirmation step.
	ProvenanceUserConfirmed Provenance = "user-confirmed"
)

// Match binds a cart item to the product that will go in the cart.
// Immutable once created.
type Match struct {
	CartItem   CartItem
	Product    grocer.Product
	Provenance Provenance
}

// ExtendedPrice is the line total this match contributes to the cart.
func (m Match) ExtendedPrice() float64 {
	return m.Product.Price * m.CartItem.Quantity
}

// PendingConfirmation is a cart item the engine could not resolve
// automatically, together with the top candidates (possibly none) for
// the user to pick from.
type PendingConfirmation struct {
	CartItem   CartItem
	Candidates []grocer.Product
}
