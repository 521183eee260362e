package grocer

// Retailer is a store the platform can build carts for in a given area.
type Retailer struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Logo              string `json:"logo"`
	EstimatedDelivery string `json:"estimatedDelivery"`
}

// RetailersResponse wraps the retailer listing endpoint payload.
type RetailersResponse struct {
	Retailers []Retailer `json:"retailers"`
}

// Product is a catalog candidate returned by product search. Confidence
// is the platform's match score against the queried item, in [0, 1].
// Search results are ordered by confidence descending; index 0 is the
// platform's best guess.
type Product struct {
	ID         string  `json:"id"`
	SKU        string  `json:"sku"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Image      string  `json:"image,omitempty"`
	Size       string  `json:"size,omitempty"`
	Confidence float64 `json:"confidence"`
}

// SearchRequest is the body of a product search call. OriginalItem
// carries the user's raw list line for platform-side traceability.
type SearchRequest struct {
	Query        string  `json:"query"`
	RetailerID   string  `json:"retailerId"`
	ZipCode      string  `json:"zipCode"`
	Quantity     float64 `json:"quantity"`
	Category     string  `json:"category,omitempty"`
	OriginalItem string  `json:"originalItem"`
}

// SearchResponse wraps the product search payload.
type SearchResponse struct {
	Products []Product `json:"products"`
}

// CartLine is one resolved item in a cart creation request.
type CartLine struct {
	RetailerSKU  string  `json:"retailer_sku"`
	Quantity     float64 `json:"quantity"`
	Price        float64 `json:"price"`
	ProductName  string  `json:"product_name"`
	OriginalItem string  `json:"original_item"`
}

// CreateCartRequest is the body of the cart creation call.
type CreateCartRequest struct {
	RetailerID string            `json:"retailerId"`
	ZipCode    string            `json:"zipCode"`
	Items      []CartLine        `json:"items"`
	UserID     string            `json:"userId,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// CreateCartResponse is the platform's answer to cart creation. The
// platform reports application-level failure via Success=false with an
// Error message, not via HTTP status.
type CreateCartResponse struct {
	Success     bool   `json:"success"`
	CheckoutURL string `json:"checkoutUrl,omitempty"`
	CartID      string `json:"cartId,omitempty"`
	Error       string `json:"error,omitempty"`
}
