package grocer

import "context"

// CatalogService abstracts the commerce platform API.
// This interface allows for easy mocking in tests.
type CatalogService interface {
	// GetRetailers lists retailers serving a zip code.
	GetRetailers(ctx context.Context, zipCode string) ([]Retailer, error)

	// SearchProducts returns catalog candidates for one cart item,
	// ordered by confidence descending. May be empty.
	SearchProducts(ctx context.Context, req SearchRequest) ([]Product, error)

	// CreateCart submits the assembled cart and returns the platform's
	// verdict including the checkout URL on success.
	CreateCart(ctx context.Context, req CreateCartRequest) (*CreateCartResponse, error)
}

// Ensure Client implements CatalogService
var _ CatalogService = (*Client)(nil)
