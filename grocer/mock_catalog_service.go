package grocer

import (
	"context"
	"sync"
)

// MockCatalogService is a test double for CatalogService.
// Each method can be overridden with a custom function.
// If not overridden, methods return sensible defaults.
// Thread-safe for use in concurrent tests.
type MockCatalogService struct {
	GetRetailersFunc   func(ctx context.Context, zipCode string) ([]Retailer, error)
	SearchProductsFunc func(ctx context.Context, req SearchRequest) ([]Product, error)
	CreateCartFunc     func(ctx context.Context, req CreateCartRequest) (*CreateCartResponse, error)

	mu sync.Mutex

	// Calls tracks all method invocations for assertions
	Calls []MockCall
}

// MockCall records a method call for test assertions.
type MockCall struct {
	Method string
	Args   []any
}

// Ensure MockCatalogService implements CatalogService
var _ CatalogService = (*MockCatalogService)(nil)

func (m *MockCatalogService) GetRetailers(ctx context.Context, zipCode string) ([]Retailer, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "GetRetailers", Args: []any{zipCode}})
	fn := m.GetRetailersFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, zipCode)
	}
	return []Retailer{{ID: "mock-retailer", Name: "Mock Mart"}}, nil
}

func (m *MockCatalogService) SearchProducts(ctx context.Context, req SearchRequest) ([]Product, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "SearchProducts", Args: []any{req}})
	fn := m.SearchProductsFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return nil, nil
}

func (m *MockCatalogService) CreateCart(ctx context.Context, req CreateCartRequest) (*CreateCartResponse, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Method: "CreateCart", Args: []any{req}})
	fn := m.CreateCartFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return &CreateCartResponse{Success: true, CheckoutURL: "https://platform.example/checkout/mock", CartID: "mock-cart-id"}, nil
}

// CallCount returns the number of recorded calls to the given method.
func (m *MockCatalogService) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}
