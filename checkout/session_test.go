package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartify/cartify/grocer"
)

func testConfig() Config {
	return Config{
		RetailerID:   "kroger",
		RetailerName: "Kroger",
		ZipCode:      "94107",
		UserID:       "user-1",
	}
}

// Scenario: a single high-confidence item auto-matches and the cart is
// created without any confirmation step.
func TestSession_AutoMatchStraightToComplete(t *testing.T) {
	catalog := &grocer.MockCatalogService{
		SearchProductsFunc: func(ctx context.Context, req grocer.SearchRequest) ([]grocer.Product, error) {
			return []grocer.Product{{SKU: "SKU-1", Name: "Chicken Breast", Price: 8.00, Confidence: 0.95}}, nil
		},
	}
	s := NewSession(testConfig(), catalog, []CartItem{item("1", "2 lbs chicken breast", 2)})

	require.NoError(t, s.Start(context.Background()))

	assert.Equal(t, StateComplete, s.State())
	assert.Equal(t, 16.00, s.RunningTotal())
	assert.Equal(t, 0, s.PendingRemaining())
	require.Len(t, s.Matches(), 1)
	assert.Equal(t, ProvenanceAuto, s.Matches()[0].Provenance)
	assert.NotEmpty(t, s.CheckoutURL())
	assert.Equal(t, 1, catalog.CallCount("CreateCart"))
}

// Scenario: a low-confidence item goes to confirmation; skipping it
// leaves an empty cart, which is blocked client-side without touching
// the platform.
func TestSession_SkipAllBlocksEmptyCart(t *testing.T) {
	catalog := &grocer.MockCatalogService{
		SearchProductsFunc: func(ctx context.Context, req grocer.SearchRequest) ([]grocer.Product, error) {
			return []grocer.Product{
				{SKU: "A", Name: "Herb A", Price: 3.00, Confidence: 0.3},
				{SKU: "B", Name: "Herb B", Price: 2.50, Confidence: 0.25},
			}, nil
		},
	}
	s := NewSession(testConfig(), catalog, []CartItem{item("1", "mystery herb", 1)})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, StateConfirming, s.State())

	pending, ok := s.CurrentPending()
	require.True(t, ok)
	assert.Len(t, pending.Candidates, 2)

	err := s.Skip(context.Background())
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, StateError, s.State())
	assert.Empty(t, s.Matches())
	assert.Equal(t, 1, s.Skipped())
	assert.Zero(t, catalog.CallCount("CreateCart"), "empty cart must never reach the platform")
}

func TestSession_ConfirmBuildsCart(t *testing.T) {
	var created grocer.CreateCartRequest
	catalog := &grocer.MockCatalogService{
		SearchProductsFunc: func(ctx context.Context, req grocer.SearchRequest) ([]grocer.Product, error) {
			switch req.Query {
			case "milk":
				return []grocer.Product{{SKU: "MILK", Name: "Whole Milk", Price: 3.50, Confidence: 0.92}}, nil
			case "fancy cheese":
				return []grocer.Product{
					{SKU: "BRIE", Name: "Brie", Price: 9.00, Confidence: 0.55},
					{SKU: "BLUE", Name: "Blue Cheese", Price: 7.00, Confidence: 0.40},
				}, nil
			}
			return nil, nil
		},
		CreateCartFunc: func(ctx context.Context, req grocer.CreateCartRequest) (*grocer.CreateCartResponse, error) {
			created = req
			return &grocer.CreateCartResponse{Success: true, CheckoutURL: "https://platform.example/checkout/x", CartID: "cart-x"}, nil
		},
	}
	cart := []CartItem{item("1", "milk", 1), item("2", "fancy cheese", 1)}
	s := NewSession(testConfig(), catalog, cart)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, StateConfirming, s.State())
	// Invariant at the end of matching: every item accounted for
	assert.Equal(t, len(cart), len(s.Matches())+s.PendingRemaining())
	assert.Equal(t, 3.50, s.RunningTotal())

	require.NoError(t, s.Confirm(context.Background(), 1)) // pick the blue cheese

	assert.Equal(t, StateComplete, s.State())
	assert.Equal(t, 10.50, s.RunningTotal())
	assert.Equal(t, "https://platform.example/checkout/x", s.CheckoutURL())
	assert.Equal(t, "cart-x", s.CartID())

	require.Len(t, created.Items, 2)
	assert.Equal(t, "MILK", created.Items[0].RetailerSKU)
	assert.Equal(t, "BLUE", created.Items[1].RetailerSKU)
	assert.Equal(t, "fancy cheese", created.Items[1].OriginalItem)
	assert.Equal(t, "user-1", created.UserID)

	matches := s.Matches()
	require.Len(t, matches, 2)
	assert.Equal(t, ProvenanceAuto, matches[0].Provenance)
	assert.Equal(t, ProvenanceUserConfirmed, matches[1].Provenance)
}

// Scenario: the platform rejects the cart; retry re-submits the
// identical payload without re-running any searches.
func TestSession_CartRejectionThenRetry(t *testing.T) {
	var mu sync.Mutex
	var payloads []grocer.CreateCartRequest
	fail := true
	catalog := &grocer.MockCatalogService{
		SearchProductsFunc: func(ctx context.Context, req grocer.SearchRequest) ([]grocer.Product, error) {
			return []grocer.Product{{SKU: "SKU-1", Name: "Milk", Price: 3.50, Confidence: 0.9}}, nil
		},
		CreateCartFunc: func(ctx context.Context, req grocer.CreateCartRequest) (*grocer.CreateCartResponse, error) {
			mu.Lock()
			defer mu.Unlock()
			payloads = append(payloads, req)
			if fail {
				fail = false
				return &grocer.CreateCartResponse{Success: false, Error: "retailer unavailable"}, nil
			}
			return &grocer.CreateCartResponse{Success: true, CheckoutURL: "https://platform.example/checkout/y"}, nil
		},
	}
	s := NewSession(testConfig(), catalog, []CartItem{item("1", "milk", 1)})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateError, s.State())
	assert.ErrorContains(t, s.Err(), "retailer unavailable")

	searchesBefore := catalog.CallCount("SearchProducts")
	require.NoError(t, s.Retry(context.Background()))

	assert.Equal(t, StateComplete, s.State())
	assert.Equal(t, searchesBefore, catalog.CallCount("SearchProducts"), "retry must not re-run matching")
	require.Len(t, payloads, 2)
	assert.Equal(t, payloads[0], payloads[1], "retry must re-submit the identical payload")
}

func TestSession_TransportFailureRetainsPayload(t *testing.T) {
	boom := errors.New("connection reset")
	attempts := 0
	catalog := &grocer.MockCatalogService{
		SearchProductsFunc: func(ctx context.Context, req grocer.SearchRequest) ([]grocer.Product, error) {
			return []grocer.Product{{SKU: "SKU-1", Name: "Milk", Price: 3.50, Confidence: 0.9}}, nil
		},
		CreateCartFunc: func(ctx context.Context, req grocer.CreateCartRequest) (*grocer.CreateCartResponse, error) {
			attempts++
			if attempts == 1 {
				return nil, boom
			}
			return &grocer.CreateCartResponse{Success: true, CheckoutURL: "https://platform.example/checkout/z"}, nil
		},
	}
	s := NewSession(testConfig(), catalog, []CartItem{item("1", "milk", 1)})

	err := s.Start(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateError, s.State())

	require.NoError(t, s.Retry(context.Background()))
	assert.Equal(t, StateComplete, s.State())
}

func TestSession_ValidationGuards(t *testing.T) {
	catalog := &grocer.MockCatalogService{}

	tests := []struct {
		name  string
		cfg   Config
		cart  []CartItem
		field string
	}{
		{"empty cart", testConfig(), nil, "cart"},
		{"missing retailer", Config{ZipCode: "94107"}, []CartItem{item("1", "milk", 1)}, "retailer"},
		{"bad zip", Config{RetailerID: "kroger", ZipCode: "941"}, []CartItem{item("1", "milk", 1)}, "zipCode"},
		{"non-numeric zip", Config{RetailerID: "kroger", ZipCode: "9410a"}, []CartItem{item("1", "milk", 1)}, "zipCode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(tt.cfg, catalog, tt.cart)
			err := s.Start(context.Background())

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			// Guard failure keeps the state; it is not a session error
			assert.Equal(t, StateSelectingRetailer, s.State())
			assert.Zero(t, catalog.CallCount("SearchProducts"))
		})
	}
}

func TestSession_OperationsRejectedInWrongState(t *testing.T) {
	catalog := &grocer.MockCatalogService{
		SearchProductsFunc: func(ctx context.Context, req grocer.SearchRequest) ([]grocer.Product, error) {
			return []grocer.Product{{SKU: "SKU-1", Name: "Milk", Price: 3.50, Confidence: 0.9}}, nil
		},
	}
	s := NewSession(testConfig(), catalog, []CartItem{item("1", "milk", 1)})

	// Confirm/Skip/Retry before Start
	assert.ErrorIs(t, s.Confirm(context.Background(), 0), ErrInvalidState)
	assert.ErrorIs(t, s.Skip(context.Background()), ErrInvalidState)
	assert.ErrorIs(t, s.Retry(context.Background()), ErrInvalidState)

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, StateComplete, s.State())

	// Start again after completion
	assert.ErrorIs(t, s.Start(context.Background()), ErrInvalidState)
}

func TestSession_CancelAbortsInFlightSearch(t *testing.T) {
	searching := make(chan struct{})
	catalog := &grocer.MockCatalogService{
		SearchProductsFunc: func(ctx context.Context, req grocer.SearchRequest) ([]grocer.Product, error) {
			close(searching)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	s := NewSession(testConfig(), catalog, []CartItem{item("1", "milk", 1)})

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(context.Background()) }()

	select {
	case <-searching:
	case <-time.After(time.Second):
		t.Fatal("search never started")
	}
	s.Cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrCancelled)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Cancel")
	}

	assert.Equal(t, StateCancelled, s.State())
	// Post-cancel mutations are rejected
	assert.ErrorIs(t, s.Skip(context.Background()), ErrCancelled)
	assert.ErrorIs(t, s.Confirm(context.Background(), 0), ErrCancelled)
	assert.ErrorIs(t, s.Retry(context.Background()), ErrCancelled)
	assert.Zero(t, catalog.CallCount("CreateCart"))
}

func TestSession_AccountingLawAfterEveryEvent(t *testing.T) {
	catalog := &grocer.MockCatalogService{
		SearchProductsFunc: func(ctx context.Context, req grocer.SearchRequest) ([]grocer.Product, error) {
			switch req.Query {
			case "chicken":
				return []grocer.Product{{SKU: "C", Name: "Chicken", Price: 8.00, Confidence: 0.95}}, nil
			case "herbs":
				return []grocer.Product{{SKU: "H", Name: "Herbs", Price: 2.00, Confidence: 0.5}}, nil
			case "cheese":
				return []grocer.Product{{SKU: "F", Name: "Feta", Price: 6.00, Confidence: 0.6}}, nil
			}
			return nil, nil
		},
	}
	cart := []CartItem{item("1", "chicken", 2), item("2", "herbs", 3), item("3", "cheese", 1)}
	s := NewSession(testConfig(), catalog, cart)

	checkTotal := func() {
		var want float64
		for _, m := range s.Matches() {
			want += m.Product.Price * m.CartItem.Quantity
		}
		assert.Equal(t, want, s.RunningTotal())
	}

	require.NoError(t, s.Start(context.Background()))
	checkTotal()
	assert.Equal(t, 16.00, s.RunningTotal())

	require.NoError(t, s.Confirm(context.Background(), 0)) // herbs: 3 × 2.00
	checkTotal()
	assert.Equal(t, 22.00, s.RunningTotal())

	require.NoError(t, s.Confirm(context.Background(), 0)) // feta: 1 × 6.00
	checkTotal()
	assert.Equal(t, 28.00, s.RunningTotal())
	assert.Equal(t, StateComplete, s.State())
}

func TestSession_ConfirmOnZeroCandidateItemRejected(t *testing.T) {
	catalog := &grocer.MockCatalogService{
		SearchProductsFunc: func(ctx context.Context, req grocer.SearchRequest) ([]grocer.Product, error) {
			return nil, nil
		},
	}
	s := NewSession(testConfig(), catalog, []CartItem{item("1", "unfindable", 1)})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, StateConfirming, s.State())

	err := s.Confirm(context.Background(), 0)
	assert.ErrorIs(t, err, ErrNoCandidates)
	// Still confirming; skip remains available
	assert.Equal(t, StateConfirming, s.State())
}

func TestSession_CancelIsIdempotentAndTerminal(t *testing.T) {
	catalog := &grocer.MockCatalogService{}
	s := NewSession(testConfig(), catalog, []CartItem{item("1", "milk", 1)})

	s.Cancel()
	s.Cancel()
	assert.Equal(t, StateCancelled, s.State())
	assert.ErrorIs(t, s.Start(context.Background()), ErrCancelled)
}
