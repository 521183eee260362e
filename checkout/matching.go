package checkout

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/cartify/cartify/grocer"
)

const (
	// DefaultConfidenceThreshold is the minimum top-candidate confidence
	// for accepting a match without user input.
	DefaultConfidenceThreshold = 0.7

	// DefaultMaxCandidates is how many candidates a pending confirmation
	// carries for the user to pick from.
	DefaultMaxCandidates = 3

	// DefaultSearchConcurrency bounds in-flight product searches during
	// a matching pass.
	DefaultSearchConcurrency = 4
)

// MatchResult is the outcome of one matching pass over a full cart.
// Both slices are in original cart order.
type MatchResult struct {
	Matches []Match
	Pending []PendingConfirmation
}

// MatchingEngine resolves cart items to retailer products via catalog
// search and splits them into auto-accepted matches and items needing
// user confirmation. It holds no state between passes; given identical
// search responses a pass is idempotent.
type MatchingEngine struct {
	catalog       grocer.CatalogService
	threshold     float64
	maxCandidates int
	concurrency   int
}

// NewMatchingEngine creates an engine over the given catalog. Zero
// values for the knobs select the defaults.
func NewMatchingEngine(catalog grocer.CatalogService, threshold float64, maxCandidates, concurrency int) *MatchingEngine {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}
	if concurrency <= 0 {
		concurrency = DefaultSearchConcurrency
	}
	return &MatchingEngine{
		catalog:       catalog,
		threshold:     threshold,
		maxCandidates: maxCandidates,
		concurrency:   concurrency,
	}
}

// itemOutcome holds one item's classification, indexed back into cart
// order after the concurrent searches finish.
type itemOutcome struct {
	match   *Match
	pending *PendingConfirmation
}

// MatchAll searches the catalog for every cart item and classifies each
// as an auto match or a pending confirmation. Searches run concurrently
// up to the configured bound, but the returned slices follow the
// original cart order. Individual search failures are absorbed: the
// item becomes a pending confirmation with no candidates so the user
// can still act or skip. Only context cancellation aborts the pass.
func (e *MatchingEngine) MatchAll(ctx context.Context, items []CartItem, retailerID, zipCode string) (MatchResult, error) {
	outcomes := make([]itemOutcome, len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, item := range items {
		g.Go(func() error {
			outcome, err := e.matchOne(ctx, item, retailerID, zipCode)
			if err != nil {
				return err
			}
			outcomes[i] = outcome
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return MatchResult{}, err
	}

	var result MatchResult
	for _, o := range outcomes {
		if o.match != nil {
			result.Matches = append(result.Matches, *o.match)
		} else if o.pending != nil {
			result.Pending = append(result.Pending, *o.pending)
		}
	}

	log.Info().
		Int("items", len(items)).
		Int("autoMatched", len(result.Matches)).
		Int("needConfirmation", len(result.Pending)).
		Msg("matching pass complete")
	return result, nil
}

// matchOne classifies a single cart item. Search failures are absorbed
// into a zero-candidate pending confirmation; only cancellation of the
// pass's context propagates as an error.
func (e *MatchingEngine) matchOne(ctx context.Context, item CartItem, retailerID, zipCode string) (itemOutcome, error) {
	candidates, err := e.catalog.SearchProducts(ctx, grocer.SearchRequest{
		Query:        item.ProductName,
		RetailerID:   retailerID,
		ZipCode:      zipCode,
		Quantity:     item.Quantity,
		Category:     item.Category,
		OriginalItem: item.ProductName,
	})
	if err != nil {
		if ctx.Err() != nil {
			return itemOutcome{}, ctx.Err()
		}
		// Search failure and "no candidates" are handled identically:
		// the user decides what to do with the item.
		log.Warn().Err(err).Str("item", item.ProductName).Msg("product search failed, queuing for confirmation")
		candidates = nil
	}

	if len(candidates) > 0 && candidates[0].Confidence >= e.threshold {
		// Ties at the top confidence keep server order; index 0 wins.
		return itemOutcome{match: &Match{
			CartItem:   item,
			Product:    candidates[0],
			Provenance: ProvenanceAuto,
		}}, nil
	}

	if len(candidates) > e.maxCandidates {
		candidates = candidates[:e.maxCandidates]
	}
	return itemOutcome{pending: &PendingConfirmation{
		CartItem:   item,
		Candidates: candidates,
	}}, nil
}
