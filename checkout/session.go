package checkout

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cartify/cartify/grocer"
)

// State identifies where a checkout session is in its lifecycle.
type State int

const (
	// StateSelectingRetailer is the initial state: the session holds the
	// cart snapshot and waits for Start once retailer and zip are set.
	StateSelectingRetailer State = iota
	// StateMatching runs the matching engine over the full cart.
	StateMatching
	// StateConfirming drains the confirmation queue one item at a time.
	StateConfirming
	// StateCreatingCart submits the assembled payload to the platform.
	StateCreatingCart
	// StateComplete is terminal: the cart exists and a checkout URL is
	// available.
	StateComplete
	// StateError holds a failed session with enough context to retry.
	StateError
	// StateCancelled is terminal: the user abandoned the session.
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateSelectingRetailer:
		return "selecting_retailer"
	case StateMatching:
		return "matching"
	case StateConfirming:
		return "confirming"
	case StateCreatingCart:
		return "creating_cart"
	case StateComplete:
		return "complete"
	case StateError:
		return "error"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

var zipCodeRe = regexp.MustCompile(`^\d{5}$`)

// Config is the immutable configuration for one checkout attempt.
// Persisted preferences (saved retailer, zip) are resolved by the
// caller before the session is created; the session never reads
// ambient storage mid-flow.
type Config struct {
	RetailerID   string
	RetailerName string
	ZipCode      string

	// UserID is the platform user, empty for anonymous checkout.
	UserID string

	// ConfidenceThreshold, MaxCandidates and SearchConcurrency tune the
	// matching engine; zero values select the package defaults.
	ConfidenceThreshold float64
	MaxCandidates       int
	SearchConcurrency   int

	// Metadata is passed through to cart creation.
	Metadata map[string]string
}

// failure retains what is needed to retry after a cart creation error:
// the state that failed, the exact payload attempted, and the cause.
type failure struct {
	from    State
	payload grocer.CreateCartRequest
	cause   error
}

// Session drives one grocery cart through retailer selection, matching,
// confirmation and cart creation.
//
// Threading model (mirrors one logical thread of control per checkout):
//   - Mutating operations (Start, Confirm, Skip, Retry, Cancel) are
//     expected from a single owner, typically the UI event loop.
//   - Read accessors are mutex-guarded and safe from any goroutine.
//   - The session mutex is not held across network calls, so accessors
//     stay responsive while a search or cart creation is in flight.
type Session struct {
	id      string
	cfg     Config
	cart    []CartItem
	catalog grocer.CatalogService

	engine    *MatchingEngine
	queue     *ConfirmationQueue
	assembler *CartAssembler

	mu          sync.Mutex
	state       State
	checkoutURL string
	cartID      string
	failure     *failure

	// ctx is cancelled when the session is cancelled; every outbound
	// call is bound to it so abandoning the UI aborts in-flight work.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession creates a session over a cart snapshot. The session starts
// in StateSelectingRetailer and owns the snapshot exclusively.
func NewSession(cfg Config, catalog grocer.CatalogService, cart []CartItem) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:        uuid.NewString(),
		cfg:       cfg,
		cart:      cart,
		catalog:   catalog,
		engine:    NewMatchingEngine(catalog, cfg.ConfidenceThreshold, cfg.MaxCandidates, cfg.SearchConcurrency),
		assembler: NewCartAssembler(),
		state:     StateSelectingRetailer,
		ctx:       ctx,
		cancel:    cancel,
	}
	log.Info().
		Str("sessionId", s.id).
		Str("retailerId", cfg.RetailerID).
		Int("items", len(cart)).
		Msg("checkout session created")
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Config returns the session's immutable configuration.
func (s *Session) Config() Config { return s.cfg }

// validate guards the transition out of StateSelectingRetailer. Guard
// failures keep the state unchanged and surface as field-level
// validation errors, not session failures.
func (s *Session) validate() error {
	if len(s.cart) == 0 {
		return &ValidationError{Field: "cart", Reason: "cart is empty"}
	}
	if s.cfg.RetailerID == "" {
		return &ValidationError{Field: "retailer", Reason: "no retailer selected"}
	}
	if !zipCodeRe.MatchString(s.cfg.ZipCode) {
		return &ValidationError{Field: "zipCode", Reason: "must be a 5-digit zip code"}
	}
	return nil
}

// Start validates the retailer selection and runs the matching pass.
// On return the session is in StateConfirming (items need the user),
// StateComplete (everything auto-matched and the cart was created),
// or StateError / StateCancelled.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateCancelled {
		s.mu.Unlock()
		return ErrCancelled
	}
	if s.state != StateSelectingRetailer {
		s.mu.Unlock()
		return fmt.Errorf("%w: start from %s", ErrInvalidState, s.state)
	}
	if err := s.validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.setStateLocked(StateMatching)
	cart := s.cart
	s.mu.Unlock()

	callCtx, done := s.callContext(ctx)
	result, err := s.engine.MatchAll(callCtx, cart, s.cfg.RetailerID, s.cfg.ZipCode)
	done()

	s.mu.Lock()
	if s.state == StateCancelled {
		s.mu.Unlock()
		return ErrCancelled
	}
	if err != nil {
		// MatchAll only fails on cancellation; individual search
		// failures are absorbed into pending confirmations.
		s.failLocked(StateMatching, grocer.CreateCartRequest{}, err)
		s.mu.Unlock()
		return err
	}

	for _, m := range result.Matches {
		if addErr := s.assembler.AddMatch(m); addErr != nil {
			log.Error().Err(addErr).Str("itemId", m.CartItem.ID).Msg("dropping duplicate auto match")
		}
	}
	s.queue = NewConfirmationQueue(result.Pending)

	if s.queue.Drained() {
		s.setStateLocked(StateCreatingCart)
		s.mu.Unlock()
		return s.createCart(ctx)
	}
	s.setStateLocked(StateConfirming)
	s.mu.Unlock()
	return nil
}

// Confirm resolves the current pending item to one of its candidates.
// When the queue drains, cart creation runs before Confirm returns.
func (s *Session) Confirm(ctx context.Context, candidateIndex int) error {
	s.mu.Lock()
	if s.state == StateCancelled {
		s.mu.Unlock()
		return ErrCancelled
	}
	if s.state != StateConfirming {
		s.mu.Unlock()
		return fmt.Errorf("%w: confirm from %s", ErrInvalidState, s.state)
	}

	match, err := s.queue.Confirm(candidateIndex)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.assembler.AddMatch(match); err != nil {
		s.mu.Unlock()
		return err
	}
	log.Info().
		Str("sessionId", s.id).
		Str("item", match.CartItem.ProductName).
		Str("sku", match.Product.SKU).
		Float64("runningTotal", s.assembler.RunningTotal()).
		Msg("match confirmed")

	return s.advanceLocked(ctx)
}

// Skip discards the current pending item; it will not be in the cart.
// When the queue drains, cart creation runs before Skip returns.
func (s *Session) Skip(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateCancelled {
		s.mu.Unlock()
		return ErrCancelled
	}
	if s.state != StateConfirming {
		s.mu.Unlock()
		return fmt.Errorf("%w: skip from %s", ErrInvalidState, s.state)
	}

	if current, ok := s.queue.Current(); ok {
		log.Info().Str("sessionId", s.id).Str("item", current.CartItem.ProductName).Msg("item skipped")
	}
	if err := s.queue.Skip(); err != nil {
		s.mu.Unlock()
		return err
	}

	return s.advanceLocked(ctx)
}

// advanceLocked checks the drained condition and either stays in
// StateConfirming or moves on to cart creation. Called with s.mu held;
// releases it.
func (s *Session) advanceLocked(ctx context.Context) error {
	if !s.queue.Drained() {
		s.mu.Unlock()
		return nil
	}
	s.setStateLocked(StateCreatingCart)
	s.mu.Unlock()
	return s.createCart(ctx)
}

// createCart submits the assembled payload. Must be called without the
// session mutex held and with the session in StateCreatingCart.
func (s *Session) createCart(ctx context.Context) error {
	s.mu.Lock()
	req := grocer.CreateCartRequest{
		RetailerID: s.cfg.RetailerID,
		ZipCode:    s.cfg.ZipCode,
		Items:      s.assembler.Payload(),
		UserID:     s.cfg.UserID,
		Metadata:   s.cfg.Metadata,
	}
	if len(req.Items) == 0 {
		// Every item was skipped. Blocked client-side: an empty cart
		// can only fail on the platform, so the call is never made.
		s.failLocked(StateCreatingCart, req, ErrEmptyCart)
		s.mu.Unlock()
		return ErrEmptyCart
	}
	s.mu.Unlock()

	return s.submitCart(ctx, req)
}

// submitCart performs the cart creation call and records the outcome.
// Shared by the normal flow and Retry so both submit the same shape.
func (s *Session) submitCart(ctx context.Context, req grocer.CreateCartRequest) error {
	callCtx, done := s.callContext(ctx)
	resp, err := s.catalog.CreateCart(callCtx, req)
	done()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateCancelled {
		return ErrCancelled
	}

	if err != nil {
		s.failLocked(StateCreatingCart, req, err)
		return err
	}
	if !resp.Success {
		cause := fmt.Errorf("cart creation rejected: %s", resp.Error)
		s.failLocked(StateCreatingCart, req, cause)
		return cause
	}

	s.checkoutURL = resp.CheckoutURL
	s.cartID = resp.CartID
	s.setStateLocked(StateComplete)
	log.Info().
		Str("sessionId", s.id).
		Str("cartId", resp.CartID).
		Int("items", len(req.Items)).
		Float64("total", s.assembler.RunningTotal()).
		Msg("checkout complete")
	return nil
}

// Retry re-submits the exact payload that failed, without re-running
// matching or confirmation. Valid only in StateError after a cart
// creation failure with a non-empty payload.
func (s *Session) Retry(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateCancelled {
		s.mu.Unlock()
		return ErrCancelled
	}
	if s.state != StateError || s.failure == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: retry from %s", ErrInvalidState, s.state)
	}
	if s.failure.from != StateCreatingCart || len(s.failure.payload.Items) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: nothing to retry", ErrInvalidState)
	}
	req := s.failure.payload
	s.setStateLocked(StateCreatingCart)
	s.mu.Unlock()

	return s.submitCart(ctx, req)
}

// Cancel abandons the session from any non-terminal state and cancels
// in-flight searches or cart creation. No external side effects need
// undoing: nothing exists on the platform until cart creation succeeds.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateComplete || s.state == StateCancelled {
		return
	}
	s.setStateLocked(StateCancelled)
	s.cancel()
}

// failLocked transitions to StateError retaining the failure context.
func (s *Session) failLocked(from State, payload grocer.CreateCartRequest, cause error) {
	s.failure = &failure{from: from, payload: payload, cause: cause}
	s.setStateLocked(StateError)
	log.Error().
		Err(cause).
		Str("sessionId", s.id).
		Str("failedState", from.String()).
		Msg("checkout session failed")
}

func (s *Session) setStateLocked(next State) {
	if s.state == next {
		return
	}
	log.Debug().
		Str("sessionId", s.id).
		Str("from", s.state.String()).
		Str("to", next.String()).
		Msg("state transition")
	s.state = next
}

// callContext binds an outbound call to both the caller's context and
// the session's lifetime, so Cancel aborts in-flight work.
func (s *Session) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return merged, func() {
		stop()
		cancel()
	}
}

// --- Read accessors ---

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Matches returns the resolved matches accumulated so far, auto and
// user-confirmed, in resolution order.
func (s *Session) Matches() []Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assembler.Matches()
}

// RunningTotal returns the sum of extended prices over all matches.
func (s *Session) RunningTotal() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assembler.RunningTotal()
}

// CurrentPending returns the pending confirmation awaiting the user, or
// false when there is none.
func (s *Session) CurrentPending() (PendingConfirmation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConfirming || s.queue == nil {
		return PendingConfirmation{}, false
	}
	return s.queue.Current()
}

// PendingRemaining returns how many items still await confirmation.
func (s *Session) PendingRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue == nil {
		return 0
	}
	return s.queue.Remaining()
}

// Skipped returns how many items the user skipped.
func (s *Session) Skipped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue == nil {
		return 0
	}
	return s.queue.Skipped()
}

// CheckoutURL returns the platform checkout URL once complete.
func (s *Session) CheckoutURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkoutURL
}

// CartID returns the created cart's identifier once complete.
func (s *Session) CartID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartID
}

// Err returns the retained cause when the session is in StateError.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failure == nil {
		return nil
	}
	return s.failure.cause
}
