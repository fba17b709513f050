package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	"go.uber.org/multierr"

	"github.com/storefront-labs/storefront-backend/internal/cart"
	"github.com/storefront-labs/storefront-backend/pkg/config"
	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
	"github.com/storefront-labs/storefront-backend/pkg/logger"
	"github.com/storefront-labs/storefront-backend/pkg/metrics"
	"github.com/storefront-labs/storefront-backend/pkg/square"
)

// State is a checkout flow phase.
type State string

const (
	StateIdle             State = "idle"
	StateValidating       State = "validating"
	StateNeedsRemediation State = "needs_remediation"
	StateReviewing        State = "user_reviewing"
	StatePricing          State = "pricing_for_payment"
	StateHandoffReady     State = "handoff_ready"
	StateCancelled        State = "cancelled"
	StateCompleted        State = "completed"
)

// BeginResult reports where a checkout landed after validation: either
// payment-ready with a handoff, or paused for the user to review findings.
type BeginResult struct {
	State      State             `json:"state"`
	Validation *ValidationResult `json:"validation,omitempty"`
	Handoff    *Handoff          `json:"handoff,omitempty"`
}

// PaymentInput carries the processor-facing fields for confirming a
// checkout that has reached HandoffReady.
type PaymentInput struct {
	SourceID   string
	CustomerID string
	Note       string
}

type pricingOrchestrator interface {
	SelectedItems(cartID uuid.UUID) ([]cart.Item, error)
	Deselect(ctx context.Context, cartID uuid.UUID, itemIDs ...uuid.UUID) (cart.Totals, error)
	QuoteForPayment(ctx context.Context, cartID uuid.UUID) (*cart.Totals, error)
	Teardown(cartID uuid.UUID)
}

type cartStore interface {
	MarkConverted(ctx context.Context, profileID, cartID uuid.UUID) error
	RemoveItem(ctx context.Context, profileID, itemID uuid.UUID) (*models.CartRecord, error)
}

type checkoutValidator interface {
	Validate(ctx context.Context, cartID uuid.UUID, items []cart.Item) (*ValidationResult, error)
}

type paymentProcessor interface {
	CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error)
	LocationID() string
	NewIdempotencyKey(prefix string) string
}

type eventPublisher interface {
	PublishCheckoutEvent(ctx context.Context, eventType string, payload any) error
}

// Service drives the checkout flow from validation through remediation
// to the payment handoff.
type Service interface {
	Begin(ctx context.Context, profileID, cartID uuid.UUID) (*BeginResult, error)
	Review(cartID uuid.UUID) (*ValidationResult, error)
	Continue(ctx context.Context, profileID, cartID uuid.UUID) (*BeginResult, error)
	Cancel(ctx context.Context, cartID uuid.UUID) error
	Confirm(ctx context.Context, profileID, cartID uuid.UUID, input PaymentInput) (*sq.Payment, error)
	StateOf(cartID uuid.UUID) State
}

type flow struct {
	state      State
	profileID  uuid.UUID
	validation *ValidationResult
	handoff    *Handoff
	touched    time.Time
}

type service struct {
	mu    sync.Mutex
	flows map[uuid.UUID]*flow

	validator         checkoutValidator
	pricing           pricingOrchestrator
	carts             cartStore
	payments          paymentProcessor
	events            eventPublisher
	metrics           *metrics.CheckoutMetrics
	logg              *logger.Logger
	validationTimeout time.Duration
	sessionTTL        time.Duration
}

// NewService wires the checkout orchestrator. The event publisher is
// optional; everything else is required.
func NewService(
	v checkoutValidator,
	pricing pricingOrchestrator,
	carts cartStore,
	payments paymentProcessor,
	events eventPublisher,
	cfg config.CheckoutConfig,
	m *metrics.CheckoutMetrics,
	logg *logger.Logger,
) (Service, error) {
	if v == nil {
		return nil, fmt.Errorf("validator required")
	}
	if pricing == nil {
		return nil, fmt.Errorf("pricing service required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment processor required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	timeout := cfg.ValidationTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &service{
		flows:             make(map[uuid.UUID]*flow),
		validator:         v,
		pricing:           pricing,
		carts:             carts,
		payments:          payments,
		events:            events,
		metrics:           m,
		logg:              logg,
		validationTimeout: timeout,
		sessionTTL:        ttl,
	}, nil
}

// Begin validates the current selection. A clean result is priced and
// handed off immediately; findings pause the flow for user review.
func (s *service) Begin(ctx context.Context, profileID, cartID uuid.UUID) (*BeginResult, error) {
	if err := s.transition(cartID, profileID, StateValidating, StateIdle, StateCancelled, StateNeedsRemediation, StateReviewing, StateHandoffReady); err != nil {
		return nil, err
	}

	items, err := s.pricing.SelectedItems(cartID)
	if err != nil {
		s.reset(cartID)
		return nil, err
	}
	if len(items) == 0 {
		s.reset(cartID)
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "nothing selected to check out")
	}

	vctx, cancel := context.WithTimeout(ctx, s.validationTimeout)
	result, err := s.validator.Validate(vctx, cartID, items)
	cancel()
	if err != nil {
		s.reset(cartID)
		return nil, err
	}

	if result.RequiresRemediation() {
		s.metrics.IncValidation(validationLabel(result))
		s.setFlow(cartID, func(f *flow) {
			f.state = StateNeedsRemediation
			f.validation = result
		})
		s.logg.Info(ctx, "checkout paused for remediation review")
		return &BeginResult{State: StateNeedsRemediation, Validation: result}, nil
	}

	s.metrics.IncValidation("clean")
	return s.priceAndHandoff(ctx, cartID, items, result)
}

// Review surfaces the pending findings and marks the flow as under
// user review.
func (s *service) Review(cartID uuid.UUID) (*ValidationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.flowLocked(cartID)
	if !ok || (f.state != StateNeedsRemediation && f.state != StateReviewing) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no checkout awaiting review")
	}
	f.state = StateReviewing
	f.touched = time.Now()
	return f.validation, nil
}

// Continue accepts the findings: items with hard errors are dropped
// from the selection, warned items stay, and the survivors are re-priced
// directly before the handoff is built.
func (s *service) Continue(ctx context.Context, profileID, cartID uuid.UUID) (*BeginResult, error) {
	s.mu.Lock()
	f, ok := s.flowLocked(cartID)
	if !ok || (f.state != StateNeedsRemediation && f.state != StateReviewing) {
		s.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no checkout awaiting remediation")
	}
	validation := f.validation
	f.state = StatePricing
	f.touched = time.Now()
	s.mu.Unlock()

	items, err := s.pricing.SelectedItems(cartID)
	if err != nil {
		s.reset(cartID)
		return nil, err
	}

	if errored := validation.ErroredItemIDs(items); len(errored) > 0 {
		// Errored lines leave the cart for good; warned lines stay.
		var removeErrs error
		for _, itemID := range errored {
			if _, err := s.carts.RemoveItem(ctx, profileID, itemID); err != nil {
				removeErrs = multierr.Append(removeErrs, err)
			}
		}
		if removeErrs != nil {
			s.reset(cartID)
			return nil, fmt.Errorf("removing errored items: %w", removeErrs)
		}
		if _, err := s.pricing.Deselect(ctx, cartID, errored...); err != nil {
			s.reset(cartID)
			return nil, err
		}
		items, err = s.pricing.SelectedItems(cartID)
		if err != nil {
			s.reset(cartID)
			return nil, err
		}
	}

	if len(items) == 0 {
		s.reset(cartID)
		s.metrics.IncOutcome("abort_empty")
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "nothing left to purchase")
	}

	return s.priceAndHandoff(ctx, cartID, items, validation)
}

// Cancel abandons the checkout without touching the cart.
func (s *service) Cancel(ctx context.Context, cartID uuid.UUID) error {
	s.mu.Lock()
	_, ok := s.flowLocked(cartID)
	if ok {
		delete(s.flows, cartID)
	}
	s.mu.Unlock()

	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "no checkout to cancel")
	}
	s.metrics.IncOutcome("cancelled")
	s.logg.Info(ctx, "checkout cancelled")
	return nil
}

// Confirm charges the handoff through the payment processor, publishes
// the checkout event, and converts the cart.
func (s *service) Confirm(ctx context.Context, profileID, cartID uuid.UUID, input PaymentInput) (*sq.Payment, error) {
	s.mu.Lock()
	f, ok := s.flowLocked(cartID)
	if !ok || f.state != StateHandoffReady || f.handoff == nil {
		s.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout is not ready for payment")
	}
	if f.profileID != profileID {
		s.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "checkout belongs to another profile")
	}
	handoff := f.handoff
	s.mu.Unlock()

	if input.SourceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment source is required")
	}

	payment, err := s.payments.CreatePayment(ctx, square.PaymentCreateParams{
		AmountCents:    handoff.AmountCents(),
		Currency:       handoff.Currency,
		LocationID:     s.payments.LocationID(),
		CustomerID:     input.CustomerID,
		SourceID:       input.SourceID,
		IdempotencyKey: s.payments.NewIdempotencyKey("checkout"),
		Note:           input.Note,
		ReferenceID:    handoff.CartID.String(),
	})
	if err != nil {
		s.metrics.IncOutcome("payment_failed")
		return nil, err
	}

	if err := s.carts.MarkConverted(ctx, profileID, cartID); err != nil {
		s.logg.Error(ctx, "payment captured but cart conversion failed", err)
	}

	if s.events != nil {
		if err := s.events.PublishCheckoutEvent(ctx, "checkout.completed", handoff); err != nil {
			s.logg.Error(ctx, "checkout event publish failed", err)
		}
	}

	s.mu.Lock()
	if f, ok := s.flows[cartID]; ok {
		f.state = StateCompleted
	}
	s.mu.Unlock()
	s.pricing.Teardown(cartID)
	s.metrics.IncOutcome("completed")
	return payment, nil
}

// StateOf reports the flow's current phase, Idle when none exists.
func (s *service) StateOf(cartID uuid.UUID) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.flowLocked(cartID); ok {
		return f.state
	}
	return StateIdle
}

// priceAndHandoff performs the mandatory fresh authoritative quote and
// builds the payment handoff from it.
func (s *service) priceAndHandoff(ctx context.Context, cartID uuid.UUID, items []cart.Item, validation *ValidationResult) (*BeginResult, error) {
	s.setFlow(cartID, func(f *flow) { f.state = StatePricing })

	totals, err := s.pricing.QuoteForPayment(ctx, cartID)
	if err != nil {
		s.reset(cartID)
		return nil, err
	}

	handoff, err := BuildHandoff(cartID, items, totals)
	if err != nil {
		s.reset(cartID)
		s.metrics.IncOutcome("abort_pricing")
		return nil, err
	}

	s.setFlow(cartID, func(f *flow) {
		f.state = StateHandoffReady
		f.validation = validation
		f.handoff = handoff
	})
	s.metrics.IncOutcome("handoff")
	s.logg.Info(ctx, "checkout handoff ready")
	return &BeginResult{State: StateHandoffReady, Validation: validation, Handoff: handoff}, nil
}

// transition moves the flow to next when the current state is one of
// allowed (a missing flow counts as Idle).
func (s *service) transition(cartID, profileID uuid.UUID, next State, allowed ...State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.flowLocked(cartID)
	current := StateIdle
	if ok {
		current = f.state
	}
	permitted := false
	for _, st := range allowed {
		if current == st {
			permitted = true
			break
		}
	}
	if !permitted {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("checkout cannot start from state %s", current))
	}
	if !ok {
		f = &flow{}
		s.flows[cartID] = f
	}
	f.state = next
	f.profileID = profileID
	f.validation = nil
	f.handoff = nil
	f.touched = time.Now()
	return nil
}

func (s *service) setFlow(cartID uuid.UUID, apply func(*flow)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.flows[cartID]
	if !ok {
		f = &flow{}
		s.flows[cartID] = f
	}
	apply(f)
	f.touched = time.Now()
}

// flowLocked looks up a live flow. Flows idle past the session TTL are
// evicted as if the user had cancelled. Callers must hold s.mu.
func (s *service) flowLocked(cartID uuid.UUID) (*flow, bool) {
	f, ok := s.flows[cartID]
	if !ok {
		return nil, false
	}
	if time.Since(f.touched) > s.sessionTTL {
		delete(s.flows, cartID)
		return nil, false
	}
	return f, true
}

func (s *service) reset(cartID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flows, cartID)
}

func validationLabel(r *ValidationResult) string {
	if len(r.ItemErrors) > 0 {
		return "errors"
	}
	if len(r.ItemWarnings) > 0 {
		return "warnings"
	}
	return "clean"
}
