package checkout

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"

	"github.com/storefront-labs/storefront-backend/internal/cart"
	"github.com/storefront-labs/storefront-backend/pkg/config"
	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
	"github.com/storefront-labs/storefront-backend/pkg/logger"
	"github.com/storefront-labs/storefront-backend/pkg/square"
)

type stubPricing struct {
	items       []cart.Item
	deselected  []uuid.UUID
	quoteCalls  int
	quoteErr    error
	tornDown    bool
}

func (s *stubPricing) SelectedItems(cartID uuid.UUID) ([]cart.Item, error) {
	return append([]cart.Item(nil), s.items...), nil
}

func (s *stubPricing) Deselect(ctx context.Context, cartID uuid.UUID, itemIDs ...uuid.UUID) (cart.Totals, error) {
	s.deselected = append(s.deselected, itemIDs...)
	remaining := s.items[:0:0]
	for _, item := range s.items {
		dropped := false
		for _, id := range itemIDs {
			if item.ID == id {
				dropped = true
				break
			}
		}
		if !dropped {
			remaining = append(remaining, item)
		}
	}
	s.items = remaining
	return cart.Totals{}, nil
}

func (s *stubPricing) QuoteForPayment(ctx context.Context, cartID uuid.UUID) (*cart.Totals, error) {
	s.quoteCalls++
	if s.quoteErr != nil {
		return nil, s.quoteErr
	}
	return authoritativeTotals(s.items), nil
}

func (s *stubPricing) Teardown(cartID uuid.UUID) { s.tornDown = true }

type stubCartStore struct {
	converted []uuid.UUID
	removed   []uuid.UUID
	removeErr error
}

func (s *stubCartStore) MarkConverted(ctx context.Context, profileID, cartID uuid.UUID) error {
	s.converted = append(s.converted, cartID)
	return nil
}

func (s *stubCartStore) RemoveItem(ctx context.Context, profileID, itemID uuid.UUID) (*models.CartRecord, error) {
	if s.removeErr != nil {
		return nil, s.removeErr
	}
	s.removed = append(s.removed, itemID)
	return &models.CartRecord{}, nil
}

type stubValidator struct {
	result      *ValidationResult
	err         error
	calls       int
	sawDeadline bool
}

func (s *stubValidator) Validate(ctx context.Context, cartID uuid.UUID, items []cart.Item) (*ValidationResult, error) {
	s.calls++
	_, s.sawDeadline = ctx.Deadline()
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubPayments struct {
	params  []square.PaymentCreateParams
	err     error
	payment *sq.Payment
}

func (s *stubPayments) CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error) {
	s.params = append(s.params, params)
	if s.err != nil {
		return nil, s.err
	}
	if s.payment != nil {
		return s.payment, nil
	}
	return &sq.Payment{}, nil
}

func (s *stubPayments) LocationID() string { return "LOC123" }

func (s *stubPayments) NewIdempotencyKey(prefix string) string { return prefix + "-key" }

type stubEvents struct {
	types    []string
	payloads []any
}

func (s *stubEvents) PublishCheckoutEvent(ctx context.Context, eventType string, payload any) error {
	s.types = append(s.types, eventType)
	s.payloads = append(s.payloads, payload)
	return nil
}

type checkoutFixture struct {
	svc       Service
	pricing   *stubPricing
	validator *stubValidator
	payments  *stubPayments
	events    *stubEvents
	carts     *stubCartStore
}

func newFixture(t *testing.T, items []cart.Item, validation *ValidationResult) *checkoutFixture {
	t.Helper()
	fx := &checkoutFixture{
		pricing:   &stubPricing{items: items},
		validator: &stubValidator{result: validation},
		payments:  &stubPayments{},
		events:    &stubEvents{},
		carts:     &stubCartStore{},
	}
	svc, err := NewService(fx.validator, fx.pricing, fx.carts, fx.payments, fx.events, config.CheckoutConfig{}, nil, logger.New(logger.Options{Output: io.Discard}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	fx.svc = svc
	return fx
}

func TestBeginCleanSelectionReachesHandoff(t *testing.T) {
	items := validatorItems()
	fx := newFixture(t, items, &ValidationResult{Valid: true})

	result, err := fx.svc.Begin(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if result.State != StateHandoffReady {
		t.Fatalf("state = %s, want handoff_ready", result.State)
	}
	if result.Handoff == nil || len(result.Handoff.Items) != 2 {
		t.Fatalf("expected a two line handoff, got %+v", result.Handoff)
	}
	if fx.pricing.quoteCalls != 1 {
		t.Fatalf("clean checkout must price exactly once, got %d", fx.pricing.quoteCalls)
	}
}

func TestBeginWarningsAlonePauseForReview(t *testing.T) {
	items := validatorItems()
	validation := &ValidationResult{
		Valid:        true,
		ItemWarnings: map[uuid.UUID][]ItemIssue{items[0].ID: {{Code: "price_changed"}}},
	}
	fx := newFixture(t, items, validation)

	cartID := uuid.New()
	result, err := fx.svc.Begin(context.Background(), uuid.New(), cartID)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if result.State != StateNeedsRemediation {
		t.Fatalf("warnings alone must pause checkout, got state %s", result.State)
	}
	if fx.pricing.quoteCalls != 0 {
		t.Fatalf("paused checkout must not price for payment")
	}
	if fx.svc.StateOf(cartID) != StateNeedsRemediation {
		t.Fatalf("flow state not recorded")
	}
}

func TestBeginBoundsValidationTime(t *testing.T) {
	fx := newFixture(t, validatorItems(), &ValidationResult{Valid: true})

	if _, err := fx.svc.Begin(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if !fx.validator.sawDeadline {
		t.Fatalf("validator must run under a deadline")
	}
}

func TestStaleFlowExpiresAfterSessionTTL(t *testing.T) {
	items := validatorItems()
	validation := &ValidationResult{
		Valid:      false,
		ItemErrors: map[uuid.UUID][]ItemIssue{items[0].ID: {{Code: "out_of_stock"}}},
	}
	fx := newFixture(t, items, validation)

	profileID, cartID := uuid.New(), uuid.New()
	if _, err := fx.svc.Begin(context.Background(), profileID, cartID); err != nil {
		t.Fatalf("begin: %v", err)
	}

	inner := fx.svc.(*service)
	inner.mu.Lock()
	inner.flows[cartID].touched = time.Now().Add(-time.Hour)
	inner.mu.Unlock()

	if got := fx.svc.StateOf(cartID); got != StateIdle {
		t.Fatalf("stale flow should read as idle, got %s", got)
	}
	if _, err := fx.svc.Review(cartID); !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("stale flow must not be reviewable, got %v", err)
	}
}

func TestBeginRejectsEmptySelection(t *testing.T) {
	fx := newFixture(t, nil, &ValidationResult{Valid: true})

	_, err := fx.svc.Begin(context.Background(), uuid.New(), uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict for empty selection, got %v", err)
	}
	if fx.validator.calls != 0 {
		t.Fatalf("validator must not run for an empty selection")
	}
}

func TestContinueDropsErroredKeepsWarned(t *testing.T) {
	items := validatorItems()
	validation := &ValidationResult{
		Valid:        false,
		ItemErrors:   map[uuid.UUID][]ItemIssue{items[0].ID: {{Code: "out_of_stock"}}},
		ItemWarnings: map[uuid.UUID][]ItemIssue{items[1].ID: {{Code: "price_changed"}}},
	}
	fx := newFixture(t, items, validation)

	profileID, cartID := uuid.New(), uuid.New()
	if _, err := fx.svc.Begin(context.Background(), profileID, cartID); err != nil {
		t.Fatalf("begin: %v", err)
	}

	result, err := fx.svc.Continue(context.Background(), profileID, cartID)
	if err != nil {
		t.Fatalf("continue: %v", err)
	}
	if result.State != StateHandoffReady {
		t.Fatalf("state = %s, want handoff_ready", result.State)
	}
	if len(fx.pricing.deselected) != 1 || fx.pricing.deselected[0] != items[0].ID {
		t.Fatalf("only the errored item should be deselected, got %v", fx.pricing.deselected)
	}
	if len(fx.carts.removed) != 1 || fx.carts.removed[0] != items[0].ID {
		t.Fatalf("errored item should be removed from the cart, got %v", fx.carts.removed)
	}
	if len(result.Handoff.Items) != 1 || result.Handoff.Items[0].ItemID != items[1].ID {
		t.Fatalf("warned item must survive remediation, got %+v", result.Handoff.Items)
	}
	if fx.pricing.quoteCalls != 1 {
		t.Fatalf("remediation must trigger a fresh quote, got %d", fx.pricing.quoteCalls)
	}
}

func TestContinueAbortsWhenRemovalFails(t *testing.T) {
	items := validatorItems()
	validation := &ValidationResult{
		Valid:      false,
		ItemErrors: map[uuid.UUID][]ItemIssue{items[0].ID: {{Code: "out_of_stock"}}},
	}
	fx := newFixture(t, items, validation)
	fx.carts.removeErr = pkgerrors.New(pkgerrors.CodeInternal, "boom")

	profileID, cartID := uuid.New(), uuid.New()
	if _, err := fx.svc.Begin(context.Background(), profileID, cartID); err != nil {
		t.Fatalf("begin: %v", err)
	}

	if _, err := fx.svc.Continue(context.Background(), profileID, cartID); err == nil {
		t.Fatalf("expected error when removal fails")
	}
	if fx.pricing.quoteCalls != 0 {
		t.Fatalf("pricer must not run after a failed removal")
	}
	if fx.svc.StateOf(cartID) != StateIdle {
		t.Fatalf("failed flow should be cleared")
	}
}

func TestContinueAbortsWhenNothingSurvives(t *testing.T) {
	items := validatorItems()
	validation := &ValidationResult{
		Valid: false,
		ItemErrors: map[uuid.UUID][]ItemIssue{
			items[0].ID: {{Code: "out_of_stock"}},
			items[1].ID: {{Code: "inactive"}},
		},
	}
	fx := newFixture(t, items, validation)

	profileID, cartID := uuid.New(), uuid.New()
	if _, err := fx.svc.Begin(context.Background(), profileID, cartID); err != nil {
		t.Fatalf("begin: %v", err)
	}

	_, err := fx.svc.Continue(context.Background(), profileID, cartID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected nothing-left abort, got %v", err)
	}
	if fx.pricing.quoteCalls != 0 {
		t.Fatalf("pricer must never run for an empty survivor set")
	}
	if fx.svc.StateOf(cartID) != StateIdle {
		t.Fatalf("aborted flow should be cleared")
	}
}

func TestContinueRequiresPendingRemediation(t *testing.T) {
	fx := newFixture(t, validatorItems(), &ValidationResult{Valid: true})

	_, err := fx.svc.Continue(context.Background(), uuid.New(), uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestConfirmChargesHandoffAndConvertsCart(t *testing.T) {
	items := validatorItems()
	fx := newFixture(t, items, &ValidationResult{Valid: true})

	profileID, cartID := uuid.New(), uuid.New()
	if _, err := fx.svc.Begin(context.Background(), profileID, cartID); err != nil {
		t.Fatalf("begin: %v", err)
	}

	_, err := fx.svc.Confirm(context.Background(), profileID, cartID, PaymentInput{SourceID: "cnon:card-nonce"})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if len(fx.payments.params) != 1 {
		t.Fatalf("expected one payment, got %d", len(fx.payments.params))
	}
	params := fx.payments.params[0]
	if params.AmountCents != 37000 || params.Currency != "USD" {
		t.Fatalf("payment params = %+v", params)
	}
	if params.LocationID != "LOC123" || params.IdempotencyKey == "" {
		t.Fatalf("payment missing location or idempotency key: %+v", params)
	}
	if len(fx.carts.converted) != 1 || fx.carts.converted[0] != cartID {
		t.Fatalf("cart not converted")
	}
	if len(fx.events.types) != 1 || fx.events.types[0] != "checkout.completed" {
		t.Fatalf("checkout event not published, got %v", fx.events.types)
	}
	if !fx.pricing.tornDown {
		t.Fatalf("pricing session should be torn down after payment")
	}
	if fx.svc.StateOf(cartID) != StateCompleted {
		t.Fatalf("flow should be completed")
	}
}

func TestConfirmRejectsUnreadyFlow(t *testing.T) {
	fx := newFixture(t, validatorItems(), &ValidationResult{Valid: true})

	_, err := fx.svc.Confirm(context.Background(), uuid.New(), uuid.New(), PaymentInput{SourceID: "cnon:card-nonce"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestConfirmRejectsWrongProfile(t *testing.T) {
	fx := newFixture(t, validatorItems(), &ValidationResult{Valid: true})

	profileID, cartID := uuid.New(), uuid.New()
	if _, err := fx.svc.Begin(context.Background(), profileID, cartID); err != nil {
		t.Fatalf("begin: %v", err)
	}

	_, err := fx.svc.Confirm(context.Background(), uuid.New(), cartID, PaymentInput{SourceID: "cnon:card-nonce"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCancelClearsFlow(t *testing.T) {
	items := validatorItems()
	validation := &ValidationResult{
		Valid:      false,
		ItemErrors: map[uuid.UUID][]ItemIssue{items[0].ID: {{Code: "out_of_stock"}}},
	}
	fx := newFixture(t, items, validation)

	profileID, cartID := uuid.New(), uuid.New()
	if _, err := fx.svc.Begin(context.Background(), profileID, cartID); err != nil {
		t.Fatalf("begin: %v", err)
	}

	if err := fx.svc.Cancel(context.Background(), cartID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if fx.svc.StateOf(cartID) != StateIdle {
		t.Fatalf("cancelled flow should reset to idle")
	}
	if err := fx.svc.Cancel(context.Background(), cartID); !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("second cancel should conflict, got %v", err)
	}
}
