package pricing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/storefront-labs/storefront-backend/internal/cart"
	"github.com/storefront-labs/storefront-backend/pkg/config"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
	"github.com/storefront-labs/storefront-backend/pkg/logger"
	"github.com/storefront-labs/storefront-backend/pkg/metrics"
)

// Service coordinates per-cart pricing sessions: optimistic totals are
// published immediately on every selection change, and an authoritative
// quote is scheduled behind the quiescence window. Late quotes for
// superseded selections are dropped by epoch.
type Service interface {
	Sync(ctx context.Context, cartID uuid.UUID, items []cart.Item) cart.Totals
	Toggle(ctx context.Context, cartID, itemID uuid.UUID) (cart.Totals, error)
	Deselect(ctx context.Context, cartID uuid.UUID, itemIDs ...uuid.UUID) (cart.Totals, error)
	Totals(cartID uuid.UUID) (cart.Totals, error)
	SelectedItems(cartID uuid.UUID) ([]cart.Item, error)
	QuoteForPayment(ctx context.Context, cartID uuid.UUID) (*cart.Totals, error)
	Teardown(cartID uuid.UUID)
	Close()
}

type sessionEntry struct {
	session *cart.Session
	sched   *Scheduler
}

type service struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*sessionEntry

	quoter   Quoter
	window   time.Duration
	timeout  time.Duration
	fallback string
	metrics  *metrics.PricingMetrics
	logg     *logger.Logger
}

// NewService builds the pricing orchestrator. The quoter should already
// carry the retry policy.
func NewService(quoter Quoter, cfg config.PricingConfig, m *metrics.PricingMetrics, logg *logger.Logger) (Service, error) {
	if quoter == nil {
		return nil, fmt.Errorf("quoter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	window := cfg.QuiescenceWindow
	if window <= 0 {
		window = 500 * time.Millisecond
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &service{
		sessions: make(map[uuid.UUID]*sessionEntry),
		quoter:   quoter,
		window:   window,
		timeout:  timeout,
		fallback: cfg.FallbackCurrency,
		metrics:  m,
		logg:     logg,
	}, nil
}

func (s *service) entry(cartID uuid.UUID) *sessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.sessions[cartID]; ok {
		return e
	}
	e := &sessionEntry{
		session: cart.NewSession(cartID, s.fallback),
		sched:   NewScheduler(s.window),
	}
	s.sessions[cartID] = e
	return e
}

func (s *service) lookup(cartID uuid.UUID) (*sessionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[cartID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no pricing session for cart")
	}
	return e, nil
}

// Sync loads the current item list into the cart's session and kicks off
// the optimistic-then-authoritative cycle.
func (s *service) Sync(ctx context.Context, cartID uuid.UUID, items []cart.Item) cart.Totals {
	e := s.entry(cartID)
	totals, epoch := e.session.SetItems(items)
	s.afterChange(ctx, e, epoch)
	return totals
}

// Toggle flips one item's selection and republishes totals.
func (s *service) Toggle(ctx context.Context, cartID, itemID uuid.UUID) (cart.Totals, error) {
	e, err := s.lookup(cartID)
	if err != nil {
		return cart.Totals{}, err
	}
	totals, epoch := e.session.Toggle(itemID)
	s.afterChange(ctx, e, epoch)
	return totals, nil
}

// Deselect drops the given items from the selection (checkout remediation).
func (s *service) Deselect(ctx context.Context, cartID uuid.UUID, itemIDs ...uuid.UUID) (cart.Totals, error) {
	e, err := s.lookup(cartID)
	if err != nil {
		return cart.Totals{}, err
	}
	totals, epoch := e.session.Deselect(itemIDs...)
	s.afterChange(ctx, e, epoch)
	return totals, nil
}

// afterChange schedules the authoritative refresh for the new selection
// epoch. An empty selection schedules nothing and cancels pending work.
func (s *service) afterChange(ctx context.Context, e *sessionEntry, epoch uint64) {
	if !e.session.HasSelection() {
		e.sched.Cancel()
		return
	}

	itemIDs := e.session.SelectedIDs()
	if superseded := e.sched.Schedule(func() {
		s.refresh(e, epoch, itemIDs)
	}); superseded {
		s.metrics.IncDebounced()
	}
}

// refresh performs the deferred authoritative quote. Failures leave the
// last-known totals in place; stale responses are discarded.
func (s *service) refresh(e *sessionEntry, epoch uint64, itemIDs []uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	ctx = s.logg.WithCartEpoch(ctx, epoch)

	started := time.Now()
	totals, err := s.quoter.Quote(ctx, itemIDs)
	if err != nil {
		s.metrics.ObserveQuote("error", time.Since(started))
		s.logg.Error(ctx, "authoritative quote failed, keeping last-known totals", err)
		return
	}
	s.metrics.ObserveQuote("ok", time.Since(started))

	if !e.session.ApplyAuthoritative(epoch, *totals) {
		s.metrics.IncStaleDropped()
		s.logg.Info(ctx, "dropped stale quote for superseded selection")
	}
}

// Totals returns the last published totals for the cart.
func (s *service) Totals(cartID uuid.UUID) (cart.Totals, error) {
	e, err := s.lookup(cartID)
	if err != nil {
		return cart.Totals{}, err
	}
	return e.session.LastKnown(), nil
}

// SelectedItems returns the currently selected items for the cart.
func (s *service) SelectedItems(cartID uuid.UUID) ([]cart.Item, error) {
	e, err := s.lookup(cartID)
	if err != nil {
		return nil, err
	}
	return e.session.SelectedItems(), nil
}

// QuoteForPayment performs a direct, non-debounced authoritative quote
// for the current selection. Checkout uses this after remediation so the
// payment amount never reuses pre-remediation totals.
func (s *service) QuoteForPayment(ctx context.Context, cartID uuid.UUID) (*cart.Totals, error) {
	e, err := s.lookup(cartID)
	if err != nil {
		return nil, err
	}
	if !e.session.HasSelection() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "nothing selected to price for payment")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	epoch := e.session.Epoch()
	started := time.Now()
	totals, err := s.quoter.Quote(ctx, e.session.SelectedIDs())
	if err != nil {
		s.metrics.ObserveQuote("error", time.Since(started))
		return nil, err
	}
	s.metrics.ObserveQuote("ok", time.Since(started))

	if !e.session.ApplyAuthoritative(epoch, *totals) {
		s.metrics.IncStaleDropped()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "selection changed while pricing for payment")
	}
	return totals, nil
}

// Teardown drops the cart's session and cancels pending work.
func (s *service) Teardown(cartID uuid.UUID) {
	s.mu.Lock()
	e, ok := s.sessions[cartID]
	if ok {
		delete(s.sessions, cartID)
	}
	s.mu.Unlock()

	if ok {
		e.sched.Close()
	}
}

// Close cancels every pending refresh.
func (s *service) Close() {
	s.mu.Lock()
	entries := make([]*sessionEntry, 0, len(s.sessions))
	for _, e := range s.sessions {
		entries = append(entries, e)
	}
	s.sessions = make(map[uuid.UUID]*sessionEntry)
	s.mu.Unlock()

	for _, e := range entries {
		e.sched.Close()
	}
}
