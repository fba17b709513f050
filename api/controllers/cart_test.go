package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront-labs/storefront-backend/api/middleware"
	cartsvc "github.com/storefront-labs/storefront-backend/internal/cart"
	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	"github.com/storefront-labs/storefront-backend/pkg/enums"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
)

type stubPricingService struct {
	totals     cartsvc.Totals
	toggled    []uuid.UUID
	deselected []uuid.UUID
	syncCalls  int
	hasSession bool
}

func (s *stubPricingService) Sync(ctx context.Context, cartID uuid.UUID, items []cartsvc.Item) cartsvc.Totals {
	s.syncCalls++
	s.hasSession = true
	return s.totals
}

func (s *stubPricingService) Toggle(ctx context.Context, cartID, itemID uuid.UUID) (cartsvc.Totals, error) {
	if !s.hasSession {
		return cartsvc.Totals{}, pkgerrors.New(pkgerrors.CodeNotFound, "no pricing session for cart")
	}
	s.toggled = append(s.toggled, itemID)
	return s.totals, nil
}

func (s *stubPricingService) Deselect(ctx context.Context, cartID uuid.UUID, itemIDs ...uuid.UUID) (cartsvc.Totals, error) {
	s.deselected = append(s.deselected, itemIDs...)
	return s.totals, nil
}

func (s *stubPricingService) Totals(cartID uuid.UUID) (cartsvc.Totals, error) {
	if !s.hasSession {
		return cartsvc.Totals{}, pkgerrors.New(pkgerrors.CodeNotFound, "no pricing session for cart")
	}
	return s.totals, nil
}

func (s *stubPricingService) SelectedItems(cartID uuid.UUID) ([]cartsvc.Item, error) {
	return nil, nil
}

func (s *stubPricingService) QuoteForPayment(ctx context.Context, cartID uuid.UUID) (*cartsvc.Totals, error) {
	return &s.totals, nil
}

func (s *stubPricingService) Teardown(cartID uuid.UUID) {}

func (s *stubPricingService) Close() {}

func cartWithItems(profileID uuid.UUID) *models.CartRecord {
	cartID := uuid.New()
	return &models.CartRecord{
		ID:        cartID,
		ProfileID: profileID,
		Status:    enums.CartStatusActive,
		Currency:  "USD",
		Items: []models.CartItem{
			{
				ID:        uuid.New(),
				CartID:    cartID,
				ProductID: uuid.New(),
				Title:     "Enamel mug",
				Quantity:  2,
				Selected:  true,
				Currency:  "USD",
				UnitPrice: decimal.RequireFromString("15.00"),
			},
			{
				ID:        uuid.New(),
				CartID:    cartID,
				ProductID: uuid.New(),
				Title:     "Desk lamp",
				Quantity:  1,
				Selected:  false,
				Currency:  "USD",
				UnitPrice: decimal.RequireFromString("340.00"),
			},
		},
	}
}

func TestCartGet(t *testing.T) {
	logg := testLogger()
	profileID := uuid.New()
	record := cartWithItems(profileID)
	carts := &stubActiveCartService{record: record}

	t.Run("missing profile", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
		rec := httptest.NewRecorder()
		CartGet(carts, &stubPricingService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 got %d", rec.Code)
		}
	})

	t.Run("returns cart and seeds pricing", func(t *testing.T) {
		pricing := &stubPricingService{totals: cartsvc.Totals{Currency: "USD", Total: decimal.RequireFromString("30.00")}}
		ctx := middleware.WithProfileID(context.Background(), profileID.String())
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		CartGet(carts, pricing, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
		}
		if pricing.syncCalls != 1 {
			t.Fatalf("expected one sync, got %d", pricing.syncCalls)
		}
		if len(pricing.deselected) != 1 || pricing.deselected[0] != record.Items[1].ID {
			t.Fatalf("expected the stored-unselected line seeded as deselected, got %v", pricing.deselected)
		}

		var payload struct {
			Data cartResponse `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(payload.Data.Items) != 2 {
			t.Fatalf("expected 2 items got %d", len(payload.Data.Items))
		}
		if !payload.Data.Totals.Total.Equal(decimal.RequireFromString("30.00")) {
			t.Fatalf("expected totals forwarded, got %s", payload.Data.Totals.Total)
		}
	})
}

func TestCartAddItem(t *testing.T) {
	logg := testLogger()
	profileID := uuid.New()
	carts := &stubActiveCartService{record: cartWithItems(profileID)}
	pricing := &stubPricingService{}

	t.Run("rejects zero quantity", func(t *testing.T) {
		ctx := middleware.WithProfileID(context.Background(), profileID.String())
		body := strings.NewReader(`{"product_id":"` + uuid.NewString() + `","quantity":0}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", body).WithContext(ctx)
		rec := httptest.NewRecorder()
		CartAddItem(carts, pricing, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 got %d", rec.Code)
		}
	})

	t.Run("adds and reprices", func(t *testing.T) {
		ctx := middleware.WithProfileID(context.Background(), profileID.String())
		body := strings.NewReader(`{"product_id":"` + uuid.NewString() + `","quantity":2}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", body).WithContext(ctx)
		rec := httptest.NewRecorder()
		CartAddItem(carts, pricing, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
		}
		if pricing.syncCalls == 0 {
			t.Fatal("expected pricing sync after mutation")
		}
	})
}

func TestCartToggleSelection(t *testing.T) {
	logg := testLogger()
	profileID := uuid.New()
	record := cartWithItems(profileID)
	carts := &stubActiveCartService{record: record}
	itemID := record.Items[0].ID

	makeRequest := func(pricing *stubPricingService) *httptest.ResponseRecorder {
		ctx := middleware.WithProfileID(context.Background(), profileID.String())
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("itemId", itemID.String())
		ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items/"+itemID.String()+"/toggle", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		CartToggleSelection(carts, pricing, logg).ServeHTTP(rec, req)
		return rec
	}

	t.Run("toggles live session", func(t *testing.T) {
		pricing := &stubPricingService{hasSession: true}
		rec := makeRequest(pricing)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
		}
		if len(pricing.toggled) != 1 || pricing.toggled[0] != itemID {
			t.Fatalf("expected toggle for %s, got %v", itemID, pricing.toggled)
		}
	})

	t.Run("seeds session when missing", func(t *testing.T) {
		pricing := &stubPricingService{}
		rec := makeRequest(pricing)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
		}
		if pricing.syncCalls != 1 {
			t.Fatalf("expected seed sync, got %d", pricing.syncCalls)
		}
	})

	t.Run("unknown item 404s", func(t *testing.T) {
		pricing := &stubPricingService{hasSession: true}
		ctx := middleware.WithProfileID(context.Background(), profileID.String())
		routeCtx := chi.NewRouteContext()
		routeCtx.URLParams.Add("itemId", uuid.NewString())
		ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items/unknown/toggle", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		CartToggleSelection(carts, pricing, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 got %d", rec.Code)
		}
	})
}

func TestCartTotalsSeedsMissingSession(t *testing.T) {
	logg := testLogger()
	profileID := uuid.New()
	carts := &stubActiveCartService{record: cartWithItems(profileID)}
	pricing := &stubPricingService{totals: cartsvc.Totals{Currency: "USD"}}

	ctx := middleware.WithProfileID(context.Background(), profileID.String())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/totals", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	CartTotals(carts, pricing, logg).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if pricing.syncCalls != 1 {
		t.Fatalf("expected totals to seed a session, got %d syncs", pricing.syncCalls)
	}
}
