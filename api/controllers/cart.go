package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront-labs/storefront-backend/api/responses"
	"github.com/storefront-labs/storefront-backend/api/validators"
	cartsvc "github.com/storefront-labs/storefront-backend/internal/cart"
	pricingsvc "github.com/storefront-labs/storefront-backend/internal/pricing"
	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
	"github.com/storefront-labs/storefront-backend/pkg/logger"
)

type cartItemResponse struct {
	ID             uuid.UUID        `json:"id"`
	ProductID      uuid.UUID        `json:"product_id"`
	SellerID       uuid.UUID        `json:"seller_id"`
	Title          string           `json:"title"`
	Quantity       int              `json:"quantity"`
	Selected       bool             `json:"selected"`
	Currency       string           `json:"currency"`
	UnitPrice      decimal.Decimal  `json:"unit_price"`
	StockSnapshot  int              `json:"stock_snapshot"`
	BulkMinQty     *int             `json:"bulk_min_qty,omitempty"`
	BulkPercentOff *decimal.Decimal `json:"bulk_percent_off,omitempty"`
	VariantAttrs   *string          `json:"variant_attrs,omitempty"`
}

type cartResponse struct {
	ID       uuid.UUID          `json:"id"`
	Currency string             `json:"currency"`
	Status   string             `json:"status"`
	Items    []cartItemResponse `json:"items"`
	Totals   cartsvc.Totals     `json:"totals"`
}

type addCartItemRequest struct {
	ProductID    uuid.UUID `json:"product_id" validate:"required"`
	Quantity     int       `json:"quantity" validate:"required,min=1"`
	VariantAttrs *string   `json:"variant_attrs,omitempty" validate:"omitempty,max=2000"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

func newCartResponse(record *models.CartRecord, totals cartsvc.Totals) cartResponse {
	resp := cartResponse{
		ID:       record.ID,
		Currency: record.Currency,
		Status:   string(record.Status),
		Items:    make([]cartItemResponse, 0, len(record.Items)),
		Totals:   totals,
	}
	for _, item := range record.Items {
		resp.Items = append(resp.Items, cartItemResponse{
			ID:             item.ID,
			ProductID:      item.ProductID,
			SellerID:       item.SellerID,
			Title:          item.Title,
			Quantity:       item.Quantity,
			Selected:       item.Selected,
			Currency:       item.Currency,
			UnitPrice:      item.UnitPrice,
			StockSnapshot:  item.StockSnapshot,
			BulkMinQty:     item.BulkMinQty,
			BulkPercentOff: item.BulkPercentOff,
			VariantAttrs:   item.VariantAttrs,
		})
	}
	return resp
}

// syncPricing feeds the persisted cart into the pricing session and seeds
// the selection state from the stored flags. Returns optimistic totals;
// the authoritative refresh lands asynchronously after the debounce window.
func syncPricing(r *http.Request, pricing pricingsvc.Service, record *models.CartRecord) cartsvc.Totals {
	totals := pricing.Sync(r.Context(), record.ID, cartsvc.ItemsFromModels(record.Items))

	var deselected []uuid.UUID
	for _, item := range record.Items {
		if !item.Selected {
			deselected = append(deselected, item.ID)
		}
	}
	if len(deselected) > 0 {
		if synced, err := pricing.Deselect(r.Context(), record.ID, deselected...); err == nil {
			totals = synced
		}
	}
	return totals
}

// CartGet returns the caller's active cart with optimistic totals.
func CartGet(svc cartsvc.Service, pricing pricingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || pricing == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		profileID, err := profileIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.GetOrCreateActiveCart(r.Context(), profileID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartResponse(record, syncPricing(r, pricing, record)))
	}
}

// CartAddItem snapshots a product into the cart and reprices.
func CartAddItem(svc cartsvc.Service, pricing pricingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || pricing == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		profileID, err := profileIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body addCartItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.AddItem(r.Context(), profileID, cartsvc.AddItemInput{
			ProductID:    body.ProductID,
			Quantity:     body.Quantity,
			VariantAttrs: body.VariantAttrs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartResponse(record, syncPricing(r, pricing, record)))
	}
}

// CartUpdateQuantity changes one line's quantity and reprices.
func CartUpdateQuantity(svc cartsvc.Service, pricing pricingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || pricing == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		profileID, err := profileIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.UpdateQuantity(r.Context(), profileID, itemID, body.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartResponse(record, syncPricing(r, pricing, record)))
	}
}

// CartRemoveItem drops a line from the cart and reprices.
func CartRemoveItem(svc cartsvc.Service, pricing pricingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || pricing == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		profileID, err := profileIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.RemoveItem(r.Context(), profileID, itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartResponse(record, syncPricing(r, pricing, record)))
	}
}

// CartToggleSelection flips a line in or out of the priced selection.
func CartToggleSelection(svc cartsvc.Service, pricing pricingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || pricing == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		profileID, err := profileIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.GetOrCreateActiveCart(r.Context(), profileID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var current *models.CartItem
		for i := range record.Items {
			if record.Items[i].ID == itemID {
				current = &record.Items[i]
				break
			}
		}
		if current == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found"))
			return
		}

		record, err = svc.SetItemSelected(r.Context(), profileID, itemID, !current.Selected)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// Flip the live session too. Without one yet, seeding from the
		// persisted flags already reflects the toggle.
		totals, err := pricing.Toggle(r.Context(), record.ID, itemID)
		if err != nil {
			if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			totals = syncPricing(r, pricing, record)
		}

		responses.WriteSuccess(w, newCartResponse(record, totals))
	}
}

// CartTotals returns the latest totals for the pricing session, which may
// already be authoritative if the debounce window has passed.
func CartTotals(svc cartsvc.Service, pricing pricingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || pricing == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		profileID, err := profileIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.GetOrCreateActiveCart(r.Context(), profileID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		totals, err := pricing.Totals(record.ID)
		if err != nil {
			if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			// No live session yet; seed one from the persisted cart.
			totals = syncPricing(r, pricing, record)
		}

		responses.WriteSuccess(w, totals)
	}
}
