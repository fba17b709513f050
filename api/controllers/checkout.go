package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/storefront-labs/storefront-backend/api/responses"
	"github.com/storefront-labs/storefront-backend/api/validators"
	cartsvc "github.com/storefront-labs/storefront-backend/internal/cart"
	checkoutsvc "github.com/storefront-labs/storefront-backend/internal/checkout"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
	"github.com/storefront-labs/storefront-backend/pkg/logger"
)

type confirmCheckoutRequest struct {
	SourceID   string `json:"source_id" validate:"required"`
	CustomerID string `json:"customer_id"`
	Note       string `json:"note" validate:"omitempty,max=500"`
}

// activeCartID resolves the caller's active cart so checkout routes never
// trust a client-supplied cart id.
func activeCartID(r *http.Request, carts cartsvc.Service) (uuid.UUID, uuid.UUID, error) {
	profileID, err := profileIDFromContext(r)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	record, err := carts.GetOrCreateActiveCart(r.Context(), profileID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return profileID, record.ID, nil
}

// CheckoutBegin validates the selection and, when clean, prices it for
// payment in a single pass.
func CheckoutBegin(svc checkoutsvc.Service, carts cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || carts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		profileID, cartID, err := activeCartID(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Begin(r.Context(), profileID, cartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// CheckoutReview returns the pending validation findings for the cart.
func CheckoutReview(svc checkoutsvc.Service, carts cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || carts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		_, cartID, err := activeCartID(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		validation, err := svc.Review(cartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, validation)
	}
}

// CheckoutContinue accepts the remediation: errored lines drop out of the
// selection and the survivors are re-priced.
func CheckoutContinue(svc checkoutsvc.Service, carts cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || carts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		profileID, cartID, err := activeCartID(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Continue(r.Context(), profileID, cartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// CheckoutCancel abandons the in-flight checkout.
func CheckoutCancel(svc checkoutsvc.Service, carts cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || carts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		_, cartID, err := activeCartID(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Cancel(r.Context(), cartID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}

// CheckoutConfirm charges the prepared handoff and converts the cart.
func CheckoutConfirm(svc checkoutsvc.Service, carts cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || carts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		profileID, cartID, err := activeCartID(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body confirmCheckoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.Confirm(r.Context(), profileID, cartID, checkoutsvc.PaymentInput{
			SourceID:   body.SourceID,
			CustomerID: body.CustomerID,
			Note:       validators.SanitizeString(body.Note, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, payment)
	}
}

// CheckoutState reports where the cart sits in the checkout flow.
func CheckoutState(svc checkoutsvc.Service, carts cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || carts == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		_, cartID, err := activeCartID(r, carts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]checkoutsvc.State{"state": svc.StateOf(cartID)})
	}
}
