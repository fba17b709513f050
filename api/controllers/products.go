package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront-labs/storefront-backend/api/responses"
	"github.com/storefront-labs/storefront-backend/api/validators"
	productsvc "github.com/storefront-labs/storefront-backend/internal/products"
	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
	"github.com/storefront-labs/storefront-backend/pkg/logger"
)

type productResponse struct {
	ID             uuid.UUID        `json:"id"`
	SellerID       uuid.UUID        `json:"seller_id"`
	Title          string           `json:"title"`
	Description    *string          `json:"description,omitempty"`
	Currency       string           `json:"currency"`
	Price          decimal.Decimal  `json:"price"`
	AvailableStock int              `json:"available_stock"`
	IsActive       bool             `json:"is_active"`
	BulkMinQty     *int             `json:"bulk_min_qty,omitempty"`
	BulkPercentOff *decimal.Decimal `json:"bulk_percent_off,omitempty"`
}

type reviewResponse struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	ProfileID uuid.UUID `json:"profile_id"`
	Rating    int       `json:"rating"`
	Body      string    `json:"body"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"created_at"`
}

type addReviewRequest struct {
	Rating   int    `json:"rating" validate:"required,min=1,max=5"`
	Body     string `json:"body" validate:"required,min=1,max=4000"`
	Language string `json:"language" validate:"omitempty,min=2,max=8"`
}

type translateReviewRequest struct {
	TargetLanguage string `json:"target_language" validate:"required,min=2,max=8"`
}

func newProductResponse(p *models.Product) productResponse {
	return productResponse{
		ID:             p.ID,
		SellerID:       p.SellerID,
		Title:          p.Title,
		Description:    p.Description,
		Currency:       p.Currency,
		Price:          p.Price,
		AvailableStock: p.AvailableStock,
		IsActive:       p.IsActive,
		BulkMinQty:     p.BulkMinQty,
		BulkPercentOff: p.BulkPercentOff,
	}
}

func newReviewResponse(r *models.Review) reviewResponse {
	return reviewResponse{
		ID:        r.ID,
		ProductID: r.ProductID,
		ProfileID: r.ProfileID,
		Rating:    r.Rating,
		Body:      r.Body,
		Language:  r.Language,
		CreatedAt: r.CreatedAt,
	}
}

// ProductGet returns one catalog listing.
func ProductGet(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newProductResponse(product))
	}
}

// SellerProductsList returns a seller's active listings.
func SellerProductsList(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		sellerID, err := validators.ParseUUIDParam(r, "sellerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		records, err := svc.ListSellerProducts(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]productResponse, 0, len(records))
		for _, record := range records {
			out = append(out, newProductResponse(&record))
		}
		responses.WriteSuccess(w, out)
	}
}

// ProductReviewsList returns recent reviews for a listing.
func ProductReviewsList(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		records, err := svc.ListReviews(r.Context(), productID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]reviewResponse, 0, len(records))
		for _, record := range records {
			out = append(out, newReviewResponse(&record))
		}
		responses.WriteSuccess(w, out)
	}
}

// ProductReviewAdd records the caller's review on a listing.
func ProductReviewAdd(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		profileID, err := profileIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body addReviewRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		review, err := svc.AddReview(r.Context(), profileID, productID, productsvc.ReviewInput{
			Rating:   body.Rating,
			Body:     validators.SanitizeString(body.Body, 4000),
			Language: body.Language,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newReviewResponse(review))
	}
}

// ProductReviewTranslate returns a review translated into the target language.
func ProductReviewTranslate(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		reviewID, err := validators.ParseUUIDParam(r, "reviewId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body translateReviewRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		translated, err := svc.TranslateReview(r.Context(), reviewID, body.TargetLanguage)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, translated)
	}
}
