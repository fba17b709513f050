package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/storefront-labs/storefront-backend/api/responses"
	"github.com/storefront-labs/storefront-backend/api/validators"
	profilesvc "github.com/storefront-labs/storefront-backend/internal/profiles"
	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
	"github.com/storefront-labs/storefront-backend/pkg/logger"
	"github.com/storefront-labs/storefront-backend/pkg/types"
)

type profileResponse struct {
	ID                uuid.UUID               `json:"id"`
	Email             string                  `json:"email"`
	DisplayName       string                  `json:"display_name"`
	Phone             *string                 `json:"phone,omitempty"`
	PhotoURL          *string                 `json:"photo_url,omitempty"`
	TwoFactorEnabled  bool                    `json:"two_factor_enabled"`
	FavoriteSellerIDs []uuid.UUID             `json:"favorite_seller_ids"`
	SellerInfo        *sellerInfoResponse     `json:"seller_info,omitempty"`
	Addresses         []addressResponse       `json:"addresses"`
	PaymentMethods    []paymentMethodResponse `json:"payment_methods"`
	CreatedAt         time.Time               `json:"created_at"`
}

type sellerInfoResponse struct {
	ID          uuid.UUID     `json:"id"`
	StoreName   string        `json:"store_name"`
	Description *string       `json:"description,omitempty"`
	Phone       *string       `json:"phone,omitempty"`
	Address     types.Address `json:"address"`
	IsActive    bool          `json:"is_active"`
}

type addressResponse struct {
	ID        uuid.UUID     `json:"id"`
	Address   types.Address `json:"address"`
	IsDefault bool          `json:"is_default"`
}

type paymentMethodResponse struct {
	ID           uuid.UUID `json:"id"`
	Type         string    `json:"type"`
	CardBrand    *string   `json:"card_brand,omitempty"`
	CardLast4    *string   `json:"card_last4,omitempty"`
	CardExpMonth *int      `json:"card_exp_month,omitempty"`
	CardExpYear  *int      `json:"card_exp_year,omitempty"`
	IsDefault    bool      `json:"is_default"`
}

func newProfileResponse(p *models.Profile) profileResponse {
	resp := profileResponse{
		ID:                p.ID,
		Email:             p.Email,
		DisplayName:       p.DisplayName,
		Phone:             p.Phone,
		PhotoURL:          p.PhotoURL,
		TwoFactorEnabled:  p.TwoFactorEnabled,
		FavoriteSellerIDs: p.FavoriteSellerIDs,
		Addresses:         make([]addressResponse, 0, len(p.Addresses)),
		PaymentMethods:    make([]paymentMethodResponse, 0, len(p.PaymentMethods)),
		CreatedAt:         p.CreatedAt,
	}
	if resp.FavoriteSellerIDs == nil {
		resp.FavoriteSellerIDs = []uuid.UUID{}
	}
	if p.SellerInfo != nil {
		info := newSellerInfoResponse(p.SellerInfo)
		resp.SellerInfo = &info
	}
	for _, addr := range p.Addresses {
		resp.Addresses = append(resp.Addresses, newAddressResponse(&addr))
	}
	for _, method := range p.PaymentMethods {
		resp.PaymentMethods = append(resp.PaymentMethods, newPaymentMethodResponse(&method))
	}
	return resp
}

func newSellerInfoResponse(info *models.SellerInfo) sellerInfoResponse {
	return sellerInfoResponse{
		ID:          info.ID,
		StoreName:   info.StoreName,
		Description: info.Description,
		Phone:       info.Phone,
		Address:     info.Address,
		IsActive:    info.IsActive,
	}
}

func newAddressResponse(addr *models.AddressRecord) addressResponse {
	return addressResponse{ID: addr.ID, Address: addr.Address, IsDefault: addr.IsDefault}
}

func newPaymentMethodResponse(method *models.PaymentMethod) paymentMethodResponse {
	return paymentMethodResponse{
		ID:           method.ID,
		Type:         string(method.Type),
		CardBrand:    method.CardBrand,
		CardLast4:    method.CardLast4,
		CardExpMonth: method.CardExpMonth,
		CardExpYear:  method.CardExpYear,
		IsDefault:    method.IsDefault,
	}
}

type updateProfileRequest struct {
	DisplayName *string `json:"display_name" validate:"omitempty,min=1,max=120"`
	Phone       *string `json:"phone" validate:"omitempty,max=32"`
	PhotoURL    *string `json:"photo_url" validate:"omitempty,url"`
}

type sellerInfoRequest struct {
	StoreName   string        `json:"store_name" validate:"required,min=1,max=160"`
	Description *string       `json:"description" validate:"omitempty,max=2000"`
	Phone       *string       `json:"phone" validate:"omitempty,max=32"`
	Address     types.Address `json:"address" validate:"required"`
	IsActive    bool          `json:"is_active"`
}

type addressRequest struct {
	Address   types.Address `json:"address" validate:"required"`
	IsDefault bool          `json:"is_default"`
}

type addPaymentMethodRequest struct {
	SourceID          string `json:"source_id" validate:"required"`
	VerificationToken string `json:"verification_token"`
	CardholderName    string `json:"cardholder_name" validate:"omitempty,max=160"`
	IsDefault         bool   `json:"is_default"`
}

type favoriteSellerRequest struct {
	SellerID uuid.UUID `json:"seller_id" validate:"required"`
}

// ProfileMe returns the caller's profile document.
func ProfileMe(svc profilesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profile service unavailable"))
			return
		}

		profileID, err := profileIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.GetByID(r.Context(), profileID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newProfileResponse(profile))
	}
}

// ProfileUpdate applies partial edits to the caller's profile.
func ProfileUpdate(svc profilesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profile service unavailable"))
			return
		}

		profileID, err := profileIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateProfileRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.UpdateProfile(r.Context(), profileID, profilesvc.UpdateProfileInput{
			DisplayName: body.DisplayName,
			Phone:       body.Phone,
			PhotoURL:    body.PhotoURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newProfileResponse(profile))
	}
}

// ProfileFavoriteSellerAdd pins a seller to the caller's favorites.
func ProfileFavoriteSellerAdd(svc profilesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profile service unavailable"))
			return
		}

		profileID, err := profileIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body favoriteSellerRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.AddFavoriteSeller(r.Context(), profileID, body.SellerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "added"})
	}
}

// ProfileFavoriteSellerRemove unpins a seller.
func ProfileFavoriteSellerRemove(svc profilesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profile service unavailable"))
			return
		}

		profileID, err := profileIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sellerID, err := validators.ParseUUIDParam(r, "sellerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemoveFavoriteSeller(r.Context(), profileID, sellerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

// ProfileSellerInfoUpsert creates or replaces the caller's seller sub-document.
func ProfileSellerInfoUpsert(svc profilesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profile service unavailable"))
			return
		}

		profileID, err := profileIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body sellerInfoRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		info, err := svc.UpsertSellerInfo(r.Context(), profileID, profilesvc.SellerInfoInput{
			StoreName:   validators.SanitizeString(body.StoreName, 160),
			Description: body.Description,
			Phone:       body.Phone,
			Address:     body.Address,
			IsActive:    body.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newSellerInfoResponse(info))
	}
}

// ProfileAddressList returns the caller's saved addresses, default first.
func ProfileAddressList(svc profilesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profile service unavailable"))
			return
		}

		profileID, err := profileIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		records, err := svc.ListAddresses(r.Context(), profileID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]addressResponse, 0, len(records))
		for _, record := range records {
			out = append(out, newAddressResponse(&record))
		}
		responses.WriteSuccess(w, out)
	}
}

// ProfileAddressAdd saves a new address entry.
func ProfileAddressAdd(svc profilesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profile service unavailable"))
			return
		}

		profileID, err := profileIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body addressRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.AddAddress(r.Context(), profileID, profilesvc.AddressInput{
			Address:   body.Address,
			IsDefault: body.IsDefault,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newAddressResponse(record))
	}
}

// ProfileAddressUpdate replaces one address entry.
func ProfileAddressUpdate(svc profilesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profile service unavailable"))
			return
		}

		profileID, err := profileIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		addressID, err := validators.ParseUUIDParam(r, "addressId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body addressRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.UpdateAddress(r.Context(), profileID, addressID, profilesvc.AddressInput{
			Address:   body.Address,
			IsDefault: body.IsDefault,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newAddressResponse(record))
	}
}

// ProfileAddressRemove deletes one address entry.
func ProfileAddressRemove(svc profilesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profile service unavailable"))
			return
		}

		profileID, err := profileIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		addressID, err := validators.ParseUUIDParam(r, "addressId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemoveAddress(r.Context(), profileID, addressID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

// ProfileAddressSetDefault marks one address as the default.
func ProfileAddressSetDefault(svc profilesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profile service unavailable"))
			return
		}

		profileID, err := profileIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		addressID, err := validators.ParseUUIDParam(r, "addressId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetDefaultAddress(r.Context(), profileID, addressID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "default set"})
	}
}

// ProfilePaymentMethodList returns the caller's vaulted cards.
func ProfilePaymentMethodList(svc profilesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profile service unavailable"))
			return
		}

		profileID, err := profileIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		records, err := svc.ListPaymentMethods(r.Context(), profileID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]paymentMethodResponse, 0, len(records))
		for _, record := range records {
			out = append(out, newPaymentMethodResponse(&record))
		}
		responses.WriteSuccess(w, out)
	}
}

// ProfilePaymentMethodAdd vaults a tokenized card with the processor.
func ProfilePaymentMethodAdd(svc profilesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profile service unavailable"))
			return
		}

		profileID, err := profileIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body addPaymentMethodRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.AddPaymentMethod(r.Context(), profileID, profilesvc.AddPaymentMethodInput{
			SourceID:          body.SourceID,
			VerificationToken: body.VerificationToken,
			CardholderName:    validators.SanitizeString(body.CardholderName, 160),
			IsDefault:         body.IsDefault,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newPaymentMethodResponse(record))
	}
}

// ProfilePaymentMethodRemove drops a vaulted card.
func ProfilePaymentMethodRemove(svc profilesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profile service unavailable"))
			return
		}

		profileID, err := profileIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		methodID, err := validators.ParseUUIDParam(r, "methodId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemovePaymentMethod(r.Context(), profileID, methodID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

// ProfilePaymentMethodSetDefault marks one card as the default.
func ProfilePaymentMethodSetDefault(svc profilesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profile service unavailable"))
			return
		}

		profileID, err := profileIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		methodID, err := validators.ParseUUIDParam(r, "methodId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetDefaultPaymentMethod(r.Context(), profileID, methodID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "default set"})
	}
}
