package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	"gorm.io/gorm"

	"github.com/storefront-labs/storefront-backend/internal/identity"
	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
	"github.com/storefront-labs/storefront-backend/pkg/logger"
	"github.com/storefront-labs/storefront-backend/pkg/square"
	"github.com/storefront-labs/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cardVaulter interface {
	CreateCustomer(ctx context.Context, params square.CustomerCreateParams) (*sq.Customer, error)
	CreateCard(ctx context.Context, params square.CardCreateParams) (*sq.Card, error)
}

// UpdateProfileInput carries the editable top-level profile fields.
type UpdateProfileInput struct {
	DisplayName *string
	Phone       *string
	PhotoURL    *string
}

// SellerInfoInput carries the seller sub-document fields.
type SellerInfoInput struct {
	StoreName   string
	Description *string
	Phone       *string
	Address     types.Address
	IsActive    bool
}

// AddressInput carries one address entry.
type AddressInput struct {
	Address   types.Address
	IsDefault bool
}

// AddPaymentMethodInput vaults a tokenized card.
type AddPaymentMethodInput struct {
	SourceID          string
	VerificationToken string
	CardholderName    string
	IsDefault         bool
}

// Service manages profile documents and their sub-collections.
type Service interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	EnsureForIdentity(ctx context.Context, ident *identity.Identity) (*models.Profile, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, input UpdateProfileInput) (*models.Profile, error)
	SetTwoFactor(ctx context.Context, id uuid.UUID, enabled bool, method *string) error

	AddFavoriteSeller(ctx context.Context, id, sellerID uuid.UUID) error
	RemoveFavoriteSeller(ctx context.Context, id, sellerID uuid.UUID) error

	UpsertSellerInfo(ctx context.Context, id uuid.UUID, input SellerInfoInput) (*models.SellerInfo, error)

	AddAddress(ctx context.Context, id uuid.UUID, input AddressInput) (*models.AddressRecord, error)
	UpdateAddress(ctx context.Context, id, addressID uuid.UUID, input AddressInput) (*models.AddressRecord, error)
	RemoveAddress(ctx context.Context, id, addressID uuid.UUID) error
	SetDefaultAddress(ctx context.Context, id, addressID uuid.UUID) error
	ListAddresses(ctx context.Context, id uuid.UUID) ([]models.AddressRecord, error)

	AddPaymentMethod(ctx context.Context, id uuid.UUID, input AddPaymentMethodInput) (*models.PaymentMethod, error)
	ListPaymentMethods(ctx context.Context, id uuid.UUID) ([]models.PaymentMethod, error)
	RemovePaymentMethod(ctx context.Context, id, methodID uuid.UUID) error
	SetDefaultPaymentMethod(ctx context.Context, id, methodID uuid.UUID) error
}

type service struct {
	repo  ProfileRepository
	tx    txRunner
	vault cardVaulter
	logg  *logger.Logger
}

// NewService wires the profile service. The vault is required so card
// data never touches this service untokenized.
func NewService(repo ProfileRepository, tx txRunner, vault cardVaulter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("profile repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if vault == nil {
		return nil, fmt.Errorf("card vault required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, vault: vault, logg: logg}, nil
}

// GetByID loads the profile document with its sub-collections.
func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "profile not found")
	}
	return profile, nil
}

// EnsureForIdentity returns the profile for the identity uid, creating
// it on first sign-in.
func (s *service) EnsureForIdentity(ctx context.Context, ident *identity.Identity) (*models.Profile, error) {
	if ident == nil || strings.TrimSpace(ident.UID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "identity is required")
	}

	profile, err := s.repo.FindByIdentityUID(ctx, ident.UID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	created := &models.Profile{
		IdentityUID: ident.UID,
		Email:       ident.Email,
		DisplayName: ident.DisplayName,
	}
	if ident.PhotoURL != "" {
		created.PhotoURL = &ident.PhotoURL
	}
	profile, err = s.repo.Create(ctx, created)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithUserID(ctx, profile.ID.String()), "profile created for new identity")
	return profile, nil
}

// UpdateProfile applies the provided top-level field changes.
func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, input UpdateProfileInput) (*models.Profile, error) {
	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "profile not found")
	}

	if input.DisplayName != nil {
		profile.DisplayName = *input.DisplayName
	}
	if input.Phone != nil {
		profile.Phone = input.Phone
	}
	if input.PhotoURL != nil {
		profile.PhotoURL = input.PhotoURL
	}
	if err := s.repo.Save(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// SetTwoFactor updates the second-factor enrollment.
func (s *service) SetTwoFactor(ctx context.Context, id uuid.UUID, enabled bool, method *string) error {
	return s.repo.SetTwoFactor(ctx, id, enabled, method)
}

// AddFavoriteSeller unions the seller into the favorites array.
func (s *service) AddFavoriteSeller(ctx context.Context, id, sellerID uuid.UUID) error {
	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFound(err, "profile not found")
	}
	if profile.FavoriteSellerIDs.Contains(sellerID) {
		return nil
	}
	return s.repo.SetFavoriteSellers(ctx, id, profile.FavoriteSellerIDs.Union(sellerID))
}

// RemoveFavoriteSeller drops the seller from the favorites array.
func (s *service) RemoveFavoriteSeller(ctx context.Context, id, sellerID uuid.UUID) error {
	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFound(err, "profile not found")
	}
	if !profile.FavoriteSellerIDs.Contains(sellerID) {
		return nil
	}
	return s.repo.SetFavoriteSellers(ctx, id, profile.FavoriteSellerIDs.Remove(sellerID))
}

// UpsertSellerInfo creates or replaces the seller sub-document.
func (s *service) UpsertSellerInfo(ctx context.Context, id uuid.UUID, input SellerInfoInput) (*models.SellerInfo, error) {
	if strings.TrimSpace(input.StoreName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store name is required")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, notFound(err, "profile not found")
	}
	return s.repo.UpsertSellerInfo(ctx, &models.SellerInfo{
		ProfileID:   id,
		StoreName:   input.StoreName,
		Description: input.Description,
		Phone:       input.Phone,
		Address:     input.Address,
		IsActive:    input.IsActive,
	})
}

// AddAddress appends an address; a new default clears the previous one.
func (s *service) AddAddress(ctx context.Context, id uuid.UUID, input AddressInput) (*models.AddressRecord, error) {
	if input.Address.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address is required")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, notFound(err, "profile not found")
	}

	record := &models.AddressRecord{ProfileID: id, Address: input.Address, IsDefault: input.IsDefault}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if input.IsDefault {
			if err := repo.ClearDefaultAddress(ctx, id); err != nil {
				return err
			}
		}
		_, err := repo.CreateAddress(ctx, record)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// UpdateAddress replaces the stored address fields.
func (s *service) UpdateAddress(ctx context.Context, id, addressID uuid.UUID, input AddressInput) (*models.AddressRecord, error) {
	record, err := s.repo.FindAddress(ctx, id, addressID)
	if err != nil {
		return nil, notFound(err, "address not found")
	}

	record.Address = input.Address
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if input.IsDefault && !record.IsDefault {
			if err := repo.ClearDefaultAddress(ctx, id); err != nil {
				return err
			}
			record.IsDefault = true
		}
		return repo.SaveAddress(ctx, record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// RemoveAddress deletes one address entry.
func (s *service) RemoveAddress(ctx context.Context, id, addressID uuid.UUID) error {
	if _, err := s.repo.FindAddress(ctx, id, addressID); err != nil {
		return notFound(err, "address not found")
	}
	return s.repo.DeleteAddress(ctx, id, addressID)
}

// SetDefaultAddress marks one address as default, clearing the rest.
func (s *service) SetDefaultAddress(ctx context.Context, id, addressID uuid.UUID) error {
	record, err := s.repo.FindAddress(ctx, id, addressID)
	if err != nil {
		return notFound(err, "address not found")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.ClearDefaultAddress(ctx, id); err != nil {
			return err
		}
		record.IsDefault = true
		return repo.SaveAddress(ctx, record)
	})
}

// ListAddresses returns the address sub-collection.
func (s *service) ListAddresses(ctx context.Context, id uuid.UUID) ([]models.AddressRecord, error) {
	return s.repo.ListAddresses(ctx, id)
}

// AddPaymentMethod vaults the tokenized card with the payment provider
// and mirrors it locally. The raw card never reaches this service.
func (s *service) AddPaymentMethod(ctx context.Context, id uuid.UUID, input AddPaymentMethodInput) (*models.PaymentMethod, error) {
	if strings.TrimSpace(input.SourceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "card token is required")
	}
	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "profile not found")
	}

	customerID, err := s.ensureVaultCustomer(ctx, profile)
	if err != nil {
		return nil, err
	}

	card, err := s.vault.CreateCard(ctx, square.CardCreateParams{
		CustomerID:        customerID,
		SourceID:          input.SourceID,
		CardholderName:    input.CardholderName,
		VerificationToken: input.VerificationToken,
		ReferenceID:       profile.ID.String(),
	})
	if err != nil {
		return nil, err
	}
	if card == nil || card.ID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "vault returned no card id")
	}

	method := &models.PaymentMethod{
		ProfileID:    id,
		SquareCardID: *card.ID,
		IsDefault:    input.IsDefault || len(profile.PaymentMethods) == 0,
	}
	if card.CardBrand != nil {
		brand := string(*card.CardBrand)
		method.CardBrand = &brand
	}
	if card.Last4 != nil {
		method.CardLast4 = card.Last4
	}
	if card.ExpMonth != nil {
		month := int(*card.ExpMonth)
		method.CardExpMonth = &month
	}
	if card.ExpYear != nil {
		year := int(*card.ExpYear)
		method.CardExpYear = &year
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if method.IsDefault {
			if err := repo.ClearDefaultPaymentMethod(ctx, id); err != nil {
				return err
			}
		}
		_, err := repo.CreatePaymentMethod(ctx, method)
		return err
	})
	if err != nil {
		return nil, err
	}
	return method, nil
}

// ListPaymentMethods returns the vaulted card mirrors.
func (s *service) ListPaymentMethods(ctx context.Context, id uuid.UUID) ([]models.PaymentMethod, error) {
	return s.repo.ListPaymentMethods(ctx, id)
}

// RemovePaymentMethod deletes the local mirror of a vaulted card.
func (s *service) RemovePaymentMethod(ctx context.Context, id, methodID uuid.UUID) error {
	if _, err := s.repo.FindPaymentMethod(ctx, id, methodID); err != nil {
		return notFound(err, "payment method not found")
	}
	return s.repo.DeletePaymentMethod(ctx, id, methodID)
}

// SetDefaultPaymentMethod marks one card as default, clearing the rest.
func (s *service) SetDefaultPaymentMethod(ctx context.Context, id, methodID uuid.UUID) error {
	method, err := s.repo.FindPaymentMethod(ctx, id, methodID)
	if err != nil {
		return notFound(err, "payment method not found")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.ClearDefaultPaymentMethod(ctx, id); err != nil {
			return err
		}
		method.IsDefault = true
		return repo.SavePaymentMethod(ctx, method)
	})
}

func (s *service) ensureVaultCustomer(ctx context.Context, profile *models.Profile) (string, error) {
	if profile.SquareCustomerID != nil && *profile.SquareCustomerID != "" {
		return *profile.SquareCustomerID, nil
	}

	customer, err := s.vault.CreateCustomer(ctx, square.CustomerCreateParams{
		Email:       profile.Email,
		GivenName:   profile.DisplayName,
		ReferenceID: profile.ID.String(),
	})
	if err != nil {
		return "", err
	}
	if customer == nil || customer.ID == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "vault returned no customer id")
	}
	if err := s.repo.SetSquareCustomerID(ctx, profile.ID, *customer.ID); err != nil {
		return "", err
	}
	profile.SquareCustomerID = customer.ID
	return *customer.ID, nil
}

func notFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, msg)
	}
	return err
}
