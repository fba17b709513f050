package profiles

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	dbtypes "github.com/storefront-labs/storefront-backend/pkg/db/types"
)

// ProfileRepository defines the persistence surface for profile documents
// and their sub-collections.
type ProfileRepository interface {
	WithTx(tx *gorm.DB) ProfileRepository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	FindByIdentityUID(ctx context.Context, uid string) (*models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	Save(ctx context.Context, profile *models.Profile) error
	SetTwoFactor(ctx context.Context, id uuid.UUID, enabled bool, method *string) error
	SetFavoriteSellers(ctx context.Context, id uuid.UUID, sellers dbtypes.UUIDArray) error
	SetSquareCustomerID(ctx context.Context, id uuid.UUID, customerID string) error

	UpsertSellerInfo(ctx context.Context, info *models.SellerInfo) (*models.SellerInfo, error)

	CreateAddress(ctx context.Context, record *models.AddressRecord) (*models.AddressRecord, error)
	ListAddresses(ctx context.Context, profileID uuid.UUID) ([]models.AddressRecord, error)
	SaveAddress(ctx context.Context, record *models.AddressRecord) error
	DeleteAddress(ctx context.Context, profileID, addressID uuid.UUID) error
	ClearDefaultAddress(ctx context.Context, profileID uuid.UUID) error
	FindAddress(ctx context.Context, profileID, addressID uuid.UUID) (*models.AddressRecord, error)

	CreatePaymentMethod(ctx context.Context, method *models.PaymentMethod) (*models.PaymentMethod, error)
	ListPaymentMethods(ctx context.Context, profileID uuid.UUID) ([]models.PaymentMethod, error)
	DeletePaymentMethod(ctx context.Context, profileID, methodID uuid.UUID) error
	ClearDefaultPaymentMethod(ctx context.Context, profileID uuid.UUID) error
	FindPaymentMethod(ctx context.Context, profileID, methodID uuid.UUID) (*models.PaymentMethod, error)
	SavePaymentMethod(ctx context.Context, method *models.PaymentMethod) error
}

// Repository exposes persistence operations for profile data.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a profile repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) ProfileRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID loads a profile with its sub-collections.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).
		Preload("SellerInfo").
		Preload("Addresses").
		Preload("PaymentMethods").
		Where("id = ?", id).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByIdentityUID loads a profile by the external identity uid.
func (r *Repository) FindByIdentityUID(ctx context.Context, uid string) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).
		Where("identity_uid = ?", uid).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// Create inserts a new profile document.
func (r *Repository) Create(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

// Save persists the profile's top-level fields.
func (r *Repository) Save(ctx context.Context, profile *models.Profile) error {
	return r.db.WithContext(ctx).
		Omit("SellerInfo", "Addresses", "PaymentMethods").
		Save(profile).Error
}

// SetTwoFactor updates the second-factor enrollment columns.
func (r *Repository) SetTwoFactor(ctx context.Context, id uuid.UUID, enabled bool, method *string) error {
	return r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"two_factor_enabled": enabled,
			"two_factor_method":  method,
		}).Error
}

// SetFavoriteSellers replaces the favorite seller array.
func (r *Repository) SetFavoriteSellers(ctx context.Context, id uuid.UUID, sellers dbtypes.UUIDArray) error {
	return r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", id).
		Update("favorite_seller_ids", sellers).Error
}

// SetSquareCustomerID records the vault customer backing this profile.
func (r *Repository) SetSquareCustomerID(ctx context.Context, id uuid.UUID, customerID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", id).
		Update("square_customer_id", customerID).Error
}

// UpsertSellerInfo creates or replaces the seller sub-document.
func (r *Repository) UpsertSellerInfo(ctx context.Context, info *models.SellerInfo) (*models.SellerInfo, error) {
	tx := r.db.WithContext(ctx)

	var existing models.SellerInfo
	err := tx.Where("profile_id = ?", info.ProfileID).First(&existing).Error
	if err == nil {
		existing.StoreName = info.StoreName
		existing.Description = info.Description
		existing.Phone = info.Phone
		existing.Address = info.Address
		existing.IsActive = info.IsActive
		if err := tx.Save(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	if err := tx.Create(info).Error; err != nil {
		return nil, err
	}
	return info, nil
}

// CreateAddress inserts an address record.
func (r *Repository) CreateAddress(ctx context.Context, record *models.AddressRecord) (*models.AddressRecord, error) {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// ListAddresses returns the profile's addresses, default first.
func (r *Repository) ListAddresses(ctx context.Context, profileID uuid.UUID) ([]models.AddressRecord, error) {
	var rows []models.AddressRecord
	err := r.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("is_default DESC, created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SaveAddress persists changes to an address record.
func (r *Repository) SaveAddress(ctx context.Context, record *models.AddressRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

// DeleteAddress removes one address from the profile.
func (r *Repository) DeleteAddress(ctx context.Context, profileID, addressID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND profile_id = ?", addressID, profileID).
		Delete(&models.AddressRecord{}).Error
}

// ClearDefaultAddress drops the default flag from every address.
func (r *Repository) ClearDefaultAddress(ctx context.Context, profileID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.AddressRecord{}).
		Where("profile_id = ?", profileID).
		Update("is_default", false).Error
}

// FindAddress loads one address scoped to the profile.
func (r *Repository) FindAddress(ctx context.Context, profileID, addressID uuid.UUID) (*models.AddressRecord, error) {
	var record models.AddressRecord
	err := r.db.WithContext(ctx).
		Where("id = ? AND profile_id = ?", addressID, profileID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// CreatePaymentMethod inserts a vaulted card record.
func (r *Repository) CreatePaymentMethod(ctx context.Context, method *models.PaymentMethod) (*models.PaymentMethod, error) {
	if err := r.db.WithContext(ctx).Create(method).Error; err != nil {
		return nil, err
	}
	return method, nil
}

// ListPaymentMethods returns the profile's cards, default first.
func (r *Repository) ListPaymentMethods(ctx context.Context, profileID uuid.UUID) ([]models.PaymentMethod, error) {
	var rows []models.PaymentMethod
	err := r.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("is_default DESC, created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DeletePaymentMethod removes one card from the profile.
func (r *Repository) DeletePaymentMethod(ctx context.Context, profileID, methodID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND profile_id = ?", methodID, profileID).
		Delete(&models.PaymentMethod{}).Error
}

// ClearDefaultPaymentMethod drops the default flag from every card.
func (r *Repository) ClearDefaultPaymentMethod(ctx context.Context, profileID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentMethod{}).
		Where("profile_id = ?", profileID).
		Update("is_default", false).Error
}

// FindPaymentMethod loads one card scoped to the profile.
func (r *Repository) FindPaymentMethod(ctx context.Context, profileID, methodID uuid.UUID) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	err := r.db.WithContext(ctx).
		Where("id = ? AND profile_id = ?", methodID, profileID).
		First(&method).Error
	if err != nil {
		return nil, err
	}
	return &method, nil
}

// SavePaymentMethod persists changes to a card record.
func (r *Repository) SavePaymentMethod(ctx context.Context, method *models.PaymentMethod) error {
	return r.db.WithContext(ctx).Save(method).Error
}
