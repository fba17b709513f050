package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	"github.com/storefront-labs/storefront-backend/pkg/enums"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindActiveByProfile(ctx context.Context, profileID uuid.UUID) (*models.CartRecord, error)
	FindByIDAndProfile(ctx context.Context, id, profileID uuid.UUID) (*models.CartRecord, error)
	Create(ctx context.Context, record *models.CartRecord) (*models.CartRecord, error)
	UpdateStatus(ctx context.Context, id, profileID uuid.UUID, status enums.CartStatus) error
	UpsertItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error)
	UpdateItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) error
	UpdateItemSelected(ctx context.Context, cartID, itemID uuid.UUID, selected bool) error
	DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error
	ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
}

// Repository exposes persistence operations for cart data.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a new CartRecord.
func (r *Repository) Create(ctx context.Context, record *models.CartRecord) (*models.CartRecord, error) {
	if record.Status == "" {
		record.Status = enums.CartStatusActive
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// FindActiveByProfile loads the latest active CartRecord for the profile.
func (r *Repository) FindActiveByProfile(ctx context.Context, profileID uuid.UUID) (*models.CartRecord, error) {
	var record models.CartRecord
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("profile_id = ? AND status = ?", profileID, enums.CartStatusActive).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByIDAndProfile returns a CartRecord restricted to the provided profile.
func (r *Repository) FindByIDAndProfile(ctx context.Context, id, profileID uuid.UUID) (*models.CartRecord, error) {
	var record models.CartRecord
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ? AND profile_id = ?", id, profileID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// UpdateStatus updates the status of a CartRecord owned by the profile.
func (r *Repository) UpdateStatus(ctx context.Context, id, profileID uuid.UUID, status enums.CartStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.CartRecord{}).
		Where("id = ? AND profile_id = ?", id, profileID).
		Update("status", status).Error
}

// UpsertItem inserts the item, or bumps the quantity when the product is
// already in the cart.
func (r *Repository) UpsertItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	tx := r.db.WithContext(ctx)

	var existing models.CartItem
	err := tx.Where("cart_id = ? AND product_id = ?", item.CartID, item.ProductID).
		First(&existing).Error
	if err == nil {
		existing.Quantity += item.Quantity
		existing.Selected = true
		if err := tx.Save(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	if err := tx.Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateItemQuantity sets the quantity for a cart item.
func (r *Repository) UpdateItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Update("quantity", quantity).Error
}

// UpdateItemSelected persists the selection flag for a cart item.
func (r *Repository) UpdateItemSelected(ctx context.Context, cartID, itemID uuid.UUID, selected bool) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Update("selected", selected).Error
}

// DeleteItem removes a cart item.
func (r *Repository) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Delete(&models.CartItem{}).Error
}

// ListItems returns items belonging to a cart in insertion order.
func (r *Repository) ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	var rows []models.CartItem
	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
