package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	"github.com/storefront-labs/storefront-backend/pkg/enums"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes cart persistence operations.
type Service interface {
	GetOrCreateActiveCart(ctx context.Context, profileID uuid.UUID) (*models.CartRecord, error)
	AddItem(ctx context.Context, profileID uuid.UUID, input AddItemInput) (*models.CartRecord, error)
	UpdateQuantity(ctx context.Context, profileID, itemID uuid.UUID, quantity int) (*models.CartRecord, error)
	RemoveItem(ctx context.Context, profileID, itemID uuid.UUID) (*models.CartRecord, error)
	SetItemSelected(ctx context.Context, profileID, itemID uuid.UUID, selected bool) (*models.CartRecord, error)
	MarkConverted(ctx context.Context, profileID, cartID uuid.UUID) error
}

type service struct {
	repo     CartRepository
	tx       txRunner
	products productLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: repo, tx: tx, products: products}, nil
}

// AddItemInput captures the payload required to add a product to the cart.
type AddItemInput struct {
	ProductID    uuid.UUID
	Quantity     int
	VariantAttrs *string
}

// GetOrCreateActiveCart returns the shopper's active cart, creating an
// empty one on first use.
func (s *service) GetOrCreateActiveCart(ctx context.Context, profileID uuid.UUID) (*models.CartRecord, error) {
	if profileID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile id is required")
	}

	record, err := s.repo.FindActiveByProfile(ctx, profileID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active cart")
	}

	created, err := s.repo.Create(ctx, &models.CartRecord{ProfileID: profileID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return created, nil
}

// AddItem snapshots the product and adds it to the active cart. New lines
// start selected.
func (s *service) AddItem(ctx context.Context, profileID uuid.UUID, input AddItemInput) (*models.CartRecord, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	record, err := s.GetOrCreateActiveCart(ctx, profileID)
	if err != nil {
		return nil, err
	}

	product, err := s.products.GetProduct(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}
	if product.AvailableStock < input.Quantity {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock for product")
	}
	if bulk := bulkRuleFromProduct(product); bulk != nil {
		if err := bulk.Validate(); err != nil {
			return nil, err
		}
	}

	item := buildCartItem(record.ID, product, input.Quantity, input.VariantAttrs)
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.repo.WithTx(tx).UpsertItem(ctx, item)
		return err
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart item")
	}

	return s.reload(ctx, record.ID, profileID)
}

// UpdateQuantity sets the line quantity, re-checking the stock snapshot.
func (s *service) UpdateQuantity(ctx context.Context, profileID, itemID uuid.UUID, quantity int) (*models.CartRecord, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	record, item, err := s.findItem(ctx, profileID, itemID)
	if err != nil {
		return nil, err
	}
	if item.StockSnapshot < quantity {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock for product")
	}

	if err := s.repo.UpdateItemQuantity(ctx, record.ID, itemID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update quantity")
	}
	return s.reload(ctx, record.ID, profileID)
}

// RemoveItem deletes the line from the cart.
func (s *service) RemoveItem(ctx context.Context, profileID, itemID uuid.UUID) (*models.CartRecord, error) {
	record, _, err := s.findItem(ctx, profileID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteItem(ctx, record.ID, itemID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	return s.reload(ctx, record.ID, profileID)
}

// SetItemSelected persists the selection flag for the line.
func (s *service) SetItemSelected(ctx context.Context, profileID, itemID uuid.UUID, selected bool) (*models.CartRecord, error) {
	record, _, err := s.findItem(ctx, profileID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateItemSelected(ctx, record.ID, itemID, selected); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update selection")
	}
	return s.reload(ctx, record.ID, profileID)
}

// MarkConverted flips the cart to converted after a successful handoff.
func (s *service) MarkConverted(ctx context.Context, profileID, cartID uuid.UUID) error {
	if err := s.repo.UpdateStatus(ctx, cartID, profileID, enums.CartStatusConverted); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark cart converted")
	}
	return nil
}

func (s *service) findItem(ctx context.Context, profileID, itemID uuid.UUID) (*models.CartRecord, *models.CartItem, error) {
	if profileID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "profile id is required")
	}
	if itemID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}

	record, err := s.repo.FindActiveByProfile(ctx, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "active cart not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active cart")
	}
	for i := range record.Items {
		if record.Items[i].ID == itemID {
			return record, &record.Items[i], nil
		}
	}
	return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
}

func (s *service) reload(ctx context.Context, cartID, profileID uuid.UUID) (*models.CartRecord, error) {
	record, err := s.repo.FindByIDAndProfile(ctx, cartID, profileID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart")
	}
	return record, nil
}

func bulkRuleFromProduct(product *models.Product) *BulkDiscountRule {
	if product.BulkMinQty == nil || product.BulkPercentOff == nil {
		return nil
	}
	return &BulkDiscountRule{
		MinQty:     *product.BulkMinQty,
		PercentOff: *product.BulkPercentOff,
	}
}

func buildCartItem(cartID uuid.UUID, product *models.Product, quantity int, variantAttrs *string) *models.CartItem {
	return &models.CartItem{
		CartID:         cartID,
		ProductID:      product.ID,
		SellerID:       product.SellerID,
		Title:          product.Title,
		Quantity:       quantity,
		Selected:       true,
		Currency:       product.Currency,
		UnitPrice:      product.Price,
		StockSnapshot:  product.AvailableStock,
		BulkMinQty:     copyIntPtr(product.BulkMinQty),
		BulkPercentOff: copyDecimalPtr(product.BulkPercentOff),
		VariantAttrs:   copyStringPtr(variantAttrs),
	}
}

func copyStringPtr(src *string) *string {
	if src == nil {
		return nil
	}
	val := *src
	return &val
}

func copyIntPtr(src *int) *int {
	if src == nil {
		return nil
	}
	val := *src
	return &val
}

func copyDecimalPtr(src *decimal.Decimal) *decimal.Decimal {
	if src == nil {
		return nil
	}
	val := *src
	return &val
}
