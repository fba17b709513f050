package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	"github.com/storefront-labs/storefront-backend/pkg/enums"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
)

type stubCartRepo struct {
	record       *models.CartRecord
	findErr      error
	created      *models.CartRecord
	upserted     *models.CartItem
	deletedItem  uuid.UUID
	selectedItem uuid.UUID
	selectedFlag bool
	status       enums.CartStatus
}

func (s *stubCartRepo) WithTx(tx *gorm.DB) CartRepository { return s }

func (s *stubCartRepo) FindActiveByProfile(ctx context.Context, profileID uuid.UUID) (*models.CartRecord, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.record, nil
}

func (s *stubCartRepo) FindByIDAndProfile(ctx context.Context, id, profileID uuid.UUID) (*models.CartRecord, error) {
	return s.record, nil
}

func (s *stubCartRepo) Create(ctx context.Context, record *models.CartRecord) (*models.CartRecord, error) {
	record.ID = uuid.New()
	s.created = record
	s.record = record
	return record, nil
}

func (s *stubCartRepo) UpdateStatus(ctx context.Context, id, profileID uuid.UUID, status enums.CartStatus) error {
	s.status = status
	return nil
}

func (s *stubCartRepo) UpsertItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	s.upserted = item
	return item, nil
}

func (s *stubCartRepo) UpdateItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) error {
	return nil
}

func (s *stubCartRepo) UpdateItemSelected(ctx context.Context, cartID, itemID uuid.UUID, selected bool) error {
	s.selectedItem = itemID
	s.selectedFlag = selected
	return nil
}

func (s *stubCartRepo) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	s.deletedItem = itemID
	return nil
}

func (s *stubCartRepo) ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	if s.record == nil {
		return nil, nil
	}
	return s.record.Items, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type productLoaderFunc func(ctx context.Context, id uuid.UUID) (*models.Product, error)

func (f productLoaderFunc) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return f(ctx, id)
}

func newTestService(t *testing.T, repo CartRepository, product *models.Product) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, productLoaderFunc(func(ctx context.Context, id uuid.UUID) (*models.Product, error) {
		if product == nil {
			return nil, gorm.ErrRecordNotFound
		}
		return product, nil
	}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func activeProduct() *models.Product {
	return &models.Product{
		ID:             uuid.New(),
		SellerID:       uuid.New(),
		Title:          "Mug",
		Currency:       "USD",
		Price:          decimal.RequireFromString("9.99"),
		AvailableStock: 10,
		IsActive:       true,
	}
}

func TestGetOrCreateActiveCartCreatesOnFirstUse(t *testing.T) {
	t.Parallel()

	repo := &stubCartRepo{findErr: gorm.ErrRecordNotFound}
	svc := newTestService(t, repo, nil)

	profileID := uuid.New()
	record, err := svc.GetOrCreateActiveCart(context.Background(), profileID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.created == nil {
		t.Fatalf("expected cart creation")
	}
	if record.ProfileID != profileID {
		t.Fatalf("created cart not bound to profile")
	}
}

func TestAddItemSnapshotsProductAndSelectsByDefault(t *testing.T) {
	t.Parallel()

	product := activeProduct()
	minQty := 6
	percent := decimal.RequireFromString("10")
	product.BulkMinQty = &minQty
	product.BulkPercentOff = &percent

	record := &models.CartRecord{ID: uuid.New(), ProfileID: uuid.New(), Status: enums.CartStatusActive}
	repo := &stubCartRepo{record: record}
	svc := newTestService(t, repo, product)

	attrs := `{"color":"moss green"}`
	if _, err := svc.AddItem(context.Background(), record.ProfileID, AddItemInput{ProductID: product.ID, Quantity: 2, VariantAttrs: &attrs}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	item := repo.upserted
	if item == nil {
		t.Fatalf("expected item upsert")
	}
	if !item.Selected {
		t.Fatalf("new items must start selected")
	}
	if item.SellerID != product.SellerID {
		t.Fatalf("seller id not snapshotted")
	}
	if !item.UnitPrice.Equal(product.Price) {
		t.Fatalf("unit price not snapshotted")
	}
	if item.BulkMinQty == nil || *item.BulkMinQty != 6 {
		t.Fatalf("bulk rule not snapshotted")
	}
	if item.StockSnapshot != product.AvailableStock {
		t.Fatalf("stock not snapshotted")
	}
	if item.VariantAttrs == nil || *item.VariantAttrs != attrs {
		t.Fatalf("variant attributes not snapshotted")
	}
}

func TestAddItemRejectsInactiveAndOutOfStock(t *testing.T) {
	t.Parallel()

	record := &models.CartRecord{ID: uuid.New(), ProfileID: uuid.New(), Status: enums.CartStatusActive}

	inactive := activeProduct()
	inactive.IsActive = false
	svc := newTestService(t, &stubCartRepo{record: record}, inactive)
	_, err := svc.AddItem(context.Background(), record.ProfileID, AddItemInput{ProductID: inactive.ID, Quantity: 1})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for inactive product, got %v", err)
	}

	scarce := activeProduct()
	scarce.AvailableStock = 1
	svc = newTestService(t, &stubCartRepo{record: record}, scarce)
	_, err = svc.AddItem(context.Background(), record.ProfileID, AddItemInput{ProductID: scarce.ID, Quantity: 5})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict for insufficient stock, got %v", err)
	}
}

func TestAddItemRejectsInvalidBulkRule(t *testing.T) {
	t.Parallel()

	product := activeProduct()
	minQty := 0
	percent := decimal.RequireFromString("10")
	product.BulkMinQty = &minQty
	product.BulkPercentOff = &percent

	record := &models.CartRecord{ID: uuid.New(), ProfileID: uuid.New(), Status: enums.CartStatusActive}
	svc := newTestService(t, &stubCartRepo{record: record}, product)

	_, err := svc.AddItem(context.Background(), record.ProfileID, AddItemInput{ProductID: product.ID, Quantity: 1})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for bad bulk rule, got %v", err)
	}
}

func TestUpdateQuantityChecksStockSnapshot(t *testing.T) {
	t.Parallel()

	itemID := uuid.New()
	record := &models.CartRecord{
		ID:        uuid.New(),
		ProfileID: uuid.New(),
		Status:    enums.CartStatusActive,
		Items: []models.CartItem{
			{ID: itemID, Quantity: 1, StockSnapshot: 3},
		},
	}
	svc := newTestService(t, &stubCartRepo{record: record}, nil)

	if _, err := svc.UpdateQuantity(context.Background(), record.ProfileID, itemID, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := svc.UpdateQuantity(context.Background(), record.ProfileID, itemID, 4)
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict above stock snapshot, got %v", err)
	}
}

func TestSetItemSelectedPersistsFlag(t *testing.T) {
	t.Parallel()

	itemID := uuid.New()
	record := &models.CartRecord{
		ID:        uuid.New(),
		ProfileID: uuid.New(),
		Status:    enums.CartStatusActive,
		Items:     []models.CartItem{{ID: itemID, Quantity: 1, StockSnapshot: 1, Selected: true}},
	}
	repo := &stubCartRepo{record: record}
	svc := newTestService(t, repo, nil)

	if _, err := svc.SetItemSelected(context.Background(), record.ProfileID, itemID, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.selectedItem != itemID || repo.selectedFlag {
		t.Fatalf("selection flag not persisted")
	}
}

func TestMarkConverted(t *testing.T) {
	t.Parallel()

	repo := &stubCartRepo{}
	svc := newTestService(t, repo, nil)

	if err := svc.MarkConverted(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.status != enums.CartStatusConverted {
		t.Fatalf("expected converted status, got %s", repo.status)
	}
}
