package cart

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront-labs/storefront-backend/pkg/db/models"
)

func TestItemFromModelCarriesSnapshotFields(t *testing.T) {
	t.Parallel()

	attrs := `{"size":"L"}`
	minQty := 4
	percent := decimal.RequireFromString("12.5")
	row := models.CartItem{
		ID:             uuid.New(),
		ProductID:      uuid.New(),
		SellerID:       uuid.New(),
		Title:          "Linen shirt",
		Quantity:       2,
		Currency:       "USD",
		UnitPrice:      decimal.RequireFromString("42.00"),
		StockSnapshot:  7,
		BulkMinQty:     &minQty,
		BulkPercentOff: &percent,
		VariantAttrs:   &attrs,
	}

	item := ItemFromModel(row)
	if item.SellerID != row.SellerID {
		t.Fatalf("seller id dropped in mapping")
	}
	if item.VariantAttrs == nil || *item.VariantAttrs != attrs {
		t.Fatalf("variant attributes dropped in mapping")
	}
	if item.Bulk == nil || item.Bulk.MinQty != 4 || !item.Bulk.PercentOff.Equal(percent) {
		t.Fatalf("bulk rule mapping = %+v", item.Bulk)
	}
	if item.Stock != 7 {
		t.Fatalf("stock snapshot mapping = %d", item.Stock)
	}
}
