package checkout

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront-labs/storefront-backend/internal/cart"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
)

type stubCaller struct {
	result  json.RawMessage
	err     error
	calls   int
	name    string
	payload any
}

func (s *stubCaller) Call(ctx context.Context, name string, payload any, out any) error {
	s.calls++
	s.name = name
	s.payload = payload
	if s.err != nil {
		return s.err
	}
	return json.Unmarshal(s.result, out)
}

func validatorItems() []cart.Item {
	return []cart.Item{
		{ID: uuid.New(), ProductID: uuid.New(), SellerID: uuid.New(), Title: "ceramic mug", Quantity: 2, Currency: "USD", UnitPrice: decimal.RequireFromString("15.00")},
		{ID: uuid.New(), ProductID: uuid.New(), SellerID: uuid.New(), Title: "table lamp", Quantity: 1, Currency: "USD", UnitPrice: decimal.RequireFromString("340.00")},
	}
}

func TestValidateRejectsEmptySelection(t *testing.T) {
	v, _ := NewValidator(&stubCaller{})

	_, err := v.Validate(context.Background(), uuid.New(), nil)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for empty selection, got %v", err)
	}
}

func TestValidateNormalizesFindings(t *testing.T) {
	items := validatorItems()
	payload := map[string]any{
		"valid": true, // contradicted by the error below
		"items": []map[string]any{
			{
				"item_id": items[0].ID.String(),
				"errors":  []map[string]string{{"code": "out_of_stock", "message": "no longer available"}},
			},
			{
				"item_id":  items[1].ID.String(),
				"warnings": []map[string]string{{"code": "price_changed", "message": "price went up"}},
			},
		},
	}
	raw, _ := json.Marshal(payload)
	caller := &stubCaller{result: raw}
	v, _ := NewValidator(caller)

	result, err := v.Validate(context.Background(), uuid.New(), items)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if caller.name != "validateCart" {
		t.Fatalf("called %q, want validateCart", caller.name)
	}
	if result.Valid {
		t.Fatalf("result with item errors must not be valid")
	}
	if len(result.ItemErrors[items[0].ID]) != 1 {
		t.Fatalf("missing error for first item")
	}
	if len(result.ItemWarnings[items[1].ID]) != 1 {
		t.Fatalf("missing warning for second item")
	}
	if !result.RequiresRemediation() {
		t.Fatalf("findings must require remediation")
	}
}

func TestValidateDecodesItemSnapshots(t *testing.T) {
	items := validatorItems()
	raw, _ := json.Marshal(map[string]any{
		"valid": true,
		"items": []map[string]any{
			{
				"item_id":    items[0].ID.String(),
				"unit_price": "17.50",
				"stock":      3,
				"warnings":   []map[string]string{{"code": "price_changed", "message": "price went up"}},
			},
			{
				"item_id": items[1].ID.String(),
			},
		},
	})
	v, _ := NewValidator(&stubCaller{result: raw})

	result, err := v.Validate(context.Background(), uuid.New(), items)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(result.ValidatedItems) != 1 {
		t.Fatalf("expected one snapshot, got %d", len(result.ValidatedItems))
	}
	snap := result.ValidatedItems[0]
	if snap.ItemID != items[0].ID {
		t.Fatalf("snapshot item id = %s, want %s", snap.ItemID, items[0].ID)
	}
	if !snap.UnitPrice.Equal(decimal.RequireFromString("17.50")) {
		t.Fatalf("snapshot unit price = %s, want 17.50", snap.UnitPrice)
	}
	if snap.Stock != 3 {
		t.Fatalf("snapshot stock = %d, want 3", snap.Stock)
	}
}

func TestValidateWarningsAloneRequireRemediation(t *testing.T) {
	items := validatorItems()
	raw, _ := json.Marshal(map[string]any{
		"valid": true,
		"items": []map[string]any{
			{
				"item_id":  items[0].ID.String(),
				"warnings": []map[string]string{{"code": "low_stock", "message": "only 1 left"}},
			},
		},
	})
	v, _ := NewValidator(&stubCaller{result: raw})

	result, err := v.Validate(context.Background(), uuid.New(), items)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !result.Valid {
		t.Fatalf("warnings alone must not invalidate the selection")
	}
	if !result.RequiresRemediation() {
		t.Fatalf("warnings alone must still pause checkout for review")
	}
}

func TestValidateCleanPassesThrough(t *testing.T) {
	raw, _ := json.Marshal(map[string]any{"valid": true})
	v, _ := NewValidator(&stubCaller{result: raw})

	result, err := v.Validate(context.Background(), uuid.New(), validatorItems())
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !result.Valid || result.RequiresRemediation() {
		t.Fatalf("clean result should proceed without remediation")
	}
}

func TestValidateWrapsCallableFailures(t *testing.T) {
	v, _ := NewValidator(&stubCaller{err: pkgerrors.New(pkgerrors.CodeTimeout, "deadline exceeded")})

	_, err := v.Validate(context.Background(), uuid.New(), validatorItems())
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestErroredItemIDsPreservesItemOrder(t *testing.T) {
	items := validatorItems()
	result := &ValidationResult{
		ItemErrors: map[uuid.UUID][]ItemIssue{
			items[1].ID: {{Code: "out_of_stock"}},
			items[0].ID: {{Code: "inactive"}},
		},
	}

	got := result.ErroredItemIDs(items)
	if len(got) != 2 || got[0] != items[0].ID || got[1] != items[1].ID {
		t.Fatalf("errored ids out of order: %v", got)
	}
}
