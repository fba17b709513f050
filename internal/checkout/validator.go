package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront-labs/storefront-backend/internal/cart"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
)

// validateCallable is the remote callable that checks a selection
// against live inventory and policy before payment.
const validateCallable = "validateCart"

type caller interface {
	Call(ctx context.Context, name string, payload any, out any) error
}

// ItemIssue is a single validation finding for one cart line.
type ItemIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ItemSnapshot is the server-confirmed state of one line at validation
// time, kept so remediation review can show what the validator saw.
type ItemSnapshot struct {
	ItemID    uuid.UUID       `json:"item_id"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Stock     int             `json:"stock"`
}

// ValidationResult is the normalized outcome of a checkout validation
// run. Valid is recomputed locally from the per-item findings so a
// response that reports errors can never pass as valid.
type ValidationResult struct {
	Valid          bool                      `json:"valid"`
	ItemErrors     map[uuid.UUID][]ItemIssue `json:"item_errors,omitempty"`
	ItemWarnings   map[uuid.UUID][]ItemIssue `json:"item_warnings,omitempty"`
	ValidatedItems []ItemSnapshot            `json:"validated_items,omitempty"`
}

// RequiresRemediation reports whether the user must review the findings
// before checkout can proceed. Warnings alone are enough to pause.
func (r *ValidationResult) RequiresRemediation() bool {
	return !r.Valid || len(r.ItemWarnings) > 0
}

// ErroredItemIDs returns the ids of items with hard errors, in the
// order of the supplied items.
func (r *ValidationResult) ErroredItemIDs(items []cart.Item) []uuid.UUID {
	if len(r.ItemErrors) == 0 {
		return nil
	}
	out := make([]uuid.UUID, 0, len(r.ItemErrors))
	for _, item := range items {
		if _, ok := r.ItemErrors[item.ID]; ok {
			out = append(out, item.ID)
		}
	}
	return out
}

// Validator runs the pre-payment validation callable.
type Validator struct {
	caller caller
}

// NewValidator builds a Validator over the callable client.
func NewValidator(c caller) (*Validator, error) {
	if c == nil {
		return nil, fmt.Errorf("callable client required")
	}
	return &Validator{caller: c}, nil
}

type validateRequest struct {
	CartID string              `json:"cart_id"`
	Items  []validateLineInput `json:"items"`
}

type validateLineInput struct {
	ItemID    string `json:"item_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type validateResponse struct {
	Valid bool `json:"valid"`
	Items []struct {
		ItemID    string           `json:"item_id"`
		Errors    []ItemIssue      `json:"errors"`
		Warnings  []ItemIssue      `json:"warnings"`
		UnitPrice *decimal.Decimal `json:"unit_price"`
		Stock     *int             `json:"stock"`
	} `json:"items"`
}

// Validate checks the selected items and returns the normalized result.
func (v *Validator) Validate(ctx context.Context, cartID uuid.UUID, items []cart.Item) (*ValidationResult, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nothing selected to validate")
	}

	req := validateRequest{CartID: cartID.String(), Items: make([]validateLineInput, 0, len(items))}
	for _, item := range items {
		req.Items = append(req.Items, validateLineInput{
			ItemID:    item.ID.String(),
			ProductID: item.ProductID.String(),
			Quantity:  item.Quantity,
		})
	}

	var resp validateResponse
	if err := v.caller.Call(ctx, validateCallable, req, &resp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cart validation failed")
	}

	result := &ValidationResult{Valid: resp.Valid}
	for _, line := range resp.Items {
		id, err := uuid.Parse(line.ItemID)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "validator returned an unparseable item id")
		}
		if len(line.Errors) > 0 {
			if result.ItemErrors == nil {
				result.ItemErrors = make(map[uuid.UUID][]ItemIssue)
			}
			result.ItemErrors[id] = line.Errors
		}
		if len(line.Warnings) > 0 {
			if result.ItemWarnings == nil {
				result.ItemWarnings = make(map[uuid.UUID][]ItemIssue)
			}
			result.ItemWarnings[id] = line.Warnings
		}
		if line.UnitPrice != nil || line.Stock != nil {
			snap := ItemSnapshot{ItemID: id}
			if line.UnitPrice != nil {
				snap.UnitPrice = *line.UnitPrice
			}
			if line.Stock != nil {
				snap.Stock = *line.Stock
			}
			result.ValidatedItems = append(result.ValidatedItems, snap)
		}
	}
	if len(result.ItemErrors) > 0 {
		result.Valid = false
	}
	return result, nil
}
