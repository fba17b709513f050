package square

import (
	"strings"

	sq "github.com/square/square-go-sdk"
)

// CustomerCreateParams carries the profile fields vaulted alongside a
// Square customer record.
type CustomerCreateParams struct {
	Email          string
	GivenName      string
	ReferenceID    string
	IdempotencyKey string
}

func (p CustomerCreateParams) toSquareRequest(idempotencyKey string) *sq.CreateCustomerRequest {
	return &sq.CreateCustomerRequest{
		IdempotencyKey: ptrString(idempotencyKey),
		EmailAddress:   ptrString(p.Email),
		GivenName:      ptrString(p.GivenName),
		ReferenceID:    ptrString(p.ReferenceID),
	}
}

// CardCreateParams groups the data needed to vault a card.
type CardCreateParams struct {
	CustomerID        string
	SourceID          string
	CardholderName    string
	ReferenceID       string
	VerificationToken string
	IdempotencyKey    string
}

func (p CardCreateParams) toSquareRequest(idempotencyKey string) *sq.CreateCardRequest {
	return &sq.CreateCardRequest{
		IdempotencyKey:    idempotencyKey,
		SourceID:          p.SourceID,
		VerificationToken: ptrString(p.VerificationToken),
		Card: &sq.Card{
			CustomerID:     ptrString(p.CustomerID),
			CardholderName: ptrString(p.CardholderName),
			ReferenceID:    ptrString(p.ReferenceID),
		},
	}
}

// PaymentCreateParams encapsulates the inputs for a Square payment.
type PaymentCreateParams struct {
	AmountCents    int64
	Currency       string
	LocationID     string
	CustomerID     string
	SourceID       string
	IdempotencyKey string
	Note           string
	ReferenceID    string
}

func (p PaymentCreateParams) toSquareRequest(idempotencyKey string) *sq.CreatePaymentRequest {
	return &sq.CreatePaymentRequest{
		IdempotencyKey: idempotencyKey,
		LocationID:     ptrString(p.LocationID),
		CustomerID:     ptrString(p.CustomerID),
		SourceID:       p.SourceID,
		AmountMoney:    moneyPtr(p.AmountCents, p.Currency),
		Note:           ptrString(p.Note),
		ReferenceID:    ptrString(p.ReferenceID),
	}
}

func ptrString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func int64Ptr(value int64) *int64 {
	return &value
}

func currencyPtr(code string) *sq.Currency {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		trimmed = "USD"
	}
	c := sq.Currency(trimmed)
	return &c
}

func moneyPtr(amount int64, currency string) *sq.Money {
	if amount <= 0 {
		return nil
	}
	return &sq.Money{
		Amount:   int64Ptr(amount),
		Currency: currencyPtr(currency),
	}
}
