package enums

// PaymentMethodType distinguishes vaulted payment instruments.
type PaymentMethodType string

const (
	PaymentMethodTypeCard PaymentMethodType = "card"
)

func (t PaymentMethodType) IsValid() bool {
	return t == PaymentMethodTypeCard
}
