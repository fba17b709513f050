package enums

// CartStatus tracks the lifecycle of a persisted cart.
type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusConverted CartStatus = "converted"
	CartStatusAbandoned CartStatus = "abandoned"
)

func (s CartStatus) IsValid() bool {
	switch s {
	case CartStatusActive, CartStatusConverted, CartStatusAbandoned:
		return true
	}
	return false
}
