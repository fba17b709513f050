package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID      uuid.UUID
	IdentityUID string
	Email       string
	TwoFactorOK bool
	JTI         string
}

// AccessTokenClaims represents the typed JWT issued to clients. TwoFactorOK
// is false for sessions still waiting on a second-factor challenge.
type AccessTokenClaims struct {
	UserID      uuid.UUID `json:"user_id"`
	IdentityUID string    `json:"identity_uid"`
	Email       string    `json:"email,omitempty"`
	TwoFactorOK bool      `json:"two_factor_ok"`
	jwt.RegisteredClaims
}
