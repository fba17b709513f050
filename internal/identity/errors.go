package identity

import (
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
)

// Canonical provider error codes. The HTTP provider normalizes vendor
// messages to these before mapping them onto the error taxonomy.
const (
	CodeUserNotFound       = "user-not-found"
	CodeWrongPassword      = "wrong-password"
	CodeInvalidEmail       = "invalid-email"
	CodeTooManyRequests    = "too-many-requests"
	CodeNetworkFailure     = "network-failure"
	CodePopupClosed        = "popup-closed-by-user"
	CodeAccountExists      = "account-exists-with-different-credential"
	CodeEmailAlreadyInUse  = "email-already-in-use"
	CodeUserDisabled       = "user-disabled"
	CodeExpiredCredential  = "expired-action-code"
	codeUnknown            = "unknown"
)

type providerFailure struct {
	code    pkgerrors.Code
	message string
	silent  bool
}

var providerFailures = map[string]providerFailure{
	CodeUserNotFound:      {pkgerrors.CodeUnauthorized, "No account matches that email.", false},
	CodeWrongPassword:     {pkgerrors.CodeUnauthorized, "Incorrect email or password.", false},
	CodeInvalidEmail:      {pkgerrors.CodeValidation, "That email address is not valid.", false},
	CodeTooManyRequests:   {pkgerrors.CodeRateLimit, "Too many attempts. Please try again shortly.", false},
	CodeNetworkFailure:    {pkgerrors.CodeDependency, "We could not reach the sign-in service. Check your connection and try again.", false},
	CodePopupClosed:       {pkgerrors.CodeCancelled, "", true},
	CodeAccountExists:     {pkgerrors.CodeConflict, "An account already exists with a different sign-in method for that email.", false},
	CodeEmailAlreadyInUse: {pkgerrors.CodeConflict, "An account already exists for that email.", false},
	CodeUserDisabled:      {pkgerrors.CodeForbidden, "This account has been disabled.", false},
	CodeExpiredCredential: {pkgerrors.CodeUnauthorized, "That link has expired. Request a new one.", false},
}

// MapProviderError converts a canonical provider code into a coded
// domain error carrying the user-facing message. A user dismissing a
// federated sign-in popup is not a failure worth surfacing.
func MapProviderError(code string) error {
	f, ok := providerFailures[code]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeDependency, "Sign-in failed. Please try again.")
	}
	return pkgerrors.New(f.code, f.message)
}

// IsSilent reports whether the failure should be swallowed by the
// presentation layer instead of shown to the user.
func IsSilent(err error) bool {
	return pkgerrors.HasCode(err, pkgerrors.CodeCancelled)
}
