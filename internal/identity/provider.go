package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/storefront-labs/storefront-backend/pkg/config"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
	"github.com/storefront-labs/storefront-backend/pkg/logger"
)

// Identity is the provider's view of an authenticated account.
type Identity struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	DisplayName   string `json:"display_name,omitempty"`
	PhotoURL      string `json:"photo_url,omitempty"`
}

// Provider is the external identity boundary. Implementations must
// honor the context deadline; the service layer applies the auth
// timeout.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Identity, error)
	SignInWithIDP(ctx context.Context, providerID, credential string) (*Identity, error)
	Lookup(ctx context.Context, uid string) (*Identity, error)
	SendPasswordReset(ctx context.Context, email string) error
	SendEmailVerification(ctx context.Context, uid string) error
}

// HTTPProvider talks to the identity provider's REST accounts API.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *logger.Logger
}

// NewHTTPProvider builds the REST identity client.
func NewHTTPProvider(cfg config.IdentityConfig, logg *logger.Logger) (*HTTPProvider, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("identity base URL required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("identity API key required")
	}
	if logg == nil {
		return nil, fmt.Errorf("identity logger required")
	}
	return &HTTPProvider{
		baseURL: base,
		apiKey:  cfg.APIKey,
		http:    &http.Client{},
		logger:  logg,
	}, nil
}

type accountResponse struct {
	LocalID       string `json:"localId"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	DisplayName   string `json:"displayName"`
	PhotoURL      string `json:"photoUrl"`
}

func (r accountResponse) toIdentity() *Identity {
	return &Identity{
		UID:           r.LocalID,
		Email:         r.Email,
		EmailVerified: r.EmailVerified,
		DisplayName:   r.DisplayName,
		PhotoURL:      r.PhotoURL,
	}
}

// SignInWithPassword authenticates an email/password pair.
func (p *HTTPProvider) SignInWithPassword(ctx context.Context, email, password string) (*Identity, error) {
	var resp accountResponse
	err := p.post(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.toIdentity(), nil
}

// SignInWithIDP exchanges a federated credential (OAuth token from the
// social provider) for an identity.
func (p *HTTPProvider) SignInWithIDP(ctx context.Context, providerID, credential string) (*Identity, error) {
	var resp accountResponse
	err := p.post(ctx, "accounts:signInWithIdp", map[string]any{
		"postBody":            fmt.Sprintf("id_token=%s&providerId=%s", url.QueryEscape(credential), url.QueryEscape(providerID)),
		"requestUri":          p.baseURL,
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.toIdentity(), nil
}

// Lookup fetches the current account record, including the
// email-verified flag.
func (p *HTTPProvider) Lookup(ctx context.Context, uid string) (*Identity, error) {
	var resp struct {
		Users []accountResponse `json:"users"`
	}
	if err := p.post(ctx, "accounts:lookup", map[string]any{"localId": []string{uid}}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Users) == 0 {
		return nil, MapProviderError(CodeUserNotFound)
	}
	return resp.Users[0].toIdentity(), nil
}

// SendPasswordReset asks the provider to email a reset link.
func (p *HTTPProvider) SendPasswordReset(ctx context.Context, email string) error {
	return p.post(ctx, "accounts:sendOobCode", map[string]any{
		"requestType": "PASSWORD_RESET",
		"email":       email,
	}, nil)
}

// SendEmailVerification asks the provider to email a verification link.
func (p *HTTPProvider) SendEmailVerification(ctx context.Context, uid string) error {
	return p.post(ctx, "accounts:sendOobCode", map[string]any{
		"requestType": "VERIFY_EMAIL",
		"localId":     uid,
	}, nil)
}

func (p *HTTPProvider) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding identity request")
	}

	target := fmt.Sprintf("%s/v1/%s?key=%s", p.baseURL, endpoint, url.QueryEscape(p.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building identity request")
	}
	req.Header.Set("Content-Type", "application/json")

	p.logger.Debug(ctx, "identity provider call "+endpoint)

	resp, err := p.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return pkgerrors.Wrap(pkgerrors.CodeTimeout, err, "identity provider timed out")
		}
		return MapProviderError(CodeNetworkFailure)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var failure struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&failure); decodeErr != nil {
			return MapProviderError(codeUnknown)
		}
		return MapProviderError(canonicalCode(failure.Error.Message))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding identity response")
	}
	return nil
}

// canonicalCode normalizes the provider's SCREAMING_SNAKE messages to
// the canonical error codes shared with the client SDKs.
func canonicalCode(raw string) string {
	// Quota messages carry a trailing explanation after " : ".
	msg := strings.ToUpper(strings.TrimSpace(strings.SplitN(raw, ":", 2)[0]))
	switch msg {
	case "EMAIL_NOT_FOUND", "USER_NOT_FOUND":
		return CodeUserNotFound
	case "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS":
		return CodeWrongPassword
	case "INVALID_EMAIL", "MISSING_EMAIL":
		return CodeInvalidEmail
	case "TOO_MANY_ATTEMPTS_TRY_LATER", "QUOTA_EXCEEDED":
		return CodeTooManyRequests
	case "EMAIL_EXISTS":
		return CodeEmailAlreadyInUse
	case "FEDERATED_USER_ID_ALREADY_LINKED", "CREDENTIAL_MISMATCH":
		return CodeAccountExists
	case "USER_DISABLED":
		return CodeUserDisabled
	case "EXPIRED_OOB_CODE", "INVALID_OOB_CODE":
		return CodeExpiredCredential
	default:
		return codeUnknown
	}
}

// deadline guard shared by the service layer
func withAuthTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}
