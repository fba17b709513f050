package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/storefront-labs/storefront-backend/pkg/auth"
	authsession "github.com/storefront-labs/storefront-backend/pkg/auth/session"
	"github.com/storefront-labs/storefront-backend/pkg/config"
	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
	"github.com/storefront-labs/storefront-backend/pkg/logger"
)

// resendVerificationCallable asks the backend functions gateway to
// re-send the email verification code.
const resendVerificationCallable = "resendVerificationCode"

type sessionIssuer interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type profileEnsurer interface {
	EnsureForIdentity(ctx context.Context, ident *Identity) (*models.Profile, error)
}

type caller interface {
	Call(ctx context.Context, name string, payload any, out any) error
}

// Session is an issued sign-in: the JWT pair plus the resolved profile.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	ProfileID    uuid.UUID `json:"profile_id"`
	Identity     Identity  `json:"identity"`
}

// Service is the identity boundary: provider sign-in plus local JWT
// session issuance.
type Service interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignInFederated(ctx context.Context, providerID, credential string) (*Session, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*Session, error)
	SignOut(ctx context.Context, accessID string) error
	SendPasswordReset(ctx context.Context, email string) error
	SendEmailVerification(ctx context.Context, uid string) error
	ResendVerificationCode(ctx context.Context, uid string) error
	Current(ctx context.Context, uid string) (*Identity, error)
}

type service struct {
	provider Provider
	sessions sessionIssuer
	profiles profileEnsurer
	caller   caller
	jwtCfg   config.JWTConfig
	timeout  time.Duration
	logg     *logger.Logger
}

// NewService wires the identity service. All dependencies are required.
func NewService(
	provider Provider,
	sessions sessionIssuer,
	profiles profileEnsurer,
	c caller,
	jwtCfg config.JWTConfig,
	idCfg config.IdentityConfig,
	logg *logger.Logger,
) (Service, error) {
	if provider == nil {
		return nil, fmt.Errorf("identity provider required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session manager required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile service required")
	}
	if c == nil {
		return nil, fmt.Errorf("callable client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		provider: provider,
		sessions: sessions,
		profiles: profiles,
		caller:   c,
		jwtCfg:   jwtCfg,
		timeout:  idCfg.AuthTimeout,
		logg:     logg,
	}, nil
}

// SignIn authenticates an email/password pair and issues a session.
func (s *service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	ctx, cancel := withAuthTimeout(ctx, s.timeout)
	defer cancel()

	ident, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.issueSession(ctx, ident)
}

// SignInFederated exchanges a social provider credential for a session.
// A dismissed popup surfaces as a silent cancellation.
func (s *service) SignInFederated(ctx context.Context, providerID, credential string) (*Session, error) {
	if strings.TrimSpace(providerID) == "" || strings.TrimSpace(credential) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider and credential are required")
	}

	ctx, cancel := withAuthTimeout(ctx, s.timeout)
	defer cancel()

	ident, err := s.provider.SignInWithIDP(ctx, providerID, credential)
	if err != nil {
		if IsSilent(err) {
			s.logg.Debug(ctx, "federated sign-in dismissed by user")
		}
		return nil, err
	}
	return s.issueSession(ctx, ident)
}

// Refresh rotates the refresh token and mints a fresh access token for
// the same account.
func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*Session, error) {
	claims, err := auth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token")
	}

	newAccessID, newRefresh, err := s.sessions.Rotate(ctx, claims.ID, refreshToken)
	if err != nil {
		if errors.Is(err, authsession.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, err
	}

	now := time.Now()
	token, err := auth.MintAccessToken(s.jwtCfg, now, auth.AccessTokenPayload{
		UserID:      claims.UserID,
		IdentityUID: claims.IdentityUID,
		Email:       claims.Email,
		TwoFactorOK: claims.TwoFactorOK,
		JTI:         newAccessID,
	})
	if err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:  token,
		RefreshToken: newRefresh,
		ExpiresAt:    now.Add(time.Duration(s.jwtCfg.ExpirationMinutes) * time.Minute),
		ProfileID:    claims.UserID,
		Identity:     Identity{UID: claims.IdentityUID, Email: claims.Email},
	}, nil
}

// SignOut revokes the refresh session tied to the access id.
func (s *service) SignOut(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "access id is required")
	}
	return s.sessions.Revoke(ctx, accessID)
}

// SendPasswordReset asks the provider to email a reset link.
func (s *service) SendPasswordReset(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	ctx, cancel := withAuthTimeout(ctx, s.timeout)
	defer cancel()
	return s.provider.SendPasswordReset(ctx, email)
}

// SendEmailVerification asks the provider to email a verification link.
func (s *service) SendEmailVerification(ctx context.Context, uid string) error {
	if strings.TrimSpace(uid) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "uid is required")
	}
	ctx, cancel := withAuthTimeout(ctx, s.timeout)
	defer cancel()
	return s.provider.SendEmailVerification(ctx, uid)
}

// ResendVerificationCode routes through the functions gateway, which
// owns the branded email template.
func (s *service) ResendVerificationCode(ctx context.Context, uid string) error {
	if strings.TrimSpace(uid) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "uid is required")
	}
	ctx, cancel := withAuthTimeout(ctx, s.timeout)
	defer cancel()
	return s.caller.Call(ctx, resendVerificationCallable, map[string]string{"uid": uid}, nil)
}

// Current fetches the live account record, including the email-verified
// flag.
func (s *service) Current(ctx context.Context, uid string) (*Identity, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "uid is required")
	}
	ctx, cancel := withAuthTimeout(ctx, s.timeout)
	defer cancel()
	return s.provider.Lookup(ctx, uid)
}

func (s *service) issueSession(ctx context.Context, ident *Identity) (*Session, error) {
	profile, err := s.profiles.EnsureForIdentity(ctx, ident)
	if err != nil {
		return nil, err
	}

	accessID := authsession.NewAccessID()
	refresh, err := s.sessions.Generate(ctx, accessID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	token, err := auth.MintAccessToken(s.jwtCfg, now, auth.AccessTokenPayload{
		UserID:      profile.ID,
		IdentityUID: ident.UID,
		Email:       ident.Email,
		TwoFactorOK: !profile.TwoFactorEnabled,
		JTI:         accessID,
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithUserID(ctx, profile.ID.String())
	s.logg.Info(ctx, "session issued")

	return &Session{
		AccessToken:  token,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(time.Duration(s.jwtCfg.ExpirationMinutes) * time.Minute),
		ProfileID:    profile.ID,
		Identity:     *ident,
	}, nil
}
