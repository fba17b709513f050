package identity

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"

	"github.com/storefront-labs/storefront-backend/pkg/auth"
	"github.com/storefront-labs/storefront-backend/pkg/config"
	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
	"github.com/storefront-labs/storefront-backend/pkg/logger"
)

type stubProvider struct {
	identity *Identity
	err      error
	resets   []string
}

func (s *stubProvider) SignInWithPassword(ctx context.Context, email, password string) (*Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.identity, nil
}

func (s *stubProvider) SignInWithIDP(ctx context.Context, providerID, credential string) (*Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.identity, nil
}

func (s *stubProvider) Lookup(ctx context.Context, uid string) (*Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.identity, nil
}

func (s *stubProvider) SendPasswordReset(ctx context.Context, email string) error {
	s.resets = append(s.resets, email)
	return s.err
}

func (s *stubProvider) SendEmailVerification(ctx context.Context, uid string) error {
	return s.err
}

type stubSessions struct {
	generated []string
	revoked   []string
	rotateErr error
}

func (s *stubSessions) Generate(ctx context.Context, accessID string) (string, error) {
	s.generated = append(s.generated, accessID)
	return "refresh-" + accessID, nil
}

func (s *stubSessions) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	return "new-access-id", "new-refresh-token", nil
}

func (s *stubSessions) Revoke(ctx context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

type stubProfiles struct {
	profile *models.Profile
}

func (s *stubProfiles) EnsureForIdentity(ctx context.Context, ident *Identity) (*models.Profile, error) {
	return s.profile, nil
}

type stubIdentityCaller struct {
	names []string
}

func (s *stubIdentityCaller) Call(ctx context.Context, name string, payload any, out any) error {
	s.names = append(s.names, name)
	return nil
}

func jwtTestConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "unit-test-secret",
		Issuer:                 "storefront-test",
		ExpirationMinutes:      15,
		RefreshTokenTTLMinutes: 60,
	}
}

type identityFixture struct {
	svc      Service
	provider *stubProvider
	sessions *stubSessions
	caller   *stubIdentityCaller
	profile  *models.Profile
}

func newIdentityFixture(t *testing.T, provider *stubProvider) *identityFixture {
	t.Helper()
	profile := &models.Profile{ID: uuid.New(), IdentityUID: "uid-1", Email: "shopper@example.com"}
	fx := &identityFixture{
		provider: provider,
		sessions: &stubSessions{},
		caller:   &stubIdentityCaller{},
		profile:  profile,
	}
	svc, err := NewService(
		fx.provider,
		fx.sessions,
		&stubProfiles{profile: profile},
		fx.caller,
		jwtTestConfig(),
		config.IdentityConfig{},
		logger.New(logger.Options{Output: io.Discard}),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	fx.svc = svc
	return fx
}

func TestSignInIssuesSession(t *testing.T) {
	fx := newIdentityFixture(t, &stubProvider{
		identity: &Identity{UID: "uid-1", Email: "shopper@example.com", EmailVerified: true},
	})

	sess, err := fx.svc.SignIn(context.Background(), "shopper@example.com", "hunter2")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if sess.ProfileID != fx.profile.ID {
		t.Fatalf("profile id mismatch")
	}
	if sess.AccessToken == "" || sess.RefreshToken == "" {
		t.Fatalf("session missing tokens")
	}
	if len(fx.sessions.generated) != 1 {
		t.Fatalf("refresh session not stored")
	}

	claims, err := auth.ParseAccessToken(jwtTestConfig(), sess.AccessToken)
	if err != nil {
		t.Fatalf("parse minted token: %v", err)
	}
	if claims.UserID != fx.profile.ID || claims.IdentityUID != "uid-1" {
		t.Fatalf("claims = %+v", claims)
	}
	if !claims.TwoFactorOK {
		t.Fatalf("profile without 2FA should mint a two_factor_ok token")
	}
}

func TestSignInWithTwoFactorEnabledMintsPendingToken(t *testing.T) {
	fx := newIdentityFixture(t, &stubProvider{
		identity: &Identity{UID: "uid-1", Email: "shopper@example.com"},
	})
	fx.profile.TwoFactorEnabled = true

	sess, err := fx.svc.SignIn(context.Background(), "shopper@example.com", "hunter2")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	claims, err := auth.ParseAccessToken(jwtTestConfig(), sess.AccessToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.TwoFactorOK {
		t.Fatalf("2FA account must wait for the second factor")
	}
}

func TestSignInRejectsBlankCredentials(t *testing.T) {
	fx := newIdentityFixture(t, &stubProvider{})

	_, err := fx.svc.SignIn(context.Background(), "  ", "")
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSignInPropagatesProviderFailure(t *testing.T) {
	fx := newIdentityFixture(t, &stubProvider{err: MapProviderError(CodeWrongPassword)})

	_, err := fx.svc.SignIn(context.Background(), "shopper@example.com", "wrong")
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	fx := newIdentityFixture(t, &stubProvider{
		identity: &Identity{UID: "uid-1", Email: "shopper@example.com"},
	})

	sess, err := fx.svc.SignIn(context.Background(), "shopper@example.com", "hunter2")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}

	refreshed, err := fx.svc.Refresh(context.Background(), sess.AccessToken, sess.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken != "new-refresh-token" {
		t.Fatalf("refresh token not rotated")
	}
	claims, err := auth.ParseAccessToken(jwtTestConfig(), refreshed.AccessToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.ID != "new-access-id" {
		t.Fatalf("jti = %s, want new-access-id", claims.ID)
	}
	if claims.UserID != fx.profile.ID {
		t.Fatalf("rotation must preserve the account")
	}
}

func TestRefreshRejectsGarbageAccessToken(t *testing.T) {
	fx := newIdentityFixture(t, &stubProvider{})

	_, err := fx.svc.Refresh(context.Background(), "not-a-jwt", "refresh")
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestSignOutRevokesSession(t *testing.T) {
	fx := newIdentityFixture(t, &stubProvider{})

	if err := fx.svc.SignOut(context.Background(), "access-id"); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if len(fx.sessions.revoked) != 1 || fx.sessions.revoked[0] != "access-id" {
		t.Fatalf("session not revoked")
	}
}

func TestResendVerificationCodeUsesCallable(t *testing.T) {
	fx := newIdentityFixture(t, &stubProvider{})

	if err := fx.svc.ResendVerificationCode(context.Background(), "uid-1"); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if len(fx.caller.names) != 1 || fx.caller.names[0] != "resendVerificationCode" {
		t.Fatalf("callable not invoked, got %v", fx.caller.names)
	}
}
