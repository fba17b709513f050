package twofactor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/storefront-labs/storefront-backend/pkg/config"
	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
	"github.com/storefront-labs/storefront-backend/pkg/logger"
	"github.com/storefront-labs/storefront-backend/pkg/security"
)

// Flow identifies why a second-factor challenge is running.
type Flow string

const (
	FlowSetup   Flow = "setup"
	FlowLogin   Flow = "login"
	FlowDisable Flow = "disable"
)

// Method is the active second factor.
type Method string

const (
	MethodAuthenticator Method = "authenticator"
	MethodEmail         Method = "email"
)

// Callable names handled by the functions gateway.
const (
	sendCodeCallable            = "sendTwoFactorCode"
	verifyAuthenticatorCallable = "verifyAuthenticatorCode"
)

// Challenge describes a started second-factor check.
type Challenge struct {
	Flow      Flow      `json:"flow"`
	Method    Method    `json:"method"`
	CodeSent  bool      `json:"code_sent"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Status reports whether an account has a second factor and which one.
type Status struct {
	Enabled bool   `json:"enabled"`
	Method  Method `json:"method,omitempty"`
}

type codeStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	TwoFactorCodeKey(userID, flow string) string
}

type profileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	SetTwoFactor(ctx context.Context, id uuid.UUID, enabled bool, method *string) error
}

type caller interface {
	Call(ctx context.Context, name string, payload any, out any) error
}

// Service runs second-factor challenges for setup, login and disable.
type Service interface {
	Status(ctx context.Context, profileID uuid.UUID) (*Status, error)
	Start(ctx context.Context, profileID uuid.UUID, flow Flow, method Method) (*Challenge, error)
	Verify(ctx context.Context, profileID uuid.UUID, flow Flow, code string) error
	Resend(ctx context.Context, profileID uuid.UUID, flow Flow) (*Challenge, error)
	Disable(ctx context.Context, profileID uuid.UUID, code string) error
}

type service struct {
	store    codeStore
	profiles profileStore
	caller   caller
	security config.SecurityConfig
	timeout  time.Duration
	codeTTL  time.Duration
	codeLen  int
	logg     *logger.Logger
}

// NewService wires the two-factor service.
func NewService(
	store codeStore,
	profiles profileStore,
	c caller,
	secCfg config.SecurityConfig,
	cfg config.TwoFactorConfig,
	logg *logger.Logger,
) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("code store required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile store required")
	}
	if c == nil {
		return nil, fmt.Errorf("callable client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	timeout := cfg.CheckTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ttl := cfg.CodeTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	codeLen := cfg.CodeLength
	if codeLen <= 0 {
		codeLen = 6
	}
	return &service{
		store:    store,
		profiles: profiles,
		caller:   c,
		security: secCfg,
		timeout:  timeout,
		codeTTL:  ttl,
		codeLen:  codeLen,
		logg:     logg,
	}, nil
}

// Status checks whether the account has a second factor configured. The
// check runs under its own deadline so a slow store cannot stall login.
func (s *service) Status(ctx context.Context, profileID uuid.UUID) (*Status, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	profile, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeTimeout, err, "two-factor status check timed out")
		}
		return nil, err
	}

	status := &Status{Enabled: profile.TwoFactorEnabled}
	if profile.TwoFactorMethod != nil {
		status.Method = Method(*profile.TwoFactorMethod)
	}
	return status, nil
}

// Start opens a challenge. Setup uses the requested method; login and
// disable use the method already on the profile.
func (s *service) Start(ctx context.Context, profileID uuid.UUID, flow Flow, method Method) (*Challenge, error) {
	if err := validFlow(flow); err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		return nil, err
	}

	switch flow {
	case FlowSetup:
		if profile.TwoFactorEnabled {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "two-factor is already enabled")
		}
		if err := validMethod(method); err != nil {
			return nil, err
		}
	default:
		if !profile.TwoFactorEnabled || profile.TwoFactorMethod == nil {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "two-factor is not enabled")
		}
		method = Method(*profile.TwoFactorMethod)
	}

	challenge := &Challenge{Flow: flow, Method: method}
	if method == MethodEmail {
		expiresAt, err := s.issueEmailCode(ctx, profile, flow)
		if err != nil {
			return nil, err
		}
		challenge.CodeSent = true
		challenge.ExpiresAt = expiresAt
	}
	return challenge, nil
}

// Verify checks the submitted code. A successful setup verification
// turns the factor on; login and disable verifications consume the
// challenge without changing enrollment (Disable handles the rest).
func (s *service) Verify(ctx context.Context, profileID uuid.UUID, flow Flow, code string) error {
	if err := validFlow(flow); err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "verification code is required")
	}

	profile, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		return err
	}

	method := MethodEmail
	if flow == FlowSetup {
		// Setup challenges for authenticator apps verify against the
		// gateway, everything else against the emailed code.
		if stored, storeErr := s.storedCode(ctx, profileID, flow); storeErr == nil && stored != "" {
			method = MethodEmail
		} else {
			method = MethodAuthenticator
		}
	} else if profile.TwoFactorMethod != nil {
		method = Method(*profile.TwoFactorMethod)
	}

	switch method {
	case MethodAuthenticator:
		if err := s.verifyAuthenticator(ctx, profile, code); err != nil {
			return err
		}
	case MethodEmail:
		if err := s.verifyEmailCode(ctx, profileID, flow, code); err != nil {
			return err
		}
	}

	if flow == FlowSetup {
		name := string(method)
		if err := s.profiles.SetTwoFactor(ctx, profileID, true, &name); err != nil {
			return err
		}
		s.logg.Info(ctx, "two-factor enabled")
	}
	return nil
}

// Resend re-issues the emailed code for an open challenge.
func (s *service) Resend(ctx context.Context, profileID uuid.UUID, flow Flow) (*Challenge, error) {
	if err := validFlow(flow); err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if flow != FlowSetup && (profile.TwoFactorMethod == nil || Method(*profile.TwoFactorMethod) != MethodEmail) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only emailed codes can be resent")
	}

	expiresAt, err := s.issueEmailCode(ctx, profile, flow)
	if err != nil {
		return nil, err
	}
	return &Challenge{Flow: flow, Method: MethodEmail, CodeSent: true, ExpiresAt: expiresAt}, nil
}

// Disable verifies the code under the disable flow and turns the
// second factor off.
func (s *service) Disable(ctx context.Context, profileID uuid.UUID, code string) error {
	if err := s.Verify(ctx, profileID, FlowDisable, code); err != nil {
		return err
	}
	if err := s.profiles.SetTwoFactor(ctx, profileID, false, nil); err != nil {
		return err
	}
	s.logg.Info(ctx, "two-factor disabled")
	return nil
}

func (s *service) issueEmailCode(ctx context.Context, profile *models.Profile, flow Flow) (time.Time, error) {
	code, err := security.GenerateNumericCode(s.codeLen)
	if err != nil {
		return time.Time{}, err
	}
	hash, err := security.HashCode(code, s.security)
	if err != nil {
		return time.Time{}, err
	}

	key := s.store.TwoFactorCodeKey(profile.ID.String(), string(flow))
	if err := s.store.Set(ctx, key, hash, s.codeTTL); err != nil {
		return time.Time{}, err
	}

	err = s.caller.Call(ctx, sendCodeCallable, map[string]string{
		"email": profile.Email,
		"code":  code,
		"flow":  string(flow),
	}, nil)
	if err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sending verification code")
	}
	return time.Now().Add(s.codeTTL), nil
}

func (s *service) storedCode(ctx context.Context, profileID uuid.UUID, flow Flow) (string, error) {
	return s.store.Get(ctx, s.store.TwoFactorCodeKey(profileID.String(), string(flow)))
}

func (s *service) verifyEmailCode(ctx context.Context, profileID uuid.UUID, flow Flow, code string) error {
	key := s.store.TwoFactorCodeKey(profileID.String(), string(flow))
	stored, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "verification code expired or was never sent")
		}
		return err
	}

	ok, err := security.VerifyCode(code, stored)
	if err != nil {
		return err
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "incorrect verification code")
	}
	return s.store.Del(ctx, key)
}

func (s *service) verifyAuthenticator(ctx context.Context, profile *models.Profile, code string) error {
	return s.caller.Call(ctx, verifyAuthenticatorCallable, map[string]string{
		"uid":  profile.IdentityUID,
		"code": code,
	}, nil)
}

func validFlow(flow Flow) error {
	switch flow {
	case FlowSetup, FlowLogin, FlowDisable:
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "unknown two-factor flow")
}

func validMethod(method Method) error {
	switch method {
	case MethodAuthenticator, MethodEmail:
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "unknown two-factor method")
}
