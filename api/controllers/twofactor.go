package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/storefront-labs/storefront-backend/api/middleware"
	"github.com/storefront-labs/storefront-backend/api/responses"
	"github.com/storefront-labs/storefront-backend/api/validators"
	twofactorsvc "github.com/storefront-labs/storefront-backend/internal/twofactor"
	pkgAuth "github.com/storefront-labs/storefront-backend/pkg/auth"
	"github.com/storefront-labs/storefront-backend/pkg/config"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
	"github.com/storefront-labs/storefront-backend/pkg/logger"
)

type twoFactorStartRequest struct {
	Flow   string `json:"flow" validate:"required,oneof=setup login disable"`
	Method string `json:"method" validate:"omitempty,oneof=authenticator email"`
}

type twoFactorVerifyRequest struct {
	Flow string `json:"flow" validate:"required,oneof=setup login disable"`
	Code string `json:"code" validate:"required"`
}

type twoFactorResendRequest struct {
	Flow string `json:"flow" validate:"required,oneof=setup login disable"`
}

type twoFactorDisableRequest struct {
	Code string `json:"code" validate:"required"`
}

// TwoFactorStatus reports the caller's enrollment state.
func TwoFactorStatus(svc twofactorsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "two factor service unavailable"))
			return
		}

		profileID, err := profileIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.Status(r.Context(), profileID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, status)
	}
}

// TwoFactorStart opens a challenge for the requested flow.
func TwoFactorStart(svc twofactorsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "two factor service unavailable"))
			return
		}

		profileID, err := profileIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body twoFactorStartRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		challenge, err := svc.Start(r.Context(), profileID, twofactorsvc.Flow(body.Flow), twofactorsvc.Method(body.Method))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, challenge)
	}
}

// TwoFactorVerify checks the submitted code. A successful login flow also
// mints a replacement access token with the factor satisfied.
func TwoFactorVerify(svc twofactorsvc.Service, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "two factor service unavailable"))
			return
		}

		profileID, err := profileIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body twoFactorVerifyRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		flow := twofactorsvc.Flow(body.Flow)
		if err := svc.Verify(r.Context(), profileID, flow, body.Code); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result := map[string]any{"verified": true}

		if flow == twofactorsvc.FlowLogin {
			token, err := validators.BearerToken(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			upgraded, err := pkgAuth.MintAccessToken(cfg, time.Now(), pkgAuth.AccessTokenPayload{
				UserID:      claims.UserID,
				IdentityUID: claims.IdentityUID,
				Email:       claims.Email,
				TwoFactorOK: true,
				JTI:         claims.ID,
			})
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint token"))
				return
			}
			result["access_token"] = upgraded
		}

		responses.WriteSuccess(w, result)
	}
}

// TwoFactorResend re-delivers the active challenge code.
func TwoFactorResend(svc twofactorsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "two factor service unavailable"))
			return
		}

		profileID, err := profileIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body twoFactorResendRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		challenge, err := svc.Resend(r.Context(), profileID, twofactorsvc.Flow(body.Flow))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, challenge)
	}
}

// TwoFactorDisable unenrolls the caller after a final code check.
func TwoFactorDisable(svc twofactorsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "two factor service unavailable"))
			return
		}

		profileID, err := profileIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body twoFactorDisableRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Disable(r.Context(), profileID, body.Code); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]bool{"enabled": false})
	}
}

func profileIDFromContext(r *http.Request) (uuid.UUID, error) {
	raw := middleware.ProfileIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "profile context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid profile id")
	}
	return id, nil
}
