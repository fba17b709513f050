package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/storefront-labs/storefront-backend/api/controllers"
	"github.com/storefront-labs/storefront-backend/api/middleware"
	cartsvc "github.com/storefront-labs/storefront-backend/internal/cart"
	checkoutsvc "github.com/storefront-labs/storefront-backend/internal/checkout"
	identitysvc "github.com/storefront-labs/storefront-backend/internal/identity"
	pricingsvc "github.com/storefront-labs/storefront-backend/internal/pricing"
	productsvc "github.com/storefront-labs/storefront-backend/internal/products"
	profilesvc "github.com/storefront-labs/storefront-backend/internal/profiles"
	twofactorsvc "github.com/storefront-labs/storefront-backend/internal/twofactor"
	"github.com/storefront-labs/storefront-backend/pkg/auth/session"
	"github.com/storefront-labs/storefront-backend/pkg/config"
	"github.com/storefront-labs/storefront-backend/pkg/logger"
	"github.com/storefront-labs/storefront-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs. Optional entries (redis
// for rate limiting, health pingers) may be nil.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	Redis          *redis.Client
	SessionChecker session.AccessSessionChecker
	HealthPingers  map[string]controllers.Pinger

	Identity  identitysvc.Service
	TwoFactor twofactorsvc.Service
	Profiles  profilesvc.Service
	Products  productsvc.Service
	Carts     cartsvc.Service
	Pricing   pricingsvc.Service
	Checkout  checkoutsvc.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	signInPolicy := middleware.NewAuthRateLimitPolicy(
		"sign-in",
		cfg.AuthRateLimit.SignInWindow,
		cfg.AuthRateLimit.SignInIPLimit,
		cfg.AuthRateLimit.SignInEmailLimit,
	)
	resetPolicy := middleware.NewAuthRateLimitPolicy(
		"password-reset",
		cfg.AuthRateLimit.ResetWindow,
		cfg.AuthRateLimit.ResetIPLimit,
		cfg.AuthRateLimit.ResetEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.HealthPingers))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(signInPolicy, d.Redis, logg)).Post("/sign-in", controllers.AuthSignIn(d.Identity, logg))
		r.With(middleware.AuthRateLimit(signInPolicy, d.Redis, logg)).Post("/sign-in/federated", controllers.AuthSignInFederated(d.Identity, logg))
		r.Post("/refresh", controllers.AuthRefresh(d.Identity, logg))
		r.Post("/sign-out", controllers.AuthSignOut(d.Identity, cfg.JWT, logg))
		r.With(middleware.AuthRateLimit(resetPolicy, d.Redis, logg)).Post("/password-reset", controllers.AuthPasswordReset(d.Identity, logg))
	})

	// Catalog reads are public.
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/{productId}", controllers.ProductGet(d.Products, logg))
		r.Get("/{productId}/reviews", controllers.ProductReviewsList(d.Products, logg))
	})
	r.Get("/api/v1/sellers/{sellerId}/products", controllers.SellerProductsList(d.Products, logg))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.SessionChecker, logg))

		r.Route("/v1/auth", func(r chi.Router) {
			r.Get("/me", controllers.AuthMe(d.Identity, logg))
			r.Post("/email-verification", controllers.AuthSendEmailVerification(d.Identity, logg))
			r.Post("/resend-code", controllers.AuthResendVerificationCode(d.Identity, logg))
		})

		r.Route("/v1/two-factor", func(r chi.Router) {
			r.Get("/", controllers.TwoFactorStatus(d.TwoFactor, logg))
			r.Post("/start", controllers.TwoFactorStart(d.TwoFactor, logg))
			r.Post("/verify", controllers.TwoFactorVerify(d.TwoFactor, cfg.JWT, logg))
			r.Post("/resend", controllers.TwoFactorResend(d.TwoFactor, logg))
			r.Post("/disable", controllers.TwoFactorDisable(d.TwoFactor, logg))
		})

		// Everything past this point requires a fully verified session.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireTwoFactor(logg))

			r.Route("/v1/profile", func(r chi.Router) {
				r.Get("/", controllers.ProfileMe(d.Profiles, logg))
				r.Patch("/", controllers.ProfileUpdate(d.Profiles, logg))
				r.Put("/seller-info", controllers.ProfileSellerInfoUpsert(d.Profiles, logg))
				r.Post("/favorite-sellers", controllers.ProfileFavoriteSellerAdd(d.Profiles, logg))
				r.Delete("/favorite-sellers/{sellerId}", controllers.ProfileFavoriteSellerRemove(d.Profiles, logg))
				r.Route("/addresses", func(r chi.Router) {
					r.Get("/", controllers.ProfileAddressList(d.Profiles, logg))
					r.Post("/", controllers.ProfileAddressAdd(d.Profiles, logg))
					r.Put("/{addressId}", controllers.ProfileAddressUpdate(d.Profiles, logg))
					r.Delete("/{addressId}", controllers.ProfileAddressRemove(d.Profiles, logg))
					r.Post("/{addressId}/default", controllers.ProfileAddressSetDefault(d.Profiles, logg))
				})
				r.Route("/payment-methods", func(r chi.Router) {
					r.Get("/", controllers.ProfilePaymentMethodList(d.Profiles, logg))
					r.Post("/", controllers.ProfilePaymentMethodAdd(d.Profiles, logg))
					r.Delete("/{methodId}", controllers.ProfilePaymentMethodRemove(d.Profiles, logg))
					r.Post("/{methodId}/default", controllers.ProfilePaymentMethodSetDefault(d.Profiles, logg))
				})
			})

			r.Route("/v1/products/{productId}/reviews", func(r chi.Router) {
				r.Post("/", controllers.ProductReviewAdd(d.Products, logg))
			})
			r.Post("/v1/reviews/{reviewId}/translate", controllers.ProductReviewTranslate(d.Products, logg))

			r.Route("/v1/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(d.Carts, d.Pricing, logg))
				r.Get("/totals", controllers.CartTotals(d.Carts, d.Pricing, logg))
				r.Post("/items", controllers.CartAddItem(d.Carts, d.Pricing, logg))
				r.Patch("/items/{itemId}", controllers.CartUpdateQuantity(d.Carts, d.Pricing, logg))
				r.Delete("/items/{itemId}", controllers.CartRemoveItem(d.Carts, d.Pricing, logg))
				r.Post("/items/{itemId}/toggle", controllers.CartToggleSelection(d.Carts, d.Pricing, logg))
			})

			r.Route("/v1/checkout", func(r chi.Router) {
				r.Get("/state", controllers.CheckoutState(d.Checkout, d.Carts, logg))
				r.Post("/begin", controllers.CheckoutBegin(d.Checkout, d.Carts, logg))
				r.Get("/review", controllers.CheckoutReview(d.Checkout, d.Carts, logg))
				r.Post("/continue", controllers.CheckoutContinue(d.Checkout, d.Carts, logg))
				r.Post("/cancel", controllers.CheckoutCancel(d.Checkout, d.Carts, logg))
				r.Post("/confirm", controllers.CheckoutConfirm(d.Checkout, d.Carts, logg))
			})
		})
	})

	return r
}
