package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authapi "replyify-site/internal/api/auth"
	billingapi "replyify-site/internal/api/billing"
	"replyify-site/internal/api/pages"
	"replyify-site/internal/api/payment"
	"replyify-site/internal/api/plans"
	"replyify-site/internal/api/users"
	"replyify-site/internal/app/http/middleware"
)

// NewEngine returns a bare engine that takes the client IP from
// X-Forwarded-For only when the peer is one of trustedProxies. With none,
// the peer address is the client IP.
func NewEngine(trustedProxies []string) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(trustedProxies); err != nil {
		return nil, err
	}
	return r, nil
}

type Deps struct {
	Auth        *authapi.Handler
	Billing     *billingapi.Handler
	Payment     *payment.Handler
	Pages       *pages.Handler
	Users       *users.Handler
	PaymentRate *middleware.RateLimiter
	Metrics     http.Handler
}

// RegisterRoutes expects session middleware to be installed on r already.
func RegisterRoutes(r *gin.Engine, d Deps) {
	r.Use(middleware.SecurityHeaders(), middleware.LoadSession(d.Auth.Secret()))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}
	r.StaticFS("/static", pages.Static())

	// Pages
	r.GET("/", d.Pages.Home)
	r.GET("/pricing", d.Pages.Pricing)
	r.GET("/download", d.Pages.Download)

	// Identity provider
	r.GET("/auth/sign-in", d.Auth.SignIn)
	r.GET("/auth/callback", d.Auth.Callback)
	r.POST("/auth/sign-out", d.Auth.SignOut)

	// Signed-in actions
	signedIn := r.Group("/")
	signedIn.Use(middleware.RequireSession(d.Auth.RedirectToSignIn))
	signedIn.POST("/pricing/plan", d.Billing.ChangePlan)

	// JSON API
	api := r.Group("/api")

	paymentChain := []gin.HandlerFunc{}
	if d.PaymentRate != nil {
		paymentChain = append(paymentChain, d.PaymentRate.Middleware())
	}
	paymentChain = append(paymentChain, middleware.RejectMarkup(), d.Payment.Create)
	api.POST("/payment", paymentChain...)

	api.GET("/plans", plans.ListPlans)
	api.GET("/subscription", middleware.RequireUser(), d.Billing.GetSubscription)
	api.GET("/me", middleware.RequireUser(), d.Users.GetCurrentUser)
}
