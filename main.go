package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"replyify-site/config"
	authapi "replyify-site/internal/api/auth"
	billingapi "replyify-site/internal/api/billing"
	"replyify-site/internal/api/pages"
	"replyify-site/internal/api/payment"
	"replyify-site/internal/api/users"
	routes "replyify-site/internal/app/http"
	"replyify-site/internal/app/http/middleware"
	"replyify-site/internal/infra/backend"
	"replyify-site/internal/infra/logging"
	"replyify-site/internal/infra/metrics"
	"replyify-site/internal/infra/telemetry"
)

const sessionCookie = "replyify_session"

func main() {
	config.LoadEnv()
	logging.Init(config.IsProduction(), config.LOG_FILE)
	defer logging.Log.Sync()
	log := logging.Log

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, config.OTEL_EXPORTER_OTLP_ENDPOINT, config.APP_ENV)
	if err != nil {
		log.Fatal("tracing setup failed", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	provider, err := authapi.NewOIDCProvider(ctx, authapi.ProviderConfig{
		IssuerURL:    config.AUTH_ISSUER_URL,
		ClientID:     config.AUTH_CLIENT_ID,
		ClientSecret: config.AUTH_CLIENT_SECRET,
		RedirectURL:  config.AUTH_REDIRECT_URL,
		LogoutURL:    config.AUTH_LOGOUT_URL,
	})
	if err != nil {
		log.Fatal("identity provider setup failed", zap.Error(err))
	}

	httpClient := backend.NewHTTPClient()
	backends := backend.NewFactory(httpClient, collector)
	webhooks := backend.NewWebhookFactory(httpClient, collector)

	tmpl, err := pages.Templates()
	if err != nil {
		log.Fatal("parse templates", zap.Error(err))
	}

	store := cookie.NewStore([]byte(config.SESSION_SECRET))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(authapi.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})

	r, err := routes.NewEngine(config.TRUSTED_PROXIES)
	if err != nil {
		log.Fatal("invalid TRUSTED_PROXIES", zap.Error(err))
	}
	r.Use(gin.Recovery(), logging.Middleware(), otelgin.Middleware(telemetry.ServiceName))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{config.CORS_ORIGIN},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", logging.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(sessions.Sessions(sessionCookie, store))
	r.SetHTMLTemplate(tmpl)

	billingHandler := billingapi.NewHandler(statusSource(backends), updaterSource(webhooks), collector)

	paymentLimit := middleware.NewRateLimiter(middleware.DefaultPaymentLimit())
	defer paymentLimit.Stop()

	routes.RegisterRoutes(r, routes.Deps{
		Auth:        authapi.NewHandler(provider, []byte(config.SESSION_SECRET), syncerSource(backends), config.APP_URL),
		Billing:     billingHandler,
		Payment:     payment.NewHandler(writerSource(backends), collector),
		Pages:       pages.NewHandler(billingHandler),
		Users:       users.NewHandler(billingHandler),
		PaymentRate: paymentLimit,
		Metrics:     metrics.Handler(reg),
	})

	server := &http.Server{
		Addr:              ":" + config.PORT,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("server starting", zap.String("addr", server.Addr), zap.String("env", config.APP_ENV))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server listen error", zap.Error(err))
		}
	}()

	<-stop
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown failed", zap.Error(err))
	}
	log.Info("server stopped")
}

// The handlers take per-request sources so a missing BACKEND_URL or webhook
// setting surfaces as a 500 on the request that needs it.

func writerSource(f *backend.Factory) payment.WriterSource {
	return func() (payment.Writer, error) {
		c, err := f.Client()
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

func statusSource(f *backend.Factory) billingapi.StatusSource {
	return func() (billingapi.StatusReader, error) {
		c, err := f.Client()
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

func syncerSource(f *backend.Factory) authapi.SyncerSource {
	return func() (authapi.Syncer, error) {
		c, err := f.Client()
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

func updaterSource(f *backend.WebhookFactory) billingapi.UpdaterSource {
	return func() (billingapi.Updater, error) {
		c, err := f.Client()
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}
