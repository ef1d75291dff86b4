package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"absapay-be/internal/cart"
	"absapay-be/internal/checkout"
	"absapay-be/internal/config"
	"absapay-be/internal/db"
	"absapay-be/internal/lock"
	"absapay-be/internal/logger"
	"absapay-be/internal/metrics"
	"absapay-be/internal/middleware"
	"absapay-be/internal/order"
	"absapay-be/internal/payment"
	"absapay-be/internal/payment/callback"
	"absapay-be/internal/settings"
	"absapay-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

var (
	initDBFunc      = db.InitDB
	startServerFunc = func(srv *http.Server) error { return srv.ListenAndServe() }
)

// app holds the wired HTTP handlers.
type app struct {
	checkout   *checkout.Handler
	callback   http.Handler
	settings   *settings.Handler
	auth       *middleware.Auth
	limiter    *middleware.RateLimiter
	metrics    *metrics.Callbacks
	corsOrigin string
	close      func()
}

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := initDBFunc(cfg)
	defer database.Close()

	a := newApp(cfg, database)
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go a.limiter.Run(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           setupRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.L().Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	logger.L().Info("server running",
		zap.String("addr", srv.Addr),
		zap.String("env", cfg.AppEnv),
		zap.Bool("verify_callbacks", cfg.VerifyCallback),
	)

	if err := startServerFunc(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newApp(cfg *config.Config, database *sql.DB) *app {
	orderSvc := order.NewService(order.NewRepository(database))
	cartSvc := cart.NewService(cart.NewRepository(database))
	settingsSvc := settings.NewService(settings.NewRepository(database), settings.Defaults{
		StoreURL:   cfg.StoreURL,
		MerchantID: cfg.MerchantID,
		APIKey:     cfg.APIKey,
		APISecret:  cfg.APISecret,
		TestMode:   cfg.TestMode,
	})

	client := payment.NewClient(payment.WithBaseURLs(cfg.GatewayTestBaseURL, cfg.GatewayLiveBaseURL))
	locker, closeLocker := newLocker(cfg)

	callbackMetrics := &metrics.Callbacks{}
	opts := []callback.Option{
		callback.WithJournal(payment.NewRepository(database)),
		callback.WithMetrics(callbackMetrics),
	}
	if cfg.VerifyCallback {
		opts = append(opts, callback.WithVerifier(client))
	}
	reconciler := callback.NewReconciler(orderSvc, cartSvc, settingsSvc, locker, opts...)

	return &app{
		checkout:   checkout.NewHandler(orderSvc, settingsSvc, payment.NewBuilder(), client),
		callback:   callback.NewHandler(reconciler),
		settings:   settings.NewHandler(settingsSvc),
		auth:       middleware.NewAuth(cfg.JWTSecret),
		limiter:    middleware.NewRateLimiter(cfg.InternalSecretKey),
		metrics:    callbackMetrics,
		corsOrigin: cfg.CORSOrigin,
		close:      closeLocker,
	}
}

// newLocker uses Redis when configured so several server instances share
// per-order locks; otherwise locks are process-local.
func newLocker(cfg *config.Config) (lock.Locker, func()) {
	if cfg.RedisAddr == "" {
		return lock.NewMemory(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	return lock.NewRedis(client, 0), func() {
		if err := client.Close(); err != nil {
			logger.L().Warn("failed to close redis client", zap.Error(err))
		}
	}
}

func setupRouter(a *app) http.Handler {
	r := chi.NewRouter()
	r.Use(
		logger.RequestIDMiddleware,
		logger.LoggingMiddleware,
		middleware.Recover,
		middleware.CORS(a.corsOrigin),
		a.auth.Middleware,
		a.limiter.Middleware,
	)

	r.Get("/health", healthHandler(a.metrics))

	r.Get("/checkout/pay/{orderID}", a.checkout.ReceiptPage)
	r.Post("/checkout/orders/{orderID}/pay", a.checkout.ProcessPayment)

	r.Method(http.MethodGet, "/payment/callback", a.callback)
	r.Method(http.MethodPost, "/payment/callback", a.callback)

	r.Route("/admin/payment-gateway", func(r chi.Router) {
		r.Use(middleware.RequireRole(utils.RoleAdmin))
		r.Get("/settings", a.settings.Get)
		r.Put("/settings", a.settings.Update)
		r.Get("/pages", a.settings.Pages)
	})

	return r
}

type healthResponse struct {
	Status    string           `json:"status"`
	Callbacks metrics.Snapshot `json:"callbacks"`
}

func healthHandler(m *metrics.Callbacks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, healthResponse{Status: "OK", Callbacks: m.Snapshot()})
	}
}
