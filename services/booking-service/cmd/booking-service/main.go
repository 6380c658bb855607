package main

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/abidoyedimeji-cell/dana/libs/config"
	"github.com/abidoyedimeji-cell/dana/libs/db"
	"github.com/abidoyedimeji-cell/dana/libs/httpx"
	"github.com/abidoyedimeji-cell/dana/libs/kafkax"
	otelx "github.com/abidoyedimeji-cell/dana/libs/otel"
	"github.com/abidoyedimeji-cell/dana/libs/runtime"
	"github.com/abidoyedimeji-cell/dana/services/booking-service/internal/escrow"
	"github.com/abidoyedimeji-cell/dana/services/booking-service/internal/handlers"
	"github.com/abidoyedimeji-cell/dana/services/booking-service/internal/holds"
	"github.com/abidoyedimeji-cell/dana/services/booking-service/internal/outbox"
	"github.com/abidoyedimeji-cell/dana/services/booking-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	invites := storage.NewInviteRepository(pool)
	wallets := storage.NewWalletRepository(pool)
	promos := storage.NewPromoRepository(pool)
	payments := storage.NewPaymentRepository(pool)
	providerEvents := storage.NewProviderEventRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	holdsInterval := time.Minute
	if v, err := strconv.Atoi(config.String("HOLD_RELEASE_INTERVAL_SECONDS", "60")); err == nil && v > 0 {
		holdsInterval = time.Duration(v) * time.Second
	}
	holdsWorker := holds.NewWorker(pool, payments, wallets, logger, holds.WorkerConfig{
		Interval:  holdsInterval,
		BatchSize: 50,
	})
	go holdsWorker.Run(ctx)

	svc := escrow.NewService(invites, wallets, promos, payments, outboxRepo, logger)

	webhookTolerance := int64(300)
	if v, err := strconv.ParseInt(config.String("STRIPE_WEBHOOK_TOLERANCE_SECONDS", "300"), 10, 64); err == nil && v > 0 {
		webhookTolerance = v
	}
	handler := handlers.New(svc, invites, wallets, providerEvents, logger, handlers.Config{
		StripeSecretKey:        config.String("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:    config.String("STRIPE_WEBHOOK_SECRET", ""),
		StripeWebhookTolerance: webhookTolerance,
		CheckoutSuccessURL:     config.String("CHECKOUT_SUCCESS_URL", ""),
		CheckoutCancelURL:      config.String("CHECKOUT_CANCEL_URL", ""),
	})

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.HandleFunc("/api/v1/bookings", handler.Bookings)
	mux.HandleFunc("/api/v1/bookings/accept", handler.Accept)
	mux.HandleFunc("/api/v1/bookings/decline", handler.Decline)
	mux.HandleFunc("/api/v1/bookings/cancel", handler.Cancel)
	mux.HandleFunc("/api/v1/bookings/complete", handler.Complete)
	mux.HandleFunc("/api/v1/bookings/ics", handler.CalendarEvent)
	mux.HandleFunc("/api/v1/wallet", handler.Wallet)
	mux.HandleFunc("/api/v1/wallet/topup", handler.TopUp)
	mux.HandleFunc("/api/v1/promo/apply", handler.ApplyPromo)
	mux.HandleFunc("/api/v1/public/stripe/webhook", handler.StripeWebhook)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
