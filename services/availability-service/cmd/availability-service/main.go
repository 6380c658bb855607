package main

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/abidoyedimeji-cell/dana/libs/config"
	"github.com/abidoyedimeji-cell/dana/libs/db"
	"github.com/abidoyedimeji-cell/dana/libs/httpx"
	"github.com/abidoyedimeji-cell/dana/libs/kafkax"
	otelx "github.com/abidoyedimeji-cell/dana/libs/otel"
	"github.com/abidoyedimeji-cell/dana/libs/runtime"
	"github.com/abidoyedimeji-cell/dana/services/availability-service/internal/calendar"
	"github.com/abidoyedimeji-cell/dana/services/availability-service/internal/handlers"
	"github.com/abidoyedimeji-cell/dana/services/availability-service/internal/outbox"
	"github.com/abidoyedimeji-cell/dana/services/availability-service/internal/social"
	"github.com/abidoyedimeji-cell/dana/services/availability-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "availability-service")
	port, err := config.Port("PORT", "8082")
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

	var cache *calendar.Cache
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		redisDB := 0
		if v, err := strconv.Atoi(config.String("REDIS_DB", "0")); err == nil && v >= 0 {
			redisDB = v
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       redisDB,
		})
		defer func() { _ = rdb.Close() }()

		ttl := 5 * time.Minute
		if v, err := strconv.Atoi(config.String("CALENDAR_CACHE_TTL_SECONDS", "300")); err == nil && v > 0 {
			ttl = time.Duration(v) * time.Second
		}
		cache = calendar.NewCache(rdb, ttl, logger)
		logger.Info("calendar cache enabled (redis)", "redis_addr", addr, "ttl", ttl)
	}

	calcom := calendar.NewCalComClient(config.String("CALCOM_BASE_URL", ""), cache, logger)
	calClient := calendar.NewClient(calcom, logger)

	profiles := storage.NewProfileRepository(pool)
	venues := storage.NewVenueRepository(pool)
	meetings := storage.NewMeetingRepository(pool)
	checker := social.NewChecker(logger, pool, config.String("SOCIAL_GRPC_ADDR", ""))

	outboxRepo := outbox.NewRepository(pool)
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	slotsHandler := handlers.NewSlotsHandler(profiles, venues, calClient, logger)
	meetingsHandler := handlers.NewMeetingsHandler(meetings, checker, outboxRepo, logger)
	profileHandler := handlers.NewProfileHandler(profiles, logger)
	venuesHandler := handlers.NewVenuesHandler(venues, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	mux.HandleFunc("/api/v1/slots", slotsHandler.Slots)
	mux.HandleFunc("/api/v1/meetings", meetingsHandler.Meetings)
	mux.HandleFunc("/api/v1/meetings/respond", meetingsHandler.Respond)
	mux.HandleFunc("/api/v1/meetings/cancel", meetingsHandler.Cancel)
	mux.HandleFunc("/api/v1/profile/calendar-links", profileHandler.CalendarLinks)
	mux.HandleFunc("/api/v1/venues", venuesHandler.List)
	mux.HandleFunc("/api/v1/admin/venues", venuesHandler.Admin)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "availability")
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
