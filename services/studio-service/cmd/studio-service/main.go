package main

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/inkdesk/libs/auth"
	"github.com/md-rashed-zaman/inkdesk/libs/config"
	"github.com/md-rashed-zaman/inkdesk/libs/httpx"
	otelx "github.com/md-rashed-zaman/inkdesk/libs/otel"
	"github.com/md-rashed-zaman/inkdesk/libs/runtime"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/grpcserver"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/handlers"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/identity"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/payments"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/permissions"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/scheduling"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/settings"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "studio-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	grpcPort, err := config.Port("GRPC_PORT", "9090")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service, config.String("LOG_LEVEL", "info"))

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

	if err := permissions.Validate(permissions.RequiredPairs...); err != nil {
		logger.Error("permission table incomplete", "err", err)
		panic(err)
	}

	loc, err := time.LoadLocation(config.String("STUDIO_TIMEZONE", "UTC"))
	if err != nil {
		logger.Error("invalid STUDIO_TIMEZONE", "err", err)
		panic(err)
	}

	be, err := openBackend(ctx, logger)
	if err != nil {
		logger.Error("storage init failed", "err", err)
		panic(err)
	}
	defer be.close()

	creds := settings.NewCredentials(be.settings)
	if code := config.String("MASTER_CODE", ""); code != "" {
		if _, ok, err := creds.MasterCodeHash(ctx); err != nil {
			logger.Error("master code lookup failed", "err", err)
		} else if !ok {
			if err := creds.SetMasterCode(ctx, code); err != nil {
				logger.Error("master code bootstrap failed", "err", err)
			} else {
				logger.Info("master code initialised from MASTER_CODE")
			}
		}
	}

	elevationMinutes, err := config.PositiveInt("ELEVATION_MINUTES", int(permissions.DefaultElevation/time.Minute))
	if err != nil {
		panic(err)
	}
	elevations := permissions.NewElevations(permissions.WithDefaultDuration(time.Duration(elevationMinutes) * time.Minute))
	engine := permissions.NewEngine(identity.ContextProvider{}, elevations)

	svcOpts := []scheduling.Option{scheduling.WithLogger(logger)}
	if key := strings.TrimSpace(config.String("STRIPE_SECRET_KEY", "")); key != "" {
		verifier := payments.NewStripeVerifier(key, config.String("STUDIO_CURRENCY", "mxn"), logger)
		svcOpts = append(svcOpts, scheduling.WithCardVerifier(verifier))
		logger.Info("card payment verification enabled (stripe)")
	}
	svc := scheduling.NewService(be.sessions, svcOpts...)

	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}
	var keys identity.KeySource
	if url := strings.TrimSpace(config.String("JWKS_URL", "")); url != "" {
		keys = auth.NewJWKSClient(url, 5*time.Minute)
	}
	authn := identity.Middleware(identity.NewVerifier(jwtSecret, keys), logger)

	attempts, err := config.PositiveInt("ELEVATION_ATTEMPTS_PER_MINUTE", 5)
	if err != nil {
		panic(err)
	}
	var elevationLimit httpx.Middleware
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		redisDB, err := config.Int("REDIS_DB", 0)
		if err != nil {
			panic(err)
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       redisDB,
		})
		defer func() { _ = rdb.Close() }()

		rl := httpx.NewRedisRateLimiter(rdb, attempts, time.Minute, "studio:elevation", limitKey)
		elevationLimit = rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", false))
		be.checks = append(be.checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
		logger.Info("elevation rate limiting enabled (redis)", "per_minute", attempts, "redis_addr", addr)
	} else {
		elevationLimit = httpx.NewRateLimiter(attempts, time.Minute, limitKey).Middleware()
		logger.Info("elevation rate limiting enabled (in-memory)", "per_minute", attempts)
	}

	mux := runtime.NewBaseMuxWithReady(be.checks...)
	routes{
		sessions:       handlers.NewSessionHandler(svc, engine, logger, loc),
		elevation:      handlers.NewElevationHandler(elevations, creds, be.audit, logger),
		permissions:    handlers.NewPermissionHandler(engine),
		settings:       handlers.NewSettingsHandler(creds, engine, logger),
		authn:          authn,
		elevationLimit: elevationLimit,
	}.register(mux)

	requestTimeout, err := config.Duration("REQUEST_TIMEOUT", 15*time.Second)
	if err != nil {
		panic(err)
	}
	corsMaxAge, err := config.Duration("CORS_MAX_AGE", 10*time.Minute)
	if err != nil {
		panic(err)
	}
	httpHandler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			Origins:     config.List("CORS_ALLOWED_ORIGINS", ""),
			Credentials: config.Bool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:      corsMaxAge,
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(requestTimeout),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "studio")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+grpcPort)
	if err != nil {
		logger.Error("grpc listen failed", "err", err)
		panic(err)
	}
	health := grpcserver.NewHealth(logger, 10*time.Second, be.checks...)
	grpcserver.Start(ctx, logger, lis, health)
	go health.Run(ctx)

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
