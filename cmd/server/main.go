package main // server entry point

import (
	"context"   // context carries deadlines and cancellation
	"errors"    // errors for sentinel matching
	"log/slog"  // structured logging
	"net/http"  // http defines status code constants
	"os"        // os reads the environment and files
	"os/signal" // signal handles shutdown signals
	"strings"   // strings trims and normalises text
	"syscall"   // syscall names SIGTERM
	"time"      // time for timestamps and timeouts

	"github.com/labstack/echo/v4"                   // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // Echo built-in middleware

	"github.com/iliyamo/parcel-shipping/internal/auth"                    // identity token verification
	"github.com/iliyamo/parcel-shipping/internal/config"                  // application configuration
	"github.com/iliyamo/parcel-shipping/internal/database"                // database connections
	"github.com/iliyamo/parcel-shipping/internal/handler"                 // HTTP handlers
	"github.com/iliyamo/parcel-shipping/internal/middleware"              // request middleware
	"github.com/iliyamo/parcel-shipping/internal/payment"                 // checkout and reconciliation
	"github.com/iliyamo/parcel-shipping/internal/queue"                   // payment events
	"github.com/iliyamo/parcel-shipping/internal/repository"              // store contracts
	"github.com/iliyamo/parcel-shipping/internal/repository/memstore"     // in-memory store
	"github.com/iliyamo/parcel-shipping/internal/repository/mongostore"   // MongoDB store
	"github.com/iliyamo/parcel-shipping/internal/router"                  // route registration
	queue_publisher "github.com/iliyamo/parcel-shipping/internal/service" // RabbitMQ publisher
	"github.com/iliyamo/parcel-shipping/internal/worker"                  // background sweep
)

// stores bundles one backend's repositories with its shutdown hook.
type stores struct {
	parcels  repository.ParcelStore
	payments repository.PaymentStore
	users    repository.UserStore
	riders   repository.RiderStore
	close    func(context.Context) error
}

func main() {
	cfg, err := config.Load()
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		logger.Error("store unavailable", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}

	verifier, err := newVerifier(cfg)
	if err != nil {
		logger.Error("identity verifier", "error", err)
		os.Exit(1)
	}

	var publisher payment.EventPublisher
	if cfg.Queue.Enabled {
		publisher = queue_publisher.NewPublisher(cfg.Queue.URL, logger)
		consumer := queue.NewConsumer(cfg.Queue.URL, cfg.Queue.LogDir, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("payment consumer stopped", "error", err)
			}
		}()
	}

	gateway := payment.NewStripeGateway(cfg.StripeSecretKey, nil)
	reconciler := payment.NewReconciler(gateway, st.payments, publisher, logger)
	initiator := payment.NewInitiator(gateway, cfg.SiteDomain)

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		logger.Warn("redis unavailable; rate limiting and response cache disabled")
	}
	limiter := middleware.NewRateLimiter(config.LoadRateLimitConfig(), rdb, logger)
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb, logger)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.CORS())
	e.Use(requestLogger(logger))
	e.Use(middleware.Identify(verifier)) // resolve the caller before per-user rate limiting
	e.Use(limiter.Middleware())
	e.Use(cache.Middleware(), cache.InvalidateOnWrite())

	router.RegisterRoutes(e)
	router.RegisterParcels(e, handler.NewParcelHandler(st.parcels))
	router.RegisterPayments(e, handler.NewPaymentHandler(st.parcels, st.payments, initiator, reconciler), verifier)
	router.RegisterUsers(e, handler.NewUserHandler(st.users))
	router.RegisterRiders(e, handler.NewRiderHandler(st.riders, st.users), verifier, st.users)
	if cfg.StripeWebhookSecret != "" {
		router.RegisterWebhooks(e, handler.NewWebhookHandler(payment.NewWebhookVerifier(cfg.StripeWebhookSecret), reconciler, logger))
	}

	if cfg.SweepInterval > 0 {
		sweeper := worker.NewSweeper(st.parcels, st.payments, cfg.SweepWindow, logger)
		sweeper.OnRepair = cache.Invalidate
		go sweeper.Start(ctx, cfg.SweepInterval)
	}

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", "addr", addr, "env", cfg.Env, "store", cfg.StoreDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := st.close(shutdownCtx); err != nil {
		logger.Error("store close", "error", err)
	}
}

func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	switch cfg.StoreDriver {
	case config.DriverMySQL:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, err
		}
		mctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := database.Migrate(mctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return &stores{
			parcels:  repository.NewParcelRepo(db),
			payments: repository.NewPaymentRepo(db),
			users:    repository.NewUserRepo(db),
			riders:   repository.NewRiderRepo(db),
			close:    func(context.Context) error { return db.Close() },
		}, nil

	case config.DriverMongo:
		client, err := database.OpenMongo(cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		ms := mongostore.New(client.Database(cfg.MongoDB))
		ictx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := ms.EnsureIndexes(ictx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return &stores{
			parcels:  ms.Parcels(),
			payments: ms.Payments(),
			users:    ms.Users(),
			riders:   ms.Riders(),
			close:    client.Disconnect,
		}, nil
	}

	mem := memstore.New()
	return &stores{
		parcels:  mem.Parcels(),
		payments: mem.Payments(),
		users:    mem.Users(),
		riders:   mem.Riders(),
		close:    func(context.Context) error { return nil },
	}, nil
}

func newVerifier(cfg config.Config) (auth.Verifier, error) {
	opts := auth.Options{Issuer: cfg.AuthIssuer, Audience: cfg.AuthAudience}
	if cfg.AuthJWTPublicKey != "" {
		pem, err := cfg.PublicKeyPEM()
		if err != nil {
			return nil, err
		}
		return auth.NewRSAVerifier(pem, opts)
	}
	return auth.NewHMACVerifier(cfg.AuthJWTSecret, opts)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			logger.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	})
}
