package app

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/pos-till/internal/domain/auth"
	"github.com/xenking/pos-till/internal/domain/order"
	"github.com/xenking/pos-till/internal/domain/product"
	"github.com/xenking/pos-till/internal/domain/voucher"
	"github.com/xenking/pos-till/internal/events"
	"github.com/xenking/pos-till/internal/gateway"
	"github.com/xenking/pos-till/internal/handler"
	"github.com/xenking/pos-till/internal/money"
	"github.com/xenking/pos-till/internal/receipt"
	"github.com/xenking/pos-till/internal/settings"
	"github.com/xenking/pos-till/internal/storage/memory"
	"github.com/xenking/pos-till/internal/storage/postgres"
	"github.com/xenking/pos-till/internal/storage/rediscache"
	"github.com/xenking/pos-till/internal/till"
	"github.com/xenking/pos-till/pkg/health"
	"github.com/xenking/pos-till/pkg/httpmiddleware"
)

// Telemetry provides the tracer and meter providers. *app.Telemetry from
// go-faster/sdk implements it.
type Telemetry = httpmiddleware.Telemetry

// stores are the persistence backends selected by configuration.
type stores struct {
	products product.Catalog
	vouchers voucher.Catalog
	orders   order.Repository
	settings settings.Store
	keys     auth.Repository
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc_pause", time.Second, health.GCMaxPauseCheck(time.Second))

	var (
		st  stores
		err error
	)
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
		st = postgresStores(pool)
	} else {
		lg.Info("No database configured, serving the bundled catalog from memory")
		if st, err = memoryStores(cfg); err != nil {
			return err
		}
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return errors.Wrap(err, "parse redis url")
		}
		rdb := redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()

		healthSvc.AddReadinessCheck("redis", 2*time.Second, func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		st.products = rediscache.New(st.products, rdb, rediscache.DefaultTTL, lg.Named("cache"))
	}

	var notifiers []order.Notifier
	if cfg.AMQP.URL != "" {
		pub, err := events.Dial(cfg.AMQP.URL, cfg.AMQP.Queue, lg.Named("events"))
		if err != nil {
			return errors.Wrap(err, "connect amqp")
		}
		defer func() {
			if err := pub.Close(); err != nil {
				lg.Warn("Close amqp publisher", zap.Error(err))
			}
		}()
		healthSvc.AddReadinessCheck("amqp", time.Second, health.ClosedCheck("amqp", pub.IsClosed))
		notifiers = append(notifiers, pub)
	}

	settingsSvc, err := settings.NewService(ctx, st.settings, cfg.GatewayDefaults(), lg.Named("settings"))
	if err != nil {
		return errors.Wrap(err, "create settings service")
	}
	gw := gateway.New(settingsSvc, gateway.Config{
		Timeout: cfg.Gateway.Timeout,
		Breaker: gateway.BreakerConfig{
			MaxRequests:         cfg.Gateway.Breaker.MaxRequests,
			OpenTimeout:         cfg.Gateway.Breaker.OpenTimeout,
			ConsecutiveFailures: cfg.Gateway.Breaker.ConsecutiveFailures,
		},
	},
		gateway.WithLogger(lg.Named("gateway")),
		gateway.WithTracerProvider(m.TracerProvider()),
	)

	out, closeOut, err := printerOutput(cfg.Printer.Output)
	if err != nil {
		return err
	}
	defer closeOut()

	vnd := money.VND()
	tills := till.NewRegistry(till.Deps{
		Products:       st.products,
		Vouchers:       st.vouchers,
		Orders:         st.orders,
		Gateway:        gw,
		Printer:        receipt.NewWriterPrinter(out),
		Receipts:       &receipt.Formatter{Width: cfg.Printer.Width, StoreName: cfg.Printer.StoreName, Money: vnd},
		Money:          vnd,
		Notifiers:      notifiers,
		EnforceStock:   cfg.Cart.EnforceStock,
		AllowedTills:   cfg.Tills.IDs,
		MaxTills:       cfg.Tills.Max,
		Logger:         lg.Named("till"),
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
	})

	var authn *auth.Authenticator
	if cfg.Auth.Enabled {
		authn = auth.NewAuthenticator(st.keys, []byte(cfg.Auth.Pepper))
	}
	h := handler.New(handler.Config{}, tills, st.products, settingsSvc, authn)

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		// Card payments may wait for the gateway timeout.
		WriteTimeout:   cfg.Gateway.Timeout + 10*time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
		Addr:           cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", handler.HeaderAPIKey, httpmiddleware.HeaderRequestID},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("pos-till", m),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

func postgresStores(pool *pgxpool.Pool) stores {
	return stores{
		products: postgres.NewProducts(pool),
		vouchers: postgres.NewVouchers(pool),
		orders:   postgres.NewOrders(pool),
		settings: postgres.NewSettings(pool),
		keys:     postgres.NewAPIKeys(pool),
	}
}

func memoryStores(cfg *Config) (stores, error) {
	catalog, err := memory.NewSeedCatalog()
	if err != nil {
		return stores{}, errors.Wrap(err, "load bundled catalog")
	}
	keys, err := cfg.StaticKeys()
	if err != nil {
		return stores{}, err
	}
	return stores{
		products: catalog,
		vouchers: catalog,
		orders:   memory.NewOrders(),
		settings: settings.NewMemoryStore(),
		keys:     memory.NewAPIKeys(keys),
	}, nil
}

// printerOutput opens the receipt printer sink.
func printerOutput(target string) (io.Writer, func(), error) {
	switch target {
	case "", "stdout":
		return os.Stdout, func() {}, nil
	case "discard":
		return io.Discard, func() {}, nil
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open printer output")
	}
	return f, func() { _ = f.Close() }, nil
}
