package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Catalina-leal/Huertohogarapp/internal/config"
	"github.com/Catalina-leal/Huertohogarapp/internal/event"
	handler "github.com/Catalina-leal/Huertohogarapp/internal/handler/http"
	"github.com/Catalina-leal/Huertohogarapp/internal/notification"
	"github.com/Catalina-leal/Huertohogarapp/internal/remote"
	"github.com/Catalina-leal/Huertohogarapp/internal/service"
	"github.com/Catalina-leal/Huertohogarapp/internal/session"
	"github.com/Catalina-leal/Huertohogarapp/pkg/health"
	"github.com/Catalina-leal/Huertohogarapp/pkg/httpclient"
	pkgkafka "github.com/Catalina-leal/Huertohogarapp/pkg/kafka"
	"github.com/Catalina-leal/Huertohogarapp/pkg/tracing"
)

// ServiceName labels logs, metrics and traces.
const ServiceName = "storefront"

// App wires together all dependencies and runs the storefront.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	stores         *stores
	producer       *pkgkafka.Producer
	dispatcher     *notification.Dispatcher
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
	stopBackground context.CancelFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tracerShutdown, err := tracing.InitTracer(ctx, cfg.TracingConfig(ServiceName))
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	healthHandler := health.NewHandler()

	st, err := openStores(ctx, cfg, healthHandler, logger)
	if err != nil {
		_ = tracerShutdown(context.Background())
		return nil, err
	}

	// Kafka is optional; without brokers events are dropped and
	// notifications only reach the log sink.
	var (
		producer  *pkgkafka.Producer
		publisher event.Publisher
		sinks     = []notification.Sink{notification.NewLogSink(logger)}
	)
	if cfg.KafkaEnabled() {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = producer
		sinks = append(sinks, notification.NewKafkaSink(producer))
		healthHandler.RegisterNonCritical("kafka", producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}
	dispatcher := notification.NewDispatcher(sinks, cfg.NotifyQueueSize, cfg.NotifySendTimeout, logger)

	// The remote order API is optional too. The interfaces stay nil when it
	// is off so the services run fully local.
	var (
		remoteOrders  service.RemoteOrders
		remoteCatalog service.RemoteCatalog
		gateway       service.PaymentGateway
	)
	if cfg.RemoteEnabled() {
		httpCfg := httpclient.DefaultConfig()
		httpCfg.Timeout = cfg.RemoteTimeout
		breaker := httpclient.NewCircuitBreakerClient(
			httpclient.New(httpCfg),
			httpclient.DefaultCircuitBreakerConfig("order-api"),
			logger,
		).WithFallback(remote.CircuitOpenFallback)

		client := remote.NewClient(breaker, cfg.RemoteAPIURL, logger)
		remoteOrders, remoteCatalog, gateway = client, client, client
		logger.Info("remote order api enabled", slog.String("url", cfg.RemoteAPIURL))
	}

	// Build the dependency graph.
	provider := session.NewProvider(st.prefs, logger)
	cartService := service.NewCartService(st.cart, logger)
	orderService := service.NewOrderService(st.orders, event.NewProducer(publisher, logger), dispatcher, logger, service.OrderOptions{
		StrictTransitions: cfg.StrictTransitions,
		Remote:            remoteOrders,
	})

	services := handler.Services{
		Cart:     cartService,
		Checkout: service.NewCheckoutService(provider, cartService, orderService, logger),
		Orders:   orderService,
		Payments: service.NewPaymentService(st.orders, gateway, logger),
		Catalog:  service.NewCatalogService(st.products, remoteCatalog, logger),
		Sales:    service.NewSalesService(st.orders, logger),
		Session:  provider,
	}

	bgCtx, stopBackground := context.WithCancel(context.Background())
	router := handler.NewRouter(bgCtx, services, healthHandler, logger, handler.RouterConfig{
		ServiceName:    ServiceName,
		AdminSecret:    cfg.AdminJWTSecret,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	if !cfg.AdminEnabled() {
		logger.Warn("ADMIN_JWT_SECRET is not set, admin endpoints are disabled")
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		stores:         st,
		producer:       producer,
		dispatcher:     dispatcher,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
		stopBackground: stopBackground,
	}, nil
}

// Run serves HTTP and delivers notifications until ctx is canceled or the
// server fails, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	// Notifications drain after the HTTP server has stopped accepting work.
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()

	g.Go(func() error {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.dispatcher.Run(dispatchCtx)
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		}
		stopDispatch()
		return nil
	})

	err := g.Wait()
	a.Shutdown()
	return err
}

// Shutdown releases every resource held by the app.
func (a *App) Shutdown() {
	a.logger.Info("shutting down application...")

	a.stopBackground()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	a.stores.close(a.logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.tracerShutdown(ctx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
}
