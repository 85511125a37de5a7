package main

import (
	"context"
	"github.com/ariefcatur/go-catalog-orders/internal/auth"
	"github.com/ariefcatur/go-catalog-orders/internal/catalogclient"
	"github.com/ariefcatur/go-catalog-orders/internal/config"
	"github.com/ariefcatur/go-catalog-orders/internal/discovery"
	"github.com/ariefcatur/go-catalog-orders/internal/events"
	"github.com/ariefcatur/go-catalog-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-catalog-orders/internal/kafka"
	"github.com/ariefcatur/go-catalog-orders/internal/logging"
	"github.com/ariefcatur/go-catalog-orders/internal/orders"
	"github.com/ariefcatur/go-catalog-orders/internal/postgres"
	"github.com/ariefcatur/go-catalog-orders/internal/redisx"
	"github.com/ariefcatur/go-catalog-orders/internal/tracing"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	_ = godotenv.Load()
	decimal.MarshalJSONWithoutQuotes = true

	cfg := config.Load("admin-order-service", ":8081")
	log := logging.New(cfg.ServiceName, cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(cfg.ServiceName, cfg.JaegerEndpoint, log)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing")
	}

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, 20)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db, postgres.SchemaOrders); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	// Redis is optional: without it there is no idempotency, order cache or lookup cache
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		if rdb, err = redisx.New(ctx, cfg.RedisAddr); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, caches disabled")
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	// Kafka producer, one per process
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
	prod.Start()
	emitter := &events.Emitter{Sink: prod, Producer: cfg.ServiceName, Log: log}

	// Catalog: a fixed base URL wins over consul discovery
	var registry *discovery.Consul
	if cfg.ConsulAddr != "" {
		if registry, err = discovery.NewConsul(cfg.ConsulAddr, log); err != nil {
			log.Warn().Err(err).Msg("consul unavailable")
			registry = nil
		}
	}
	var resolver catalogclient.Resolver
	switch {
	case cfg.CatalogBaseURL != "":
		resolver = catalogclient.StaticURL(cfg.CatalogBaseURL)
	case registry != nil:
		resolver = registry.Resolver(cfg.CatalogService)
	case !cfg.DevBypassCatalog:
		log.Fatal().Msg("CATALOG_BASE_URL or CONSUL_ADDR required")
	}
	if cfg.DevBypassCatalog {
		log.Warn().Msg("DEV_BYPASS_CATALOG=1: orders use placeholder snapshots and confirm without reserving")
	}

	var cache catalogclient.SnapshotCache
	if rdb != nil && cfg.LookupCacheTTL > 0 {
		cache = &catalogclient.RedisCache{Redis: rdb, TTL: cfg.LookupCacheTTL}
	}
	catalog := catalogclient.New(catalogclient.Options{
		Resolver: resolver,
		Key:      cfg.S2SKey,
		Timeout:  cfg.CatalogTimeout,
		Cache:    cache,
		Log:      log.With().Str("component", "catalogclient").Logger(),
	})

	repo := &orders.Repo{DB: db}
	svc := &orders.Service{
		Orders:    repo,
		Customers: repo,
		Carts:     repo,
		Catalog:   catalog,
		Events:    emitter,
		Log:       log,
		DevBypass: cfg.DevBypassCatalog,
	}

	policy, err := auth.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		log.Fatal().Err(err).Msg("policy")
	}
	if cfg.JWT.Secret == "" {
		log.Warn().Msg("JWT_SECRET empty: every admin request will be rejected")
	}
	guard := &httpx.Guard{
		Verifier: &auth.Verifier{Secret: []byte(cfg.JWT.Secret), Issuer: cfg.JWT.Issuer, Audience: cfg.JWT.Audience},
		Policy:   policy,
	}

	router := httpx.NewRouter(cfg.ServiceName, log)
	(&httpx.OrdersHandler{Orders: svc, Redis: rdb, Guard: guard}).Register(router)
	(&httpx.CustomersHandler{Customers: svc, Guard: guard}).Register(router)
	(&httpx.CartsHandler{Carts: svc, Guard: guard}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	regID := cfg.ServiceName + "-" + hostname()
	if registry != nil {
		if err := registry.Register(discovery.Registration{Name: cfg.ServiceName, ID: regID, Addr: cfg.HTTPAddr, Tags: []string{"http"}}); err != nil {
			log.Warn().Err(err).Msg("consul register")
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	if cache != nil {
		inv := &catalogclient.Invalidator{Cache: cache, Redis: rdb, Consumer: cfg.ConsumerGroup, Log: log}
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ConsumerGroup,
			[]string{events.TopicStockReserved, events.TopicProductChanged}, cfg.ConsumerWorkers, log)
		g.Go(func() error {
			log.Info().Str("group", cfg.ConsumerGroup).Int("workers", cfg.ConsumerWorkers).Msg("cache invalidation consumer started")
			if err := cons.Start(gctx, inv.Handle); err != nil {
				// stale snapshots expire with the TTL; keep serving
				log.Error().Err(err).Msg("consumer exit")
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down...")
		if registry != nil {
			if err := registry.Deregister(regID); err != nil {
				log.Warn().Err(err).Msg("consul deregister")
			}
		}
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
		prod.Close()
		prod.WaitClosed(sctx)
		return shutdownTracing(sctx)
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("exit")
		os.Exit(1)
	}
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "local"
	}
	return h
}
