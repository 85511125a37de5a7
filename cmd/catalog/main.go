package main

import (
	"context"
	"github.com/ariefcatur/go-catalog-orders/internal/auth"
	"github.com/ariefcatur/go-catalog-orders/internal/config"
	"github.com/ariefcatur/go-catalog-orders/internal/discovery"
	"github.com/ariefcatur/go-catalog-orders/internal/events"
	"github.com/ariefcatur/go-catalog-orders/internal/httpx"
	"github.com/ariefcatur/go-catalog-orders/internal/inventory"
	kafkax "github.com/ariefcatur/go-catalog-orders/internal/kafka"
	"github.com/ariefcatur/go-catalog-orders/internal/logging"
	"github.com/ariefcatur/go-catalog-orders/internal/postgres"
	"github.com/ariefcatur/go-catalog-orders/internal/tracing"
	"github.com/joho/godotenv"
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

	cfg := config.Load("catalog-service", ":8082")
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
	if err := postgres.Migrate(ctx, db, postgres.SchemaCatalog); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	// Kafka producer, one per process
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
	prod.Start()
	emitter := &events.Emitter{Sink: prod, Producer: cfg.ServiceName, Log: log}

	policy, err := auth.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		log.Fatal().Err(err).Msg("policy")
	}
	if cfg.S2SKey == "" {
		log.Warn().Msg("S2S_KEY empty: /api/public endpoints are unauthenticated")
	}
	if cfg.JWT.Secret == "" {
		log.Warn().Msg("JWT_SECRET empty: every admin request will be rejected")
	}

	store := &inventory.Store{DB: db}
	router := httpx.NewRouter(cfg.ServiceName, log)
	ch := &httpx.CatalogHandler{
		Products: &inventory.Catalog{Store: store, Ledger: store, Events: emitter, Log: log},
		Reserver: &inventory.Reserver{Ledger: store, Events: emitter, Log: log},
		Guard: &httpx.Guard{
			Verifier: &auth.Verifier{Secret: []byte(cfg.JWT.Secret), Issuer: cfg.JWT.Issuer, Audience: cfg.JWT.Audience},
			Policy:   policy,
		},
		S2SKey: cfg.S2SKey,
	}
	ch.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	var registry *discovery.Consul
	regID := cfg.ServiceName + "-" + hostname()
	if cfg.ConsulAddr != "" {
		registry, err = discovery.NewConsul(cfg.ConsulAddr, log)
		if err != nil {
			log.Warn().Err(err).Msg("consul unavailable, skipping registration")
		} else if err := registry.Register(discovery.Registration{Name: cfg.ServiceName, ID: regID, Addr: cfg.HTTPAddr, Tags: []string{"http"}}); err != nil {
			log.Warn().Err(err).Msg("consul register")
			registry = nil
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
