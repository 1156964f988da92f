package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	accesshandler "legitify/internal/access/handler"
	accessmetrics "legitify/internal/access/metrics"
	accessservice "legitify/internal/access/service"
	accounthandler "legitify/internal/account/handler"
	accountmetrics "legitify/internal/account/metrics"
	accountservice "legitify/internal/account/service"
	affiliationhandler "legitify/internal/affiliation/handler"
	affiliationmetrics "legitify/internal/affiliation/metrics"
	affiliationservice "legitify/internal/affiliation/service"
	credentialhandler "legitify/internal/credential/handler"
	credentialmetrics "legitify/internal/credential/metrics"
	credentialservice "legitify/internal/credential/service"
	"legitify/internal/identity"
	identitymodels "legitify/internal/identity/models"
	jwttoken "legitify/internal/jwt_token"
	"legitify/internal/ledger"
	"legitify/internal/ledger/anchor"
	"legitify/internal/ledger/peercheck"
	"legitify/internal/platform/config"
	"legitify/internal/platform/database"
	"legitify/internal/platform/health"
	"legitify/internal/platform/kafka/producer"
	"legitify/internal/platform/logger"
	"legitify/internal/platform/metrics"
	"legitify/internal/platform/redis"
	"legitify/pkg/platform/middleware/auth"
	"legitify/pkg/platform/middleware/metadata"
	"legitify/pkg/platform/middleware/request"
	"legitify/pkg/platform/middleware/requesttime"
)

const shutdownTimeout = 15 * time.Second

// main wires the stores, the ledger bridge and the HTTP surface, then runs
// the server, the anchor dispatcher and the background loops in one errgroup.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Environment, cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("legitify stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("legitify stopped")
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.IsProduction() && cfg.UsesDefaultSigningKey() {
		return errors.New("JWT_SIGNING_KEY must be set in production")
	}

	log.Info("initializing legitify",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"ledger_channel", cfg.Ledger.Channel,
		"ledger_chaincode", cfg.Ledger.Chaincode,
	)

	processMetrics := metrics.New()
	processMetrics.SetBuildInfo(health.Version, cfg.Environment)
	healthHandler := health.New(cfg.Environment)

	pool, err := database.New(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close() //nolint:errcheck // best-effort on shutdown

	var st *stores
	if pool != nil {
		log.Info("using postgres stores")
		st = newPostgresStores(pool.DB())
		healthHandler.RegisterCheck("database", pool.Health)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		st = newMemoryStores()
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	var notifier *identity.RedisNotifier
	walletOpts := []identity.Option{identity.WithLogger(log)}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck // best-effort on shutdown
		notifier = identity.NewRedisNotifier(redisClient.Client, cfg.Redis.IdentityChannel, log)
		walletOpts = append(walletOpts, identity.WithChangePublisher(notifier))
		healthHandler.RegisterCheck("redis", redisClient.Health)
	}

	// Ledger identity bridge.
	registry, err := identity.NewRegistry(ctx, st.identities, identitymodels.DefaultOrgs(), walletOpts...)
	if err != nil {
		return fmt.Errorf("identity registry: %w", err)
	}
	layout := identity.Layout{Root: cfg.Ledger.CryptoPath}
	enroller := identity.NewEnroller(registry, layout,
		identity.WithEnrollerLogger(log),
		identity.WithEnrollerMetrics(identity.NewMetrics()),
	)
	if err := enroller.EnsureAdmins(ctx); err != nil {
		// Registration fails with enrollment_error until the admin material is provisioned.
		log.Warn("ledger admin identities not imported", "error", err, "crypto_path", cfg.Ledger.CryptoPath)
	}

	profiles := ledger.LayoutProfiles{Layout: layout}
	connector := ledger.NewFabricConnector(registry, profiles,
		ledger.WithChannel(cfg.Ledger.Channel),
		ledger.WithChaincode(cfg.Ledger.Chaincode),
		ledger.WithCommitTimeout(cfg.Ledger.CommitTimeout),
		ledger.WithLogger(log),
	)

	kafkaProducer, err := producer.New(cfg.Kafka, log)
	if err != nil {
		return fmt.Errorf("kafka: %w", err)
	}
	dispatcherOpts := []anchor.Option{
		anchor.WithWorkers(cfg.Anchor.Workers),
		anchor.WithQueueSize(cfg.Anchor.QueueSize),
		anchor.WithTaskTimeout(cfg.Anchor.TaskTimeout),
		anchor.WithMetrics(anchor.NewMetrics()),
		anchor.WithLogger(log),
	}
	if kafkaProducer != nil {
		dispatcherOpts = append(dispatcherOpts, anchor.WithOutcomePublisher(anchor.NewKafkaPublisher(kafkaProducer, cfg.Kafka.AnchorTopic)))
		healthHandler.RegisterCheck("kafka", kafkaProducer.Health)
	}
	dispatcher := anchor.New(connector, dispatcherOpts...)
	healthHandler.RegisterCheck("anchoring", dispatcher.Healthy)

	var checkOpts []peercheck.Option
	if cfg.Ledger.DNSServer != "" {
		checkOpts = append(checkOpts, peercheck.WithResolver(peercheck.NewDNSResolver(cfg.Ledger.DNSServer)))
	}
	checker := peercheck.New(profiles, checkOpts...)
	healthHandler.RegisterCheck("ledger", ledgerCheck(checker, registry, processMetrics))

	// Domain services.
	ledgerReader := ledger.NewReader(connector)
	accountSvc := accountservice.New(st.accounts, enroller,
		accountservice.WithLogger(log),
		accountservice.WithMetrics(accountmetrics.New()),
	)
	affiliationSvc := affiliationservice.New(st.affiliations, st.runner, accountSvc, enroller, dispatcher,
		affiliationservice.WithLogger(log),
		affiliationservice.WithMetrics(affiliationmetrics.New()),
	)
	credentialSvc := credentialservice.New(st.credentials, accountSvc, affiliationSvc, dispatcher,
		credentialservice.WithLogger(log),
		credentialservice.WithMetrics(credentialmetrics.New()),
		credentialservice.WithMaxPayloadSize(cfg.MaxFileSize),
		credentialservice.WithLedgerVerifier(ledgerReader),
	)
	accessSvc := accessservice.New(st.access, st.credentials, dispatcher,
		accessservice.WithLogger(log),
		accessservice.WithMetrics(accessmetrics.New()),
		accessservice.WithLedgerReader(ledgerReader),
	)

	jwtService := jwttoken.NewJWTService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.TokenTTL)
	jwtService.SetEnv(cfg.Environment)

	accountHandler := accounthandler.New(accountSvc, log)
	r := chi.NewRouter()
	r.Use(request.Recovery(log))
	r.Use(request.RequestID)
	r.Use(request.ClientIP(false))
	r.Use(metadata.Handler)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(log))
	r.Use(request.LatencyMiddleware(request.NewMetrics()))
	r.Use(request.BodyLimit(int64(cfg.MaxFileSize)*4/3 + 64*1024))
	r.Use(request.ContentTypeJSON)

	healthHandler.Register(r)
	r.Handle("/metrics", promhttp.Handler())
	accountHandler.RegisterPublic(r)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(jwttoken.NewJWTServiceAdapter(jwtService), log))
		r.Use(auth.ResolveIssuerOrg(affiliationSvc, log))

		accountHandler.Register(r)
		credentialhandler.New(credentialSvc, log).Register(r)
		accesshandler.New(accessSvc, log).Register(r)
		affiliationhandler.New(affiliationSvc, log).Register(r)
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	dispatcher.Start()
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info("shutting down server gracefully")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		// Stop after the server so requests in flight can still enqueue tasks.
		if err := dispatcher.Stop(shutdownCtx); err != nil {
			log.Warn("anchor dispatcher stopped before draining", "error", err)
		}
		if kafkaProducer != nil {
			_ = kafkaProducer.Close(shutdownCtx)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if notifier != nil {
		g.Go(func() error {
			if err := notifier.Subscribe(gctx, registry.Refresh); err != nil && gctx.Err() == nil {
				return fmt.Errorf("identity change subscription: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				processMetrics.RecordDBStats(pool.Stats())
				if redisClient != nil {
					redisClient.RecordPoolStats()
				}
			}
		}
	})

	return g.Wait()
}

// ledgerCheck reports the ledger ready when at least one organization's
// first peer resolves. Per-organization results are exported as metrics.
func ledgerCheck(checker *peercheck.Checker, registry *identity.Registry, m *metrics.Metrics) health.CheckFunc {
	return func(ctx context.Context) error {
		orgs := registry.Orgs()
		names := make([]string, 0, len(orgs))
		for _, org := range orgs {
			names = append(names, org.Name)
		}

		var firstErr string
		connected := false
		for _, status := range checker.CheckAll(ctx, names) {
			m.SetLedgerPeerUp(status.Org, status.Connected)
			if status.Connected {
				connected = true
			} else if firstErr == "" {
				firstErr = status.Org + ": " + status.Error
			}
		}
		if !connected {
			return fmt.Errorf("no ledger peer reachable (%s)", firstErr)
		}
		return nil
	}
}
