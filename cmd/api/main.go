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

	"github.com/geocoder89/suiticket/internal/auth"
	"github.com/geocoder89/suiticket/internal/config"
	"github.com/geocoder89/suiticket/internal/contract"
	"github.com/geocoder89/suiticket/internal/db"
	httpx "github.com/geocoder89/suiticket/internal/http"
	"github.com/geocoder89/suiticket/internal/http/handlers"
	"github.com/geocoder89/suiticket/internal/network"
	"github.com/geocoder89/suiticket/internal/observability"
	"github.com/geocoder89/suiticket/internal/panel"
	"github.com/geocoder89/suiticket/internal/poller"
	"github.com/geocoder89/suiticket/internal/query"
	"github.com/geocoder89/suiticket/internal/repo/memory"
	"github.com/geocoder89/suiticket/internal/repo/postgres"
	"github.com/geocoder89/suiticket/internal/session"
	"github.com/geocoder89/suiticket/internal/suirpc"
	"github.com/geocoder89/suiticket/internal/wallet"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type activityStore interface {
	panel.ActivityLog
	handlers.ActivityLister
}

func main() {
	if err := run(); err != nil {
		slog.Error("api exited", "err", err)
		os.Exit(1)
	}
}

// run owns every resource it opens, so its defers close them on any return.
func run() error {
	// Load the config set up
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTelEnabled {
		shutdownTracer, err := observability.InitTracer(ctx, "suiticket-api", cfg.OTelEndpoint)
		if err != nil {
			log.Error("tracer init failed", "err", err)
		} else {
			defer func() {
				sctx, cancel := config.WithTimeout(5 * time.Second)
				defer cancel()
				_ = shutdownTracer(sctx)
			}()
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	ep, err := network.Select(cfg.Network, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("network %q (known: %v): %w", cfg.Network, network.Names(), err)
	}
	contracts := contract.New(cfg.PackageID)

	ledger := suirpc.New(ep.RPCURL, suirpc.WithProm(prom))
	signer := wallet.NewBridge(cfg.WalletBridge, 0)

	checks := []handlers.Check{{Name: "fullnode", Ping: ledger.Ping}}

	var counters session.CounterCache
	if cfg.SessionRedisAddr != "" {
		rc := session.NewRedisCounters(session.RedisConfig{
			Addr:     cfg.SessionRedisAddr,
			Password: cfg.SessionRedisPassword,
			DB:       cfg.SessionRedisDB,
		}, cfg.SessionTTL)
		defer rc.Close()
		counters = rc
		checks = append(checks, handlers.Check{Name: "redis", Ping: rc.Ping})
	} else {
		counters = session.NewMemoryCounters(cfg.SessionTTL)
	}

	var activities activityStore
	switch cfg.TxLogBackend {
	case "postgres":
		pool, err := db.NewPool(ctx, cfg.DBURL)
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer pool.Close()

		if err := db.EnsureActivitySchema(ctx, pool); err != nil {
			return fmt.Errorf("activity schema: %w", err)
		}

		repo := postgres.NewActivityRepo(pool, prom)
		activities = repo
		checks = append(checks, handlers.Check{Name: "postgres", Ping: repo.Ping})
	case "memory", "":
		activities = memory.NewActivityRepo()
	default:
		return fmt.Errorf("unknown TXLOG_BACKEND %q", cfg.TxLogBackend)
	}

	reader := query.NewService(ledger, contracts, log)
	confirmer := poller.New(ledger,
		poller.WithMaxAttempts(cfg.PollMaxAttempts),
		poller.WithDelay(cfg.PollDelay),
		poller.WithMetrics(prom),
		poller.WithLogger(log),
	)

	deps := panel.Deps{
		Registry:  contracts,
		Reader:    reader,
		Signer:    signer,
		Confirmer: confirmer,
		Counters:  counters,
		Activity:  activities,
		Log:       log,
	}
	organizer := panel.NewOrganizer(deps)
	buyer := panel.NewBuyer(deps)

	sessions := auth.NewManager(cfg.JWTSecret, cfg.SessionTTL)

	health := handlers.NewHealthHandler(checks...)

	router := httpx.NewRouter(httpx.Deps{
		Env:      cfg.Env,
		Log:      log,
		Prom:     prom,
		Gatherer: reg,
		Sessions: sessions,
		Health:   health,
		Network:  handlers.NewNetworkHandler(ep, contracts),
		Wallet: handlers.NewWalletHandler(signer, sessions,
			organizer,
			handlers.DisconnectFunc(func(_ context.Context, account string) error {
				buyer.Disconnect(account)
				return nil
			}),
		),
		Panels:          handlers.NewPanelsHandler(organizer, buyer),
		Transactions:    handlers.NewTransactionsHandler(activities),
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		MaxBodyBytes:    cfg.MaxBodyBytes,
	})

	// the write timeout has to outlive a wallet prompt plus confirmation polling
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      150 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "network", ep.Name, "package", cfg.PackageID)
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("server failed: %w", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("server shutting down")
	health.Drain()

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		sctx, cancel := config.WithTimeout(cfg.ShutdownDeadline)
		defer cancel()

		if err := srv.Shutdown(sctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")
	case <-time.After(cfg.ShutdownDeadline + 2*time.Second):
		log.Error("shutdown timed out")
	}

	select {
	case err := <-serveErr:
		return err
	default:
		return nil
	}
}
