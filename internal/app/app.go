package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/velmark/taskrail-backend/internal/adapter/postgres"
	bindingrepo "github.com/velmark/taskrail-backend/internal/adapter/postgres/binding"
	registryrepo "github.com/velmark/taskrail-backend/internal/adapter/postgres/registry"
	trashrepo "github.com/velmark/taskrail-backend/internal/adapter/postgres/trash"
	"github.com/velmark/taskrail-backend/internal/backend"
	"github.com/velmark/taskrail-backend/internal/config"
	"github.com/velmark/taskrail-backend/internal/domain"
	"github.com/velmark/taskrail-backend/internal/resolver"
	bulksvc "github.com/velmark/taskrail-backend/internal/service/bulk"
	tenancysvc "github.com/velmark/taskrail-backend/internal/service/tenancy"
	trashsvc "github.com/velmark/taskrail-backend/internal/service/trash"
	"github.com/velmark/taskrail-backend/internal/sweeper"
	"github.com/velmark/taskrail-backend/internal/transport/middleware"
	"github.com/velmark/taskrail-backend/internal/transport/rest"
)

// Run is the application entry point. It loads configuration, wires the
// resolver, services and HTTP transport, starts the background sweeper,
// and serves until the context is cancelled, then shuts down gracefully.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)
	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	shared := backend.NewPostgres(domain.BackendSharedAdmin, domain.SharedAdminKey, pool)
	cache := resolver.NewCache()
	defer func() {
		if cerr := cache.Close(); cerr != nil {
			logger.Warn("close connection cache", slog.String("error", cerr.Error()))
		}
	}()

	bindings := bindingrepo.New(pool)
	registry := registryrepo.New(pool)
	ledger := trashrepo.New(pool)
	txManager := postgres.NewTxManager(pool)

	res := resolver.New(logger, cache, bindings, registry, shared, resolver.Config{
		UserDSNTemplate: cfg.Tenancy.UserDSNTemplate,
		StepTimeout:     cfg.Tenancy.StepTimeout,
		TenantMaxConns:  cfg.Tenancy.TenantMaxConns,
	})

	trash := trashsvc.New(logger, res, ledger)
	bulk := bulksvc.New(logger, res, trash)
	tenancy := tenancysvc.New(logger, bindings, registry, txManager, cache)

	sw := sweeper.New(logger, ledger, cfg.Sweep.Interval, cfg.Sweep.PageSize)
	go sw.Run(ctx)

	router := rest.NewRouter(rest.Handlers{
		Health:  rest.NewHealthHandler(pool, BuildVersion()),
		Trash:   rest.NewTrashHandler(trash, logger),
		Bulk:    rest.NewBulkHandler(bulk, logger),
		Tenancy: rest.NewTenancyHandler(tenancy, logger),
	})

	limiter := middleware.NewRateLimiter(time.Minute)
	defer limiter.Stop()

	handler := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.CORS(cfg.CORS),
		limiter.Limit(cfg.Server.RateLimitPerMin),
		middleware.Actor(),
	)(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if serr := srv.ListenAndServe(); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
