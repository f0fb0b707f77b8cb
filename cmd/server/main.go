package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/jt828/users-api/internal/bootstrap"
	"github.com/jt828/users-api/internal/config"
	"github.com/jt828/users-api/internal/controller"
	"github.com/jt828/users-api/internal/server"
	"github.com/jt828/users-api/internal/service"
	"github.com/jt828/users-api/pkg/health"
	healthImpl "github.com/jt828/users-api/pkg/health/implementation"
	"github.com/jt828/users-api/pkg/observability"
	"github.com/jt828/users-api/pkg/observability/implementation"
	snowflakeImpl "github.com/jt828/users-api/pkg/snowflake/implementation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	obs, err := implementation.NewObservability(cfg.Observability())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize observability: %v\n", err)
		os.Exit(1)
	}
	log := obs.Logger()
	fatal := func(msg string, fields ...observability.Field) {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.LogFlushTimeout)
		defer cancel()
		_ = implementation.CloseWithError(ctx, obs, msg, fields...)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := obs.Start(ctx); err != nil {
		log.Error("failed to start observability", observability.Err(err))
	}

	idGen, err := bootstrap.InitializeSnowflake()
	if err != nil {
		log.Warn("falling back to snowflake node 0", observability.Err(err))
		if idGen, err = snowflakeImpl.NewSnowflake(0); err != nil {
			fatal("failed to initialize snowflake", observability.Err(err))
		}
	}

	dbs, err := bootstrap.InitializeDatabase(cfg.DatabaseDSN, obs.Meter())
	if err != nil {
		log.Error("database connection error", observability.Err(err))
		dbs = bootstrap.UnavailableDatabase(err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ReadinessTimeout)
	if err := dbs.Ping(pingCtx); err != nil {
		log.Error("database connection error", observability.Err(err))
	} else {
		log.Info("connected to database")
	}
	cancel()

	userSvc := service.NewUserService(dbs.UnitOfWorkFactory, idGen, dbs.Retry, obs.Tracer())
	checker := healthImpl.NewChecker(cfg.ReadinessTimeout, health.Dependency{Name: "database", Ping: dbs.Ping})

	handler, err := server.NewRouter(
		cfg.AppName,
		obs,
		controller.NewUserController(userSvc),
		controller.NewHealthController(checker, log),
	)
	if err != nil {
		fatal("failed to build router", observability.Err(err))
	}

	lis, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		fatal("failed to listen", observability.Err(err), observability.String("addr", cfg.Addr()))
	}

	srv := server.New(handler, obs, checker, server.Options{
		ShutdownTimeout: cfg.ShutdownTimeout,
		LogFlushTimeout: cfg.LogFlushTimeout,
	})
	runErr := srv.Run(ctx, lis)
	stop()
	if err := dbs.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close database: %v\n", err)
	}
	if runErr != nil {
		os.Exit(1)
	}
}
