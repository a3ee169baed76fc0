package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/suar-net/suar-studio/internal/config"
	"github.com/suar-net/suar-studio/internal/database"
	"github.com/suar-net/suar-studio/internal/handler"
	"github.com/suar-net/suar-studio/internal/logger"
	"github.com/suar-net/suar-studio/internal/repository"
	"github.com/suar-net/suar-studio/internal/service"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "suar",
		Short:         "API testing backend with request checkpoints and rollback",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	})
	return root
}

// bootstrap loads configuration, builds the logger and opens a migrated database.
func bootstrap() (*config.Config, *zap.Logger, *sql.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return nil, nil, nil, err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		return nil, nil, nil, err
	}
	zap.ReplaceGlobals(log)

	db, err := database.ConnectDB(cfg.DB)
	if err != nil {
		log.Error("failed to connect to database", zap.String("driver", cfg.DB.Driver), zap.Error(err))
		return nil, nil, nil, err
	}
	log.Info("successfully connected to database", zap.String("driver", cfg.DB.Driver))

	if err := database.Migrate(db, cfg.DB.Driver); err != nil {
		log.Error("failed to apply migrations", zap.Error(err))
		db.Close()
		return nil, nil, nil, err
	}
	return cfg, log, db, nil
}

func runMigrate() error {
	_, log, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()
	defer db.Close()

	log.Info("migrations applied")
	return nil
}

func runServe() error {
	cfg, log, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()
	defer db.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := service.NewMetrics(registry)

	httpProxyService := service.NewHTTPProxyService(cfg.Proxy, metrics, log)
	svc := service.NewService(repository.NewRepository(db), httpProxyService, metrics, log)
	router := handler.SetupRouter(svc, db, registry, cfg.Server.AllowedOrigins, log)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Error("cannot run server", zap.String("port", cfg.Server.Port), zap.Error(err))
		return err
	case <-stop:
	}

	log.Info("shutting down the server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
		return err
	}
	log.Info("server successfully shut down")
	return nil
}
