package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/cors"
	"github.com/safar/go-supply-chain/internal/catalog"
	"github.com/safar/go-supply-chain/internal/config"
	"github.com/safar/go-supply-chain/internal/database"
	"github.com/safar/go-supply-chain/internal/discovery"
	"github.com/safar/go-supply-chain/internal/events"
	"github.com/safar/go-supply-chain/internal/inventory"
	"github.com/safar/go-supply-chain/internal/logger"
	"github.com/safar/go-supply-chain/internal/purchasing"
	"github.com/safar/go-supply-chain/internal/sales"
	"github.com/safar/go-supply-chain/internal/shipping"
	"github.com/safar/go-supply-chain/internal/store"
	"github.com/safar/go-supply-chain/internal/store/memory"
	"github.com/safar/go-supply-chain/internal/store/postgres"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "supply-chain-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	log.Info("store ready", zap.String("driver", cfg.Store.Driver))

	publisher := openPublisher(cfg, log)
	defer publisher.Close()

	a := newAPI(st, publisher, log)
	handler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(newRouter(a))

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if cfg.Consul.Enabled {
		consul, err := discovery.NewConsulClient(cfg.Consul.Address)
		if err != nil {
			return err
		}
		if err := consul.RegisterService(cfg.Consul.ServiceID, cfg.Consul.ServiceName, cfg.Server.Port); err != nil {
			return err
		}
		log.Info("registered with consul", zap.String("service_id", cfg.Consul.ServiceID))
		defer func() {
			if err := consul.DeregisterService(cfg.Consul.ServiceID); err != nil {
				log.Warn("consul deregistration failed", zap.Error(err))
			}
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		return memory.New(), nil
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return postgres.New(db, cfg.Database.MaxRetries), nil
}

func openPublisher(cfg *config.Config, log *zap.Logger) events.Publisher {
	if !cfg.Kafka.Enabled {
		return events.NopPublisher{}
	}
	log.Info("publishing stock events to kafka",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic),
	)
	return events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
}

type api struct {
	catalog    *catalog.Service
	inventory  *inventory.Service
	ledger     *inventory.Ledger
	sales      *sales.Service
	purchasing *purchasing.Service
	shipping   *shipping.Service
	logger     *zap.Logger
}

func newAPI(st store.Store, publisher events.Publisher, log *zap.Logger) *api {
	inv := inventory.NewService(st, publisher, log)
	return &api{
		catalog:    catalog.NewService(st, log),
		inventory:  inv,
		ledger:     inventory.NewLedger(st, log),
		sales:      sales.NewService(st, inv, log),
		purchasing: purchasing.NewService(st, inv, log),
		shipping:   shipping.NewService(st, log),
		logger:     log,
	}
}
