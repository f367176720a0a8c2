package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/carson-networks/mission-server/api"
	"github.com/carson-networks/mission-server/internal/badge"
	"github.com/carson-networks/mission-server/internal/config"
	"github.com/carson-networks/mission-server/internal/events"
	"github.com/carson-networks/mission-server/internal/logging"
	"github.com/carson-networks/mission-server/internal/metrics"
	"github.com/carson-networks/mission-server/internal/mission"
	"github.com/carson-networks/mission-server/internal/operator"
	"github.com/carson-networks/mission-server/internal/realtime"
	"github.com/carson-networks/mission-server/internal/service"
	"github.com/carson-networks/mission-server/internal/storage"
	"github.com/carson-networks/mission-server/internal/storage/memory"
	"github.com/carson-networks/mission-server/internal/storage/sqlconfig"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "mission-server",
		Short:         "Household savings missions, badges and realtime notifications",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file, overridden by MISSIONS_* environment variables")

	root.AddCommand(
		newServeCmd(&configPath),
		newMigrateCmd(&configPath),
	)
	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	var inMemory bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, badge engine and realtime notifier",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, inMemory)
		},
	}
	cmd.Flags().BoolVar(&inMemory, "memory", false, "use the in-memory store instead of Postgres")
	return cmd
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := logging.SetupLogging(cfg.Log.Level)

			db, err := sqlconfig.Open(cmd.Context(), cfg.Postgres.DSN())
			if err != nil {
				return err
			}
			defer db.Close()

			result, err := sqlconfig.Migrate(db.SQL())
			if err != nil {
				logger.WithError(err).Error("Migrate.Up")
				return err
			}
			logger.WithFields(logrus.Fields{
				"preMigrationVersion":  result.PreviousVersion,
				"postMigrationVersion": result.CurrentVersion,
			}).Info("Migrate.Complete")
			return nil
		},
	}
}

func openStorage(ctx context.Context, cfg *config.Config, inMemory bool, logger *logrus.Logger) (*storage.Storage, func(), error) {
	if inMemory {
		logger.Warn("Storage.Memory")
		s, _ := memory.NewStorage()
		return s, func() {}, nil
	}

	db, err := sqlconfig.Open(ctx, cfg.Postgres.DSN())
	if err != nil {
		return nil, nil, err
	}
	return db.NewStorage(), func() { db.Close() }, nil
}

func serve(ctx context.Context, cfg *config.Config, inMemory bool) error {
	logger := logging.SetupLogging(cfg.Log.Level)
	logger.Info("mission-server starting")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store, closeStore, err := openStorage(ctx, cfg, inMemory, logger)
	if err != nil {
		logger.WithError(err).Error("Storage.Open")
		return err
	}
	defer closeStore()

	bus := events.NewBus(logger, m, cfg.Bus.Buffer)
	delegator := operator.NewOperatorDelegator(store, bus, cfg.Operator.Workers, logger, m)
	delegator.Start()

	notifier := realtime.NewNotifier(realtime.NewLocalRegistry(), logger, m, realtime.Options{
		Heartbeat: cfg.Realtime.Heartbeat,
		Buffer:    cfg.Realtime.Buffer,
	})
	notifier.Register(bus)
	badge.NewEngine(store, bus, logger, m).Register(bus)

	svc := service.NewService(store, delegator, mission.NewMachine(nil), logger)
	rest := api.Rest{
		Logger:   logger,
		Port:     cfg.HTTP.Port,
		Storage:  store,
		Missions: svc.Mission,
		Notifier: notifier,
		Status:   api.StatusProbe{Operator: delegator, Notifier: notifier},
		Gatherer: reg,
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return err
		}
		client := redis.NewClient(opts)
		defer client.Close()

		relay := realtime.NewRedisRelay(client, notifier, logger)
		notifier.SetBroker(relay)
		g.Go(func() error {
			if err := relay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		return rest.Serve(gctx)
	})

	err = g.Wait()

	// HTTP is drained; stop accepting writes, then let subscribers finish
	// what the last commits published.
	delegator.Stop()
	bus.Close()

	if err != nil {
		logger.WithError(err).Error("mission-server stopped")
		return err
	}
	logger.Info("mission-server stopped")
	return nil
}
