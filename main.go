package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"content-clock-publisher/config"
	"content-clock-publisher/connectors"
	"content-clock-publisher/controllers"
	"content-clock-publisher/engine"
	"content-clock-publisher/helpers"
	"content-clock-publisher/models"
	"content-clock-publisher/store"
)

const leaseKey = "content-clock:engine:lease"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	// gotwi reads the consumer credentials from the environment.
	tw := cfg.Platform(string(models.PlatformTwitter))
	if os.Getenv("GOTWI_API_KEY") == "" && tw.ClientID != "" {
		os.Setenv("GOTWI_API_KEY", tw.ClientID)
		os.Setenv("GOTWI_API_KEY_SECRET", tw.ClientSecret)
	}

	app := helpers.CreateApp(cfg)
	ctx, cancel := context.WithCancel(context.Background())

	var eng *engine.Engine
	var sink engine.OutcomeSink

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		logger := se.App.Logger()
		if cfg.LogFile != "" {
			logger = helpers.NewLogger(cfg.LogFile, helpers.LevelFor(cfg.Env))
		}

		st, err := openStore(cfg, logger)
		if err != nil {
			return err
		}

		registry := connectors.NewRegistry(cfg, func(ctx context.Context, accountID string, fields map[string]any) error {
			return st.UpdateAccount(ctx, accountID, fields)
		}, logger)

		opts := []engine.Option{
			engine.WithLogger(logger),
			engine.WithMetrics(engine.NewMetrics(prometheus.DefaultRegisterer)),
		}
		if cfg.Redis.Host != "" {
			rdb, err := models.ConnectRedis(ctx, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.User, cfg.Redis.Password, cfg.Redis.DB, cfg.Env)
			if err != nil {
				return err
			}
			opts = append(opts, engine.WithLease(engine.NewRedisLease(rdb, leaseKey, cfg.Engine.LeaseTTL)))
		}
		sink = engine.NoopSink()
		if len(cfg.Kafka.Brokers) > 0 {
			kafka, err := engine.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
			if err != nil {
				return err
			}
			sink = kafka
			opts = append(opts, engine.WithSink(sink))
		}
		eng = engine.New(st, registry, cfg.Engine, opts...)

		controllers.SetupRoutes(se, &controllers.Handlers{
			Engine:   eng,
			Store:    st,
			Registry: registry,
			Config:   cfg,
			Client:   helpers.NewClient("onboarding", cfg.HTTPTimeout, nil, logger),
			Logger:   logger,
		})
		se.Router.GET("/metrics", apis.WrapStdHandler(promhttp.Handler()))

		se.App.Cron().MustAdd("Sync Interactions", "*/15 * * * *", func() {
			eng.SyncInteractions(ctx)
		})
		eng.Start(ctx)
		return se.Next()
	})

	app.OnTerminate().BindFunc(func(e *core.TerminateEvent) error {
		if eng != nil {
			eng.Stop()
		}
		cancel()
		if sink != nil {
			_ = sink.Close()
		}
		return e.Next()
	})

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}

func openStore(cfg config.Settings, logger *slog.Logger) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL is not set, jobs are kept in memory")
		return store.NewMemoryStore(), nil
	}
	db, err := models.ConnectDatabase(cfg.DatabaseURL, cfg.Env, cfg.DBMigrate)
	if err != nil {
		return nil, err
	}
	return store.NewGormStore(db), nil
}
