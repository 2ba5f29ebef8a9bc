// Gray Logic Records - dynamic record store service
//
// This is the main entry point for the records service. It serves
// user-defined SQLite tables over a REST API and streams mutation events
// to WebSocket clients, MQTT and InfluxDB.
//
// Usage:
//
//	graylogic-records                 run the service
//	graylogic-records token <subject> print a signed API access token
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/gray-logic-records/internal/api"
	"github.com/nerrad567/gray-logic-records/internal/audit"
	"github.com/nerrad567/gray-logic-records/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-records/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-records/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-records/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-records/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-records/internal/notify"
	"github.com/nerrad567/gray-logic-records/internal/sqlexec"
	"github.com/nerrad567/gray-logic-records/internal/store"
	"github.com/nerrad567/gray-logic-records/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	if len(os.Args) > 1 && os.Args[1] == "token" {
		err = issueToken(os.Args[2:], os.Stdout)
	} else {
		err = run(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Gray Logic Records",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.LoadDefault()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(ctx, database.Config{
		Driver:      cfg.Database.Driver,
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", db.Path(), "driver", db.Driver())

	if migrateErr := db.NewMigrator(migrations.FS, ".").Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	broker := notify.NewBroker(cfg.Store.EventBuffer)
	broker.SetLogger(log.With("component", "notify"))

	checks := map[string]api.HealthChecker{"database": db}

	var journal audit.Repository
	if cfg.Store.AuditLog {
		repo := audit.NewSQLiteRepository(db.DB)
		broker.AddSink(audit.NewSink(repo))
		journal = repo
		log.Info("mutation audit log enabled")
	}

	mqttClient, err := connectMQTT(cfg, broker, log)
	if err != nil {
		return err
	}
	if mqttClient != nil {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		checks["mqtt"] = mqttClient
	}

	influxClient, err := connectInfluxDB(cfg, broker, log)
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		checks["influxdb"] = influxClient
	}

	st := store.New(sqlexec.New(db), store.Options{
		IDColumn:  cfg.Store.IDColumn,
		BatchSize: cfg.Store.BatchSize,
		Strict:    cfg.Store.StrictSchema,
		Hook:      broker,
		Logger:    log.With("component", "store"),
	})

	// Waits for the last dispatch so no sink writes after its client closes.
	brokerCtx, stopBroker := context.WithCancel(ctx)
	brokerDone := make(chan struct{})
	go func() {
		defer close(brokerDone)
		broker.Run(brokerCtx)
	}()
	defer func() {
		stopBroker()
		<-brokerDone
	}()

	if cfg.API.Enabled {
		server, newErr := api.New(api.Deps{
			Config:   cfg.API,
			WS:       cfg.WebSocket,
			Security: cfg.Security,
			Logger:   log,
			Store:    st,
			Events:   broker,
			Checks:   checks,
			DB:       db,
			Audit:    journal,
			Version:  version,
		})
		if newErr != nil {
			return fmt.Errorf("creating API server: %w", newErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		if cfg.Security.JWT.Secret == "" {
			log.Warn("API authentication disabled: security.jwt.secret is empty")
		}
	} else {
		log.Info("API server disabled")
	}

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order: API, broker, InfluxDB,
	// MQTT, database.
	log.Info("Gray Logic Records stopped", "events_dropped", broker.Dropped())
	return nil
}

// connectMQTT connects the event publisher and registers its sink.
// It returns nil when MQTT is disabled.
func connectMQTT(cfg *config.Config, broker *notify.Broker, log *logging.Logger) (*mqtt.Client, error) {
	if !cfg.MQTT.Enabled {
		log.Info("MQTT disabled")
		return nil, nil
	}

	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log)
	client.SetOnConnect(func() {
		log.Info("MQTT connected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	sink, err := notify.NewMQTTSink(client, cfg.MQTT.Encoding)
	if err != nil {
		client.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("configuring MQTT sink: %w", err)
	}
	broker.AddSink(sink)

	log.Info("MQTT event publishing enabled",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"topics", client.Topics().AllEvents(),
		"encoding", cfg.MQTT.Encoding,
	)
	return client, nil
}

// connectInfluxDB connects the metrics writer and registers its sink.
// It returns nil when InfluxDB is disabled.
func connectInfluxDB(cfg *config.Config, broker *notify.Broker, log *logging.Logger) (*influxdb.Client, error) {
	client, err := influxdb.Connect(cfg.InfluxDB)
	if errors.Is(err, influxdb.ErrDisabled) {
		log.Info("InfluxDB disabled")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}

	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	broker.AddSink(notify.NewInfluxSink(client))

	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client, nil
}

// healthCheck runs every component check, returning the first failure.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	for name, c := range checks {
		if err := c.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// issueToken prints an access token for args[0] signed with the configured
// JWT secret.
func issueToken(args []string, out io.Writer) error {
	if len(args) != 1 || args[0] == "" {
		return errors.New("usage: graylogic-records token <subject>")
	}

	cfg, err := config.LoadDefault()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Security.JWT.Secret == "" {
		return errors.New("security.jwt.secret is not set")
	}

	ttl := time.Duration(cfg.Security.JWT.AccessTokenTTL) * time.Minute
	token, err := api.GenerateToken(args[0], cfg.Security.JWT.Secret, cfg.Security.JWT.Issuer, ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
