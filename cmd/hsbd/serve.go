package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/hsb-core/internal/api"
	"github.com/nerrad567/hsb-core/internal/automation"
	"github.com/nerrad567/hsb-core/internal/device"
	"github.com/nerrad567/hsb-core/internal/infrastructure/config"
	"github.com/nerrad567/hsb-core/internal/infrastructure/database"
	"github.com/nerrad567/hsb-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/hsb-core/internal/infrastructure/logging"
	"github.com/nerrad567/hsb-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/hsb-core/internal/manager"
	"github.com/nerrad567/hsb-core/internal/network"
	"github.com/nerrad567/hsb-core/internal/publisher"
	"github.com/nerrad567/hsb-core/internal/transport"
	"github.com/nerrad567/hsb-core/migrations"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway",
		Long: `Run the gateway until interrupted.

The configuration path comes from --config, then HSB_CONFIG, then
configs/config.yaml. HSB_* environment variables override file values.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), getConfigPath(configPath))
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Path to the YAML configuration file")
	return cmd
}

// run is the gateway lifecycle, separated from the command for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configPath: YAML configuration file
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath string) error { //nolint:gocognit,funlen // linear startup sequence
	log := logging.Default()
	log.Info("starting HSB core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "site", cfg.Site.ID)

	// Database
	db, err := database.Open(database.FromConfig(cfg.Database))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	// Dispatcher
	mgr, err := manager.New(managerConfig(cfg), manager.Deps{
		Devices: device.NewSQLiteRepository(db.DB),
		Scenes:  automation.NewSQLiteRepository(db.DB),
		Logger:  log.Component("manager"),
	})
	if err != nil {
		return fmt.Errorf("creating manager: %w", err)
	}

	// Sub-network transports, one driver per port
	for _, tc := range cfg.Transports {
		t, startErr := startTransport(ctx, tc, mgr, log)
		if startErr != nil {
			return startErr
		}
		defer func() {
			if closeErr := t.Close(); closeErr != nil {
				log.Error("error closing transport", "transport", tc.Name, "error", closeErr)
			}
		}()
	}

	// Client surfaces
	gw := network.Config{
		Host:    cfg.Gateway.Host,
		TCPPort: cfg.Gateway.TCPPort,
		UDPPort: cfg.Gateway.UDPPort,
	}
	tcpServer := network.NewServer(gw, mgr, log.Component("tcp"))
	mgr.AddPublisher(tcpServer)

	components := []network.Component{
		tcpServer,
		network.NewResponder(gw, log.Component("discovery")),
	}
	if cfg.Gateway.MDNS {
		components = append(components, network.NewAdvertiser(
			cfg.Site.Name, cfg.Gateway.TCPPort,
			[]string{"site=" + cfg.Site.ID, "version=" + version},
			log.Component("mdns"),
		))
	}

	if cfg.API.Enabled {
		apiServer, apiErr := api.New(api.Deps{
			Config:  cfg.API,
			WS:      cfg.WebSocket,
			Logger:  log.Component("api"),
			Manager: mgr,
			Version: version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		mgr.AddPublisher(apiServer.Hub())
		components = append(components, apiServer)
	}

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT, mqtt.Topics{Site: cfg.Site.ID})
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		bridge := publisher.NewMQTTBridge(mqttClient, mgr, log.Component("mqtt-bridge"))
		mgr.AddPublisher(bridge)
		components = append(components, bridge)
	} else {
		log.Info("MQTT disabled")
	}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		mgr.AddPublisher(publisher.NewHistoryRecorder(influxClient))
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("starting manager: %w", err)
	}
	defer mgr.Stop()

	log.Info("initialisation complete, waiting for shutdown signal")
	if err := network.NewService(components...).Run(ctx); err != nil {
		return fmt.Errorf("client surfaces: %w", err)
	}

	log.Info("HSB core stopped")
	return nil
}

// managerConfig converts the manager and gateway sections.
func managerConfig(cfg *config.Config) manager.Config {
	return manager.Config{
		SweepInterval: time.Duration(cfg.Manager.SweepInterval) * time.Millisecond,
		LivenessLimit: cfg.Manager.LivenessLimit,
		TimerGrace:    time.Duration(cfg.Manager.TimerGrace) * time.Second,
		ASRKey:        cfg.Gateway.ASRKey,
	}
}

// startTransport opens one sub-network channel and registers its drivers.
// A channel that cannot be opened at startup is fatal.
func startTransport(ctx context.Context, tc config.TransportConfig, mgr *manager.Manager, log *logging.Logger) (*transport.Transport, error) {
	t, err := transport.New(transport.Config{
		Name:     tc.Name,
		URL:      tc.URL,
		BaudRate: tc.BaudRate,
	})
	if err != nil {
		return nil, fmt.Errorf("creating transport %s: %w", tc.Name, err)
	}
	t.SetLogger(log.Component("transport").With("transport", tc.Name))
	mgr.AddTransport(t)

	for _, port := range tc.Ports {
		if _, err := mgr.AddDriver(tc.Name, port); err != nil {
			return nil, fmt.Errorf("adding driver %s:%d: %w", tc.Name, port, err)
		}
	}

	if err := t.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting transport %s: %w", tc.Name, err)
	}
	log.Info("transport started", "transport", tc.Name, "url", tc.URL, "ports", tc.Ports)
	return t, nil
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
