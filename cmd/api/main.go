package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "github.com/berfenger/hassbridge/internal/adapter/actor"
	"github.com/berfenger/hassbridge/internal/adapter/knx"
	"github.com/berfenger/hassbridge/internal/adapter/metrics"
	"github.com/berfenger/hassbridge/internal/config"
	"github.com/berfenger/hassbridge/internal/core/actor"
	"github.com/berfenger/hassbridge/internal/core/domain"
	"github.com/berfenger/hassbridge/internal/core/service"
	"github.com/berfenger/hassbridge/internal/server"
	"github.com/berfenger/hassbridge/internal/util/actorutil"
	"github.com/berfenger/hassbridge/pkg/goodwe"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	defer logger.Sync()

	// metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	sensorCollector := metrics.NewSensorCollector(logger)
	modbusTimings := metrics.NewModbusTimings()
	registry.MustRegister(sensorCollector, modbusTimings)

	// config entries
	entries, err := registerConfigEntries(cfg)
	if err != nil {
		logger.Error("config entries", zap.Error(err))
		return
	}
	serverOpts := []server.Option{server.WithMetrics(registry)}

	if cfg.KNX.Enable {
		diagnostics, err := knxDiagnostics(cfg, entries)
		if err != nil {
			logger.Error("knx setup", zap.Error(err))
			return
		}
		serverOpts = append(serverOpts, server.WithDiagnostics(service.KNX_DOMAIN, func(ctx context.Context, entryId string) (any, error) {
			return diagnostics.ConfigEntryDiagnostics(ctx, entryId)
		}))
	}

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	var pid *pactor.PID
	if cfg.GoodWe.Enable {
		eventStream := &eventstream.EventStream{}
		sensorCollector.Subscribe(eventStream)
		defer sensorCollector.Unsubscribe()

		// init Inverter actor provider
		inverterProv, err := inverterActorProvider(cfg, modbusTimings.Instrument(), logger)
		if err != nil {
			panic(err)
		}

		props := pactor.PropsFromProducer(func() pactor.Actor {
			return actor.NewMasterOfPuppetsActor(*cfg, eventStream, inverterProv, mqttActorProvider(cfg, logger), logger)
		})
		pid, err = ctx.SpawnNamed(props, domain.ACTOR_ID_MASTER)
		if err != nil {
			return
		}
	}

	server := server.NewServer(*cfg, ctx, pid, entries, logger, serverOpts...)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	if pid != nil {
		ctx.Stop(pid)
	}
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => HASSBRIDGE_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("HASSBRIDGE_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("hassbridge")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func registerConfigEntries(cfg *config.Config) (*service.ConfigEntryRegistry, error) {
	entries := service.NewConfigEntryRegistry()
	if cfg.GoodWe.Enable {
		_, err := entries.Add(domain.ConfigEntry{
			EntryId: cfg.GoodWe.EntryId,
			Domain:  service.GOODWE_DOMAIN,
			Title:   fmt.Sprintf("GoodWe %s", cfg.GoodWe.ModelFamily),
			Data: map[string]any{
				"host":         cfg.GoodWe.Host,
				"port":         cfg.GoodWe.Port,
				"model_family": cfg.GoodWe.ModelFamily,
			},
		})
		if err != nil {
			return nil, err
		}
	}
	if cfg.KNX.Enable {
		_, err := entries.Add(domain.ConfigEntry{
			EntryId: cfg.KNX.EntryId,
			Domain:  service.KNX_DOMAIN,
			Title:   "KNX",
			Data: map[string]any{
				"connection_type":    cfg.KNX.ConnectionType,
				"individual_address": cfg.KNX.IndividualAddress,
				"host":               cfg.KNX.GatewayIP,
				"port":               cfg.KNX.GatewayPort,
			},
		})
		if err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func knxDiagnostics(cfg *config.Config, entries *service.ConfigEntryRegistry) (*service.KNXDiagnosticsCollector, error) {
	connection, err := knx.NewConnection(cfg.KNX.IndividualAddress, cfg.KNX.ConnectionType, cfg.KNX.GatewayIP, cfg.KNX.GatewayPort)
	if err != nil {
		return nil, err
	}
	return service.NewKNXDiagnosticsCollector(entries, knx.NewHostSystemInfo(),
		knx.NewYAMLConfigReader(cfg.KNX.ConfigurationFile), knx.NewSchema(), connection), nil
}

func inverterActorProvider(cfg *config.Config, instrumentation *goodwe.ModbusInstrument, logger *zap.Logger) (actor.InverterActorProvider, error) {

	var inv goodwe.Inverter
	var err error
	switch cfg.GoodWe.ModelFamily {
	case config.GOODWE_MODEL_FAMILY_TEST:
		inv, err = goodwe.CreateTestInverter()
	default:
		inv, err = goodwe.CreateETInverter(cfg.GoodWe.Host, cfg.GoodWe.Port, uint8(cfg.GoodWe.UnitId),
			time.Duration(cfg.GoodWe.TimeoutMillis)*time.Millisecond, logger, instrumentation)
	}
	if err != nil {
		return nil, err
	}

	return func() *adactor.InverterActor {
		return adactor.NewInverterActor(inv, logger)
	}, nil
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.ha_discovery_enable", true)
	viper.SetDefault("mqtt.base_topic", "hassbridge")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("goodwe.enable", true)
	viper.SetDefault("goodwe.port", goodwe.ET_DEFAULT_PORT)
	viper.SetDefault("goodwe.unit_id", goodwe.ET_DEFAULT_UNIT_ID)
	viper.SetDefault("goodwe.timeout_millis", 1000)
	viper.SetDefault("goodwe.poll_interval_millis", 10000)
	viper.SetDefault("goodwe.entry_id", "")
	viper.SetDefault("goodwe.model_family", config.GOODWE_MODEL_FAMILY_ET)
	viper.SetDefault("knx.enable", false)
	viper.SetDefault("knx.entry_id", "")
	viper.SetDefault("knx.individual_address", "15.15.250")
	viper.SetDefault("knx.connection_type", config.KNX_CONNECTION_AUTOMATIC)
	viper.SetDefault("knx.gateway_port", 3671)
	viper.SetDefault("knx.configuration_file", "configuration.yaml")
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
