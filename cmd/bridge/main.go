package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "github.com/chr-braun/kostalbridge/internal/adapter/actor"
	adtelemetry "github.com/chr-braun/kostalbridge/internal/adapter/telemetry"
	"github.com/chr-braun/kostalbridge/internal/config"
	"github.com/chr-braun/kostalbridge/internal/core/actor"
	"github.com/chr-braun/kostalbridge/internal/core/metrics"
	"github.com/chr-braun/kostalbridge/internal/core/port"
	"github.com/chr-braun/kostalbridge/internal/core/telemetry"
	"github.com/chr-braun/kostalbridge/internal/server"
	"github.com/chr-braun/kostalbridge/internal/util/actorutil"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
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

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	store := metrics.NewMetricStore()
	ledger := metrics.NewDailyEnergyLedger()

	telemetryProv, err := telemetryActorProvider(cfg, logger)
	if err != nil {
		panic(err)
	}

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterActor(*cfg, telemetryProv, mqttActorProvider(cfg, logger), store, ledger, logger)
	})
	pid, err := ctx.SpawnNamed(props, "master")
	if err != nil {
		return
	}

	server := server.NewServer(*cfg, ctx, pid, store)
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

	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => KOSTAL_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("KOSTAL_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("kostal")
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

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check transport
	switch cfg.Inverter.Transport {
	case config.TRANSPORT_EXEC, config.TRANSPORT_MODBUS, config.TRANSPORT_SIMULATED:
	default:
		return nil, fmt.Errorf("config param inverter.transport must be one of exec, modbus, simulated")
	}

	// check bounds
	if cfg.Monitor.PollIntervalMillis < 5000 {
		return nil, errors.New("config param monitor.poll_interval_millis should be >= 5000")
	}
	if cfg.Monitor.FetchTimeoutMillis < 1000 {
		return nil, errors.New("config param monitor.fetch_timeout_millis should be >= 1000")
	}
	if uint64(cfg.Monitor.FetchTimeoutMillis) >= uint64(cfg.Monitor.PollIntervalMillis) {
		return nil, errors.New("config param monitor.fetch_timeout_millis must be < monitor.poll_interval_millis")
	}
	if cfg.Inverter.Strings < 1 || cfg.Inverter.Strings > 3 {
		return nil, errors.New("config param inverter.strings should be between 1 and 3")
	}
	if cfg.Inverter.MaxEnergyPerDay <= 0 {
		return nil, errors.New("config param inverter.max_energy_per_day should be > 0")
	}

	return &cfg, nil
}

func telemetryActorProvider(cfg *config.Config, logger *zap.Logger) (actor.TelemetryActorProvider, error) {

	fetchTimeout := time.Duration(cfg.Monitor.FetchTimeoutMillis) * time.Millisecond

	var source port.TelemetrySource
	switch cfg.Inverter.Transport {
	case config.TRANSPORT_MODBUS:
		modbusSource, err := adtelemetry.NewModbusSource(cfg.Inverter, fetchTimeout)
		if err != nil {
			return nil, err
		}
		source = modbusSource
	case config.TRANSPORT_SIMULATED:
		source = telemetry.NewSimulatedGenerator(cfg.Inverter.Strings,
			cfg.Inverter.MaxPower, cfg.Inverter.MaxEnergyPerDay)
	default:
		source = adtelemetry.NewExecSource(cfg.Inverter, fetchTimeout, logger)
	}

	return func() *adactor.TelemetryActor {
		return adactor.NewTelemetryActor(source, fetchTimeout, logger)
	}, nil
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(stream *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, stream, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("language", "de")
	viper.SetDefault("mqtt.base_topic", "kostalbridge")
	viper.SetDefault("inverter.transport", "exec")
	viper.SetDefault("inverter.helper_command", "python3 -m kostalfetch")
	viper.SetDefault("inverter.modbus_port", 1502)
	viper.SetDefault("inverter.modbus_unit_id", 71)
	viper.SetDefault("inverter.strings", 2)
	viper.SetDefault("inverter.max_power", 10000)
	viper.SetDefault("inverter.max_energy_per_day", 20)
	viper.SetDefault("monitor.poll_interval_millis", 30000)
	viper.SetDefault("monitor.fetch_timeout_millis", 12000)
	viper.SetDefault("report.enable", true)
	viper.SetDefault("report.time", "sunset+30")
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	cfg.Inverter.Username = "*redacted*"
	cfg.Inverter.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
