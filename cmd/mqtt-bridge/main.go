// Command mqtt-bridge relays messages from a local broker to a public one.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rawrobot/robot-mqtt-simulator/internal/bridge"
	"github.com/rawrobot/robot-mqtt-simulator/internal/config"
	"github.com/rawrobot/robot-mqtt-simulator/internal/mqtt"
)

var (
	gitHash   string
	buildDate string
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()

	configFile := flag.String("config", "", "Path to configuration file (.toml, .yaml)")
	versionFlag := flag.Bool("version", false, "Display version information")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("Build Date: %s\nGit Hash: %s\n", buildDate, gitHash)
		os.Exit(0)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.ValidateBridge(); err != nil {
		log.Fatal().Err(err).Msg("Invalid bridge configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("Bridge failed")
		stop()
		os.Exit(1)
	}
	log.Info().Msg("Bridge stopped")
}

func newClient(conn config.ConnectionConfig) *mqtt.Client {
	logger := log.With().
		Str("component", "mqtt-client").
		Str("connection", conn.Name).
		Logger()
	client := mqtt.NewClient(conn.ToMQTTConfig(), logger)
	client.SetQoS(conn.QoS)
	return client
}

// connect dials in the background so an interrupt is honoured while paho
// keeps retrying an unreachable broker.
func connect(ctx context.Context, client *mqtt.Client) error {
	done := make(chan error, 1)
	go func() { done <- client.Connect() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func interrupted(err error) bool {
	return errors.Is(err, context.Canceled)
}

func run(ctx context.Context, cfg *config.Config) error {
	target := newClient(cfg.Bridge.Target)
	if err := connect(ctx, target); err != nil {
		if interrupted(err) {
			return nil
		}
		return fmt.Errorf("target %s: %w", cfg.Bridge.Target.Name, err)
	}
	defer target.Disconnect()

	forwarder := bridge.NewForwarder(target, log.Logger)

	source := newClient(cfg.Bridge.Source)
	source.SetMessageHandler(forwarder.Handle)
	if err := connect(ctx, source); err != nil {
		if interrupted(err) {
			return nil
		}
		return fmt.Errorf("source %s: %w", cfg.Bridge.Source.Name, err)
	}
	defer source.Disconnect()

	if err := source.Subscribe(cfg.Bridge.Topics...); err != nil {
		return err
	}

	log.Info().
		Str("source", cfg.Bridge.Source.Server).
		Str("target", cfg.Bridge.Target.Server).
		Strs("topics", cfg.Bridge.Topics).
		Msg("Bridge running")

	<-ctx.Done()

	log.Info().
		Int64("forwarded", forwarder.Forwarded()).
		Int64("failed", forwarder.Failed()).
		Msg("Shutting down bridge")
	return nil
}
