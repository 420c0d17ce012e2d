package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rawrobot/robot-mqtt-simulator/internal/config"
	"github.com/rawrobot/robot-mqtt-simulator/internal/mqtt"
	"github.com/rawrobot/robot-mqtt-simulator/internal/simulator"
	"github.com/rawrobot/robot-mqtt-simulator/internal/telemetry"
)

var (
	gitHash   string
	buildDate string
)

type options struct {
	configFile string
	tui        bool
}

func main() {
	configureZerolog()

	opts := parseFlags()

	cfg, err := config.Load(opts.configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if opts.tui {
		cfg.Display.TUI = true
	}

	configureZerologFromConfig(cfg)

	os.Exit(exitCode(start(cfg)))
}

func configureZerolog() {
	log.Logger = consoleLogger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func consoleLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
}

func parseFlags() options {
	configFile := flag.String("config", "", "Path to configuration file (.toml, .yaml); built-in defaults when empty")
	tui := flag.Bool("tui", false, "Show published messages in a terminal view")
	versionFlag := flag.Bool("version", false, "Display version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nBuild Information:\n")
		fmt.Fprintf(os.Stderr, "  Build Date: %s\n", buildDate)
		fmt.Fprintf(os.Stderr, "  Git Hash: %s\n", gitHash)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("Build Date: %s\nGit Hash: %s\n", buildDate, gitHash)
		os.Exit(0)
	}

	return options{configFile: *configFile, tui: *tui}
}

func configureZerologFromConfig(cfg *config.Config) {
	var level zerolog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	switch {
	case cfg.Display.TUI:
		// Console output would corrupt the terminal view
		log.Logger = zerolog.New(io.Discard).With().Timestamp().Logger()
	case cfg.Logging.Pretty:
		log.Logger = consoleLogger()
	default:
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

// start owns every deferred cleanup so main can call os.Exit afterwards.
func start(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessionLogger := initializeSessionLogger(cfg)
	if sessionLogger != nil {
		defer sessionLogger.Close()
	}

	reporter := &roundReporter{
		session:    sessionLogger,
		topicDepth: cfg.Display.TopicDepth,
		counts:     make(map[telemetry.Kind]int, len(telemetry.Kinds)),
	}

	onEvent := logConnectionEvent
	uiDone := make(chan error, 1)
	if cfg.Display.TUI {
		reporter.ui = NewUI(cfg.Display.Truncate)
		onEvent = reporter.ui.AddEvent
		uiDone = startUI(reporter.ui, ctx)
	}

	sigCh := setupSignalHandler()
	go func() {
		reason := waitForShutdownSignal(ctx, sigCh, uiDone)
		log.Info().Str("reason", reason).Msg("Shutting down")
		cancel()
	}()

	err := run(ctx, cfg, brokerDialer(onEvent), log.Logger, reporter.Report)

	if reporter.ui != nil {
		reporter.ui.Stop()
		// The view is gone; make the final outcome visible again.
		log.Logger = consoleLogger()
	}
	return err
}

// run connects, then publishes until ctx is cancelled. A connection failure
// is returned before any round is published.
func run(ctx context.Context, cfg *config.Config, dial dialFunc, logger zerolog.Logger, observe func(simulator.Round)) error {
	interval, err := cfg.Simulator.IntervalDuration()
	if err != nil {
		return err
	}

	publisher, err := dial(cfg.Broker, logger)
	if err != nil {
		return err
	}

	generator := telemetry.NewGenerator(
		telemetry.NewSeededRand(cfg.Simulator.Seed),
		telemetry.WithLidarPoints(cfg.Simulator.LidarPoints),
	)

	runner, err := simulator.NewRunner(simulator.Config{
		Interval:         interval,
		LidarProbability: cfg.Simulator.LidarProbability,
		MapProbability:   cfg.Simulator.MapProbability,
	}, generator, publisher, logger)
	if err != nil {
		publisher.Close()
		return err
	}
	if observe != nil {
		runner.OnRound(observe)
	}

	return runner.Run(ctx)
}

func exitCode(err error) int {
	if err == nil {
		log.Info().Msg("Simulator stopped")
		return 0
	}

	var connectErr *mqtt.ConnectError
	if errors.As(err, &connectErr) {
		log.Error().Err(connectErr.Err).Str("broker", connectErr.Broker).Msg("Connection to MQTT broker failed")
	} else {
		log.Error().Err(err).Msg("Simulator failed")
	}
	return 1
}

func logConnectionEvent(connected bool, err error) {
	if connected {
		log.Info().Msg("Connected to MQTT broker")
		return
	}
	log.Warn().Err(err).Msg("MQTT connection state changed")
}

func initializeSessionLogger(cfg *config.Config) *SessionLogger {
	if !cfg.Logging.EnableSessionLog {
		return nil
	}

	// Validated by config.Load
	maxDuration, _ := time.ParseDuration(cfg.Logging.SessionLogMaxDuration)

	sessionLogger, err := NewSessionLogger(cfg.Logging.OutputDir, maxDuration, log.Logger)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize session logger")
		return nil
	}

	return sessionLogger
}

func setupSignalHandler() chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	return sigCh
}

func startUI(ui *UI, ctx context.Context) chan error {
	uiDone := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				uiDone <- fmt.Errorf("UI panic: %v", r)
			}
		}()
		uiDone <- ui.Start(ctx)
	}()
	return uiDone
}

func waitForShutdownSignal(ctx context.Context, sigCh chan os.Signal, uiDone chan error) string {
	select {
	case sig := <-sigCh:
		return fmt.Sprintf("received signal: %v", sig)
	case err := <-uiDone:
		if err != nil {
			return fmt.Sprintf("UI error: %v", err)
		}
		return "UI exited"
	case <-ctx.Done():
		return "stopped"
	}
}

// roundReporter fans each published round out to the live view and the
// session log. It is only called from the publish loop goroutine.
type roundReporter struct {
	ui         *UI
	session    *SessionLogger
	topicDepth int
	counts     map[telemetry.Kind]int
	rounds     int
}

func (r *roundReporter) Report(round simulator.Round) {
	r.rounds++

	msgs := make([]PublishedMessage, 0, len(round.Published))
	for _, p := range round.Published {
		r.counts[p.Kind]++
		msgs = append(msgs, NewPublishedMessage(p, round, r.topicDepth))
	}

	if r.session != nil {
		for _, msg := range msgs {
			if err := r.session.Log(msg.LogLine()); err != nil {
				log.Error().Err(err).Msg("Failed to write to session log")
				break
			}
		}
	}

	if r.ui != nil {
		r.ui.AddMessages(msgs)
		r.ui.UpdateCounts(r.counts)
		r.ui.UpdateStatus(fmt.Sprintf("Rounds: %d | Last round: %d messages", r.rounds, len(msgs)))
	}
}
