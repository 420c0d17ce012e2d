// Package simulator drives the telemetry generator at a fixed cadence and
// hands every record to a Publisher.
package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rawrobot/robot-mqtt-simulator/internal/telemetry"
)

const (
	DefaultInterval         = time.Second
	DefaultLidarProbability = 0.3
	DefaultMapProbability   = 0.1
)

// Publisher is the transport seen by the loop. Publish is fire-and-forget.
type Publisher interface {
	Publish(topic string, payload []byte)
	Close()
}

type Config struct {
	Interval         time.Duration
	LidarProbability float64
	MapProbability   float64
}

func DefaultConfig() Config {
	return Config{
		Interval:         DefaultInterval,
		LidarProbability: DefaultLidarProbability,
		MapProbability:   DefaultMapProbability,
	}
}

func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", c.Interval)
	}
	if c.LidarProbability < 0 || c.LidarProbability > 1 {
		return fmt.Errorf("lidar probability %v outside [0,1]", c.LidarProbability)
	}
	if c.MapProbability < 0 || c.MapProbability > 1 {
		return fmt.Errorf("map probability %v outside [0,1]", c.MapProbability)
	}
	return nil
}

// Publication is one message handed to the publisher.
type Publication struct {
	Kind    telemetry.Kind
	Topic   string
	Payload []byte
}

// Round summarizes one pass over all record kinds.
type Round struct {
	Seq       int
	Time      time.Time
	Published []Publication
}

// Runner owns the generator and the publisher for the lifetime of Run.
type Runner struct {
	config    Config
	generator *telemetry.Generator
	publisher Publisher
	logger    zerolog.Logger
	onRound   func(Round)

	mu     sync.Mutex
	seq    int
	counts map[telemetry.Kind]int
}

func NewRunner(config Config, generator *telemetry.Generator, publisher Publisher, logger zerolog.Logger) (*Runner, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if generator == nil {
		return nil, errors.New("generator is required")
	}
	if publisher == nil {
		return nil, errors.New("publisher is required")
	}

	return &Runner{
		config:    config,
		generator: generator,
		publisher: publisher,
		logger:    logger.With().Str("component", "publish-loop").Logger(),
		counts:    make(map[telemetry.Kind]int, len(telemetry.Kinds)),
	}, nil
}

// OnRound registers a hook called after every round. Set it before Run.
func (r *Runner) OnRound(hook func(Round)) {
	r.onRound = hook
}

// Run publishes one round immediately and then one per interval until ctx is
// cancelled. The publisher is closed exactly once on return.
func (r *Runner) Run(ctx context.Context) error {
	defer r.publisher.Close()

	r.logger.Info().
		Dur("interval", r.config.Interval).
		Float64("lidar_probability", r.config.LidarProbability).
		Float64("map_probability", r.config.MapProbability).
		Msg("Starting publish loop")

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			r.logger.Info().Int("rounds", r.Rounds()).Msg("Publish loop stopped")
			return nil
		}

		round := r.PublishRound()
		if r.onRound != nil {
			r.onRound(round)
		}

		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
}

func (r *Runner) gate(kind telemetry.Kind) bool {
	switch kind {
	case telemetry.KindLidar:
		return r.generator.Chance(r.config.LidarProbability)
	case telemetry.KindMapData:
		return r.generator.Chance(r.config.MapProbability)
	default:
		return true
	}
}

// PublishRound synthesizes and publishes one round.
func (r *Runner) PublishRound() Round {
	r.mu.Lock()
	r.seq++
	round := Round{Seq: r.seq, Time: time.Now()}
	r.mu.Unlock()

	for _, kind := range telemetry.Kinds {
		if !r.gate(kind) {
			continue
		}

		record, err := r.generator.Generate(kind)
		if err != nil {
			r.logger.Error().Err(err).Str("kind", string(kind)).Msg("Failed to generate record")
			continue
		}

		payload, err := json.Marshal(record)
		if err != nil {
			r.logger.Error().Err(err).Str("kind", string(kind)).Msg("Failed to marshal record")
			continue
		}

		topic := kind.Topic()
		r.publisher.Publish(topic, payload)
		round.Published = append(round.Published, Publication{Kind: kind, Topic: topic, Payload: payload})

		r.mu.Lock()
		r.counts[kind]++
		r.mu.Unlock()
	}

	r.logger.Info().
		Int("round", round.Seq).
		Int("messages", len(round.Published)).
		Msg("Published data round")

	return round
}

// Rounds returns how many rounds have been published.
func (r *Runner) Rounds() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}

// Stats returns a copy of the per-kind publish counts.
func (r *Runner) Stats() map[telemetry.Kind]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := make(map[telemetry.Kind]int, len(r.counts))
	for k, v := range r.counts {
		stats[k] = v
	}
	return stats
}
