// Package bridge relays messages received on one broker to another,
// keeping topic, QoS and retain flag.
package bridge

import (
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/rawrobot/robot-mqtt-simulator/internal/mqtt"
)

// Target is the broker messages are forwarded to.
type Target interface {
	PublishAsync(topic string, payload []byte, qos byte, retained bool, onDone func(error))
}

type Forwarder struct {
	target    Target
	logger    zerolog.Logger
	forwarded atomic.Int64
	failed    atomic.Int64
}

func NewForwarder(target Target, logger zerolog.Logger) *Forwarder {
	return &Forwarder{
		target: target,
		logger: logger.With().Str("component", "bridge").Logger(),
	}
}

// Handle forwards msg without waiting for delivery; it is meant to be
// installed as the source client's message handler.
func (f *Forwarder) Handle(msg mqtt.Message) {
	f.logger.Debug().
		Str("topic", msg.Topic).
		Int("bytes", len(msg.Payload)).
		Msg("Received message from source")

	f.target.PublishAsync(msg.Topic, msg.Payload, msg.QoS, msg.Retained, func(err error) {
		if err != nil {
			f.failed.Add(1)
			f.logger.Error().Err(err).Str("topic", msg.Topic).Msg("Failed to forward message")
			return
		}
		f.forwarded.Add(1)
		f.logger.Debug().Str("topic", msg.Topic).Msg("Forwarded message to target")
	})
}

// Forwarded returns how many messages the target accepted.
func (f *Forwarder) Forwarded() int64 {
	return f.forwarded.Load()
}

// Failed returns how many forwards the target rejected.
func (f *Forwarder) Failed() int64 {
	return f.failed.Load()
}
