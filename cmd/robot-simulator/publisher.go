package main

import (
	"github.com/rs/zerolog"

	"github.com/rawrobot/robot-mqtt-simulator/internal/config"
	"github.com/rawrobot/robot-mqtt-simulator/internal/mqtt"
	"github.com/rawrobot/robot-mqtt-simulator/internal/simulator"
)

// dialFunc connects to the broker and returns the loop's publisher. It must
// fail before returning if the broker refuses the session.
type dialFunc func(conn config.ConnectionConfig, logger zerolog.Logger) (simulator.Publisher, error)

// brokerPublisher adapts mqtt.Client to simulator.Publisher.
type brokerPublisher struct {
	client   *mqtt.Client
	qos      byte
	retained bool
}

func (p *brokerPublisher) Publish(topic string, payload []byte) {
	p.client.PublishAsync(topic, payload, p.qos, p.retained, nil)
}

func (p *brokerPublisher) Close() {
	p.client.Disconnect()
}

// brokerDialer returns a dialFunc reporting connection events to onEvent.
func brokerDialer(onEvent mqtt.ConnectionHandler) dialFunc {
	return func(conn config.ConnectionConfig, logger zerolog.Logger) (simulator.Publisher, error) {
		client := mqtt.NewClient(conn.ToMQTTConfig(), logger.With().
			Str("component", "mqtt-client").
			Str("connection", conn.Name).
			Logger())
		if onEvent != nil {
			client.SetConnectionHandler(onEvent)
		}

		if err := client.Connect(); err != nil {
			return nil, err
		}

		return &brokerPublisher{client: client, qos: conn.QoS, retained: conn.Retained}, nil
	}
}
