package main

import (
	"fmt"
	"time"

	"github.com/rawrobot/robot-mqtt-simulator/internal/mqtt"
	"github.com/rawrobot/robot-mqtt-simulator/internal/simulator"
)

// PublishedMessage is a publication prepared for the live view and the
// session log.
type PublishedMessage struct {
	Round        int
	Topic        string
	DisplayTopic string
	Payload      string
	Size         int
	Timestamp    time.Time
}

func NewPublishedMessage(p simulator.Publication, round simulator.Round, topicDepth int) PublishedMessage {
	return PublishedMessage{
		Round:        round.Seq,
		Topic:        p.Topic,
		DisplayTopic: mqtt.TruncateTopic(p.Topic, topicDepth),
		Payload:      mqtt.SanitizePayload(p.Payload),
		Size:         len(p.Payload),
		Timestamp:    round.Time,
	}
}

// LogLine is the session log form of the message.
func (m PublishedMessage) LogLine() string {
	return fmt.Sprintf("[round %d] %s (%d bytes): %s", m.Round, m.Topic, m.Size, m.Payload)
}
