package main

import (
	"strings"
	"testing"
	"time"

	"github.com/rawrobot/robot-mqtt-simulator/internal/simulator"
	"github.com/rawrobot/robot-mqtt-simulator/internal/telemetry"
)

func TestTruncateText(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  string
	}{
		{"robot/sensors/obstacle", 40, "robot/sensors/obstacle"},
		{"robot/sensors/obstacle", 10, "robot/s..."},
		{"robot", 2, "ro"},
		{"robot", 0, ""},
	}
	for _, tt := range tests {
		if got := truncateText(tt.text, tt.width); got != tt.want {
			t.Errorf("truncateText(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
		}
	}
}

func TestGetVisibleLength(t *testing.T) {
	if got := getVisibleLength("[yellow]12:00[white] [green]map/data[white] "); got != len("12:00 map/data ") {
		t.Errorf("getVisibleLength = %d", got)
	}
}

func TestFormatMessageTruncatesPayload(t *testing.T) {
	ui := &UI{truncate: true}
	msg := PublishedMessage{
		Round:        7,
		DisplayTopic: "sensors/lidar",
		Payload:      strings.Repeat("p", 500),
		Timestamp:    time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}

	line := ui.formatMessage(msg, 80)
	if visible := getVisibleLength(line); visible > 80 {
		t.Errorf("visible length %d exceeds width", visible)
	}
	if !strings.Contains(line, "#7") || !strings.HasSuffix(line, "...") {
		t.Errorf("unexpected line %q", line)
	}
}

func TestFormatCountsListsEveryKind(t *testing.T) {
	text := formatCounts(map[telemetry.Kind]int{telemetry.KindLidar: 4})
	for _, kind := range telemetry.Kinds {
		if !strings.Contains(text, string(kind)) {
			t.Errorf("counts missing %s", kind)
		}
	}
}

func TestNewPublishedMessage(t *testing.T) {
	round := simulator.Round{Seq: 3, Time: time.Now()}
	p := simulator.Publication{
		Kind:    telemetry.KindMapData,
		Topic:   "robot/map/data",
		Payload: []byte("{\"width\": 20,\n\"height\": 20}"),
	}

	msg := NewPublishedMessage(p, round, 2)
	if msg.DisplayTopic != "map/data" {
		t.Errorf("display topic = %q", msg.DisplayTopic)
	}
	if msg.Payload != `{"width": 20, "height": 20}` {
		t.Errorf("payload = %q", msg.Payload)
	}
	if !strings.HasPrefix(msg.LogLine(), "[round 3] robot/map/data") {
		t.Errorf("log line = %q", msg.LogLine())
	}
}
