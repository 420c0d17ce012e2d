package mqtt

import (
	"strings"
	"testing"
)

func TestTruncateTopic(t *testing.T) {
	tests := []struct {
		topic string
		depth int
		want  string
	}{
		{"robot/sensors/lidar", 2, "sensors/lidar"},
		{"robot/sensors/lidar", 3, "robot/sensors/lidar"},
		{"robot/sensors/lidar", 5, "robot/sensors/lidar"},
		{"robot/sensors/lidar", 0, "robot/sensors/lidar"},
		{"robot/camera/feed", 1, "feed"},
	}

	for _, tt := range tests {
		if got := TruncateTopic(tt.topic, tt.depth); got != tt.want {
			t.Errorf("TruncateTopic(%q, %d) = %q, want %q", tt.topic, tt.depth, got, tt.want)
		}
	}
}

func TestSanitizePayload(t *testing.T) {
	got := SanitizePayload([]byte("{\n\t\"front\": 12.5,\r\n  \"left\": 40\n}"))
	want := `{ "front": 12.5, "left": 40 }`
	if got != want {
		t.Errorf("SanitizePayload() = %q, want %q", got, want)
	}
}

func TestSanitizePayloadTruncatesLongPayloads(t *testing.T) {
	long := strings.Repeat("x", maxDisplayPayload*2)
	got := SanitizePayload([]byte(long))
	if len(got) != maxDisplayPayload+3 {
		t.Fatalf("len = %d, want %d", len(got), maxDisplayPayload+3)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected ellipsis suffix, got %q", got[len(got)-5:])
	}
}
