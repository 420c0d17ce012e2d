package mqtt

import (
	"strings"
	"unicode"
)

// Payloads longer than this are cut before display; lidar scans run to
// several kilobytes.
const maxDisplayPayload = 512

// TruncateTopic truncates a topic to show only the last N levels
// Example: "robot/sensors/lidar" with depth 2 returns "sensors/lidar"
func TruncateTopic(topic string, depth int) string {
	if depth <= 0 {
		return topic
	}

	parts := strings.Split(topic, "/")
	if len(parts) <= depth {
		return topic
	}

	return strings.Join(parts[len(parts)-depth:], "/")
}

// SanitizePayload flattens a payload onto one line for display.
func SanitizePayload(payload []byte) string {
	content := string(payload)
	if len(content) > maxDisplayPayload {
		content = content[:maxDisplayPayload] + "..."
	}

	sanitized := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, content)

	return strings.Join(strings.Fields(sanitized), " ")
}
