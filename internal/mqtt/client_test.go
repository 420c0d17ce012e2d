package mqtt

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestNeedsTLS(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   bool
	}{
		{"plain tcp", Config{BrokerURL: "tcp://localhost:1883"}, false},
		{"websocket", Config{BrokerURL: "ws://localhost:8083/mqtt"}, false},
		{"ssl scheme", Config{BrokerURL: "ssl://broker:8883"}, true},
		{"secure websocket", Config{BrokerURL: "wss://broker/mqtt"}, true},
		{"ca file on tcp", Config{BrokerURL: "tcp://broker:1883", TLSCAFile: "ca.pem"}, true},
		{"skip verify", Config{BrokerURL: "tcp://broker:1883", TLSInsecureSkipVerify: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NeedsTLS(tt.config); got != tt.want {
				t.Errorf("NeedsTLS() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTLSConfigRejectsBadCA(t *testing.T) {
	caFile := filepath.Join(t.TempDir(), "ca.pem")
	if err := os.WriteFile(caFile, []byte("not a certificate"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := TLSConfig(Config{TLSCAFile: caFile}); err == nil {
		t.Fatal("expected error for unparsable CA file")
	}
}

func TestTLSConfigInsecure(t *testing.T) {
	cfg, err := TLSConfig(Config{TLSInsecureSkipVerify: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.InsecureSkipVerify {
		t.Error("InsecureSkipVerify not propagated")
	}
}

func TestConnectErrorUnwraps(t *testing.T) {
	cause := errors.New("not authorized")
	var err error = &ConnectError{Broker: "tcp://localhost:8083", Err: cause}

	var connectErr *ConnectError
	if !errors.As(err, &connectErr) {
		t.Fatal("errors.As did not match ConnectError")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not reach the cause")
	}
}

func TestPublishAsyncBeforeConnect(t *testing.T) {
	c := NewClient(Config{BrokerURL: "tcp://localhost:1883"}, zerolog.Nop())

	var got error
	c.PublishAsync("robot/sensors/obstacle", []byte("{}"), 0, false, func(err error) {
		got = err
	})
	if got == nil {
		t.Error("expected error when publishing without a connection")
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true before Connect")
	}
}
