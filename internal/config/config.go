// Package config loads settings for the simulator and the bridge from
// built-in defaults, an optional TOML or YAML file, a .env file and the
// process environment, in that order.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rawrobot/robot-mqtt-simulator/internal/mqtt"
)

type Config struct {
	Logging   Logging          `toml:"logging" yaml:"logging"`
	Broker    ConnectionConfig `toml:"broker" yaml:"broker"`
	Simulator SimulatorConfig  `toml:"simulator" yaml:"simulator"`
	Display   DisplayConfig    `toml:"display" yaml:"display"`
	Bridge    BridgeConfig     `toml:"bridge" yaml:"bridge"`
}

type Logging struct {
	Level                 string `toml:"level" yaml:"level"`
	Pretty                bool   `toml:"pretty" yaml:"pretty"`
	OutputDir             string `toml:"output_dir" yaml:"output_dir"`
	EnableSessionLog      bool   `toml:"enable_session_log" yaml:"enable_session_log"`
	SessionLogMaxDuration string `toml:"session_log_max_duration" yaml:"session_log_max_duration"`
}

type SimulatorConfig struct {
	Interval         string  `toml:"interval" yaml:"interval"`
	LidarProbability float64 `toml:"lidar_probability" yaml:"lidar_probability"`
	MapProbability   float64 `toml:"map_probability" yaml:"map_probability"`
	LidarPoints      int     `toml:"lidar_points" yaml:"lidar_points"`
	Seed             uint64  `toml:"seed" yaml:"seed"` // 0 picks a random seed
}

type DisplayConfig struct {
	TUI        bool `toml:"tui" yaml:"tui"`
	Truncate   bool `toml:"truncate" yaml:"truncate"`
	TopicDepth int  `toml:"topic_depth" yaml:"topic_depth"` // Number of topic levels to show from the end
}

type BridgeConfig struct {
	Source ConnectionConfig `toml:"source" yaml:"source"`
	Target ConnectionConfig `toml:"target" yaml:"target"`
	Topics []string         `toml:"topics" yaml:"topics"`
}

type ConnectionConfig struct {
	Name                  string `toml:"name" yaml:"name"`
	Server                string `toml:"server" yaml:"server"`
	User                  string `toml:"user,omitempty" yaml:"user,omitempty"`
	Password              string `toml:"password,omitempty" yaml:"password,omitempty"`
	ClientID              string `toml:"client_id,omitempty" yaml:"client_id,omitempty"` // used verbatim when set
	ClientIDBase          string `toml:"client_id_base" yaml:"client_id_base"`
	QoS                   byte   `toml:"qos,omitempty" yaml:"qos,omitempty"`
	Retained              bool   `toml:"retained,omitempty" yaml:"retained,omitempty"`
	KeepAlive             string `toml:"keep_alive,omitempty" yaml:"keep_alive,omitempty"`
	ConnectTimeout        string `toml:"connect_timeout,omitempty" yaml:"connect_timeout,omitempty"`
	ConnectRetry          bool   `toml:"connect_retry,omitempty" yaml:"connect_retry,omitempty"`
	TLSCertFile           string `toml:"tls_cert_file,omitempty" yaml:"tls_cert_file,omitempty"`
	TLSKeyFile            string `toml:"tls_key_file,omitempty" yaml:"tls_key_file,omitempty"`
	TLSCAFile             string `toml:"tls_ca_file,omitempty" yaml:"tls_ca_file,omitempty"`
	TLSInsecureSkipVerify bool   `toml:"tls_insecure_skip_verify,omitempty" yaml:"tls_insecure_skip_verify,omitempty"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		Logging: Logging{
			Level:                 "info",
			Pretty:                true,
			OutputDir:             "logs",
			SessionLogMaxDuration: "1h",
		},
		Broker: ConnectionConfig{
			Name:           "simulator",
			Server:         "tcp://localhost:8083",
			User:           "default_user",
			Password:       "0000",
			ClientIDBase:   "robot_simulator",
			KeepAlive:      "60s",
			ConnectTimeout: "10s",
		},
		Simulator: SimulatorConfig{
			Interval:         "1s",
			LidarProbability: 0.3,
			MapProbability:   0.1,
			LidarPoints:      200,
		},
		Display: DisplayConfig{
			Truncate:   true,
			TopicDepth: 3,
		},
		Bridge: BridgeConfig{
			Source: ConnectionConfig{
				Name:         "local",
				Server:       "tcp://localhost:1883",
				ClientIDBase: "mqtt_bridge_local",
				ConnectRetry: true,
			},
			Target: ConnectionConfig{
				Name:         "public",
				ClientIDBase: "mqtt_bridge_public",
				ConnectRetry: true,
			},
			Topics: []string{"#"},
		},
	}
}

// Load reads filename on top of the defaults. An empty filename keeps the
// defaults. Environment variables, including those from a .env file in the
// working directory, override both.
func Load(filename string) (*Config, error) {
	config := Default()

	if filename != "" {
		if err := decodeFile(filename, config); err != nil {
			return nil, err
		}
	}

	// .env is optional
	_ = godotenv.Load()
	applyEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func decodeFile(filename string, config *Config) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(config); err != nil {
			return fmt.Errorf("failed to parse config %s: %w", filename, err)
		}
	default:
		meta, err := toml.DecodeFile(filename, config)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown config key %q in %s", undecoded[0].String(), filename)
		}
	}
	return nil
}

func applyEnv(config *Config) {
	broker := &config.Broker
	setFromEnv(&broker.Server, "MQTT_URL")
	setFromEnv(&broker.User, "MQTT_USER")
	setFromEnv(&broker.Password, "MQTT_PASSWORD")
	setFromEnv(&broker.ClientID, "MQTT_CLIENT_ID")

	applyConnectionEnv(&config.Bridge.Source, "LOCAL_MQTT")
	applyConnectionEnv(&config.Bridge.Target, "PUBLIC_MQTT")

	if topics := os.Getenv("TOPICS"); topics != "" {
		config.Bridge.Topics = splitTopics(topics)
	}
}

func applyConnectionEnv(conn *ConnectionConfig, prefix string) {
	setFromEnv(&conn.Server, prefix+"_URL")
	setFromEnv(&conn.ClientID, prefix+"_CLIENT_ID")
	setFromEnv(&conn.User, prefix+"_USERNAME")
	setFromEnv(&conn.Password, prefix+"_PASSWORD")
}

func setFromEnv(field *string, key string) {
	if v := os.Getenv(key); v != "" {
		*field = v
	}
}

func splitTopics(value string) []string {
	var topics []string
	for _, t := range strings.Split(value, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}

// Validate checks the simulator side of the configuration. Bridge settings
// are checked by ValidateBridge since only the bridge needs them.
func (c *Config) Validate() error {
	if _, err := c.Simulator.IntervalDuration(); err != nil {
		return err
	}
	if p := c.Simulator.LidarProbability; p < 0 || p > 1 {
		return fmt.Errorf("lidar_probability %v outside [0,1]", p)
	}
	if p := c.Simulator.MapProbability; p < 0 || p > 1 {
		return fmt.Errorf("map_probability %v outside [0,1]", p)
	}
	if c.Simulator.LidarPoints < 1 {
		return fmt.Errorf("lidar_points must be at least 1, got %d", c.Simulator.LidarPoints)
	}
	if c.Display.TopicDepth < 1 {
		c.Display.TopicDepth = 3
	}
	if c.Logging.EnableSessionLog {
		if _, err := time.ParseDuration(c.Logging.SessionLogMaxDuration); err != nil {
			return fmt.Errorf("invalid session_log_max_duration: %w", err)
		}
	}
	return c.Broker.Validate()
}

// ValidateBridge checks both bridge connections and the topic list.
func (c *Config) ValidateBridge() error {
	if err := c.Bridge.Source.Validate(); err != nil {
		return fmt.Errorf("bridge source: %w", err)
	}
	if err := c.Bridge.Target.Validate(); err != nil {
		return fmt.Errorf("bridge target: %w", err)
	}
	if len(c.Bridge.Topics) == 0 {
		return fmt.Errorf("at least one bridge topic is required")
	}
	return nil
}

// IntervalDuration parses the publish interval.
func (s SimulatorConfig) IntervalDuration() (time.Duration, error) {
	d, err := time.ParseDuration(s.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid simulator interval %q: %w", s.Interval, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("simulator interval must be positive, got %s", d)
	}
	return d, nil
}

// Validate checks a single broker connection.
func (c *ConnectionConfig) Validate() error {
	if c.Server == "" {
		return fmt.Errorf("server is required for connection %s", c.Name)
	}
	if c.QoS > 2 {
		return fmt.Errorf("qos %d is invalid for connection %s", c.QoS, c.Name)
	}
	for _, d := range []string{c.KeepAlive, c.ConnectTimeout} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("invalid duration for connection %s: %w", c.Name, err)
		}
	}

	if (c.TLSCertFile != "" && c.TLSKeyFile == "") ||
		(c.TLSCertFile == "" && c.TLSKeyFile != "") {
		return fmt.Errorf("both tls_cert_file and tls_key_file must be specified together")
	}
	for _, f := range []string{c.TLSCertFile, c.TLSKeyFile, c.TLSCAFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); os.IsNotExist(err) {
			return fmt.Errorf("TLS file not found: %s", f)
		}
	}
	return nil
}

// UniqueClientID returns ClientID when set, otherwise ClientIDBase with a
// random suffix so concurrent instances do not kick each other off.
func (c *ConnectionConfig) UniqueClientID() string {
	if c.ClientID != "" {
		return c.ClientID
	}
	base := c.ClientIDBase
	if base == "" {
		base = c.Name
	}
	return fmt.Sprintf("%s_%s", base, uuid.NewString()[:8])
}

// ToMQTTConfig converts ConnectionConfig to mqtt.Config. Durations have
// already been checked by Validate.
func (c *ConnectionConfig) ToMQTTConfig() mqtt.Config {
	keepAlive, _ := time.ParseDuration(c.KeepAlive)
	connectTimeout, _ := time.ParseDuration(c.ConnectTimeout)

	return mqtt.Config{
		BrokerURL:             c.Server,
		ClientID:              c.UniqueClientID(),
		Username:              c.User,
		Password:              c.Password,
		CleanSession:          true,
		KeepAlive:             keepAlive,
		ConnectTimeout:        connectTimeout,
		ConnectRetry:          c.ConnectRetry,
		ConnectRetryInterval:  5 * time.Second,
		MaxReconnectInterval:  60 * time.Second,
		TLSCertFile:           c.TLSCertFile,
		TLSKeyFile:            c.TLSKeyFile,
		TLSCAFile:             c.TLSCAFile,
		TLSInsecureSkipVerify: c.TLSInsecureSkipVerify,
	}
}
