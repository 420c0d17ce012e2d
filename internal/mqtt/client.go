package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// MQTT 3.1.1; paho.mqtt.golang does not speak v5.
const protocolVersion = 4

const disconnectQuiesce = 250 // ms

// Config represents MQTT client configuration
type Config struct {
	BrokerURL             string
	ClientID              string
	Username              string
	Password              string
	CleanSession          bool
	KeepAlive             time.Duration
	ConnectTimeout        time.Duration
	ConnectRetry          bool
	ConnectRetryInterval  time.Duration
	MaxReconnectInterval  time.Duration
	TLSCertFile           string
	TLSKeyFile            string
	TLSCAFile             string
	TLSInsecureSkipVerify bool
}

// Message represents a received MQTT message
type Message struct {
	Topic     string
	Payload   []byte
	QoS       byte
	Retained  bool
	Timestamp time.Time
}

// MessageHandler is a function type for handling received messages
type MessageHandler func(msg Message)

// ConnectionHandler is a function type for handling connection events
type ConnectionHandler func(connected bool, err error)

// ConnectError reports a broker that was unreachable or refused the session.
type ConnectError struct {
	Broker string
	Err    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("failed to connect to MQTT broker %s: %v", e.Broker, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// Client wraps a paho client. Paho runs the network goroutines; callers never
// block on delivery unless they ask for it.
type Client struct {
	config            Config
	client            mqtt.Client
	logger            zerolog.Logger
	messageHandler    MessageHandler
	connectionHandler ConnectionHandler

	mu     sync.Mutex
	topics []string
	qos    byte
}

// NewClient creates a new MQTT client. Nothing is dialed until Connect.
func NewClient(config Config, logger zerolog.Logger) *Client {
	return &Client{
		config: config,
		logger: logger,
		qos:    1,
	}
}

// SetMessageHandler sets the message handler function
func (c *Client) SetMessageHandler(handler MessageHandler) {
	c.messageHandler = handler
}

// SetConnectionHandler sets the connection handler function
func (c *Client) SetConnectionHandler(handler ConnectionHandler) {
	c.connectionHandler = handler
}

// SetQoS sets the Quality of Service level for subscriptions
func (c *Client) SetQoS(qos byte) {
	c.qos = qos
}

// Connect establishes connection to the MQTT broker. With ConnectRetry unset
// the first refusal is returned as a *ConnectError.
func (c *Client) Connect() error {
	opts, err := c.options()
	if err != nil {
		return err
	}

	c.client = mqtt.NewClient(opts)

	c.logger.Info().
		Str("broker", c.config.BrokerURL).
		Str("client_id", c.config.ClientID).
		Msg("Connecting to MQTT broker")

	token := c.client.Connect()
	if token.Wait() && token.Error() != nil {
		return &ConnectError{Broker: c.config.BrokerURL, Err: token.Error()}
	}

	return nil
}

func (c *Client) options() (*mqtt.ClientOptions, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.config.BrokerURL)
	opts.SetClientID(c.config.ClientID)
	opts.SetProtocolVersion(protocolVersion)
	opts.SetCleanSession(c.config.CleanSession)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(c.config.ConnectRetry)

	if c.config.KeepAlive > 0 {
		opts.SetKeepAlive(c.config.KeepAlive)
	} else {
		opts.SetKeepAlive(60 * time.Second)
	}

	if c.config.ConnectTimeout > 0 {
		opts.SetConnectTimeout(c.config.ConnectTimeout)
	}

	if c.config.ConnectRetryInterval > 0 {
		opts.SetConnectRetryInterval(c.config.ConnectRetryInterval)
	} else {
		opts.SetConnectRetryInterval(5 * time.Second)
	}

	if c.config.MaxReconnectInterval > 0 {
		opts.SetMaxReconnectInterval(c.config.MaxReconnectInterval)
	} else {
		opts.SetMaxReconnectInterval(60 * time.Second)
	}

	if c.config.Username != "" {
		opts.SetUsername(c.config.Username)
		if c.config.Password != "" {
			opts.SetPassword(c.config.Password)
		}
	}

	if NeedsTLS(c.config) {
		tlsConfig, err := TLSConfig(c.config)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		opts.SetTLSConfig(tlsConfig)
	}

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		c.logger.Warn().Err(err).Msg("MQTT connection lost")
		c.notify(false, err)
	})

	opts.SetReconnectingHandler(func(client mqtt.Client, opts *mqtt.ClientOptions) {
		c.logger.Info().Msg("MQTT reconnecting")
		c.notify(false, fmt.Errorf("reconnecting"))
	})

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		c.logger.Info().Msg("MQTT connected")
		c.notify(true, nil)

		// Re-subscribe to all topics on reconnect
		for _, topic := range c.subscribedTopics() {
			if err := c.subscribeToTopic(topic); err != nil {
				c.logger.Error().Err(err).Str("topic", topic).Msg("Failed to re-subscribe")
			}
		}
	})

	return opts, nil
}

func (c *Client) notify(connected bool, err error) {
	if c.connectionHandler != nil {
		c.connectionHandler(connected, err)
	}
}

// Subscribe subscribes to one or more topics
func (c *Client) Subscribe(topics ...string) error {
	if !c.IsConnected() {
		return fmt.Errorf("client is not connected")
	}

	for _, topic := range topics {
		if err := c.subscribeToTopic(topic); err != nil {
			return err
		}
		c.mu.Lock()
		c.topics = append(c.topics, topic)
		c.mu.Unlock()
	}

	return nil
}

func (c *Client) subscribedTopics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.topics...)
}

func (c *Client) subscribeToTopic(topic string) error {
	c.logger.Info().Str("topic", topic).Uint8("qos", c.qos).Msg("Subscribing to topic")

	token := c.client.Subscribe(topic, c.qos, c.internalMessageHandler)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, token.Error())
	}

	return nil
}

func (c *Client) internalMessageHandler(client mqtt.Client, msg mqtt.Message) {
	if c.messageHandler == nil {
		return
	}
	c.messageHandler(Message{
		Topic:     msg.Topic(),
		Payload:   msg.Payload(),
		QoS:       msg.Qos(),
		Retained:  msg.Retained(),
		Timestamp: time.Now(),
	})
}

// PublishAsync hands the payload to paho and returns immediately. onDone, when
// set, is called from a separate goroutine once the delivery settles.
func (c *Client) PublishAsync(topic string, payload []byte, qos byte, retained bool, onDone func(error)) {
	if c.client == nil {
		if onDone != nil {
			onDone(fmt.Errorf("client is not connected"))
		}
		return
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if onDone == nil {
		return
	}

	go func() {
		<-token.Done()
		if err := token.Error(); err != nil {
			onDone(fmt.Errorf("failed to publish to topic %s: %w", topic, err))
			return
		}
		onDone(nil)
	}()
}

// IsConnected returns true if the client is connected
func (c *Client) IsConnected() bool {
	return c.client != nil && c.client.IsConnected()
}

// Disconnect disconnects from the MQTT broker and stops paho's goroutines.
func (c *Client) Disconnect() {
	if c.client == nil {
		return
	}
	c.logger.Info().Msg("Disconnecting from MQTT broker")
	c.client.Disconnect(disconnectQuiesce)
}

// NeedsTLS reports whether the broker URL or TLS settings ask for TLS.
func NeedsTLS(config Config) bool {
	return strings.HasPrefix(config.BrokerURL, "ssl://") ||
		strings.HasPrefix(config.BrokerURL, "tls://") ||
		strings.HasPrefix(config.BrokerURL, "mqtts://") ||
		strings.HasPrefix(config.BrokerURL, "wss://") ||
		config.TLSCertFile != "" ||
		config.TLSCAFile != "" ||
		config.TLSInsecureSkipVerify
}

// TLSConfig builds the TLS configuration from the certificate settings.
func TLSConfig(config Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: config.TLSInsecureSkipVerify,
	}

	if config.TLSCertFile != "" && config.TLSKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(config.TLSCertFile, config.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if config.TLSCAFile != "" {
		caCert, err := os.ReadFile(config.TLSCAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}

		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		tlsConfig.RootCAs = caCertPool
	}

	return tlsConfig, nil
}
