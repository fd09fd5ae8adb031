package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/EcoFlow-E2/ecoflow_backend/internal/models"
)

// ValveCommand is the payload accepted on the valve command topic
type ValveCommand struct {
	ValveID      string `json:"valve_id"`
	DesiredState string `json:"desired_state,omitempty"`
}

// ParseValveState maps a desired_state payload field to a valve state.
// Unrecognized or empty values return the zero state, which the engine
// treats as a toggle request.
func ParseValveState(desiredState string) models.ValveState {
	switch strings.ToUpper(desiredState) {
	case string(models.ValveOn):
		return models.ValveOn
	case string(models.ValveOff):
		return models.ValveOff
	default:
		return ""
	}
}

// Client wraps the MQTT client with drainage network specific functionality
type Client struct {
	client       mqtt.Client
	valveHandler func(valveID, desiredState string)
	errorHandler func(error)
	isConnected  bool
}

// Config holds MQTT connection configuration
type Config struct {
	BrokerURL    string
	ClientID     string
	Username     string
	Password     string
	KeepAlive    time.Duration
	PingTimeout  time.Duration
	ConnectRetry bool
}

// DefaultConfig returns default MQTT configuration
func DefaultConfig() *Config {
	return &Config{
		BrokerURL:    "tcp://localhost:1883",
		ClientID:     "ecoflow_backend",
		Username:     "",
		Password:     "",
		KeepAlive:    30 * time.Second,
		PingTimeout:  10 * time.Second,
		ConnectRetry: true,
	}
}

// NewClient creates a new MQTT client for the drainage network
func NewClient(config *Config) *Client {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.BrokerURL)
	opts.SetClientID(config.ClientID)
	opts.SetKeepAlive(config.KeepAlive)
	opts.SetPingTimeout(config.PingTimeout)
	opts.SetCleanSession(true)

	if config.Username != "" {
		opts.SetUsername(config.Username)
	}
	if config.Password != "" {
		opts.SetPassword(config.Password)
	}

	client := &Client{
		isConnected: false,
	}

	// Set connection handlers
	opts.SetDefaultPublishHandler(client.defaultMessageHandler)
	opts.SetOnConnectHandler(client.onConnect)
	opts.SetConnectionLostHandler(client.onConnectionLost)

	client.client = mqtt.NewClient(opts)

	return client
}

// Connect establishes connection to MQTT broker
func (c *Client) Connect() error {
	log.Println("Connecting to MQTT broker...")

	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	log.Println("Successfully connected to MQTT broker")
	c.isConnected = true
	return nil
}

// Disconnect closes the MQTT connection
func (c *Client) Disconnect() {
	if c.isConnected {
		c.client.Disconnect(250)
		c.isConnected = false
		log.Println("Disconnected from MQTT broker")
	}
}

// IsConnected returns the connection status
func (c *Client) IsConnected() bool {
	return c.isConnected && c.client.IsConnected()
}

// SetValveCommandHandler sets the callback for incoming valve commands
func (c *Client) SetValveCommandHandler(handler func(valveID, desiredState string)) {
	c.valveHandler = handler
}

// SetErrorHandler sets the callback function for errors
func (c *Client) SetErrorHandler(handler func(error)) {
	c.errorHandler = handler
}

// SubscribeToValveCommands subscribes to the valve command topics
func (c *Client) SubscribeToValveCommands() error {
	topics := map[string]byte{
		"ecoflow/valves/+/command": 1, // + is wildcard for valve ID
		"ecoflow/valves/command":   1, // General command topic with valve_id in payload
	}

	for topic, qos := range topics {
		if token := c.client.Subscribe(topic, qos, c.valveCommandHandler); token.Wait() && token.Error() != nil {
			return fmt.Errorf("failed to subscribe to topic %s: %w", topic, token.Error())
		}
		log.Printf("Subscribed to topic: %s", topic)
	}

	return nil
}

// valveCommandHandler processes incoming valve command messages
func (c *Client) valveCommandHandler(client mqtt.Client, msg mqtt.Message) {
	log.Printf("Received valve command on topic %s: %s", msg.Topic(), string(msg.Payload()))

	var command ValveCommand
	if err := json.Unmarshal(msg.Payload(), &command); err != nil {
		log.Printf("Failed to parse valve command: %v", err)
		if c.errorHandler != nil {
			c.errorHandler(fmt.Errorf("valve command parsing failed: %w", err))
		}
		return
	}

	if command.ValveID == "" {
		log.Println("Ignoring valve command without valve_id")
		return
	}

	if c.valveHandler != nil {
		c.valveHandler(command.ValveID, command.DesiredState)
	}
}

// defaultMessageHandler handles messages on unsubscribed topics
func (c *Client) defaultMessageHandler(client mqtt.Client, msg mqtt.Message) {
	log.Printf("Received message on unhandled topic %s: %s", msg.Topic(), string(msg.Payload()))
}

// onConnect callback when connection is established
func (c *Client) onConnect(client mqtt.Client) {
	log.Println("MQTT client connected")
	c.isConnected = true
}

// onConnectionLost callback when connection is lost
func (c *Client) onConnectionLost(client mqtt.Client, err error) {
	log.Printf("MQTT connection lost: %v", err)
	c.isConnected = false

	if c.errorHandler != nil {
		c.errorHandler(fmt.Errorf("MQTT connection lost: %w", err))
	}
}

// PublishSnapshot publishes a completed tick snapshot for external consumers
func (c *Client) PublishSnapshot(snapshot models.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	topic := "ecoflow/simulation/snapshot"
	if token := c.client.Publish(topic, 1, false, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish snapshot: %w", token.Error())
	}

	return nil
}

// PublishNotice publishes an operator notice (alerts, valve outcomes)
func (c *Client) PublishNotice(level, message string) error {
	payload, err := json.Marshal(map[string]string{
		"level":   level,
		"message": message,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notice: %w", err)
	}

	topic := "ecoflow/simulation/notices"
	if token := c.client.Publish(topic, 1, false, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish notice: %w", token.Error())
	}

	return nil
}
