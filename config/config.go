package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the drainage network backend
type Config struct {
	Server   ServerConfig
	MQTT     MQTTConfig
	Database DatabaseConfig
	Sim      SimConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// MQTTConfig holds MQTT broker configuration
type MQTTConfig struct {
	Enabled      bool
	BrokerURL    string
	ClientID     string
	Username     string
	Password     string
	KeepAlive    time.Duration
	PingTimeout  time.Duration
	ConnectRetry bool
}

// DatabaseConfig holds PostgreSQL database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// SimConfig holds simulation engine configuration
type SimConfig struct {
	Seed             int64
	Scenario         string
	TickInterval     time.Duration
	AutosaveInterval time.Duration
	AutoStart        bool
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
		},
		MQTT: MQTTConfig{
			Enabled:      getBoolEnv("MQTT_ENABLED", false),
			BrokerURL:    getMQTTBrokerURL(),
			ClientID:     getEnv("MQTT_CLIENT_ID", "ecoflow_backend"),
			Username:     getEnv("MQTT_USERNAME", ""),
			Password:     getEnv("MQTT_PASSWORD", ""),
			KeepAlive:    getDurationEnv("MQTT_KEEP_ALIVE", 30*time.Second),
			PingTimeout:  getDurationEnv("MQTT_PING_TIMEOUT", 10*time.Second),
			ConnectRetry: getBoolEnv("MQTT_CONNECT_RETRY", true),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "ecoflow"),
			SSLMode:  getEnv("DB_SSLMODE", "require"),
		},
		Sim: SimConfig{
			Seed:             getInt64Env("SIM_SEED", 240219),
			Scenario:         getEnv("SIM_SCENARIO", "normal_ops"),
			TickInterval:     getDurationEnv("SIM_TICK_INTERVAL", 2*time.Second),
			AutosaveInterval: getDurationEnv("AUTOSAVE_INTERVAL", 5*time.Second),
			AutoStart:        getBoolEnv("SIM_AUTO_START", true),
		},
	}
}

// getEnv returns environment variable value or default if not set
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv returns duration environment variable value or default if not set
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getBoolEnv returns boolean environment variable value or default if not set
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getInt64Env returns int64 environment variable value or default if not set
func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getMQTTBrokerURL returns MQTT broker URL with tcp:// prefix if not present
// Supports both "localhost:1883" and "tcp://localhost:1883" formats
func getMQTTBrokerURL() string {
	broker := getEnv("MQTT_BROKER", getEnv("MQTT_BROKER_URL", "tcp://localhost:1883"))

	if broker != "" && !strings.HasPrefix(broker, "tcp:") && !strings.HasPrefix(broker, "ssl") {
		return "tcp://" + broker
	}
	return broker
}
