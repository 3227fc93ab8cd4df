// Package config loads process configuration from the environment.
// Values are normally supplied through a .env file loaded by the CLI.
package config

import (
	"fmt"
)

// DefaultPort is the HTTP port used when PORT is unset.
const DefaultPort = 8080

// ServerConfig holds settings for the HTTP API process.
type ServerConfig struct {
	Port        int
	DatabaseURL string

	// MQTT notifications are enabled only when MQTTBrokerURL is set.
	MQTTBrokerURL   string
	MQTTClientID    string
	MQTTUsername    string
	MQTTPassword    string
	MQTTTopicPrefix string
	MQTTQoS         int
}

// LoadServerConfig reads DATABASE_URL (required), PORT, and the optional
// MQTT_* settings.
func LoadServerConfig() (*ServerConfig, error) {
	cfg := &ServerConfig{
		DatabaseURL:     envString("DATABASE_URL", ""),
		MQTTBrokerURL:   envString("MQTT_BROKER_URL", ""),
		MQTTClientID:    envString("MQTT_CLIENT_ID", "exam-automation-api"),
		MQTTUsername:    envString("MQTT_USERNAME", ""),
		MQTTPassword:    envString("MQTT_PASSWORD", ""),
		MQTTTopicPrefix: envString("MQTT_TOPIC_PREFIX", "exam-automation"),
	}

	var err error
	if cfg.Port, err = envInt("PORT", DefaultPort); err != nil {
		return nil, err
	}
	if cfg.MQTTQoS, err = envInt("MQTT_QOS", 1); err != nil {
		return nil, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MQTTEnabled reports whether a broker is configured.
func (c *ServerConfig) MQTTEnabled() bool {
	return c.MQTTBrokerURL != ""
}

func (c *ServerConfig) normalize() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required but not set")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.MQTTQoS < 0 || c.MQTTQoS > 2 {
		return fmt.Errorf("MQTT_QOS must be 0, 1 or 2, got: %d", c.MQTTQoS)
	}
	return nil
}
