package server

import (
	"context"
	"fmt"
	"log"

	"github.com/jonathan/exam-automation/internal/config"
	"github.com/jonathan/exam-automation/internal/db"
	"github.com/jonathan/exam-automation/internal/memstore"
	"github.com/jonathan/exam-automation/internal/notify"
	"github.com/jonathan/exam-automation/internal/orchestration"
	"github.com/jonathan/exam-automation/internal/server/ratelimit"
)

// Open connects to the database and the optional MQTT broker and builds a
// Server from environment configuration.
func Open(ctx context.Context, cfg *config.ServerConfig) (*Server, error) {
	passwordConfig, err := config.NewPasswordConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create password config: %w", err)
	}
	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	shutdown := []func(){database.Close}

	var notifier orchestration.Notifier = notify.LogNotifier{}
	if cfg.MQTTEnabled() {
		mqttNotifier, err := notify.NewMQTTNotifier(notify.MQTTConfig{
			BrokerURL:   cfg.MQTTBrokerURL,
			ClientID:    cfg.MQTTClientID,
			Username:    cfg.MQTTUsername,
			Password:    cfg.MQTTPassword,
			TopicPrefix: cfg.MQTTTopicPrefix,
			QoS:         byte(cfg.MQTTQoS),
		})
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to connect notifier: %w", err)
		}
		log.Printf("[server] publishing application events to %s", cfg.MQTTBrokerURL)
		notifier = mqttNotifier
		shutdown = append([]func(){mqttNotifier.Close}, shutdown...)
	}

	return New(Config{Port: cfg.Port}, Deps{
		Service:     orchestration.NewService(database, notifier),
		Users:       NewUserService(database, passwordConfig),
		JWT:         NewJWTService(jwtConfig),
		RateLimiter: ratelimit.NewLimiter(ratelimit.LoadConfig()),
		Health:      database,
		OnShutdown:  shutdown,
	}), nil
}

// OpenInMemory builds a Server over an empty in-memory store. Nothing
// survives a restart; it exists for local development and demos.
func OpenInMemory(port int) (*Server, *memstore.Store, error) {
	passwordConfig, err := config.NewPasswordConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create password config: %w", err)
	}
	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create JWT config: %w", err)
	}

	store := memstore.New()
	log.Printf("[server] using in-memory store; data is lost on exit")
	return New(Config{Port: port}, Deps{
		Service:     orchestration.NewService(store, notify.LogNotifier{}),
		Users:       NewUserService(store, passwordConfig),
		JWT:         NewJWTService(jwtConfig),
		RateLimiter: ratelimit.NewLimiter(ratelimit.LoadConfig()),
		Health:      store,
	}), store, nil
}
