package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Store configures the durable record store.
type Store struct {
	// Type selects the backend: memory, badger or sqlite.
	Type string `json:"type" yaml:"type"`
	// Path is the data directory (badger) or database file (sqlite).
	Path string `json:"path" yaml:"path"`
}

func getStoreConfig(v *viper.Viper) *Store {
	s := &Store{
		Type: v.GetString("store.type"),
		Path: v.GetString("store.path"),
	}
	if s.Type == "" {
		s.Type = "badger"
	}
	return s
}

// Validate checks the store configuration.
func (s *Store) Validate() error {
	switch s.Type {
	case "memory":
		return nil
	case "badger", "sqlite":
		if s.Path == "" {
			return fmt.Errorf("store type %q requires a path", s.Type)
		}
		return nil
	default:
		return fmt.Errorf("unknown store type %q", s.Type)
	}
}

// Metrics configures the lifecycle metrics collector.
type Metrics struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	FlushInterval string `json:"flush_interval" yaml:"flush_interval"`
	// Storage selects the snapshot backend: memory, redis or auto.
	Storage   string `json:"storage" yaml:"storage"`
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
	Retention string `json:"retention" yaml:"retention"`
	RedisAddr string `json:"redis_addr" yaml:"redis_addr"`
	RedisPass string `json:"redis_pass" yaml:"redis_pass"`
}

func getMetricsConfig(v *viper.Viper) *Metrics {
	if !v.IsSet("metrics") {
		return &Metrics{Enabled: false}
	}
	return &Metrics{
		Enabled:       v.GetBool("metrics.enabled"),
		FlushInterval: v.GetString("metrics.flush_interval"),
		Storage:       v.GetString("metrics.storage"),
		KeyPrefix:     v.GetString("metrics.key_prefix"),
		Retention:     v.GetString("metrics.retention"),
		RedisAddr:     v.GetString("metrics.redis_addr"),
		RedisPass:     v.GetString("metrics.redis_pass"),
	}
}

// Events configures lifecycle event fan-out beyond the in-process bus.
type Events struct {
	// Queue selects the optional broker: none, rabbitmq or kafka.
	Queue string `json:"queue" yaml:"queue"`
	// URL is the rabbitmq connection url.
	URL string `json:"url" yaml:"url"`
	// Brokers are the kafka bootstrap addresses.
	Brokers []string `json:"brokers" yaml:"brokers"`
	// Exchange is the rabbitmq exchange, Topic the kafka topic.
	Exchange string `json:"exchange" yaml:"exchange"`
	Topic    string `json:"topic" yaml:"topic"`
}

func getEventsConfig(v *viper.Viper) *Events {
	if !v.IsSet("events") {
		return &Events{Queue: "none"}
	}
	e := &Events{
		Queue:    v.GetString("events.queue"),
		URL:      v.GetString("events.url"),
		Brokers:  v.GetStringSlice("events.brokers"),
		Exchange: v.GetString("events.exchange"),
		Topic:    v.GetString("events.topic"),
	}
	if e.Queue == "" {
		e.Queue = "none"
	}
	return e
}
