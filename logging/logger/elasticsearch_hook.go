package logger

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/axonbase/extcore/logging/logger/config"
	"github.com/axonbase/extcore/search/elastic"
	"github.com/sirupsen/logrus"
)

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// ElasticSearchHook represents an Elasticsearch log hook
type ElasticSearchHook struct {
	client *elastic.Client
	config *config.Config
}

func newElasticSearchHook(cfg *config.Config) (logrus.Hook, error) {
	client, err := elastic.NewClient(
		cfg.Elasticsearch.Addresses,
		cfg.Elasticsearch.Username,
		cfg.Elasticsearch.Password,
	)
	if err != nil {
		return nil, err
	}
	return &ElasticSearchHook{client: client, config: cfg}, nil
}

// Levels returns all log levels
func (h *ElasticSearchHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire sends log entry to Elasticsearch
func (h *ElasticSearchHook) Fire(entry *logrus.Entry) error {
	currentIndex := h.config.BuildIndexName(entry.Time)
	docID := fmt.Sprintf("%d-%d", entry.Time.UnixNano(), time.Now().Nanosecond())
	return h.client.IndexDocument(
		context.Background(),
		currentIndex,
		docID,
		prepareLogDocument(entry),
	)
}

// prepareLogDocument prepares the log document structure shared by the
// search hooks.
func prepareLogDocument(entry *logrus.Entry) map[string]any {
	logDoc := make(map[string]any)

	logDoc["@timestamp"] = entry.Time.Format(time.RFC3339)
	logDoc["timestamp"] = entry.Time.UnixMilli()
	logDoc["level"] = entry.Level.String()
	logDoc["message"] = entry.Message

	if hostname, err := os.Hostname(); err == nil {
		logDoc["hostname"] = hostname
	}

	for key, value := range entry.Data {
		// Avoid overwriting system fields
		if key != "@timestamp" && key != "timestamp" && key != "level" && key != "message" {
			logDoc[key] = value
		}
	}

	return logDoc
}
