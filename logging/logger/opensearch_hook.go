package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/axonbase/extcore/logging/logger/config"
	"github.com/axonbase/extcore/search/opensearch"
	"github.com/sirupsen/logrus"
)

// OpenSearchHook represents an OpenSearch log hook
type OpenSearchHook struct {
	client *opensearch.Client
	config *config.Config
}

func newOpenSearchHook(cfg *config.Config) (logrus.Hook, error) {
	client, err := opensearch.NewClient(
		cfg.OpenSearch.Addresses,
		cfg.OpenSearch.Username,
		cfg.OpenSearch.Password,
		cfg.OpenSearch.InsecureSkipTLS,
	)
	if err != nil {
		return nil, err
	}
	return &OpenSearchHook{client: client, config: cfg}, nil
}

// Levels returns all log levels
func (h *OpenSearchHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire sends log entry to OpenSearch
func (h *OpenSearchHook) Fire(entry *logrus.Entry) error {
	currentIndex := h.config.BuildIndexName(entry.Time)
	docID := fmt.Sprintf("%d-%d", entry.Time.UnixNano(), time.Now().Nanosecond())
	return h.client.IndexDocument(
		context.Background(),
		currentIndex,
		docID,
		prepareLogDocument(entry),
	)
}
