package logger

import (
	"github.com/axonbase/extcore/logging/logger/config"
	"github.com/axonbase/extcore/search/meili"
	"github.com/sirupsen/logrus"
)

// MeiliSearchHook represents a MeiliSearch log hook
type MeiliSearchHook struct {
	client *meili.Client
	index  string
}

func newMeiliSearchHook(cfg *config.Config) (logrus.Hook, error) {
	client := meili.NewMeilisearch(cfg.Meilisearch.Host, cfg.Meilisearch.APIKey)
	return &MeiliSearchHook{client: client, index: cfg.IndexName}, nil
}

// Levels returns all log levels
func (h *MeiliSearchHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire sends log entry to MeiliSearch
func (h *MeiliSearchHook) Fire(entry *logrus.Entry) error {
	return h.client.IndexDocuments(h.index, []map[string]any{prepareLogDocument(entry)})
}
