package logger

import (
	"fmt"
	"sync"

	"github.com/axonbase/extcore/logging/logger/config"
	"github.com/sirupsen/logrus"
)

// HookType represents the type of logging hook
type HookType string

const (
	HookElasticsearch HookType = "elasticsearch"
	HookOpenSearch    HookType = "opensearch"
	HookMeilisearch   HookType = "meilisearch"
)

// HookFactory creates a logrus hook from configuration
type HookFactory func(cfg *config.Config) (logrus.Hook, error)

var (
	hookFactories = map[HookType]HookFactory{
		HookElasticsearch: newElasticSearchHook,
		HookOpenSearch:    newOpenSearchHook,
		HookMeilisearch:   newMeiliSearchHook,
	}
	hookMu sync.RWMutex
)

// RegisterHookFactory registers a hook factory for a given type, replacing
// the built-in one.
func RegisterHookFactory(hookType HookType, factory HookFactory) {
	hookMu.Lock()
	defer hookMu.Unlock()
	hookFactories[hookType] = factory
}

// GetHookFactory returns the factory for a given hook type
func GetHookFactory(hookType HookType) (HookFactory, bool) {
	hookMu.RLock()
	defer hookMu.RUnlock()
	factory, ok := hookFactories[hookType]
	return factory, ok
}

// initSearchHooks initializes all configured search engine hooks
func (l *Logger) initSearchHooks(cfg *config.Config) error {
	if cfg == nil {
		return nil
	}

	hookMu.RLock()
	defer hookMu.RUnlock()

	if cfg.Elasticsearch != nil && len(cfg.Elasticsearch.Addresses) > 0 {
		if factory, ok := hookFactories[HookElasticsearch]; ok {
			hook, err := factory(cfg)
			if err != nil {
				return fmt.Errorf("failed to create elasticsearch hook: %w", err)
			}
			l.AddHook(hook)
		}
	}

	if cfg.OpenSearch != nil && len(cfg.OpenSearch.Addresses) > 0 {
		if factory, ok := hookFactories[HookOpenSearch]; ok {
			hook, err := factory(cfg)
			if err != nil {
				return fmt.Errorf("failed to create opensearch hook: %w", err)
			}
			l.AddHook(hook)
		}
	}

	if cfg.Meilisearch != nil && cfg.Meilisearch.Host != "" {
		if factory, ok := hookFactories[HookMeilisearch]; ok {
			hook, err := factory(cfg)
			if err != nil {
				return fmt.Errorf("failed to create meilisearch hook: %w", err)
			}
			l.AddHook(hook)
		}
	}

	return nil
}
