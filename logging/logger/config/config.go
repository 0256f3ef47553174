package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config configuration struct for the logger.
type Config struct {
	Level         int            `json:"level" yaml:"level"`
	Format        string         `json:"format" yaml:"format"`
	Output        string         `json:"output" yaml:"output"`
	OutputFile    string         `json:"output_file" yaml:"output_file"`
	IndexName     string         `json:"index_name" yaml:"index_name"`
	Meilisearch   *Meilisearch   `json:"meilisearch" yaml:"meilisearch"`
	Elasticsearch *Elasticsearch `json:"elasticsearch" yaml:"elasticsearch"`
	OpenSearch    *OpenSearch    `json:"opensearch" yaml:"opensearch"`
}

// GetConfig reads the logger configuration from viper.
func GetConfig(v *viper.Viper) *Config {
	if !v.IsSet("logger") {
		return nil
	}

	indexName := strings.ToLower(v.GetString("app_name") + "-" + v.GetString("run_mode") + "-log")
	if v.IsSet("logger.index_name") && v.GetString("logger.index_name") != "" {
		indexName = v.GetString("logger.index_name")
	}

	return &Config{
		Level:         v.GetInt("logger.level"),
		Format:        v.GetString("logger.format"),
		Output:        v.GetString("logger.output"),
		OutputFile:    v.GetString("logger.output_file"),
		IndexName:     indexName,
		Meilisearch:   getMeilisearchConfigs(v),
		Elasticsearch: getElasticsearchConfigs(v),
		OpenSearch:    getOpenSearchConfigs(v),
	}
}

// BuildIndexName returns the dated index name for a log entry.
func (c *Config) BuildIndexName(logTime time.Time) string {
	base := c.IndexName
	if base == "" {
		base = "extcore-log"
	}
	return fmt.Sprintf("%s-%s", base, logTime.Format("2006.01.02"))
}
