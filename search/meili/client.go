package meili

import (
	"errors"
	"fmt"

	"github.com/meilisearch/meilisearch-go"
)

// Client is a thin Meilisearch client used by the logger hook.
type Client struct {
	client meilisearch.ServiceManager
}

// NewMeilisearch creates a new Meilisearch client.
func NewMeilisearch(host, apiKey string) *Client {
	if host == "" {
		return &Client{client: nil}
	}
	ms := meilisearch.New(host, meilisearch.WithAPIKey(apiKey))
	return &Client{client: ms}
}

// IndexDocuments indexes documents into the given index.
func (c *Client) IndexDocuments(index string, document any, primaryKey ...string) error {
	if c == nil || c.client == nil {
		return errors.New("meilisearch client is nil, cannot index documents")
	}
	if _, err := c.client.Index(index).AddDocuments(document, primaryKey...); err != nil {
		return fmt.Errorf("meilisearch index document error: %v", err)
	}
	return nil
}
