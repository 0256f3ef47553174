package elastic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Client is a thin Elasticsearch client used by the logger hook.
type Client struct {
	client *elasticsearch.Client
}

// NewClient creates a new Elasticsearch client.
func NewClient(addresses []string, username, password string) (*Client, error) {
	if len(addresses) == 0 {
		return &Client{client: nil}, nil
	}

	cfg := elasticsearch.Config{
		Addresses: addresses,
		Username:  username,
		Password:  password,
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client creation error: %w", err)
	}

	return &Client{client: es}, nil
}

// IndexDocument indexes a document.
func (c *Client) IndexDocument(ctx context.Context, indexName, documentID string, document any) error {
	if c == nil || c.client == nil {
		return errors.New("elasticsearch client is nil, cannot index documents")
	}

	var b strings.Builder
	if err := json.NewEncoder(&b).Encode(document); err != nil {
		return fmt.Errorf("error encoding document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      indexName,
		DocumentID: documentID,
		Body:       strings.NewReader(b.String()),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("elasticsearch indexing error: %w", err)
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(res.Body)

	if res.IsError() {
		return fmt.Errorf("elasticsearch indexing failed: %s", res.Status())
	}
	return nil
}
