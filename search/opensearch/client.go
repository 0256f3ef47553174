package opensearch

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"
)

// Client is a thin OpenSearch client used by the logger hook.
type Client struct {
	client *opensearchapi.Client
}

// NewClient creates a new OpenSearch client.
func NewClient(addresses []string, username, password string, insecure bool) (*Client, error) {
	if len(addresses) == 0 {
		return &Client{client: nil}, nil
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: insecure,
		},
	}

	client, err := opensearchapi.NewClient(
		opensearchapi.Config{
			Client: opensearch.Config{
				Addresses:  addresses,
				Username:   username,
				Password:   password,
				Transport:  transport,
				MaxRetries: 3,
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("opensearch client creation error: %w", err)
	}

	return &Client{client: client}, nil
}

// IndexDocument indexes a document.
func (c *Client) IndexDocument(ctx context.Context, indexName, documentID string, document any) error {
	if c == nil || c.client == nil {
		return errors.New("opensearch client is nil, cannot index documents")
	}

	data, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("error encoding document: %w", err)
	}

	indexReq := opensearchapi.IndexReq{
		Index:      indexName,
		DocumentID: documentID,
		Body:       strings.NewReader(string(data)),
	}

	if _, err := c.client.Index(ctx, indexReq); err != nil {
		return fmt.Errorf("opensearch indexing error: %w", err)
	}
	return nil
}
