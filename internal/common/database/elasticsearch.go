// internal/common/database/elasticsearch.go
package database

import (
	"context"
	"fmt"
	"strings"

	"findmysecurity/internal/common/config"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchClient wraps the client used by the search-backed listing source.
type ElasticsearchClient struct {
	Client      *elasticsearch.Client
	IndexPrefix string
}

func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
	}
	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &ElasticsearchClient{Client: es, IndexPrefix: cfg.IndexPrefix}, nil
}

func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	res, err := c.Client.Ping(c.Client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}
	return nil
}

// Index joins the configured prefix and an index name with "_".
func (c *ElasticsearchClient) Index(name string) string {
	if c.IndexPrefix == "" {
		return name
	}
	return strings.TrimSuffix(c.IndexPrefix, "_") + "_" + name
}
