package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/blackwell-systems/burnwatch/internal/activity"
)

// ElasticPublisher indexes every snapshot as a document.
type ElasticPublisher struct {
	client  *elasticsearch.Client
	index   string
	timeout time.Duration
}

// elasticDoc is the indexed shape. It adds @timestamp so the index works
// with Kibana time filters out of the box.
type elasticDoc struct {
	Timestamp time.Time `json:"@timestamp"`
	activity.Snapshot
}

// NewElasticPublisher returns a publisher writing to index on the cluster at
// addr.
func NewElasticPublisher(addr, index string) (*ElasticPublisher, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}
	return &ElasticPublisher{client: client, index: index, timeout: 5 * time.Second}, nil
}

// Publish indexes s.
func (e *ElasticPublisher) Publish(ctx context.Context, s activity.Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	data, err := json.Marshal(elasticDoc{Timestamp: s.TakenAt.UTC(), Snapshot: s})
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	res, err := e.client.Index(
		e.index,
		bytes.NewReader(data),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to index snapshot: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to index snapshot to %s: %s", e.index, res.String())
	}
	return nil
}

// Close is a no-op; the client holds no persistent resources.
func (e *ElasticPublisher) Close() error {
	return nil
}
