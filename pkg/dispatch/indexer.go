package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// OpenSearchIndexer writes every dispatched message to a dated OpenSearch
// index, giving operators a searchable audit trail of alerts. It is a
// Dispatcher like any other channel, usually registered last so the trail
// records what the other channels were asked to deliver.
type OpenSearchIndexer struct {
	client *opensearch.Client
	prefix string
}

// NewOpenSearchIndexer creates an alert trail indexer. Index names are
// "<prefix>-YYYY.MM" so retention can drop whole months.
// Panics on nil client to fail fast during initialization.
func NewOpenSearchIndexer(client *opensearch.Client, prefix string) *OpenSearchIndexer {
	if client == nil {
		panic("dispatch: opensearch client is required")
	}
	if prefix == "" {
		prefix = "revenuekit-alerts"
	}
	return &OpenSearchIndexer{client: client, prefix: prefix}
}

func (i *OpenSearchIndexer) indexName(t time.Time) string {
	return fmt.Sprintf("%s-%s", i.prefix, t.UTC().Format("2006.01"))
}

func (i *OpenSearchIndexer) Dispatch(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	doc, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("dispatch: encode trail document: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index:      i.indexName(msg.OccurredAt),
		DocumentID: msg.ID.String(),
		Body:       bytes.NewReader(doc),
	}
	resp, err := req.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("%w: index alert trail: %w", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return fmt.Errorf("%w: opensearch returned %s", ErrDeliveryFailed, resp.Status())
	}
	return nil
}
