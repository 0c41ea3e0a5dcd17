package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/hpc-sre/sarchive/internal/scheduler"
)

// indexMapping is the fixed mapping applied to a newly created archive
// index: environment is a dynamic object since its keys are whatever
// the job's own environment contained, id and script get a keyword
// sub-field so they remain usable in exact-match aggregations despite
// being indexed as text.
const indexMapping = `{
  "mappings": {
    "properties": {
      "id": {
        "type": "text",
        "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } }
      },
      "cluster": {
        "type": "text",
        "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } }
      },
      "script": {
        "type": "text",
        "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } }
      },
      "timestamp": { "type": "date" },
      "environment": { "type": "object", "dynamic": true }
    }
  }
}`

// elasticJob is the document shape indexed for every job record — the
// same canonical shape the kafka sink publishes.
type elasticJob struct {
	ID          string            `json:"id"`
	Timestamp   time.Time         `json:"timestamp"`
	Cluster     string            `json:"cluster"`
	Script      string            `json:"script"`
	Environment map[string]string `json:"environment,omitempty"`
}

// ElasticSink indexes job records into a fixed-mapping Elasticsearch
// index, one document per job.
type ElasticSink struct {
	client *elasticsearch.Client
	index  string
}

// NewElasticSink builds an ElasticSink against the cluster at
// host:port, creating index with the fixed archive mapping if it
// doesn't already exist. A failure to even determine whether the index
// exists is treated as fatal by the caller — there's no safe degraded
// mode to run in.
func NewElasticSink(host string, port int, index string) (*ElasticSink, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{fmt.Sprintf("http://%s:%d", host, port)},
	})
	if err != nil {
		return nil, fmt.Errorf("sink: build elasticsearch client: %w", err)
	}

	existsRes, err := esapi.IndicesExistsRequest{Index: []string{index}}.Do(context.Background(), client)
	if err != nil {
		return nil, fmt.Errorf("sink: check index %s exists: %w: %w", index, ErrTransport, err)
	}
	defer existsRes.Body.Close()

	if existsRes.StatusCode == 404 {
		createRes, err := esapi.IndicesCreateRequest{
			Index: index,
			Body:  strings.NewReader(indexMapping),
		}.Do(context.Background(), client)
		if err != nil {
			return nil, fmt.Errorf("sink: create index %s: %w: %w", index, ErrTransport, err)
		}
		defer createRes.Body.Close()
		if createRes.IsError() {
			body, _ := io.ReadAll(createRes.Body)
			return nil, fmt.Errorf("sink: create index %s: %w: %s", index, ErrTransport, body)
		}
	} else if existsRes.IsError() {
		body, _ := io.ReadAll(existsRes.Body)
		return nil, fmt.Errorf("sink: check index %s exists: %w: %s", index, ErrTransport, body)
	}

	return &ElasticSink{client: client, index: index}, nil
}

// Submit serializes record as an elasticJob document and indexes it
// under the job's ID.
func (s *ElasticSink) Submit(ctx context.Context, record *scheduler.JobRecord) error {
	doc := elasticJob{
		ID:          record.JobID,
		Timestamp:   time.Now().UTC(),
		Cluster:     record.Cluster,
		Script:      string(record.Script),
		Environment: record.ExtraInfo,
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	res, err := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: record.JobID,
		Body:       bytes.NewReader(payload),
		Refresh:    "false",
	}.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("sink: index job %s: %w: %w", record.JobID, ErrTransport, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("sink: index job %s: %w: %s", record.JobID, ErrTransport, body)
	}
	return nil
}

// Close is a no-op: the elasticsearch client has no explicit teardown.
func (s *ElasticSink) Close() error { return nil }
