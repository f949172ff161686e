// audit/repository.go
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/boundary/logging"
)

const auditIndex = "boundary-audit"

type Repository interface {
	Record(ctx context.Context, artifact Artifact) error
}

type ElasticsearchRepository struct {
	esClient *elasticsearch.Client
}

// NewElasticsearchRepository creates a new repository with a given Elasticsearch client URL.
func NewElasticsearchRepository(esURL string) (*ElasticsearchRepository, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{esURL},
	}
	esClient, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &ElasticsearchRepository{esClient: esClient}, nil
}

// Record indexes one evaluation artifact.
func (r *ElasticsearchRepository) Record(ctx context.Context, artifact Artifact) error {
	data, err := json.Marshal(artifact)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      auditIndex,
		DocumentID: fmt.Sprintf("%d-%s", artifact.Timestamp.UnixNano(), artifact.RequestID),
		Body:       strings.NewReader(string(data)),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, r.esClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing document: %s", res.String())
	}

	return nil
}

// LogRepository writes artifacts to the structured log stream. Used
// when no Elasticsearch endpoint is configured, so evaluations are
// still recorded somewhere durable.
type LogRepository struct{}

func NewLogRepository() *LogRepository {
	return &LogRepository{}
}

func (r *LogRepository) Record(ctx context.Context, artifact Artifact) error {
	data, err := json.Marshal(artifact)
	if err != nil {
		return err
	}
	logger.Info("Evaluation artifact", zap.String("artifact", string(data)))
	return nil
}
