// Package store adapts Elasticsearch as the vector-bearing FAQ document store.
//
// The index holds one document per FAQ entry with a dense_vector mapping for
// the question embedding. A named ingest pipeline computes that embedding
// server-side at insert time, so the insertion API never handles vectors.
// Query-time embeddings reuse the same pipeline through the simulate
// endpoint, keeping stored and query vectors on the identical model path.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

// Config holds document store configuration.
type Config struct {
	Addresses []string
	Username  string
	Password  string
	CACert    []byte

	// Index is the FAQ index name; Pipeline the ingest pipeline name.
	Index    string
	Pipeline string

	// ModelID is the inference model the pipeline runs.
	ModelID string

	// Dims is the dense vector dimension.
	Dims int

	// RequestTimeout bounds each store operation independently.
	RequestTimeout time.Duration

	// ListCap bounds list-by-owner results (a cap, not pagination).
	ListCap int

	// CandidateMultiplier and CandidateCap bound the KNN candidate pool:
	// num_candidates = min(k*CandidateMultiplier, CandidateCap). The ratio
	// keeps recall high under tenant filtering without unbounded scans.
	CandidateMultiplier int
	CandidateCap        int

	// Transport overrides the HTTP transport. Tests inject a fake here.
	Transport http.RoundTripper
}

func (c *Config) applyDefaults() {
	if c.Dims == 0 {
		c.Dims = 768
	}
	if c.ListCap == 0 {
		c.ListCap = 10000
	}
	if c.CandidateMultiplier == 0 {
		c.CandidateMultiplier = 50
	}
	if c.CandidateCap == 0 {
		c.CandidateCap = 10000
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Addresses) == 0 {
		return fmt.Errorf("%w: at least one address required", ErrInvalidConfig)
	}
	if c.Index == "" {
		return fmt.Errorf("%w: index name required", ErrInvalidConfig)
	}
	if c.Pipeline == "" {
		return fmt.Errorf("%w: pipeline name required", ErrInvalidConfig)
	}
	if c.Dims < 1 {
		return fmt.Errorf("%w: dims must be positive", ErrInvalidConfig)
	}
	return nil
}

// Store is the Elasticsearch-backed FAQ document store.
type Store struct {
	es     *elasticsearch.Client
	cfg    Config
	logger *zap.Logger
}

// New creates a new Store. It does not touch the cluster; call EnsureIndex
// and EnsurePipeline before serving traffic.
func New(cfg Config, logger *zap.Logger) (*Store, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		CACert:    cfg.CACert,
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch client: %w", err)
	}

	return &Store{es: es, cfg: cfg, logger: logger}, nil
}

// opCtx applies the per-operation timeout.
func (s *Store) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.RequestTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.RequestTimeout)
	}
	return ctx, func() {}
}

// EnsureIndex creates the FAQ index if it does not exist. Idempotent:
// an existing index is left untouched.
func (s *Store) EnsureIndex(ctx context.Context) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.es.Indices.Exists([]string{s.cfg.Index}, s.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: checking index existence: %v", ErrUnavailable, err)
	}
	drain(res)

	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		// fall through to create
	default:
		return fmt.Errorf("checking index existence: unexpected status %d", res.StatusCode)
	}

	s.logger.Info("index missing, creating it", zap.String("index", s.cfg.Index))

	body, err := json.Marshal(indexMapping(s.cfg.Dims))
	if err != nil {
		return fmt.Errorf("marshaling index mapping: %w", err)
	}

	createRes, err := s.es.Indices.Create(s.cfg.Index,
		s.es.Indices.Create.WithBody(bytes.NewReader(body)),
		s.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("%w: creating index: %v", ErrUnavailable, err)
	}
	defer drain(createRes)

	if createRes.IsError() {
		// Lost a creation race: another process made the index first.
		if createRes.StatusCode == http.StatusBadRequest && responseContains(createRes, "resource_already_exists_exception") {
			return nil
		}
		return fmt.Errorf("creating index %s: %s", s.cfg.Index, responseExcerpt(createRes))
	}

	s.logger.Info("index created", zap.String("index", s.cfg.Index), zap.Int("dims", s.cfg.Dims))
	return nil
}

// EnsurePipeline registers the embedding ingest pipeline. PUT is an upsert,
// so re-registering the same definition is a no-op.
func (s *Store) EnsurePipeline(ctx context.Context) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	body, err := json.Marshal(pipelineDefinition(s.cfg.ModelID))
	if err != nil {
		return fmt.Errorf("marshaling pipeline definition: %w", err)
	}

	res, err := s.es.Ingest.PutPipeline(s.cfg.Pipeline, bytes.NewReader(body),
		s.es.Ingest.PutPipeline.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("%w: registering pipeline: %v", ErrUnavailable, err)
	}
	defer drain(res)

	if res.IsError() {
		return fmt.Errorf("registering pipeline %s: %s", s.cfg.Pipeline, responseExcerpt(res))
	}

	s.logger.Info("ingest pipeline registered",
		zap.String("pipeline", s.cfg.Pipeline),
		zap.String("model_id", s.cfg.ModelID),
	)
	return nil
}

// DeleteIndex destroys the index and every document in it. Administrative
// operation; a missing index is not an error.
func (s *Store) DeleteIndex(ctx context.Context) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.es.Indices.Delete([]string{s.cfg.Index}, s.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: deleting index: %v", ErrUnavailable, err)
	}
	defer drain(res)

	if res.StatusCode == http.StatusNotFound {
		s.logger.Info("index does not exist", zap.String("index", s.cfg.Index))
		return nil
	}
	if res.IsError() {
		return fmt.Errorf("deleting index %s: %s", s.cfg.Index, responseExcerpt(res))
	}

	s.logger.Info("index deleted", zap.String("index", s.cfg.Index))
	return nil
}

// Add inserts a FAQ entry through the ingest pipeline. The embedding is
// computed server-side; a pipeline failure fails the whole insert, so no
// partial document is persisted. Returns the document with its assigned id.
func (s *Store) Add(ctx context.Context, owner, question, answer string) (*Document, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	payload, err := json.Marshal(map[string]string{
		fieldOwner:    owner,
		fieldQuestion: question,
		fieldAnswer:   answer,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling document: %w", err)
	}

	res, err := s.es.Index(s.cfg.Index, bytes.NewReader(payload),
		s.es.Index.WithPipeline(s.cfg.Pipeline),
		s.es.Index.WithRefresh("wait_for"),
		s.es.Index.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: indexing document: %v", ErrUnavailable, err)
	}
	defer drain(res)

	if res.IsError() {
		return nil, fmt.Errorf("indexing document: %s", responseExcerpt(res))
	}

	var indexed struct {
		ID string `json:"_id"`
	}
	if err := json.NewDecoder(res.Body).Decode(&indexed); err != nil {
		return nil, fmt.Errorf("decoding index response: %w", err)
	}

	doc := &Document{ID: indexed.ID, Owner: owner, Question: question, Answer: answer}
	s.logger.Info("inserted faq entry", zap.String("id", doc.ID), zap.String("owner", owner))
	return doc, nil
}

// Delete removes a document by id. Deleting a nonexistent id returns
// ErrNotFound; double deletes are an error, not silent success.
func (s *Store) Delete(ctx context.Context, id string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.es.Delete(s.cfg.Index, id,
		s.es.Delete.WithRefresh("wait_for"),
		s.es.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("%w: deleting document: %v", ErrUnavailable, err)
	}
	defer drain(res)

	if res.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: document %s", ErrNotFound, id)
	}
	if res.IsError() {
		return fmt.Errorf("deleting document %s: %s", id, responseExcerpt(res))
	}

	s.logger.Info("deleted faq entry", zap.String("id", id))
	return nil
}

// List returns every FAQ entry for an owner, up to ListCap, in no
// particular order. Embeddings are excluded by source projection.
func (s *Store) List(ctx context.Context, owner string) ([]Document, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	body, err := json.Marshal(map[string]any{
		"query":   map[string]any{"term": map[string]any{fieldOwner: owner}},
		"_source": []string{fieldQuestion, fieldAnswer},
		"size":    s.cfg.ListCap,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling list query: %w", err)
	}

	hits, err := s.search(ctx, body)
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(hits))
	for _, hit := range hits {
		docs = append(docs, hit.Document)
	}
	return docs, nil
}

// Search runs a tenant-filtered KNN search over the question embeddings.
// The owner filter applies at candidate generation, not as a post-filter,
// so a tenant's sparse matches are not crowded out by other tenants.
// Returns at most k hits in descending score order.
func (s *Store) Search(ctx context.Context, owner string, vector []float32, k int) ([]SearchHit, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	numCandidates := k * s.cfg.CandidateMultiplier
	if numCandidates > s.cfg.CandidateCap {
		numCandidates = s.cfg.CandidateCap
	}

	body, err := json.Marshal(map[string]any{
		"knn": map[string]any{
			"field":          fieldEmbedding,
			"query_vector":   vector,
			"k":              k,
			"num_candidates": numCandidates,
			"filter": []any{
				map[string]any{"term": map[string]any{fieldOwner: owner}},
			},
		},
		"_source": []string{fieldQuestion, fieldAnswer},
		"size":    k,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling knn query: %w", err)
	}

	return s.search(ctx, body)
}

// SimulateEmbedding evaluates the ingest pipeline against a synthetic
// single-document batch without persisting anything, and reads back the
// embedding. This is the pipeline-consistent route for query embeddings;
// a first-class embed API would make it unnecessary.
func (s *Store) SimulateEmbedding(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	body, err := json.Marshal(map[string]any{
		"docs": []any{
			map[string]any{"_source": map[string]any{fieldQuestion: text}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling simulate request: %w", err)
	}

	res, err := s.es.Ingest.Simulate(bytes.NewReader(body),
		s.es.Ingest.Simulate.WithPipelineID(s.cfg.Pipeline),
		s.es.Ingest.Simulate.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: simulating pipeline: %v", ErrUnavailable, err)
	}
	defer drain(res)

	if res.IsError() {
		return nil, fmt.Errorf("simulating pipeline: %s", responseExcerpt(res))
	}

	var decoded struct {
		Docs []struct {
			Doc struct {
				Source map[string]json.RawMessage `json:"_source"`
			} `json:"doc"`
		} `json:"docs"`
	}
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding simulate response: %w", err)
	}

	if len(decoded.Docs) == 0 {
		return nil, ErrMissingEmbedding
	}
	raw, ok := decoded.Docs[0].Doc.Source[fieldEmbedding]
	if !ok {
		return nil, ErrMissingEmbedding
	}

	var vector []float32
	if err := json.Unmarshal(raw, &vector); err != nil {
		return nil, fmt.Errorf("decoding embedding: %w", err)
	}
	if len(vector) == 0 {
		return nil, ErrMissingEmbedding
	}
	return vector, nil
}

// Ping checks cluster reachability.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.es.Ping(s.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	drain(res)

	if res.IsError() {
		return fmt.Errorf("%w: ping status %d", ErrUnavailable, res.StatusCode)
	}
	return nil
}

// search executes a _search request and parses hits.
func (s *Store) search(ctx context.Context, body []byte) ([]SearchHit, error) {
	res, err := s.es.Search(
		s.es.Search.WithIndex(s.cfg.Index),
		s.es.Search.WithBody(bytes.NewReader(body)),
		s.es.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: searching: %v", ErrUnavailable, err)
	}
	defer drain(res)

	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: index %s", ErrNotFound, s.cfg.Index)
	}
	if res.IsError() {
		return nil, fmt.Errorf("searching: %s", responseExcerpt(res))
	}

	var decoded struct {
		Hits struct {
			Hits []struct {
				ID     string  `json:"_id"`
				Score  float64 `json:"_score"`
				Source struct {
					Question string `json:"question"`
					Answer   string `json:"answer"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	hits := make([]SearchHit, 0, len(decoded.Hits.Hits))
	for _, h := range decoded.Hits.Hits {
		hits = append(hits, SearchHit{
			Document: Document{ID: h.ID, Question: h.Source.Question, Answer: h.Source.Answer},
			Score:    h.Score,
		})
	}
	return hits, nil
}

// drain consumes and closes a response body so the connection can be reused.
func drain(res *esapi.Response) {
	if res != nil && res.Body != nil {
		_, _ = io.Copy(io.Discard, res.Body)
		res.Body.Close()
	}
}

// responseExcerpt reads an error response body for diagnostics.
func responseExcerpt(res *esapi.Response) string {
	if res == nil {
		return "no response"
	}
	if res.Body == nil {
		return fmt.Sprintf("status %d", res.StatusCode)
	}
	body, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
	return fmt.Sprintf("status %d: %s", res.StatusCode, string(body))
}

func responseContains(res *esapi.Response, substr string) bool {
	if res == nil || res.Body == nil {
		return false
	}
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return bytes.Contains(body, []byte(substr))
}
