// Package retrieval implements tenant-scoped semantic FAQ retrieval.
//
// A query is embedded, the embedding is matched against stored question
// embeddings with a tenant-filtered KNN search, and the top results come
// back with similarity scores. Query embeddings can be computed over two
// routes (see EmbeddingSource); the orchestrator reconciles them.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sembase/faqd/internal/store"
	"go.uber.org/zap"
)

var (
	// ErrInvalidArgument indicates a missing owner or query text.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmbeddingUnavailable indicates every embedding route failed.
	ErrEmbeddingUnavailable = errors.New("no embedding route available")
)

// Mode selects how query embeddings are computed.
type Mode string

const (
	// ModeDual computes both routes on every query for drift detection.
	ModeDual Mode = "dual"

	// ModePrimary computes only the pipeline route in steady state, with
	// the service route kept as fallback.
	ModePrimary Mode = "primary"
)

// Searcher is the slice of the store the orchestrator needs.
type Searcher interface {
	Search(ctx context.Context, owner string, vector []float32, k int) ([]store.SearchHit, error)
}

// Result is one retrieved FAQ entry.
type Result struct {
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Score    float64 `json:"score"`
}

// Config holds orchestrator configuration.
type Config struct {
	Mode Mode

	// RouteTimeout bounds each embedding route independently, so a hung
	// route cannot stall the other or the request as a whole.
	RouteTimeout time.Duration

	// DriftTolerance is the cosine distance beyond which the routes are
	// reported as disagreeing. Advisory only, never fails a query.
	DriftTolerance float64

	// DefaultMaxResults applies when the caller passes maxResults <= 0.
	DefaultMaxResults int
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeDual
	}
	if c.DriftTolerance == 0 {
		c.DriftTolerance = 0.01
	}
	if c.DefaultMaxResults == 0 {
		c.DefaultMaxResults = 10
	}
}

// Orchestrator answers FAQ queries.
type Orchestrator struct {
	searcher  Searcher
	primary   EmbeddingSource
	secondary EmbeddingSource
	cfg       Config
	logger    *zap.Logger
	metrics   *Metrics
}

// New creates an Orchestrator. primary is the pipeline-consistent route and
// must be set; secondary may be nil, disabling dual computation and
// fallback.
func New(searcher Searcher, primary, secondary EmbeddingSource, cfg Config, logger *zap.Logger) (*Orchestrator, error) {
	if searcher == nil {
		return nil, errors.New("searcher cannot be nil")
	}
	if primary == nil {
		return nil, errors.New("primary embedding source cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.applyDefaults()

	return &Orchestrator{
		searcher:  searcher,
		primary:   primary,
		secondary: secondary,
		cfg:       cfg,
		logger:    logger,
		metrics:   NewMetrics(logger),
	}, nil
}

// Query retrieves the maxResults stored questions most similar to text for
// the given owner, in descending score order.
func (o *Orchestrator) Query(ctx context.Context, owner, text string, maxResults int) ([]Result, error) {
	if owner == "" {
		return nil, fmt.Errorf("%w: owner cannot be empty", ErrInvalidArgument)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: query text cannot be empty", ErrInvalidArgument)
	}
	if maxResults <= 0 {
		maxResults = o.cfg.DefaultMaxResults
	}

	vector, err := o.queryEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	hits, err := o.searcher.Search(ctx, owner, vector, maxResults)
	o.metrics.RecordSearch(ctx, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		if len(results) == maxResults {
			break
		}
		results = append(results, Result{
			Question: hit.Question,
			Answer:   hit.Answer,
			Score:    hit.Score,
		})
	}
	return results, nil
}

// routeResult carries one embedding route's outcome.
type routeResult struct {
	vector  []float32
	latency time.Duration
	err     error
}

// queryEmbedding computes the query vector. The pipeline route's vector is
// used whenever available; the service route is a fallback, and in dual
// mode also a cross-check for drift between the two model deployments.
func (o *Orchestrator) queryEmbedding(ctx context.Context, text string) ([]float32, error) {
	if o.cfg.Mode == ModePrimary || o.secondary == nil {
		prim := o.embedRoute(ctx, o.primary, text)
		o.logger.Debug("query embedding computed",
			zap.Duration("pipeline_latency", prim.latency),
			zap.Error(prim.err),
		)
		if prim.err == nil {
			return prim.vector, nil
		}
		if o.secondary == nil {
			return nil, fmt.Errorf("%w: pipeline: %v", ErrEmbeddingUnavailable, prim.err)
		}

		o.logger.Warn("pipeline embedding route failed, falling back to service", zap.Error(prim.err))
		sec := o.embedRoute(ctx, o.secondary, text)
		if sec.err != nil {
			return nil, fmt.Errorf("%w: pipeline: %v; service: %v", ErrEmbeddingUnavailable, prim.err, sec.err)
		}
		return sec.vector, nil
	}

	primCh := make(chan routeResult, 1)
	secCh := make(chan routeResult, 1)
	go func() { primCh <- o.embedRoute(ctx, o.primary, text) }()
	go func() { secCh <- o.embedRoute(ctx, o.secondary, text) }()
	prim, sec := <-primCh, <-secCh

	o.logger.Info("query embedding computed",
		zap.Duration("pipeline_latency", prim.latency),
		zap.Duration("service_latency", sec.latency),
		zap.Bool("pipeline_ok", prim.err == nil),
		zap.Bool("service_ok", sec.err == nil),
	)

	switch {
	case prim.err == nil && sec.err == nil:
		o.checkDrift(ctx, prim.vector, sec.vector)
		return prim.vector, nil
	case prim.err == nil:
		// Secondary failure is advisory only.
		o.logger.Warn("service embedding route failed", zap.Error(sec.err))
		return prim.vector, nil
	case sec.err == nil:
		o.logger.Warn("pipeline embedding route failed, using service embedding", zap.Error(prim.err))
		return sec.vector, nil
	default:
		return nil, fmt.Errorf("%w: pipeline: %v; service: %v", ErrEmbeddingUnavailable, prim.err, sec.err)
	}
}

// embedRoute runs one route under its own timeout.
func (o *Orchestrator) embedRoute(ctx context.Context, src EmbeddingSource, text string) routeResult {
	if o.cfg.RouteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.RouteTimeout)
		defer cancel()
	}

	start := time.Now()
	vector, err := src.Embed(ctx, text)
	latency := time.Since(start)
	if err == nil && len(vector) == 0 {
		err = fmt.Errorf("route %s returned an empty vector", src.Name())
	}
	o.metrics.RecordEmbed(ctx, src.Name(), latency, err)

	return routeResult{vector: vector, latency: latency, err: err}
}

// checkDrift compares the two routes' vectors and reports disagreement.
func (o *Orchestrator) checkDrift(ctx context.Context, pipeline, service []float32) {
	similarity, comparable := cosineSimilarity(pipeline, service)
	if comparable && 1-similarity <= o.cfg.DriftTolerance {
		return
	}

	o.metrics.RecordDrift(ctx)
	o.logger.Warn("embedding routes disagree",
		zap.Float64("cosine_similarity", similarity),
		zap.Float64("tolerance", o.cfg.DriftTolerance),
		zap.Bool("comparable", comparable),
	)
}

// cosineSimilarity returns the cosine similarity of two vectors, or
// comparable=false when dimensions differ or a vector is zero.
func cosineSimilarity(a, b []float32) (similarity float64, comparable bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true
}
