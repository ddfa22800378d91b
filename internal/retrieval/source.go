package retrieval

import "context"

// EmbeddingSource produces a query embedding for free text.
//
// Two routes exist. The pipeline route evaluates the store's ingest pipeline
// via simulate, so its vectors come from the identical transformation that
// embedded every stored document; it exists because the store has no
// first-class embed API. The service route calls the standalone embedding
// service directly and is the intended long-term path. The orchestrator
// feeds the pipeline route's vector to search whenever it is available.
type EmbeddingSource interface {
	// Name identifies the route in logs and metrics.
	Name() string

	// Embed computes the embedding for text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// simulator is the slice of the store the pipeline route needs.
type simulator interface {
	SimulateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// PipelineSource obtains embeddings by simulating the ingest pipeline.
type PipelineSource struct {
	store simulator
}

// NewPipelineSource creates a pipeline-backed embedding source.
func NewPipelineSource(store simulator) *PipelineSource {
	return &PipelineSource{store: store}
}

func (p *PipelineSource) Name() string { return "pipeline" }

func (p *PipelineSource) Embed(ctx context.Context, text string) ([]float32, error) {
	return p.store.SimulateEmbedding(ctx, text)
}

// queryEmbedder is the slice of the embedding client the service route needs.
type queryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ServiceSource obtains embeddings from the standalone embedding service.
type ServiceSource struct {
	client queryEmbedder
}

// NewServiceSource creates a service-backed embedding source.
func NewServiceSource(client queryEmbedder) *ServiceSource {
	return &ServiceSource{client: client}
}

func (s *ServiceSource) Name() string { return "service" }

func (s *ServiceSource) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.client.EmbedQuery(ctx, text)
}
