package store

import "errors"

// Sentinel errors for document store operations.
var (
	// ErrNotFound is returned when a document or the index does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable indicates the document store is unreachable or failing.
	ErrUnavailable = errors.New("document store unavailable")

	// ErrMissingEmbedding is returned when the ingest pipeline produced a
	// document without an embedding, which indicates a pipeline failure.
	ErrMissingEmbedding = errors.New("pipeline produced no embedding")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Document is a stored FAQ entry.
//
// The question embedding is internal to the index: it is computed by the
// ingest pipeline at write time and never present on documents returned
// from this package.
type Document struct {
	ID       string `json:"id"`
	Owner    string `json:"owner,omitempty"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// SearchHit is a document returned by KNN search with its similarity score.
type SearchHit struct {
	Document
	Score float64 `json:"score"`
}
