package server

import (
	"github.com/sembase/faqd/internal/retrieval"
	"github.com/sembase/faqd/internal/store"
)

// ErrorResponse carries a logical error. The legacy search surface returns
// it with a 200 status; mutation routes use conventional status codes.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SearchResponse is the body for a successful semantic search.
type SearchResponse struct {
	Results    []retrieval.Result `json:"results"`
	Query      string             `json:"query"`
	Email      string             `json:"email"`
	MaxResults int                `json:"max_results"`
}

// ListResponse is the body for a FAQ listing.
type ListResponse struct {
	Results []store.Document `json:"results"`
}

// AddRequest is the body for POST /faqs/:email.
type AddRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// HealthResponse is the body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}
