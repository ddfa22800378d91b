// Package config provides configuration loading for faqd.
//
// Configuration is read from an optional YAML file and overridden by
// FAQD_-prefixed environment variables. Secrets (the API key secret, the
// Elasticsearch password, the embedding service token) are expected to come
// from the environment, typically via a .env file loaded at startup.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/sembase/faqd/internal/logging"
)

// Config holds the complete faqd configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Elastic    ElasticConfig    `koanf:"elastic"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Auth       AuthConfig       `koanf:"auth"`
	Retrieval  RetrievalConfig  `koanf:"retrieval"`
	Logging    logging.Config   `koanf:"logging"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// ElasticConfig holds document store configuration.
type ElasticConfig struct {
	Addresses  []string `koanf:"addresses"`
	Username   string   `koanf:"username"`
	Password   string   `koanf:"password"`
	CACertPath string   `koanf:"ca_cert_path"`

	// Index and Pipeline name the FAQ index and its ingest pipeline.
	Index    string `koanf:"index"`
	Pipeline string `koanf:"pipeline"`

	// ModelID is the inference model the ingest pipeline runs.
	ModelID string `koanf:"model_id"`

	// Dims is the dense vector dimension of the embedding model.
	Dims int `koanf:"dims"`

	RequestTimeout time.Duration `koanf:"request_timeout"`

	// ListCap bounds list-by-owner results. Not pagination: owners with more
	// documents than this are silently truncated, a documented limitation.
	ListCap int `koanf:"list_cap"`

	// CandidateMultiplier and CandidateCap bound the KNN candidate pool:
	// num_candidates = min(k*CandidateMultiplier, CandidateCap).
	CandidateMultiplier int `koanf:"candidate_multiplier"`
	CandidateCap        int `koanf:"candidate_cap"`
}

// EmbeddingsConfig holds the standalone embedding service configuration.
type EmbeddingsConfig struct {
	BaseURL   string        `koanf:"base_url"`
	AuthToken string        `koanf:"auth_token"`
	Timeout   time.Duration `koanf:"timeout"`
}

// AuthConfig holds credential gate configuration.
type AuthConfig struct {
	// APIKeySecret is the shared secret API keys are derived from. Rotating
	// it invalidates every issued key.
	APIKeySecret string `koanf:"api_key_secret"`
}

// RetrievalConfig holds retrieval orchestrator configuration.
type RetrievalConfig struct {
	// Mode is "dual" (both embedding routes, drift detection) or "primary"
	// (pipeline route only, service route kept as fallback).
	Mode string `koanf:"mode"`

	RouteTimeout time.Duration `koanf:"route_timeout"`

	// DriftTolerance is the cosine distance beyond which the two embedding
	// routes are reported as disagreeing. Advisory only.
	DriftTolerance float64 `koanf:"drift_tolerance"`

	// DefaultMaxResults applies when a query does not specify max_results.
	DefaultMaxResults int `koanf:"default_max_results"`
}

// TelemetryConfig holds metrics configuration.
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if len(c.Elastic.Addresses) == 0 {
		return errors.New("at least one elasticsearch address is required")
	}
	if c.Elastic.Index == "" {
		return errors.New("elastic index name is required")
	}
	if c.Elastic.Pipeline == "" {
		return errors.New("elastic pipeline name is required")
	}
	if c.Elastic.Dims < 1 {
		return fmt.Errorf("invalid embedding dims: %d", c.Elastic.Dims)
	}
	if c.Elastic.CandidateMultiplier < 1 {
		return fmt.Errorf("invalid candidate multiplier: %d", c.Elastic.CandidateMultiplier)
	}
	if c.Elastic.CandidateCap < 1 {
		return fmt.Errorf("invalid candidate cap: %d", c.Elastic.CandidateCap)
	}

	if c.Auth.APIKeySecret == "" {
		return errors.New("api key secret is required (FAQD_AUTH_API_KEY_SECRET)")
	}

	switch c.Retrieval.Mode {
	case "dual", "primary":
	default:
		return fmt.Errorf("invalid retrieval mode %q (expected dual or primary)", c.Retrieval.Mode)
	}
	if c.Retrieval.DriftTolerance <= 0 {
		return errors.New("drift tolerance must be positive")
	}
	if c.Retrieval.DefaultMaxResults < 1 {
		return fmt.Errorf("invalid default max results: %d", c.Retrieval.DefaultMaxResults)
	}

	if c.Telemetry.Enabled && c.Telemetry.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}

	return c.Logging.Validate()
}
