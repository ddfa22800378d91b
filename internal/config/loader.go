package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces faqd environment variables.
const envPrefix = "FAQD_"

// Load loads configuration from an optional YAML file, then overrides with
// environment variables.
//
// Precedence (highest to lowest):
//  1. Environment variables (FAQD_SERVER_PORT, FAQD_AUTH_API_KEY_SECRET, ...)
//  2. YAML config file (if configPath is non-empty and the file exists)
//  3. Defaults
//
// Environment variables map to config keys by stripping the FAQD_ prefix,
// lowercasing, and splitting on the first underscore:
//
//	FAQD_SERVER_PORT            -> server.port
//	FAQD_ELASTIC_MODEL_ID       -> elastic.model_id
//	FAQD_AUTH_API_KEY_SECRET    -> auth.api_key_secret
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		} else if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		// FAQD_SECTION_FIELD_NAME -> section.field_name
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8081
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if len(cfg.Elastic.Addresses) == 0 {
		cfg.Elastic.Addresses = []string{"https://localhost:9200"}
	}
	if cfg.Elastic.Username == "" {
		cfg.Elastic.Username = "elastic"
	}
	if cfg.Elastic.Index == "" {
		cfg.Elastic.Index = "faq_search"
	}
	if cfg.Elastic.Pipeline == "" {
		cfg.Elastic.Pipeline = "embedding"
	}
	if cfg.Elastic.ModelID == "" {
		cfg.Elastic.ModelID = "sentence-transformers__bert-base-nli-mean-tokens"
	}
	if cfg.Elastic.Dims == 0 {
		cfg.Elastic.Dims = 768
	}
	if cfg.Elastic.RequestTimeout == 0 {
		cfg.Elastic.RequestTimeout = 10 * time.Second
	}
	if cfg.Elastic.ListCap == 0 {
		cfg.Elastic.ListCap = 10000
	}
	if cfg.Elastic.CandidateMultiplier == 0 {
		cfg.Elastic.CandidateMultiplier = 50
	}
	if cfg.Elastic.CandidateCap == 0 {
		cfg.Elastic.CandidateCap = 10000
	}

	if cfg.Embeddings.BaseURL == "" {
		cfg.Embeddings.BaseURL = "http://localhost:8082"
	}
	if cfg.Embeddings.Timeout == 0 {
		cfg.Embeddings.Timeout = 10 * time.Second
	}

	if cfg.Retrieval.Mode == "" {
		cfg.Retrieval.Mode = "dual"
	}
	if cfg.Retrieval.RouteTimeout == 0 {
		cfg.Retrieval.RouteTimeout = 5 * time.Second
	}
	if cfg.Retrieval.DriftTolerance == 0 {
		cfg.Retrieval.DriftTolerance = 0.01
	}
	if cfg.Retrieval.DefaultMaxResults == 0 {
		cfg.Retrieval.DefaultMaxResults = 10
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "faqd"
	}
}
