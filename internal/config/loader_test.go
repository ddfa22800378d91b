package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequiredEnv sets the minimal environment a valid config needs.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("FAQD_AUTH_API_KEY_SECRET", "test-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, []string{"https://localhost:9200"}, cfg.Elastic.Addresses)
	assert.Equal(t, "faq_search", cfg.Elastic.Index)
	assert.Equal(t, "embedding", cfg.Elastic.Pipeline)
	assert.Equal(t, 768, cfg.Elastic.Dims)
	assert.Equal(t, 50, cfg.Elastic.CandidateMultiplier)
	assert.Equal(t, 10000, cfg.Elastic.CandidateCap)
	assert.Equal(t, 10000, cfg.Elastic.ListCap)

	assert.Equal(t, "dual", cfg.Retrieval.Mode)
	assert.Equal(t, 10, cfg.Retrieval.DefaultMaxResults)
	assert.InDelta(t, 0.01, cfg.Retrieval.DriftTolerance, 1e-9)

	assert.Equal(t, "faqd", cfg.Telemetry.ServiceName)
}

func TestLoad_EnvOverride(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FAQD_SERVER_PORT", "9191")
	t.Setenv("FAQD_ELASTIC_INDEX", "faq_test")
	t.Setenv("FAQD_ELASTIC_MODEL_ID", "my-model")
	t.Setenv("FAQD_RETRIEVAL_MODE", "primary")
	t.Setenv("FAQD_EMBEDDINGS_BASE_URL", "http://emb:8082")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "faq_test", cfg.Elastic.Index)
	assert.Equal(t, "my-model", cfg.Elastic.ModelID)
	assert.Equal(t, "primary", cfg.Retrieval.Mode)
	assert.Equal(t, "http://emb:8082", cfg.Embeddings.BaseURL)
}

func TestLoad_YAMLFile(t *testing.T) {
	setRequiredEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 7070
elastic:
  index: faq_yaml
  dims: 384
retrieval:
  drift_tolerance: 0.05
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "faq_yaml", cfg.Elastic.Index)
	assert.Equal(t, 384, cfg.Elastic.Dims)
	assert.InDelta(t, 0.05, cfg.Retrieval.DriftTolerance, 1e-9)
}

func TestLoad_EnvWinsOverFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FAQD_SERVER_PORT", "9999")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.Server.Port)
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "missing api key secret",
			env:  map[string]string{},
			want: "api key secret",
		},
		{
			name: "bad retrieval mode",
			env: map[string]string{
				"FAQD_AUTH_API_KEY_SECRET": "s",
				"FAQD_RETRIEVAL_MODE":      "triple",
			},
			want: "retrieval mode",
		},
		{
			name: "bad port",
			env: map[string]string{
				"FAQD_AUTH_API_KEY_SECRET": "s",
				"FAQD_SERVER_PORT":         "70000",
			},
			want: "server port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
