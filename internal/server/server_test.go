package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sembase/faqd/internal/auth"
	"github.com/sembase/faqd/internal/retrieval"
	"github.com/sembase/faqd/internal/store"
)

const testSecret = "unit-test-secret"

// fakeFAQStore implements FAQStore in memory.
type fakeFAQStore struct {
	docs      []store.Document
	addErr    error
	deleteErr error
	listErr   error
	pingErr   error

	deletedID string
}

func (f *fakeFAQStore) Add(ctx context.Context, owner, question, answer string) (*store.Document, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	doc := store.Document{ID: "doc-1", Owner: owner, Question: question, Answer: answer}
	f.docs = append(f.docs, doc)
	return &doc, nil
}

func (f *fakeFAQStore) Delete(ctx context.Context, id string) error {
	f.deletedID = id
	return f.deleteErr
}

func (f *fakeFAQStore) List(ctx context.Context, owner string) ([]store.Document, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []store.Document
	for _, d := range f.docs {
		if d.Owner == owner {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeFAQStore) Ping(ctx context.Context) error { return f.pingErr }

// fakeQueryer records the query it received.
type fakeQueryer struct {
	gotOwner string
	gotText  string
	gotMax   int
	results  []retrieval.Result
	err      error
}

func (f *fakeQueryer) Query(ctx context.Context, owner, text string, maxResults int) ([]retrieval.Result, error) {
	f.gotOwner = owner
	f.gotText = text
	f.gotMax = maxResults
	return f.results, f.err
}

func newTestServer(t *testing.T, faqs FAQStore, queries Queryer) *Server {
	t.Helper()
	s, err := New(faqs, queries, zap.NewNop(), &Config{
		APIKeySecret:      testSecret,
		DefaultMaxResults: 10,
	})
	require.NoError(t, err)
	return s
}

func apiKey(t *testing.T, email string) string {
	t.Helper()
	key, err := auth.DeriveAPIKey(email, testSecret)
	require.NoError(t, err)
	return key
}

func doRequest(s *Server, method, target string, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestNew_Validation(t *testing.T) {
	faqs := &fakeFAQStore{}
	queries := &fakeQueryer{}
	logger := zap.NewNop()

	_, err := New(nil, queries, logger, &Config{APIKeySecret: "s"})
	assert.Error(t, err)

	_, err = New(faqs, nil, logger, &Config{APIKeySecret: "s"})
	assert.Error(t, err)

	_, err = New(faqs, queries, nil, &Config{APIKeySecret: "s"})
	assert.Error(t, err)

	_, err = New(faqs, queries, logger, &Config{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		s := newTestServer(t, &fakeFAQStore{}, &fakeQueryer{})
		rec := doRequest(s, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"ok"`)
	})

	t.Run("degraded when the store is unreachable", func(t *testing.T) {
		s := newTestServer(t, &fakeFAQStore{pingErr: store.ErrUnavailable}, &fakeQueryer{})
		rec := doRequest(s, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestSearch(t *testing.T) {
	email := "user@example.com"
	key := apiKey(t, email)
	searchURL := func(params string) string {
		return fmt.Sprintf("/search/%s?api_key=%s&%s", url.PathEscape(email), key, params)
	}

	t.Run("invalid key keeps the legacy 200 contract", func(t *testing.T) {
		s := newTestServer(t, &fakeFAQStore{}, &fakeQueryer{})
		rec := doRequest(s, http.MethodGet, fmt.Sprintf("/search/%s?api_key=bogus&query=hi", url.PathEscape(email)), "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"error":"Invalid API key"}`, rec.Body.String())
	})

	t.Run("missing query", func(t *testing.T) {
		queries := &fakeQueryer{}
		s := newTestServer(t, &fakeFAQStore{}, queries)
		rec := doRequest(s, http.MethodGet, searchURL(""), "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"error":"No query provided"}`, rec.Body.String())
		assert.Empty(t, queries.gotText, "no retrieval work without a query")
	})

	t.Run("successful query", func(t *testing.T) {
		queries := &fakeQueryer{results: []retrieval.Result{
			{Question: "What is the meaning of life?", Answer: "42", Score: 0.93},
		}}
		s := newTestServer(t, &fakeFAQStore{}, queries)

		rec := doRequest(s, http.MethodGet, searchURL("query=meaning+of+life&max_results=3"), "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp SearchResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "meaning of life", resp.Query)
		assert.Equal(t, email, resp.Email)
		assert.Equal(t, 3, resp.MaxResults)
		require.Len(t, resp.Results, 1)
		assert.Equal(t, "42", resp.Results[0].Answer)

		assert.Equal(t, email, queries.gotOwner)
		assert.Equal(t, 3, queries.gotMax)
	})

	t.Run("default max_results", func(t *testing.T) {
		queries := &fakeQueryer{}
		s := newTestServer(t, &fakeFAQStore{}, queries)

		rec := doRequest(s, http.MethodGet, searchURL("query=hello"), "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 10, queries.gotMax)
	})

	t.Run("invalid max_results", func(t *testing.T) {
		s := newTestServer(t, &fakeFAQStore{}, &fakeQueryer{})

		for _, raw := range []string{"abc", "0", "-2"} {
			rec := doRequest(s, http.MethodGet, searchURL("query=hello&max_results="+raw), "")
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"error":"Invalid max_results"}`, rec.Body.String())
		}
	})

	t.Run("show_list returns the tenant listing", func(t *testing.T) {
		faqs := &fakeFAQStore{docs: []store.Document{
			{ID: "a", Owner: email, Question: "Q1", Answer: "A1"},
			{ID: "b", Owner: "other@example.com", Question: "Q2", Answer: "A2"},
		}}
		s := newTestServer(t, faqs, &fakeQueryer{})

		rec := doRequest(s, http.MethodGet, searchURL("show_list=yes"), "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Results, 1)
		assert.Equal(t, "Q1", resp.Results[0].Question)
	})

	t.Run("retrieval failure maps to 503", func(t *testing.T) {
		queries := &fakeQueryer{err: retrieval.ErrEmbeddingUnavailable}
		s := newTestServer(t, &fakeFAQStore{}, queries)

		rec := doRequest(s, http.MethodGet, searchURL("query=hello"), "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestAdd(t *testing.T) {
	email := "user@example.com"
	key := apiKey(t, email)
	target := fmt.Sprintf("/faqs/%s?api_key=%s", url.PathEscape(email), key)

	t.Run("invalid key gets a strict 401", func(t *testing.T) {
		s := newTestServer(t, &fakeFAQStore{}, &fakeQueryer{})
		rec := doRequest(s, http.MethodPost,
			fmt.Sprintf("/faqs/%s?api_key=bogus", url.PathEscape(email)),
			`{"question":"Q","answer":"A"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("creates a document", func(t *testing.T) {
		faqs := &fakeFAQStore{}
		s := newTestServer(t, faqs, &fakeQueryer{})

		rec := doRequest(s, http.MethodPost, target, `{"question":"What time?","answer":"Noon"}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		var doc store.Document
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
		assert.Equal(t, "doc-1", doc.ID)
		assert.Equal(t, email, doc.Owner)
	})

	t.Run("rejects empty fields", func(t *testing.T) {
		s := newTestServer(t, &fakeFAQStore{}, &fakeQueryer{})

		rec := doRequest(s, http.MethodPost, target, `{"question":"","answer":"A"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doRequest(s, http.MethodPost, target, `{"question":"Q","answer":"  "}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("store failure maps to 503", func(t *testing.T) {
		s := newTestServer(t, &fakeFAQStore{addErr: store.ErrUnavailable}, &fakeQueryer{})
		rec := doRequest(s, http.MethodPost, target, `{"question":"Q","answer":"A"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestDelete(t *testing.T) {
	email := "user@example.com"
	key := apiKey(t, email)
	target := func(id string) string {
		return fmt.Sprintf("/faqs/%s/%s?api_key=%s", url.PathEscape(email), id, key)
	}

	t.Run("deletes by id", func(t *testing.T) {
		faqs := &fakeFAQStore{}
		s := newTestServer(t, faqs, &fakeQueryer{})

		rec := doRequest(s, http.MethodDelete, target("doc-9"), "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "doc-9", faqs.deletedID)
	})

	t.Run("unknown id is 404", func(t *testing.T) {
		s := newTestServer(t, &fakeFAQStore{deleteErr: store.ErrNotFound}, &fakeQueryer{})
		rec := doRequest(s, http.MethodDelete, target("missing"), "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("store failure maps to 503", func(t *testing.T) {
		s := newTestServer(t, &fakeFAQStore{deleteErr: store.ErrUnavailable}, &fakeQueryer{})
		rec := doRequest(s, http.MethodDelete, target("doc-1"), "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, &fakeFAQStore{}, &fakeQueryer{})
	rec := doRequest(s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
