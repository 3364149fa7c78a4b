package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

type embeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions"`
}

func newServer(t *testing.T, dim int, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		calls.Add(1)

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		data := make([]map[string]any, len(req.Input))
		// Answer in reverse order to check that indices are honoured.
		for i := range req.Input {
			idx := len(req.Input) - 1 - i
			vec := make([]float32, dim)
			vec[0] = float32(len(req.Input[idx]))
			data[i] = map[string]any{"object": "embedding", "index": idx, "embedding": vec}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
		})
	}))
}

func newClient(t *testing.T, baseURL string, dim, batch int) *Client {
	t.Helper()
	t.Setenv("DOCQA_TEST_KEY", "test-key")
	c, err := NewClient(Config{BaseURL: baseURL, APIKeyEnv: "DOCQA_TEST_KEY", Dimension: dim, BatchSize: batch})
	require.NoError(t, err)
	return c
}

func TestNewClient_MissingKey(t *testing.T) {
	t.Setenv("DOCQA_EMPTY_KEY", "")
	_, err := NewClient(Config{APIKeyEnv: "DOCQA_EMPTY_KEY"})
	assert.Error(t, err)
}

func TestEmbed_BatchesAndOrders(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, 4, &calls)
	defer srv.Close()

	c := newClient(t, srv.URL, 4, 2)
	assert.Equal(t, "openai", c.Name())
	assert.NoError(t, c.Prepare(nil))

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	out, err := c.Embed(context.Background(), texts)
	require.NoError(t, err)
	assert.Equal(t, domain.StrategySemantic, out.Strategy)
	assert.Equal(t, int32(3), calls.Load())

	require.Len(t, out.Vectors, len(texts))
	for i, v := range out.Vectors {
		assert.Len(t, v, 4)
		assert.Equal(t, float64(len(texts[i])), v[0])
	}
}

func TestEmbed_DimensionMismatch(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, 3, &calls)
	defer srv.Close()

	c := newClient(t, srv.URL, 4, 8)
	_, err := c.Embed(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
}

func TestEmbed_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, 4, 8)
	_, err := c.Embed(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, domain.ErrEmbedding)
}
