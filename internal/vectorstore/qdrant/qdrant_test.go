package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

type fakeQdrant struct {
	mu      sync.Mutex
	exists  bool
	created map[string]any
	points  []map[string]any
	search  map[string]any
	apiKeys []string
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKeys = append(f.apiKeys, r.Header.Get("api-key"))

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/collections/docs":
		if !f.exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"result":{"status":"green"}}`))
	case r.Method == http.MethodPut && r.URL.Path == "/collections/docs":
		_ = json.NewDecoder(r.Body).Decode(&f.created)
		f.exists = true
		_, _ = w.Write([]byte(`{"result":true}`))
	case r.Method == http.MethodPut && r.URL.Path == "/collections/docs/points":
		var body struct {
			Points []map[string]any `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.points = append(f.points, body.Points...)
		_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
	case r.Method == http.MethodPost && r.URL.Path == "/collections/docs/points/search":
		f.search = nil
		_ = json.NewDecoder(r.Body).Decode(&f.search)
		_, _ = w.Write([]byte(`{"result":[
			{"id":"x","score":0.9,"payload":{"document_id":"doc","index":2,"text":"grace period","start":10,"end":22}},
			{"id":"y","score":0.4,"payload":{"document_id":"doc","index":0,"text":"intro","start":0,"end":5}}
		]}`))
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func TestPointID_Deterministic(t *testing.T) {
	assert.Equal(t, PointID("doc_1"), PointID("doc_1"))
	assert.NotEqual(t, PointID("doc_1"), PointID("doc_2"))
	assert.Len(t, PointID("doc_1"), 36)
}

func TestStorage_InitCreatesMissingCollection(t *testing.T) {
	fake := &fakeQdrant{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	s := NewStorage(Config{URL: srv.URL + "/", APIKey: "secret", Collection: "docs"})
	require.NoError(t, s.Init(context.Background(), 384))
	require.NotNil(t, fake.created)
	vectors := fake.created["vectors"].(map[string]any)
	assert.Equal(t, float64(384), vectors["size"])
	assert.Equal(t, "Cosine", vectors["distance"])

	// Existing collection is left alone.
	fake.created = nil
	require.NoError(t, s.Init(context.Background(), 384))
	assert.Nil(t, fake.created)

	for _, k := range fake.apiKeys {
		assert.Equal(t, "secret", k)
	}
	assert.ErrorIs(t, s.Init(context.Background(), 0), domain.ErrIndex)
}

func TestStorage_UpsertAndQuery(t *testing.T) {
	fake := &fakeQdrant{exists: true}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	ctx := context.Background()

	s := NewStorage(Config{URL: srv.URL, Collection: "docs"})
	require.NoError(t, s.Upsert(ctx, []domain.Record{{
		ID:     "doc_2",
		Vector: []float64{0.1, 0.2},
		Chunk:  domain.Chunk{DocumentID: "doc", Index: 2, Text: "grace period", Start: 10, End: 22},
	}}))
	require.Len(t, fake.points, 1)
	assert.Equal(t, PointID("doc_2"), fake.points[0]["id"])
	payload := fake.points[0]["payload"].(map[string]any)
	assert.Equal(t, "doc_2", payload["record_id"])
	assert.Equal(t, "doc", payload["document_id"])

	got, err := s.Query(ctx, []float64{0.1, 0.2}, 3, "doc")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.Chunk{DocumentID: "doc", Index: 2, Text: "grace period", Start: 10, End: 22}, got[0].Chunk)
	assert.InDelta(t, 0.9, got[0].Score, 1e-9)

	assert.Equal(t, float64(3), fake.search["limit"])
	filter := fake.search["filter"].(map[string]any)
	must := filter["must"].([]any)
	cond := must[0].(map[string]any)
	assert.Equal(t, "document_id", cond["key"])
	assert.Equal(t, "doc", cond["match"].(map[string]any)["value"])

	_, err = s.Query(ctx, []float64{0.1, 0.2}, 3, "")
	require.NoError(t, err)
	assert.NotContains(t, fake.search, "filter")
}

func TestStorage_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s := NewStorage(Config{URL: srv.URL, Collection: "docs"})
	assert.ErrorIs(t, s.Upsert(context.Background(), nil), domain.ErrIndex)
	_, err := s.Query(context.Background(), []float64{1}, 1, "")
	assert.ErrorIs(t, err, domain.ErrIndex)

	unreachable := NewStorage(Config{URL: "http://127.0.0.1:1", Collection: "docs"})
	assert.ErrorIs(t, unreachable.Init(context.Background(), 4), domain.ErrIndex)
}
