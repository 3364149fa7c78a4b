// Package qdrant is a minimal REST client to Qdrant implementing domain.VectorIndex.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"docqa/internal/domain"
)

// Storage assumes cosine distance and creates the collection if missing.
type Storage struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// PointID maps a record id to the deterministic UUID Qdrant stores it under.
func PointID(recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(recordID)).String()
}

func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", domain.ErrIndex, dimension)
	}
	status, err := s.do(ctx, http.MethodGet, s.collectionURL(), nil, nil)
	if err != nil {
		return err
	}
	if status == http.StatusOK {
		return nil
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return s.expectOK(s.do(ctx, http.MethodPut, s.collectionURL(), body, nil))
}

func (s *Storage) Upsert(ctx context.Context, records []domain.Record) error {
	points := make([]map[string]any, len(records))
	for i, r := range records {
		points[i] = map[string]any{
			"id":     PointID(r.ID),
			"vector": r.Vector,
			"payload": map[string]any{
				"record_id":   r.ID,
				"document_id": r.Chunk.DocumentID,
				"index":       r.Chunk.Index,
				"text":        r.Chunk.Text,
				"start":       r.Chunk.Start,
				"end":         r.Chunk.End,
			},
		}
	}
	body := map[string]any{"points": points}
	return s.expectOK(s.do(ctx, http.MethodPut, s.collectionURL()+"/points?wait=true", body, nil))
}

type searchResponse struct {
	Result []struct {
		Score   float64 `json:"score"`
		Payload struct {
			DocumentID string `json:"document_id"`
			Index      int    `json:"index"`
			Text       string `json:"text"`
			Start      int    `json:"start"`
			End        int    `json:"end"`
		} `json:"payload"`
	} `json:"result"`
}

func (s *Storage) Query(ctx context.Context, vector []float64, topK int, documentID string) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if documentID != "" {
		req["filter"] = map[string]any{
			"must": []any{
				map[string]any{"key": "document_id", "match": map[string]any{"value": documentID}},
			},
		}
	}
	var resp searchResponse
	if err := s.expectOK(s.do(ctx, http.MethodPost, s.collectionURL()+"/points/search", req, &resp)); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, domain.SearchResult{
			Chunk: domain.Chunk{
				DocumentID: r.Payload.DocumentID,
				Index:      r.Payload.Index,
				Text:       r.Payload.Text,
				Start:      r.Payload.Start,
				End:        r.Payload.End,
			},
			Score: r.Score,
		})
	}
	return results, nil
}

func (s *Storage) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", s.url, s.collection)
}

func (s *Storage) expectOK(status int, err error) error {
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("%w: qdrant returned status %d", domain.ErrIndex, status)
	}
	return nil
}

// do sends body as JSON and decodes a 2xx response into out when non-nil.
func (s *Storage) do(ctx context.Context, method, url string, body, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("%w: encode request: %w", domain.ErrIndex, err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrIndex, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: qdrant %s %s: %w", domain.ErrIndex, method, url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: decode response: %w", domain.ErrIndex, err)
		}
	}
	return resp.StatusCode, nil
}
