// Package memory is an in-process vector index using brute-force cosine similarity.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"docqa/internal/domain"
	"docqa/internal/embedding"
)

// Storage keeps records in insertion order; upserting an existing id overwrites it.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	ids       map[string]int
	records   []domain.Record
}

func NewStorage() *Storage { return &Storage{ids: make(map[string]int)} }

func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", domain.ErrIndex, dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 && s.dimension != dimension {
		return fmt.Errorf("%w: index has dimension %d, requested %d", domain.ErrIndex, s.dimension, dimension)
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Upsert(_ context.Context, records []domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		return fmt.Errorf("%w: index not initialised", domain.ErrIndex)
	}
	for _, r := range records {
		if len(r.Vector) != s.dimension {
			return fmt.Errorf("%w: record %s has dimension %d, want %d", domain.ErrIndex, r.ID, len(r.Vector), s.dimension)
		}
	}
	for _, r := range records {
		if i, ok := s.ids[r.ID]; ok {
			s.records[i] = r
			continue
		}
		s.ids[r.ID] = len(s.records)
		s.records = append(s.records, r)
	}
	return nil
}

func (s *Storage) Query(_ context.Context, vector []float64, topK int, documentID string) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dimension != 0 && len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, want %d", domain.ErrIndex, len(vector), s.dimension)
	}

	results := make([]domain.SearchResult, 0, len(s.records))
	for _, r := range s.records {
		if documentID != "" && r.Chunk.DocumentID != documentID {
			continue
		}
		results = append(results, domain.SearchResult{Chunk: r.Chunk, Score: embedding.Cosine(vector, r.Vector)})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Len reports the number of stored records.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
