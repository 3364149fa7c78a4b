// Package tfidf is the sparse fallback embedding strategy. It needs no
// external model: vectors come from a corpus-fitted TF-IDF vocabulary and are
// padded or truncated to the system dimension.
package tfidf

import (
	"context"
	"encoding/json"
	"fmt"

	"docqa/internal/domain"
	"docqa/internal/embedding"
)

// Embedder adapts a shared Vectorizer to the domain.Embedder contract.
type Embedder struct {
	vectorizer *Vectorizer
	dimension  int
}

// NewEmbedder wraps v. The vectorizer is shared by reference so every caller
// sees the same fitted vocabulary.
func NewEmbedder(v *Vectorizer, dimension int) *Embedder {
	if dimension <= 0 {
		dimension = embedding.DefaultDimension
	}
	return &Embedder{vectorizer: v, dimension: dimension}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "tfidf" }

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// Vectorizer exposes the underlying model, e.g. for persisting its state.
func (e *Embedder) Vectorizer() *Vectorizer { return e.vectorizer }

// Prepare fits the vocabulary on corpus if it has not been fitted yet.
func (e *Embedder) Prepare(corpus []string) error {
	return e.vectorizer.Fit(corpus)
}

// Embed never fails: when the vectorizer cannot transform the batch it returns
// random vectors tagged StrategyFallback with the cause in Embedded.Err.
func (e *Embedder) Embed(_ context.Context, texts []string) (domain.Embedded, error) {
	rows, err := e.vectorizer.Transform(texts)
	if err != nil {
		return domain.Embedded{
			Vectors:  embedding.RandomVectors(len(texts), e.dimension),
			Strategy: domain.StrategyFallback,
			Err:      fmt.Errorf("%w: %w", domain.ErrEmbedding, err),
		}, nil
	}
	vectors := make([][]float64, len(rows))
	for i, row := range rows {
		vectors[i] = embedding.Resize(row, e.dimension)
	}
	return domain.Embedded{Vectors: vectors, Strategy: domain.StrategySparse}, nil
}

// MarshalState encodes the fitted vocabulary for persistence.
func (e *Embedder) MarshalState() ([]byte, error) {
	state, err := e.vectorizer.State()
	if err != nil {
		return nil, err
	}
	return json.Marshal(state)
}

// UnmarshalState restores a vocabulary produced by MarshalState.
func (e *Embedder) UnmarshalState(data []byte) error {
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("decode tfidf state: %w", err)
	}
	return e.vectorizer.Restore(state)
}
