// Package vectorstore turns chunk vectors into index records and writes them
// to a domain.VectorIndex in fixed-size batches.
package vectorstore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"

	"docqa/internal/domain"
)

const (
	// BatchSize is the number of records sent per upsert call.
	BatchSize = 100
	// MaxMetadataText caps the chunk text stored alongside each vector.
	MaxMetadataText = 900
)

// RecordID is the index key of a chunk: documentID + "_" + index.
func RecordID(documentID string, index int) string {
	return documentID + "_" + strconv.Itoa(index)
}

// CapText truncates s to at most n characters.
func CapText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Records pairs chunks with their vectors.
func Records(chunks []domain.Chunk, vectors [][]float64) ([]domain.Record, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("%w: %d chunks but %d vectors", domain.ErrInvalidInput, len(chunks), len(vectors))
	}
	records := make([]domain.Record, len(chunks))
	for i, c := range chunks {
		c.Text = CapText(c.Text, MaxMetadataText)
		records[i] = domain.Record{
			ID:     RecordID(c.DocumentID, c.Index),
			Vector: vectors[i],
			Chunk:  c,
		}
	}
	return records, nil
}

// UpsertChunks writes chunks to idx in batches of BatchSize. A failing batch
// is logged and skipped; the number of records stored is returned.
func UpsertChunks(ctx context.Context, idx domain.VectorIndex, chunks []domain.Chunk, vectors [][]float64, logger *log.Logger) (int, error) {
	records, err := Records(chunks, vectors)
	if err != nil {
		return 0, err
	}
	if logger == nil {
		logger = log.Default()
	}

	stored := 0
	for start := 0; start < len(records); start += BatchSize {
		if err := ctx.Err(); err != nil {
			return stored, err
		}
		end := min(start+BatchSize, len(records))
		if err := idx.Upsert(ctx, records[start:end]); err != nil {
			logger.Warn("upsert batch failed", "from", start, "to", end, "err", err)
			continue
		}
		stored += end - start
	}
	return stored, nil
}
