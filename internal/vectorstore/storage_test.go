package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

type recordingIndex struct {
	batches [][]domain.Record
	failOn  int
}

func (r *recordingIndex) Init(context.Context, int) error { return nil }

func (r *recordingIndex) Upsert(_ context.Context, records []domain.Record) error {
	r.batches = append(r.batches, records)
	if len(r.batches) == r.failOn {
		return errors.New("boom")
	}
	return nil
}

func (r *recordingIndex) Query(context.Context, []float64, int, string) ([]domain.SearchResult, error) {
	return nil, nil
}

func chunks(doc string, n int) ([]domain.Chunk, [][]float64) {
	cs := make([]domain.Chunk, n)
	vs := make([][]float64, n)
	for i := range cs {
		cs[i] = domain.Chunk{DocumentID: doc, Index: i, Text: fmt.Sprintf("chunk %d", i)}
		vs[i] = []float64{float64(i)}
	}
	return cs, vs
}

func TestRecordID(t *testing.T) {
	assert.Equal(t, "abc_0", RecordID("abc", 0))
	assert.Equal(t, "abc_42", RecordID("abc", 42))
}

func TestCapText(t *testing.T) {
	assert.Equal(t, "short", CapText("short", MaxMetadataText))
	long := strings.Repeat("é", 1000)
	capped := CapText(long, MaxMetadataText)
	assert.Equal(t, MaxMetadataText, len([]rune(capped)))
	assert.Equal(t, strings.Repeat("é", 450), CapText(strings.Repeat("é", 450), MaxMetadataText))
}

func TestUpsertChunks_Batches(t *testing.T) {
	idx := &recordingIndex{}
	cs, vs := chunks("doc", 250)
	cs[3].Text = strings.Repeat("x", 2000)

	n, err := UpsertChunks(context.Background(), idx, cs, vs, log.New(io.Discard))
	require.NoError(t, err)
	assert.Equal(t, 250, n)
	require.Len(t, idx.batches, 3)
	assert.Len(t, idx.batches[0], 100)
	assert.Len(t, idx.batches[1], 100)
	assert.Len(t, idx.batches[2], 50)

	assert.Equal(t, "doc_0", idx.batches[0][0].ID)
	assert.Equal(t, "doc_249", idx.batches[2][49].ID)
	assert.Len(t, idx.batches[0][3].Chunk.Text, MaxMetadataText)
	// Caller's chunks are not modified.
	assert.Len(t, cs[3].Text, 2000)
}

func TestUpsertChunks_FailedBatchSkipped(t *testing.T) {
	idx := &recordingIndex{failOn: 2}
	cs, vs := chunks("doc", 250)

	n, err := UpsertChunks(context.Background(), idx, cs, vs, log.New(io.Discard))
	require.NoError(t, err)
	assert.Equal(t, 150, n)
	assert.Len(t, idx.batches, 3)
}

func TestUpsertChunks_LengthMismatch(t *testing.T) {
	cs, vs := chunks("doc", 3)
	_, err := UpsertChunks(context.Background(), &recordingIndex{}, cs, vs[:2], nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
