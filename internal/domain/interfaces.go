package domain

import (
	"context"
	"time"
)

// Document is a source that has been ingested into the index.
type Document struct {
	ID         string
	Descriptor string
	Title      string
	Content    string
	Summary    string
	ChunkCount int
	CreatedAt  time.Time
}

// Chunk is a contiguous, overlap-linked segment of a document's normalized text.
// Start and End are code point offsets into that text.
type Chunk struct {
	DocumentID string
	Index      int
	Text       string
	Start      int
	End        int
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Source describes where a document comes from. Exactly one of URL, Path or
// Content (with Filename) is expected to be set.
type Source struct {
	URL      string
	Path     string
	Filename string
	Content  []byte
}

// IngestResult reports the outcome of ingesting one source.
type IngestResult struct {
	Success          bool
	DocumentID       string
	Chunks           int
	AlreadyProcessed bool
	Message          string
	Summary          string
	Err              error
}

// Answer is the synthesized response to a single question.
type Answer struct {
	Question  string
	Text      string
	Clauses   []SearchResult
	Reasoning string
	Err       error
}

// QueryRecord is a question/answer pair kept for auditing.
type QueryRecord struct {
	ID            string
	DocumentID    string
	Question      string
	Answer        string
	Justification []SearchResult
	CreatedAt     time.Time
}

// Strategy tags which embedding path produced a batch of vectors.
type Strategy string

const (
	StrategySemantic Strategy = "semantic"
	StrategySparse   Strategy = "sparse"
	// StrategyFallback marks uniformly random vectors produced when the
	// sparse vectorizer could not transform the batch.
	StrategyFallback Strategy = "fallback"
)

// Embedded is the output of one Embed call.
type Embedded struct {
	Vectors  [][]float64
	Strategy Strategy
	// Err holds the cause when Strategy is StrategyFallback.
	Err error
}

// Embedder converts batches of text into fixed-dimension vectors.
// Prepare is the explicit corpus-fitting step; strategies that need no
// fitting treat it as a no-op.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, texts []string) (Embedded, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Record is a single vector index entry.
type Record struct {
	ID     string
	Vector []float64
	Chunk  Chunk
}

// VectorIndex persists vectors and supports filtered similarity search.
type VectorIndex interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, records []Record) error
	// Query returns up to topK results ranked by cosine similarity. An empty
	// documentID searches the whole index.
	Query(ctx context.Context, vector []float64, topK int, documentID string) ([]SearchResult, error)
}

// Generator is the text-generation collaborator.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Fetcher retrieves raw document bytes from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Catalog records which sources have been ingested and the questions asked of them.
type Catalog interface {
	Get(ctx context.Context, id string) (*Document, error)
	Save(ctx context.Context, doc Document) error
	RecordQuery(ctx context.Context, q QueryRecord) error
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
