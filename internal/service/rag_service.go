// Package service is the retrieval orchestrator: it turns sources into indexed
// chunks and answers questions from the chunks most similar to them.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"docqa/internal/domain"
	"docqa/internal/extract"
	"docqa/internal/identity"
	"docqa/internal/vectorstore"
)

// Options tunes retrieval and what is kept about each document.
type Options struct {
	TopK             int
	ContentLimit     int
	SummarySentences int
}

// DefaultOptions returns top_k 5, a 10 000 character stored excerpt and a
// three sentence summary.
func DefaultOptions() Options {
	return Options{TopK: 5, ContentLimit: 10000, SummarySentences: 3}
}

// StateStore persists small blobs such as a fitted embedding model.
type StateStore interface {
	PutState(ctx context.Context, key string, value []byte) error
	GetState(ctx context.Context, key string) ([]byte, error)
}

// statefulEmbedder is implemented by embedders whose fitted model must survive
// restarts to keep stored vectors comparable with new queries.
type statefulEmbedder interface {
	MarshalState() ([]byte, error)
	UnmarshalState(data []byte) error
}

// Deps are the collaborators of RAGService. State is optional.
type Deps struct {
	Fetcher    domain.Fetcher
	Chunker    domain.Chunker
	Embedder   domain.Embedder
	Index      domain.VectorIndex
	Generator  domain.Generator
	Catalog    domain.Catalog
	Summarizer domain.Summarizer
	State      StateStore
	Logger     *log.Logger
}

type RAGService struct {
	Deps
	opts  Options
	group singleflight.Group
}

func NewRAGService(deps Deps, opts Options) *RAGService {
	def := DefaultOptions()
	if opts.TopK <= 0 {
		opts.TopK = def.TopK
	}
	if opts.ContentLimit <= 0 {
		opts.ContentLimit = def.ContentLimit
	}
	if opts.SummarySentences <= 0 {
		opts.SummarySentences = def.SummarySentences
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	return &RAGService{Deps: deps, opts: opts}
}

// Init creates the vector index and restores a persisted embedding model.
func (s *RAGService) Init(ctx context.Context) error {
	if err := s.Index.Init(ctx, s.Embedder.Dimension()); err != nil {
		return fmt.Errorf("init vector index: %w", err)
	}
	se, ok := s.Embedder.(statefulEmbedder)
	if !ok || s.State == nil {
		return nil
	}
	data, err := s.State.GetState(ctx, s.stateKey())
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load embedder state: %w", err)
	}
	if err := se.UnmarshalState(data); err != nil {
		return fmt.Errorf("restore embedder state: %w", err)
	}
	s.Logger.Debug("restored embedder state", "embedder", s.Embedder.Name())
	return nil
}

// Ingest makes src searchable. Concurrent calls for the same source share one
// run, and a source already in the catalog is not processed again. The shared
// run keeps ctx's values but not its cancellation, so one caller giving up
// does not fail the others; fetch and remote calls stay bounded by their own
// timeouts.
func (s *RAGService) Ingest(ctx context.Context, src domain.Source) domain.IngestResult {
	id, descriptor, ok := identity.Resolve(src)
	if !ok {
		return failed("", fmt.Errorf("%w: source needs a URL, a path or uploaded content", domain.ErrInvalidInput))
	}
	shared := context.WithoutCancel(ctx)
	v, _, _ := s.group.Do(id, func() (any, error) {
		return s.ingest(shared, id, descriptor, src), nil
	})
	return v.(domain.IngestResult)
}

func (s *RAGService) ingest(ctx context.Context, id, descriptor string, src domain.Source) domain.IngestResult {
	logger := s.Logger.With("document", id)

	existing, err := s.Catalog.Get(ctx, id)
	switch {
	case err == nil:
		logger.Debug("document already processed")
		return domain.IngestResult{
			Success:          true,
			DocumentID:       id,
			Chunks:           existing.ChunkCount,
			AlreadyProcessed: true,
			Message:          "Document already processed",
			Summary:          existing.Summary,
		}
	case !errors.Is(err, domain.ErrNotFound):
		logger.Warn("catalog lookup failed", "err", err)
	}

	data, err := s.load(ctx, src)
	if err != nil {
		return failed(id, err)
	}
	name := descriptor
	if src.URL == "" && src.Path == "" {
		name = src.Filename
	}
	format := extract.Classify(name)
	text, err := extract.Extract(data, format)
	if err != nil {
		return failed(id, err)
	}

	doc := domain.Document{ID: id, Descriptor: descriptor, Title: identity.Title(descriptor), Content: text}
	chunks, err := s.Chunker.Chunk(doc)
	if err != nil {
		return failed(id, err)
	}
	if len(chunks) == 0 {
		return failed(id, fmt.Errorf("%w: no text found in %s document", domain.ErrExtraction, format))
	}
	logger.Debug("chunked document", "format", format, "chunks", len(chunks))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	if err := s.Embedder.Prepare(texts); err != nil {
		logger.Warn("embedder preparation failed", "embedder", s.Embedder.Name(), "err", err)
	} else {
		s.persistEmbedder(ctx)
	}
	embedded, err := s.Embedder.Embed(ctx, texts)
	if err != nil {
		return failed(id, err)
	}
	if embedded.Strategy == domain.StrategyFallback {
		logger.Warn("using random fallback vectors", "err", embedded.Err)
	}

	stored, err := vectorstore.UpsertChunks(ctx, s.Index, chunks, embedded.Vectors, logger)
	if err != nil {
		return failed(id, err)
	}
	if stored == 0 {
		return failed(id, fmt.Errorf("%w: none of %d chunks could be stored", domain.ErrIndex, len(chunks)))
	}

	summary, err := s.Summarizer.Summarize(text, s.opts.SummarySentences)
	if err != nil {
		logger.Warn("summary failed", "err", err)
	}
	doc.Content = vectorstore.CapText(text, s.opts.ContentLimit)
	doc.Summary = summary
	doc.ChunkCount = stored
	if err := s.Catalog.Save(ctx, doc); err != nil {
		logger.Warn("catalog save failed", "err", err)
	}

	logger.Info("document ingested", "chunks", stored, "strategy", embedded.Strategy)
	return domain.IngestResult{
		Success:    true,
		DocumentID: id,
		Chunks:     stored,
		Message:    fmt.Sprintf("Successfully processed document with %d chunks", stored),
		Summary:    summary,
	}
}

func (s *RAGService) load(ctx context.Context, src domain.Source) ([]byte, error) {
	switch {
	case src.URL != "":
		return s.Fetcher.Fetch(ctx, src.URL)
	case src.Path != "":
		data, err := os.ReadFile(src.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrFetch, err)
		}
		return data, nil
	default:
		return src.Content, nil
	}
}

func (s *RAGService) persistEmbedder(ctx context.Context) {
	se, ok := s.Embedder.(statefulEmbedder)
	if !ok || s.State == nil {
		return
	}
	data, err := se.MarshalState()
	if err != nil {
		s.Logger.Warn("encode embedder state", "err", err)
		return
	}
	if err := s.State.PutState(ctx, s.stateKey(), data); err != nil {
		s.Logger.Warn("save embedder state", "err", err)
	}
}

func (s *RAGService) stateKey() string {
	return "embedder/" + s.Embedder.Name()
}

func failed(id string, err error) domain.IngestResult {
	return domain.IngestResult{DocumentID: id, Message: err.Error(), Err: err}
}
