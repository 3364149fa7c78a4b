package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"docqa/internal/catalog"
	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/embedding/openai"
	"docqa/internal/embedding/tfidf"
	"docqa/internal/extract"
	llmopenai "docqa/internal/llm/openai"
	"docqa/internal/service"
	"docqa/internal/summarizer"
	"docqa/internal/vectorstore/memory"
	"docqa/internal/vectorstore/qdrant"
)

// app is the assembled pipeline for one command invocation.
type app struct {
	cfg     *config.AppConfig
	logger  *log.Logger
	catalog *catalog.Store
	svc     *service.RAGService
}

func (o *globalOptions) loadConfig() (*config.AppConfig, error) {
	if o.configPath != "" {
		return config.Load(o.configPath)
	}
	cfg, _, err := config.LoadDefault()
	return cfg, err
}

func newLogger(w io.Writer, level string, verbose bool) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	if verbose {
		lvl = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          "docqa",
		ReportTimestamp: true,
	})
}

// newApp loads the configuration and wires every collaborator.
func newApp(ctx context.Context, opts *globalOptions, logOut io.Writer) (*app, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(logOut, cfg.Log.Level, opts.verbose)

	emb, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	ch, err := chunker.NewSentenceChunker(cfg.Chunker.MaxSize, cfg.Chunker.Overlap)
	if err != nil {
		return nil, err
	}

	var (
		index domain.VectorIndex
		store *catalog.Store
	)
	switch cfg.VectorStore.Type {
	case "qdrant":
		q := cfg.VectorStore.Qdrant
		index = qdrant.NewStorage(qdrant.Config{
			URL:        q.URL,
			APIKey:     os.Getenv(q.APIKeyEnv),
			Collection: q.Collection,
			Timeout:    config.Seconds(q.TimeoutSecs),
		})
		path := cfg.Catalog.Path
		if path == "" {
			path = catalog.DefaultPath()
		}
		store, err = catalog.Open(path)
	default:
		// The memory index forgets everything on exit, so its catalog must too.
		index = memory.NewStorage()
		store, err = catalog.OpenInMemory()
	}
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	var gen domain.Generator
	g, err := llmopenai.NewGenerator(llmopenai.Config{
		BaseURL:     cfg.Generator.BaseURL,
		APIKeyEnv:   cfg.Generator.APIKeyEnv,
		Model:       cfg.Generator.Model,
		MaxTokens:   cfg.Generator.MaxTokens,
		Temperature: cfg.Generator.Temperature,
		Timeout:     config.Seconds(cfg.Generator.TimeoutSecs),
	})
	if err != nil {
		logger.Warn("answer generation disabled", "err", err)
	} else {
		gen = g
	}

	svc := service.NewRAGService(service.Deps{
		Fetcher:    extract.NewHTTPFetcher(config.Seconds(cfg.Fetch.TimeoutSecs)),
		Chunker:    ch,
		Embedder:   emb,
		Index:      index,
		Generator:  gen,
		Catalog:    store,
		Summarizer: summarizer.NewFrequencySummarizer(),
		State:      store,
		Logger:     logger,
	}, service.Options{
		TopK:             cfg.Retrieval.TopK,
		SummarySentences: cfg.Summarizer.MaxSentences,
	})
	if err := svc.Init(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	logger.Debug("pipeline ready", "embedder", emb.Name(), "vector_store", cfg.VectorStore.Type, "catalog", store.Path())
	return &app{cfg: cfg, logger: logger, catalog: store, svc: svc}, nil
}

func newEmbedder(cfg *config.AppConfig) (domain.Embedder, error) {
	dim := cfg.Embedder.Dimension
	switch cfg.Embedder.Type {
	case "openai":
		o := cfg.Embedder.OpenAI
		client, err := openai.NewClient(openai.Config{
			BaseURL:   o.BaseURL,
			APIKeyEnv: o.APIKeyEnv,
			Model:     o.Model,
			Dimension: dim,
			BatchSize: o.BatchSize,
			Timeout:   config.Seconds(o.TimeoutSecs),
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return client, nil
	default:
		v := tfidf.NewVectorizer(tfidf.Options{
			MaxFeatures: dim,
			MinDF:       cfg.Embedder.TFIDF.MinDF,
			MaxDF:       cfg.Embedder.TFIDF.MaxDF,
			NGramMax:    cfg.Embedder.TFIDF.NGramMax,
		})
		return tfidf.NewEmbedder(v, dim), nil
	}
}

func (a *app) Close() error {
	return a.catalog.Close()
}

// sourceFromArg treats http(s) arguments as URLs and anything else as a path.
func sourceFromArg(arg string) domain.Source {
	lower := strings.ToLower(arg)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return domain.Source{URL: arg}
	}
	return domain.Source{Path: arg}
}

func ingestOrFail(ctx context.Context, a *app, arg string) (domain.IngestResult, error) {
	res := a.svc.Ingest(ctx, sourceFromArg(arg))
	if !res.Success {
		return res, fmt.Errorf("ingesting %s: %w", arg, res.Err)
	}
	return res, nil
}
