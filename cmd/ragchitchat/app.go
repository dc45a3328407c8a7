package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"ragchitchat/internal/chunker"
	"ragchitchat/internal/config"
	"ragchitchat/internal/domain"
	"ragchitchat/internal/embedding"
	"ragchitchat/internal/lexical"
	"ragchitchat/internal/llm/ollama"
	"ragchitchat/internal/logger"
	"ragchitchat/internal/prompt"
	"ragchitchat/internal/retrieval"
	"ragchitchat/internal/service"
	"ragchitchat/internal/session"
	"ragchitchat/internal/summarizer"
	"ragchitchat/internal/tokens"
	"ragchitchat/internal/vectorstore"
	"ragchitchat/internal/vectorstore/memory"
	"ragchitchat/internal/vectorstore/qdrant"
	"ragchitchat/internal/vectorstore/sqlite"
)

// app holds the components shared by every subcommand.
type app struct {
	cfg       *config.AppConfig
	completer *ollama.Client
	embedder  domain.Embedder
	kb        *service.KnowledgeBase
	closers   []io.Closer
}

func loadConfig(path string) (*config.AppConfig, error) {
	if path == "" {
		cfg, _, err := config.LoadDefault()
		return cfg, err
	}
	return config.Load(path)
}

// setupLogger installs the process logger and returns a context carrying it.
// A nil output selects the configured log file.
func setupLogger(ctx context.Context, cfg *config.AppConfig, out io.Writer) (context.Context, io.Closer, error) {
	var closer io.Closer
	if out == nil {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out, closer = f, f
	}
	logCfg := logger.DefaultConfig()
	logCfg.Level = logger.ParseLevel(cfg.Log.Level)
	logCfg.Output = out
	logCfg.JSON = cfg.Log.JSON
	logger.Init(logCfg)
	return logger.ContextWithLogger(ctx, logger.GetDefault()), closer, nil
}

func newApp(ctx context.Context, cfg *config.AppConfig, force bool) (*app, error) {
	a := &app{
		cfg:       cfg,
		completer: newCompleter(cfg),
	}
	emb, err := embedding.New(embedding.Config{
		Type:      cfg.Embedder.Type,
		Model:     cfg.Embedder.Model,
		BaseURL:   cfg.Embedder.BaseURL,
		APIKey:    cfg.Embedder.APIKey(),
		BatchSize: cfg.Embedder.BatchSize,
		CacheSize: cfg.Embedder.CacheSize,
	})
	if err != nil {
		return nil, err
	}
	a.embedder = emb

	ch, err := chunker.New(cfg.Chunker.Type, cfg.Chunker.Size, cfg.Chunker.Overlap)
	if err != nil {
		return nil, err
	}
	vectors, err := newVectorIndex(cfg.VectorStore)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Storage.DBDir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	catalog, err := sqlite.Open(ctx, filepath.Clean(cfg.Storage.CatalogPath()))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, catalog)

	builder := service.NewBuilder(ch, emb, vectors, summarizer.NewFrequencySummarizer(), catalog, service.Options{
		DataDir:          cfg.Storage.DataDir,
		Settings:         cfg.Chunker.Settings(),
		Force:            force,
		SummarySentences: cfg.Summarizer.MaxSentences,
		Lexical:          lexical.Params{K1: cfg.Retrieval.BM25K1, B: cfg.Retrieval.BM25B},
	})
	a.kb, err = builder.Build(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func newCompleter(cfg *config.AppConfig) *ollama.Client {
	return ollama.New(ollama.Config{BaseURL: cfg.Ollama.URL, Timeout: cfg.Ollama.Timeout()})
}

func newVectorIndex(cfg config.VectorStoreConfig) (vectorstore.Index, error) {
	switch cfg.Type {
	case "", "memory":
		return memory.NewStorage(), nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

func (a *app) newSession() (*session.Session, error) {
	fusion, err := retrieval.ParseFusion(a.cfg.Retrieval.Fusion)
	if err != nil {
		return nil, err
	}
	merger := retrieval.NewMerger(a.cfg.Retrieval.TopK, retrieval.Weights{
		Vector:  a.cfg.Retrieval.VectorWeight,
		Lexical: a.cfg.Retrieval.LexicalWeight,
	}, fusion)
	retriever := retrieval.NewRetriever(a.kb.Store, a.embedder, merger, a.cfg.Retrieval.CandidateCount())

	counter, err := tokens.New(a.cfg.Prompt.TokenCounter)
	if err != nil {
		return nil, err
	}
	asm, err := prompt.NewAssembler(prompt.Options{
		SystemPrompt: a.cfg.Prompt.SystemPrompt,
		Budget:       a.cfg.Prompt.ContextBudget,
		HistoryTurns: a.cfg.Prompt.HistoryTurns,
		Counter:      counter,
		Temperature:  a.cfg.Ollama.Temperature,
		MaxTokens:    a.cfg.Ollama.MaxTokens,
		FewShot:      a.cfg.Prompt.FewShot,
	})
	if err != nil {
		return nil, err
	}
	return session.New(session.Config{
		Model:           a.cfg.Ollama.Model,
		HistoryCapacity: a.cfg.Session.HistoryCapacity,
	}, retriever, asm, a.completer), nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		_ = c.Close()
	}
}
