// Package service builds the knowledge base the sessions query: lecture files
// are loaded, chunked, embedded and indexed, and the result is persisted so an
// unchanged corpus is reused on the next start.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"ragchitchat/internal/domain"
	"ragchitchat/internal/lexical"
	"ragchitchat/internal/loader"
	"ragchitchat/internal/logger"
	"ragchitchat/internal/store"
	"ragchitchat/internal/vectorstore"
)

// Catalog persists processed chunks keyed by a corpus fingerprint.
type Catalog interface {
	Fingerprint(ctx context.Context) (string, error)
	Replace(ctx context.Context, fingerprint string, chunks []domain.Chunk) error
	Load(ctx context.Context) ([]domain.Chunk, error)
}

type Options struct {
	DataDir string
	// Settings identifies the chunking configuration; changing it invalidates
	// the catalog.
	Settings         string
	Force            bool
	SummarySentences int
	Lexical          lexical.Params
}

// KnowledgeBase is the indexed corpus plus the overview shown at startup.
type KnowledgeBase struct {
	Store   *store.Store
	Sources []string
	Summary string
	// Reused is set when chunks came from the catalog instead of ingestion.
	Reused bool
}

type Builder struct {
	chunker    domain.Chunker
	embedder   domain.Embedder
	vectors    vectorstore.Index
	summarizer domain.Summarizer
	catalog    Catalog
	opts       Options
}

// NewBuilder wires the ingestion pipeline. catalog and summarizer may be nil.
func NewBuilder(
	chunker domain.Chunker,
	embedder domain.Embedder,
	vectors vectorstore.Index,
	summarizer domain.Summarizer,
	catalog Catalog,
	opts Options,
) *Builder {
	if opts.SummarySentences <= 0 {
		opts.SummarySentences = 5
	}
	if opts.Lexical == (lexical.Params{}) {
		opts.Lexical = lexical.DefaultParams()
	}
	return &Builder{
		chunker:    chunker,
		embedder:   embedder,
		vectors:    vectors,
		summarizer: summarizer,
		catalog:    catalog,
		opts:       opts,
	}
}

// Build loads the data directory and returns the indexed knowledge base. An
// empty directory yields an empty store rather than an error.
func (b *Builder) Build(ctx context.Context) (*KnowledgeBase, error) {
	log := logger.FromContext(ctx)
	docs, err := loader.Load(ctx, b.opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	kb := &KnowledgeBase{Sources: sources(docs)}
	if len(docs) == 0 {
		log.Warn("no lecture documents found", "dir", b.opts.DataDir)
	}

	chunks, reused, err := b.chunks(ctx, docs)
	if err != nil {
		return nil, err
	}
	kb.Reused = reused

	kb.Store, err = store.Build(ctx, chunks, b.vectors, b.opts.Lexical)
	if err != nil {
		return nil, fmt.Errorf("index chunks: %w", err)
	}
	if b.summarizer != nil && len(docs) > 0 {
		kb.Summary, err = b.summarizer.Summarize(corpusText(docs), b.opts.SummarySentences)
		if err != nil {
			return nil, fmt.Errorf("summarize corpus: %w", err)
		}
	}
	log.Info("knowledge base ready",
		"documents", len(docs), "chunks", kb.Store.Len(), "reused", reused, "embedder", b.embedder.Name())
	return kb, nil
}

func (b *Builder) chunks(ctx context.Context, docs []domain.Document) ([]domain.Chunk, bool, error) {
	if len(docs) == 0 {
		return nil, false, b.embedder.Prepare(ctx, nil)
	}
	fp := Fingerprint(docs, b.embedder.Name(), b.opts.Settings)
	if b.catalog != nil && !b.opts.Force {
		stored, err := b.catalog.Fingerprint(ctx)
		if err != nil {
			return nil, false, err
		}
		if stored == fp {
			chunks, err := b.catalog.Load(ctx)
			if err != nil {
				return nil, false, err
			}
			// Corpus-fitted embedders need their vocabulary back for queries.
			if err := b.embedder.Prepare(ctx, texts(chunks)); err != nil {
				return nil, false, fmt.Errorf("prepare embedder: %w", err)
			}
			logger.FromContext(ctx).Debug("reusing chunk catalog", "fingerprint", fp, "chunks", len(chunks))
			return chunks, true, nil
		}
	}

	chunks, err := b.ingest(ctx, docs)
	if err != nil {
		return nil, false, err
	}
	if b.catalog != nil {
		if err := b.catalog.Replace(ctx, fp, chunks); err != nil {
			return nil, false, fmt.Errorf("persist catalog: %w", err)
		}
	}
	return chunks, false, nil
}

func (b *Builder) ingest(ctx context.Context, docs []domain.Document) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for _, d := range docs {
		dc, err := b.chunker.Chunk(d)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", d.Source, err)
		}
		chunks = append(chunks, dc...)
	}
	corpus := texts(chunks)
	if err := b.embedder.Prepare(ctx, corpus); err != nil {
		return nil, fmt.Errorf("prepare embedder: %w", err)
	}
	if len(chunks) == 0 {
		return nil, nil
	}
	vectors, err := b.embedder.EmbedDocuments(ctx, corpus)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}
	logger.FromContext(ctx).Debug("ingested documents", "documents", len(docs), "chunks", len(chunks))
	return chunks, nil
}

// Fingerprint identifies a corpus by its files, their size and modification
// time, the embedder and the chunk settings.
func Fingerprint(docs []domain.Document, embedder, settings string) string {
	lines := make([]string, 0, len(docs)+2)
	for _, d := range docs {
		lines = append(lines, fmt.Sprintf("%s|%d|%d", d.Source, d.Size, d.ModTime.UnixNano()))
	}
	sort.Strings(lines)
	lines = append(lines, "embedder="+embedder, "settings="+settings)
	h := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(h[:])
}

func sources(docs []domain.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Source
	}
	sort.Strings(out)
	return out
}

func texts(chunks []domain.Chunk) []string {
	out := make([]string, len(chunks))
	for i := range chunks {
		out[i] = chunks[i].Text
	}
	return out
}

func corpusText(docs []domain.Document) string {
	var sb strings.Builder
	for _, d := range docs {
		for _, p := range d.Pages {
			sb.WriteString(p.Text)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
