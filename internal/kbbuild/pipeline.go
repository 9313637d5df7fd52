// Package kbbuild rebuilds the knowledge base from the quote files in Drive.
package kbbuild

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cabinetquote/internal/google"
	"cabinetquote/internal/knowledge"
	"cabinetquote/internal/pkg/quotetext"
	"cabinetquote/internal/vectorindex"
)

const defaultBatchSize = 10

var ErrNoDocuments = errors.New("no quote documents to index")

type Source interface {
	Fetch(ctx context.Context) ([]google.DriveFile, error)
}

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingCache is implemented by cache.EmbeddingCache.
type EmbeddingCache interface {
	GetMany(model string, texts []string) ([][]float32, error)
	PutMany(model string, texts []string, vectors [][]float32) error
}

type Options struct {
	IndexPath  string
	CorpusPath string
	BatchSize  int
	// Model names the embedder in cache keys.
	Model string
	Cache EmbeddingCache
	// Progress is called after each embedded batch.
	Progress func(done, total int)
}

type Result struct {
	Documents int
	Dimension int
	Embedded  int
	CacheHits int
}

type Pipeline struct {
	source   Source
	embedder Embedder
	opts     Options
}

func New(source Source, embedder Embedder, opts Options) *Pipeline {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	return &Pipeline{source: source, embedder: embedder, opts: opts}
}

// Run fetches, extracts, embeds, indexes and saves. Any failure aborts the
// run and leaves the previous knowledge-base files untouched.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	files, err := p.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch quote files failed: %w", err)
	}

	docs := make([]string, 0, len(files))
	for _, f := range files {
		log.Printf("processing %s", f.Name)
		doc, err := quotetext.Extract(f.Name, f.Content)
		if err != nil {
			return nil, fmt.Errorf("extract %s failed: %w", f.Name, err)
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	vectors, res, err := p.embedAll(ctx, docs)
	if err != nil {
		return nil, err
	}

	idx, err := vectorindex.Build(vectors)
	if err != nil {
		return nil, fmt.Errorf("build index failed: %w", err)
	}
	kb, err := knowledge.New(idx, docs)
	if err != nil {
		return nil, err
	}
	if err := knowledge.Save(p.opts.IndexPath, p.opts.CorpusPath, kb); err != nil {
		return nil, fmt.Errorf("save knowledge base failed: %w", err)
	}

	res.Documents = len(docs)
	res.Dimension = idx.Dimension()
	return res, nil
}

func (p *Pipeline) embedAll(ctx context.Context, docs []string) ([][]float32, *Result, error) {
	res := &Result{}
	vectors := make([][]float32, len(docs))
	if p.opts.Cache != nil {
		cached, err := p.opts.Cache.GetMany(p.opts.Model, docs)
		if err != nil {
			return nil, nil, fmt.Errorf("read embedding cache failed: %w", err)
		}
		copy(vectors, cached)
	}

	var missing []int
	for i, v := range vectors {
		if v == nil {
			missing = append(missing, i)
		}
	}
	res.CacheHits = len(docs) - len(missing)

	done := res.CacheHits
	p.report(done, len(docs))
	for start := 0; start < len(missing); start += p.opts.BatchSize {
		end := min(start+p.opts.BatchSize, len(missing))
		batch := make([]string, 0, end-start)
		for _, i := range missing[start:end] {
			batch = append(batch, docs[i])
		}

		embedded, err := p.embedder.Embed(ctx, batch)
		if err != nil {
			return nil, nil, fmt.Errorf("embed documents failed: %w", err)
		}
		if len(embedded) != len(batch) {
			return nil, nil, fmt.Errorf("embedder returned %d vectors for %d documents", len(embedded), len(batch))
		}
		for j, i := range missing[start:end] {
			vectors[i] = embedded[j]
		}
		if p.opts.Cache != nil {
			if err := p.opts.Cache.PutMany(p.opts.Model, batch, embedded); err != nil {
				return nil, nil, fmt.Errorf("write embedding cache failed: %w", err)
			}
		}

		res.Embedded += len(batch)
		done += len(batch)
		p.report(done, len(docs))
	}
	return vectors, res, nil
}

func (p *Pipeline) report(done, total int) {
	if p.opts.Progress != nil {
		p.opts.Progress(done, total)
	}
}
