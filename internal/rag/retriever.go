// Package rag turns a live user message into a prompt augmented with the
// most similar past quotes.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cabinetquote/internal/knowledge"
)

const DefaultTopK = 3

// FallbackNotice stands in for retrieved examples whenever retrieval cannot run.
const FallbackNotice = "No past quote examples are available right now. Continue the conversation without reference examples."

var ErrUnavailable = errors.New("knowledge base unavailable")

// Embedder turns texts into vectors, one per input, all of one dimension.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Match is a retrieved document with its distance to the query.
type Match struct {
	Position int     `json:"position"`
	Distance float64 `json:"distance"`
	Text     string  `json:"text"`
}

// Retriever is read-only after construction and safe for concurrent use.
type Retriever struct {
	embedder Embedder
	kb       *knowledge.Base
	loadErr  error
	topK     int
}

// NewRetriever wraps a loaded knowledge base. Pass a nil base together with
// the load error to get a retriever that always answers with FallbackNotice.
func NewRetriever(embedder Embedder, kb *knowledge.Base, loadErr error, topK int) *Retriever {
	if topK < 1 {
		topK = DefaultTopK
	}
	if kb == nil && loadErr == nil {
		loadErr = ErrUnavailable
	}
	if embedder == nil && loadErr == nil {
		loadErr = fmt.Errorf("%w: no embedder configured", ErrUnavailable)
	}
	if loadErr != nil {
		kb = nil
	}
	return &Retriever{embedder: embedder, kb: kb, loadErr: loadErr, topK: topK}
}

func (r *Retriever) Available() bool { return r.kb != nil }

// Status describes availability for health reporting.
func (r *Retriever) Status() string {
	if r.kb == nil {
		return r.loadErr.Error()
	}
	return fmt.Sprintf("%d documents, dimension %d", r.kb.Len(), r.kb.Index.Dimension())
}

func (r *Retriever) DefaultTopK() int { return r.topK }

// FindRelevant returns up to topK past quotes, nearest first. It never fails:
// when the knowledge base is unavailable or the lookup errors, the result is
// a single FallbackNotice. A topK below 1 uses the configured default.
func (r *Retriever) FindRelevant(ctx context.Context, query string, topK int) []string {
	matches, err := r.Search(ctx, query, topK)
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			log.Printf("retrieval failed, using fallback notice: %v", err)
		}
		return []string{FallbackNotice}
	}
	docs := make([]string, len(matches))
	for i, m := range matches {
		docs[i] = m.Text
	}
	return docs
}

// Search is FindRelevant with distances and errors exposed.
func (r *Retriever) Search(ctx context.Context, query string, topK int) ([]Match, error) {
	if r.kb == nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, r.loadErr)
	}
	if topK < 1 {
		topK = r.topK
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
	}

	hits, err := r.kb.Index.Search(vectors[0], topK)
	if err != nil {
		return nil, fmt.Errorf("search index failed: %w", err)
	}
	matches := make([]Match, len(hits))
	for i, h := range hits {
		matches[i] = Match{Position: h.Position, Distance: h.Distance, Text: r.kb.Documents[h.Position]}
	}
	return matches, nil
}
