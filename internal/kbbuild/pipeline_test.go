package kbbuild

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"cabinetquote/internal/ai"
	"cabinetquote/internal/cache"
	"cabinetquote/internal/google"
	"cabinetquote/internal/knowledge"
)

type fakeSource struct {
	files []google.DriveFile
	err   error
}

func (f fakeSource) Fetch(context.Context) ([]google.DriveFile, error) {
	return f.files, f.err
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("embedding quota exceeded")
}

type countingEmbedder struct {
	inner  Embedder
	calls  int
	inputs int
}

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls++
	c.inputs += len(texts)
	return c.inner.Embed(ctx, texts)
}

func eml(subject, body string) []byte {
	return []byte("Subject: " + subject + "\nContent-Type: text/plain; charset=utf-8\n\n" + body + "\n")
}

func quoteFiles() []google.DriveFile {
	return []google.DriveFile{
		{Name: "01 kitchen.eml", Content: eml("Kitchen", "Oak cabinets, soft-close drawers, $4000, 30% deposit")},
		{Name: "02 media.eml", Content: eml("Media Unit", "Walnut veneer, $1800, 50% deposit")},
		{Name: "03 vanity.eml", Content: eml("Vanity", "Maple vanity with quartz top, $2200")},
		{Name: "04 pantry.eml", Content: eml("Pantry", "Pull-out pantry, soft-close hinges, $900")},
		{Name: "05 closet.eml", Content: eml("Closet", "Melamine closet system, drawers and shelves")},
	}
}

func paths(t *testing.T) (string, string) {
	dir := t.TempDir()
	return filepath.Join(dir, "kb", "quote_index.bin"), filepath.Join(dir, "kb", "quote_corpus.json")
}

func TestRun_BuildsAlignedKnowledgeBase(t *testing.T) {
	indexPath, corpusPath := paths(t)
	emb := &countingEmbedder{inner: ai.NewHashingEmbedder(64)}
	var progress [][2]int
	p := New(fakeSource{files: quoteFiles()}, emb, Options{
		IndexPath:  indexPath,
		CorpusPath: corpusPath,
		BatchSize:  2,
		Progress:   func(done, total int) { progress = append(progress, [2]int{done, total}) },
	})

	res, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Documents != 5 || res.Dimension != 64 || res.Embedded != 5 {
		t.Errorf("result = %+v", res)
	}
	if emb.calls != 3 {
		t.Errorf("embed calls = %d, want 3 batches", emb.calls)
	}
	if last := progress[len(progress)-1]; last != [2]int{5, 5} {
		t.Errorf("final progress = %v", last)
	}

	kb, err := knowledge.Load(indexPath, corpusPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !strings.HasPrefix(kb.Documents[0], "Subject: Kitchen\n\nOak cabinets, soft-close drawers, $4000, 30% deposit") {
		t.Errorf("document 0 = %q", kb.Documents[0])
	}
	if kb.Index.Len() != 5 {
		t.Errorf("index size = %d", kb.Index.Len())
	}
}

func TestRun_Idempotent(t *testing.T) {
	emb := ai.NewHashingEmbedder(128)
	idx1, corp1 := paths(t)
	idx2, corp2 := paths(t)
	for _, out := range [][2]string{{idx1, corp1}, {idx2, corp2}} {
		if _, err := New(fakeSource{files: quoteFiles()}, emb, Options{IndexPath: out[0], CorpusPath: out[1]}).Run(context.Background()); err != nil {
			t.Fatalf("Run: %v", err)
		}
	}
	a, err := knowledge.Load(idx1, corp1)
	if err != nil {
		t.Fatal(err)
	}
	b, err := knowledge.Load(idx2, corp2)
	if err != nil {
		t.Fatal(err)
	}

	for _, q := range []string{"kitchen quote with deposit", "walnut", "soft-close", "closet shelves"} {
		vecs, err := emb.Embed(context.Background(), []string{q})
		if err != nil {
			t.Fatal(err)
		}
		ha, err := a.Index.Search(vecs[0], 5)
		if err != nil {
			t.Fatal(err)
		}
		hb, err := b.Index.Search(vecs[0], 5)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(ha, hb) {
			t.Errorf("query %q: %v vs %v", q, ha, hb)
		}
	}
}

func TestRun_EmbeddingCacheSkipsUnchanged(t *testing.T) {
	c, err := cache.OpenEmbeddingCache(filepath.Join(t.TempDir(), "emb.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	indexPath, corpusPath := paths(t)
	emb := &countingEmbedder{inner: ai.NewHashingEmbedder(32)}
	opts := Options{IndexPath: indexPath, CorpusPath: corpusPath, Model: "hashing-32", Cache: c}

	if _, err := New(fakeSource{files: quoteFiles()}, emb, opts).Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	first := emb.inputs

	files := append(quoteFiles(), google.DriveFile{Name: "06 desk.eml", Content: eml("Desk", "Built-in desk, $1200")})
	res, err := New(fakeSource{files: files}, emb, opts).Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if emb.inputs-first != 1 || res.CacheHits != 5 || res.Embedded != 1 {
		t.Errorf("second run embedded %d (hits %d), want only the new document", emb.inputs-first, res.CacheHits)
	}
}

func TestRun_FailureKeepsPreviousFiles(t *testing.T) {
	indexPath, corpusPath := paths(t)
	emb := ai.NewHashingEmbedder(16)
	if _, err := New(fakeSource{files: quoteFiles()}, emb, Options{IndexPath: indexPath, CorpusPath: corpusPath}).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	before, err := os.ReadFile(corpusPath)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		src  Source
		emb  Embedder
	}{
		{"fetch error", fakeSource{err: errors.New("drive down")}, emb},
		{"no documents", fakeSource{}, emb},
		{"bad pdf", fakeSource{files: []google.DriveFile{{Name: "x.pdf", Content: []byte("nope")}}}, emb},
		{"embed error", fakeSource{files: quoteFiles()}, failingEmbedder{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.src, tt.emb, Options{IndexPath: indexPath, CorpusPath: corpusPath}).Run(context.Background())
			if err == nil {
				t.Fatal("Run should fail")
			}
			after, err := os.ReadFile(corpusPath)
			if err != nil {
				t.Fatal(err)
			}
			if string(after) != string(before) {
				t.Error("corpus file changed after a failed run")
			}
			if _, err := knowledge.Load(indexPath, corpusPath); err != nil {
				t.Errorf("previous knowledge base no longer loads: %v", err)
			}
		})
	}
}
