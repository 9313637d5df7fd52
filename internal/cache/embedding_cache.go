package cache

import (
	"crypto/sha256"
	"fmt"

	"go.etcd.io/bbolt"

	"cabinetquote/internal/pkg/vecbytes"
)

var bucketEmbeddings = []byte("embeddings")

// EmbeddingCache remembers vectors per (model, text) across build runs.
type EmbeddingCache struct {
	db *bbolt.DB
}

func OpenEmbeddingCache(path string) (*EmbeddingCache, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEmbeddings)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create embedding bucket: %w", err)
	}
	return &EmbeddingCache{db: db}, nil
}

func (c *EmbeddingCache) Close() error {
	return c.db.Close()
}

// GetMany returns the cached vector for each text, nil where missing.
func (c *EmbeddingCache) GetMany(model string, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEmbeddings)
		for i, text := range texts {
			raw := b.Get(cacheKey(model, text))
			if raw == nil {
				continue
			}
			vec, err := vecbytes.Decode(raw)
			if err != nil {
				return fmt.Errorf("decode cached embedding failed: %w", err)
			}
			out[i] = vec
		}
		return nil
	})
	return out, err
}

func (c *EmbeddingCache) PutMany(model string, texts []string, vectors [][]float32) error {
	if len(texts) != len(vectors) {
		return fmt.Errorf("embedding cache: %d texts, %d vectors", len(texts), len(vectors))
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEmbeddings)
		for i, text := range texts {
			if err := b.Put(cacheKey(model, text), vecbytes.Encode(vectors[i])); err != nil {
				return err
			}
		}
		return nil
	})
}

func cacheKey(model, text string) []byte {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return h.Sum(nil)
}
