// Package knowledge persists the quote corpus next to its vector index and
// loads the pair back, refusing files that were not written together.
package knowledge

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cabinetquote/internal/vectorindex"
)

const corpusVersion = 1

var ErrMismatchedFiles = errors.New("index and corpus files do not belong together")

// Base is a loaded knowledge base. Document i is the text behind index position i.
type Base struct {
	Index     *vectorindex.Index
	Documents []string
}

type corpusFile struct {
	Version     int      `json:"version"`
	IndexSHA256 string   `json:"index_sha256"`
	Documents   []string `json:"documents"`
}

// New pairs an index with its documents.
func New(idx *vectorindex.Index, documents []string) (*Base, error) {
	if idx == nil {
		return nil, errors.New("index is nil")
	}
	if idx.Len() != len(documents) {
		return nil, fmt.Errorf("%w: index has %d vectors, corpus has %d documents", ErrMismatchedFiles, idx.Len(), len(documents))
	}
	return &Base{Index: idx, Documents: documents}, nil
}

func (b *Base) Len() int { return len(b.Documents) }

// Save writes both files to temporary siblings first and renames them into
// place only after both are complete and synced.
func Save(indexPath, corpusPath string, b *Base) error {
	for _, dir := range []string{filepath.Dir(indexPath), filepath.Dir(corpusPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create knowledge directory failed: %w", err)
		}
	}

	hasher := sha256.New()
	indexTmp, err := writeTemp(indexPath, func(w io.Writer) error {
		return b.Index.Save(io.MultiWriter(w, hasher))
	})
	if err != nil {
		return fmt.Errorf("write index failed: %w", err)
	}

	corpus := corpusFile{
		Version:     corpusVersion,
		IndexSHA256: hex.EncodeToString(hasher.Sum(nil)),
		Documents:   b.Documents,
	}
	if corpus.Documents == nil {
		corpus.Documents = []string{}
	}
	corpusTmp, err := writeTemp(corpusPath, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(corpus)
	})
	if err != nil {
		_ = os.Remove(indexTmp)
		return fmt.Errorf("write corpus failed: %w", err)
	}

	if err := os.Rename(indexTmp, indexPath); err != nil {
		_ = os.Remove(indexTmp)
		_ = os.Remove(corpusTmp)
		return fmt.Errorf("replace index file failed: %w", err)
	}
	if err := os.Rename(corpusTmp, corpusPath); err != nil {
		_ = os.Remove(corpusTmp)
		return fmt.Errorf("replace corpus file failed: %w", err)
	}
	return nil
}

// Load reads the index and corpus and verifies that the corpus was written
// for exactly this index file.
func Load(indexPath, corpusPath string) (*Base, error) {
	raw, err := os.ReadFile(indexPath)
	if err != nil {
		return nil, fmt.Errorf("read index file failed: %w", err)
	}
	corpusRaw, err := os.ReadFile(corpusPath)
	if err != nil {
		return nil, fmt.Errorf("read corpus file failed: %w", err)
	}

	var corpus corpusFile
	if err := json.Unmarshal(corpusRaw, &corpus); err != nil {
		return nil, fmt.Errorf("parse corpus file failed: %w", err)
	}
	if corpus.Version != corpusVersion {
		return nil, fmt.Errorf("unsupported corpus version %d", corpus.Version)
	}
	sum := sha256.Sum256(raw)
	if hex.EncodeToString(sum[:]) != corpus.IndexSHA256 {
		return nil, fmt.Errorf("%w: index checksum differs from the one recorded in %s", ErrMismatchedFiles, corpusPath)
	}

	idx, err := vectorindex.Load(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("load index failed: %w", err)
	}
	return New(idx, corpus.Documents)
}

func writeTemp(target string, write func(io.Writer) error) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}
