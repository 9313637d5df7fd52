// Package vectorindex is an exact L2 nearest-neighbour index over a small,
// static set of embedding vectors. Positions are the insertion order and are
// the only identity a vector has.
package vectorindex

import (
	"bufio"
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	"gonum.org/v1/gonum/floats"
)

const formatVersion uint32 = 1

var magic = [4]byte{'Q', 'V', 'I', 'X'}

var (
	ErrEmptyQuery        = errors.New("query vector is empty")
	ErrInvalidK          = errors.New("k must be at least 1")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Hit is one search result.
type Hit struct {
	Position int     `json:"position"`
	Distance float64 `json:"distance"`
}

// Index is read-only after Build or Load and safe for concurrent readers.
type Index struct {
	dimension int
	vectors   [][]float64
}

// Build indexes vectors in the order given. All vectors must share one
// dimension. An empty input yields an empty index of dimension 0.
func Build(vectors [][]float32) (*Index, error) {
	idx := &Index{vectors: make([][]float64, len(vectors))}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("vector %d is empty", i)
		}
		if i == 0 {
			idx.dimension = len(v)
		} else if len(v) != idx.dimension {
			return nil, fmt.Errorf("vector %d: %w: expected %d, got %d", i, ErrDimensionMismatch, idx.dimension, len(v))
		}
		idx.vectors[i] = widen(v)
	}
	return idx, nil
}

func (x *Index) Len() int { return len(x.vectors) }

func (x *Index) Dimension() int { return x.dimension }

// Search returns up to k hits ordered by ascending Euclidean distance; equal
// distances keep the lower position first.
func (x *Index) Search(query []float32, k int) ([]Hit, error) {
	if len(query) == 0 {
		return nil, ErrEmptyQuery
	}
	if k < 1 {
		return nil, ErrInvalidK
	}
	if len(x.vectors) == 0 {
		return nil, nil
	}
	if len(query) != x.dimension {
		return nil, fmt.Errorf("%w: index has %d, query has %d", ErrDimensionMismatch, x.dimension, len(query))
	}

	q := widen(query)
	hits := make([]Hit, len(x.vectors))
	for i, v := range x.vectors {
		hits[i] = Hit{Position: i, Distance: floats.Distance(q, v, 2)}
	}
	slices.SortStableFunc(hits, func(a, b Hit) int {
		return cmp.Compare(a.Distance, b.Distance)
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Save writes the binary form: magic, version, dimension, count, then every
// vector as little-endian float32.
func (x *Index) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	header := []uint32{formatVersion, uint32(x.dimension), uint32(len(x.vectors))}
	if _, err := bw.Write(magic[:]); err != nil {
		return fmt.Errorf("write index header failed: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("write index header failed: %w", err)
	}
	buf := make([]byte, 4*x.dimension)
	for _, v := range x.vectors {
		for j, f := range v {
			binary.LittleEndian.PutUint32(buf[4*j:], math.Float32bits(float32(f)))
		}
		if _, err := bw.Write(buf); err != nil {
			return fmt.Errorf("write index vectors failed: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush index failed: %w", err)
	}
	return nil
}

// Load reads an index written by Save.
func Load(r io.Reader) (*Index, error) {
	br := bufio.NewReader(r)

	var gotMagic [4]byte
	if _, err := io.ReadFull(br, gotMagic[:]); err != nil {
		return nil, fmt.Errorf("read index header failed: %w", err)
	}
	if gotMagic != magic {
		return nil, fmt.Errorf("not a vector index file")
	}
	var header [3]uint32
	if err := binary.Read(br, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("read index header failed: %w", err)
	}
	if header[0] != formatVersion {
		return nil, fmt.Errorf("unsupported index version %d", header[0])
	}
	dimension, count := int(header[1]), int(header[2])
	if count > 0 && dimension == 0 {
		return nil, fmt.Errorf("index declares %d vectors of dimension 0", count)
	}

	idx := &Index{dimension: dimension, vectors: make([][]float64, count)}
	buf := make([]byte, 4*dimension)
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("read vector %d failed: %w", i, err)
		}
		v := make([]float64, dimension)
		for j := range v {
			v[j] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[4*j:])))
		}
		idx.vectors[i] = v
	}
	if _, err := br.ReadByte(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after %d vectors", count)
	}
	return idx, nil
}

// WriteFile saves the index to path, replacing any existing file.
func (x *Index) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file failed: %w", err)
	}
	if err := x.Save(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func ReadFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file failed: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
