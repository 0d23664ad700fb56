// Package vectorindex provides the vector search structure.
// Clean Architecture: Adapter implementing ports.VectorIndex.
// Exact brute-force L2 search over all vectors - correct by construction and
// fast enough for collections in the tens of thousands.
package vectorindex

import (
	"fmt"
	"sort"
	"sync"

	"github.com/0xcro3dile/licenserag-go/internal/domain/ports"
)

// FlatIndex stores vectors in insertion order and searches by squared
// Euclidean distance.
type FlatIndex struct {
	mu        sync.RWMutex
	vectors   [][]float32
	dimension int
}

// NewFlatIndex creates an empty flat index.
func NewFlatIndex() *FlatIndex {
	return &FlatIndex{}
}

// New is a ports.NewVectorIndex factory for the index manager.
func New() ports.VectorIndex {
	return NewFlatIndex()
}

// Add appends vectors to the index. All vectors must share one dimension.
func (f *FlatIndex) Add(vectors [][]float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("cannot index an empty vector")
		}
		if f.dimension == 0 {
			f.dimension = len(v)
		}
		if len(v) != f.dimension {
			return fmt.Errorf("vector dimension %d does not match index dimension %d", len(v), f.dimension)
		}
		f.vectors = append(f.vectors, v)
	}
	return nil
}

// Search returns up to k hits ordered by increasing distance.
func (f *FlatIndex) Search(query []float32, k int) ([]ports.SearchHit, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.vectors) == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != f.dimension {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(query), f.dimension)
	}

	hits := make([]ports.SearchHit, len(f.vectors))
	for i, v := range f.vectors {
		hits[i] = ports.SearchHit{Position: i, Distance: squaredL2(query, v)}
	}
	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Len reports the number of indexed vectors.
func (f *FlatIndex) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

// squaredL2 computes the squared Euclidean distance between two vectors.
// The square root is skipped: it does not change the ordering.
func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
