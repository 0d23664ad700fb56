// Package ports defines interfaces for external dependencies.
// Clean Architecture: These are the boundaries - usecases depend on these abstractions,
// not concrete implementations. Adapters implement these interfaces.
package ports

import (
	"context"

	"github.com/0xcro3dile/licenserag-go/internal/domain/entities"
)

// DataSource yields the current record collection. Implementations fail
// softly: read, parse, or network errors surface as an error the caller may
// log, with a nil record slice - never a partial collection.
type DataSource interface {
	// Fetch returns all records from the backing source.
	Fetch(ctx context.Context) ([]entities.Record, error)
}

// EmbeddingService generates vector embeddings for text.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// SearchHit is one nearest-neighbor match: the position of the vector as it
// was added, and its distance to the query vector.
type SearchHit struct {
	Position int
	Distance float64
}

// VectorIndex holds embedding vectors and supports nearest-neighbor search.
// Positions are assigned in Add order, starting at zero.
type VectorIndex interface {
	// Add appends vectors to the index.
	Add(vectors [][]float32) error

	// Search returns up to k hits ordered by increasing distance.
	Search(query []float32, k int) ([]SearchHit, error)

	// Len reports the number of indexed vectors.
	Len() int
}

// NewVectorIndex constructs an empty index. The manager builds a fresh
// structure on every rebuild and swaps it in atomically.
type NewVectorIndex func() VectorIndex

// GenerateOptions are per-call generation parameters.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
}

// GenerationService is the raw text-generation backend. It returns typed
// errors (see errors.go) so the gateway can distinguish transient transport
// failures from backend-reported ones. An empty string with a nil error is a
// well-formed empty completion.
type GenerationService interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// ArtifactStore persists the built index artifacts: the record collection,
// its aligned embedding vectors, and the fingerprint of the data they were
// built from. Load reports ok=false when no artifacts exist yet.
type ArtifactStore interface {
	Load(ctx context.Context) (records []entities.Record, vectors [][]float32, fingerprint string, ok bool, err error)
	Save(ctx context.Context, records []entities.Record, vectors [][]float32, fingerprint string) error
}

// SourceWatcher watches the backing data source and signals when it changes.
type SourceWatcher interface {
	// Watch emits a signal per change until ctx is cancelled.
	Watch(ctx context.Context) (<-chan struct{}, error)

	// Stop stops the watcher.
	Stop() error
}
