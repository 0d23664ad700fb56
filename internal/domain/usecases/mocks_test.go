package usecases

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/0xcro3dile/licenserag-go/internal/domain/entities"
	"github.com/0xcro3dile/licenserag-go/internal/domain/ports"
)

// mockEmbedder implements ports.EmbeddingService with canned vectors.
// Unknown texts get a deterministic fallback so length mismatches cannot
// happen by accident.
type mockEmbedder struct {
	mu         sync.Mutex
	vectors    map[string][]float32
	batchCalls int
	embedCalls int
	err        error
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{vectors: make(map[string][]float32)}
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedCalls++
	if m.err != nil {
		return nil, m.err
	}
	return m.vectorFor(text), nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = m.vectorFor(text)
	}
	return out, nil
}

func (m *mockEmbedder) vectorFor(text string) []float32 {
	if v, ok := m.vectors[text]; ok {
		return v
	}
	return []float32{float32(len(text)), 0}
}

// mockIndex implements ports.VectorIndex with exact L2 search.
type mockIndex struct {
	vectors [][]float32
}

func newMockIndex() ports.VectorIndex {
	return &mockIndex{}
}

func (m *mockIndex) Add(vectors [][]float32) error {
	m.vectors = append(m.vectors, vectors...)
	return nil
}

func (m *mockIndex) Search(query []float32, k int) ([]ports.SearchHit, error) {
	hits := make([]ports.SearchHit, len(m.vectors))
	for i, v := range m.vectors {
		var d float64
		for j := range v {
			diff := float64(v[j]) - float64(query[j])
			d += diff * diff
		}
		hits[i] = ports.SearchHit{Position: i, Distance: d}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

func (m *mockIndex) Len() int { return len(m.vectors) }

// mockArtifacts implements ports.ArtifactStore in memory.
type mockArtifacts struct {
	mu          sync.Mutex
	records     []entities.Record
	vectors     [][]float32
	fingerprint string
	saved       bool
	saveCalls   int
	failSave    bool
}

func (m *mockArtifacts) Load(ctx context.Context) ([]entities.Record, [][]float32, string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.saved {
		return nil, nil, "", false, nil
	}
	return m.records, m.vectors, m.fingerprint, true, nil
}

func (m *mockArtifacts) Save(ctx context.Context, records []entities.Record, vectors [][]float32, fingerprint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.failSave {
		return errors.New("disk full")
	}
	m.records = records
	m.vectors = vectors
	m.fingerprint = fingerprint
	m.saved = true
	return nil
}

// mockSource implements ports.DataSource with canned records.
type mockSource struct {
	mu      sync.Mutex
	records []entities.Record
	err     error
	fetches int
}

func (m *mockSource) Fetch(ctx context.Context) ([]entities.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	if m.err != nil {
		return nil, m.err
	}
	return m.records, nil
}

// mockBackend implements ports.GenerationService from a script of results:
// each call consumes the next entry; the last entry repeats once the script
// is exhausted.
type mockBackend struct {
	mu     sync.Mutex
	script []backendResult
	calls  int
}

type backendResult struct {
	text string
	err  error
}

func (m *mockBackend) Generate(ctx context.Context, prompt string, opts ports.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.calls
	m.calls++
	if i >= len(m.script) {
		i = len(m.script) - 1
	}
	return m.script[i].text, m.script[i].err
}

func (m *mockBackend) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func licenseRecords() []entities.Record {
	return []entities.Record{
		{"software": "MATLAB", "server": "27000@SRV00001", "location": "USA", "license": "80001REV_E_2020_0F"},
		{"software": "ANSYS", "server": "27000@SRV00002", "location": "Germany", "license": "80002CAT_E_2021_0F"},
		{"software": "MATLAB", "server": "27000@SRV00003", "location": "India", "license": "80003ACAD_E_2022_0F"},
	}
}
