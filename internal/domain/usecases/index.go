package usecases

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/0xcro3dile/licenserag-go/internal/domain/entities"
	"github.com/0xcro3dile/licenserag-go/internal/domain/ports"
)

// IndexManagerConfig tunes the index lifecycle.
type IndexManagerConfig struct {
	// Lazy skips indexing at startup; the first query triggers the build.
	Lazy bool
	// RefreshInterval is the period of the background auto-refresh loop.
	RefreshInterval time.Duration
}

// IndexManager owns the live indexed collection: an ordered record sequence
// paired positionally with its embedding vectors inside the vector index.
// It keeps that collection synchronized with the data source through
// fingerprint-gated rebuilds, persists every successful build, and serves
// nearest-neighbor queries.
//
// The internal mutex guards the live collection and is held for the duration
// of a build, so queries block during a full rebuild. That is a documented
// latency trade-off: the swap point is the sole commit boundary, and a
// failed build leaves the previous collection fully intact.
type IndexManager struct {
	source    ports.DataSource
	embedder  ports.EmbeddingService
	newIndex  ports.NewVectorIndex
	artifacts ports.ArtifactStore
	cfg       IndexManagerConfig

	mu              sync.Mutex
	state           entities.IndexState
	index           ports.VectorIndex
	records         []entities.Record
	lastFingerprint string
}

// NewIndexManager creates the manager and loads any persisted artifacts.
// With artifacts present the index is Ready immediately; otherwise the state
// is LazyPending (lazy mode) or Uninitialized (eager mode - the caller runs
// the first RefreshFromSource).
func NewIndexManager(
	ctx context.Context,
	source ports.DataSource,
	embedder ports.EmbeddingService,
	newIndex ports.NewVectorIndex,
	artifacts ports.ArtifactStore,
	cfg IndexManagerConfig,
) *IndexManager {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 30 * time.Minute
	}

	m := &IndexManager{
		source:    source,
		embedder:  embedder,
		newIndex:  newIndex,
		artifacts: artifacts,
		cfg:       cfg,
		state:     entities.IndexUninitialized,
	}

	records, vectors, fingerprint, ok, err := artifacts.Load(ctx)
	switch {
	case err != nil:
		log.Printf("[ERROR] Failed to load index artifacts: %v", err)
	case ok && len(vectors) != len(records):
		log.Printf("[ERROR] Ignoring index artifacts: %d vectors for %d records", len(vectors), len(records))
	case ok:
		idx := newIndex()
		if err := idx.Add(vectors); err != nil {
			log.Printf("[ERROR] Failed to rebuild index from artifacts: %v", err)
			break
		}
		m.index = idx
		m.records = records
		m.lastFingerprint = fingerprint
		m.state = entities.IndexReady
		log.Printf("[INFO] Loaded existing index (%d records) from artifacts", len(records))
	}

	if m.state != entities.IndexReady && cfg.Lazy {
		m.state = entities.IndexLazyPending
		log.Printf("[INFO] Lazy load enabled - indexing deferred to the first query")
	}

	return m
}

// EnsureReady triggers the deferred build when the index is LazyPending.
// Idempotent and safe to call on every query: once built, the fingerprint
// gate makes repeat calls cheap.
func (m *IndexManager) EnsureReady(ctx context.Context) error {
	m.mu.Lock()
	pending := m.state == entities.IndexLazyPending
	m.mu.Unlock()
	if !pending {
		return nil
	}

	log.Printf("[INFO] First query received - building index now (lazy load)")
	_, err := m.RefreshFromSource(ctx)
	return err
}

// RefreshFromSource pulls current records from the data source and rebuilds
// the index if they changed. A failing or empty source is logged and skipped
// - zero records never replace a live collection.
func (m *IndexManager) RefreshFromSource(ctx context.Context) (int, error) {
	records, err := m.source.Fetch(ctx)
	if err != nil {
		log.Printf("[WARN] Data source fetch failed: %v", err)
		return 0, nil
	}
	if len(records) == 0 {
		log.Printf("[WARN] No records loaded from source for refresh")
		return 0, nil
	}
	return m.Build(ctx, records, false)
}

// AddRecords appends to the live records and rebuilds over the union. A full
// rebuild rather than an incremental insert: it trades efficiency for the
// guarantee that no partial-index state can exist.
func (m *IndexManager) AddRecords(ctx context.Context, newRecords []entities.Record) (int, error) {
	m.mu.Lock()
	union := make([]entities.Record, 0, len(m.records)+len(newRecords))
	union = append(union, m.records...)
	union = append(union, newRecords...)
	m.mu.Unlock()

	log.Printf("[INFO] Adding %d new records (rebuilding over %d total)", len(newRecords), len(union))
	return m.Build(ctx, union, false)
}

// Build indexes the given records, returning the indexed count. When the
// collection's fingerprint matches the last-persisted one and force is
// false, the rebuild is skipped without recomputation. Otherwise the records
// are embedded, a fresh vector structure is built, artifacts are persisted,
// and only then is the live collection swapped. Any failure before the swap
// leaves the previous collection servable and unchanged.
func (m *IndexManager) Build(ctx context.Context, records []entities.Record, force bool) (int, error) {
	if len(records) == 0 {
		return 0, ports.ErrNoRecords
	}

	fingerprint := entities.Fingerprint(records)
	m.mu.Lock()
	if !force && fingerprint == m.lastFingerprint {
		m.mu.Unlock()
		log.Printf("[INFO] Data unchanged (fingerprint match), skipping rebuild")
		return len(records), nil
	}

	prev := m.state
	if prev == entities.IndexReady {
		m.state = entities.IndexRefreshing
	} else {
		m.state = entities.IndexBuilding
	}
	defer m.mu.Unlock()

	log.Printf("[INFO] Building index for %d records...", len(records))
	start := time.Now()

	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Text()
	}

	vectors, err := m.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		m.state = prev
		return 0, fmt.Errorf("embedding records: %w", err)
	}
	if len(vectors) != len(records) {
		m.state = prev
		return 0, fmt.Errorf("embedder returned %d vectors for %d records", len(vectors), len(records))
	}

	index := m.newIndex()
	if err := index.Add(vectors); err != nil {
		m.state = prev
		return 0, fmt.Errorf("populating vector index: %w", err)
	}

	if err := m.artifacts.Save(ctx, records, vectors, fingerprint); err != nil {
		m.state = prev
		return 0, fmt.Errorf("persisting index artifacts: %w", err)
	}

	// Commit point: everything after this line refers to the new collection.
	m.index = index
	m.records = records
	m.lastFingerprint = fingerprint
	m.state = entities.IndexReady

	log.Printf("[INFO] Built index for %d records in %.2fs", len(records), time.Since(start).Seconds())
	return len(records), nil
}

// Query returns up to k records ordered by increasing distance to the query
// embedding. k is clamped to the live collection size. A not-yet-ready index
// whose lazy build produced nothing yields an empty result, not an error.
func (m *IndexManager) Query(ctx context.Context, text string, k int) ([]entities.SearchResult, error) {
	if err := m.EnsureReady(ctx); err != nil {
		log.Printf("[WARN] Lazy index build failed: %v", err)
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.index == nil || len(m.records) == 0 {
		log.Printf("[WARN] Index is empty, cannot query")
		return nil, nil
	}

	embedding, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	if k > len(m.records) {
		k = len(m.records)
	}
	if k <= 0 {
		return nil, nil
	}

	hits, err := m.index.Search(embedding, k)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	results := make([]entities.SearchResult, 0, len(hits))
	for _, hit := range hits {
		if hit.Position < 0 || hit.Position >= len(m.records) {
			continue
		}
		results = append(results, entities.SearchResult{
			Record:   m.records[hit.Position],
			Distance: hit.Distance,
		})
	}
	return results, nil
}

// Records returns a copy of the live record collection for exact aggregate
// computation. Callers must not mutate the records themselves.
func (m *IndexManager) Records() []entities.Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]entities.Record, len(m.records))
	copy(out, m.records)
	return out
}

// Status reports readiness and the live record count.
func (m *IndexManager) Status() entities.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return entities.Status{
		Ready:       m.state == entities.IndexReady,
		RecordCount: len(m.records),
	}
}

// State returns the current lifecycle state.
func (m *IndexManager) State() entities.IndexState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// AutoRefresh runs the periodic refresh loop until ctx is cancelled. A
// failed refresh is logged and the loop continues; nothing here can
// terminate the loop except cancellation.
func (m *IndexManager) AutoRefresh(ctx context.Context) {
	log.Printf("[INFO] Auto-refresh loop started (interval: %s)", m.cfg.RefreshInterval)
	ticker := time.NewTicker(m.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[INFO] Auto-refresh loop stopped")
			return
		case <-ticker.C:
			count, err := m.RefreshFromSource(ctx)
			if err != nil {
				log.Printf("[ERROR] Auto-refresh error: %v", err)
				continue
			}
			if count > 0 {
				log.Printf("[INFO] Auto-refreshed, %d records indexed", count)
			}
		}
	}
}
