package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/licenserag-go/internal/domain/entities"
	"github.com/0xcro3dile/licenserag-go/internal/domain/ports"
)

func newTestManager(t *testing.T, source *mockSource, embedder *mockEmbedder, artifacts *mockArtifacts, lazy bool) *IndexManager {
	t.Helper()
	return NewIndexManager(context.Background(), source, embedder, newMockIndex, artifacts, IndexManagerConfig{
		Lazy:            lazy,
		RefreshInterval: time.Hour,
	})
}

func TestBuildIndexesRecords(t *testing.T) {
	m := newTestManager(t, &mockSource{}, newMockEmbedder(), &mockArtifacts{}, false)

	count, err := m.Build(context.Background(), licenseRecords(), false)

	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, entities.IndexReady, m.State())
	assert.Equal(t, entities.Status{Ready: true, RecordCount: 3}, m.Status())
}

func TestBuildEmptyCollectionFails(t *testing.T) {
	m := newTestManager(t, &mockSource{}, newMockEmbedder(), &mockArtifacts{}, false)

	_, err := m.Build(context.Background(), nil, false)

	assert.ErrorIs(t, err, ports.ErrNoRecords)
	assert.Equal(t, entities.IndexUninitialized, m.State())
}

func TestBuildSkipsWhenFingerprintUnchanged(t *testing.T) {
	embedder := newMockEmbedder()
	m := newTestManager(t, &mockSource{}, embedder, &mockArtifacts{}, false)
	records := licenseRecords()

	first, err := m.Build(context.Background(), records, false)
	require.NoError(t, err)
	second, err := m.Build(context.Background(), records, false)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, embedder.batchCalls, "second build must not re-embed")
}

func TestBuildForceRebuildsDespiteFingerprint(t *testing.T) {
	embedder := newMockEmbedder()
	m := newTestManager(t, &mockSource{}, embedder, &mockArtifacts{}, false)
	records := licenseRecords()

	_, err := m.Build(context.Background(), records, false)
	require.NoError(t, err)
	_, err = m.Build(context.Background(), records, true)
	require.NoError(t, err)

	assert.Equal(t, 2, embedder.batchCalls)
}

func TestBuildPersistFailureKeepsPreviousCollection(t *testing.T) {
	artifacts := &mockArtifacts{}
	m := newTestManager(t, &mockSource{}, newMockEmbedder(), artifacts, false)

	_, err := m.Build(context.Background(), licenseRecords(), false)
	require.NoError(t, err)

	artifacts.failSave = true
	more := append(licenseRecords(), entities.Record{"software": "CATIA"})
	_, err = m.Build(context.Background(), more, false)

	require.Error(t, err)
	assert.Equal(t, entities.IndexReady, m.State(), "failed build must restore the previous state")
	assert.Len(t, m.Records(), 3, "previous collection stays live")
}

func TestBuildEmbedFailureKeepsPreviousCollection(t *testing.T) {
	embedder := newMockEmbedder()
	m := newTestManager(t, &mockSource{}, embedder, &mockArtifacts{}, false)

	_, err := m.Build(context.Background(), licenseRecords(), false)
	require.NoError(t, err)

	embedder.err = errors.New("embedding backend down")
	more := append(licenseRecords(), entities.Record{"software": "CATIA"})
	_, err = m.Build(context.Background(), more, false)

	require.Error(t, err)
	assert.Equal(t, entities.IndexReady, m.State())
	assert.Len(t, m.Records(), 3)
}

func TestRefreshFromSourceSoftFailures(t *testing.T) {
	src := &mockSource{err: errors.New("network unreachable")}
	m := newTestManager(t, src, newMockEmbedder(), &mockArtifacts{}, false)

	count, err := m.RefreshFromSource(context.Background())
	assert.NoError(t, err, "a failing source is logged and skipped")
	assert.Equal(t, 0, count)

	src.err = nil
	src.records = nil
	count, err = m.RefreshFromSource(context.Background())
	assert.NoError(t, err, "an empty source never replaces the collection")
	assert.Equal(t, 0, count)
}

func TestAddRecordsRebuildsOverUnion(t *testing.T) {
	m := newTestManager(t, &mockSource{}, newMockEmbedder(), &mockArtifacts{}, false)

	_, err := m.Build(context.Background(), licenseRecords(), false)
	require.NoError(t, err)

	count, err := m.AddRecords(context.Background(), []entities.Record{
		{"software": "CATIA", "server": "27000@SRV00004", "location": "France", "license": "80004CAT_E_2023_0F"},
	})

	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.Len(t, m.Records(), 4)
}

func TestQueryClampsKAndOrdersByDistance(t *testing.T) {
	embedder := newMockEmbedder()
	records := licenseRecords()
	// Pin embeddings so distances to the query are known.
	embedder.vectors[records[0].Text()] = []float32{1, 0}
	embedder.vectors[records[1].Text()] = []float32{5, 0}
	embedder.vectors[records[2].Text()] = []float32{2, 0}
	embedder.vectors["find matlab"] = []float32{0, 0}

	m := newTestManager(t, &mockSource{}, embedder, &mockArtifacts{}, false)
	_, err := m.Build(context.Background(), records, false)
	require.NoError(t, err)

	results, err := m.Query(context.Background(), "find matlab", 10)
	require.NoError(t, err)

	assert.Len(t, results, 3, "k is clamped to the collection size")
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i].Distance, results[i-1].Distance, "distances are non-decreasing")
	}
	assert.Equal(t, "MATLAB", results[0].Record.Field("software"))
}

func TestQueryBeforeBuildReturnsEmpty(t *testing.T) {
	m := newTestManager(t, &mockSource{}, newMockEmbedder(), &mockArtifacts{}, false)

	results, err := m.Query(context.Background(), "anything", 4)
	assert.NoError(t, err)
	assert.Empty(t, results)
}

func TestLazyBuildOnFirstQuery(t *testing.T) {
	src := &mockSource{records: licenseRecords()}
	m := newTestManager(t, src, newMockEmbedder(), &mockArtifacts{}, true)

	assert.Equal(t, entities.IndexLazyPending, m.State())
	assert.False(t, m.Status().Ready)

	results, err := m.Query(context.Background(), "find matlab", 2)
	require.NoError(t, err)

	assert.Len(t, results, 2)
	assert.Equal(t, entities.IndexReady, m.State())
	assert.Equal(t, 1, src.fetches)
}

func TestLazyBuildWithEmptySourceStaysPending(t *testing.T) {
	m := newTestManager(t, &mockSource{}, newMockEmbedder(), &mockArtifacts{}, true)

	results, err := m.Query(context.Background(), "anything", 4)
	assert.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, entities.IndexLazyPending, m.State())
}

func TestArtifactsRestoreReadyState(t *testing.T) {
	embedder := newMockEmbedder()
	artifacts := &mockArtifacts{}
	first := newTestManager(t, &mockSource{}, embedder, artifacts, false)
	_, err := first.Build(context.Background(), licenseRecords(), false)
	require.NoError(t, err)

	// A fresh manager over the same artifacts is Ready with no source fetch.
	src := &mockSource{}
	second := newTestManager(t, src, embedder, artifacts, true)

	assert.Equal(t, entities.IndexReady, second.State())
	assert.Equal(t, 3, second.Status().RecordCount)
	assert.Equal(t, 0, src.fetches)

	// And the restored fingerprint still gates rebuilds.
	embedCallsBefore := embedder.batchCalls
	_, err = second.Build(context.Background(), licenseRecords(), false)
	require.NoError(t, err)
	assert.Equal(t, embedCallsBefore, embedder.batchCalls)
}

func TestCorruptArtifactsAreIgnored(t *testing.T) {
	artifacts := &mockArtifacts{
		saved:       true,
		records:     licenseRecords(),
		vectors:     [][]float32{{1, 0}}, // length mismatch
		fingerprint: "stale",
	}

	m := newTestManager(t, &mockSource{}, newMockEmbedder(), artifacts, false)
	assert.Equal(t, entities.IndexUninitialized, m.State())
}

func TestAutoRefreshSurvivesFailures(t *testing.T) {
	src := &mockSource{err: errors.New("flaky source")}
	m := NewIndexManager(context.Background(), src, newMockEmbedder(), newMockIndex, &mockArtifacts{}, IndexManagerConfig{
		RefreshInterval: 5 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.AutoRefresh(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		src.mu.Lock()
		defer src.mu.Unlock()
		return src.fetches >= 3
	}, time.Second, time.Millisecond, "the loop keeps running through failures")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("auto-refresh loop did not stop on cancellation")
	}
}
