package usecases

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/licenserag-go/internal/domain/entities"
)

type chatFixture struct {
	chat    *ChatUseCase
	index   *IndexManager
	backend *mockBackend
	source  *mockSource
}

func newChatFixture(t *testing.T, source *mockSource, backend *mockBackend) *chatFixture {
	t.Helper()
	index := newTestManager(t, source, newMockEmbedder(), &mockArtifacts{}, false)
	gateway := NewGateway(backend, GatewayConfig{Attempts: 2, Backoff: time.Millisecond})
	sessions := NewSessionStore(10, time.Hour)
	return &chatFixture{
		chat:    NewChatUseCase(index, gateway, sessions, ChatConfig{}),
		index:   index,
		backend: backend,
		source:  source,
	}
}

func TestSubmitQueryRejectsEmptyQuestion(t *testing.T) {
	f := newChatFixture(t, &mockSource{}, &mockBackend{})

	_, err := f.chat.SubmitQuery(context.Background(), "", "s1")
	assert.Error(t, err)
}

func TestSubmitQueryAggregateBypassesGeneration(t *testing.T) {
	f := newChatFixture(t, &mockSource{}, &mockBackend{script: []backendResult{{text: "should not be called"}}})
	_, err := f.index.Build(context.Background(), licenseRecords(), false)
	require.NoError(t, err)

	resp, err := f.chat.SubmitQuery(context.Background(), "how many software products are there?", "s1")

	require.NoError(t, err)
	assert.Equal(t, "There are 2 unique software products in the license data:\n\n1. ANSYS\n2. MATLAB", resp.Answer)
	assert.Empty(t, resp.Retrieved, "aggregates skip retrieval")
	assert.Equal(t, 2, resp.SessionTurns)
	assert.Equal(t, 0, f.backend.callCount(), "aggregates must not reach the generation backend")
}

func TestSubmitQueryAggregateIsDeterministic(t *testing.T) {
	f := newChatFixture(t, &mockSource{}, &mockBackend{})
	_, err := f.index.Build(context.Background(), licenseRecords(), false)
	require.NoError(t, err)

	first, err := f.chat.SubmitQuery(context.Background(), "list all locations", "s1")
	require.NoError(t, err)
	second, err := f.chat.SubmitQuery(context.Background(), "list all locations", "s2")
	require.NoError(t, err)

	assert.Equal(t, first.Answer, second.Answer)
}

func TestSubmitQuerySemanticPath(t *testing.T) {
	backend := &mockBackend{script: []backendResult{{text: "MATLAB runs on SRV00001 in the USA."}}}
	f := newChatFixture(t, &mockSource{}, backend)
	_, err := f.index.Build(context.Background(), licenseRecords(), false)
	require.NoError(t, err)

	resp, err := f.chat.SubmitQuery(context.Background(), "which server hosts MATLAB?", "s1")

	require.NoError(t, err)
	assert.Equal(t, "MATLAB runs on SRV00001 in the USA.", resp.Answer)
	assert.Len(t, resp.Retrieved, 3, "top-k clamps to the collection size")
	assert.Equal(t, 1, f.backend.callCount())
	assert.Equal(t, 2, resp.SessionTurns)
}

func TestSubmitQueryCarriesSessionHistoryIntoPrompt(t *testing.T) {
	backend := &mockBackend{script: []backendResult{{text: "first answer"}, {text: "second answer"}}}
	f := newChatFixture(t, &mockSource{}, backend)
	_, err := f.index.Build(context.Background(), licenseRecords(), false)
	require.NoError(t, err)

	_, err = f.chat.SubmitQuery(context.Background(), "which server hosts MATLAB?", "s1")
	require.NoError(t, err)
	resp, err := f.chat.SubmitQuery(context.Background(), "and where is that server located?", "s1")
	require.NoError(t, err)

	assert.Equal(t, "second answer", resp.Answer)
	assert.Equal(t, 4, resp.SessionTurns)
}

func TestSubmitQueryWithEmptyCollection(t *testing.T) {
	// End to end with nothing indexed: status reports not ready, a semantic
	// question yields no retrieved records, and the answer is whatever the
	// generation backend produced. Nothing fails.
	backend := &mockBackend{script: []backendResult{{text: "I have no license data loaded yet."}}}
	f := newChatFixture(t, &mockSource{}, backend)

	status := f.chat.Status()
	assert.False(t, status.Ready)
	assert.Equal(t, 0, status.RecordCount)

	resp, err := f.chat.SubmitQuery(context.Background(), "which server hosts MATLAB?", "s1")
	require.NoError(t, err)
	assert.Empty(t, resp.Retrieved)
	assert.Equal(t, "I have no license data loaded yet.", resp.Answer)
}

func TestSubmitQueryEmptyCollectionAggregate(t *testing.T) {
	f := newChatFixture(t, &mockSource{}, &mockBackend{})

	resp, err := f.chat.SubmitQuery(context.Background(), "how many licenses are there?", "s1")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.Answer, "No data loaded yet"))
	assert.Equal(t, 0, f.backend.callCount())
}

func TestSubmitQueryBackendFailureReturnsTaggedAnswer(t *testing.T) {
	backend := &mockBackend{script: []backendResult{{err: errors.New("connection refused")}}}
	f := newChatFixture(t, &mockSource{}, backend)
	_, err := f.index.Build(context.Background(), licenseRecords(), false)
	require.NoError(t, err)

	resp, err := f.chat.SubmitQuery(context.Background(), "which server hosts MATLAB?", "s1")

	require.NoError(t, err, "backend failures degrade to tagged answers, never errors")
	assert.True(t, strings.HasPrefix(resp.Answer, "[LLM Connection Error]"), "got %q", resp.Answer)
}

func TestIngestRecordsGrowsCollection(t *testing.T) {
	f := newChatFixture(t, &mockSource{}, &mockBackend{})
	_, err := f.index.Build(context.Background(), licenseRecords(), false)
	require.NoError(t, err)

	count, err := f.chat.IngestRecords(context.Background(), []entities.Record{
		{"software": "CATIA", "server": "27000@SRV00004", "location": "France", "license": "80004CAT_E_2023_0F"},
	})

	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.Equal(t, 4, f.chat.Status().RecordCount)
}

func TestTriggerRefreshPicksUpSourceChanges(t *testing.T) {
	source := &mockSource{records: licenseRecords()}
	f := newChatFixture(t, source, &mockBackend{})

	count, err := f.chat.TriggerRefresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.True(t, f.chat.Status().Ready)
}

func TestClearSession(t *testing.T) {
	f := newChatFixture(t, &mockSource{}, &mockBackend{})
	_, err := f.index.Build(context.Background(), licenseRecords(), false)
	require.NoError(t, err)

	_, err = f.chat.SubmitQuery(context.Background(), "list all locations", "s1")
	require.NoError(t, err)

	assert.True(t, f.chat.ClearSession("s1"))
	assert.False(t, f.chat.ClearSession("s1"), "already cleared")
	assert.False(t, f.chat.ClearSession("never-existed"))
}
