package usecases

import (
	"context"
	"errors"
	"log"

	"github.com/0xcro3dile/licenserag-go/internal/domain/entities"
)

// ChatConfig tunes retrieval and generation for submitted questions.
type ChatConfig struct {
	TopK        int
	MaxTokens   int
	Temperature float64
}

// ChatUseCase orchestrates one question end to end: classification, exact
// aggregation or semantic retrieval, prompt assembly, generation, and
// session bookkeeping. It is the surface the request-handling layer calls.
type ChatUseCase struct {
	index    *IndexManager
	gateway  *Gateway
	sessions *SessionStore
	cfg      ChatConfig
}

// NewChatUseCase creates the orchestrator with injected collaborators.
func NewChatUseCase(index *IndexManager, gateway *Gateway, sessions *SessionStore, cfg ChatConfig) *ChatUseCase {
	if cfg.TopK <= 0 {
		cfg.TopK = 4
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 100
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.7
	}
	return &ChatUseCase{
		index:    index,
		gateway:  gateway,
		sessions: sessions,
		cfg:      cfg,
	}
}

// SubmitQuery answers a question for a session. Aggregate questions are
// computed exactly over the full collection and formatted deterministically,
// with no generation call; semantic questions go through retrieval and the
// generation gateway. Either way the caller always gets an answer-shaped
// string - external failures degrade to empty retrieval or tagged gateway
// strings, never to an unhandled failure.
func (uc *ChatUseCase) SubmitQuery(ctx context.Context, question, sessionID string) (*entities.ChatResponse, error) {
	if question == "" {
		return nil, errors.New("empty question")
	}

	cls := Classify(question)
	log.Printf("[INFO] Query classified as %s (subject=%q)", cls.Kind, cls.Subject)

	var answer string
	var retrieved []entities.Record

	if cls.Kind == entities.QueryAggregate {
		result := ComputeAggregate(uc.index.Records(), cls.Subject)
		answer = FormatAggregate(result)
	} else {
		hits, err := uc.index.Query(ctx, question, uc.cfg.TopK)
		if err != nil {
			// Retrieval failure degrades to an uncontextualized answer.
			log.Printf("[WARN] Retrieval failed, answering without context: %v", err)
			hits = nil
		}
		retrieved = make([]entities.Record, len(hits))
		for i, hit := range hits {
			retrieved[i] = hit.Record
		}

		history := uc.sessions.History(sessionID)
		prompt := BuildPrompt(question, retrieved, history)
		answer = uc.gateway.Generate(ctx, prompt, uc.cfg.MaxTokens, uc.cfg.Temperature)
	}

	uc.sessions.AppendTurn(sessionID, "user", question)
	uc.sessions.AppendTurn(sessionID, "assistant", answer)

	return &entities.ChatResponse{
		Answer:       answer,
		Retrieved:    retrieved,
		SessionTurns: len(uc.sessions.History(sessionID)),
	}, nil
}

// IngestRecords appends records to the collection and reindexes.
func (uc *ChatUseCase) IngestRecords(ctx context.Context, records []entities.Record) (int, error) {
	return uc.index.AddRecords(ctx, records)
}

// TriggerRefresh reloads the data source and rebuilds the index if changed.
func (uc *ChatUseCase) TriggerRefresh(ctx context.Context) (int, error) {
	return uc.index.RefreshFromSource(ctx)
}

// ClearSession drops a session's history, reporting whether it existed.
func (uc *ChatUseCase) ClearSession(sessionID string) bool {
	return uc.sessions.Clear(sessionID)
}

// Status reports index readiness to the request layer.
func (uc *ChatUseCase) Status() entities.Status {
	return uc.index.Status()
}
