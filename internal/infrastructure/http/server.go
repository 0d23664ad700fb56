// Package http provides the HTTP server infrastructure.
// Clean Architecture: Framework/driver layer - outermost circle. Every route
// is a thin translation onto the chat usecase; no retrieval or generation
// logic lives here.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/0xcro3dile/licenserag-go/internal/domain/entities"
	"github.com/0xcro3dile/licenserag-go/internal/domain/usecases"
)

// Server is the HTTP server for the license RAG API.
type Server struct {
	chat *usecases.ChatUseCase
	addr string
}

// NewServer creates a new HTTP server.
func NewServer(chat *usecases.ChatUseCase, addr string) *Server {
	return &Server{
		chat: chat,
		addr: addr,
	}
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/query", s.handleQuery)
	mux.HandleFunc("/api/update_data", s.handleUpdateData)
	mux.HandleFunc("/api/refresh", s.handleRefresh)
	mux.HandleFunc("/api/clear_history", s.handleClearHistory)

	server := &http.Server{
		Addr:         s.addr,
		Handler:      corsMiddleware(loggingMiddleware(mux)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 300 * time.Second, // generation calls can be slow
	}

	log.Printf("[INFO] License RAG server starting on %s", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	return server.ListenAndServe()
}

// handleRoot reports a minimal liveness summary.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	status := s.chat.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "running",
		"indexed_records": status.RecordCount,
	})
}

// handleHealth reports readiness for monitoring.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.chat.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "healthy",
		"ready":           status.Ready,
		"indexed_records": status.RecordCount,
	})
}

// queryRequest is the /api/query request body.
type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

// handleQuery answers one question for a session.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "please send {\"query\": \"<your question>\"}"})
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "please send {\"query\": \"<your question>\"}"})
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	resp, err := s.chat.SubmitQuery(r.Context(), req.Query, req.SessionID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}

	// Retrieved records marshal to [] rather than null when empty.
	retrieved := resp.Retrieved
	if retrieved == nil {
		retrieved = []entities.Record{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"answer":              resp.Answer,
		"context_count":       len(retrieved),
		"top_context":         retrieved,
		"conversation_length": resp.SessionTurns,
		"session_id":          req.SessionID,
	})
}

// handleUpdateData ingests records pushed by a client.
func (s *Server) handleUpdateData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var records []entities.Record
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "expected a JSON array of records"})
		return
	}

	count, err := s.chat.IngestRecords(r.Context(), records)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":         fmt.Sprintf("Indexed %d records (total).", count),
		"indexed_records": count,
	})
}

// handleRefresh reloads the data source and rebuilds the index if changed.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	count, err := s.chat.TriggerRefresh(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":         fmt.Sprintf("Refresh completed in %.1fs", time.Since(start).Seconds()),
		"indexed_records": count,
	})
}

// clearHistoryRequest is the /api/clear_history request body.
type clearHistoryRequest struct {
	SessionID string `json:"session_id"`
}

// handleClearHistory drops a session's conversation history.
func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req clearHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "please send {\"session_id\": \"<session>\"}"})
		return
	}

	if s.chat.ClearSession(req.SessionID) {
		writeJSON(w, http.StatusOK, map[string]any{
			"cleared": true,
			"message": fmt.Sprintf("Conversation history cleared for session %s", req.SessionID),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cleared": false,
		"message": "No history found for this session",
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			return
		}
		next.ServeHTTP(w, r)
	})
}
