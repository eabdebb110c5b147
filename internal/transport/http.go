// Package transport exposes the chat pipeline over HTTP.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/valter-silva-au/todo-chat/internal/core"
	"github.com/valter-silva-au/todo-chat/internal/storage"
	"github.com/valter-silva-au/todo-chat/pkg/models"
)

const defaultShutdownTimeout = 5 * time.Second

// TurnHandler resolves one chat turn. Satisfied by *core.Pipeline.
type TurnHandler interface {
	ResolveAndExecute(ctx context.Context, userID, conversationID, utterance string) (*core.TurnResult, error)
}

// Server serves the chat API.
type Server struct {
	addr            string
	turns           TurnHandler
	convs           storage.ConversationStore
	server          *http.Server
	shutdownTimeout time.Duration
}

func NewServer(addr string, turns TurnHandler, convs storage.ConversationStore) *Server {
	return &Server{
		addr:            addr,
		turns:           turns,
		convs:           convs,
		shutdownTimeout: defaultShutdownTimeout,
	}
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type chatResponse struct {
	ConversationID string                  `json:"conversation_id"`
	Reply          string                  `json:"reply"`
	Results        []models.ToolCallResult `json:"results"`
}

type conversationSummary struct {
	ConversationID string `json:"conversation_id"`
	Messages       int    `json:"messages"`
	Updated        string `json:"updated"`
}

type conversationListResponse struct {
	Conversations []conversationSummary `json:"conversations"`
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/", s.handleAPI)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"service": "todo-chat",
			"chat":    "POST /api/{user_id}/chat",
		})
	})

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[HTTP] Shutdown error: %v", err)
		}
	}()

	log.Printf("[HTTP] Listening on %s...", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// handleAPI routes /api/{user_id}/chat and /api/{user_id}/conversations.
func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	userID, action, ok := parseAPIPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch action {
	case "chat":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleChat(w, r, userID)
	case "conversations":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.handleConversations(w, r, userID)
	default:
		http.NotFound(w, r)
	}
}

func parseAPIPath(path string) (userID string, action string, ok bool) {
	tail := strings.Trim(strings.TrimPrefix(path, "/api/"), "/")
	if tail == "" {
		return "", "", false
	}
	parts := strings.Split(tail, "/")
	if len(parts) != 2 || parts[0] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request, userID string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	turn, err := s.turns.ResolveAndExecute(r.Context(), userID, req.ConversationID, req.Message)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(chatResponse{
		ConversationID: turn.ConversationID,
		Reply:          turn.Reply,
		Results:        turn.Results,
	})
}

func (s *Server) handleConversations(w http.ResponseWriter, _ *http.Request, userID string) {
	convs, err := s.convs.List(userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := conversationListResponse{Conversations: make([]conversationSummary, 0, len(convs))}
	for _, c := range convs {
		resp.Conversations = append(resp.Conversations, conversationSummary{
			ConversationID: c.ID,
			Messages:       len(c.Messages),
			Updated:        c.Updated.UTC().Format(time.RFC3339),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
