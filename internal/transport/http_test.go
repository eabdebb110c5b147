package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/todo-chat/internal/core"
	"github.com/valter-silva-au/todo-chat/pkg/models"
)

type fakeTurnHandler struct {
	lastUserID    string
	lastUtterance string
	result        *core.TurnResult
	err           error
}

func (f *fakeTurnHandler) ResolveAndExecute(_ context.Context, userID, conversationID, utterance string) (*core.TurnResult, error) {
	f.lastUserID = userID
	f.lastUtterance = utterance
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &core.TurnResult{ConversationID: conversationID, Reply: "ok"}, nil
}

type fakeConvStore struct {
	convs []models.Conversation
}

func (f *fakeConvStore) Append(string, string, models.Message) error { return nil }
func (f *fakeConvStore) Get(string) (*models.Conversation, error)   { return nil, nil }
func (f *fakeConvStore) List(string) ([]models.Conversation, error) { return f.convs, nil }

func newTestServer(turns TurnHandler, convs *fakeConvStore) *Server {
	if convs == nil {
		convs = &fakeConvStore{}
	}
	return NewServer(":0", turns, convs)
}

func serveRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/", s.handleAPI)
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandleChat(t *testing.T) {
	turns := &fakeTurnHandler{result: &core.TurnResult{
		ConversationID: "conv-1",
		Reply:          "Added task 1: Buy milk.",
		Results: []models.ToolCallResult{
			{Status: models.ResultSuccess},
		},
	}}
	s := newTestServer(turns, nil)

	rec := serveRequest(t, s, http.MethodPost, "/api/alice/chat", `{"message":"add buy milk"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ConversationID != "conv-1" {
		t.Errorf("expected conversation id conv-1, got %q", resp.ConversationID)
	}
	if resp.Reply != "Added task 1: Buy milk." {
		t.Errorf("unexpected reply %q", resp.Reply)
	}
	if turns.lastUserID != "alice" {
		t.Errorf("expected user id from path, got %q", turns.lastUserID)
	}
	if turns.lastUtterance != "add buy milk" {
		t.Errorf("expected utterance forwarded, got %q", turns.lastUtterance)
	}
}

func TestHandleChatRejectsEmptyMessage(t *testing.T) {
	s := newTestServer(&fakeTurnHandler{}, nil)
	rec := serveRequest(t, s, http.MethodPost, "/api/alice/chat", `{"message":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for blank message, got %d", rec.Code)
	}
}

func TestHandleChatRejectsInvalidJSON(t *testing.T) {
	s := newTestServer(&fakeTurnHandler{}, nil)
	rec := serveRequest(t, s, http.MethodPost, "/api/alice/chat", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid JSON, got %d", rec.Code)
	}
}

func TestHandleChatMethodNotAllowed(t *testing.T) {
	s := newTestServer(&fakeTurnHandler{}, nil)
	rec := serveRequest(t, s, http.MethodGet, "/api/alice/chat", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestHandleConversations(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	convs := &fakeConvStore{convs: []models.Conversation{
		{ID: "conv-1", UserID: "alice", Messages: []models.Message{{}, {}}, Updated: now},
	}}
	s := newTestServer(&fakeTurnHandler{}, convs)

	rec := serveRequest(t, s, http.MethodGet, "/api/alice/conversations", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp conversationListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Conversations) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(resp.Conversations))
	}
	if resp.Conversations[0].Messages != 2 {
		t.Errorf("expected message count 2, got %d", resp.Conversations[0].Messages)
	}
	if resp.Conversations[0].Updated != "2026-03-01T12:00:00Z" {
		t.Errorf("unexpected updated timestamp %q", resp.Conversations[0].Updated)
	}
}

func TestParseAPIPath(t *testing.T) {
	cases := []struct {
		path   string
		userID string
		action string
		ok     bool
	}{
		{"/api/alice/chat", "alice", "chat", true},
		{"/api/alice/conversations", "alice", "conversations", true},
		{"/api/alice", "", "", false},
		{"/api/", "", "", false},
		{"/api/alice/chat/extra", "", "", false},
	}
	for _, tc := range cases {
		userID, action, ok := parseAPIPath(tc.path)
		if userID != tc.userID || action != tc.action || ok != tc.ok {
			t.Errorf("parseAPIPath(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tc.path, userID, action, ok, tc.userID, tc.action, tc.ok)
		}
	}
}
