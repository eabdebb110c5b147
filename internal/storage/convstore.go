package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/valter-silva-au/todo-chat/pkg/models"
)

// ErrConversationNotFound is returned when a conversation id has no stored
// messages.
var ErrConversationNotFound = errors.New("conversation not found")

// ConversationStore is the conversation state manager. Append is the only
// mutation; conversations are created implicitly on the first message for a
// new id and are never edited or truncated.
type ConversationStore interface {
	Append(conversationID, userID string, msg models.Message) error
	Get(conversationID string) (*models.Conversation, error)
	List(userID string) ([]models.Conversation, error)
}

// messageRecord is the JSONL line format. Each line carries the owning user
// so a conversation file is self-describing.
type messageRecord struct {
	UserID    string                  `json:"user_id"`
	Role      models.Role             `json:"role"`
	Content   string                  `json:"content"`
	ToolCalls []models.ToolCallRecord `json:"tool_calls,omitempty"`
	Timestamp time.Time               `json:"timestamp"`
}

// jsonlConversationStore implements ConversationStore using one append-only
// JSONL file per conversation under conversations/.
type jsonlConversationStore struct {
	basePath string
	mu       sync.Mutex
}

// NewConversationStore creates a ConversationStore rooted at basePath.
func NewConversationStore(basePath string) ConversationStore {
	return &jsonlConversationStore{basePath: basePath}
}

func (s *jsonlConversationStore) dir() string {
	return filepath.Join(s.basePath, "conversations")
}

func (s *jsonlConversationStore) filePath(conversationID string) string {
	return filepath.Join(s.dir(), conversationID+".jsonl")
}

func (s *jsonlConversationStore) Append(conversationID, userID string, msg models.Message) error {
	if conversationID == "" {
		return fmt.Errorf("appending message: conversation id must not be empty")
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir(), 0o750); err != nil {
		return fmt.Errorf("appending message: creating dir: %w", err)
	}

	rec := messageRecord{
		UserID:    userID,
		Role:      msg.Role,
		Content:   msg.Content,
		ToolCalls: msg.ToolCalls,
		Timestamp: msg.Timestamp,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("appending message: marshalling: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(s.filePath(conversationID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("appending message: opening %s: %w", conversationID, err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("appending message: writing: %w", err)
	}
	return nil
}

func (s *jsonlConversationStore) Get(conversationID string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(conversationID)
}

// read loads one conversation file. Callers must hold s.mu.
func (s *jsonlConversationStore) read(conversationID string) (*models.Conversation, error) {
	f, err := os.Open(s.filePath(conversationID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("conversation %s: %w", conversationID, ErrConversationNotFound)
		}
		return nil, fmt.Errorf("reading conversation %s: %w", conversationID, err)
	}
	defer f.Close()

	conv := &models.Conversation{ID: conversationID}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec messageRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("reading conversation %s: decoding line: %w", conversationID, err)
		}
		if conv.UserID == "" {
			conv.UserID = rec.UserID
			conv.Created = rec.Timestamp
		}
		conv.Updated = rec.Timestamp
		conv.Messages = append(conv.Messages, models.Message{
			Role:      rec.Role,
			Content:   rec.Content,
			ToolCalls: rec.ToolCalls,
			Timestamp: rec.Timestamp,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading conversation %s: %w", conversationID, err)
	}
	if len(conv.Messages) == 0 {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, ErrConversationNotFound)
	}
	return conv, nil
}

func (s *jsonlConversationStore) List(userID string) ([]models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing conversations: %w", err)
	}

	var result []models.Conversation
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		conv, err := s.read(strings.TrimSuffix(name, ".jsonl"))
		if err != nil {
			// Skip unreadable files rather than failing the whole listing.
			continue
		}
		if conv.UserID != userID {
			continue
		}
		result = append(result, *conv)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Updated.After(result[j].Updated)
	})
	return result, nil
}
