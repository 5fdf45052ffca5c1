package rag

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/de7fp/restaurant-rag/models"
	"github.com/de7fp/restaurant-rag/store"
	_ "github.com/mattn/go-sqlite3"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/memory/sqlite3"
)

// SqliteHistory appends chat turns to a langchaingo sqlite chat memory. Each
// chat becomes a user message followed by an AI message.
type SqliteHistory struct {
	history *sqlite3.SqliteChatMessageHistory
}

func OpenSqliteHistory(path, session string) (*SqliteHistory, *sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open sqlite history: %w", err)
	}

	return NewSqliteHistory(db, session), db, nil
}

func NewSqliteHistory(db *sql.DB, session string) *SqliteHistory {
	return &SqliteHistory{
		history: sqlite3.NewSqliteChatMessageHistory(
			sqlite3.WithSession(session),
			sqlite3.WithDB(db),
		),
	}
}

func (s *SqliteHistory) RecordChat(ctx context.Context, query, answer string, _ bool) error {
	if err := s.history.AddUserMessage(ctx, query); err != nil {
		return fmt.Errorf("failed to record chat query: %w", err)
	}
	if err := s.history.AddAIMessage(ctx, answer); err != nil {
		return fmt.Errorf("failed to record chat answer: %w", err)
	}
	return nil
}

func (s *SqliteHistory) ChatQueries(ctx context.Context, limit int) ([]string, error) {
	messages, err := s.history.Messages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read chat history: %w", err)
	}

	var queries []string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].GetType() != llms.ChatMessageTypeHuman {
			continue
		}
		queries = append(queries, messages[i].GetContent())
		if limit > 0 && len(queries) == limit {
			break
		}
	}
	return queries, nil
}

// ListChatHistory pairs each user message with the AI reply that follows it,
// newest first. The chat memory keeps neither timestamps nor the fallback
// flag, so those fields stay zero.
func (s *SqliteHistory) ListChatHistory(ctx context.Context, page store.Page) ([]models.ChatHistory, error) {
	turns, err := s.turns(ctx)
	if err != nil {
		return nil, err
	}

	offset := page.Offset()
	if offset >= len(turns) {
		return []models.ChatHistory{}, nil
	}
	return turns[offset:min(offset+page.Limit(), len(turns))], nil
}

func (s *SqliteHistory) turns(ctx context.Context) ([]models.ChatHistory, error) {
	messages, err := s.history.Messages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read chat history: %w", err)
	}

	var turns []models.ChatHistory
	for _, m := range messages {
		switch m.GetType() {
		case llms.ChatMessageTypeHuman:
			turns = append(turns, models.ChatHistory{ID: uint64(len(turns) + 1), Query: m.GetContent()})
		case llms.ChatMessageTypeAI:
			if n := len(turns); n > 0 && turns[n-1].Answer == "" {
				turns[n-1].Answer = m.GetContent()
			}
		}
	}
	slices.Reverse(turns)
	return turns, nil
}
