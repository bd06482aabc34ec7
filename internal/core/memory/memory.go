package memory

import (
	"context"
	"fmt"

	"github.com/markdave123-py/Docsage/internal/models"
)

// HistoryWindow caps how many recent messages are replayed into a prompt.
// Three question/answer pairs keep the model anchored without crowding out
// retrieved context.
const HistoryWindow = 6

// ConversationStore is the slice of the database the memory layer uses.
type ConversationStore interface {
	AppendConversationTurns(ctx context.Context, threadID, documentID string, turns []models.ConversationTurn) error
	GetConversation(ctx context.Context, threadID string) (*models.Conversation, error)
}

// ConversationMemory checkpoints chat threads so follow-up questions can
// reference earlier exchanges. Threads are keyed by caller-supplied IDs;
// an unknown thread simply has no history yet.
type ConversationMemory struct {
	store ConversationStore
}

func NewConversationMemory(store ConversationStore) *ConversationMemory {
	return &ConversationMemory{store: store}
}

// Append records one user/assistant exchange on the thread.
func (m *ConversationMemory) Append(ctx context.Context, threadID, documentID, question, answer string) error {
	turns := []models.ConversationTurn{
		{Role: "user", Content: question},
		{Role: "assistant", Content: answer},
	}
	if err := m.store.AppendConversationTurns(ctx, threadID, documentID, turns); err != nil {
		return fmt.Errorf("append conversation turns: %w", err)
	}
	return nil
}

// History returns the full turn list for the thread, oldest first. An
// unknown thread yields an empty history, not an error.
func (m *ConversationMemory) History(ctx context.Context, threadID string) ([]models.ConversationTurn, error) {
	conv, err := m.store.GetConversation(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if conv == nil {
		return nil, nil
	}
	return conv.Turns, nil
}

// RecentHistory returns at most HistoryWindow of the latest turns, oldest
// first, for prompt construction.
func (m *ConversationMemory) RecentHistory(ctx context.Context, threadID string) ([]models.ConversationTurn, error) {
	turns, err := m.History(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return LastN(turns, HistoryWindow), nil
}

// LastN returns the trailing n turns without copying.
func LastN(turns []models.ConversationTurn, n int) []models.ConversationTurn {
	if n <= 0 || len(turns) == 0 {
		return nil
	}
	if len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}
