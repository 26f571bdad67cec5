// Package history keeps the bounded per-chat conversation window fed to the
// generation collaborator. It lives for the process lifetime only.
package history

import (
	"sync"
)

// Entry is one line of a chat window.
type Entry struct {
	Speaker string
	Content string
}

// Store holds a bounded ring of entries per chat. All methods are safe for
// concurrent use; messages within one chat must be appended in arrival order
// by the caller.
type Store struct {
	mu    sync.RWMutex
	limit int
	chats map[int64][]Entry
}

// NewStore creates a store keeping at most limit entries per chat.
func NewStore(limit int) *Store {
	if limit < 1 {
		limit = 1
	}
	return &Store{
		limit: limit,
		chats: make(map[int64][]Entry),
	}
}

// Append records an entry for chatID, evicting the oldest when full.
func (s *Store) Append(chatID int64, speaker, content string) {
	if content == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := append(s.chats[chatID], Entry{Speaker: speaker, Content: content})
	if len(entries) > s.limit {
		entries = entries[len(entries)-s.limit:]
	}
	s.chats[chatID] = entries
}

// Lines returns the chat window as "speaker: content" strings, oldest first.
func (s *Store) Lines(chatID int64) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.chats[chatID]
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.Speaker+": "+e.Content)
	}
	return lines
}
