package session

import (
	"sync"

	"github.com/kuplace/kupletalk/pkg/api"
)

// MessageStore holds the ordered message history of the currently active
// session. It is append-only between history fetches; a fetch replaces the
// contents wholesale. The store never merges histories across sessions.
type MessageStore struct {
	mu   sync.RWMutex
	msgs []api.Message
}

func NewMessageStore() *MessageStore {
	return &MessageStore{}
}

// AppendUser pushes an optimistically rendered user message.
func (s *MessageStore) AppendUser(content string) api.Message {
	m := api.Message{Sender: api.SenderUser, Content: content}
	s.append(m)
	return m
}

// AppendBot pushes a finalized bot reply.
func (s *MessageStore) AppendBot(content string) api.Message {
	m := api.Message{Sender: api.SenderBot, Content: content}
	s.append(m)
	return m
}

func (s *MessageStore) append(m api.Message) {
	s.mu.Lock()
	s.msgs = append(s.msgs, m)
	s.mu.Unlock()
}

// Replace swaps the whole history for the given one. Last response wins.
func (s *MessageStore) Replace(msgs []api.Message) {
	s.mu.Lock()
	s.msgs = append(s.msgs[:0:0], msgs...)
	s.mu.Unlock()
}

func (s *MessageStore) Clear() {
	s.mu.Lock()
	s.msgs = nil
	s.mu.Unlock()
}

// Messages returns a copy of the current history.
func (s *MessageStore) Messages() []api.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]api.Message(nil), s.msgs...)
}

func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.msgs)
}
