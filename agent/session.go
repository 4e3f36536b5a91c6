package agent

import (
	"sync"

	"github.com/google/uuid"
)

// Session is one conversation: its History and the channel it talks to.
// Turns on a session are serialized.
type Session struct {
	ID      string
	History *History
	Channel Channel

	mu sync.Mutex
}

// NewSession creates a session with an empty History
func NewSession(ch Channel) *Session {
	if ch == nil {
		ch = NopChannel{}
	}
	return &Session{
		ID:      uuid.NewString(),
		History: NewHistory(),
		Channel: ch,
	}
}
