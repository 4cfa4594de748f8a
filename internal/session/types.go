package session

import (
	"sync"
	"time"

	"github.com/bowerhall/goldfish/internal/llm"
)

// Session holds one user's in-progress journaling conversation. Turns
// accumulate here until the user saves the entry, at which point the session
// is cleared.
type Session struct {
	mu         sync.Mutex
	messages   []llm.Message
	processing sync.Mutex
	startedAt  time.Time
}

type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}
