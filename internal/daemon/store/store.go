package store

import (
	"sync"
	"time"

	"github.com/grovetools/lombridge/internal/liveset"
)

// Store is the in-memory status store for the host.
// It is thread-safe and supports pub/sub for real-time updates.
type Store struct {
	mu          sync.RWMutex
	state       State
	subscribers map[chan Update]struct{}
}

// New creates a new Store instance.
func New() *Store {
	now := time.Now()
	return &Store{
		state:       State{StartedAt: now, UpdatedAt: now},
		subscribers: make(map[chan Update]struct{}),
	}
}

// Get returns a copy of the current state.
func (s *Store) Get() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// ApplyUpdate modifies the state and notifies subscribers.
//
// Payloads: UpdateSession carries a liveset.Info, UpdateConnection an int
// delta, UpdateCommand the command type, UpdateConfigReload the file path.
func (s *Store) ApplyUpdate(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch u.Type {
	case UpdateSession:
		if info, ok := u.Payload.(liveset.Info); ok {
			s.state.Session = info
		}
	case UpdateConnection:
		if delta, ok := u.Payload.(int); ok {
			s.state.Connections += delta
			if s.state.Connections < 0 {
				s.state.Connections = 0
			}
		}
	case UpdateCommand:
		if command, ok := u.Payload.(string); ok {
			s.state.Commands++
			s.state.LastCommand = command
		}
	case UpdateConfigReload:
		if file, ok := u.Payload.(string); ok {
			s.state.ConfigFile = file
		}
	}
	s.state.UpdatedAt = time.Now()

	// Broadcast to subscribers
	for ch := range s.subscribers {
		select {
		case ch <- u:
		default:
			// Non-blocking send to prevent slow clients from stalling the host
		}
	}
}

// Subscribe creates a new subscription channel for state updates.
func (s *Store) Subscribe() chan Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Update, 100) // Buffered
	s.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Store) Unsubscribe(ch chan Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribers[ch]; !ok {
		return
	}
	delete(s.subscribers, ch)
	close(ch)
}

// BroadcastConfigReload records a config reload and notifies subscribers.
// This is used by the config watcher when a config file changes.
func (s *Store) BroadcastConfigReload(file string) {
	s.ApplyUpdate(Update{
		Type:    UpdateConfigReload,
		Source:  "config",
		Payload: file,
	})
}
