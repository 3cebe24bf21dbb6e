package session

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/svroyal/concierge/internal/model/chat"
)

// State is the serialized form of one session: the session record plus its
// full ordered message log, including locations and feedback state.
type State struct {
	Session  chat.Session   `json:"session"`
	Messages []chat.Message `json:"messages"`
}

// Persister stores session state between process restarts. Persistence is
// best effort: the store logs failures and carries on in memory.
type Persister interface {
	Save(ctx context.Context, state State) error
	Load(ctx context.Context, sessionID string) (State, bool, error)
	Delete(ctx context.Context, sessionID string) error
}

// MemoryPersister keeps snapshots in a map. It backs tests and the default
// single-process deployment.
type MemoryPersister struct {
	mu     sync.RWMutex
	states map[string][]byte
}

// NewMemoryPersister returns an empty in-memory persister.
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{states: make(map[string][]byte)}
}

func (p *MemoryPersister) Save(_ context.Context, state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.states[state.Session.ID] = data
	p.mu.Unlock()
	return nil
}

func (p *MemoryPersister) Load(_ context.Context, sessionID string) (State, bool, error) {
	p.mu.RLock()
	data, ok := p.states[sessionID]
	p.mu.RUnlock()
	if !ok {
		return State{}, false, nil
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, false, err
	}
	return state, true, nil
}

func (p *MemoryPersister) Delete(_ context.Context, sessionID string) error {
	p.mu.Lock()
	delete(p.states, sessionID)
	p.mu.Unlock()
	return nil
}

// FilePersister writes one JSON file per session under a state directory.
type FilePersister struct {
	dir string
}

// NewFilePersister creates the state directory if needed.
func NewFilePersister(dir string) (*FilePersister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FilePersister{dir: dir}, nil
}

func (p *FilePersister) path(sessionID string) string {
	return filepath.Join(p.dir, sessionID+".json")
}

func (p *FilePersister) Save(_ context.Context, state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return os.WriteFile(p.path(state.Session.ID), data, 0o600)
}

func (p *FilePersister) Load(_ context.Context, sessionID string) (State, bool, error) {
	data, err := os.ReadFile(p.path(sessionID))
	if errors.Is(err, os.ErrNotExist) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, false, err
	}
	return state, true, nil
}

func (p *FilePersister) Delete(_ context.Context, sessionID string) error {
	err := os.Remove(p.path(sessionID))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
