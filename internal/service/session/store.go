package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/svroyal/concierge/internal/feedback"
	"github.com/svroyal/concierge/internal/model/chat"
)

type record struct {
	session     chat.Session
	messages    []chat.Message
	askInFlight bool
}

// Store owns every live conversation: the ordered message log, the
// conversation-scoped identifiers, the single-flight ask guard and the
// "which message has its detail box open" pointer. All mutations persist the
// full state best-effort and fan out a snapshot to subscribers.
type Store struct {
	mu          sync.RWMutex
	welcomeText string
	persister   Persister
	logger      *zap.Logger
	records     map[string]*record
	subscribers map[string]map[chan State]struct{}
}

// NewStore bootstraps the session store. A nil persister falls back to the
// in-memory one.
func NewStore(welcomeText string, persister Persister, logger *zap.Logger) *Store {
	if persister == nil {
		persister = NewMemoryPersister()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		welcomeText: welcomeText,
		persister:   persister,
		logger:      logger,
		records:     make(map[string]*record),
		subscribers: make(map[string]map[chan State]struct{}),
	}
}

func (s *Store) welcomeMessage() chat.Message {
	return chat.Message{
		ID:            uuid.NewString(),
		Role:          chat.RoleBot,
		Text:          s.welcomeText,
		CreatedAt:     time.Now().UTC(),
		FeedbackState: feedback.None,
	}
}

func (s *Store) newRecord(sessionID string) *record {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return &record{
		session: chat.Session{
			ID:        sessionID,
			UserID:    "user_" + uuid.NewString(),
			CreatedAt: time.Now().UTC(),
		},
		messages: []chat.Message{s.welcomeMessage()},
	}
}

// Create provisions a fresh session seeded with the welcome message.
func (s *Store) Create(ctx context.Context) State {
	rec := s.newRecord("")

	s.mu.Lock()
	s.records[rec.session.ID] = rec
	state := snapshot(rec)
	s.mu.Unlock()

	s.afterMutation(ctx, state)
	return state
}

// Get restores a session. Unknown or unreadable persisted state degrades to
// a fresh welcome conversation under the same ID; Get never fails.
func (s *Store) Get(ctx context.Context, sessionID string) State {
	s.mu.RLock()
	rec, ok := s.records[sessionID]
	var state State
	if ok {
		state = snapshot(rec)
	}
	s.mu.RUnlock()
	if ok {
		return state
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[sessionID]; ok {
		return snapshot(rec)
	}
	rec = s.restore(ctx, sessionID)
	s.records[sessionID] = rec
	return snapshot(rec)
}

// restore loads persisted state for the ID; any absence or decode failure
// yields a fresh welcome record instead of an error. Caller holds the lock.
func (s *Store) restore(ctx context.Context, sessionID string) *record {
	state, ok, err := s.persister.Load(ctx, sessionID)
	if err != nil {
		s.logger.Warn("failed to restore session, starting fresh",
			zap.String("sessionID", sessionID), zap.Error(err))
		return s.newRecord(sessionID)
	}
	if !ok || state.Session.ID == "" || len(state.Messages) == 0 {
		return s.newRecord(sessionID)
	}
	return &record{session: state.Session, messages: state.Messages}
}

// Append adds a message to the end of the log. A missing ID or timestamp is
// filled in here so appended messages are immediately correlatable.
func (s *Store) Append(ctx context.Context, sessionID string, message chat.Message) chat.Message {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	rec := s.loadLocked(ctx, sessionID)
	rec.messages = append(rec.messages, message)
	state := snapshot(rec)
	s.mu.Unlock()

	s.afterMutation(ctx, state)
	return message
}

// mutateMessage runs apply on the record with the message matched by ID
// resolved to its index, all under the write lock. apply returning false
// abandons the mutation: nothing is persisted or broadcast.
func (s *Store) mutateMessage(ctx context.Context, sessionID, messageID string, apply func(rec *record, idx int) bool) bool {
	s.mu.Lock()
	rec := s.loadLocked(ctx, sessionID)
	idx := indexOf(rec.messages, messageID)
	if idx < 0 || !apply(rec, idx) {
		s.mu.Unlock()
		return false
	}
	state := snapshot(rec)
	s.mu.Unlock()

	s.afterMutation(ctx, state)
	return true
}

// Message returns a single message by ID.
func (s *Store) Message(ctx context.Context, sessionID, messageID string) (chat.Message, bool) {
	s.mu.Lock()
	rec := s.loadLocked(ctx, sessionID)
	idx := indexOf(rec.messages, messageID)
	if idx < 0 {
		s.mu.Unlock()
		return chat.Message{}, false
	}
	message := rec.messages[idx]
	s.mu.Unlock()
	return message, true
}

// OpenDetail marks the message's detail box as the one open box of the
// session. Any other open box closes: its message reverts to pending.
func (s *Store) OpenDetail(ctx context.Context, sessionID, messageID string) bool {
	return s.mutateMessage(ctx, sessionID, messageID, func(rec *record, idx int) bool {
		if !rec.messages[idx].FeedbackState.CanOpenDetail() {
			return false
		}
		for i := range rec.messages {
			if rec.messages[i].FeedbackState == feedback.Shown {
				rec.messages[i].FeedbackState = feedback.Pending
			}
		}
		rec.messages[idx].FeedbackState = feedback.Shown
		rec.session.OpenDetailID = messageID
		return true
	})
}

// MarkRated finalizes the message's feedback: terminal state, fixed rating,
// and the detail-box pointer cleared if it pointed here.
func (s *Store) MarkRated(ctx context.Context, sessionID, messageID string, rating int) bool {
	return s.mutateMessage(ctx, sessionID, messageID, func(rec *record, idx int) bool {
		rec.messages[idx].FeedbackState = feedback.Rated
		rec.messages[idx].UserRating = &rating
		if rec.session.OpenDetailID == messageID {
			rec.session.OpenDetailID = ""
		}
		return true
	})
}

// Reset replaces the log with a single fresh welcome message and clears the
// persisted copy. The session's identity survives: the userID is minted once
// per session, so remote correlation continues across restarts.
func (s *Store) Reset(ctx context.Context, sessionID string) State {
	s.mu.Lock()
	rec := s.loadLocked(ctx, sessionID)
	rec.messages = []chat.Message{s.welcomeMessage()}
	rec.session.OpenDetailID = ""
	rec.askInFlight = false
	state := snapshot(rec)
	s.mu.Unlock()

	if err := s.persister.Delete(ctx, sessionID); err != nil {
		s.logger.Warn("failed to clear persisted session",
			zap.String("sessionID", sessionID), zap.Error(err))
	}
	s.broadcast(sessionID, state)
	return state
}

// BeginAsk claims the session's single outstanding ask slot. It reports
// false while another ask is in flight.
func (s *Store) BeginAsk(ctx context.Context, sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.loadLocked(ctx, sessionID)
	if rec.askInFlight {
		return false
	}
	rec.askInFlight = true
	return true
}

// EndAsk releases the ask slot.
func (s *Store) EndAsk(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[sessionID]; ok {
		rec.askInFlight = false
	}
}

// Subscribe registers for snapshots of every mutation on the session. The
// returned cancel function must be called to release the subscription.
func (s *Store) Subscribe(sessionID string) (<-chan State, func()) {
	ch := make(chan State, 8)

	s.mu.Lock()
	subs, ok := s.subscribers[sessionID]
	if !ok {
		subs = make(map[chan State]struct{})
		s.subscribers[sessionID] = subs
	}
	subs[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if subs, ok := s.subscribers[sessionID]; ok {
			delete(subs, ch)
			if len(subs) == 0 {
				delete(s.subscribers, sessionID)
			}
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// loadLocked returns the live record for the session, restoring or creating
// it as needed. Caller holds the write lock.
func (s *Store) loadLocked(ctx context.Context, sessionID string) *record {
	if rec, ok := s.records[sessionID]; ok {
		return rec
	}
	rec := s.restore(ctx, sessionID)
	s.records[sessionID] = rec
	return rec
}

func (s *Store) afterMutation(ctx context.Context, state State) {
	if err := s.persister.Save(ctx, state); err != nil {
		s.logger.Warn("failed to persist session",
			zap.String("sessionID", state.Session.ID), zap.Error(err))
	}
	s.broadcast(state.Session.ID, state)
}

// broadcast delivers the snapshot without blocking; a subscriber with a full
// buffer skips this update and catches up on the next one.
func (s *Store) broadcast(sessionID string, state State) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.subscribers[sessionID] {
		select {
		case ch <- state:
		default:
		}
	}
}

func snapshot(rec *record) State {
	messages := make([]chat.Message, len(rec.messages))
	copy(messages, rec.messages)
	return State{Session: rec.session, Messages: messages}
}

func indexOf(messages []chat.Message, messageID string) int {
	for i := range messages {
		if messages[i].ID == messageID {
			return i
		}
	}
	return -1
}
