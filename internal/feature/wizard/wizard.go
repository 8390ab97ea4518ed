// Package wizard implements the admin-only channel registration
// conversation: three successive text inputs collect a chat id, a join url
// and a button label before a single registry commit.
package wizard

import (
	"strings"
	"sync"
	"time"
)

// DefaultTTL is how long an untouched session survives before it is treated
// as abandoned.
const DefaultTTL = 10 * time.Minute

// Stage identifies which field a session is waiting for.
type Stage int

const (
	// StageIdle means no registration is in progress.
	StageIdle Stage = iota
	// StageChatID awaits the channel chat id.
	StageChatID
	// StageURL awaits the public join link.
	StageURL
	// StageLabel awaits the join button label.
	StageLabel
)

// Record holds the three collected fields of a completed registration,
// ready to commit to the channel registry.
type Record struct {
	ChatID      string
	JoinURL     string
	ButtonLabel string
}

type session struct {
	stage     Stage
	chatID    string
	joinURL   string
	updatedAt time.Time
}

// Store keeps at most one in-flight registration session per user id.
// Sessions are deliberately not durable: a restart loses collected fields
// and commits nothing, so partial registrations never persist.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*session
	ttl      time.Duration
	now      func() time.Time
}

// NewStore constructs a session store. A non-positive ttl falls back to
// DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Store{
		sessions: make(map[int64]*session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Begin starts a registration session for the user, replacing any session
// already in flight for the same user. Other users' sessions are untouched.
func (s *Store) Begin(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[userID] = &session{
		stage:     StageChatID,
		updatedAt: s.now(),
	}
}

// Active reports whether the user has a live session.
func (s *Store) Active(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.live(userID) != nil
}

// Abort discards the user's session, if any.
func (s *Store) Abort(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
}

// Advance feeds one text input into the user's session. It returns the
// stage now awaiting input, plus the completed record once the final field
// arrives (at which point the session is cleared). Without a live session
// it returns StageIdle and nil. Blank input re-prompts the current stage.
func (s *Store) Advance(userID int64, input string) (Stage, *Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.live(userID)
	if sess == nil {
		return StageIdle, nil
	}

	text := strings.TrimSpace(input)
	if text == "" {
		return sess.stage, nil
	}

	sess.updatedAt = s.now()

	switch sess.stage {
	case StageChatID:
		sess.chatID = text
		sess.stage = StageURL
		return StageURL, nil
	case StageURL:
		sess.joinURL = text
		sess.stage = StageLabel
		return StageLabel, nil
	case StageLabel:
		record := &Record{
			ChatID:      sess.chatID,
			JoinURL:     sess.joinURL,
			ButtonLabel: text,
		}
		delete(s.sessions, userID)
		return StageIdle, record
	default:
		delete(s.sessions, userID)
		return StageIdle, nil
	}
}

// live returns the user's session, pruning it first when expired. Callers
// must hold the mutex.
func (s *Store) live(userID int64) *session {
	sess, ok := s.sessions[userID]
	if !ok {
		return nil
	}

	if s.now().Sub(sess.updatedAt) > s.ttl {
		delete(s.sessions, userID)
		return nil
	}

	return sess
}
