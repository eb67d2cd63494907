package session

import (
	"sync"
	"time"
)

// Session is one continuous voice-assistant interaction, addressed by a
// single frozen room identifier. The timeline is mutated by one writer at a
// time; handlers serialize through Do.
type Session struct {
	RoomID    string    `json:"room_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Timeline *Timeline `json:"-"`

	mu sync.Mutex
}

// NewSession creates a session with an empty timeline
func NewSession(roomID string) *Session {
	now := time.Now().UTC()
	return &Session{
		RoomID:    roomID,
		CreatedAt: now,
		UpdatedAt: now,
		Timeline:  NewTimeline(),
	}
}

// Do runs f while holding the session's write lock. Event handlers run to
// completion one at a time, mirroring the cooperative scheduling the timeline
// logic assumes.
func (s *Session) Do(f func(t *Timeline)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(s.Timeline)
	s.UpdatedAt = time.Now().UTC()
}

// View runs f with read access to the merged timeline
func (s *Session) View(f func(entries []Entry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(s.Timeline.Merge())
}
