// Package rooms resolves a stable room identifier for a voice session from a
// prioritized list of identity signals.
package rooms

import (
	"math/big"
	"sync"

	"github.com/google/uuid"
)

// Signal is one possibly-absent source of room identity, such as a
// transport-assigned room name or an identifier carried in the page URL.
type Signal struct {
	Name  string
	Value string
}

// Resolver picks the first available identity signal and freezes it for the
// lifetime of the session. Once a value has been returned, later calls return
// the same value regardless of which signals are present, so in-flight backend
// requests are never re-addressed mid-session.
type Resolver struct {
	mu     sync.Mutex
	frozen string
}

// NewResolver creates a resolver with no frozen identity
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve returns the room identifier for this session. Signals are checked
// in the order given, highest priority first; the first non-empty value wins.
// With no signals present a fresh identifier is generated. Resolution never
// fails and the first result is final.
func (r *Resolver) Resolve(signals ...Signal) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen != "" {
		return r.frozen
	}

	for _, s := range signals {
		if s.Value != "" {
			r.frozen = s.Value
			return r.frozen
		}
	}

	r.frozen = GenerateRoomName()
	return r.frozen
}

// Resolved reports the frozen identifier, or empty string if no resolution
// has happened yet
func (r *Resolver) Resolved() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frozen
}

// GenerateRoomName produces a random room identifier of the form
// "room-xxxxxxxx" with an 8-character base-36 token
func GenerateRoomName() string {
	return "room-" + randomToken(8)
}

// randomToken encodes fresh UUID entropy as base-36 and returns the first n
// characters
func randomToken(n int) string {
	u := uuid.New()
	token := new(big.Int).SetBytes(u[:]).Text(36)
	for len(token) < n {
		token = "0" + token
	}
	return token[:n]
}
