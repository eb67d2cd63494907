package janitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/levra/voicebridge/internal/pdf"
	"github.com/levra/voicebridge/internal/stores/session"
	"github.com/levra/voicebridge/pkg/utils"
)

// DefaultIdleTTL is how long a room may go without activity before its
// session and document context are purged
const DefaultIdleTTL = 24 * time.Hour

// Janitor periodically removes sessions that have gone idle, along with any
// document context stored for their rooms
type Janitor struct {
	store    session.Store
	contexts pdf.ContextStore
	ttl      time.Duration

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a janitor from configuration. SESSION_IDLE_TTL_HOURS and
// JANITOR_CRON_SPEC control the idle window and sweep schedule.
func New(cfg *utils.Config, store session.Store, contexts pdf.ContextStore) (*Janitor, error) {
	ttl := DefaultIdleTTL
	if hours := cfg.GetIntWithDefault("SESSION_IDLE_TTL_HOURS", 0); hours > 0 {
		ttl = time.Duration(hours) * time.Hour
	}

	ctx, cancel := context.WithCancel(context.Background())

	j := &Janitor{
		store:    store,
		contexts: contexts,
		ttl:      ttl,
		cron:     cron.New(),
		ctx:      ctx,
		cancel:   cancel,
	}

	spec := cfg.GetWithDefault("JANITOR_CRON_SPEC", "@hourly")
	if _, err := j.cron.AddFunc(spec, j.sweep); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to schedule janitor sweep: %w", err)
	}

	return j, nil
}

// Start begins the background sweep schedule
func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop gracefully stops the janitor
func (j *Janitor) Stop() {
	j.cancel()
	j.cron.Stop()
}

// sweep removes every session idle past the TTL
func (j *Janitor) sweep() {
	cutoff := time.Now().Add(-j.ttl)

	roomIDs, err := j.store.ListIdleRooms(j.ctx, cutoff)
	if err != nil {
		log.Printf("[JANITOR]: failed to list idle rooms: %v", err)
		return
	}

	for _, roomID := range roomIDs {
		if err := j.Purge(j.ctx, roomID); err != nil {
			log.Printf("[JANITOR]: failed to purge room '%s': %v", roomID, err)
			continue
		}
		log.Printf("[JANITOR]: purged idle room '%s'", roomID)
	}
}

// Purge removes a single room's session and document context
func (j *Janitor) Purge(ctx context.Context, roomID string) error {
	if err := j.store.DeleteSession(ctx, roomID); err != nil {
		return err
	}

	// Missing context is fine; most rooms never attach a document
	if err := j.contexts.DeleteContext(ctx, roomID); err != nil && !errors.Is(err, pdf.ErrNoContext) {
		return err
	}

	return nil
}
