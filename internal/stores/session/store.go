package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a session does not exist for a room
var ErrNotFound = errors.New("session not found")

// Store defines persistence for sessions and their timelines
type Store interface {
	// CreateSession returns the session for roomID, creating it if needed
	CreateSession(ctx context.Context, roomID string) (*Session, error)
	// GetSession retrieves an existing session
	GetSession(ctx context.Context, roomID string) (*Session, error)
	// SaveSegment records a transcript segment observation for a room.
	// A repeated segment ID from the same speaker replaces the earlier text.
	SaveSegment(ctx context.Context, roomID string, seg Segment) error
	// AppendSystem inserts a system announcement at the logical end of the
	// room's timeline and returns the created entry
	AppendSystem(ctx context.Context, roomID string, text string) (Entry, error)
	// GetTimeline returns the merged, ordered conversation view
	GetTimeline(ctx context.Context, roomID string) ([]Entry, error)
	// DeleteSession removes a session and all its timeline data
	DeleteSession(ctx context.Context, roomID string) error
	// ListIdleRooms returns rooms whose sessions were last touched before cutoff
	ListIdleRooms(ctx context.Context, cutoff time.Time) ([]string, error)
}

/** MySQL store **/

// SessionRecord is the persisted session row
type SessionRecord struct {
	RoomID    string    `json:"room_id" gorm:"primaryKey;size:64"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

// TableName specifies the database table name for GORM
func (SessionRecord) TableName() string {
	return "sessions"
}

// SegmentRecord is one persisted transcript segment observation
type SegmentRecord struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`

	RoomID        string `json:"room_id" gorm:"size:64;not null;uniqueIndex:idx_room_speaker_segment"`
	Speaker       string `json:"speaker" gorm:"size:16;not null;uniqueIndex:idx_room_speaker_segment"`
	SegmentID     string `json:"segment_id" gorm:"size:128;not null;uniqueIndex:idx_room_speaker_segment"`
	Text          string `json:"text" gorm:"type:text;not null"`
	FirstReceived int64  `json:"first_received" gorm:"not null"`
	Arrival       int64  `json:"arrival" gorm:"not null"`
}

// TableName specifies the database table name for GORM
func (SegmentRecord) TableName() string {
	return "segments"
}

// SystemEntryRecord is one persisted system announcement
type SystemEntryRecord struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`

	RoomID      string `json:"room_id" gorm:"size:64;not null;index"`
	EntryID     string `json:"entry_id" gorm:"size:36;not null"`
	Text        string `json:"text" gorm:"type:text;not null"`
	OrderingKey int64  `json:"ordering_key" gorm:"not null"`
	Arrival     int64  `json:"arrival" gorm:"not null"`
}

// TableName specifies the database table name for GORM
func (SystemEntryRecord) TableName() string {
	return "system_entries"
}

// MySqlStore handles session persistence using GORM
type MySqlStore struct {
	db *gorm.DB
}

// NewMySqlStore creates a new session store with GORM connection
func NewMySqlStore(databaseURL string) (*MySqlStore, error) {
	db, err := gorm.Open(mysql.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &MySqlStore{db: db}

	// Auto-migrate tables
	if err := db.AutoMigrate(&SessionRecord{}, &SegmentRecord{}, &SystemEntryRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate tables: %w", err)
	}

	return store, nil
}

// CreateSession returns the session for roomID, creating the row if needed
func (s *MySqlStore) CreateSession(ctx context.Context, roomID string) (*Session, error) {
	record := SessionRecord{RoomID: roomID}
	if err := s.db.WithContext(ctx).FirstOrCreate(&record, SessionRecord{RoomID: roomID}).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return s.loadSession(ctx, record)
}

// GetSession retrieves a session by room ID with its timeline rebuilt
func (s *MySqlStore) GetSession(ctx context.Context, roomID string) (*Session, error) {
	var record SessionRecord
	result := s.db.WithContext(ctx).First(&record, "room_id = ?", roomID)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", result.Error)
	}

	return s.loadSession(ctx, record)
}

// SaveSegment records a transcript segment, replacing the text of an earlier
// revision with the same (room, speaker, segment) key
func (s *MySqlStore) SaveSegment(ctx context.Context, roomID string, seg Segment) error {
	if !seg.Speaker.Valid() {
		return fmt.Errorf("unknown speaker %q", seg.Speaker)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireSession(tx, roomID); err != nil {
			return err
		}

		var existing SegmentRecord
		err := tx.Where("room_id = ? AND speaker = ? AND segment_id = ?", roomID, seg.Speaker, seg.ID).
			First(&existing).Error

		switch {
		case err == nil:
			// Revision: replace the text, keep original position
			return tx.Model(&existing).Update("text", seg.Text).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			arrival, err := nextArrival(tx, roomID)
			if err != nil {
				return err
			}
			record := SegmentRecord{
				RoomID:        roomID,
				Speaker:       string(seg.Speaker),
				SegmentID:     seg.ID,
				Text:          seg.Text,
				FirstReceived: seg.FirstReceived,
				Arrival:       arrival,
			}
			if err := tx.Create(&record).Error; err != nil {
				return fmt.Errorf("failed to save segment: %w", err)
			}
			return touchSession(tx, roomID)
		default:
			return fmt.Errorf("failed to query segment: %w", err)
		}
	})
}

// AppendSystem inserts a system announcement at the logical end of the timeline
func (s *MySqlStore) AppendSystem(ctx context.Context, roomID string, text string) (Entry, error) {
	var entry Entry

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireSession(tx, roomID); err != nil {
			return err
		}

		timeline, err := loadTimeline(tx, roomID)
		if err != nil {
			return err
		}
		entry = timeline.AppendSystem(text)

		arrival, err := nextArrival(tx, roomID)
		if err != nil {
			return err
		}

		record := SystemEntryRecord{
			RoomID:      roomID,
			EntryID:     entry.ID,
			Text:        entry.Text,
			OrderingKey: entry.OrderingKey,
			Arrival:     arrival,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to save system entry: %w", err)
		}
		return touchSession(tx, roomID)
	})

	return entry, err
}

// GetTimeline returns the merged conversation view for a room
func (s *MySqlStore) GetTimeline(ctx context.Context, roomID string) ([]Entry, error) {
	if err := requireSession(s.db.WithContext(ctx), roomID); err != nil {
		return nil, err
	}

	timeline, err := loadTimeline(s.db.WithContext(ctx), roomID)
	if err != nil {
		return nil, err
	}
	return timeline.Merge(), nil
}

// DeleteSession deletes a session and its timeline from the database
func (s *MySqlStore) DeleteSession(ctx context.Context, roomID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", roomID).Delete(&SegmentRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete session segments: %w", err)
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&SystemEntryRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete system entries: %w", err)
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&SessionRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		return nil
	})
}

// ListIdleRooms returns rooms last touched before cutoff
func (s *MySqlStore) ListIdleRooms(ctx context.Context, cutoff time.Time) ([]string, error) {
	var rooms []string
	result := s.db.WithContext(ctx).Model(&SessionRecord{}).
		Where("updated_at < ?", cutoff).
		Pluck("room_id", &rooms)

	if result.Error != nil {
		return nil, fmt.Errorf("failed to list idle rooms: %w", result.Error)
	}
	return rooms, nil
}

// GetDB returns the underlying GORM database connection
func (s *MySqlStore) GetDB() *gorm.DB {
	return s.db
}

// Close closes the database connection
func (s *MySqlStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from gorm.DB: %w", err)
	}
	return sqlDB.Close()
}

// loadSession rebuilds the in-memory session from its persisted rows
func (s *MySqlStore) loadSession(ctx context.Context, record SessionRecord) (*Session, error) {
	timeline, err := loadTimeline(s.db.WithContext(ctx), record.RoomID)
	if err != nil {
		return nil, err
	}

	return &Session{
		RoomID:    record.RoomID,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
		Timeline:  timeline,
	}, nil
}

// loadTimeline replays a room's persisted observations in arrival order
func loadTimeline(tx *gorm.DB, roomID string) (*Timeline, error) {
	var segments []SegmentRecord
	if err := tx.Where("room_id = ?", roomID).Order("arrival ASC").Find(&segments).Error; err != nil {
		return nil, fmt.Errorf("failed to load segments: %w", err)
	}

	var systemEntries []SystemEntryRecord
	if err := tx.Where("room_id = ?", roomID).Order("arrival ASC").Find(&systemEntries).Error; err != nil {
		return nil, fmt.Errorf("failed to load system entries: %w", err)
	}

	// Interleave both record kinds back into their original arrival order
	type observation struct {
		arrival int64
		segment *SegmentRecord
		system  *SystemEntryRecord
	}

	observations := make([]observation, 0, len(segments)+len(systemEntries))
	for i := range segments {
		observations = append(observations, observation{arrival: segments[i].Arrival, segment: &segments[i]})
	}
	for i := range systemEntries {
		observations = append(observations, observation{arrival: systemEntries[i].Arrival, system: &systemEntries[i]})
	}
	sort.Slice(observations, func(i, j int) bool {
		return observations[i].arrival < observations[j].arrival
	})

	timeline := NewTimeline()
	for _, obs := range observations {
		if obs.segment != nil {
			timeline.Observe(Segment{
				ID:            obs.segment.SegmentID,
				Speaker:       Speaker(obs.segment.Speaker),
				Text:          obs.segment.Text,
				FirstReceived: obs.segment.FirstReceived,
			})
		} else {
			timeline.RestoreSystem(Entry{
				ID:          obs.system.EntryID,
				Kind:        KindSystem,
				Text:        obs.system.Text,
				OrderingKey: obs.system.OrderingKey,
			})
		}
	}

	return timeline, nil
}

// requireSession returns ErrNotFound if no session row exists for roomID
func requireSession(tx *gorm.DB, roomID string) error {
	var count int64
	if err := tx.Model(&SessionRecord{}).Where("room_id = ?", roomID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

// touchSession bumps the session's updated_at for idle tracking
func touchSession(tx *gorm.DB, roomID string) error {
	return tx.Model(&SessionRecord{}).Where("room_id = ?", roomID).
		Update("updated_at", time.Now().UTC()).Error
}

// nextArrival returns the next combined arrival index for a room
func nextArrival(tx *gorm.DB, roomID string) (int64, error) {
	var segmentCount, systemCount int64
	if err := tx.Model(&SegmentRecord{}).Where("room_id = ?", roomID).Count(&segmentCount).Error; err != nil {
		return 0, fmt.Errorf("failed to count segments: %w", err)
	}
	if err := tx.Model(&SystemEntryRecord{}).Where("room_id = ?", roomID).Count(&systemCount).Error; err != nil {
		return 0, fmt.Errorf("failed to count system entries: %w", err)
	}
	return segmentCount + systemCount, nil
}

/** In-memory store **/

// InMemoryStore keeps sessions and live timelines in process memory
type InMemoryStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewInMemoryStore creates a new in-memory session store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]*Session),
	}
}

// CreateSession returns the session for roomID, creating it if needed
func (s *InMemoryStore) CreateSession(ctx context.Context, roomID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, exists := s.sessions[roomID]; exists {
		return sess, nil
	}

	sess := NewSession(roomID)
	s.sessions[roomID] = sess
	return sess, nil
}

// GetSession retrieves a session by room ID
func (s *InMemoryStore) GetSession(ctx context.Context, roomID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, exists := s.sessions[roomID]
	if !exists {
		return nil, ErrNotFound
	}
	return sess, nil
}

// SaveSegment records a transcript segment observation
func (s *InMemoryStore) SaveSegment(ctx context.Context, roomID string, seg Segment) error {
	if !seg.Speaker.Valid() {
		return fmt.Errorf("unknown speaker %q", seg.Speaker)
	}

	sess, err := s.GetSession(ctx, roomID)
	if err != nil {
		return err
	}

	sess.Do(func(t *Timeline) {
		t.Observe(seg)
	})
	return nil
}

// AppendSystem inserts a system announcement at the logical end of the timeline
func (s *InMemoryStore) AppendSystem(ctx context.Context, roomID string, text string) (Entry, error) {
	sess, err := s.GetSession(ctx, roomID)
	if err != nil {
		return Entry{}, err
	}

	var entry Entry
	sess.Do(func(t *Timeline) {
		entry = t.AppendSystem(text)
	})
	return entry, nil
}

// GetTimeline returns the merged conversation view for a room
func (s *InMemoryStore) GetTimeline(ctx context.Context, roomID string) ([]Entry, error) {
	sess, err := s.GetSession(ctx, roomID)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	sess.View(func(merged []Entry) {
		entries = merged
	})
	return entries, nil
}

// DeleteSession removes a session and its timeline
func (s *InMemoryStore) DeleteSession(ctx context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[roomID]; !exists {
		return ErrNotFound
	}
	delete(s.sessions, roomID)
	return nil
}

// ListIdleRooms returns rooms last touched before cutoff
func (s *InMemoryStore) ListIdleRooms(ctx context.Context, cutoff time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rooms []string
	for roomID, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			rooms = append(rooms, roomID)
		}
	}
	return rooms, nil
}
