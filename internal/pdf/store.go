package pdf

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
)

// ErrNoContext is returned when no document context exists for a room
var ErrNoContext = errors.New("no document context for room")

// RoomContext is the persisted document context for one room. Re-uploading
// for the same room replaces the earlier context.
type RoomContext struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`

	RoomID    string `json:"room_id" gorm:"size:64;not null;uniqueIndex"`
	Filename  string `json:"filename" gorm:"size:255"`
	NumPages  int    `json:"num_pages"`
	Text      string `json:"text" gorm:"type:mediumtext"`
	Truncated bool   `json:"truncated"`
}

// TableName specifies the database table name for GORM
func (RoomContext) TableName() string {
	return "room_contexts"
}

// ContextStore persists extracted document context per room
type ContextStore interface {
	SaveContext(ctx context.Context, roomID string, doc *Document) (*RoomContext, error)
	GetContext(ctx context.Context, roomID string) (*RoomContext, error)
	DeleteContext(ctx context.Context, roomID string) error
}

// MySqlContextStore stores room contexts using GORM
type MySqlContextStore struct {
	db *gorm.DB
}

// NewMySqlContextStore creates a context store over an existing GORM connection
func NewMySqlContextStore(db *gorm.DB) (*MySqlContextStore, error) {
	if err := db.AutoMigrate(&RoomContext{}); err != nil {
		return nil, fmt.Errorf("failed to migrate room contexts: %w", err)
	}
	return &MySqlContextStore{db: db}, nil
}

// SaveContext stores document context for a room, replacing any earlier one
func (s *MySqlContextStore) SaveContext(ctx context.Context, roomID string, doc *Document) (*RoomContext, error) {
	record := RoomContext{
		RoomID:    roomID,
		Filename:  doc.Filename,
		NumPages:  doc.NumPages,
		Text:      doc.Text,
		Truncated: doc.Truncated,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", roomID).Delete(&RoomContext{}).Error; err != nil {
			return err
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save room context: %w", err)
	}

	return &record, nil
}

// GetContext retrieves the document context for a room
func (s *MySqlContextStore) GetContext(ctx context.Context, roomID string) (*RoomContext, error) {
	var record RoomContext
	result := s.db.WithContext(ctx).First(&record, "room_id = ?", roomID)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNoContext
		}
		return nil, fmt.Errorf("failed to get room context: %w", result.Error)
	}

	return &record, nil
}

// DeleteContext removes the document context for a room
func (s *MySqlContextStore) DeleteContext(ctx context.Context, roomID string) error {
	if err := s.db.WithContext(ctx).Where("room_id = ?", roomID).Delete(&RoomContext{}).Error; err != nil {
		return fmt.Errorf("failed to delete room context: %w", err)
	}
	return nil
}

// InMemoryContextStore keeps room contexts in process memory
type InMemoryContextStore struct {
	contexts map[string]*RoomContext
	nextID   uint
	mu       sync.RWMutex
}

// NewInMemoryContextStore creates a new in-memory context store
func NewInMemoryContextStore() *InMemoryContextStore {
	return &InMemoryContextStore{
		contexts: make(map[string]*RoomContext),
	}
}

// SaveContext stores document context for a room, replacing any earlier one
func (s *InMemoryContextStore) SaveContext(ctx context.Context, roomID string, doc *Document) (*RoomContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := time.Now().UTC()
	record := &RoomContext{
		ID:        s.nextID,
		CreatedAt: now,
		UpdatedAt: now,
		RoomID:    roomID,
		Filename:  doc.Filename,
		NumPages:  doc.NumPages,
		Text:      doc.Text,
		Truncated: doc.Truncated,
	}
	s.contexts[roomID] = record

	return record, nil
}

// GetContext retrieves the document context for a room
func (s *InMemoryContextStore) GetContext(ctx context.Context, roomID string) (*RoomContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.contexts[roomID]
	if !exists {
		return nil, ErrNoContext
	}
	return record, nil
}

// DeleteContext removes the document context for a room
func (s *InMemoryContextStore) DeleteContext(ctx context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.contexts, roomID)
	return nil
}
