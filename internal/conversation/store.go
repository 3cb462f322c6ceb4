package conversation

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/umebot"
)

// GormStore is the append-only interaction log named in spec.md §6,
// backed by gorm.io/gorm + the sqlite driver. Grounded on the
// iamprashant-voice-ai stack, which pulls in exactly this pair for the
// same append-only-conversation-log role.
type GormStore struct {
	db *gorm.DB
}

// conversationRow and interactionRow are the gorm models; kept distinct
// from umebot.Conversation/umebot.Interaction so the persistence schema
// can evolve (column tags, indices) without perturbing the domain types
// every other component imports.
type conversationRow struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	UserID    string
	StartedAt time.Time
	UpdatedAt time.Time
	Summary   string
}

type interactionRow struct {
	ID             int64 `gorm:"primaryKey;autoIncrement"`
	ConversationID int64 `gorm:"index"`
	Timestamp      time.Time
	Role           string
	Content        string
}

// OpenGormStore opens (creating if necessary) a sqlite-backed store at
// dsn and migrates its schema.
func OpenGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("conversation: open store: %w", err)
	}
	if err := db.AutoMigrate(&conversationRow{}, &interactionRow{}); err != nil {
		return nil, fmt.Errorf("conversation: migrate store: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) StartConversation(ctx context.Context, summary, userID string) (int64, error) {
	now := time.Now().UTC()
	row := conversationRow{UserID: userID, StartedAt: now, UpdatedAt: now, Summary: summary}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, err
	}
	return row.ID, nil
}

func (s *GormStore) ConversationExists(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&conversationRow{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// AddInteraction appends an interaction and bumps the conversation's
// updated_at, preserving the invariant that updated_at monotonically
// increases per conversation.
func (s *GormStore) AddInteraction(ctx context.Context, convID int64, role umebot.InteractionRole, contentJSON string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := interactionRow{ConversationID: convID, Timestamp: time.Now().UTC(), Role: string(role), Content: contentJSON}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return tx.Model(&conversationRow{}).Where("id = ?", convID).Update("updated_at", row.Timestamp).Error
	})
}

func (s *GormStore) GetInteractions(ctx context.Context, convID int64, limit int) ([]umebot.Interaction, error) {
	var rows []interactionRow
	q := s.db.WithContext(ctx).Where("conversation_id = ?", convID).Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]umebot.Interaction, len(rows))
	for i, r := range rows {
		// rows arrived newest-first; write them back out chronologically.
		out[len(rows)-1-i] = umebot.Interaction{
			ID:             r.ID,
			ConversationID: r.ConversationID,
			Timestamp:      r.Timestamp,
			Role:           umebot.InteractionRole(r.Role),
			Content:        r.Content,
		}
	}
	return out, nil
}
