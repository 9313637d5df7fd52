package repository

import (
	"fmt"

	"gorm.io/gorm"

	"cabinetquote/internal/model"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(message *model.Message) error {
	if err := r.db.Create(message).Error; err != nil {
		return fmt.Errorf("create message failed: %w", err)
	}
	return nil
}

// ListBySessionKey returns the most recent messages of a conversation in
// chronological order.
func (r *MessageRepository) ListBySessionKey(sessionKey string, limit int) ([]model.Message, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var messages []model.Message
	if err := r.db.Where("session_key = ?", sessionKey).Order("id DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list messages failed: %w", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
