package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/thereayou/eventchat/internal/models"
)

// CreateChat сохраняет сообщение и возвращает его вместе с автором
func (d *Database) CreateChat(ctx context.Context, eventID, userID int64, content string) (*models.Chat, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("create chat: empty content")
	}

	chat := &models.Chat{
		EventID: eventID,
		UserID:  userID,
		Content: content,
	}
	if err := d.db.WithContext(ctx).Omit("User", "Event").Create(chat).Error; err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}

	var saved models.Chat
	if err := d.db.WithContext(ctx).Preload("User").First(&saved, "id = ?", chat.ID).Error; err != nil {
		return nil, fmt.Errorf("load chat %d: %w", chat.ID, err)
	}
	return &saved, nil
}
