package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/thereayou/eventchat/internal/models"
	"gorm.io/gorm"
)

// IsEventMember: пользователь — создатель события или подал на него заявку.
// Несуществующее событие — это false, а не ошибка.
func (d *Database) IsEventMember(ctx context.Context, userID, eventID int64) (bool, error) {
	if userID <= 0 || eventID <= 0 {
		return false, nil
	}

	var event models.Event
	err := d.db.WithContext(ctx).
		Select("id", "creator_id").
		First(&event, "id = ?", eventID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load event %d: %w", eventID, err)
	}
	if event.CreatorID == userID {
		return true, nil
	}

	var count int64
	err = d.db.WithContext(ctx).
		Model(&models.EventApplication{}).
		Where("event_id = ? AND creator_id = ?", eventID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("load application for event %d: %w", eventID, err)
	}
	return count > 0, nil
}
