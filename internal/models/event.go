package models

import "time"

// Event — событие, его ID служит ключом комнаты чата
type Event struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Title     string `gorm:"not null"`
	Content   *string
	CreatorID int64 `gorm:"not null;index"`
	StartAt   *time.Time
	EndAt     *time.Time
	CreatedAt time.Time

	Creator User `gorm:"foreignKey:CreatorID"`
}

// EventApplication — заявка пользователя на событие. Заявитель считается
// участником чата, статуса одобрения нет.
type EventApplication struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	EventID   int64 `gorm:"not null;index:idx_event_applicant"`
	CreatorID int64 `gorm:"not null;index:idx_event_applicant"`
	CreatedAt time.Time

	Event Event `gorm:"foreignKey:EventID"`
	User  User  `gorm:"foreignKey:CreatorID"`
}
