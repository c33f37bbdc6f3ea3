package models

import "time"

// Chat — сохраненное сообщение. Гостевые сообщения сюда не попадают.
type Chat struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	EventID   int64  `gorm:"not null;index"`
	UserID    int64  `gorm:"not null"`
	Content   string `gorm:"not null"`
	CreatedAt time.Time

	User  User  `gorm:"foreignKey:UserID"`
	Event Event `gorm:"foreignKey:EventID"`
}
