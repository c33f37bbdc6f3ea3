package models

import "time"

type User struct {
	ID          int64   `gorm:"primaryKey;autoIncrement"`
	Nickname    string  `gorm:"not null"`
	ProfileImg  *string `gorm:"column:profile_img"`
	IsCompleted bool    `gorm:"default:true"`
	CreatedAt   time.Time
}
