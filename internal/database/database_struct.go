package database

import "gorm.io/gorm"

// Database — хранилище сообщений чата и проверок членства
type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}
