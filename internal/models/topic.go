package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Topic represents a named search subscription against the X API
type Topic struct {
	ID    string `gorm:"type:uuid;primaryKey;column:id"`
	Slug  string `gorm:"type:varchar(64);not null;uniqueIndex;column:slug"`
	Name  string `gorm:"type:varchar(255);not null;column:name"`
	Query string `gorm:"type:varchar(512);not null;column:query"`

	// LatestPostID is the high-water mark: the newest X post id ingested
	// so far. It only advances, and is used as since_id on the next fetch.
	LatestPostID sql.NullString `gorm:"type:varchar(32);column:latest_post_id"`

	CreatedAt time.Time `gorm:"not null;column:created_at"`
	UpdatedAt time.Time `gorm:"not null;column:updated_at"`
}

// TableName specifies the table name for Topic
func (Topic) TableName() string {
	return "topics"
}

// BeforeCreate assigns a UUID primary key if one was not provided
func (t *Topic) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
