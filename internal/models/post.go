package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post is a de-duplicated record of one X post. TwitterPostID is the
// natural key; at most one row exists per upstream post.
type Post struct {
	ID            string `gorm:"type:uuid;primaryKey;column:id"`
	TwitterPostID string `gorm:"type:varchar(32);not null;uniqueIndex;column:twitter_post_id"`

	// Author snapshot, overwritten with the latest values on every sync
	AuthorID        string         `gorm:"type:varchar(32);not null;column:author_id"`
	AuthorName      string         `gorm:"type:varchar(255);not null;column:author_name"`
	AuthorUsername  string         `gorm:"type:varchar(255);not null;column:author_username"`
	AuthorAvatarURL sql.NullString `gorm:"type:varchar(512);column:author_profile_image_url"`

	// OriginalText and TweetedAt are immutable once set
	OriginalText     string         `gorm:"type:text;not null;column:original_text"`
	TranslatedTextEn sql.NullString `gorm:"type:text;column:translated_text_en"`
	TweetedAt        time.Time      `gorm:"not null;column:tweeted_at"`

	LikeCount    int `gorm:"not null;default:0;column:like_count"`
	RetweetCount int `gorm:"not null;default:0;column:retweet_count"`
	ReplyCount   int `gorm:"not null;default:0;column:reply_count"`

	IsDeleted bool      `gorm:"not null;default:false;column:is_deleted"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
	UpdatedAt time.Time `gorm:"not null;column:updated_at"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "posts"
}

// BeforeCreate assigns a UUID primary key if one was not provided
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// TopicPost links a topic to a post it matched. Unique per (topic, post)
type TopicPost struct {
	ID        string    `gorm:"type:uuid;primaryKey;column:id"`
	TopicID   string    `gorm:"type:uuid;not null;uniqueIndex:idx_topic_post;column:topic_id"`
	PostID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_topic_post;column:post_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for TopicPost
func (TopicPost) TableName() string {
	return "topic_posts"
}

// BeforeCreate assigns a UUID primary key if one was not provided
func (tp *TopicPost) BeforeCreate(tx *gorm.DB) error {
	if tp.ID == "" {
		tp.ID = uuid.NewString()
	}
	return nil
}
