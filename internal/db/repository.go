package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/topicstream/topicstream/internal/models"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB exposes the underlying connection handle
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// TopicRepository provides topic-related database operations
type TopicRepository struct {
	*Repository
}

// NewTopicRepository creates a new topic repository
func NewTopicRepository(repo *Repository) *TopicRepository {
	return &TopicRepository{Repository: repo}
}

// GetBySlug retrieves a topic by its URL slug
func (r *TopicRepository) GetBySlug(ctx context.Context, slug string) (*models.Topic, error) {
	var topic models.Topic
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&topic).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &topic, nil
}

// GetByID retrieves a topic by ID
func (r *TopicRepository) GetByID(ctx context.Context, id string) (*models.Topic, error) {
	var topic models.Topic
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&topic).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &topic, nil
}

// List retrieves all topics ordered by name
func (r *TopicRepository) List(ctx context.Context) ([]*models.Topic, error) {
	var topics []*models.Topic
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&topics).Error; err != nil {
		return nil, err
	}
	return topics, nil
}

// Create creates a new topic
func (r *TopicRepository) Create(ctx context.Context, topic *models.Topic) error {
	return r.db.WithContext(ctx).Create(topic).Error
}

// UpdateLatestPostID advances the topic's high-water mark. Written once
// per sync pass, after the whole batch has been processed.
func (r *TopicRepository) UpdateLatestPostID(ctx context.Context, topicID, postID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Topic{}).
		Where("id = ?", topicID).
		Update("latest_post_id", postID).Error
}

// PostRepository provides post-related database operations
type PostRepository struct {
	*Repository
}

// NewPostRepository creates a new post repository
func NewPostRepository(repo *Repository) *PostRepository {
	return &PostRepository{Repository: repo}
}

// GetByTwitterID retrieves a post by its upstream post id
func (r *PostRepository) GetByTwitterID(ctx context.Context, twitterPostID string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).
		Where("twitter_post_id = ?", twitterPostID).
		First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// Create creates a new post. Returns gorm.ErrDuplicatedKey if the
// twitter_post_id already exists; the unique index is the last line of
// defense behind the orchestrator's lookup.
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

// UpdateSnapshot overwrites the mutable fields of an existing post: the
// author snapshot and the engagement counters. Original text, tweeted_at
// and any stored translation are never touched here.
func (r *PostRepository) UpdateSnapshot(ctx context.Context, postID string, post *models.Post) error {
	return r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", postID).
		Updates(map[string]interface{}{
			"author_name":              post.AuthorName,
			"author_username":          post.AuthorUsername,
			"author_profile_image_url": post.AuthorAvatarURL,
			"like_count":               post.LikeCount,
			"retweet_count":            post.RetweetCount,
			"reply_count":              post.ReplyCount,
			"updated_at":               time.Now().UTC(),
		}).Error
}

// SetTranslation stores the translated text for a post
func (r *PostRepository) SetTranslation(ctx context.Context, postID, translated string) error {
	return r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", postID).
		Update("translated_text_en", translated).Error
}

// ListByTopic retrieves a page of posts linked to a topic, newest first.
// Soft-deleted posts are excluded. Returns the page and the total count.
func (r *PostRepository) ListByTopic(ctx context.Context, topicID string, limit, offset int) ([]*models.Post, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Joins("JOIN topic_posts ON topic_posts.post_id = posts.id").
		Where("topic_posts.topic_id = ? AND posts.is_deleted = ?", topicID, false).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Joins("JOIN topic_posts ON topic_posts.post_id = posts.id").
		Where("topic_posts.topic_id = ? AND posts.is_deleted = ?", topicID, false).
		Order("posts.tweeted_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error; err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// TopicPostRepository maintains the topic-to-post association
type TopicPostRepository struct {
	*Repository
}

// NewTopicPostRepository creates a new topic-post repository
func NewTopicPostRepository(repo *Repository) *TopicPostRepository {
	return &TopicPostRepository{Repository: repo}
}

// Exists reports whether a link already exists for (topic, post)
func (r *TopicPostRepository) Exists(ctx context.Context, topicID, postID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.TopicPost{}).
		Where("topic_id = ? AND post_id = ?", topicID, postID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Link creates the (topic, post) association. A concurrent duplicate
// insert surfaces as gorm.ErrDuplicatedKey and is treated as a no-op, so
// the call is idempotent from the caller's perspective.
func (r *TopicPostRepository) Link(ctx context.Context, topicID, postID string) error {
	link := &models.TopicPost{
		TopicID: topicID,
		PostID:  postID,
	}
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return err
	}
	return nil
}
