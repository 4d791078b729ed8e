package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/topicstream/topicstream/internal/cache"
	"github.com/topicstream/topicstream/internal/models"
)

// topicJSON is the public representation of a topic
type topicJSON struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// postJSON is the public representation of a post
type postJSON struct {
	ID               string    `json:"id"`
	TwitterPostID    string    `json:"twitterPostId"`
	AuthorName       string    `json:"authorName"`
	AuthorUsername   string    `json:"authorUsername"`
	AuthorAvatarURL  string    `json:"authorAvatarUrl,omitempty"`
	OriginalText     string    `json:"originalText"`
	TranslatedTextEn string    `json:"translatedTextEn,omitempty"`
	TweetedAt        time.Time `json:"tweetedAt"`
	LikeCount        int       `json:"likeCount"`
	RetweetCount     int       `json:"retweetCount"`
	ReplyCount       int       `json:"replyCount"`
}

func toPostJSON(p *models.Post) postJSON {
	out := postJSON{
		ID:             p.ID,
		TwitterPostID:  p.TwitterPostID,
		AuthorName:     p.AuthorName,
		AuthorUsername: p.AuthorUsername,
		OriginalText:   p.OriginalText,
		TweetedAt:      p.TweetedAt,
		LikeCount:      p.LikeCount,
		RetweetCount:   p.RetweetCount,
		ReplyCount:     p.ReplyCount,
	}
	if p.AuthorAvatarURL.Valid {
		out.AuthorAvatarURL = p.AuthorAvatarURL.String
	}
	if p.TranslatedTextEn.Valid {
		out.TranslatedTextEn = p.TranslatedTextEn.String
	}
	return out
}

// listTopics handles GET /topics
func (r *Router) listTopics(c *gin.Context) {
	topics, err := r.topics.List(c.Request.Context())
	if err != nil {
		r.logger.Error("Failed to list topics", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch topics"})
		return
	}

	out := make([]topicJSON, 0, len(topics))
	for _, t := range topics {
		out = append(out, topicJSON{ID: t.ID, Slug: t.Slug, Name: t.Name})
	}
	c.JSON(http.StatusOK, gin.H{"topics": out})
}

// topicTimeline handles GET /topics/:slug/posts with page/limit pagination.
// Pages are served from the Redis cache when available.
func (r *Router) topicTimeline(c *gin.Context) {
	slug := c.Param("slug")
	ctx := c.Request.Context()

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}
	if limit > r.timelineMax {
		limit = r.timelineMax
	}

	key := cache.TimelineKey(slug, page, limit)
	if cached, err := r.cache.Get(ctx, key); err == nil {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(cached))
		return
	}

	topic, err := r.topics.GetBySlug(ctx, slug)
	if err != nil {
		r.logger.Error("Failed to load topic", zap.String("topic", slug), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch topic"})
		return
	}
	if topic == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Topic not found"})
		return
	}

	posts, total, err := r.posts.ListByTopic(ctx, topic.ID, limit, (page-1)*limit)
	if err != nil {
		r.logger.Error("Failed to list posts", zap.String("topic", slug), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	outPosts := make([]postJSON, 0, len(posts))
	for _, p := range posts {
		outPosts = append(outPosts, toPostJSON(p))
	}

	response := gin.H{
		"topic": topicJSON{ID: topic.ID, Slug: topic.Slug, Name: topic.Name},
		"posts": outPosts,
		"page":  page,
		"limit": limit,
		"total": total,
	}

	if payload, err := json.Marshal(response); err == nil {
		if err := r.cache.Set(ctx, key, string(payload)); err != nil && err != cache.ErrCacheDisabled {
			r.logger.Warn("Failed to cache timeline page", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, response)
}
