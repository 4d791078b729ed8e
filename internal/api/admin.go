package api

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/topicstream/topicstream/internal/models"
	"github.com/topicstream/topicstream/internal/syncer"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// adminAuth requires the X-API-Key header to match the configured admin
// key. When no key is configured the admin endpoints are open.
func (r *Router) adminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if r.adminKey == "" {
			c.Next()
			return
		}
		if c.GetHeader("X-API-Key") != r.adminKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// adminTopicJSON includes the sync watermark, which the public list hides
type adminTopicJSON struct {
	ID           string `json:"id"`
	Slug         string `json:"slug"`
	Name         string `json:"name"`
	Query        string `json:"query"`
	LatestPostID string `json:"latestPostId,omitempty"`
}

// adminListTopics handles GET /admin/topics
func (r *Router) adminListTopics(c *gin.Context) {
	topics, err := r.topics.List(c.Request.Context())
	if err != nil {
		r.logger.Error("Failed to list topics", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch topics"})
		return
	}

	out := make([]adminTopicJSON, 0, len(topics))
	for _, t := range topics {
		item := adminTopicJSON{
			ID:    t.ID,
			Slug:  t.Slug,
			Name:  t.Name,
			Query: t.Query,
		}
		if t.LatestPostID.Valid {
			item.LatestPostID = t.LatestPostID.String
		}
		out = append(out, item)
	}
	c.JSON(http.StatusOK, gin.H{"topics": out})
}

type createTopicRequest struct {
	Slug  string `json:"slug" binding:"required"`
	Name  string `json:"name" binding:"required"`
	Query string `json:"query" binding:"required"`
}

// createTopic handles POST /admin/topics
func (r *Router) createTopic(c *gin.Context) {
	var req createTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slug, name and query are required"})
		return
	}
	if !slugPattern.MatchString(req.Slug) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slug must be lowercase letters, digits and hyphens"})
		return
	}

	ctx := c.Request.Context()
	existing, err := r.topics.GetBySlug(ctx, req.Slug)
	if err != nil {
		r.logger.Error("Failed to check slug", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create topic"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Topic already exists"})
		return
	}

	topic := &models.Topic{
		Slug:  req.Slug,
		Name:  req.Name,
		Query: req.Query,
	}
	if err := r.topics.Create(ctx, topic); err != nil {
		r.logger.Error("Failed to create topic", zap.String("slug", req.Slug), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create topic"})
		return
	}

	c.JSON(http.StatusCreated, adminTopicJSON{
		ID:    topic.ID,
		Slug:  topic.Slug,
		Name:  topic.Name,
		Query: topic.Query,
	})
}

// syncTopic handles POST /admin/topics/:slug/sync
func (r *Router) syncTopic(c *gin.Context) {
	slug := c.Param("slug")

	summary, err := r.syncer.Sync(c.Request.Context(), slug)
	if err != nil {
		if errors.Is(err, syncer.ErrTopicNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Topic not found"})
			return
		}
		r.logger.Error("Sync failed", zap.String("topic", slug), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal server error",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}
