package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/topicstream/topicstream/internal/cache"
	"github.com/topicstream/topicstream/internal/db"
	"github.com/topicstream/topicstream/internal/syncer"
	"github.com/topicstream/topicstream/pkg/config"
	"github.com/topicstream/topicstream/pkg/logging"
)

// Router sets up API routes
type Router struct {
	topics      *db.TopicRepository
	posts       *db.PostRepository
	cache       *cache.Cache
	syncer      *syncer.Syncer
	adminKey    string
	timelineMax int
	logger      *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(cfg *config.Config, repo *db.Repository, redisCache *cache.Cache, s *syncer.Syncer) *Router {
	return &Router{
		topics:      db.NewTopicRepository(repo),
		posts:       db.NewPostRepository(repo),
		cache:       redisCache,
		syncer:      s,
		adminKey:    cfg.Admin.APIKey,
		timelineMax: 100,
		logger:      logging.GetLogger().With(zap.String("component", "api-router")),
	}
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	// Public API
	engine.GET("/topics", r.listTopics)
	engine.GET("/topics/:slug/posts", r.topicTimeline)

	// Admin API
	admin := engine.Group("/admin", r.adminAuth())
	admin.GET("/topics", r.adminListTopics)
	admin.POST("/topics", r.createTopic)
	admin.POST("/topics/:slug/sync", r.syncTopic)
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "OK",
		"service": "topicstream-api",
	})
}
