package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/topicstream/topicstream/internal/db"
	"github.com/topicstream/topicstream/internal/models"
	"github.com/topicstream/topicstream/internal/syncer"
	"github.com/topicstream/topicstream/internal/twitter"
	"github.com/topicstream/topicstream/pkg/config"
)

type stubFeed struct {
	posts []twitter.RawPost
}

func (f *stubFeed) Search(ctx context.Context, query, sinceID string) ([]twitter.RawPost, error) {
	return f.posts, nil
}

type stubTranslator struct{}

func (stubTranslator) Translate(ctx context.Context, text string) (string, error) {
	return "EN: " + text, nil
}

func newTestRouter(t *testing.T, adminKey string, feed syncer.FeedSource) (*gin.Engine, *db.Repository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:api_%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&models.Topic{}, &models.Post{}, &models.TopicPost{}))

	repo := db.NewRepository(gdb)

	cfg := &config.Config{}
	cfg.Admin.APIKey = adminKey

	s := syncer.New(repo, feed, stubTranslator{})

	engine := gin.New()
	NewRouter(cfg, repo, nil, s).SetupRoutes(engine)
	return engine, repo
}

func seedTopic(t *testing.T, repo *db.Repository, slug string) *models.Topic {
	t.Helper()
	topic := &models.Topic{Slug: slug, Name: "News", Query: "news query"}
	require.NoError(t, db.NewTopicRepository(repo).Create(context.Background(), topic))
	return topic
}

func doRequest(engine *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestAdminAuth(t *testing.T) {
	engine, repo := newTestRouter(t, "secret", &stubFeed{})
	seedTopic(t, repo, "news")

	// Missing key
	w := doRequest(engine, http.MethodPost, "/admin/topics/news/sync", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())

	// Wrong key
	w = doRequest(engine, http.MethodPost, "/admin/topics/news/sync", "", map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Correct key
	w = doRequest(engine, http.MethodPost, "/admin/topics/news/sync", "", map[string]string{"X-API-Key": "secret"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminAuth_OpenWhenUnconfigured(t *testing.T) {
	engine, repo := newTestRouter(t, "", &stubFeed{})
	seedTopic(t, repo, "news")

	w := doRequest(engine, http.MethodPost, "/admin/topics/news/sync", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSyncTopic_NotFound(t *testing.T) {
	engine, _ := newTestRouter(t, "", &stubFeed{})

	w := doRequest(engine, http.MethodPost, "/admin/topics/missing/sync", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Topic not found"}`, w.Body.String())
}

func TestSyncTopic_ReturnsSummary(t *testing.T) {
	feed := &stubFeed{posts: []twitter.RawPost{
		{
			ID:        "100",
			Text:      "hello",
			CreatedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
			Author:    twitter.Author{ID: "u1", Name: "Alice", Username: "alice"},
		},
	}}
	engine, repo := newTestRouter(t, "", feed)
	seedTopic(t, repo, "news")

	w := doRequest(engine, http.MethodPost, "/admin/topics/news/sync", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var summary syncer.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.True(t, summary.Success)
	assert.Equal(t, 1, summary.SyncedCount)
	assert.Equal(t, 1, summary.TotalProcessed)
	assert.Equal(t, "100", summary.LatestPostID)
}

func TestCreateTopic(t *testing.T) {
	engine, repo := newTestRouter(t, "", &stubFeed{})

	w := doRequest(engine, http.MethodPost, "/admin/topics",
		`{"slug":"go-news","name":"Go News","query":"golang lang:ja"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	topic, err := db.NewTopicRepository(repo).GetBySlug(context.Background(), "go-news")
	require.NoError(t, err)
	require.NotNil(t, topic)
	assert.Equal(t, "golang lang:ja", topic.Query)

	// Duplicate slug
	w = doRequest(engine, http.MethodPost, "/admin/topics",
		`{"slug":"go-news","name":"Other","query":"other"}`, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateTopic_InvalidSlug(t *testing.T) {
	engine, _ := newTestRouter(t, "", &stubFeed{})

	for _, slug := range []string{"Bad Slug", "UPPER", "trailing-", "-leading", "sl/ash"} {
		body := fmt.Sprintf(`{"slug":%q,"name":"n","query":"q"}`, slug)
		w := doRequest(engine, http.MethodPost, "/admin/topics", body, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "slug %q should be rejected", slug)
	}
}

func TestListTopics(t *testing.T) {
	engine, repo := newTestRouter(t, "", &stubFeed{})
	seedTopic(t, repo, "news")

	w := doRequest(engine, http.MethodGet, "/topics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Topics []struct {
			Slug string `json:"slug"`
			Name string `json:"name"`
		} `json:"topics"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Topics, 1)
	assert.Equal(t, "news", body.Topics[0].Slug)
}

func TestTopicTimeline(t *testing.T) {
	engine, repo := newTestRouter(t, "", &stubFeed{})
	topic := seedTopic(t, repo, "news")
	ctx := context.Background()

	posts := db.NewPostRepository(repo)
	links := db.NewTopicPostRepository(repo)
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		post := &models.Post{
			TwitterPostID:  fmt.Sprintf("10%d", i),
			AuthorID:       "u1",
			AuthorName:     "Alice",
			AuthorUsername: "alice",
			OriginalText:   fmt.Sprintf("post %d", i),
			TweetedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, posts.Create(ctx, post))
		require.NoError(t, links.Link(ctx, topic.ID, post.ID))
	}

	w := doRequest(engine, http.MethodGet, "/topics/news/posts?page=1&limit=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Posts []postJSON `json:"posts"`
		Page  int        `json:"page"`
		Limit int        `json:"limit"`
		Total int64      `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(3), body.Total)
	require.Len(t, body.Posts, 2)
	assert.Equal(t, "102", body.Posts[0].TwitterPostID)
}

func TestTopicTimeline_NotFound(t *testing.T) {
	engine, _ := newTestRouter(t, "", &stubFeed{})

	w := doRequest(engine, http.MethodGet, "/topics/missing/posts", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	engine, _ := newTestRouter(t, "", &stubFeed{})

	w := doRequest(engine, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "topicstream-api")
}
