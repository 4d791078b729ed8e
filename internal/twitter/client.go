package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/topicstream/topicstream/pkg/config"
	"github.com/topicstream/topicstream/pkg/logging"
	"github.com/topicstream/topicstream/pkg/telemetry"
)

// RawPost is one post returned by the X recent-search API
type RawPost struct {
	ID        string
	Text      string
	CreatedAt time.Time
	Author    Author
	Metrics   Metrics
}

// Author is the post author snapshot as returned by the X API
type Author struct {
	ID        string
	Name      string
	Username  string
	AvatarURL string
}

// Metrics holds the public engagement counters of a post
type Metrics struct {
	LikeCount    int
	RetweetCount int
	ReplyCount   int
}

// searchResponse mirrors the X API v2 recent-search payload. Responses
// are decoded into this shape and validated before anything reaches the
// rest of the pipeline.
type searchResponse struct {
	Data []struct {
		ID            string `json:"id"`
		Text          string `json:"text"`
		CreatedAt     string `json:"created_at"`
		AuthorID      string `json:"author_id"`
		PublicMetrics *struct {
			LikeCount    int `json:"like_count"`
			RetweetCount int `json:"retweet_count"`
			ReplyCount   int `json:"reply_count"`
		} `json:"public_metrics"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID              string `json:"id"`
			Name            string `json:"name"`
			Username        string `json:"username"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"users"`
	} `json:"includes"`
}

// Client fetches posts from the X recent-search API. When no bearer
// token is configured it serves mock posts so the rest of the pipeline
// can run in development.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	bearerToken string
	maxResults  int
	limiter     *rate.Limiter
	logger      *zap.Logger
}

// New creates a new X API client
func New(cfg *config.TwitterConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("twitter_api_url is required")
	}

	logger := logging.GetLogger().With(zap.String("component", "twitter-client"))

	if cfg.BearerToken == "" {
		logger.Warn("TS_TWITTER_BEARER_TOKEN not set, serving mock posts")
	}

	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = 60
	}

	client := &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     cfg.BaseURL,
		bearerToken: cfg.BearerToken,
		maxResults:  cfg.MaxResults,
		limiter:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(rateLimit)), 1),
		logger:      logger,
	}

	logger.Info("Twitter client initialized", zap.String("url", cfg.BaseURL))

	return client, nil
}

// Search fetches recent posts matching the query. sinceID, when non-empty,
// restricts results to posts newer than that id.
func (c *Client) Search(ctx context.Context, query, sinceID string) ([]RawPost, error) {
	ctx, span := telemetry.StartSpan(ctx, "twitter.search_recent")
	defer span.End()

	if c.bearerToken == "" {
		return c.mockPosts(query), nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("tweet.fields", "created_at,public_metrics")
	params.Set("user.fields", "name,username,profile_image_url")
	params.Set("expansions", "author_id")
	params.Set("max_results", strconv.Itoa(c.maxResults))
	if sinceID != "" {
		params.Set("since_id", sinceID)
	}

	reqURL := fmt.Sprintf("%s/2/tweets/search/recent?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call X API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("X API error: %d %s", resp.StatusCode, resp.Status)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	return c.mapResponse(&body)
}

// mapResponse joins posts with their expanded authors and produces
// validated RawPost values
func (c *Client) mapResponse(body *searchResponse) ([]RawPost, error) {
	if len(body.Data) == 0 {
		return nil, nil
	}

	usersByID := make(map[string]Author, len(body.Includes.Users))
	for _, u := range body.Includes.Users {
		usersByID[u.ID] = Author{
			ID:        u.ID,
			Name:      u.Name,
			Username:  u.Username,
			AvatarURL: u.ProfileImageURL,
		}
	}

	posts := make([]RawPost, 0, len(body.Data))
	for _, t := range body.Data {
		if t.ID == "" || t.Text == "" {
			c.logger.Warn("Skipping malformed post in search response", zap.String("id", t.ID))
			continue
		}

		createdAt, err := time.Parse(time.RFC3339, t.CreatedAt)
		if err != nil {
			c.logger.Warn("Skipping post with invalid created_at",
				zap.String("id", t.ID),
				zap.String("created_at", t.CreatedAt))
			continue
		}

		author, ok := usersByID[t.AuthorID]
		if !ok {
			author = Author{ID: t.AuthorID, Name: "Unknown", Username: "unknown"}
		}

		post := RawPost{
			ID:        t.ID,
			Text:      t.Text,
			CreatedAt: createdAt,
			Author:    author,
		}
		if t.PublicMetrics != nil {
			post.Metrics = Metrics{
				LikeCount:    t.PublicMetrics.LikeCount,
				RetweetCount: t.PublicMetrics.RetweetCount,
				ReplyCount:   t.PublicMetrics.ReplyCount,
			}
		}
		posts = append(posts, post)
	}

	return posts, nil
}

// mockPosts returns synthetic posts for development without API access
func (c *Client) mockPosts(query string) []RawPost {
	now := time.Now().UTC()
	stamp := now.UnixMilli()
	return []RawPost{
		{
			ID:        fmt.Sprintf("mock_%d_1", stamp),
			Text:      fmt.Sprintf("これは「%s」に関するモック投稿です。X APIが利用可能になると、本物の投稿が表示されます。", query),
			CreatedAt: now,
			Author: Author{
				ID:       "mock_user_1",
				Name:     "テストユーザー",
				Username: "test_user",
			},
			Metrics: Metrics{LikeCount: 10, RetweetCount: 5, ReplyCount: 2},
		},
		{
			ID:        fmt.Sprintf("mock_%d_2", stamp),
			Text:      fmt.Sprintf("%sについての最新情報をお届けします。これはテスト用のサンプル投稿です。", query),
			CreatedAt: now.Add(-time.Minute),
			Author: Author{
				ID:       "mock_user_2",
				Name:     "サンプルアカウント",
				Username: "sample_account",
			},
			Metrics: Metrics{LikeCount: 25, RetweetCount: 10, ReplyCount: 5},
		},
	}
}
