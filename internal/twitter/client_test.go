package twitter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/topicstream/topicstream/pkg/config"
)

func newTestClient(t *testing.T, baseURL, token string) *Client {
	t.Helper()

	client, err := New(&config.TwitterConfig{
		BearerToken: token,
		BaseURL:     baseURL,
		MaxResults:  100,
		RateLimit:   600,
	})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client
}

func TestSearch_MapsResponse(t *testing.T) {
	var gotQuery, gotSinceID, gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		gotSinceID = r.URL.Query().Get("since_id")
		gotAuth = r.Header.Get("Authorization")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"data": [
				{
					"id": "100",
					"text": "hello world",
					"created_at": "2026-08-30T12:00:00Z",
					"author_id": "u1",
					"public_metrics": {"like_count": 3, "retweet_count": 2, "reply_count": 1}
				},
				{
					"id": "101",
					"text": "no metrics",
					"created_at": "2026-08-30T12:05:00Z",
					"author_id": "u2"
				}
			],
			"includes": {
				"users": [
					{"id": "u1", "name": "Alice", "username": "alice", "profile_image_url": "https://example.com/a.png"}
				]
			}
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "token-123")

	posts, err := client.Search(context.Background(), "golang", "99")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if gotQuery != "golang" {
		t.Errorf("Expected query 'golang', got %q", gotQuery)
	}
	if gotSinceID != "99" {
		t.Errorf("Expected since_id '99', got %q", gotSinceID)
	}
	if gotAuth != "Bearer token-123" {
		t.Errorf("Expected bearer auth header, got %q", gotAuth)
	}

	if len(posts) != 2 {
		t.Fatalf("Expected 2 posts, got %d", len(posts))
	}

	first := posts[0]
	if first.ID != "100" || first.Text != "hello world" {
		t.Errorf("Unexpected first post: %+v", first)
	}
	if first.Author.Name != "Alice" || first.Author.AvatarURL != "https://example.com/a.png" {
		t.Errorf("Expected expanded author, got %+v", first.Author)
	}
	if first.Metrics.LikeCount != 3 || first.Metrics.RetweetCount != 2 || first.Metrics.ReplyCount != 1 {
		t.Errorf("Unexpected metrics: %+v", first.Metrics)
	}

	// Missing author expansion falls back to a placeholder, missing
	// metrics default to zero
	second := posts[1]
	if second.Author.Name != "Unknown" || second.Author.Username != "unknown" {
		t.Errorf("Expected placeholder author, got %+v", second.Author)
	}
	if second.Metrics.LikeCount != 0 {
		t.Errorf("Expected zero metrics, got %+v", second.Metrics)
	}
}

func TestSearch_OmitsSinceIDWhenEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.URL.Query()["since_id"]; ok {
			t.Error("since_id should not be sent on first sync")
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "token-123")

	posts, err := client.Search(context.Background(), "golang", "")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("Expected empty result, got %d posts", len(posts))
	}
}

func TestSearch_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "token-123")

	if _, err := client.Search(context.Background(), "golang", ""); err == nil {
		t.Fatal("Expected error on non-200 response")
	}
}

func TestSearch_SkipsMalformedItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"data": [
				{"id": "", "text": "no id", "created_at": "2026-08-30T12:00:00Z", "author_id": "u1"},
				{"id": "101", "text": "bad timestamp", "created_at": "not-a-time", "author_id": "u1"},
				{"id": "102", "text": "ok", "created_at": "2026-08-30T12:00:00Z", "author_id": "u1"}
			],
			"includes": {"users": []}
		}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "token-123")

	posts, err := client.Search(context.Background(), "golang", "")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != "102" {
		t.Fatalf("Expected only the valid post, got %+v", posts)
	}
}

func TestSearch_MockModeWithoutToken(t *testing.T) {
	client := newTestClient(t, "https://api.twitter.com", "")

	posts, err := client.Search(context.Background(), "テスト", "")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("Expected 2 mock posts, got %d", len(posts))
	}
	for _, p := range posts {
		if p.ID == "" || !strings.HasPrefix(p.ID, "mock_") {
			t.Errorf("Expected mock id, got %q", p.ID)
		}
		if !strings.Contains(p.Text, "テスト") {
			t.Errorf("Expected mock text to carry the query, got %q", p.Text)
		}
	}
	if posts[0].ID == posts[1].ID {
		t.Error("Mock posts must have distinct ids")
	}
}
