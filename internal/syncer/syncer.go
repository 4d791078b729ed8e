package syncer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/topicstream/topicstream/internal/db"
	"github.com/topicstream/topicstream/internal/models"
	"github.com/topicstream/topicstream/internal/twitter"
	"github.com/topicstream/topicstream/pkg/logging"
	"github.com/topicstream/topicstream/pkg/telemetry"
)

// ErrTopicNotFound is returned when the requested topic slug does not exist
var ErrTopicNotFound = errors.New("topic not found")

// Summary reports the outcome of one sync pass
type Summary struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	SyncedCount    int    `json:"syncedCount"`
	TotalProcessed int    `json:"totalProcessed"`
	LatestPostID   string `json:"latestPostId,omitempty"`
}

// Syncer reconciles the upstream feed against storage for one topic at a
// time. All collaborators are injected; the syncer owns no global state.
type Syncer struct {
	topics     *db.TopicRepository
	posts      *db.PostRepository
	topicPosts *db.TopicPostRepository
	feed       FeedSource
	translator Translator
	logger     *zap.Logger
}

// New creates a new syncer
func New(repo *db.Repository, feed FeedSource, translator Translator) *Syncer {
	return &Syncer{
		topics:     db.NewTopicRepository(repo),
		posts:      db.NewPostRepository(repo),
		topicPosts: db.NewTopicPostRepository(repo),
		feed:       feed,
		translator: translator,
		logger:     logging.GetLogger().With(zap.String("component", "syncer")),
	}
}

// Sync runs one reconciliation pass for the topic identified by slug.
//
// The pass is not wrapped in a transaction. Every step is individually
// idempotent instead: posts are keyed by their upstream id, links by the
// (topic, post) pair, and the watermark is computed over the whole batch
// and written once at the end. A crash mid-pass leaves the watermark at
// its old value, so the next pass re-fetches the tail and the uniqueness
// checks absorb the redelivery.
func (s *Syncer) Sync(ctx context.Context, slug string) (*Summary, error) {
	ctx, span := telemetry.StartSpan(ctx, "syncer.sync")
	defer span.End()

	logger := s.logger.With(zap.String("topic", slug))

	topic, err := s.topics.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to load topic %q: %w", slug, err)
	}
	if topic == nil {
		return nil, ErrTopicNotFound
	}

	watermark := ""
	if topic.LatestPostID.Valid {
		watermark = topic.LatestPostID.String
	}

	rawPosts, err := s.feed.Search(ctx, topic.Query, watermark)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch posts for topic %q: %w", slug, err)
	}

	if len(rawPosts) == 0 {
		logger.Info("No new posts found")
		return &Summary{
			Success:      true,
			Message:      "No new posts found",
			LatestPostID: watermark,
		}, nil
	}

	syncedCount := 0
	candidate := watermark

	for _, raw := range rawPosts {
		if newerPostID(raw.ID, candidate) {
			candidate = raw.ID
		}

		postID, needsTranslation, inserted, err := s.reconcilePost(ctx, &raw)
		if err != nil {
			// One bad item must not block the rest of the batch
			logger.Error("Failed to persist post, skipping",
				zap.String("twitter_post_id", raw.ID),
				zap.Error(err))
			continue
		}
		if inserted {
			syncedCount++
		}

		if needsTranslation {
			s.translatePost(ctx, logger, postID, raw.Text)
		}

		if err := s.linkPost(ctx, topic.ID, postID); err != nil {
			logger.Error("Failed to link post to topic",
				zap.String("twitter_post_id", raw.ID),
				zap.Error(err))
		}
	}

	if candidate != "" && candidate != watermark {
		if err := s.topics.UpdateLatestPostID(ctx, topic.ID, candidate); err != nil {
			return nil, fmt.Errorf("failed to advance watermark for topic %q: %w", slug, err)
		}
	}

	logger.Info("Sync pass finished",
		zap.Int("synced", syncedCount),
		zap.Int("processed", len(rawPosts)),
		zap.String("latest_post_id", candidate))

	return &Summary{
		Success:        true,
		Message:        fmt.Sprintf("Synced %d new posts", syncedCount),
		SyncedCount:    syncedCount,
		TotalProcessed: len(rawPosts),
		LatestPostID:   candidate,
	}, nil
}

// reconcilePost finds or creates the post row for one raw item. It
// returns the storage id, whether the post still needs a translation,
// and whether a new row was inserted.
func (s *Syncer) reconcilePost(ctx context.Context, raw *twitter.RawPost) (postID string, needsTranslation, inserted bool, err error) {
	existing, err := s.posts.GetByTwitterID(ctx, raw.ID)
	if err != nil {
		return "", false, false, fmt.Errorf("lookup by twitter id: %w", err)
	}

	if existing != nil {
		// Update path: refresh the author snapshot and counters only.
		// Original text, tweeted_at and any translation stay untouched.
		patch := &models.Post{
			AuthorName:      raw.Author.Name,
			AuthorUsername:  raw.Author.Username,
			AuthorAvatarURL: nullString(raw.Author.AvatarURL),
			LikeCount:       raw.Metrics.LikeCount,
			RetweetCount:    raw.Metrics.RetweetCount,
			ReplyCount:      raw.Metrics.ReplyCount,
		}
		if err := s.posts.UpdateSnapshot(ctx, existing.ID, patch); err != nil {
			return "", false, false, fmt.Errorf("update snapshot: %w", err)
		}
		return existing.ID, !existing.TranslatedTextEn.Valid, false, nil
	}

	post := &models.Post{
		TwitterPostID:   raw.ID,
		AuthorID:        raw.Author.ID,
		AuthorName:      raw.Author.Name,
		AuthorUsername:  raw.Author.Username,
		AuthorAvatarURL: nullString(raw.Author.AvatarURL),
		OriginalText:    raw.Text,
		TweetedAt:       raw.CreatedAt,
		LikeCount:       raw.Metrics.LikeCount,
		RetweetCount:    raw.Metrics.RetweetCount,
		ReplyCount:      raw.Metrics.ReplyCount,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return "", false, false, fmt.Errorf("insert post: %w", err)
	}
	return post.ID, true, true, nil
}

// translatePost fills in the missing translation. Failure is logged and
// swallowed: a dead translation API must never abort the sync or undo
// the post write.
func (s *Syncer) translatePost(ctx context.Context, logger *zap.Logger, postID, text string) {
	translated, err := s.translator.Translate(ctx, text)
	if err != nil {
		logger.Warn("Translation failed, leaving post untranslated",
			zap.String("post_id", postID),
			zap.Error(err))
		return
	}
	if err := s.posts.SetTranslation(ctx, postID, translated); err != nil {
		logger.Error("Failed to store translation",
			zap.String("post_id", postID),
			zap.Error(err))
	}
}

// linkPost attaches the post to the topic if not already linked
func (s *Syncer) linkPost(ctx context.Context, topicID, postID string) error {
	exists, err := s.topicPosts.Exists(ctx, topicID, postID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.topicPosts.Link(ctx, topicID, postID)
}

// newerPostID reports whether a is newer than b. X post ids are unsigned
// 64-bit snowflakes rendered as decimal strings, so both sides are
// compared numerically when they parse. Non-numeric ids (mock mode) fall
// back to length-then-lexicographic, which matches numeric order for
// decimal strings without leading zeros.
func newerPostID(a, b string) bool {
	if a == "" {
		return false
	}
	if b == "" {
		return true
	}
	av, aerr := strconv.ParseUint(a, 10, 64)
	bv, berr := strconv.ParseUint(b, 10, 64)
	if aerr == nil && berr == nil {
		return av > bv
	}
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return a > b
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
