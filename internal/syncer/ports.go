package syncer

import (
	"context"

	"github.com/topicstream/topicstream/internal/twitter"
)

// FeedSource supplies recent posts for a search query. sinceID, when
// non-empty, asks the upstream to return only posts newer than that id;
// the orchestrator does not rely on the upstream honoring it.
type FeedSource interface {
	Search(ctx context.Context, query, sinceID string) ([]twitter.RawPost, error)
}

// Translator translates post text to English
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}
