package syncer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/topicstream/topicstream/internal/db"
	"github.com/topicstream/topicstream/pkg/config"
	"github.com/topicstream/topicstream/pkg/logging"
)

// Daemon periodically runs a sync pass for every topic. Passes are
// sequential; a failing topic is logged and the loop moves on.
type Daemon struct {
	syncer *Syncer
	topics *db.TopicRepository
	config *config.SyncerConfig
	logger *zap.Logger
}

// NewDaemon creates a new sync daemon
func NewDaemon(cfg *config.SyncerConfig, repo *db.Repository, s *Syncer) *Daemon {
	return &Daemon{
		syncer: s,
		topics: db.NewTopicRepository(repo),
		config: cfg,
		logger: logging.GetLogger().With(zap.String("component", "sync-daemon")),
	}
}

// Run starts the sync loop and blocks until the context is cancelled
func (d *Daemon) Run(ctx context.Context) error {
	d.logger.Info("Starting sync daemon", zap.Int("interval_seconds", d.config.Interval))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			d.syncAll(ctx)
			d.wait(ctx, d.config.Interval)
		}
	}
}

// syncAll runs one pass over every topic
func (d *Daemon) syncAll(ctx context.Context) {
	topics, err := d.topics.List(ctx)
	if err != nil {
		d.logger.Error("Failed to list topics", zap.Error(err))
		return
	}

	for _, topic := range topics {
		summary, err := d.syncer.Sync(ctx, topic.Slug)
		if err != nil {
			d.logger.Error("Topic sync failed",
				zap.String("topic", topic.Slug),
				zap.Error(err))
			continue
		}
		d.logger.Info("Topic synced",
			zap.String("topic", topic.Slug),
			zap.Int("synced", summary.SyncedCount),
			zap.Int("processed", summary.TotalProcessed))
	}
}

// wait waits for the specified duration or until context is cancelled
func (d *Daemon) wait(ctx context.Context, seconds int) {
	timer := time.NewTimer(time.Duration(seconds) * time.Second)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
		return
	}
}
