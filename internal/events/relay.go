package events

import (
	"context"
	"fmt"

	"github.com/smallbiznis/utilitybill/internal/clock"
	"github.com/smallbiznis/utilitybill/internal/observability/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Relay moves unpublished outbox rows to the publisher in id order.
type Relay struct {
	db        *gorm.DB
	publisher Publisher
	metrics   *metrics.Metrics
	clock     clock.Clock
	log       *zap.Logger
}

func NewRelay(db *gorm.DB, publisher Publisher, m *metrics.Metrics, clk clock.Clock, log *zap.Logger) *Relay {
	return &Relay{
		db:        db,
		publisher: publisher,
		metrics:   m,
		clock:     clk,
		log:       log.Named("events.relay"),
	}
}

// Enabled reports whether a publisher is configured.
func (r *Relay) Enabled() bool {
	return r != nil && r.publisher != nil
}

// RelayBatch publishes up to limit pending events. It stops at the first
// failure so later events of the same aggregate are not sent ahead of it.
func (r *Relay) RelayBatch(ctx context.Context, limit int) (int, error) {
	if !r.Enabled() {
		return 0, nil
	}
	if limit <= 0 {
		limit = 100
	}

	var pending []BillingEvent
	if err := r.db.WithContext(ctx).
		Where("published = ?", false).
		Order("id asc").
		Limit(limit).
		Find(&pending).Error; err != nil {
		return 0, err
	}

	published := 0
	for i := range pending {
		event := pending[i]
		if err := r.publisher.Publish(ctx, event); err != nil {
			return published, fmt.Errorf("publish event %s: %w", event.ID, err)
		}

		now := r.clock.Now()
		if err := r.db.WithContext(ctx).
			Model(&BillingEvent{}).
			Where("id = ?", event.ID).
			Updates(map[string]any{"published": true, "published_at": now}).Error; err != nil {
			return published, err
		}
		r.metrics.RecordEventPublished(ctx, event.EventType)
		published++
	}

	if published > 0 {
		r.log.Debug("relayed billing events", zap.Int("count", published))
	}
	return published, nil
}
