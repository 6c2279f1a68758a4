package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/smallbiznis/utilitybill/internal/clock"
	"github.com/smallbiznis/utilitybill/internal/events"
	"github.com/smallbiznis/utilitybill/internal/events/mock"
	"github.com/smallbiznis/utilitybill/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func seedEvents(t *testing.T, db *gorm.DB, types ...string) {
	t.Helper()
	node := testutil.NewNode(t)
	outbox := events.NewOutbox(node, clock.NewFakeClock(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)))
	for _, eventType := range types {
		require.NoError(t, outbox.Record(context.Background(), db, eventType, node.Generate(), map[string]string{"type": eventType}))
	}
}

func pendingCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&events.BillingEvent{}).Where("published = ?", false).Count(&count).Error)
	return count
}

func TestRelayPublishesInOrder(t *testing.T) {
	db := testutil.NewDB(t)
	seedEvents(t, db, events.EventReadingRecorded, events.EventBillGenerated, events.EventPaymentRecorded)

	ctrl := gomock.NewController(t)
	publisher := mock.NewMockPublisher(ctrl)
	gomock.InOrder(
		publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e events.BillingEvent) error {
			assert.Equal(t, events.EventReadingRecorded, e.EventType)
			return nil
		}),
		publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e events.BillingEvent) error {
			assert.Equal(t, events.EventBillGenerated, e.EventType)
			return nil
		}),
	)

	clk := clock.NewFakeClock(time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC))
	relay := events.NewRelay(db, publisher, nil, clk, zap.NewNop())
	published, err := relay.RelayBatch(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, published)
	assert.Equal(t, int64(1), pendingCount(t, db))

	var done events.BillingEvent
	require.NoError(t, db.Where("event_type = ?", events.EventBillGenerated).First(&done).Error)
	assert.True(t, done.Published)
	require.NotNil(t, done.PublishedAt)
}

func TestRelayStopsAtFirstFailure(t *testing.T) {
	db := testutil.NewDB(t)
	seedEvents(t, db, events.EventBillGenerated, events.EventBillOverdue)

	ctrl := gomock.NewController(t)
	publisher := mock.NewMockPublisher(ctrl)
	publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down")).Times(1)

	relay := events.NewRelay(db, publisher, nil, clock.NewSystemClock(), zap.NewNop())
	published, err := relay.RelayBatch(context.Background(), 10)
	require.Error(t, err)
	assert.Equal(t, 0, published)
	assert.Equal(t, int64(2), pendingCount(t, db))
}

func TestRelayWithoutPublisherIsNoop(t *testing.T) {
	db := testutil.NewDB(t)
	seedEvents(t, db, events.EventBillGenerated)

	relay := events.NewRelay(db, nil, nil, clock.NewSystemClock(), zap.NewNop())
	assert.False(t, relay.Enabled())
	published, err := relay.RelayBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, published)
	assert.Equal(t, int64(1), pendingCount(t, db))
}
