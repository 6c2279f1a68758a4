package service_test

import (
	"context"
	"testing"
	"time"

	auditdomain "github.com/smallbiznis/utilitybill/internal/audit/domain"
	"github.com/smallbiznis/utilitybill/internal/clock"
	obscontext "github.com/smallbiznis/utilitybill/internal/observability/context"
	"github.com/smallbiznis/utilitybill/internal/testutil"
	"github.com/smallbiznis/utilitybill/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTakesActorAndClientFromContext(t *testing.T) {
	db := testutil.NewDB(t)
	node := testutil.NewNode(t)
	clk := clock.NewFakeClock(time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC))
	svc := testutil.NewAuditService(db, node, clk)

	ctx := obscontext.WithActor(context.Background(), string(auditdomain.ActorTypeOperator), "clerk-7")
	ctx = obscontext.WithClient(ctx, "10.0.0.4", "console/1.0")
	ctx = obscontext.WithRequestID(ctx, "req-1")

	require.NoError(t, svc.Record(ctx, nil, auditdomain.Entry{
		Action:     "house.create",
		TargetType: "house",
		TargetID:   "42",
		Metadata:   map[string]any{"mobile_number": "9876543210", "house_number": "H-1"},
	}))

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{Action: "house.create"})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	entry := resp.AuditLogs[0]
	assert.Equal(t, "operator", entry.ActorType)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, "clerk-7", *entry.ActorID)
	require.NotNil(t, entry.IPAddress)
	assert.Equal(t, "10.0.0.4", *entry.IPAddress)
	assert.Equal(t, "****3210", entry.Metadata["mobile_number"])
	assert.Equal(t, "H-1", entry.Metadata["house_number"])
	assert.Equal(t, "req-1", entry.Metadata["request_id"])
	assert.True(t, entry.CreatedAt.Equal(clk.Now()))
}

func TestRecordDefaultsAndValidation(t *testing.T) {
	db := testutil.NewDB(t)
	svc := testutil.NewAuditService(db, testutil.NewNode(t), clock.NewSystemClock())

	assert.ErrorIs(t, svc.Record(context.Background(), nil, auditdomain.Entry{Action: " "}), auditdomain.ErrInvalidAction)

	require.NoError(t, svc.Record(context.Background(), db, auditdomain.Entry{Action: "tariff.set"}))
	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	assert.Equal(t, "system", resp.AuditLogs[0].ActorType)
	assert.Equal(t, "unknown", resp.AuditLogs[0].TargetType)
	assert.Nil(t, resp.AuditLogs[0].TargetID)
}

func TestListPagesNewestFirst(t *testing.T) {
	db := testutil.NewDB(t)
	clk := clock.NewFakeClock(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))
	svc := testutil.NewAuditService(db, testutil.NewNode(t), clk)

	for _, action := range []string{"bill.generate", "payment.record", "bill.delete"} {
		require.NoError(t, svc.Record(context.Background(), nil, auditdomain.Entry{Action: action, TargetType: "bill"}))
		clk.Advance(time.Minute)
	}

	first, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{PageSize: 2},
	})
	require.NoError(t, err)
	require.Len(t, first.AuditLogs, 2)
	assert.Equal(t, "bill.delete", first.AuditLogs[0].Action)
	assert.True(t, first.HasMore)

	second, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken},
	})
	require.NoError(t, err)
	require.Len(t, second.AuditLogs, 1)
	assert.Equal(t, "bill.generate", second.AuditLogs[0].Action)
	assert.False(t, second.HasMore)

	from := time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.List(context.Background(), auditdomain.ListAuditLogRequest{StartAt: &from, EndAt: &to})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTimeRange)

	_, err = svc.List(context.Background(), auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageToken: "%%%"}})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)
}
