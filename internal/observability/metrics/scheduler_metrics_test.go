package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smallbiznis/utilitybill/internal/billingrules"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: SchedulerJobReasonDeadlineExceeded},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: SchedulerJobReasonDBLockTimeout},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: SchedulerJobReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: SchedulerJobReasonUniqueViolation},
		{name: "pg_unique_violation", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), want: SchedulerJobReasonUniqueViolation},
		{name: "business_rule", err: fmt.Errorf("generate: %w", billingrules.ErrUnconfiguredTariff), want: SchedulerJobReasonBusinessRule},
		{name: "broker", err: fmt.Errorf("%w: dial tcp", ErrBrokerUnavailable), want: SchedulerJobReasonBrokerUnavailable},
		{name: "unknown", err: errors.New("boom"), want: SchedulerJobReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifySchedulerJobReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestAddBatchProcessed(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newSchedulerMetrics(registry, Config{
		ServiceName: "utilitybill",
		Environment: "test",
	})

	metrics.AddBatchProcessed("mark_overdue", "bills", 3)
	metrics.AddBatchProcessed("mark_overdue", "bills", 0)

	got := testutil.ToFloat64(metrics.batchProcessed.WithLabelValues("mark_overdue", "bills"))
	if got != 3 {
		t.Fatalf("expected processed count 3, got %v", got)
	}
}
