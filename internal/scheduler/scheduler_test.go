package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	billdomain "github.com/smallbiznis/utilitybill/internal/bill/domain"
	"github.com/smallbiznis/utilitybill/internal/clock"
	obsmetrics "github.com/smallbiznis/utilitybill/internal/observability/metrics"
	"go.uber.org/zap"
)

type fakeBillService struct {
	billdomain.Service
	batches []int
	limits  []int
	err     error
}

func (f *fakeBillService) MarkOverdue(_ context.Context, limit int) (int, error) {
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return 0, f.err
	}
	if len(f.batches) == 0 {
		return 0, nil
	}
	next := f.batches[0]
	f.batches = f.batches[1:]
	return next, nil
}

func newTestScheduler(t *testing.T, bills billdomain.Service, cfg Config) *Scheduler {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	s, err := New(Params{
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   clock.NewFakeClock(time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC)),
		BillSvc: bills,
		Config:  cfg,
	})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	return s
}

func useTestRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	t.Cleanup(restore)

	obsmetrics.ResetSchedulerMetricsForTest()
	obsmetrics.SchedulerWithConfig(obsmetrics.Config{
		ServiceName: "utilitybill",
		Environment: "test",
	})
	return registry
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(Params{Log: zap.NewNop()}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestRunJobTimeoutDoesNotReturnErrorAndIncrementsTimeout(t *testing.T) {
	registry := useTestRegistry(t)

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	s := &Scheduler{log: zap.NewNop(), genID: node, clock: clock.NewFakeClock(time.Time{})}
	err = s.runJob(context.Background(), "timeout_job", 0, 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	labels := map[string]string{
		"service":       "utilitybill",
		"env":           "test",
		"scheduler_job": "timeout_job",
	}
	if got := getCounterValue(t, registry, "utilitybill_scheduler_job_timeouts_total", labels); got != 1 {
		t.Fatalf("expected timeout count 1, got %v", got)
	}

	errorLabels := map[string]string{
		"service":       "utilitybill",
		"env":           "test",
		"scheduler_job": "timeout_job",
		"reason":        obsmetrics.SchedulerJobReasonDeadlineExceeded,
	}
	if got := getCounterValue(t, registry, "utilitybill_scheduler_job_errors_total", errorLabels); got != 1 {
		t.Fatalf("expected error count 1, got %v", got)
	}
}

func TestRunJobMeasuresDurationOnSchedulerClock(t *testing.T) {
	registry := useTestRegistry(t)

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC))
	s := &Scheduler{log: zap.NewNop(), genID: node, clock: clk}
	err = s.runJob(context.Background(), "slow_job", 0, time.Minute, func(context.Context) error {
		clk.Advance(3 * time.Second)
		return nil
	})
	if err != nil {
		t.Fatalf("run job: %v", err)
	}

	labels := map[string]string{
		"service":       "utilitybill",
		"env":           "test",
		"scheduler_job": "slow_job",
	}
	count, sum := getHistogram(t, registry, "utilitybill_scheduler_job_duration_seconds", labels)
	if count != 1 || sum != 3 {
		t.Fatalf("expected one 3s observation, got count=%d sum=%v", count, sum)
	}
}

func TestMarkOverdueJobDrainsFullBatches(t *testing.T) {
	registry := useTestRegistry(t)
	bills := &fakeBillService{batches: []int{2, 2, 1}}
	s := newTestScheduler(t, bills, Config{BatchSize: 2})

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(bills.limits) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(bills.limits))
	}
	for _, limit := range bills.limits {
		if limit != 2 {
			t.Fatalf("expected batch size 2, got %d", limit)
		}
	}

	labels := map[string]string{
		"service":       "utilitybill",
		"env":           "test",
		"scheduler_job": JobMarkOverdue,
		"resource":      "bill",
	}
	if got := getCounterValue(t, registry, "utilitybill_scheduler_batch_processed_total", labels); got != 5 {
		t.Fatalf("expected 5 bills processed, got %v", got)
	}
}

func TestRunOnceReturnsJobErrors(t *testing.T) {
	useTestRegistry(t)
	bills := &fakeBillService{err: errors.New("database is closed")}
	s := newTestScheduler(t, bills, Config{})

	err := s.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, bills.err) {
		t.Fatalf("expected wrapped job error, got %v", err)
	}
}

func TestRunOnceSkipsDisabledJobs(t *testing.T) {
	useTestRegistry(t)
	bills := &fakeBillService{}
	s := newTestScheduler(t, bills, Config{EnabledJobs: []string{JobOutboxRelay}})

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(bills.limits) != 0 {
		t.Fatalf("mark_overdue should not run, got %d calls", len(bills.limits))
	}
}

func swapPrometheusRegistry(registry *prometheus.Registry) func() {
	oldRegisterer := prometheus.DefaultRegisterer
	oldGatherer := prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	return func() {
		prometheus.DefaultRegisterer = oldRegisterer
		prometheus.DefaultGatherer = oldGatherer
		obsmetrics.ResetSchedulerMetricsForTest()
	}
}

func getCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if !labelsMatch(metric, labels) {
				continue
			}
			if metric.Counter == nil {
				t.Fatalf("metric %s is not a counter", name)
			}
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func getHistogram(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) (uint64, float64) {
	t.Helper()
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if !labelsMatch(metric, labels) {
				continue
			}
			if metric.Histogram == nil {
				t.Fatalf("metric %s is not a histogram", name)
			}
			return metric.GetHistogram().GetSampleCount(), metric.GetHistogram().GetSampleSum()
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0, 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}
