package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	billdomain "github.com/smallbiznis/utilitybill/internal/bill/domain"
	"github.com/smallbiznis/utilitybill/internal/clock"
	"github.com/smallbiznis/utilitybill/internal/events"
	obsmetrics "github.com/smallbiznis/utilitybill/internal/observability/metrics"
	"github.com/smallbiznis/utilitybill/internal/observability/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobMarkOverdue = "mark_overdue"
	JobOutboxRelay = "outbox_relay"

	// maxRoundsPerRun bounds how many full batches one job drains per tick.
	maxRoundsPerRun = 10
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	BillSvc billdomain.Service
	Relay   *events.Relay
	Config  Config `optional:"true"`
}

type Scheduler struct {
	log     *zap.Logger
	cfg     Config
	genID   *snowflake.Node
	clock   clock.Clock
	billSvc billdomain.Service
	relay   *events.Relay
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.BillSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     p.Config.withDefaults(),
		genID:   p.GenID,
		clock:   p.Clock,
		billSvc: p.BillSvc,
		relay:   p.Relay,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) (err error) {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, span := tracing.StartSpan(ctx, "scheduler."+name, attribute.String("scheduler.job", name))
	defer func() { tracing.EndSpan(span, err) }()

	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	jobErr := fn(ctx)
	schedMetrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if owner {
		if jobErr != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if jobErr == nil {
		return nil
	}

	// A timed out job resumes on the next tick.
	isTimeout := errors.Is(jobErr, context.DeadlineExceeded) || errors.Is(jobErr, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, jobErr)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(jobErr),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, jobErr)
}

// RunOnce runs every enabled job once and joins their errors.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{JobMarkOverdue, s.MarkOverdueJob},
		{JobOutboxRelay, s.OutboxRelayJob},
	}

	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, s.cfg.BatchSize, s.cfg.JobTimeout, job.Run))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		runLag := s.clock.Now().Sub(nextRun)
		if runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// MarkOverdueJob moves bills past their due date to OVERDUE, draining full
// batches until a short one comes back.
func (s *Scheduler) MarkOverdueJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	for round := 0; round < maxRoundsPerRun; round++ {
		marked, err := s.billSvc.MarkOverdue(ctx, s.cfg.BatchSize)
		if err != nil {
			s.logSchedulerError(ctx, run, "scheduler.mark_overdue.failed", JobMarkOverdue, err)
			return err
		}
		run.AddProcessed(marked)
		obsmetrics.Scheduler().AddBatchProcessed(JobMarkOverdue, "bill", marked)
		if marked < s.cfg.BatchSize {
			return nil
		}
	}
	return nil
}

// OutboxRelayJob publishes pending billing events when a broker is configured.
func (s *Scheduler) OutboxRelayJob(ctx context.Context) error {
	if !s.relay.Enabled() {
		return nil
	}
	run := jobRunFromContext(ctx)
	for round := 0; round < maxRoundsPerRun; round++ {
		published, err := s.relay.RelayBatch(ctx, s.cfg.BatchSize)
		run.AddProcessed(published)
		obsmetrics.Scheduler().AddBatchProcessed(JobOutboxRelay, "event", published)
		if err != nil {
			s.logSchedulerError(ctx, run, "scheduler.outbox_relay.failed", JobOutboxRelay, err)
			return err
		}
		if published < s.cfg.BatchSize {
			return nil
		}
	}
	return nil
}
