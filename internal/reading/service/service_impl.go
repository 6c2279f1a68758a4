package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/utilitybill/internal/audit/domain"
	billdomain "github.com/smallbiznis/utilitybill/internal/bill/domain"
	"github.com/smallbiznis/utilitybill/internal/billingrules"
	"github.com/smallbiznis/utilitybill/internal/clock"
	"github.com/smallbiznis/utilitybill/internal/config"
	"github.com/smallbiznis/utilitybill/internal/events"
	"github.com/smallbiznis/utilitybill/internal/observability/metrics"
	readingdomain "github.com/smallbiznis/utilitybill/internal/reading/domain"
	"github.com/smallbiznis/utilitybill/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	AuditSvc auditdomain.Service
	Repo     readingdomain.Repository
	Outbox   events.Recorder
	Billing  *config.BillingConfigHolder
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	auditSvc auditdomain.Service
	repo     readingdomain.Repository
	outbox   events.Recorder
	billing  *config.BillingConfigHolder
	metrics  *metrics.Metrics
}

func New(p Params) readingdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("reading.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		auditSvc: p.AuditSvc,
		repo:     p.Repo,
		outbox:   p.Outbox,
		billing:  p.Billing,
		metrics:  p.Metrics,
	}
}

type readingRecorded struct {
	ReadingID    string `json:"reading_id"`
	HouseID      string `json:"house_id"`
	Period       string `json:"period"`
	BilledEnergy string `json:"billed_energy"`
	CarryForward string `json:"carry_forward"`
}

func (s *Service) Upsert(ctx context.Context, req readingdomain.UpsertRequest) (*readingdomain.Response, error) {
	houseID, err := snowflake.ParseString(strings.TrimSpace(req.HouseID))
	if err != nil || houseID <= 0 {
		return nil, readingdomain.ErrInvalidHouse
	}
	period, err := billingrules.ParsePeriod(req.Period)
	if err != nil {
		return nil, readingdomain.ErrInvalidPeriod
	}
	if req.ImportReading == nil || req.WaterReading == nil {
		return nil, readingdomain.ErrInvalidReading
	}
	exportReading := decimal.Zero
	if req.ExportReading != nil {
		exportReading = *req.ExportReading
	}
	for _, v := range []decimal.Decimal{*req.ImportReading, exportReading, *req.WaterReading} {
		if v.IsNegative() {
			return nil, readingdomain.ErrInvalidReading
		}
	}

	rules := s.billing.Get().Rules()
	var saved *readingdomain.MeterReading
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.repo.HouseExists(ctx, tx, houseID)
		if err != nil {
			return err
		}
		if !exists {
			return readingdomain.ErrHouseNotFound
		}
		if err := s.ensureEditable(ctx, tx, houseID, period); err != nil {
			return err
		}

		now := s.clock.Now()
		reading, err := s.repo.FindByPeriod(ctx, tx, houseID, period)
		if err != nil {
			return err
		}
		inserted := false
		isNew := reading == nil
		if isNew {
			reading = &readingdomain.MeterReading{
				ID:          s.genID.Generate(),
				HouseID:     houseID,
				PeriodStart: period,
				CreatedAt:   now,
			}
		}
		reading.ImportReading = *req.ImportReading
		reading.ExportReading = exportReading
		reading.WaterReading = *req.WaterReading
		reading.UpdatedAt = now

		previous, err := s.repo.FindByPeriod(ctx, tx, houseID, billingrules.PreviousPeriodOf(period))
		if err != nil {
			return err
		}
		derive(rules, reading, previous)

		if isNew {
			inserted, err = s.repo.InsertIfAbsent(ctx, tx, reading)
			if err != nil {
				return err
			}
			if !inserted {
				// Lost a race with a concurrent insert; update that row instead.
				existing, err := s.repo.FindByPeriod(ctx, tx, houseID, period)
				if err != nil {
					return err
				}
				if existing == nil {
					return readingdomain.ErrNotFound
				}
				reading.ID = existing.ID
				reading.CreatedAt = existing.CreatedAt
			}
		}
		if !inserted {
			if err := s.repo.UpdateValues(ctx, tx, reading); err != nil {
				return err
			}
		}

		pending := billdomain.NewPending(s.genID.Generate(), houseID, reading.ID, period, now)
		if err := s.repo.EnsurePendingBill(ctx, tx, pending); err != nil {
			return err
		}
		if err := s.propagate(ctx, tx, rules, reading, now); err != nil {
			return err
		}

		if err := s.outbox.Record(ctx, tx, events.EventReadingRecorded, reading.ID, readingRecorded{
			ReadingID:    reading.ID.String(),
			HouseID:      houseID.String(),
			Period:       billingrules.FormatPeriod(period),
			BilledEnergy: reading.BilledEnergy.String(),
			CarryForward: reading.CarryForward.String(),
		}); err != nil {
			return err
		}
		saved = reading
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     "reading.upsert",
			TargetType: "meter_reading",
			TargetID:   reading.ID.String(),
			Metadata: map[string]any{
				"house_id": houseID.String(),
				"period":   billingrules.FormatPeriod(period),
				"created":  inserted,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("reading saved",
		zap.String("reading_id", saved.ID.String()),
		zap.String("house_id", houseID.String()),
		zap.String("period", billingrules.FormatPeriod(period)),
	)
	return toResponse(saved), nil
}

// ensureEditable rejects changes to a month whose bill, or whose successor's
// bill, has been generated. Both bills depend on the reading.
func (s *Service) ensureEditable(ctx context.Context, tx *gorm.DB, houseID snowflake.ID, period time.Time) error {
	for _, p := range []time.Time{period, period.AddDate(0, 1, 0)} {
		bill, err := s.repo.FindBill(ctx, tx, houseID, p)
		if err != nil {
			return err
		}
		if bill != nil && bill.Status != billingrules.StatusPending {
			return readingdomain.ErrBillGenerated
		}
	}
	return nil
}

// propagate re-derives the following months from current until a month whose
// bill is already generated. That month's reading must come out unchanged,
// otherwise its bill no longer matches the chain and the edit is rejected.
func (s *Service) propagate(ctx context.Context, tx *gorm.DB, rules billingrules.Rules, current *readingdomain.MeterReading, now time.Time) error {
	for {
		nextPeriod := current.PeriodStart.AddDate(0, 1, 0)
		next, err := s.repo.FindByPeriod(ctx, tx, current.HouseID, nextPeriod)
		if err != nil || next == nil {
			return err
		}
		bill, err := s.repo.FindBill(ctx, tx, current.HouseID, nextPeriod)
		if err != nil {
			return err
		}
		if bill != nil && bill.Status != billingrules.StatusPending {
			if rederived(rules, next, current) {
				return fmt.Errorf("%w: %s", readingdomain.ErrBillGenerated, billingrules.FormatPeriod(nextPeriod))
			}
			return nil
		}
		derive(rules, next, current)
		next.UpdatedAt = now
		if err := s.repo.UpdateValues(ctx, tx, next); err != nil {
			return err
		}
		current = next
	}
}

// rederived reports whether deriving reading from previous would change it.
func rederived(rules billingrules.Rules, reading, previous *readingdomain.MeterReading) bool {
	copied := *reading
	derive(rules, &copied, previous)
	if (copied.PreviousReadingID == nil) != (reading.PreviousReadingID == nil) ||
		(copied.PreviousReadingID != nil && *copied.PreviousReadingID != *reading.PreviousReadingID) {
		return true
	}
	return !copied.Consumption.Equal(reading.Consumption) ||
		!copied.BilledEnergy.Equal(reading.BilledEnergy) ||
		!copied.CarryForward.Equal(reading.CarryForward) ||
		!copied.WaterConsumption.Equal(reading.WaterConsumption)
}

func derive(rules billingrules.Rules, reading, previous *readingdomain.MeterReading) {
	var prev *billingrules.PreviousPeriod
	reading.PreviousReadingID = nil
	if previous != nil {
		prev = previous.AsPrevious()
		id := previous.ID
		reading.PreviousReadingID = &id
	}

	current := reading.Values()
	result := rules.ComputeConsumption(current, prev, reading.PeriodStart.Month())
	reading.Consumption = result.Consumption
	reading.BilledEnergy = result.BilledEnergy
	reading.CarryForward = result.CarryForward
	reading.WaterConsumption = billingrules.WaterConsumption(current, prev)
}

func (s *Service) List(ctx context.Context, req readingdomain.ListRequest) (readingdomain.ListResponse, error) {
	filter := readingdomain.ListFilter{Limit: req.Size()}
	if raw := strings.TrimSpace(req.HouseID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id <= 0 {
			return readingdomain.ListResponse{}, readingdomain.ErrInvalidHouse
		}
		filter.HouseID = id
	}
	if raw := strings.TrimSpace(req.Period); raw != "" {
		period, err := billingrules.ParsePeriod(raw)
		if err != nil {
			return readingdomain.ListResponse{}, readingdomain.ErrInvalidPeriod
		}
		filter.Period = &period
	}
	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return readingdomain.ListResponse{}, err
	}
	filter.BeforeID = cursor.ID

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return readingdomain.ListResponse{}, err
	}
	items, pageInfo := pagination.BuildCursorPageInfo(items, filter.Limit, func(r *readingdomain.MeterReading) int64 {
		return int64(r.ID)
	})

	resp := readingdomain.ListResponse{PageInfo: pageInfo, Readings: make([]readingdomain.Response, 0, len(items))}
	for _, item := range items {
		resp.Readings = append(resp.Readings, *toResponse(item))
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*readingdomain.Response, error) {
	reading, err := s.find(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return toResponse(reading), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reading, err := s.find(ctx, tx, id)
		if err != nil {
			return err
		}

		bill, err := s.repo.FindBill(ctx, tx, reading.HouseID, reading.PeriodStart)
		if err != nil {
			return err
		}
		if bill != nil && bill.Status != billingrules.StatusPending {
			return readingdomain.ErrBillGenerated
		}
		next, err := s.repo.FindByPeriod(ctx, tx, reading.HouseID, reading.PeriodStart.AddDate(0, 1, 0))
		if err != nil {
			return err
		}
		if next != nil {
			return readingdomain.ErrHasSuccessor
		}

		if bill != nil {
			if err := s.repo.DeleteBill(ctx, tx, bill.ID); err != nil {
				return err
			}
		}
		if err := s.repo.Delete(ctx, tx, reading.ID); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     "reading.delete",
			TargetType: "meter_reading",
			TargetID:   reading.ID.String(),
			Metadata: map[string]any{
				"house_id": reading.HouseID.String(),
				"period":   billingrules.FormatPeriod(reading.PeriodStart),
			},
		})
	})
}

func (s *Service) Recalculate(ctx context.Context, id string) (*readingdomain.Response, error) {
	rules := s.billing.Get().Rules()
	var reading *readingdomain.MeterReading
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		reading, err = s.find(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.ensureEditable(ctx, tx, reading.HouseID, reading.PeriodStart); err != nil {
			return err
		}

		previous, err := s.repo.FindByPeriod(ctx, tx, reading.HouseID, billingrules.PreviousPeriodOf(reading.PeriodStart))
		if err != nil {
			return err
		}
		now := s.clock.Now()
		derive(rules, reading, previous)
		reading.UpdatedAt = now
		if err := s.repo.UpdateValues(ctx, tx, reading); err != nil {
			return err
		}
		if err := s.propagate(ctx, tx, rules, reading, now); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     "reading.recalculate",
			TargetType: "meter_reading",
			TargetID:   reading.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return toResponse(reading), nil
}

func (s *Service) find(ctx context.Context, tx *gorm.DB, rawID string) (*readingdomain.MeterReading, error) {
	id, err := readingdomain.ParseID(strings.TrimSpace(rawID))
	if err != nil {
		return nil, err
	}
	reading, err := s.repo.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if reading == nil {
		return nil, readingdomain.ErrNotFound
	}
	return reading, nil
}

func toResponse(r *readingdomain.MeterReading) *readingdomain.Response {
	resp := &readingdomain.Response{
		ID:               r.ID.String(),
		HouseID:          r.HouseID.String(),
		Period:           billingrules.FormatPeriod(r.PeriodStart),
		ImportReading:    r.ImportReading,
		ExportReading:    r.ExportReading,
		WaterReading:     r.WaterReading,
		Consumption:      r.Consumption,
		BilledEnergy:     r.BilledEnergy,
		CarryForward:     r.CarryForward,
		WaterConsumption: r.WaterConsumption,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.PreviousReadingID != nil {
		id := r.PreviousReadingID.String()
		resp.PreviousReadingID = &id
	}
	return resp
}
