package service

import (
	"context"
	"errors"
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
	housedomain "github.com/smallbiznis/utilitybill/internal/house/domain"
	"github.com/smallbiznis/utilitybill/internal/lock"
	"github.com/smallbiznis/utilitybill/internal/observability/metrics"
	"github.com/smallbiznis/utilitybill/internal/observability/tracing"
	"github.com/smallbiznis/utilitybill/internal/providers/pdf"
	readingdomain "github.com/smallbiznis/utilitybill/internal/reading/domain"
	tariffdomain "github.com/smallbiznis/utilitybill/internal/tariff/domain"
	"github.com/smallbiznis/utilitybill/pkg/db/pagination"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	AuditSvc    auditdomain.Service
	TariffSvc   tariffdomain.Service
	Repo        billdomain.Repository
	HouseRepo   housedomain.Repository
	ReadingRepo readingdomain.Repository
	Outbox      events.Recorder
	Billing     *config.BillingConfigHolder
	Renderer    pdf.Renderer
	Locker      *lock.Locker     `optional:"true"`
	Metrics     *metrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	auditSvc    auditdomain.Service
	tariffSvc   tariffdomain.Service
	repo        billdomain.Repository
	houseRepo   housedomain.Repository
	readingRepo readingdomain.Repository
	outbox      events.Recorder
	billing     *config.BillingConfigHolder
	renderer    pdf.Renderer
	locker      *lock.Locker
	metrics     *metrics.Metrics
}

func New(p Params) billdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("bill.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		auditSvc:    p.AuditSvc,
		tariffSvc:   p.TariffSvc,
		repo:        p.Repo,
		houseRepo:   p.HouseRepo,
		readingRepo: p.ReadingRepo,
		outbox:      p.Outbox,
		billing:     p.Billing,
		renderer:    p.Renderer,
		locker:      p.Locker,
		metrics:     p.Metrics,
	}
}

type billEvent struct {
	BillID        string `json:"bill_id"`
	HouseID       string `json:"house_id"`
	Period        string `json:"period"`
	Status        string `json:"status"`
	Version       int64  `json:"version"`
	TotalStandard string `json:"total_standard_amount"`
	TotalPenalty  string `json:"total_penalty_amount"`
}

func newBillEvent(b *billdomain.Bill) billEvent {
	return billEvent{
		BillID:        b.ID.String(),
		HouseID:       b.HouseID.String(),
		Period:        billingrules.FormatPeriod(b.PeriodStart),
		Status:        string(b.Status),
		Version:       b.Version,
		TotalStandard: b.TotalStandard.StringFixed(2),
		TotalPenalty:  b.TotalPenalty.StringFixed(2),
	}
}

func (s *Service) Generate(ctx context.Context, req billdomain.GenerateRequest) (resp *billdomain.Response, err error) {
	houseID, err := snowflake.ParseString(strings.TrimSpace(req.HouseID))
	if err != nil || houseID <= 0 {
		return nil, billdomain.ErrInvalidHouse
	}
	period, err := billingrules.ParsePeriod(req.Period)
	if err != nil {
		return nil, billdomain.ErrInvalidPeriod
	}

	ctx, span := tracing.StartSpan(ctx, "bill.generate",
		attribute.String("house.id", houseID.String()),
		attribute.String("billing.period", billingrules.FormatPeriod(period)),
	)
	defer func() { tracing.EndSpan(span, err) }()

	bill, err := s.generate(ctx, houseID, period)
	if err != nil {
		s.metrics.RecordBillGenerated(ctx, "rejected")
		return nil, err
	}
	s.metrics.RecordBillGenerated(ctx, "generated")
	s.log.Info("bill generated",
		zap.String("bill_id", bill.ID.String()),
		zap.String("house_id", houseID.String()),
		zap.String("period", billingrules.FormatPeriod(period)),
		zap.String("total_standard", bill.TotalStandard.StringFixed(2)),
	)
	return toResponse(bill, false), nil
}

func (s *Service) generate(ctx context.Context, houseID snowflake.ID, period time.Time) (*billdomain.Bill, error) {
	release, err := s.locker.Acquire(ctx, fmt.Sprintf("bill:%s:%s", houseID, billingrules.FormatPeriod(period)))
	if err != nil {
		if errors.Is(err, lock.ErrBusy) {
			return nil, billdomain.ErrInProgress
		}
		return nil, err
	}
	defer release(context.WithoutCancel(ctx))

	var bill *billdomain.Bill
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		house, err := s.houseRepo.FindByID(ctx, tx, houseID)
		if err != nil {
			return err
		}
		if house == nil {
			return billdomain.ErrHouseNotFound
		}

		bill, err = s.repo.FindByPeriod(ctx, tx, houseID, period, true)
		if err != nil {
			return err
		}
		if bill != nil && bill.Status != billingrules.StatusPending {
			return billdomain.ErrAlreadyGenerated
		}

		now := s.clock.Now()
		reading, err := s.readingRepo.FindByPeriod(ctx, tx, houseID, period)
		if err != nil {
			return err
		}
		if reading == nil {
			return fmt.Errorf("%w: current reading", billingrules.ErrReadingNotEntered)
		}
		if err := s.ensureInOrder(ctx, tx, houseID, period); err != nil {
			return err
		}
		if bill == nil {
			pending := billdomain.NewPending(s.genID.Generate(), houseID, reading.ID, period, now)
			if err := s.readingRepo.EnsurePendingBill(ctx, tx, pending); err != nil {
				return err
			}
			bill, err = s.repo.FindByPeriod(ctx, tx, houseID, period, true)
			if err != nil {
				return err
			}
			if bill == nil || bill.Status != billingrules.StatusPending {
				return billdomain.ErrAlreadyGenerated
			}
		}

		if err := s.compute(ctx, tx, bill, house, reading, now); err != nil {
			return err
		}
		if err := s.repo.Save(ctx, tx, bill); err != nil {
			return err
		}
		if err := s.outbox.Record(ctx, tx, events.EventBillGenerated, bill.ID, newBillEvent(bill)); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     "bill.generate",
			TargetType: "bill",
			TargetID:   bill.ID.String(),
			Metadata: map[string]any{
				"house_id":       houseID.String(),
				"period":         billingrules.FormatPeriod(period),
				"total_standard": bill.TotalStandard.StringFixed(2),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return bill, nil
}

// ensureInOrder keeps generation chronological. The next month must still be
// pending, and the previous month must be generated unless it has no reading
// of its own to be billed against.
func (s *Service) ensureInOrder(ctx context.Context, tx *gorm.DB, houseID snowflake.ID, period time.Time) error {
	successor, err := s.repo.FindByPeriod(ctx, tx, houseID, period.AddDate(0, 1, 0), false)
	if err != nil {
		return err
	}
	if successor != nil && successor.Status != billingrules.StatusPending {
		return billdomain.ErrSuccessorGenerated
	}

	previousPeriod := billingrules.PreviousPeriodOf(period)
	previous, err := s.repo.FindByPeriod(ctx, tx, houseID, previousPeriod, false)
	if err != nil || previous == nil || previous.Status != billingrules.StatusPending {
		return err
	}
	earlier, err := s.readingRepo.FindByPeriod(ctx, tx, houseID, billingrules.PreviousPeriodOf(previousPeriod))
	if err != nil {
		return err
	}
	if earlier != nil {
		return fmt.Errorf("%w: bill for %s not generated", billingrules.ErrMissingPrerequisite, billingrules.FormatPeriod(previousPeriod))
	}
	return nil
}

// compute fills bill from the reading, the tariff in force, the house fees
// and the arrears of the previous month's bill.
func (s *Service) compute(ctx context.Context, tx *gorm.DB, bill *billdomain.Bill, house *housedomain.House, reading *readingdomain.MeterReading, now time.Time) error {
	cfg := s.billing.Get()
	rules := cfg.Rules()
	previousPeriod := billingrules.PreviousPeriodOf(bill.PeriodStart)

	previousReading, err := s.readingRepo.FindByPeriod(ctx, tx, bill.HouseID, previousPeriod)
	if err != nil {
		return err
	}
	previousBill, err := s.repo.FindByPeriod(ctx, tx, bill.HouseID, previousPeriod, false)
	if err != nil {
		return err
	}
	if err := billingrules.CheckPrerequisites(billingrules.Prerequisites{
		Current:            reading.Values(),
		HasPreviousReading: previousReading != nil,
		HasPreviousBill:    previousBill != nil,
	}); err != nil {
		return err
	}

	rates, err := s.tariffSvc.Resolve(ctx, tx, bill.PeriodStart)
	if err != nil {
		return err
	}
	electricity := rules.ApplyRates(reading.BilledEnergy, rates)
	charges := billingrules.ChargeComponents{
		FixedCharge:       electricity.FixedCharge,
		ElectricityCharge: electricity.ElectricityCharge,
		ElectricityDuty:   electricity.ElectricityDuty,
		MaintenanceCharge: electricity.MaintenanceCharge,
		WaterCharge:       rules.WaterCharge(reading.WaterConsumption, rates),
		OtherCharges:      house.OtherCharges,
		LicenseFee:        house.LicenseFee,
		ResidenceFee:      house.ResidenceFee,
	}

	arrear1, arrear2 := previousBill.Arrears()
	record, err := rules.AssembleBill(charges, arrear1, arrear2)
	if err != nil {
		return err
	}
	bill1Arrear, bill2Arrear := billingrules.Outstanding(record)

	readingID := reading.ID
	previousID := previousBill.ID
	dueDate := billingrules.DueDate(bill.PeriodStart, cfg.DueDay)

	bill.ReadingID = &readingID
	bill.PreviousBillID = &previousID
	bill.PreviousBillVersion = previousBill.Version
	bill.Version++

	bill.FixedCharge = charges.FixedCharge
	bill.ElectricityCharge = charges.ElectricityCharge
	bill.ElectricityDuty = charges.ElectricityDuty
	bill.MaintenanceCharge = charges.MaintenanceCharge
	bill.WaterCharge = charges.WaterCharge
	bill.OtherCharges = charges.OtherCharges
	bill.LicenseFee = charges.LicenseFee
	bill.ResidenceFee = charges.ResidenceFee
	bill.PreviousBill1Arrear = arrear1
	bill.PreviousBill2Arrear = arrear2

	bill.Bill1Standard = record.Bill1Standard
	bill.Bill1Penalty = record.Bill1Penalty
	bill.Bill2Standard = record.Bill2Standard
	bill.Bill2Penalty = record.Bill2Penalty
	bill.TotalStandard = record.TotalStandard
	bill.TotalPenalty = record.TotalPenalty
	bill.AmountPaid = decimal.Zero
	bill.Bill1Arrear = bill1Arrear
	bill.Bill2Arrear = bill2Arrear

	bill.Status = record.Status
	bill.DueDate = &dueDate
	bill.GeneratedAt = &now
	bill.PaidAt = nil
	bill.UpdatedAt = now
	return nil
}

func (s *Service) GenerateBatch(ctx context.Context, req billdomain.GenerateBatchRequest) (*billdomain.BatchResponse, error) {
	period, err := billingrules.ParsePeriod(req.Period)
	if err != nil {
		return nil, billdomain.ErrInvalidPeriod
	}
	var mohallaID snowflake.ID
	if raw := strings.TrimSpace(req.MohallaID); raw != "" {
		mohallaID, err = snowflake.ParseString(raw)
		if err != nil || mohallaID <= 0 {
			return nil, billdomain.ErrInvalidMohalla
		}
	}

	houseIDs, err := s.houseRepo.ListActiveIDs(ctx, s.db, mohallaID)
	if err != nil {
		return nil, err
	}

	resp := &billdomain.BatchResponse{Period: billingrules.FormatPeriod(period), Errors: []billdomain.BatchError{}}
	for _, houseID := range houseIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, err := s.generate(ctx, houseID, period)
		switch {
		case err == nil:
			resp.Generated++
			s.metrics.RecordBillGenerated(ctx, "generated")
		case errors.Is(err, billdomain.ErrAlreadyGenerated):
			resp.Skipped++
		default:
			resp.Failed++
			resp.Errors = append(resp.Errors, billdomain.BatchError{HouseID: houseID.String(), Message: err.Error()})
			s.metrics.RecordBillGenerated(ctx, "rejected")
		}
	}

	s.log.Info("batch generation finished",
		zap.String("period", resp.Period),
		zap.Int("generated", resp.Generated),
		zap.Int("skipped", resp.Skipped),
		zap.Int("failed", resp.Failed),
	)
	return resp, nil
}

func (s *Service) List(ctx context.Context, req billdomain.ListRequest) (billdomain.ListResponse, error) {
	filter := billdomain.ListFilter{Limit: req.Size()}
	if raw := strings.TrimSpace(req.HouseID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id <= 0 {
			return billdomain.ListResponse{}, billdomain.ErrInvalidHouse
		}
		filter.HouseID = id
	}
	if raw := strings.TrimSpace(req.MohallaID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id <= 0 {
			return billdomain.ListResponse{}, billdomain.ErrInvalidMohalla
		}
		filter.MohallaID = id
	}
	if raw := strings.TrimSpace(req.Period); raw != "" {
		period, err := billingrules.ParsePeriod(raw)
		if err != nil {
			return billdomain.ListResponse{}, billdomain.ErrInvalidPeriod
		}
		filter.Period = &period
	}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status, ok := billingrules.ParseStatus(strings.ToUpper(raw))
		if !ok {
			return billdomain.ListResponse{}, billdomain.ErrInvalidStatus
		}
		filter.Status = status
	}
	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return billdomain.ListResponse{}, err
	}
	filter.BeforeID = cursor.ID

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return billdomain.ListResponse{}, err
	}
	items, pageInfo := pagination.BuildCursorPageInfo(items, filter.Limit, func(b *billdomain.Bill) int64 {
		return int64(b.ID)
	})

	previousIDs := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		if item.PreviousBillID != nil {
			previousIDs = append(previousIDs, *item.PreviousBillID)
		}
	}
	versions, err := s.repo.Versions(ctx, s.db, previousIDs)
	if err != nil {
		return billdomain.ListResponse{}, err
	}

	resp := billdomain.ListResponse{PageInfo: pageInfo, Bills: make([]billdomain.Response, 0, len(items))}
	for _, item := range items {
		resp.Bills = append(resp.Bills, *toResponse(item, isStale(item, versions)))
	}
	return resp, nil
}

// isStale reports whether the previous bill changed after b took its arrears.
func isStale(b *billdomain.Bill, versions map[snowflake.ID]int64) bool {
	if b.Status == billingrules.StatusPending || b.PreviousBillID == nil {
		return false
	}
	version, ok := versions[*b.PreviousBillID]
	if !ok {
		return true
	}
	return version != b.PreviousBillVersion
}

func (s *Service) Summary(ctx context.Context, period string) (*billdomain.SummaryResponse, error) {
	at, err := billingrules.ParsePeriod(period)
	if err != nil {
		return nil, billdomain.ErrInvalidPeriod
	}
	totals, err := s.repo.Summary(ctx, s.db, at)
	if err != nil {
		return nil, err
	}

	resp := &billdomain.SummaryResponse{
		Period:        billingrules.FormatPeriod(at),
		Statuses:      make([]billdomain.StatusSummary, 0, len(totals)),
		TotalStandard: decimal.Zero,
		TotalPenalty:  decimal.Zero,
		AmountPaid:    decimal.Zero,
	}
	for _, total := range totals {
		resp.Statuses = append(resp.Statuses, billdomain.StatusSummary{
			Status:        string(total.Status),
			Count:         total.Count,
			TotalStandard: total.TotalStandard,
			TotalPenalty:  total.TotalPenalty,
			AmountPaid:    total.AmountPaid,
		})
		resp.Count += total.Count
		resp.TotalStandard = resp.TotalStandard.Add(total.TotalStandard)
		resp.TotalPenalty = resp.TotalPenalty.Add(total.TotalPenalty)
		resp.AmountPaid = resp.AmountPaid.Add(total.AmountPaid)
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*billdomain.Response, error) {
	bill, err := s.find(ctx, s.db, id, false)
	if err != nil {
		return nil, err
	}
	stale, err := s.stale(ctx, s.db, bill)
	if err != nil {
		return nil, err
	}
	return toResponse(bill, stale), nil
}

func (s *Service) stale(ctx context.Context, tx *gorm.DB, bill *billdomain.Bill) (bool, error) {
	if bill.PreviousBillID == nil {
		return false, nil
	}
	versions, err := s.repo.Versions(ctx, tx, []snowflake.ID{*bill.PreviousBillID})
	if err != nil {
		return false, err
	}
	return isStale(bill, versions), nil
}

func (s *Service) Regenerate(ctx context.Context, id string) (resp *billdomain.Response, err error) {
	billID, err := billdomain.ParseID(strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	ctx, span := tracing.StartSpan(ctx, "bill.regenerate", attribute.String("bill.id", billID.String()))
	defer func() { tracing.EndSpan(span, err) }()

	var bill *billdomain.Bill
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bill, err = s.repo.FindByID(ctx, tx, billID, true)
		if err != nil {
			return err
		}
		if bill == nil {
			return billdomain.ErrNotFound
		}
		if err := s.ensureMutable(ctx, tx, bill); err != nil {
			return err
		}

		house, err := s.houseRepo.FindByID(ctx, tx, bill.HouseID)
		if err != nil {
			return err
		}
		if house == nil {
			return billdomain.ErrHouseNotFound
		}
		reading, err := s.readingRepo.FindByPeriod(ctx, tx, bill.HouseID, bill.PeriodStart)
		if err != nil {
			return err
		}
		if reading == nil {
			return fmt.Errorf("%w: current reading", billingrules.ErrReadingNotEntered)
		}

		if err := s.compute(ctx, tx, bill, house, reading, s.clock.Now()); err != nil {
			return err
		}
		if err := s.repo.Save(ctx, tx, bill); err != nil {
			return err
		}
		if err := s.outbox.Record(ctx, tx, events.EventBillRegenerated, bill.ID, newBillEvent(bill)); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     "bill.regenerate",
			TargetType: "bill",
			TargetID:   bill.ID.String(),
			Metadata: map[string]any{
				"version":        bill.Version,
				"total_standard": bill.TotalStandard.StringFixed(2),
			},
		})
	})
	if err != nil {
		s.metrics.RecordBillGenerated(ctx, "rejected")
		return nil, err
	}
	s.metrics.RecordBillGenerated(ctx, "regenerated")
	return toResponse(bill, false), nil
}

// ensureMutable rejects changes to bills that were never generated, that
// have received money, or whose successor already took their arrears.
func (s *Service) ensureMutable(ctx context.Context, tx *gorm.DB, bill *billdomain.Bill) error {
	switch bill.Status {
	case billingrules.StatusPending:
		return billdomain.ErrNotGenerated
	case billingrules.StatusPaid, billingrules.StatusPartiallyPaid:
		return billdomain.ErrHasPayments
	}
	if bill.AmountPaid.IsPositive() {
		return billdomain.ErrHasPayments
	}

	successor, err := s.repo.FindByPeriod(ctx, tx, bill.HouseID, bill.PeriodStart.AddDate(0, 1, 0), false)
	if err != nil {
		return err
	}
	if successor != nil && successor.Status != billingrules.StatusPending {
		return billdomain.ErrSuccessorGenerated
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bill, err := s.find(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err := s.ensureMutable(ctx, tx, bill); err != nil {
			return err
		}

		now := s.clock.Now()
		reset := billdomain.NewPending(bill.ID, bill.HouseID, 0, bill.PeriodStart, bill.CreatedAt)
		reset.ReadingID = bill.ReadingID
		reset.Version = bill.Version + 1
		reset.UpdatedAt = now
		if err := s.repo.Save(ctx, tx, reset); err != nil {
			return err
		}
		if err := s.outbox.Record(ctx, tx, events.EventBillDeleted, reset.ID, newBillEvent(reset)); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     "bill.delete",
			TargetType: "bill",
			TargetID:   bill.ID.String(),
			Metadata: map[string]any{
				"period":         billingrules.FormatPeriod(bill.PeriodStart),
				"total_standard": bill.TotalStandard.StringFixed(2),
			},
		})
	})
}

func (s *Service) MarkOverdue(ctx context.Context, limit int) (int, error) {
	now := s.clock.Now()
	marked := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bills, err := s.repo.ListOverdue(ctx, tx, now, limit)
		if err != nil {
			return err
		}
		for _, bill := range bills {
			bill.Status = billingrules.StatusOverdue
			bill.UpdatedAt = now
			if err := s.repo.Save(ctx, tx, bill); err != nil {
				return err
			}
			if err := s.outbox.Record(ctx, tx, events.EventBillOverdue, bill.ID, newBillEvent(bill)); err != nil {
				return err
			}
			marked++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if marked > 0 {
		s.log.Info("bills marked overdue", zap.Int("count", marked))
	}
	return marked, nil
}

func (s *Service) find(ctx context.Context, tx *gorm.DB, rawID string, lock bool) (*billdomain.Bill, error) {
	id, err := billdomain.ParseID(strings.TrimSpace(rawID))
	if err != nil {
		return nil, err
	}
	bill, err := s.repo.FindByID(ctx, tx, id, lock)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, billdomain.ErrNotFound
	}
	return bill, nil
}

func toResponse(b *billdomain.Bill, stale bool) *billdomain.Response {
	resp := &billdomain.Response{
		ID:                  b.ID.String(),
		HouseID:             b.HouseID.String(),
		Period:              billingrules.FormatPeriod(b.PeriodStart),
		Version:             b.Version,
		Stale:               stale,
		FixedCharge:         b.FixedCharge,
		ElectricityCharge:   b.ElectricityCharge,
		ElectricityDuty:     b.ElectricityDuty,
		MaintenanceCharge:   b.MaintenanceCharge,
		WaterCharge:         b.WaterCharge,
		OtherCharges:        b.OtherCharges,
		LicenseFee:          b.LicenseFee,
		ResidenceFee:        b.ResidenceFee,
		PreviousBill1Arrear: b.PreviousBill1Arrear,
		PreviousBill2Arrear: b.PreviousBill2Arrear,
		Bill1Standard:       b.Bill1Standard,
		Bill1Penalty:        b.Bill1Penalty,
		Bill2Standard:       b.Bill2Standard,
		Bill2Penalty:        b.Bill2Penalty,
		TotalStandard:       b.TotalStandard,
		TotalPenalty:        b.TotalPenalty,
		AmountPaid:          b.AmountPaid,
		Bill1Arrear:         b.Bill1Arrear,
		Bill2Arrear:         b.Bill2Arrear,
		Status:              string(b.Status),
		DueDate:             b.DueDate,
		GeneratedAt:         b.GeneratedAt,
		PaidAt:              b.PaidAt,
		CreatedAt:           b.CreatedAt,
		UpdatedAt:           b.UpdatedAt,
	}
	if b.ReadingID != nil {
		id := b.ReadingID.String()
		resp.ReadingID = &id
	}
	if b.PreviousBillID != nil {
		id := b.PreviousBillID.String()
		resp.PreviousBillID = &id
	}
	return resp
}
