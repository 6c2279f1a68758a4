package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/utilitybill/internal/audit/domain"
	"github.com/smallbiznis/utilitybill/internal/billingrules"
	"github.com/smallbiznis/utilitybill/internal/cache"
	"github.com/smallbiznis/utilitybill/internal/clock"
	tariffdomain "github.com/smallbiznis/utilitybill/internal/tariff/domain"
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
	Repo     tariffdomain.Repository
	Cache    cache.TariffCache `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	auditSvc auditdomain.Service
	repo     tariffdomain.Repository
	cache    cache.TariffCache
}

func New(p Params) tariffdomain.Service {
	c := p.Cache
	if c == nil {
		c = cache.NewTariffCache()
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("tariff.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		auditSvc: p.AuditSvc,
		repo:     p.Repo,
		cache:    c,
	}
}

func (s *Service) List(ctx context.Context, code string) ([]tariffdomain.Response, error) {
	code = strings.TrimSpace(code)
	if code != "" && !billingrules.IsRateCode(code) {
		return nil, tariffdomain.ErrInvalidCode
	}
	rows, err := s.repo.List(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	resp := make([]tariffdomain.Response, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, toResponse(row))
	}
	return resp, nil
}

func (s *Service) Set(ctx context.Context, req tariffdomain.SetRequest) (*tariffdomain.Response, error) {
	code := strings.TrimSpace(req.Code)
	if !billingrules.IsRateCode(code) {
		return nil, tariffdomain.ErrInvalidCode
	}
	if req.Rate == nil || req.Rate.IsNegative() {
		return nil, tariffdomain.ErrInvalidRate
	}

	now := s.clock.Now()
	effectiveFrom := billingrules.NormalizePeriod(now)
	if raw := strings.TrimSpace(req.EffectiveFrom); raw != "" {
		parsed, err := billingrules.ParsePeriod(raw)
		if err != nil {
			return nil, tariffdomain.ErrInvalidPeriod
		}
		effectiveFrom = parsed
	}

	row := &tariffdomain.TariffRate{
		ID:            s.genID.Generate(),
		Code:          code,
		Rate:          *req.Rate,
		EffectiveFrom: effectiveFrom,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Upsert(ctx, tx, row); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     "tariff.set",
			TargetType: "tariff_rate",
			TargetID:   code,
			Metadata: map[string]any{
				"rate":           row.Rate.String(),
				"effective_from": billingrules.FormatPeriod(effectiveFrom),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate()

	s.log.Info("tariff rate set",
		zap.String("code", code),
		zap.String("rate", row.Rate.String()),
		zap.String("effective_from", billingrules.FormatPeriod(effectiveFrom)),
	)

	// The upsert may have kept an older row id; read back the stored version.
	rows, err := s.repo.List(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	for _, stored := range rows {
		if stored.EffectiveFrom.Equal(effectiveFrom) {
			resp := toResponse(stored)
			return &resp, nil
		}
	}
	resp := toResponse(row)
	return &resp, nil
}

func (s *Service) Effective(ctx context.Context, period string) (*tariffdomain.EffectiveResponse, error) {
	at := billingrules.NormalizePeriod(s.clock.Now())
	if raw := strings.TrimSpace(period); raw != "" {
		parsed, err := billingrules.ParsePeriod(raw)
		if err != nil {
			return nil, tariffdomain.ErrInvalidPeriod
		}
		at = parsed
	}

	rates, err := s.Resolve(ctx, s.db, at)
	if err != nil {
		return nil, err
	}

	out := make(map[string]decimal.Decimal, len(billingrules.RateCodes))
	for _, code := range billingrules.RateCodes {
		out[code] = rates.Get(code)
	}
	return &tariffdomain.EffectiveResponse{Period: billingrules.FormatPeriod(at), Rates: out}, nil
}

func (s *Service) Resolve(ctx context.Context, db *gorm.DB, period time.Time) (billingrules.TariffRates, error) {
	period = billingrules.NormalizePeriod(period)
	if rates, ok := s.cache.GetRates(period); ok {
		return rates, nil
	}

	if db == nil {
		db = s.db
	}
	rows, err := s.repo.ListEffective(ctx, db, period)
	if err != nil {
		return nil, err
	}
	rates := make(billingrules.TariffRates, len(rows))
	for _, row := range rows {
		rates[row.Code] = row.Rate
	}
	s.cache.SetRates(period, rates)
	return rates, nil
}

func toResponse(row *tariffdomain.TariffRate) tariffdomain.Response {
	return tariffdomain.Response{
		ID:            row.ID.String(),
		Code:          row.Code,
		Rate:          row.Rate,
		EffectiveFrom: billingrules.FormatPeriod(row.EffectiveFrom),
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}
