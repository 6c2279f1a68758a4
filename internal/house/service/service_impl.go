package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/utilitybill/internal/audit/domain"
	"github.com/smallbiznis/utilitybill/internal/clock"
	housedomain "github.com/smallbiznis/utilitybill/internal/house/domain"
	"github.com/smallbiznis/utilitybill/pkg/db"
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
	Repo     housedomain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	auditSvc auditdomain.Service
	repo     housedomain.Repository
}

func New(p Params) housedomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("house.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		auditSvc: p.AuditSvc,
		repo:     p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req housedomain.CreateRequest) (*housedomain.Response, error) {
	mohallaID, err := snowflake.ParseString(strings.TrimSpace(req.MohallaID))
	if err != nil || mohallaID <= 0 {
		return nil, housedomain.ErrInvalidMohalla
	}
	houseNumber := strings.TrimSpace(req.HouseNumber)
	if houseNumber == "" {
		return nil, housedomain.ErrInvalidHouseNumber
	}
	ownerName := strings.TrimSpace(req.OwnerName)
	if ownerName == "" {
		return nil, housedomain.ErrInvalidOwnerName
	}

	fees := [3]decimal.Decimal{}
	for i, fee := range []*decimal.Decimal{req.LicenseFee, req.ResidenceFee, req.OtherCharges} {
		value, err := parseFee(fee)
		if err != nil {
			return nil, err
		}
		fees[i] = value
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := s.clock.Now()
	h := &housedomain.House{
		ID:                     s.genID.Generate(),
		MohallaID:              mohallaID,
		HouseNumber:            houseNumber,
		OwnerName:              ownerName,
		MobileNumber:           strings.TrimSpace(req.MobileNumber),
		Email:                  strings.ToLower(strings.TrimSpace(req.Email)),
		ElectricityMeterNumber: strings.TrimSpace(req.ElectricityMeterNumber),
		WaterMeterNumber:       strings.TrimSpace(req.WaterMeterNumber),
		LicenseFee:             fees[0],
		ResidenceFee:           fees[1],
		OtherCharges:           fees[2],
		Active:                 active,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.repo.MohallaExists(ctx, tx, mohallaID)
		if err != nil {
			return err
		}
		if !exists {
			return housedomain.ErrMohallaNotFound
		}
		if err := s.repo.Insert(ctx, tx, h); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return housedomain.ErrHouseNumberTaken
			}
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     "house.create",
			TargetType: "house",
			TargetID:   h.ID.String(),
			Metadata: map[string]any{
				"house_number":  h.HouseNumber,
				"owner_name":    h.OwnerName,
				"mobile_number": h.MobileNumber,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("house created", zap.String("house_id", h.ID.String()))
	return toResponse(h), nil
}

func (s *Service) List(ctx context.Context, req housedomain.ListRequest) (housedomain.ListResponse, error) {
	filter := housedomain.ListFilter{
		Active: req.Active,
		Query:  req.Query,
		Limit:  req.Size(),
	}
	if raw := strings.TrimSpace(req.MohallaID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id <= 0 {
			return housedomain.ListResponse{}, housedomain.ErrInvalidMohalla
		}
		filter.MohallaID = id
	}
	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return housedomain.ListResponse{}, err
	}
	filter.BeforeID = cursor.ID

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return housedomain.ListResponse{}, err
	}
	items, pageInfo := pagination.BuildCursorPageInfo(items, filter.Limit, func(h *housedomain.House) int64 {
		return int64(h.ID)
	})

	resp := housedomain.ListResponse{PageInfo: pageInfo, Houses: make([]housedomain.Response, 0, len(items))}
	for _, h := range items {
		resp.Houses = append(resp.Houses, *toResponse(h))
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*housedomain.Response, error) {
	h, err := s.find(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return toResponse(h), nil
}

func (s *Service) Update(ctx context.Context, req housedomain.UpdateRequest) (*housedomain.Response, error) {
	var updated *housedomain.House
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		h, err := s.find(ctx, tx, req.ID)
		if err != nil {
			return err
		}

		if req.HouseNumber != nil {
			value := strings.TrimSpace(*req.HouseNumber)
			if value == "" {
				return housedomain.ErrInvalidHouseNumber
			}
			h.HouseNumber = value
		}
		if req.OwnerName != nil {
			value := strings.TrimSpace(*req.OwnerName)
			if value == "" {
				return housedomain.ErrInvalidOwnerName
			}
			h.OwnerName = value
		}
		if req.MobileNumber != nil {
			h.MobileNumber = strings.TrimSpace(*req.MobileNumber)
		}
		if req.Email != nil {
			h.Email = strings.ToLower(strings.TrimSpace(*req.Email))
		}
		if req.ElectricityMeterNumber != nil {
			h.ElectricityMeterNumber = strings.TrimSpace(*req.ElectricityMeterNumber)
		}
		if req.WaterMeterNumber != nil {
			h.WaterMeterNumber = strings.TrimSpace(*req.WaterMeterNumber)
		}
		if req.LicenseFee != nil {
			if h.LicenseFee, err = parseFee(req.LicenseFee); err != nil {
				return err
			}
		}
		if req.ResidenceFee != nil {
			if h.ResidenceFee, err = parseFee(req.ResidenceFee); err != nil {
				return err
			}
		}
		if req.OtherCharges != nil {
			if h.OtherCharges, err = parseFee(req.OtherCharges); err != nil {
				return err
			}
		}
		if req.Active != nil {
			h.Active = *req.Active
		}
		h.UpdatedAt = s.clock.Now()

		if err := s.repo.Update(ctx, tx, h); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return housedomain.ErrHouseNumberTaken
			}
			return err
		}
		updated = h
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     "house.update",
			TargetType: "house",
			TargetID:   h.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return toResponse(updated), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		h, err := s.find(ctx, tx, id)
		if err != nil {
			return err
		}
		used, err := s.repo.HasHistory(ctx, tx, h.ID)
		if err != nil {
			return err
		}
		if used {
			return housedomain.ErrHasHistory
		}
		if err := s.repo.Delete(ctx, tx, h.ID); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     "house.delete",
			TargetType: "house",
			TargetID:   h.ID.String(),
			Metadata:   map[string]any{"house_number": h.HouseNumber},
		})
	})
}

func (s *Service) ActiveIDs(ctx context.Context, mohallaID string) ([]snowflake.ID, error) {
	var id snowflake.ID
	if raw := strings.TrimSpace(mohallaID); raw != "" {
		parsed, err := snowflake.ParseString(raw)
		if err != nil || parsed <= 0 {
			return nil, housedomain.ErrInvalidMohalla
		}
		id = parsed
	}
	return s.repo.ListActiveIDs(ctx, s.db, id)
}

func (s *Service) find(ctx context.Context, tx *gorm.DB, rawID string) (*housedomain.House, error) {
	id, err := housedomain.ParseID(strings.TrimSpace(rawID))
	if err != nil {
		return nil, err
	}
	h, err := s.repo.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, housedomain.ErrNotFound
	}
	return h, nil
}

func parseFee(value *decimal.Decimal) (decimal.Decimal, error) {
	if value == nil {
		return decimal.Zero, nil
	}
	if value.IsNegative() {
		return decimal.Zero, housedomain.ErrInvalidFee
	}
	return value.Round(2), nil
}

func toResponse(h *housedomain.House) *housedomain.Response {
	return &housedomain.Response{
		ID:                     h.ID.String(),
		MohallaID:              h.MohallaID.String(),
		HouseNumber:            h.HouseNumber,
		OwnerName:              h.OwnerName,
		MobileNumber:           h.MobileNumber,
		Email:                  h.Email,
		ElectricityMeterNumber: h.ElectricityMeterNumber,
		WaterMeterNumber:       h.WaterMeterNumber,
		LicenseFee:             h.LicenseFee,
		ResidenceFee:           h.ResidenceFee,
		OtherCharges:           h.OtherCharges,
		Active:                 h.Active,
		CreatedAt:              h.CreatedAt,
		UpdatedAt:              h.UpdatedAt,
	}
}
