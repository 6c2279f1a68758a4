package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	auditdomain "github.com/smallbiznis/utilitybill/internal/audit/domain"
	"github.com/smallbiznis/utilitybill/internal/clock"
	housedomain "github.com/smallbiznis/utilitybill/internal/house/domain"
	mohalladomain "github.com/smallbiznis/utilitybill/internal/mohalla/domain"
	"github.com/smallbiznis/utilitybill/pkg/db"
	"github.com/smallbiznis/utilitybill/pkg/db/option"
	"github.com/smallbiznis/utilitybill/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxSlugAttempts = 20

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	AuditSvc auditdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	auditSvc auditdomain.Service
	store    repository.Repository[mohalladomain.Mohalla]
}

func New(p Params) mohalladomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("mohalla.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		auditSvc: p.AuditSvc,
		store:    repository.ProvideStore[mohalladomain.Mohalla](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req mohalladomain.CreateRequest) (*mohalladomain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, mohalladomain.ErrInvalidName
	}
	base := slug.Make(strings.TrimSpace(req.Code))
	if base == "" {
		base = slug.Make(name)
	}
	if base == "" {
		return nil, mohalladomain.ErrInvalidCode
	}

	now := s.clock.Now()
	item := &mohalladomain.Mohalla{
		ID:          s.genID.Generate(),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := s.store.WithTrx(tx)
		code, err := s.availableCode(ctx, store, base, strings.TrimSpace(req.Code) != "")
		if err != nil {
			return err
		}
		item.Code = code

		if err := store.Create(ctx, item); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return mohalladomain.ErrCodeTaken
			}
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     "mohalla.create",
			TargetType: "mohalla",
			TargetID:   item.ID.String(),
			Metadata:   map[string]any{"code": item.Code, "name": item.Name},
		})
	})
	if err != nil {
		return nil, err
	}
	return toResponse(item), nil
}

// availableCode returns base, or base-N when base is already used. An
// explicitly requested code is never suffixed.
func (s *Service) availableCode(ctx context.Context, store repository.Repository[mohalladomain.Mohalla], base string, explicit bool) (string, error) {
	candidate := base
	for attempt := 2; attempt <= maxSlugAttempts; attempt++ {
		existing, err := store.FindOne(ctx, &mohalladomain.Mohalla{Code: candidate})
		if err != nil {
			return "", err
		}
		if existing == nil {
			return candidate, nil
		}
		if explicit {
			return "", mohalladomain.ErrCodeTaken
		}
		candidate = fmt.Sprintf("%s-%d", base, attempt)
	}
	return "", mohalladomain.ErrCodeTaken
}

func (s *Service) List(ctx context.Context) ([]mohalladomain.Response, error) {
	items, err := s.store.Find(ctx, nil, option.ApplyOrderBy("name", false))
	if err != nil {
		return nil, err
	}
	resp := make([]mohalladomain.Response, 0, len(items))
	for _, item := range items {
		resp = append(resp, *toResponse(item))
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*mohalladomain.Response, error) {
	item, err := s.find(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	return toResponse(item), nil
}

func (s *Service) Update(ctx context.Context, req mohalladomain.UpdateRequest) (*mohalladomain.Response, error) {
	var updated *mohalladomain.Mohalla
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := s.store.WithTrx(tx)
		item, err := s.find(ctx, store, req.ID)
		if err != nil {
			return err
		}

		changes := map[string]any{}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return mohalladomain.ErrInvalidName
			}
			item.Name = name
			changes["name"] = name
		}
		if req.Description != nil {
			item.Description = strings.TrimSpace(*req.Description)
			changes["description"] = item.Description
		}
		if len(changes) == 0 {
			updated = item
			return nil
		}
		item.UpdatedAt = s.clock.Now()
		changes["updated_at"] = item.UpdatedAt

		if _, err := store.Update(ctx, item.ID, changes); err != nil {
			return err
		}
		updated = item
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     "mohalla.update",
			TargetType: "mohalla",
			TargetID:   item.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return toResponse(updated), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := s.store.WithTrx(tx)
		item, err := s.find(ctx, store, id)
		if err != nil {
			return err
		}

		houses, err := repository.ProvideStore[housedomain.House](tx).Count(ctx, &housedomain.House{MohallaID: item.ID})
		if err != nil {
			return err
		}
		if houses > 0 {
			return mohalladomain.ErrHasHouses
		}

		if _, err := store.Delete(ctx, item.ID); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Action:     "mohalla.delete",
			TargetType: "mohalla",
			TargetID:   item.ID.String(),
			Metadata:   map[string]any{"code": item.Code},
		})
	})
}

func (s *Service) find(ctx context.Context, store repository.Repository[mohalladomain.Mohalla], rawID string) (*mohalladomain.Mohalla, error) {
	id, err := mohalladomain.ParseID(strings.TrimSpace(rawID))
	if err != nil {
		return nil, err
	}
	item, err := store.FindOne(ctx, &mohalladomain.Mohalla{ID: id})
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, mohalladomain.ErrNotFound
	}
	return item, nil
}

func toResponse(item *mohalladomain.Mohalla) *mohalladomain.Response {
	return &mohalladomain.Response{
		ID:          item.ID.String(),
		Code:        item.Code,
		Name:        item.Name,
		Description: item.Description,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}
