package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/utilitybill/internal/billingrules"
	"gorm.io/gorm"
)

type Service interface {
	List(ctx context.Context, code string) ([]Response, error)
	Set(ctx context.Context, req SetRequest) (*Response, error)
	Effective(ctx context.Context, period string) (*EffectiveResponse, error)
	// Resolve returns the rates in force for period using db, which may be an
	// open transaction.
	Resolve(ctx context.Context, db *gorm.DB, period time.Time) (billingrules.TariffRates, error)
}

type SetRequest struct {
	Code          string           `json:"-"`
	Rate          *decimal.Decimal `json:"rate"`
	EffectiveFrom string           `json:"effective_from"`
}

type Response struct {
	ID            string          `json:"id"`
	Code          string          `json:"code"`
	Rate          decimal.Decimal `json:"rate"`
	EffectiveFrom string          `json:"effective_from"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type EffectiveResponse struct {
	Period string                     `json:"period"`
	Rates  map[string]decimal.Decimal `json:"rates"`
}

var (
	ErrInvalidCode   = errors.New("invalid_rate_code")
	ErrInvalidRate   = errors.New("invalid_rate")
	ErrInvalidPeriod = errors.New("invalid_period")
)
