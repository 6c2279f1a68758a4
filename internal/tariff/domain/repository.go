package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// Upsert stores rate, replacing the value of an existing version with the
	// same code and effective date.
	Upsert(ctx context.Context, db *gorm.DB, rate *TariffRate) error
	List(ctx context.Context, db *gorm.DB, code string) ([]*TariffRate, error)
	// ListEffective returns, per code, the latest version effective at period.
	ListEffective(ctx context.Context, db *gorm.DB, period time.Time) ([]*TariffRate, error)
}
