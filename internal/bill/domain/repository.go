package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/utilitybill/internal/billingrules"
	"gorm.io/gorm"
)

type ListFilter struct {
	HouseID   snowflake.ID
	MohallaID snowflake.ID
	Period    *time.Time
	Status    billingrules.Status
	BeforeID  int64
	Limit     int
}

// StatusTotal aggregates the bills of one status.
type StatusTotal struct {
	Status        billingrules.Status
	Count         int64
	TotalStandard decimal.Decimal
	TotalPenalty  decimal.Decimal
	AmountPaid    decimal.Decimal
}

// RegisterEntry is a bill joined with the house it belongs to.
type RegisterEntry struct {
	Bill                   `gorm:"embedded"`
	MohallaName            string
	HouseNumber            string
	OwnerName              string
	ElectricityMeterNumber string
	BilledEnergy           decimal.Decimal
}

type Repository interface {
	Save(ctx context.Context, db *gorm.DB, b *Bill) error
	// FindByID locks the row for update when lock is set.
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, lock bool) (*Bill, error)
	FindByPeriod(ctx context.Context, db *gorm.DB, houseID snowflake.ID, period time.Time, lock bool) (*Bill, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Bill, error)
	Versions(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]int64, error)
	Summary(ctx context.Context, db *gorm.DB, period time.Time) ([]StatusTotal, error)
	Register(ctx context.Context, db *gorm.DB, period time.Time) ([]RegisterEntry, error)
	FindRegisterEntry(ctx context.Context, db *gorm.DB, id snowflake.ID) (*RegisterEntry, error)
	// ListOverdue returns GENERATED bills whose due date is before now.
	ListOverdue(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]*Bill, error)
}
