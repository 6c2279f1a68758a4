package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	billdomain "github.com/smallbiznis/utilitybill/internal/bill/domain"
	"gorm.io/gorm"
)

type ListFilter struct {
	HouseID  snowflake.ID
	Period   *time.Time
	BeforeID int64
	Limit    int
}

type Repository interface {
	// InsertIfAbsent inserts r unless a reading for the same house and period
	// exists, and reports whether it inserted.
	InsertIfAbsent(ctx context.Context, db *gorm.DB, r *MeterReading) (bool, error)
	UpdateValues(ctx context.Context, db *gorm.DB, r *MeterReading) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*MeterReading, error)
	FindByPeriod(ctx context.Context, db *gorm.DB, houseID snowflake.ID, period time.Time) (*MeterReading, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*MeterReading, error)

	HouseExists(ctx context.Context, db *gorm.DB, houseID snowflake.ID) (bool, error)
	FindHouseID(ctx context.Context, db *gorm.DB, mohallaCode, houseNumber string) (snowflake.ID, error)

	FindBill(ctx context.Context, db *gorm.DB, houseID snowflake.ID, period time.Time) (*billdomain.Bill, error)
	// EnsurePendingBill inserts b unless a bill for the same house and period
	// exists.
	EnsurePendingBill(ctx context.Context, db *gorm.DB, b *billdomain.Bill) error
	DeleteBill(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
