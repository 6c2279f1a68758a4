package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	BillID   snowflake.ID
	HouseID  snowflake.ID
	BeforeID int64
	Limit    int
}

type Repository interface {
	// Insert stores p unless its idempotency key was already used, in which
	// case it reports false.
	Insert(ctx context.Context, db *gorm.DB, p *Payment) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	FindByIdempotencyKey(ctx context.Context, db *gorm.DB, key string) (*Payment, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Payment, error)
}
