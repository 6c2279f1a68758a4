package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	MohallaID snowflake.ID
	Active    *bool
	Query     string
	BeforeID  int64
	Limit     int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, h *House) error
	Update(ctx context.Context, db *gorm.DB, h *House) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*House, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*House, error)
	ListActiveIDs(ctx context.Context, db *gorm.DB, mohallaID snowflake.ID) ([]snowflake.ID, error)
	MohallaExists(ctx context.Context, db *gorm.DB, mohallaID snowflake.ID) (bool, error)
	HasHistory(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}
