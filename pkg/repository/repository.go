package repository

import (
	"context"

	"github.com/smallbiznis/utilitybill/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a generic gorm-backed table accessor. Zero-valued fields of a
// query struct are ignored when filtering.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, resourceID any, values any) (int64, error)
	Delete(ctx context.Context, resourceID any) (int64, error)
	Count(ctx context.Context, query *T) (int64, error)
}
