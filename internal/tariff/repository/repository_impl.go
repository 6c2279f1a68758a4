package repository

import (
	"context"
	"strings"
	"time"

	tariffdomain "github.com/smallbiznis/utilitybill/internal/tariff/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() tariffdomain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, rate *tariffdomain.TariffRate) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}, {Name: "effective_from"}},
		DoUpdates: clause.AssignmentColumns([]string{"rate", "updated_at"}),
	}).Create(rate).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, code string) ([]*tariffdomain.TariffRate, error) {
	stmt := db.WithContext(ctx).Model(&tariffdomain.TariffRate{})
	if code = strings.TrimSpace(code); code != "" {
		stmt = stmt.Where("code = ?", code)
	}

	var rates []*tariffdomain.TariffRate
	if err := stmt.Order("code asc").Order("effective_from desc").Find(&rates).Error; err != nil {
		return nil, err
	}
	return rates, nil
}

func (r *repo) ListEffective(ctx context.Context, db *gorm.DB, period time.Time) ([]*tariffdomain.TariffRate, error) {
	var rows []*tariffdomain.TariffRate
	err := db.WithContext(ctx).
		Model(&tariffdomain.TariffRate{}).
		Where("effective_from <= ?", period).
		Order("code asc").
		Order("effective_from desc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	latest := make([]*tariffdomain.TariffRate, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.Code]; ok {
			continue
		}
		seen[row.Code] = struct{}{}
		latest = append(latest, row)
	}
	return latest, nil
}
