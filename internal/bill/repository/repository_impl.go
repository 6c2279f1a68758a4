package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	billdomain "github.com/smallbiznis/utilitybill/internal/bill/domain"
	"github.com/smallbiznis/utilitybill/internal/billingrules"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const registerColumns = "bills.*, mohallas.name AS mohalla_name, houses.house_number, houses.owner_name, houses.electricity_meter_number, COALESCE(meter_readings.billed_energy, 0) AS billed_energy"

type repo struct{}

func Provide() billdomain.Repository {
	return &repo{}
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, b *billdomain.Bill) error {
	return db.WithContext(ctx).Select("*").Omit("id", "created_at").Updates(b).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, lock bool) (*billdomain.Bill, error) {
	return first(locked(db.WithContext(ctx), lock).Where("id = ?", id))
}

func (r *repo) FindByPeriod(ctx context.Context, db *gorm.DB, houseID snowflake.ID, period time.Time, lock bool) (*billdomain.Bill, error) {
	return first(locked(db.WithContext(ctx), lock).Where("house_id = ? AND period_start = ?", houseID, period))
}

func locked(db *gorm.DB, lock bool) *gorm.DB {
	if !lock {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func first(stmt *gorm.DB) (*billdomain.Bill, error) {
	var bill billdomain.Bill
	err := stmt.Take(&bill).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter billdomain.ListFilter) ([]*billdomain.Bill, error) {
	stmt := db.WithContext(ctx).Model(&billdomain.Bill{})
	if filter.HouseID != 0 {
		stmt = stmt.Where("bills.house_id = ?", filter.HouseID)
	}
	if filter.MohallaID != 0 {
		stmt = stmt.Where("bills.house_id IN (?)",
			db.Table("houses").Select("id").Where("mohalla_id = ?", filter.MohallaID))
	}
	if filter.Period != nil {
		stmt = stmt.Where("bills.period_start = ?", *filter.Period)
	}
	if filter.Status != "" {
		stmt = stmt.Where("bills.status = ?", filter.Status)
	}
	if filter.BeforeID != 0 {
		stmt = stmt.Where("bills.id < ?", filter.BeforeID)
	}
	stmt = stmt.Order("bills.id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	var bills []*billdomain.Bill
	if err := stmt.Find(&bills).Error; err != nil {
		return nil, err
	}
	return bills, nil
}

func (r *repo) Versions(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]int64, error) {
	out := make(map[snowflake.ID]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		ID      snowflake.ID
		Version int64
	}
	err := db.WithContext(ctx).
		Model(&billdomain.Bill{}).
		Select("id, version").
		Where("id IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.Version
	}
	return out, nil
}

func (r *repo) Summary(ctx context.Context, db *gorm.DB, period time.Time) ([]billdomain.StatusTotal, error) {
	var totals []billdomain.StatusTotal
	err := db.WithContext(ctx).
		Model(&billdomain.Bill{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(total_standard), 0) AS total_standard, COALESCE(SUM(total_penalty), 0) AS total_penalty, COALESCE(SUM(amount_paid), 0) AS amount_paid").
		Where("period_start = ?", period).
		Group("status").
		Order("status").
		Scan(&totals).Error
	return totals, err
}

func (r *repo) Register(ctx context.Context, db *gorm.DB, period time.Time) ([]billdomain.RegisterEntry, error) {
	var entries []billdomain.RegisterEntry
	err := registerQuery(db.WithContext(ctx)).
		Where("bills.period_start = ?", period).
		Order("mohallas.name, houses.house_number").
		Scan(&entries).Error
	return entries, err
}

func (r *repo) FindRegisterEntry(ctx context.Context, db *gorm.DB, id snowflake.ID) (*billdomain.RegisterEntry, error) {
	var entries []billdomain.RegisterEntry
	err := registerQuery(db.WithContext(ctx)).
		Where("bills.id = ?", id).
		Limit(1).
		Scan(&entries).Error
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return &entries[0], nil
}

func registerQuery(db *gorm.DB) *gorm.DB {
	return db.Table("bills").
		Select(registerColumns).
		Joins("JOIN houses ON houses.id = bills.house_id").
		Joins("JOIN mohallas ON mohallas.id = houses.mohalla_id").
		Joins("LEFT JOIN meter_readings ON meter_readings.id = bills.reading_id")
}

func (r *repo) ListOverdue(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]*billdomain.Bill, error) {
	stmt := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ? AND due_date < ?", billingrules.StatusGenerated, now).
		Order("due_date asc, id asc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	var bills []*billdomain.Bill
	if err := stmt.Find(&bills).Error; err != nil {
		return nil, err
	}
	return bills, nil
}
