package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	billdomain "github.com/smallbiznis/utilitybill/internal/bill/domain"
	"github.com/smallbiznis/utilitybill/internal/billingrules"
	readingdomain "github.com/smallbiznis/utilitybill/internal/reading/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() readingdomain.Repository {
	return &repo{}
}

func (r *repo) InsertIfAbsent(ctx context.Context, db *gorm.DB, reading *readingdomain.MeterReading) (bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "house_id"}, {Name: "period_start"}},
			DoNothing: true,
		}).
		Create(reading)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) UpdateValues(ctx context.Context, db *gorm.DB, reading *readingdomain.MeterReading) error {
	return db.WithContext(ctx).
		Model(&readingdomain.MeterReading{}).
		Where("id = ?", reading.ID).
		Updates(map[string]any{
			"import_reading":      reading.ImportReading,
			"export_reading":      reading.ExportReading,
			"water_reading":       reading.WaterReading,
			"consumption":         reading.Consumption,
			"billed_energy":       reading.BilledEnergy,
			"carry_forward":       reading.CarryForward,
			"water_consumption":   reading.WaterConsumption,
			"previous_reading_id": reading.PreviousReadingID,
			"updated_at":          reading.UpdatedAt,
		}).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&readingdomain.MeterReading{}).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*readingdomain.MeterReading, error) {
	var reading readingdomain.MeterReading
	err := db.WithContext(ctx).Where("id = ?", id).Take(&reading).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reading, nil
}

func (r *repo) FindByPeriod(ctx context.Context, db *gorm.DB, houseID snowflake.ID, period time.Time) (*readingdomain.MeterReading, error) {
	var reading readingdomain.MeterReading
	err := db.WithContext(ctx).
		Where("house_id = ? AND period_start = ?", houseID, period).
		Take(&reading).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reading, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter readingdomain.ListFilter) ([]*readingdomain.MeterReading, error) {
	stmt := db.WithContext(ctx).Model(&readingdomain.MeterReading{})
	if filter.HouseID != 0 {
		stmt = stmt.Where("house_id = ?", filter.HouseID)
	}
	if filter.Period != nil {
		stmt = stmt.Where("period_start = ?", *filter.Period)
	}
	if filter.BeforeID != 0 {
		stmt = stmt.Where("id < ?", filter.BeforeID)
	}
	stmt = stmt.Order("id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	var readings []*readingdomain.MeterReading
	if err := stmt.Find(&readings).Error; err != nil {
		return nil, err
	}
	return readings, nil
}

func (r *repo) HouseExists(ctx context.Context, db *gorm.DB, houseID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Table("houses").Where("id = ?", houseID).Count(&count).Error
	return count > 0, err
}

func (r *repo) FindHouseID(ctx context.Context, db *gorm.DB, mohallaCode, houseNumber string) (snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).
		Table("houses").
		Joins("JOIN mohallas ON mohallas.id = houses.mohalla_id").
		Where("mohallas.code = ? AND houses.house_number = ?", strings.ToLower(strings.TrimSpace(mohallaCode)), strings.TrimSpace(houseNumber)).
		Limit(1).
		Pluck("houses.id", &ids).Error
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	return ids[0], nil
}

func (r *repo) FindBill(ctx context.Context, db *gorm.DB, houseID snowflake.ID, period time.Time) (*billdomain.Bill, error) {
	var bill billdomain.Bill
	err := db.WithContext(ctx).
		Where("house_id = ? AND period_start = ?", houseID, period).
		Take(&bill).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *repo) EnsurePendingBill(ctx context.Context, db *gorm.DB, b *billdomain.Bill) error {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "house_id"}, {Name: "period_start"}},
			DoNothing: true,
		}).
		Create(b)
	if res.Error != nil || res.RowsAffected > 0 {
		return res.Error
	}
	// A placeholder left from an earlier reading must follow the new one.
	return db.WithContext(ctx).
		Model(&billdomain.Bill{}).
		Where("house_id = ? AND period_start = ? AND status = ?", b.HouseID, b.PeriodStart, billingrules.StatusPending).
		Updates(map[string]any{"reading_id": b.ReadingID, "updated_at": b.UpdatedAt}).Error
}

func (r *repo) DeleteBill(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&billdomain.Bill{}).Error
}
