package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	housedomain "github.com/smallbiznis/utilitybill/internal/house/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() housedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, h *housedomain.House) error {
	return db.WithContext(ctx).Create(h).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, h *housedomain.House) error {
	return db.WithContext(ctx).
		Model(&housedomain.House{}).
		Where("id = ?", h.ID).
		Updates(map[string]any{
			"house_number":             h.HouseNumber,
			"owner_name":               h.OwnerName,
			"mobile_number":            h.MobileNumber,
			"email":                    h.Email,
			"electricity_meter_number": h.ElectricityMeterNumber,
			"water_meter_number":       h.WaterMeterNumber,
			"license_fee":              h.LicenseFee,
			"residence_fee":            h.ResidenceFee,
			"other_charges":            h.OtherCharges,
			"active":                   h.Active,
			"updated_at":               h.UpdatedAt,
		}).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&housedomain.House{}).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*housedomain.House, error) {
	var h housedomain.House
	err := db.WithContext(ctx).Where("id = ?", id).Take(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter housedomain.ListFilter) ([]*housedomain.House, error) {
	stmt := db.WithContext(ctx).Model(&housedomain.House{})
	if filter.MohallaID != 0 {
		stmt = stmt.Where("mohalla_id = ?", filter.MohallaID)
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}
	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		like := "%" + q + "%"
		stmt = stmt.Where(
			"LOWER(house_number) LIKE ? OR LOWER(owner_name) LIKE ? OR LOWER(electricity_meter_number) LIKE ?",
			like, like, like,
		)
	}
	if filter.BeforeID != 0 {
		stmt = stmt.Where("id < ?", filter.BeforeID)
	}
	stmt = stmt.Order("id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	var houses []*housedomain.House
	if err := stmt.Find(&houses).Error; err != nil {
		return nil, err
	}
	return houses, nil
}

func (r *repo) ListActiveIDs(ctx context.Context, db *gorm.DB, mohallaID snowflake.ID) ([]snowflake.ID, error) {
	stmt := db.WithContext(ctx).Model(&housedomain.House{}).Where("active = ?", true)
	if mohallaID != 0 {
		stmt = stmt.Where("mohalla_id = ?", mohallaID)
	}
	var ids []snowflake.ID
	if err := stmt.Order("id asc").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) MohallaExists(ctx context.Context, db *gorm.DB, mohallaID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Table("mohallas").Where("id = ?", mohallaID).Count(&count).Error
	return count > 0, err
}

// HasHistory reports whether readings or bills reference the house.
func (r *repo) HasHistory(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	for _, table := range []string{"meter_readings", "bills"} {
		var count int64
		if err := db.WithContext(ctx).Table(table).Where("house_id = ?", id).Count(&count).Error; err != nil {
			return false, err
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}
