package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/utilitybill/internal/billingrules"
)

// MeterReading holds the cumulative meter values of one house at the start of
// a month together with the consumption derived from the previous month.
type MeterReading struct {
	ID                snowflake.ID    `gorm:"primaryKey;autoIncrement:false"`
	HouseID           snowflake.ID    `gorm:"not null;uniqueIndex:ux_readings_house_period,priority:1"`
	PeriodStart       time.Time       `gorm:"not null;uniqueIndex:ux_readings_house_period,priority:2"`
	ImportReading     decimal.Decimal `gorm:"type:numeric(14,3);not null;default:0"`
	ExportReading     decimal.Decimal `gorm:"type:numeric(14,3);not null;default:0"`
	WaterReading      decimal.Decimal `gorm:"type:numeric(14,3);not null;default:0"`
	Consumption       decimal.Decimal `gorm:"type:numeric(14,3);not null;default:0"`
	BilledEnergy      decimal.Decimal `gorm:"type:numeric(14,3);not null;default:0"`
	CarryForward      decimal.Decimal `gorm:"type:numeric(14,3);not null;default:0"`
	WaterConsumption  decimal.Decimal `gorm:"type:numeric(14,3);not null;default:0"`
	PreviousReadingID *snowflake.ID
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

func (MeterReading) TableName() string { return "meter_readings" }

func (r *MeterReading) Values() billingrules.Reading {
	return billingrules.Reading{
		Import: r.ImportReading,
		Export: r.ExportReading,
		Water:  r.WaterReading,
	}
}

// AsPrevious returns the reading as the predecessor of the next month.
func (r *MeterReading) AsPrevious() *billingrules.PreviousPeriod {
	return &billingrules.PreviousPeriod{
		Import:       r.ImportReading,
		Export:       r.ExportReading,
		Water:        r.WaterReading,
		CarryForward: r.CarryForward,
	}
}
