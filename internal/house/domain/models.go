package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// House is a billable unit. Fees are charged on every bill of the house.
type House struct {
	ID                     snowflake.ID    `gorm:"primaryKey;autoIncrement:false"`
	MohallaID              snowflake.ID    `gorm:"not null;uniqueIndex:ux_houses_mohalla_number,priority:1"`
	HouseNumber            string          `gorm:"type:text;not null;uniqueIndex:ux_houses_mohalla_number,priority:2"`
	OwnerName              string          `gorm:"type:text;not null"`
	MobileNumber           string          `gorm:"type:text;not null;default:''"`
	Email                  string          `gorm:"type:text;not null;default:''"`
	ElectricityMeterNumber string          `gorm:"type:text;not null;default:''"`
	WaterMeterNumber       string          `gorm:"type:text;not null;default:''"`
	LicenseFee             decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	ResidenceFee           decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	OtherCharges           decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	Active                 bool            `gorm:"not null"`
	CreatedAt              time.Time       `gorm:"not null"`
	UpdatedAt              time.Time       `gorm:"not null"`
}

func (House) TableName() string { return "houses" }
