package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// TariffRate is one version of a rate. A version applies from EffectiveFrom
// until a later version of the same code takes over.
type TariffRate struct {
	ID            snowflake.ID    `gorm:"primaryKey;autoIncrement:false"`
	Code          string          `gorm:"type:text;not null;uniqueIndex:ux_tariff_code_effective,priority:1"`
	Rate          decimal.Decimal `gorm:"type:numeric(14,4);not null"`
	EffectiveFrom time.Time       `gorm:"not null;uniqueIndex:ux_tariff_code_effective,priority:2"`
	CreatedAt     time.Time       `gorm:"not null"`
	UpdatedAt     time.Time       `gorm:"not null"`
}

func (TariffRate) TableName() string { return "tariff_rates" }
