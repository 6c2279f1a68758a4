package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/utilitybill/internal/billingrules"
)

// Bill is the persisted bill of one house for one month. A PENDING row only
// marks that a reading exists; amounts are filled in on generation.
type Bill struct {
	ID                  snowflake.ID  `gorm:"primaryKey;autoIncrement:false"`
	HouseID             snowflake.ID  `gorm:"not null;uniqueIndex:ux_bills_house_period,priority:1"`
	PeriodStart         time.Time     `gorm:"not null;uniqueIndex:ux_bills_house_period,priority:2"`
	ReadingID           *snowflake.ID `gorm:"column:reading_id"`
	PreviousBillID      *snowflake.ID `gorm:"column:previous_bill_id"`
	PreviousBillVersion int64         `gorm:"not null;default:0"`
	Version             int64         `gorm:"not null;default:0"`

	FixedCharge       decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	ElectricityCharge decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	ElectricityDuty   decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	MaintenanceCharge decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	WaterCharge       decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	OtherCharges      decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	LicenseFee        decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	ResidenceFee      decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`

	PreviousBill1Arrear decimal.Decimal `gorm:"column:previous_bill1_arrear;type:numeric(14,2);not null;default:0"`
	PreviousBill2Arrear decimal.Decimal `gorm:"column:previous_bill2_arrear;type:numeric(14,2);not null;default:0"`

	Bill1Standard decimal.Decimal `gorm:"column:bill1_standard;type:numeric(14,2);not null;default:0"`
	Bill1Penalty  decimal.Decimal `gorm:"column:bill1_penalty;type:numeric(14,2);not null;default:0"`
	Bill2Standard decimal.Decimal `gorm:"column:bill2_standard;type:numeric(14,2);not null;default:0"`
	Bill2Penalty  decimal.Decimal `gorm:"column:bill2_penalty;type:numeric(14,2);not null;default:0"`
	TotalStandard decimal.Decimal `gorm:"column:total_standard;type:numeric(14,2);not null;default:0"`
	TotalPenalty  decimal.Decimal `gorm:"column:total_penalty;type:numeric(14,2);not null;default:0"`

	AmountPaid  decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	Bill1Arrear decimal.Decimal `gorm:"column:bill1_arrear;type:numeric(14,2);not null;default:0"`
	Bill2Arrear decimal.Decimal `gorm:"column:bill2_arrear;type:numeric(14,2);not null;default:0"`

	Status      billingrules.Status `gorm:"type:text;not null;index:ix_bills_status_due,priority:1"`
	DueDate     *time.Time          `gorm:"index:ix_bills_status_due,priority:2"`
	GeneratedAt *time.Time
	PaidAt      *time.Time
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (Bill) TableName() string { return "bills" }

// Record returns the engine view of the bill.
func (b *Bill) Record() billingrules.BillRecord {
	return billingrules.BillRecord{
		Bill1Standard: b.Bill1Standard,
		Bill1Penalty:  b.Bill1Penalty,
		Bill2Standard: b.Bill2Standard,
		Bill2Penalty:  b.Bill2Penalty,
		TotalStandard: b.TotalStandard,
		TotalPenalty:  b.TotalPenalty,
		Status:        b.Status,
	}
}

// Arrears returns what the bill carries into the next month. Bill1Arrear and
// Bill2Arrear hold the unpaid penalty amounts from generation onwards; a bill
// that was never generated carries nothing.
func (b *Bill) Arrears() (bill1, bill2 decimal.Decimal) {
	if b.Status == billingrules.StatusPending {
		return decimal.Zero, decimal.Zero
	}
	return b.Bill1Arrear, b.Bill2Arrear
}

// NewPending returns the placeholder bill created alongside a reading.
func NewPending(id, houseID, readingID snowflake.ID, period, now time.Time) *Bill {
	return &Bill{
		ID:                  id,
		HouseID:             houseID,
		PeriodStart:         billingrules.NormalizePeriod(period),
		ReadingID:           &readingID,
		FixedCharge:         decimal.Zero,
		ElectricityCharge:   decimal.Zero,
		ElectricityDuty:     decimal.Zero,
		MaintenanceCharge:   decimal.Zero,
		WaterCharge:         decimal.Zero,
		OtherCharges:        decimal.Zero,
		LicenseFee:          decimal.Zero,
		ResidenceFee:        decimal.Zero,
		PreviousBill1Arrear: decimal.Zero,
		PreviousBill2Arrear: decimal.Zero,
		Bill1Standard:       decimal.Zero,
		Bill1Penalty:        decimal.Zero,
		Bill2Standard:       decimal.Zero,
		Bill2Penalty:        decimal.Zero,
		TotalStandard:       decimal.Zero,
		TotalPenalty:        decimal.Zero,
		AmountPaid:          decimal.Zero,
		Bill1Arrear:         decimal.Zero,
		Bill2Arrear:         decimal.Zero,
		Status:              billingrules.StatusPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}
