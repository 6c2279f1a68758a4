package billingrules

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a bill.
type Status string

const (
	StatusPending       Status = "PENDING"
	StatusGenerated     Status = "GENERATED"
	StatusPartiallyPaid Status = "PARTIALLY_PAID"
	StatusPaid          Status = "PAID"
	StatusOverdue       Status = "OVERDUE"
)

// ParseStatus reports whether value is one of the five bill states.
func ParseStatus(value string) (Status, bool) {
	switch Status(value) {
	case StatusPending, StatusGenerated, StatusPartiallyPaid, StatusPaid, StatusOverdue:
		return Status(value), true
	default:
		return "", false
	}
}

// Tariff rate codes.
const (
	RateFixedCharge       = "fixed_charge_rate"
	RateElectricityCharge = "electricity_charge_rate"
	RateElectricityDuty   = "electricity_duty_rate"
	RateMaintenanceCharge = "maintenance_charge_rate"
	RateWaterCharge       = "water_charge_rate"
)

// RateCodes lists every rate the engine reads.
var RateCodes = []string{
	RateFixedCharge,
	RateElectricityCharge,
	RateElectricityDuty,
	RateMaintenanceCharge,
	RateWaterCharge,
}

// IsRateCode reports whether code names a known tariff rate.
func IsRateCode(code string) bool {
	for _, known := range RateCodes {
		if known == code {
			return true
		}
	}
	return false
}

// TariffRates maps a rate code to its per-unit multiplier.
type TariffRates map[string]decimal.Decimal

// Get returns the rate for code, or zero when it was never configured.
func (r TariffRates) Get(code string) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	rate, ok := r[code]
	if !ok {
		return decimal.Zero
	}
	return rate
}

// Reading is the cumulative meter snapshot of the current period.
type Reading struct {
	Import decimal.Decimal
	Export decimal.Decimal
	Water  decimal.Decimal
}

// PreviousPeriod is the stored state of the period immediately before the current one.
type PreviousPeriod struct {
	Import       decimal.Decimal
	Export       decimal.Decimal
	Water        decimal.Decimal
	CarryForward decimal.Decimal
}

// Consumption is the electricity usage derived for one period.
type Consumption struct {
	Consumption  decimal.Decimal
	BilledEnergy decimal.Decimal
	CarryForward decimal.Decimal
}

// ElectricityCharges are the charges driven by billed energy.
type ElectricityCharges struct {
	FixedCharge       decimal.Decimal
	ElectricityCharge decimal.Decimal
	ElectricityDuty   decimal.Decimal
	MaintenanceCharge decimal.Decimal
}

// ChargeComponents are the itemized amounts of one period.
type ChargeComponents struct {
	FixedCharge       decimal.Decimal
	ElectricityCharge decimal.Decimal
	ElectricityDuty   decimal.Decimal
	MaintenanceCharge decimal.Decimal
	WaterCharge       decimal.Decimal
	OtherCharges      decimal.Decimal
	LicenseFee        decimal.Decimal
	ResidenceFee      decimal.Decimal
}

// BillRecord is the assembled bill of one period. Bill1 is the electricity side,
// Bill2 is water, maintenance and fees.
type BillRecord struct {
	Bill1Standard decimal.Decimal
	Bill1Penalty  decimal.Decimal
	Bill2Standard decimal.Decimal
	Bill2Penalty  decimal.Decimal
	TotalStandard decimal.Decimal
	TotalPenalty  decimal.Decimal
	Status        Status
}

// PaymentOutcome is the result of applying an amount to a bill.
type PaymentOutcome struct {
	Status      Status
	Remaining   decimal.Decimal
	Bill1Arrear decimal.Decimal
	Bill2Arrear decimal.Decimal
}

// Rules holds the tunable constants of the engine.
type Rules struct {
	// PenaltyRate is the late surcharge applied to each standard amount (0.015 = 1.5%).
	PenaltyRate decimal.Decimal
	// FiscalYearStartMonth is the month in which the carry-forward bank is discarded.
	FiscalYearStartMonth time.Month
}

// DefaultRules returns a 1.5% penalty and an April fiscal year start.
func DefaultRules() Rules {
	return Rules{
		PenaltyRate:          decimal.RequireFromString("0.015"),
		FiscalYearStartMonth: time.April,
	}
}

func (r Rules) fiscalStart() time.Month {
	if r.FiscalYearStartMonth < time.January || r.FiscalYearStartMonth > time.December {
		return time.April
	}
	return r.FiscalYearStartMonth
}

func (r Rules) penaltyMultiplier() decimal.Decimal {
	rate := r.PenaltyRate
	if rate.IsNegative() {
		rate = decimal.Zero
	}
	return decimal.NewFromInt(1).Add(rate)
}

const moneyPlaces = 2

// RoundMoney rounds an amount to paise, half away from zero.
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(moneyPlaces)
}
