package billingrules

import (
	"time"

	"github.com/shopspring/decimal"
)

// ComputeConsumption derives the billable energy of a period from two cumulative
// snapshots. A nil previous period is the first reading of a unit and yields zeros.
//
// Negative usage is banked as carry-forward and offsets later periods. The bank is
// discarded in the fiscal start month.
func (r Rules) ComputeConsumption(current Reading, previous *PreviousPeriod, periodMonth time.Month) Consumption {
	if previous == nil {
		return Consumption{
			Consumption:  decimal.Zero,
			BilledEnergy: decimal.Zero,
			CarryForward: decimal.Zero,
		}
	}

	importDiff := current.Import.Sub(previous.Import)
	exportDiff := current.Export.Sub(previous.Export)
	consumption := importDiff.Sub(exportDiff)

	billed := consumption
	if periodMonth != r.fiscalStart() {
		billed = consumption.Sub(nonNegative(previous.CarryForward))
	}

	// billed already nets the old bank outside the fiscal start month, so its
	// negation is the new bank.
	carry := decimal.Zero
	if billed.IsNegative() {
		carry = billed.Neg()
		billed = decimal.Zero
	}

	return Consumption{
		Consumption:  consumption,
		BilledEnergy: billed,
		CarryForward: carry,
	}
}

// WaterConsumption is the water meter delta of a period, clamped at zero when the
// meter was replaced or misread.
func WaterConsumption(current Reading, previous *PreviousPeriod) decimal.Decimal {
	if previous == nil {
		return decimal.Zero
	}
	return nonNegative(current.Water.Sub(previous.Water))
}

func nonNegative(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}
