package billingrules

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Prerequisites describes the history available when a bill is generated.
type Prerequisites struct {
	Current            Reading
	HasPreviousReading bool
	HasPreviousBill    bool
}

// CheckPrerequisites fails fast when a bill cannot be generated yet. A reading of
// exactly zero means it was never entered.
func CheckPrerequisites(p Prerequisites) error {
	if p.Current.Import.IsZero() {
		return fmt.Errorf("%w: import reading", ErrReadingNotEntered)
	}
	if p.Current.Water.IsZero() {
		return fmt.Errorf("%w: water reading", ErrReadingNotEntered)
	}
	if !p.HasPreviousReading {
		return fmt.Errorf("%w: previous reading", ErrMissingPrerequisite)
	}
	if !p.HasPreviousBill {
		return fmt.Errorf("%w: previous bill", ErrMissingPrerequisite)
	}
	return nil
}

// AssembleBill combines a period's charges with the arrears carried from the
// previous period into the two bill sides and their penalty amounts.
func (r Rules) AssembleBill(charges ChargeComponents, previousBill1Arrear, previousBill2Arrear decimal.Decimal) (BillRecord, error) {
	if allZero(charges.FixedCharge, charges.ElectricityCharge, charges.ElectricityDuty) {
		return BillRecord{}, fmt.Errorf("%w: fixed, electricity and duty charges are all zero", ErrUnconfiguredTariff)
	}
	if allZero(charges.LicenseFee, charges.ResidenceFee, charges.MaintenanceCharge, charges.WaterCharge) {
		return BillRecord{}, fmt.Errorf("%w: license, residence, maintenance and water charges are all zero", ErrUnconfiguredTariff)
	}

	multiplier := r.penaltyMultiplier()

	bill1Standard := RoundMoney(decimal.Sum(
		charges.FixedCharge,
		charges.ElectricityCharge,
		charges.ElectricityDuty,
		nonNegative(previousBill1Arrear),
	))
	bill2Standard := RoundMoney(decimal.Sum(
		charges.LicenseFee,
		charges.ResidenceFee,
		charges.MaintenanceCharge,
		charges.WaterCharge,
		nonNegative(charges.OtherCharges),
		nonNegative(previousBill2Arrear),
	))
	bill1Penalty := RoundMoney(bill1Standard.Mul(multiplier))
	bill2Penalty := RoundMoney(bill2Standard.Mul(multiplier))

	return BillRecord{
		Bill1Standard: bill1Standard,
		Bill1Penalty:  bill1Penalty,
		Bill2Standard: bill2Standard,
		Bill2Penalty:  bill2Penalty,
		TotalStandard: bill1Standard.Add(bill2Standard),
		TotalPenalty:  bill1Penalty.Add(bill2Penalty),
		Status:        StatusGenerated,
	}, nil
}

func allZero(values ...decimal.Decimal) bool {
	for _, v := range values {
		if !v.IsZero() {
			return false
		}
	}
	return true
}
