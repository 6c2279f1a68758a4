package billingrules

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCharges() ChargeComponents {
	return ChargeComponents{
		FixedCharge:       d("100"),
		ElectricityCharge: d("850"),
		ElectricityDuty:   d("50"),
		MaintenanceCharge: d("200"),
		WaterCharge:       d("150"),
		OtherCharges:      d("0"),
		LicenseFee:        d("100"),
		ResidenceFee:      d("50"),
	}
}

func TestAssembleBillPenaltyArithmetic(t *testing.T) {
	rules := DefaultRules()

	got, err := rules.AssembleBill(sampleCharges(), decimal.Zero, decimal.Zero)
	require.NoError(t, err)

	assert.Equal(t, "1000", got.Bill1Standard.String())
	assert.Equal(t, "1015.00", got.Bill1Penalty.StringFixed(2))
	assert.Equal(t, "500", got.Bill2Standard.String())
	assert.Equal(t, "507.5", got.Bill2Penalty.String())
	assert.Equal(t, "1500", got.TotalStandard.String())
	assert.Equal(t, "1522.5", got.TotalPenalty.String())
	assert.Equal(t, StatusGenerated, got.Status)
}

func TestAssembleBillAddsArrears(t *testing.T) {
	rules := DefaultRules()
	charges := sampleCharges()
	charges.OtherCharges = d("25")

	got, err := rules.AssembleBill(charges, d("10.10"), d("4.90"))
	require.NoError(t, err)
	assert.Equal(t, "1010.1", got.Bill1Standard.String())
	assert.Equal(t, "529.9", got.Bill2Standard.String())
	assert.Equal(t, "1025.25", got.Bill1Penalty.String())
	assert.True(t, got.TotalPenalty.Equal(got.Bill1Penalty.Add(got.Bill2Penalty)))
}

func TestAssembleBillIgnoresNegativeOtherCharges(t *testing.T) {
	rules := DefaultRules()
	charges := sampleCharges()
	charges.OtherCharges = d("-40")

	got, err := rules.AssembleBill(charges, decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "500", got.Bill2Standard.String())
}

func TestAssembleBillIsIdempotent(t *testing.T) {
	rules := DefaultRules()

	first, err := rules.AssembleBill(sampleCharges(), d("12.34"), d("5.66"))
	require.NoError(t, err)
	second, err := rules.AssembleBill(sampleCharges(), d("12.34"), d("5.66"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAssembleBillDegenerateRateGuard(t *testing.T) {
	rules := DefaultRules()

	electricityUnset := sampleCharges()
	electricityUnset.FixedCharge = decimal.Zero
	electricityUnset.ElectricityCharge = decimal.Zero
	electricityUnset.ElectricityDuty = decimal.Zero

	_, err := rules.AssembleBill(electricityUnset, d("300"), decimal.Zero)
	assert.True(t, errors.Is(err, ErrUnconfiguredTariff), "got %v", err)

	waterUnset := sampleCharges()
	waterUnset.LicenseFee = decimal.Zero
	waterUnset.ResidenceFee = decimal.Zero
	waterUnset.MaintenanceCharge = decimal.Zero
	waterUnset.WaterCharge = decimal.Zero
	waterUnset.OtherCharges = d("99")

	_, err = rules.AssembleBill(waterUnset, decimal.Zero, d("10"))
	assert.True(t, errors.Is(err, ErrUnconfiguredTariff), "got %v", err)
}

func TestAssembleBillUsesConfiguredPenaltyRate(t *testing.T) {
	rules := DefaultRules()
	rules.PenaltyRate = d("0.02")

	got, err := rules.AssembleBill(sampleCharges(), decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "1020", got.Bill1Penalty.String())
}

func TestCheckPrerequisites(t *testing.T) {
	entered := Reading{Import: d("10"), Water: d("4")}

	tests := []struct {
		name string
		in   Prerequisites
		want error
	}{
		{"ready", Prerequisites{Current: entered, HasPreviousReading: true, HasPreviousBill: true}, nil},
		{"import not entered", Prerequisites{Current: Reading{Water: d("4")}, HasPreviousReading: true, HasPreviousBill: true}, ErrReadingNotEntered},
		{"water not entered", Prerequisites{Current: Reading{Import: d("10")}, HasPreviousReading: true, HasPreviousBill: true}, ErrReadingNotEntered},
		{"no previous reading", Prerequisites{Current: entered, HasPreviousBill: true}, ErrMissingPrerequisite},
		{"no previous bill", Prerequisites{Current: entered, HasPreviousReading: true}, ErrMissingPrerequisite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPrerequisites(tt.in)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}
