package billingrules

import "github.com/shopspring/decimal"

// ApplyRates prices billed energy. A rate that was never configured counts as zero.
func (r Rules) ApplyRates(billedEnergy decimal.Decimal, rates TariffRates) ElectricityCharges {
	energy := nonNegative(billedEnergy)
	return ElectricityCharges{
		FixedCharge:       RoundMoney(rates.Get(RateFixedCharge).Mul(energy)),
		ElectricityCharge: RoundMoney(rates.Get(RateElectricityCharge).Mul(energy)),
		ElectricityDuty:   RoundMoney(rates.Get(RateElectricityDuty).Mul(energy)),
		MaintenanceCharge: RoundMoney(rates.Get(RateMaintenanceCharge).Mul(energy)),
	}
}

// WaterCharge prices water consumption. It must be fed the water delta, never billed energy.
func (r Rules) WaterCharge(waterConsumption decimal.Decimal, rates TariffRates) decimal.Decimal {
	return RoundMoney(rates.Get(RateWaterCharge).Mul(nonNegative(waterConsumption)))
}
