package cache

import (
	"time"

	"github.com/smallbiznis/utilitybill/internal/billingrules"
)

const defaultTariffTTL = 5 * time.Minute

// TariffCache holds resolved rate sets keyed by billing period.
type TariffCache interface {
	GetRates(period time.Time) (billingrules.TariffRates, bool)
	SetRates(period time.Time, rates billingrules.TariffRates)
	// Invalidate drops every cached period. Any rate change can affect all
	// later periods, so entries are not evicted individually.
	Invalidate()
}

type tariffCache struct {
	rates Cache[string, billingrules.TariffRates]
	ttl   time.Duration
}

func NewTariffCache() TariffCache {
	return &tariffCache{
		rates: NewTTLCache[string, billingrules.TariffRates](),
		ttl:   defaultTariffTTL,
	}
}

func (c *tariffCache) GetRates(period time.Time) (billingrules.TariffRates, bool) {
	rates, ok := c.rates.Get(billingrules.FormatPeriod(period))
	if !ok {
		return nil, false
	}
	return copyRates(rates), true
}

func (c *tariffCache) SetRates(period time.Time, rates billingrules.TariffRates) {
	if rates == nil {
		return
	}
	c.rates.Set(billingrules.FormatPeriod(period), copyRates(rates), c.ttl)
}

func (c *tariffCache) Invalidate() {
	c.rates.Purge()
}

func copyRates(in billingrules.TariffRates) billingrules.TariffRates {
	out := make(billingrules.TariffRates, len(in))
	for code, rate := range in {
		out[code] = rate
	}
	return out
}
