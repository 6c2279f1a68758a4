package cache

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/utilitybill/internal/billingrules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheExpires(t *testing.T) {
	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	c := newTTLCache[string, int](func() time.Time { return now })

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, 0)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)

	v, ok = c.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	c.Purge()
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestTariffCacheReturnsCopies(t *testing.T) {
	c := NewTariffCache()
	period := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	c.SetRates(period, billingrules.TariffRates{billingrules.RateFixedCharge: decimal.NewFromInt(2)})

	got, ok := c.GetRates(period.AddDate(0, 0, 10))
	require.True(t, ok)
	got[billingrules.RateFixedCharge] = decimal.NewFromInt(99)

	again, ok := c.GetRates(period)
	require.True(t, ok)
	assert.True(t, again.Get(billingrules.RateFixedCharge).Equal(decimal.NewFromInt(2)))

	c.Invalidate()
	_, ok = c.GetRates(period)
	assert.False(t, ok)
}
