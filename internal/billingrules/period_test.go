package billingrules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	want := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{"2024-04", "2024-04-17", " 2024-04-01 ", "2024-04-30T22:00:00Z"} {
		got, err := ParsePeriod(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s -> %s", in, got)
	}

	for _, in := range []string{"", "April", "2024/04"} {
		_, err := ParsePeriod(in)
		assert.ErrorIs(t, err, ErrInvalidPeriod, in)
	}
}

func TestDueDate(t *testing.T) {
	period := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, time.February, 15, 23, 59, 59, 0, time.UTC), DueDate(period, 15))
	assert.Equal(t, time.Date(2024, time.February, 29, 23, 59, 59, 0, time.UTC), DueDate(period, 31))
	assert.Equal(t, time.Date(2024, time.February, 1, 23, 59, 59, 0, time.UTC), DueDate(period, 0))
}

func TestPreviousPeriodOf(t *testing.T) {
	got := PreviousPeriodOf(time.Date(2024, time.January, 9, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2023-12", FormatPeriod(got))
}
