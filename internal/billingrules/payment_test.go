package billingrules

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generatedBill(t *testing.T) BillRecord {
	t.Helper()
	bill, err := DefaultRules().AssembleBill(sampleCharges(), d("33.33"), d("11.11"))
	require.NoError(t, err)
	return bill
}

func TestApplyPaymentFullPaymentZeroesArrears(t *testing.T) {
	rules := DefaultRules()
	bill := generatedBill(t)

	for _, extra := range []string{"0", "0.01", "500"} {
		got, err := rules.ApplyPayment(bill, bill.TotalPenalty.Add(d(extra)))
		require.NoError(t, err)
		assert.Equal(t, StatusPaid, got.Status)
		assert.True(t, got.Bill1Arrear.IsZero())
		assert.True(t, got.Bill2Arrear.IsZero())
	}
}

func TestApplyPaymentArrearConservation(t *testing.T) {
	rules := DefaultRules()
	bill := generatedBill(t)

	for _, paid := range []string{"0.01", "1", "333.33", "1000", "1522.49"} {
		amount := d(paid)
		got, err := rules.ApplyPayment(bill, amount)
		require.NoError(t, err)
		assert.Equal(t, StatusPartiallyPaid, got.Status)

		want := bill.TotalPenalty.Sub(amount)
		assert.True(t, want.Equal(got.Bill1Arrear.Add(got.Bill2Arrear)), "paid %s: %s + %s != %s", paid, got.Bill1Arrear, got.Bill2Arrear, want)
		assert.False(t, got.Bill1Arrear.IsNegative())
		assert.False(t, got.Bill2Arrear.IsNegative())
	}
}

func TestApplyPaymentSplitsProportionally(t *testing.T) {
	rules := DefaultRules()
	bill := BillRecord{
		Bill1Penalty: d("300"),
		Bill2Penalty: d("100"),
		TotalPenalty: d("400"),
		Status:       StatusGenerated,
	}

	got, err := rules.ApplyPayment(bill, d("200"))
	require.NoError(t, err)
	assert.Equal(t, "150", got.Bill1Arrear.String())
	assert.Equal(t, "50", got.Bill2Arrear.String())
}

func TestApplyPaymentOverdueBillAcceptsPayment(t *testing.T) {
	bill := generatedBill(t)
	bill.Status = StatusOverdue

	got, err := DefaultRules().ApplyPayment(bill, d("10"))
	require.NoError(t, err)
	assert.Equal(t, StatusPartiallyPaid, got.Status)
}

func TestApplyPaymentRejectsInvalidState(t *testing.T) {
	rules := DefaultRules()

	for _, status := range []Status{StatusPending, StatusPaid} {
		bill := generatedBill(t)
		bill.Status = status
		_, err := rules.ApplyPayment(bill, d("10"))
		assert.True(t, errors.Is(err, ErrInvalidPaymentState), "status %s: %v", status, err)
	}
}

func TestApplyPaymentRejectsNonPositiveAmount(t *testing.T) {
	rules := DefaultRules()
	bill := generatedBill(t)

	for _, amount := range []string{"0", "-5"} {
		_, err := rules.ApplyPayment(bill, d(amount))
		assert.True(t, errors.Is(err, ErrInvalidAmount), "amount %s: %v", amount, err)
	}
}

func TestSplitArrearsZeroTotal(t *testing.T) {
	bill := BillRecord{Status: StatusGenerated}

	b1, b2 := SplitArrears(bill, d("75"))
	assert.True(t, b1.IsZero())
	assert.True(t, b2.IsZero())

	got, err := DefaultRules().ApplyPayment(bill, d("0.01"))
	require.NoError(t, err)
	assert.True(t, got.Bill1Arrear.IsZero())
	assert.True(t, got.Bill2Arrear.IsZero())
}

func TestOutstandingCarriesPenaltyAmounts(t *testing.T) {
	bill := generatedBill(t)

	b1, b2 := Outstanding(bill)
	assert.True(t, bill.Bill1Penalty.Equal(b1), "%s != %s", b1, bill.Bill1Penalty)
	assert.True(t, bill.Bill2Penalty.Equal(b2), "%s != %s", b2, bill.Bill2Penalty)

	bill.Status = StatusPending
	b1, b2 = Outstanding(bill)
	assert.True(t, b1.IsZero())
	assert.True(t, b2.Equal(decimal.Zero))
}
