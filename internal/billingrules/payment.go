package billingrules

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ApplyPayment classifies a bill against the amount paid so far. The amount is
// compared with the penalty total whatever the payment date.
func (r Rules) ApplyPayment(bill BillRecord, amountPaid decimal.Decimal) (PaymentOutcome, error) {
	switch bill.Status {
	case StatusPending:
		return PaymentOutcome{}, fmt.Errorf("%w: bill has not been generated", ErrInvalidPaymentState)
	case StatusPaid:
		return PaymentOutcome{}, fmt.Errorf("%w: bill is already paid", ErrInvalidPaymentState)
	}
	if !amountPaid.IsPositive() {
		return PaymentOutcome{}, ErrInvalidAmount
	}

	if amountPaid.GreaterThanOrEqual(bill.TotalPenalty) {
		return PaymentOutcome{
			Status:      StatusPaid,
			Remaining:   decimal.Zero,
			Bill1Arrear: decimal.Zero,
			Bill2Arrear: decimal.Zero,
		}, nil
	}

	remaining := bill.TotalPenalty.Sub(amountPaid)
	bill1, bill2 := SplitArrears(bill, remaining)
	return PaymentOutcome{
		Status:      StatusPartiallyPaid,
		Remaining:   remaining,
		Bill1Arrear: bill1,
		Bill2Arrear: bill2,
	}, nil
}

// Outstanding returns the arrears a generated bill carries forward when nothing
// has been paid against it.
func Outstanding(bill BillRecord) (bill1Arrear, bill2Arrear decimal.Decimal) {
	if bill.Status == StatusPending || bill.Status == StatusPaid {
		return decimal.Zero, decimal.Zero
	}
	return SplitArrears(bill, bill.TotalPenalty)
}

// SplitArrears divides remaining between the two sides in proportion to their
// penalty amounts. The second side absorbs rounding so the pair sums to remaining.
func SplitArrears(bill BillRecord, remaining decimal.Decimal) (bill1Arrear, bill2Arrear decimal.Decimal) {
	if !bill.TotalPenalty.IsPositive() || !remaining.IsPositive() {
		return decimal.Zero, decimal.Zero
	}
	bill1Arrear = RoundMoney(remaining.Mul(bill.Bill1Penalty).Div(bill.TotalPenalty))
	bill2Arrear = remaining.Sub(bill1Arrear)
	return bill1Arrear, bill2Arrear
}
