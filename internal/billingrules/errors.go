package billingrules

import "errors"

var (
	// ErrMissingPrerequisite is returned when the previous period's reading or bill does not exist.
	ErrMissingPrerequisite = errors.New("missing_prerequisite")
	// ErrReadingNotEntered is returned when the import or water reading of the period is still zero.
	ErrReadingNotEntered = errors.New("reading_not_entered")
	// ErrUnconfiguredTariff is returned when a whole bill side would be built from zero charges.
	ErrUnconfiguredTariff = errors.New("unconfigured_tariff")
	// ErrInvalidPaymentState is returned when a payment targets a bill that cannot accept one.
	ErrInvalidPaymentState = errors.New("invalid_payment_state")
	// ErrInvalidAmount is returned when a payment amount is zero or negative.
	ErrInvalidAmount = errors.New("invalid_amount")
)
