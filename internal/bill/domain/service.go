package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/utilitybill/pkg/db/pagination"
)

type Service interface {
	Generate(ctx context.Context, req GenerateRequest) (*Response, error)
	GenerateBatch(ctx context.Context, req GenerateBatchRequest) (*BatchResponse, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Summary(ctx context.Context, period string) (*SummaryResponse, error)
	GetByID(ctx context.Context, id string) (*Response, error)
	// Regenerate recomputes a generated, unpaid bill from current data.
	Regenerate(ctx context.Context, id string) (*Response, error)
	// Delete returns the latest unpaid bill of a house to PENDING.
	Delete(ctx context.Context, id string) error
	RenderPDF(ctx context.Context, id string) (*Document, error)
	ExportRegister(ctx context.Context, period string) (*Document, error)
	// MarkOverdue moves up to limit bills past their due date to OVERDUE.
	MarkOverdue(ctx context.Context, limit int) (int, error)
}

type GenerateRequest struct {
	HouseID string `json:"house_id"`
	Period  string `json:"period"`
}

type GenerateBatchRequest struct {
	Period    string `json:"period"`
	MohallaID string `json:"mohalla_id"`
}

type BatchError struct {
	HouseID string `json:"house_id"`
	Message string `json:"message"`
}

type BatchResponse struct {
	Period    string       `json:"period"`
	Generated int          `json:"generated"`
	Skipped   int          `json:"skipped"`
	Failed    int          `json:"failed"`
	Errors    []BatchError `json:"errors"`
}

type ListRequest struct {
	pagination.Pagination
	HouseID   string
	MohallaID string
	Period    string
	Status    string
}

type ListResponse struct {
	pagination.PageInfo
	Bills []Response `json:"bills"`
}

type StatusSummary struct {
	Status        string          `json:"status"`
	Count         int64           `json:"count"`
	TotalStandard decimal.Decimal `json:"total_standard"`
	TotalPenalty  decimal.Decimal `json:"total_penalty"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
}

type SummaryResponse struct {
	Period        string          `json:"period"`
	Statuses      []StatusSummary `json:"statuses"`
	Count         int64           `json:"count"`
	TotalStandard decimal.Decimal `json:"total_standard"`
	TotalPenalty  decimal.Decimal `json:"total_penalty"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
}

type Response struct {
	ID                  string          `json:"id"`
	HouseID             string          `json:"house_id"`
	Period              string          `json:"period"`
	ReadingID           *string         `json:"reading_id,omitempty"`
	PreviousBillID      *string         `json:"previous_bill_id,omitempty"`
	Version             int64           `json:"version"`
	Stale               bool            `json:"stale"`
	FixedCharge         decimal.Decimal `json:"fixed_charge"`
	ElectricityCharge   decimal.Decimal `json:"electricity_charge"`
	ElectricityDuty     decimal.Decimal `json:"electricity_duty"`
	MaintenanceCharge   decimal.Decimal `json:"maintenance_charge"`
	WaterCharge         decimal.Decimal `json:"water_charge"`
	OtherCharges        decimal.Decimal `json:"other_charges"`
	LicenseFee          decimal.Decimal `json:"license_fee"`
	ResidenceFee        decimal.Decimal `json:"residence_fee"`
	PreviousBill1Arrear decimal.Decimal `json:"previous_bill1_arrear"`
	PreviousBill2Arrear decimal.Decimal `json:"previous_bill2_arrear"`
	Bill1Standard       decimal.Decimal `json:"bill1_standard_amount"`
	Bill1Penalty        decimal.Decimal `json:"bill1_penalty_amount"`
	Bill2Standard       decimal.Decimal `json:"bill2_standard_amount"`
	Bill2Penalty        decimal.Decimal `json:"bill2_penalty_amount"`
	TotalStandard       decimal.Decimal `json:"total_standard_amount"`
	TotalPenalty        decimal.Decimal `json:"total_penalty_amount"`
	AmountPaid          decimal.Decimal `json:"amount_paid"`
	Bill1Arrear         decimal.Decimal `json:"bill1_arrear"`
	Bill2Arrear         decimal.Decimal `json:"bill2_arrear"`
	Status              string          `json:"status"`
	DueDate             *time.Time      `json:"due_date,omitempty"`
	GeneratedAt         *time.Time      `json:"generated_at,omitempty"`
	PaidAt              *time.Time      `json:"paid_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Document is a rendered file.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidHouse       = errors.New("invalid_house_id")
	ErrInvalidMohalla     = errors.New("invalid_mohalla_id")
	ErrInvalidPeriod      = errors.New("invalid_period")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrNotFound           = errors.New("not_found")
	ErrHouseNotFound      = errors.New("house_not_found")
	ErrAlreadyGenerated   = errors.New("bill_already_generated")
	ErrNotGenerated       = errors.New("bill_not_generated")
	ErrHasPayments        = errors.New("bill_has_payments")
	ErrSuccessorGenerated = errors.New("successor_bill_generated")
	ErrInProgress         = errors.New("bill_generation_in_progress")
)

func ParseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(value)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}
