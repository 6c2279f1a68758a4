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
	// Record applies a payment to a generated bill. A repeated idempotency
	// key returns the payment stored the first time.
	Record(ctx context.Context, req RecordRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	GetByID(ctx context.Context, id string) (*Response, error)
	Receipt(ctx context.Context, id string) (*Receipt, error)
}

type RecordRequest struct {
	BillID         string           `json:"bill_id"`
	Amount         *decimal.Decimal `json:"amount"`
	Method         string           `json:"method"`
	Reference      string           `json:"reference"`
	Notes          string           `json:"notes"`
	PaidAt         *time.Time       `json:"paid_at"`
	IdempotencyKey string           `json:"-"`
}

type ListRequest struct {
	pagination.Pagination
	BillID  string
	HouseID string
}

type ListResponse struct {
	pagination.PageInfo
	Payments []Response `json:"payments"`
}

type Response struct {
	ID            string          `json:"id"`
	BillID        string          `json:"bill_id"`
	ReceiptNumber string          `json:"receipt_number"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	Reference     string          `json:"reference,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	PaidAt        time.Time       `json:"paid_at"`
	StatusAfter   string          `json:"status_after"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Receipt is a rendered payment receipt.
type Receipt struct {
	Filename    string
	ContentType string
	Body        []byte
}

var (
	ErrInvalidID     = errors.New("invalid_id")
	ErrInvalidBill   = errors.New("invalid_bill_id")
	ErrInvalidHouse  = errors.New("invalid_house_id")
	ErrInvalidAmount = errors.New("invalid_amount")
	ErrInvalidMethod = errors.New("invalid_payment_method")
	ErrNotFound      = errors.New("not_found")
	ErrBillNotFound  = errors.New("bill_not_found")
)

func ParseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(value)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}
