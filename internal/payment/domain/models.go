package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/utilitybill/internal/billingrules"
)

// Payment is money received against one bill.
type Payment struct {
	ID             snowflake.ID        `gorm:"primaryKey;autoIncrement:false"`
	BillID         snowflake.ID        `gorm:"not null;index:ix_payments_bill"`
	ReceiptNumber  string              `gorm:"type:text;not null;uniqueIndex:ux_payments_receipt"`
	IdempotencyKey *string             `gorm:"type:text;uniqueIndex:ux_payments_idempotency"`
	Amount         decimal.Decimal     `gorm:"type:numeric(14,2);not null"`
	Method         string              `gorm:"type:text;not null"`
	Reference      string              `gorm:"type:text;not null;default:''"`
	Notes          string              `gorm:"type:text;not null;default:''"`
	PaidAt         time.Time           `gorm:"not null"`
	StatusAfter    billingrules.Status `gorm:"type:text;not null"`
	CreatedAt      time.Time           `gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }

// Accepted payment methods.
const (
	MethodCash         = "cash"
	MethodCheque       = "cheque"
	MethodUPI          = "upi"
	MethodBankTransfer = "bank_transfer"
	MethodCard         = "card"
)

func IsMethod(method string) bool {
	switch method {
	case MethodCash, MethodCheque, MethodUPI, MethodBankTransfer, MethodCard:
		return true
	default:
		return false
	}
}
