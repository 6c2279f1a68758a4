package events

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	EventReadingRecorded = "reading.recorded"
	EventBillGenerated   = "bill.generated"
	EventBillRegenerated = "bill.regenerated"
	EventBillDeleted     = "bill.deleted"
	EventBillOverdue     = "bill.overdue"
	EventPaymentRecorded = "payment.recorded"
)

// BillingEvent is an outbox row written in the same transaction as the change it announces.
type BillingEvent struct {
	ID          snowflake.ID   `json:"id" gorm:"primaryKey;autoIncrement:false"`
	EventType   string         `json:"event_type" gorm:"type:text;not null"`
	AggregateID snowflake.ID   `json:"aggregate_id" gorm:"not null;index"`
	Payload     datatypes.JSON `json:"payload" gorm:"not null"`
	Published   bool           `json:"published" gorm:"not null;default:false;index"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at" gorm:"not null"`
}

func (BillingEvent) TableName() string { return "billing_events" }
