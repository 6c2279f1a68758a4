package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/utilitybill/internal/clock"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Recorder appends billing events to the outbox.
type Recorder interface {
	Record(ctx context.Context, tx *gorm.DB, eventType string, aggregateID snowflake.ID, payload any) error
}

type outbox struct {
	genID *snowflake.Node
	clock clock.Clock
}

func NewOutbox(genID *snowflake.Node, clk clock.Clock) Recorder {
	return &outbox{genID: genID, clock: clk}
}

func (o *outbox) Record(ctx context.Context, tx *gorm.DB, eventType string, aggregateID snowflake.ID, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return tx.WithContext(ctx).Create(&BillingEvent{
		ID:          o.genID.Generate(),
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     datatypes.JSON(body),
		CreatedAt:   o.clock.Now(),
	}).Error
}
