package testutil

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/utilitybill/internal/audit/domain"
	auditrepo "github.com/smallbiznis/utilitybill/internal/audit/repository"
	auditservice "github.com/smallbiznis/utilitybill/internal/audit/service"
	"github.com/smallbiznis/utilitybill/internal/clock"
	housedomain "github.com/smallbiznis/utilitybill/internal/house/domain"
	mohalladomain "github.com/smallbiznis/utilitybill/internal/mohalla/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewAuditService returns the real audit service backed by db.
func NewAuditService(db *gorm.DB, node *snowflake.Node, clk clock.Clock) auditdomain.Service {
	return auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  auditrepo.Provide(),
	})
}

// SeedHouse inserts a mohalla and one active house with the given fees and
// returns the house.
func SeedHouse(t *testing.T, db *gorm.DB, node *snowflake.Node, licenseFee, residenceFee string) *housedomain.House {
	t.Helper()

	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	m := &mohalladomain.Mohalla{
		ID:        node.Generate(),
		Code:      "m-" + node.Generate().String(),
		Name:      "Block A",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("seed mohalla: %v", err)
	}

	h := &housedomain.House{
		ID:           node.Generate(),
		MohallaID:    m.ID,
		HouseNumber:  "H-1",
		OwnerName:    "Owner",
		LicenseFee:   decimal.RequireFromString(licenseFee),
		ResidenceFee: decimal.RequireFromString(residenceFee),
		OtherCharges: decimal.Zero,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := db.Create(h).Error; err != nil {
		t.Fatalf("seed house: %v", err)
	}
	return h
}
