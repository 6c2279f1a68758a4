package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/utilitybill/internal/clock"
	mohalladomain "github.com/smallbiznis/utilitybill/internal/mohalla/domain"
	mohallaservice "github.com/smallbiznis/utilitybill/internal/mohalla/service"
	"github.com/smallbiznis/utilitybill/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) (mohalladomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()
	db := testutil.NewDB(t)
	node := testutil.NewNode(t)
	clk := clock.NewFakeClock(time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC))
	return mohallaservice.New(mohallaservice.Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		AuditSvc: testutil.NewAuditService(db, node, clk),
	}), db, node
}

func TestCreateGeneratesUniqueSlug(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, mohalladomain.CreateRequest{Name: "Green Park"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.Code != "green-park" {
		t.Fatalf("expected code green-park, got %q", first.Code)
	}

	second, err := svc.Create(ctx, mohalladomain.CreateRequest{Name: "Green  Park"})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if second.Code != "green-park-2" {
		t.Fatalf("expected code green-park-2, got %q", second.Code)
	}

	if _, err := svc.Create(ctx, mohalladomain.CreateRequest{Name: "Other", Code: "green-park"}); !errors.Is(err, mohalladomain.ErrCodeTaken) {
		t.Fatalf("expected ErrCodeTaken for explicit code, got %v", err)
	}
}

func TestCreateRejectsBlankName(t *testing.T) {
	svc, _, _ := newService(t)

	if _, err := svc.Create(context.Background(), mohalladomain.CreateRequest{Name: "  "}); !errors.Is(err, mohalladomain.ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, mohalladomain.CreateRequest{Name: "Old Town", Description: "north"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	name := "Old Town East"
	updated, err := svc.Update(ctx, mohalladomain.UpdateRequest{ID: created.ID, Name: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != name || updated.Code != created.Code || updated.Description != "north" {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 mohalla, got %d", len(list))
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetByID(ctx, created.ID); !errors.Is(err, mohalladomain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetRejectsMalformedID(t *testing.T) {
	svc, _, _ := newService(t)

	if _, err := svc.GetByID(context.Background(), "abc"); !errors.Is(err, mohalladomain.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestDeleteRefusedWhileHousesExist(t *testing.T) {
	svc, db, node := newService(t)
	h := testutil.SeedHouse(t, db, node, "100", "50")

	err := svc.Delete(context.Background(), h.MohallaID.String())
	if !errors.Is(err, mohalladomain.ErrHasHouses) {
		t.Fatalf("expected ErrHasHouses, got %v", err)
	}
}
