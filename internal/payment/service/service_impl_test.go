package service_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	billdomain "github.com/smallbiznis/utilitybill/internal/bill/domain"
	billrepo "github.com/smallbiznis/utilitybill/internal/bill/repository"
	"github.com/smallbiznis/utilitybill/internal/billingrules"
	"github.com/smallbiznis/utilitybill/internal/clock"
	"github.com/smallbiznis/utilitybill/internal/config"
	"github.com/smallbiznis/utilitybill/internal/events"
	paymentdomain "github.com/smallbiznis/utilitybill/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/utilitybill/internal/payment/repository"
	paymentservice "github.com/smallbiznis/utilitybill/internal/payment/service"
	"github.com/smallbiznis/utilitybill/internal/providers/pdf"
	"github.com/smallbiznis/utilitybill/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db   *gorm.DB
	node *snowflake.Node
	svc  paymentdomain.Service
	bill *billdomain.Bill
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testutil.NewDB(t)
	node := testutil.NewNode(t)
	clk := clock.NewFakeClock(time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC))
	svc := paymentservice.New(paymentservice.Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		AuditSvc: testutil.NewAuditService(db, node, clk),
		Repo:     paymentrepo.Provide(),
		BillRepo: billrepo.Provide(),
		Outbox:   events.NewOutbox(node, clk),
		Billing:  config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
		Renderer: pdf.New(),
	})

	house := testutil.SeedHouse(t, db, node, "100", "50")
	period := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	due := billingrules.DueDate(period, 15)
	generated := clk.Now()
	bill := billdomain.NewPending(node.Generate(), house.ID, node.Generate(), period, generated)
	bill.Version = 1
	bill.Status = billingrules.StatusGenerated
	bill.Bill1Standard = decimal.RequireFromString("650")
	bill.Bill1Penalty = decimal.RequireFromString("659.75")
	bill.Bill2Standard = decimal.RequireFromString("220")
	bill.Bill2Penalty = decimal.RequireFromString("223.30")
	bill.TotalStandard = decimal.RequireFromString("870")
	bill.TotalPenalty = decimal.RequireFromString("883.05")
	bill.Bill1Arrear = decimal.RequireFromString("659.75")
	bill.Bill2Arrear = decimal.RequireFromString("223.30")
	bill.DueDate = &due
	bill.GeneratedAt = &generated
	require.NoError(t, db.Create(bill).Error)

	return fixture{db: db, node: node, svc: svc, bill: bill}
}

func amount(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, got.Equal(decimal.RequireFromString(want)), "%s: want %s, got %s", field, want, got)
}

func (f fixture) reload(t *testing.T) *billdomain.Bill {
	t.Helper()
	var b billdomain.Bill
	require.NoError(t, f.db.First(&b, "id = ?", f.bill.ID).Error)
	return &b
}

func TestRecordPartialThenFull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Record(ctx, paymentdomain.RecordRequest{BillID: f.bill.ID.String(), Amount: amount("500"), Method: "UPI", Reference: "txn-1"})
	require.NoError(t, err)
	assert.Equal(t, string(billingrules.StatusPartiallyPaid), first.StatusAfter)
	assert.Equal(t, paymentdomain.MethodUPI, first.Method)
	assert.Len(t, first.ReceiptNumber, 26)

	b := f.reload(t)
	assert.Equal(t, billingrules.StatusPartiallyPaid, b.Status)
	assert.Equal(t, int64(2), b.Version)
	assertDecimal(t, "500", b.AmountPaid, "amount paid")
	assertDecimal(t, "286.19", b.Bill1Arrear, "bill1 arrear")
	assertDecimal(t, "96.86", b.Bill2Arrear, "bill2 arrear")
	assert.Nil(t, b.PaidAt)

	second, err := f.svc.Record(ctx, paymentdomain.RecordRequest{BillID: f.bill.ID.String(), Amount: amount("383.05")})
	require.NoError(t, err)
	assert.Equal(t, string(billingrules.StatusPaid), second.StatusAfter)
	assert.Equal(t, paymentdomain.MethodCash, second.Method)
	assert.NotEqual(t, first.ReceiptNumber, second.ReceiptNumber)

	b = f.reload(t)
	assert.Equal(t, billingrules.StatusPaid, b.Status)
	assert.Equal(t, int64(3), b.Version)
	assertDecimal(t, "0", b.Bill1Arrear, "bill1 arrear")
	assertDecimal(t, "0", b.Bill2Arrear, "bill2 arrear")
	assert.NotNil(t, b.PaidAt)

	_, err = f.svc.Record(ctx, paymentdomain.RecordRequest{BillID: f.bill.ID.String(), Amount: amount("1")})
	assert.ErrorIs(t, err, billingrules.ErrInvalidPaymentState)

	var count int64
	require.NoError(t, f.db.Model(&events.BillingEvent{}).Where("event_type = ?", events.EventPaymentRecorded).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestRecordStandardAmountLeavesBillPartiallyPaid(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Record(context.Background(), paymentdomain.RecordRequest{BillID: f.bill.ID.String(), Amount: amount("870")})
	require.NoError(t, err)
	assert.Equal(t, string(billingrules.StatusPartiallyPaid), resp.StatusAfter)
}

func TestRecordValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.bill.ID.String()

	cases := []struct {
		name string
		req  paymentdomain.RecordRequest
		want error
	}{
		{"bad bill", paymentdomain.RecordRequest{BillID: "x", Amount: amount("1")}, paymentdomain.ErrInvalidBill},
		{"missing amount", paymentdomain.RecordRequest{BillID: id}, paymentdomain.ErrInvalidAmount},
		{"negative amount", paymentdomain.RecordRequest{BillID: id, Amount: amount("-5")}, paymentdomain.ErrInvalidAmount},
		{"rounds to zero", paymentdomain.RecordRequest{BillID: id, Amount: amount("0.004")}, paymentdomain.ErrInvalidAmount},
		{"unknown method", paymentdomain.RecordRequest{BillID: id, Amount: amount("1"), Method: "barter"}, paymentdomain.ErrInvalidMethod},
		{"unknown bill", paymentdomain.RecordRequest{BillID: f.node.Generate().String(), Amount: amount("1")}, paymentdomain.ErrBillNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Record(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRecordRejectsPendingBill(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(&billdomain.Bill{}).Where("id = ?", f.bill.ID).Update("status", billingrules.StatusPending).Error)

	_, err := f.svc.Record(context.Background(), paymentdomain.RecordRequest{BillID: f.bill.ID.String(), Amount: amount("10")})
	assert.ErrorIs(t, err, billingrules.ErrInvalidPaymentState)
}

func TestRecordIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := paymentdomain.RecordRequest{BillID: f.bill.ID.String(), Amount: amount("100"), IdempotencyKey: "counter-42"}

	first, err := f.svc.Record(ctx, req)
	require.NoError(t, err)
	second, err := f.svc.Record(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assertDecimal(t, "100", f.reload(t).AmountPaid, "amount paid")
}

func TestListGetAndReceipt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	paid, err := f.svc.Record(ctx, paymentdomain.RecordRequest{BillID: f.bill.ID.String(), Amount: amount("100"), Method: "cheque", Reference: "CHQ-7"})
	require.NoError(t, err)
	_, err = f.svc.Record(ctx, paymentdomain.RecordRequest{BillID: f.bill.ID.String(), Amount: amount("50")})
	require.NoError(t, err)

	list, err := f.svc.List(ctx, paymentdomain.ListRequest{BillID: f.bill.ID.String()})
	require.NoError(t, err)
	require.Len(t, list.Payments, 2)

	list, err = f.svc.List(ctx, paymentdomain.ListRequest{HouseID: f.bill.HouseID.String()})
	require.NoError(t, err)
	assert.Len(t, list.Payments, 2)

	got, err := f.svc.GetByID(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, "CHQ-7", got.Reference)

	_, err = f.svc.GetByID(ctx, f.node.Generate().String())
	assert.ErrorIs(t, err, paymentdomain.ErrNotFound)

	receipt, err := f.svc.Receipt(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, "receipt-"+paid.ReceiptNumber+".pdf", receipt.Filename)
	assert.True(t, bytes.HasPrefix(receipt.Body, []byte("%PDF")))
}
