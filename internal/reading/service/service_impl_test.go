package service_test

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	billdomain "github.com/smallbiznis/utilitybill/internal/bill/domain"
	"github.com/smallbiznis/utilitybill/internal/billingrules"
	"github.com/smallbiznis/utilitybill/internal/clock"
	"github.com/smallbiznis/utilitybill/internal/config"
	"github.com/smallbiznis/utilitybill/internal/events"
	housedomain "github.com/smallbiznis/utilitybill/internal/house/domain"
	mohalladomain "github.com/smallbiznis/utilitybill/internal/mohalla/domain"
	readingdomain "github.com/smallbiznis/utilitybill/internal/reading/domain"
	readingrepo "github.com/smallbiznis/utilitybill/internal/reading/repository"
	readingservice "github.com/smallbiznis/utilitybill/internal/reading/service"
	"github.com/smallbiznis/utilitybill/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	node  *snowflake.Node
	svc   readingdomain.Service
	house *housedomain.House
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testutil.NewDB(t)
	node := testutil.NewNode(t)
	clk := clock.NewFakeClock(time.Date(2024, time.June, 3, 9, 0, 0, 0, time.UTC))
	svc := readingservice.New(readingservice.Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		AuditSvc: testutil.NewAuditService(db, node, clk),
		Repo:     readingrepo.Provide(),
		Outbox:   events.NewOutbox(node, clk),
		Billing:  config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
	})
	return fixture{db: db, node: node, svc: svc, house: testutil.SeedHouse(t, db, node, "100", "50")}
}

func dec(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func (f fixture) upsert(t *testing.T, period, imp, exp, water string) *readingdomain.Response {
	t.Helper()
	resp, err := f.svc.Upsert(context.Background(), readingdomain.UpsertRequest{
		HouseID:       f.house.ID.String(),
		Period:        period,
		ImportReading: dec(imp),
		ExportReading: dec(exp),
		WaterReading:  dec(water),
	})
	require.NoError(t, err)
	return resp
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, got.Equal(decimal.RequireFromString(want)), "%s: want %s, got %s", field, want, got)
}

func TestUpsertDerivesConsumptionAcrossFiscalReset(t *testing.T) {
	f := newFixture(t)

	march := f.upsert(t, "2024-03", "1000", "0", "50")
	assertDecimal(t, "0", march.BilledEnergy, "march billed")
	assert.Nil(t, march.PreviousReadingID)

	april := f.upsert(t, "2024-04-01", "1100", "400", "60")
	assertDecimal(t, "-300", april.Consumption, "april consumption")
	assertDecimal(t, "0", april.BilledEnergy, "april billed")
	assertDecimal(t, "300", april.CarryForward, "april carry")
	assertDecimal(t, "10", april.WaterConsumption, "april water")
	require.NotNil(t, april.PreviousReadingID)
	assert.Equal(t, march.ID, *april.PreviousReadingID)

	may := f.upsert(t, "2024-05", "1300", "450", "55")
	assertDecimal(t, "150", may.Consumption, "may consumption")
	assertDecimal(t, "0", may.BilledEnergy, "may billed")
	assertDecimal(t, "150", may.CarryForward, "may carry")
	assertDecimal(t, "0", may.WaterConsumption, "may water clamps")

	var pending int64
	require.NoError(t, f.db.Model(&billdomain.Bill{}).
		Where("house_id = ? AND status = ?", f.house.ID, billingrules.StatusPending).
		Count(&pending).Error)
	assert.Equal(t, int64(3), pending)

	var recorded int64
	require.NoError(t, f.db.Model(&events.BillingEvent{}).
		Where("event_type = ?", events.EventReadingRecorded).
		Count(&recorded).Error)
	assert.Equal(t, int64(3), recorded)
}

func TestUpsertPropagatesToFollowingMonths(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.upsert(t, "2024-03", "1000", "0", "50")
	april := f.upsert(t, "2024-04", "1100", "400", "60")
	may := f.upsert(t, "2024-05", "1300", "450", "70")

	again := f.upsert(t, "2024-04", "1100", "0", "60")
	assert.Equal(t, april.ID, again.ID)
	assertDecimal(t, "100", again.BilledEnergy, "april billed")
	assertDecimal(t, "0", again.CarryForward, "april carry")

	got, err := f.svc.GetByID(ctx, may.ID)
	require.NoError(t, err)
	assertDecimal(t, "-250", got.Consumption, "may consumption")
	assertDecimal(t, "0", got.BilledEnergy, "may billed")
	assertDecimal(t, "250", got.CarryForward, "may carry")
}

func TestUpsertRejectedOnceBillGenerated(t *testing.T) {
	f := newFixture(t)

	f.upsert(t, "2024-04", "1000", "0", "50")
	f.upsert(t, "2024-05", "1100", "0", "60")
	require.NoError(t, f.db.Model(&billdomain.Bill{}).
		Where("house_id = ? AND period_start = ?", f.house.ID, time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)).
		Update("status", billingrules.StatusGenerated).Error)

	for _, period := range []string{"2024-05", "2024-04"} {
		_, err := f.svc.Upsert(context.Background(), readingdomain.UpsertRequest{
			HouseID:       f.house.ID.String(),
			Period:        period,
			ImportReading: dec("2000"),
			WaterReading:  dec("90"),
		})
		assert.ErrorIs(t, err, readingdomain.ErrBillGenerated, period)
	}
}

func TestUpsertRejectsRippleIntoGeneratedMonth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.upsert(t, "2024-07", "1000", "0", "50")
	f.upsert(t, "2024-08", "1100", "400", "60")
	sep := f.upsert(t, "2024-09", "1300", "450", "70")
	oct := f.upsert(t, "2024-10", "1400", "450", "80")
	assertDecimal(t, "150", sep.CarryForward, "september carry")
	assertDecimal(t, "50", oct.CarryForward, "october carry")
	require.NoError(t, f.db.Model(&billdomain.Bill{}).
		Where("house_id = ? AND period_start = ?", f.house.ID, time.Date(2024, time.October, 1, 0, 0, 0, 0, time.UTC)).
		Update("status", billingrules.StatusGenerated).Error)

	// Dropping August's export moves September's carry forward, which October was billed on.
	_, err := f.svc.Upsert(ctx, readingdomain.UpsertRequest{
		HouseID:       f.house.ID.String(),
		Period:        "2024-08",
		ImportReading: dec("1100"),
		ExportReading: dec("0"),
		WaterReading:  dec("60"),
	})
	assert.ErrorIs(t, err, readingdomain.ErrBillGenerated)

	got, err := f.svc.GetByID(ctx, sep.ID)
	require.NoError(t, err)
	assertDecimal(t, "150", got.CarryForward, "september carry untouched")

	// A water correction stops at September.
	f.upsert(t, "2024-08", "1100", "400", "65")
	got, err = f.svc.GetByID(ctx, sep.ID)
	require.NoError(t, err)
	assertDecimal(t, "5", got.WaterConsumption, "september water")
	got, err = f.svc.GetByID(ctx, oct.ID)
	require.NoError(t, err)
	assertDecimal(t, "50", got.CarryForward, "october carry untouched")
}

func TestUpsertValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  readingdomain.UpsertRequest
		want error
	}{
		{"house", readingdomain.UpsertRequest{HouseID: "nope", Period: "2024-05", ImportReading: dec("1"), WaterReading: dec("1")}, readingdomain.ErrInvalidHouse},
		{"unknown house", readingdomain.UpsertRequest{HouseID: f.node.Generate().String(), Period: "2024-05", ImportReading: dec("1"), WaterReading: dec("1")}, readingdomain.ErrHouseNotFound},
		{"period", readingdomain.UpsertRequest{HouseID: f.house.ID.String(), Period: "05/2024", ImportReading: dec("1"), WaterReading: dec("1")}, readingdomain.ErrInvalidPeriod},
		{"missing import", readingdomain.UpsertRequest{HouseID: f.house.ID.String(), Period: "2024-05", WaterReading: dec("1")}, readingdomain.ErrInvalidReading},
		{"negative", readingdomain.UpsertRequest{HouseID: f.house.ID.String(), Period: "2024-05", ImportReading: dec("1"), ExportReading: dec("-2"), WaterReading: dec("1")}, readingdomain.ErrInvalidReading},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Upsert(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestDeleteOnlyLatestReading(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	april := f.upsert(t, "2024-04", "1000", "0", "50")
	may := f.upsert(t, "2024-05", "1100", "0", "60")

	assert.ErrorIs(t, f.svc.Delete(ctx, april.ID), readingdomain.ErrHasSuccessor)
	require.NoError(t, f.svc.Delete(ctx, may.ID))

	_, err := f.svc.GetByID(ctx, may.ID)
	assert.ErrorIs(t, err, readingdomain.ErrNotFound)

	var bills int64
	require.NoError(t, f.db.Model(&billdomain.Bill{}).Where("house_id = ?", f.house.ID).Count(&bills).Error)
	assert.Equal(t, int64(1), bills)
}

func TestRecalculateAfterPredecessorAdded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	may := f.upsert(t, "2024-05", "1100", "0", "60")
	assertDecimal(t, "0", may.BilledEnergy, "bootstrap")

	// Inserting April directly bypasses propagation.
	require.NoError(t, f.db.Create(&readingdomain.MeterReading{
		ID:            f.node.Generate(),
		HouseID:       f.house.ID,
		PeriodStart:   time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
		ImportReading: decimal.NewFromInt(1000),
		ExportReading: decimal.Zero,
		WaterReading:  decimal.NewFromInt(50),
	}).Error)

	got, err := f.svc.Recalculate(ctx, may.ID)
	require.NoError(t, err)
	assertDecimal(t, "100", got.BilledEnergy, "may billed")
	assertDecimal(t, "10", got.WaterConsumption, "may water")
}

func TestListFiltersByHouseAndPeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.upsert(t, "2024-04", "1000", "0", "50")
	f.upsert(t, "2024-05", "1100", "0", "60")

	resp, err := f.svc.List(ctx, readingdomain.ListRequest{HouseID: f.house.ID.String()})
	require.NoError(t, err)
	assert.Len(t, resp.Readings, 2)

	resp, err = f.svc.List(ctx, readingdomain.ListRequest{Period: "2024-05"})
	require.NoError(t, err)
	require.Len(t, resp.Readings, 1)
	assert.Equal(t, "2024-05", resp.Readings[0].Period)
}

func mohallaCode(t *testing.T, f fixture) string {
	t.Helper()
	var m mohalladomain.Mohalla
	require.NoError(t, f.db.Where("id = ?", f.house.MohallaID).Take(&m).Error)
	return m.Code
}

func TestImportCSV(t *testing.T) {
	f := newFixture(t)
	code := mohallaCode(t, f)

	body := strings.Join([]string{
		"mohalla_code,house_number,period,import_reading,export_reading,water_reading",
		fmt.Sprintf("%s,%s,2024-05,1100,0,60", code, f.house.HouseNumber),
		fmt.Sprintf("%s,%s,2024-04,1000,0,50", code, f.house.HouseNumber),
		fmt.Sprintf("%s,unknown,2024-05,1,0,1", code),
		fmt.Sprintf("%s,%s,2024-06,abc,0,1", code, f.house.HouseNumber),
		",,,,,",
	}, "\n")

	resp, err := f.svc.Import(context.Background(), readingdomain.ImportRequest{
		Format: readingdomain.FormatCSV,
		Body:   strings.NewReader(body),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Imported)
	assert.Equal(t, 2, resp.Failed)

	list, err := f.svc.List(context.Background(), readingdomain.ListRequest{Period: "2024-05"})
	require.NoError(t, err)
	require.Len(t, list.Readings, 1)
	assertDecimal(t, "100", list.Readings[0].BilledEnergy, "may billed")
}

func TestImportXLSXUsesDefaultPeriod(t *testing.T) {
	f := newFixture(t)

	book := excelize.NewFile()
	sheet := book.GetSheetName(0)
	_ = book.SetSheetRow(sheet, "A1", &[]any{"house_id", "import_reading", "water_reading"})
	_ = book.SetSheetRow(sheet, "A2", &[]any{f.house.ID.String(), 1200, 75})
	var buf bytes.Buffer
	require.NoError(t, book.Write(&buf))

	resp, err := f.svc.Import(context.Background(), readingdomain.ImportRequest{
		Format: readingdomain.FormatXLSX,
		Period: "2024-05",
		Body:   &buf,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Imported)
	assert.Empty(t, resp.Errors)
}

func TestImportRejectsUnknownFormat(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Import(context.Background(), readingdomain.ImportRequest{Format: "json", Body: strings.NewReader("{}")})
	assert.ErrorIs(t, err, readingdomain.ErrInvalidFormat)

	_, err = f.svc.Import(context.Background(), readingdomain.ImportRequest{Format: "csv", Body: strings.NewReader("house_id\n")})
	assert.ErrorIs(t, err, readingdomain.ErrEmptyImport)
}
