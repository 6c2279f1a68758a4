package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/utilitybill/internal/billingrules"
	"github.com/smallbiznis/utilitybill/internal/clock"
	"github.com/smallbiznis/utilitybill/internal/config"
	"github.com/smallbiznis/utilitybill/internal/migration"
	"github.com/smallbiznis/utilitybill/internal/observability"
	"github.com/smallbiznis/utilitybill/internal/scheduler"
	"github.com/smallbiznis/utilitybill/internal/server"
	"github.com/smallbiznis/utilitybill/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type testEnv struct {
	app       *fx.App
	db        *gorm.DB
	baseURL   string
	scheduler *scheduler.Scheduler
	httpSrv   *httptest.Server
}

var env *testEnv

// TestMain boots the full application against postgres. The suite only runs
// when UTILITYBILL_E2E is set, since it needs a live database.
func TestMain(m *testing.M) {
	if strings.TrimSpace(os.Getenv("UTILITYBILL_E2E")) == "" {
		fmt.Fprintln(os.Stderr, "skipping e2e suite: UTILITYBILL_E2E not set")
		os.Exit(0)
	}

	gin.SetMode(gin.TestMode)
	setDefaultEnv()

	var err error
	env, err = startEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to start test environment:", err)
		os.Exit(1)
	}

	code := m.Run()
	env.shutdown()
	os.Exit(code)
}

func TestE2E_HealthCheck(t *testing.T) {
	resp, err := http.Get(env.baseURL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
}

func TestE2E_BillingLifecycle(t *testing.T) {
	resetDatabase(t, env.db)

	houseID := createHouseFixture(t)
	setTariffs(t)
	for _, r := range []struct{ period, imp, water string }{
		{"2024-01", "1000", "100"},
		{"2024-02", "1100", "110"},
	} {
		resp, body := doJSON(t, http.MethodPost, "/api/readings", map[string]any{
			"house_id":       houseID,
			"period":         r.period,
			"import_reading": r.imp,
			"export_reading": "0",
			"water_reading":  r.water,
		}, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("upsert reading %s failed: %d: %s", r.period, resp.StatusCode, string(body))
		}
	}

	resp, body := doJSON(t, http.MethodPost, "/api/bills/generate", map[string]any{
		"house_id": houseID,
		"period":   "2024-02",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generate bill failed: %d: %s", resp.StatusCode, string(body))
	}
	bill := decodeBill(t, body)
	if bill.Status != string(billingrules.StatusGenerated) {
		t.Fatalf("expected GENERATED, got %s", bill.Status)
	}
	if !bill.TotalStandard.Equal(decimal.RequireFromString("870")) {
		t.Fatalf("expected total standard 870, got %s", bill.TotalStandard)
	}

	resp, body = doJSON(t, http.MethodPost, "/api/bills/generate", map[string]any{
		"house_id": houseID,
		"period":   "2024-02",
	}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on second generate, got %d: %s", resp.StatusCode, string(body))
	}

	// the due date is in the past, so one scheduler pass marks it overdue
	if err := env.scheduler.RunOnce(context.Background()); err != nil {
		t.Fatalf("scheduler run: %v", err)
	}
	resp, body = doJSON(t, http.MethodGet, "/api/bills/"+bill.ID, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get bill failed: %d: %s", resp.StatusCode, string(body))
	}
	if got := decodeBill(t, body).Status; got != string(billingrules.StatusOverdue) {
		t.Fatalf("expected OVERDUE after scheduler run, got %s", got)
	}

	payment := map[string]any{
		"bill_id": bill.ID,
		"amount":  bill.TotalPenalty.String(),
		"method":  "cash",
	}
	headers := map[string]string{server.HeaderIdempotencyKey: fmt.Sprintf("e2e-%d", time.Now().UnixNano())}
	resp, body = doJSON(t, http.MethodPost, "/api/payments", payment, headers)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("record payment failed: %d: %s", resp.StatusCode, string(body))
	}
	resp, body = doJSON(t, http.MethodPost, "/api/payments", payment, headers)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("replayed payment failed: %d: %s", resp.StatusCode, string(body))
	}
	if n := countRows(t, env.db, "payments", "bill_id = ?", mustParseID(t, bill.ID)); n != 1 {
		t.Fatalf("expected one payment after replay, got %d", n)
	}

	resp, body = doJSON(t, http.MethodGet, "/api/bills/"+bill.ID, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get bill failed: %d: %s", resp.StatusCode, string(body))
	}
	if got := decodeBill(t, body).Status; got != string(billingrules.StatusPaid) {
		t.Fatalf("expected PAID, got %s", got)
	}

	resp, body = doJSON(t, http.MethodDelete, "/api/bills/"+bill.ID, nil, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 deleting a paid bill, got %d: %s", resp.StatusCode, string(body))
	}

	resp, err := http.Get(env.baseURL + "/api/bills/" + bill.ID + "/pdf")
	if err != nil {
		t.Fatalf("pdf request failed: %v", err)
	}
	pdf, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("expected pdf document, got %d", resp.StatusCode)
	}
}

func TestE2E_GenerateWithoutPreviousReading(t *testing.T) {
	resetDatabase(t, env.db)

	houseID := createHouseFixture(t)
	setTariffs(t)
	resp, body := doJSON(t, http.MethodPost, "/api/readings", map[string]any{
		"house_id":       houseID,
		"period":         "2024-02",
		"import_reading": "100",
		"export_reading": "0",
		"water_reading":  "10",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upsert reading failed: %d: %s", resp.StatusCode, string(body))
	}

	resp, body = doJSON(t, http.MethodPost, "/api/bills/generate", map[string]any{
		"house_id": houseID,
		"period":   "2024-02",
	}, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", resp.StatusCode, string(body))
	}
	if countRows(t, env.db, "bills", "status = ?", string(billingrules.StatusGenerated)) != 0 {
		t.Fatalf("expected no generated bills")
	}
}

func TestE2E_AuditLog(t *testing.T) {
	resetDatabase(t, env.db)

	createHouseFixture(t)

	entry := struct {
		ID         snowflake.ID `gorm:"column:id"`
		Action     string       `gorm:"column:action"`
		TargetType string       `gorm:"column:target_type"`
	}{}
	if err := env.db.Raw(
		`SELECT id, action, target_type FROM audit_logs WHERE action = ? ORDER BY created_at DESC LIMIT 1`,
		"house.create",
	).Scan(&entry).Error; err != nil {
		t.Fatalf("query audit log: %v", err)
	}
	if entry.ID == 0 {
		t.Fatalf("expected audit log entry")
	}
	if entry.TargetType != "house" {
		t.Fatalf("expected target_type house, got %s", entry.TargetType)
	}

	resp, body := doJSON(t, http.MethodGet, "/api/audit-logs?action=house.create", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list audit logs failed: %d: %s", resp.StatusCode, string(body))
	}
}

type billPayload struct {
	ID            string          `json:"id"`
	Status        string          `json:"status"`
	TotalStandard decimal.Decimal `json:"total_standard_amount"`
	TotalPenalty  decimal.Decimal `json:"total_penalty_amount"`
}

func decodeBill(t *testing.T, body []byte) billPayload {
	t.Helper()
	var payload struct {
		Data billPayload `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode bill: %v", err)
	}
	return payload.Data
}

func startEnv() (*testEnv, error) {
	var (
		srv         *server.Server
		dbConn      *gorm.DB
		cfg         config.Config
		schedulerSv *scheduler.Scheduler
	)

	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(func(cfg config.Config) (*snowflake.Node, error) {
			return snowflake.NewNode(cfg.NodeID)
		}),
		db.Module,
		clock.Module,
		server.DomainModule,
		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Provide(scheduler.ProvideConfig),
		fx.Provide(scheduler.New),
		fx.Populate(&srv, &dbConn, &cfg, &schedulerSv),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		return nil, err
	}

	if cfg.DBType != "postgres" {
		app.Stop(context.Background())
		return nil, fmt.Errorf("expected postgres db, got %s", cfg.DBType)
	}

	sqlDB, err := dbConn.DB()
	if err != nil {
		app.Stop(context.Background())
		return nil, err
	}
	if err := migration.RunMigrations(sqlDB); err != nil {
		app.Stop(context.Background())
		return nil, err
	}

	httpSrv := httptest.NewServer(srv.Engine())

	return &testEnv{
		app:       app,
		db:        dbConn,
		baseURL:   httpSrv.URL,
		scheduler: schedulerSv,
		httpSrv:   httpSrv,
	}, nil
}

func (e *testEnv) shutdown() {
	if e == nil {
		return
	}
	if e.httpSrv != nil {
		e.httpSrv.Close()
	}
	if e.app != nil {
		_ = e.app.Stop(context.Background())
	}
}

func setDefaultEnv() {
	setEnvIfEmpty("ENVIRONMENT", "test")
	setEnvIfEmpty("DATABASE_TYPE", "postgres")
	setEnvIfEmpty("DATABASE_NAME", "utilitybill_test")
	setEnvIfEmpty("LOG_LEVEL", "error")
	setEnvIfEmpty("KAFKA_BROKERS", "")
}

func setEnvIfEmpty(key, value string) {
	if strings.TrimSpace(os.Getenv(key)) != "" {
		return
	}
	_ = os.Setenv(key, value)
}

func resetDatabase(t *testing.T, dbConn *gorm.DB) {
	t.Helper()
	if err := truncateAllTables(dbConn); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func truncateAllTables(dbConn *gorm.DB) error {
	type tableRow struct {
		Name string `gorm:"column:tablename"`
	}
	var rows []tableRow
	if err := dbConn.Raw(
		`SELECT tablename FROM pg_tables WHERE schemaname = 'public' AND tablename <> 'schema_migrations'`,
	).Scan(&rows).Error; err != nil {
		return err
	}

	tables := make([]string, 0, len(rows))
	for _, row := range rows {
		if strings.TrimSpace(row.Name) == "" {
			continue
		}
		tables = append(tables, `"`+row.Name+`"`)
	}
	if len(tables) == 0 {
		return nil
	}

	stmt := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(tables, ", "))
	return dbConn.Exec(stmt).Error
}

// createHouseFixture creates a mohalla and one house with a license fee of
// 100 and a residence fee of 50, returning the house id.
func createHouseFixture(t *testing.T) string {
	t.Helper()

	var mohalla struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	resp, body := doJSON(t, http.MethodPost, "/api/mohallas", map[string]any{
		"code": "block-a",
		"name": "Block A",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create mohalla failed: %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, &mohalla); err != nil {
		t.Fatalf("decode mohalla: %v", err)
	}

	var house struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	resp, body = doJSON(t, http.MethodPost, "/api/houses", map[string]any{
		"mohalla_id":    mohalla.Data.ID,
		"house_number":  "H-1",
		"owner_name":    "E2E Owner",
		"license_fee":   "100",
		"residence_fee": "50",
		"other_charges": "0",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create house failed: %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, &house); err != nil {
		t.Fatalf("decode house: %v", err)
	}
	return house.Data.ID
}

func setTariffs(t *testing.T) {
	t.Helper()
	rates := map[string]string{
		billingrules.RateFixedCharge:       "1",
		billingrules.RateElectricityCharge: "5",
		billingrules.RateElectricityDuty:   "0.5",
		billingrules.RateMaintenanceCharge: "0.5",
		billingrules.RateWaterCharge:       "2",
	}
	for code, rate := range rates {
		resp, body := doJSON(t, http.MethodPut, "/api/tariffs/"+code, map[string]any{
			"rate":           rate,
			"effective_from": "2024-01",
		}, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("set tariff %s failed: %d: %s", code, resp.StatusCode, string(body))
		}
	}
}

func doJSON(t *testing.T, method, path string, payload any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, env.baseURL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, respBody
}

func countRows(t *testing.T, dbConn *gorm.DB, table, where string, args ...any) int64 {
	t.Helper()
	var count int64
	if err := dbConn.Table(table).Where(where, args...).Count(&count).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return count
}

func mustParseID(t *testing.T, value string) snowflake.ID {
	t.Helper()
	id, err := snowflake.ParseString(value)
	if err != nil {
		t.Fatalf("parse id %q: %v", value, err)
	}
	return id
}
