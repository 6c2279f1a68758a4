package domain

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/utilitybill/pkg/db/pagination"
)

type Service interface {
	// Upsert stores the reading of a house for a month, derives consumption
	// from the previous month and makes sure a PENDING bill exists.
	Upsert(ctx context.Context, req UpsertRequest) (*Response, error)
	Import(ctx context.Context, req ImportRequest) (*ImportResponse, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	GetByID(ctx context.Context, id string) (*Response, error)
	Delete(ctx context.Context, id string) error
	Recalculate(ctx context.Context, id string) (*Response, error)
}

type UpsertRequest struct {
	HouseID       string           `json:"house_id"`
	Period        string           `json:"period"`
	ImportReading *decimal.Decimal `json:"import_reading"`
	ExportReading *decimal.Decimal `json:"export_reading"`
	WaterReading  *decimal.Decimal `json:"water_reading"`
}

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

type ImportRequest struct {
	Format string
	// Period is used for rows without a period column.
	Period string
	Body   io.Reader
}

type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportResponse struct {
	Imported int              `json:"imported"`
	Failed   int              `json:"failed"`
	Errors   []ImportRowError `json:"errors"`
}

type ListRequest struct {
	pagination.Pagination
	HouseID string
	Period  string
}

type ListResponse struct {
	pagination.PageInfo
	Readings []Response `json:"readings"`
}

type Response struct {
	ID                string          `json:"id"`
	HouseID           string          `json:"house_id"`
	Period            string          `json:"period"`
	ImportReading     decimal.Decimal `json:"import_reading"`
	ExportReading     decimal.Decimal `json:"export_reading"`
	WaterReading      decimal.Decimal `json:"water_reading"`
	Consumption       decimal.Decimal `json:"consumption"`
	BilledEnergy      decimal.Decimal `json:"billed_energy"`
	CarryForward      decimal.Decimal `json:"carry_forward"`
	WaterConsumption  decimal.Decimal `json:"water_consumption"`
	PreviousReadingID *string         `json:"previous_reading_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

var (
	ErrInvalidID      = errors.New("invalid_id")
	ErrInvalidHouse   = errors.New("invalid_house_id")
	ErrHouseNotFound  = errors.New("house_not_found")
	ErrInvalidPeriod  = errors.New("invalid_period")
	ErrInvalidReading = errors.New("invalid_reading")
	ErrInvalidFormat  = errors.New("invalid_import_format")
	ErrEmptyImport    = errors.New("empty_import")
	ErrNotFound       = errors.New("not_found")
	ErrBillGenerated  = errors.New("bill_already_generated")
	ErrHasSuccessor   = errors.New("reading_has_successor")
)

func ParseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(value)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}
