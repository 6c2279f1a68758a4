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
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	GetByID(ctx context.Context, id string) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, id string) error
	// ActiveIDs returns the active houses, optionally within one mohalla.
	ActiveIDs(ctx context.Context, mohallaID string) ([]snowflake.ID, error)
}

type CreateRequest struct {
	MohallaID              string           `json:"mohalla_id"`
	HouseNumber            string           `json:"house_number"`
	OwnerName              string           `json:"owner_name"`
	MobileNumber           string           `json:"mobile_number"`
	Email                  string           `json:"email"`
	ElectricityMeterNumber string           `json:"electricity_meter_number"`
	WaterMeterNumber       string           `json:"water_meter_number"`
	LicenseFee             *decimal.Decimal `json:"license_fee"`
	ResidenceFee           *decimal.Decimal `json:"residence_fee"`
	OtherCharges           *decimal.Decimal `json:"other_charges"`
	Active                 *bool            `json:"active"`
}

type UpdateRequest struct {
	ID                     string           `json:"-"`
	HouseNumber            *string          `json:"house_number,omitempty"`
	OwnerName              *string          `json:"owner_name,omitempty"`
	MobileNumber           *string          `json:"mobile_number,omitempty"`
	Email                  *string          `json:"email,omitempty"`
	ElectricityMeterNumber *string          `json:"electricity_meter_number,omitempty"`
	WaterMeterNumber       *string          `json:"water_meter_number,omitempty"`
	LicenseFee             *decimal.Decimal `json:"license_fee,omitempty"`
	ResidenceFee           *decimal.Decimal `json:"residence_fee,omitempty"`
	OtherCharges           *decimal.Decimal `json:"other_charges,omitempty"`
	Active                 *bool            `json:"active,omitempty"`
}

type ListRequest struct {
	pagination.Pagination
	MohallaID string
	Active    *bool
	Query     string
}

type ListResponse struct {
	pagination.PageInfo
	Houses []Response `json:"houses"`
}

type Response struct {
	ID                     string          `json:"id"`
	MohallaID              string          `json:"mohalla_id"`
	HouseNumber            string          `json:"house_number"`
	OwnerName              string          `json:"owner_name"`
	MobileNumber           string          `json:"mobile_number"`
	Email                  string          `json:"email"`
	ElectricityMeterNumber string          `json:"electricity_meter_number"`
	WaterMeterNumber       string          `json:"water_meter_number"`
	LicenseFee             decimal.Decimal `json:"license_fee"`
	ResidenceFee           decimal.Decimal `json:"residence_fee"`
	OtherCharges           decimal.Decimal `json:"other_charges"`
	Active                 bool            `json:"active"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

var (
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidMohalla     = errors.New("invalid_mohalla_id")
	ErrMohallaNotFound    = errors.New("mohalla_not_found")
	ErrInvalidHouseNumber = errors.New("invalid_house_number")
	ErrInvalidOwnerName   = errors.New("invalid_owner_name")
	ErrInvalidFee         = errors.New("invalid_fee")
	ErrNotFound           = errors.New("not_found")
	ErrHouseNumberTaken   = errors.New("house_number_taken")
	ErrHasHistory         = errors.New("house_has_history")
)

func ParseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(value)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}
