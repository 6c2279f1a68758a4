package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/utilitybill/internal/audit/domain"
	billdomain "github.com/smallbiznis/utilitybill/internal/bill/domain"
	"github.com/smallbiznis/utilitybill/internal/billingrules"
	housedomain "github.com/smallbiznis/utilitybill/internal/house/domain"
	mohalladomain "github.com/smallbiznis/utilitybill/internal/mohalla/domain"
	paymentdomain "github.com/smallbiznis/utilitybill/internal/payment/domain"
	readingdomain "github.com/smallbiznis/utilitybill/internal/reading/domain"
	tariffdomain "github.com/smallbiznis/utilitybill/internal/tariff/domain"
	"github.com/smallbiznis/utilitybill/pkg/db/pagination"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Code:    err.Error(),
			Message: "not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Code:    conflictCode(err),
			Message: "conflict",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Code:    ErrRateLimited.Error(),
			Message: "too many requests",
		}
	case isBillingRuleError(err):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "billing_rule_violation",
			Code:    billingRuleCode(err),
			Message: billingRuleMessage(err),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the error type and code written to the
// http_request log line.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	status, payload := mapError(err)
	switch {
	case payload.Type == "validation_error" && len(payload.Errors) > 0:
		return payload.Type, payload.Errors[0].Code
	case status >= http.StatusInternalServerError:
		return payload.Type, "internal_error"
	default:
		return payload.Type, payload.Code
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	return validationSentinel(err) != nil
}

// validationSentinel returns the validation error err wraps, if any.
func validationSentinel(err error) error {
	for _, group := range [][]error{
		{ErrInvalidRequest, pagination.ErrInvalidPageToken},
		auditValidationErrors,
		mohallaValidationErrors,
		houseValidationErrors,
		readingValidationErrors,
		tariffValidationErrors,
		billValidationErrors,
		paymentValidationErrors,
	} {
		for _, target := range group {
			if errors.Is(err, target) {
				return target
			}
		}
	}
	return nil
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, mohalladomain.ErrNotFound),
		errors.Is(err, housedomain.ErrNotFound),
		errors.Is(err, housedomain.ErrMohallaNotFound),
		errors.Is(err, readingdomain.ErrNotFound),
		errors.Is(err, readingdomain.ErrHouseNotFound),
		errors.Is(err, billdomain.ErrNotFound),
		errors.Is(err, billdomain.ErrHouseNotFound),
		errors.Is(err, paymentdomain.ErrNotFound),
		errors.Is(err, paymentdomain.ErrBillNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, mohalladomain.ErrCodeTaken),
		errors.Is(err, mohalladomain.ErrHasHouses),
		errors.Is(err, housedomain.ErrHouseNumberTaken),
		errors.Is(err, housedomain.ErrHasHistory),
		errors.Is(err, readingdomain.ErrBillGenerated),
		errors.Is(err, readingdomain.ErrHasSuccessor),
		errors.Is(err, billdomain.ErrAlreadyGenerated),
		errors.Is(err, billdomain.ErrNotGenerated),
		errors.Is(err, billdomain.ErrHasPayments),
		errors.Is(err, billdomain.ErrSuccessorGenerated),
		errors.Is(err, billdomain.ErrInProgress),
		errors.Is(err, gorm.ErrDuplicatedKey):
		return true
	default:
		return false
	}
}

func conflictCode(err error) string {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return "duplicate"
	}
	return err.Error()
}

func isBillingRuleError(err error) bool {
	return billingRuleCode(err) != ""
}

func billingRuleCode(err error) string {
	for _, target := range []error{
		billingrules.ErrMissingPrerequisite,
		billingrules.ErrReadingNotEntered,
		billingrules.ErrUnconfiguredTariff,
		billingrules.ErrInvalidPaymentState,
		billingrules.ErrInvalidAmount,
	} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return ""
}

func billingRuleMessage(err error) string {
	switch {
	case errors.Is(err, billingrules.ErrMissingPrerequisite):
		return "previous month reading or bill is missing"
	case errors.Is(err, billingrules.ErrReadingNotEntered):
		return "meter reading for the period has not been entered"
	case errors.Is(err, billingrules.ErrUnconfiguredTariff):
		return "tariff rates are not configured for the period"
	case errors.Is(err, billingrules.ErrInvalidPaymentState):
		return "bill cannot accept a payment in its current state"
	default:
		return "amount is not valid for this bill"
	}
}

func validationErrorCode(err error) string {
	if sentinel := validationSentinel(err); sentinel != nil {
		return sentinel.Error()
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_period":
		return "period must be formatted as YYYY-MM"
	default:
		return "invalid value"
	}
}

var (
	auditValidationErrors = []error{
		auditdomain.ErrInvalidPageToken,
		auditdomain.ErrInvalidTimeRange,
	}
	mohallaValidationErrors = []error{
		mohalladomain.ErrInvalidID,
		mohalladomain.ErrInvalidName,
		mohalladomain.ErrInvalidCode,
	}
	houseValidationErrors = []error{
		housedomain.ErrInvalidID,
		housedomain.ErrInvalidMohalla,
		housedomain.ErrInvalidHouseNumber,
		housedomain.ErrInvalidOwnerName,
		housedomain.ErrInvalidFee,
	}
	// import failures wrap ErrInvalidFormat with the parser detail.
	readingValidationErrors = []error{
		readingdomain.ErrInvalidID,
		readingdomain.ErrInvalidHouse,
		readingdomain.ErrInvalidPeriod,
		readingdomain.ErrInvalidReading,
		readingdomain.ErrInvalidFormat,
		readingdomain.ErrEmptyImport,
	}
	tariffValidationErrors = []error{
		tariffdomain.ErrInvalidCode,
		tariffdomain.ErrInvalidRate,
		tariffdomain.ErrInvalidPeriod,
	}
	billValidationErrors = []error{
		billdomain.ErrInvalidID,
		billdomain.ErrInvalidHouse,
		billdomain.ErrInvalidMohalla,
		billdomain.ErrInvalidPeriod,
		billdomain.ErrInvalidStatus,
	}
	paymentValidationErrors = []error{
		paymentdomain.ErrInvalidID,
		paymentdomain.ErrInvalidBill,
		paymentdomain.ErrInvalidHouse,
		paymentdomain.ErrInvalidAmount,
		paymentdomain.ErrInvalidMethod,
	}
)
