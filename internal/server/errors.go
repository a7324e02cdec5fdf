package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	allocationdomain "github.com/smallbiznis/landedcost/internal/allocation/domain"
	landedcostdomain "github.com/smallbiznis/landedcost/internal/landedcost/domain"
	"github.com/smallbiznis/landedcost/internal/lock"
	shipmentdomain "github.com/smallbiznis/landedcost/internal/shipment/domain"
	tariffdomain "github.com/smallbiznis/landedcost/internal/tariff/domain"
	"github.com/smallbiznis/landedcost/pkg/db"
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
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
	ErrRateLimited        = errors.New("rate_limited")
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
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, lock.ErrLockTimeout):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the error type and code recorded in request logs.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	if vErr := asValidationErrors(err); vErr != nil {
		if len(vErr.Errors) > 0 {
			return "validation_error", vErr.Errors[0].Code
		}
		return "validation_error", "invalid_request"
	}
	if isValidationError(err) {
		return "validation_error", validationErrorCode(err)
	}
	_, payload := mapError(err)
	if payload.Type == "internal_error" {
		return payload.Type, "internal_error"
	}
	return payload.Type, err.Error()
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isShipmentValidationError(err),
		isTariffValidationError(err),
		isAllocationValidationError(err),
		isLandedCostValidationError(err):
		return true
	default:
		return false
	}
}

func isShipmentValidationError(err error) bool {
	switch {
	case errors.Is(err, shipmentdomain.ErrInvalidID),
		errors.Is(err, shipmentdomain.ErrInvalidContainerNumber),
		errors.Is(err, shipmentdomain.ErrInvalidInvoiceNumber),
		errors.Is(err, shipmentdomain.ErrInvalidInvoiceDate),
		errors.Is(err, shipmentdomain.ErrInvalidCurrency),
		errors.Is(err, shipmentdomain.ErrInvalidManualRate),
		errors.Is(err, shipmentdomain.ErrInvalidLines),
		errors.Is(err, shipmentdomain.ErrInvalidQuantity),
		errors.Is(err, shipmentdomain.ErrInvalidUnitPrice),
		errors.Is(err, shipmentdomain.ErrInvalidVolume),
		errors.Is(err, shipmentdomain.ErrInvalidSKUCode),
		errors.Is(err, shipmentdomain.ErrInvalidRateOverride):
		return true
	default:
		return false
	}
}

func isTariffValidationError(err error) bool {
	switch {
	case errors.Is(err, tariffdomain.ErrInvalidID),
		errors.Is(err, tariffdomain.ErrInvalidCode),
		errors.Is(err, tariffdomain.ErrInvalidRate),
		errors.Is(err, tariffdomain.ErrInvalidCountry),
		errors.Is(err, tariffdomain.ErrInvalidEffectiveDate),
		errors.Is(err, tariffdomain.ErrInvalidEffectiveRange):
		return true
	default:
		return false
	}
}

func isAllocationValidationError(err error) bool {
	switch {
	case errors.Is(err, allocationdomain.ErrInvalidID),
		errors.Is(err, allocationdomain.ErrInvalidName),
		errors.Is(err, allocationdomain.ErrInvalidKind),
		errors.Is(err, allocationdomain.ErrInvalidMethod),
		errors.Is(err, allocationdomain.ErrInvalidScope),
		errors.Is(err, allocationdomain.ErrInvalidAmount),
		errors.Is(err, allocationdomain.ErrScopeReferenceRequired):
		return true
	default:
		return false
	}
}

func isLandedCostValidationError(err error) bool {
	switch {
	case errors.Is(err, landedcostdomain.ErrInvalidID),
		errors.Is(err, landedcostdomain.ErrInvalidDate):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, shipmentdomain.ErrDuplicateContainer),
		errors.Is(err, allocationdomain.ErrSystemPoolReadOnly),
		db.IsDuplicateKeyErr(err):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, shipmentdomain.ErrDuplicateContainer):
		return "container number already exists"
	case errors.Is(err, allocationdomain.ErrSystemPoolReadOnly):
		return "automatic pools cannot be edited"
	default:
		return "conflict"
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, shipmentdomain.ErrNotFound),
		errors.Is(err, shipmentdomain.ErrSKUNotFound),
		errors.Is(err, shipmentdomain.ErrContainerNotFound),
		errors.Is(err, tariffdomain.ErrCodeNotFound),
		errors.Is(err, tariffdomain.ErrInvoiceNotFound),
		errors.Is(err, tariffdomain.ErrLineNotFound),
		errors.Is(err, allocationdomain.ErrNotFound),
		errors.Is(err, allocationdomain.ErrInvoiceNotFound),
		errors.Is(err, allocationdomain.ErrContainerNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "scope_reference_required":
		return "scope"
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
	case "scope_reference_required":
		return "scope requires an invoice or container"
	default:
		return "invalid value"
	}
}
