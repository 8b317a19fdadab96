package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lumenis/lumenis/internal/authorization"
	filedomain "github.com/lumenis/lumenis/internal/file/domain"
	financedomain "github.com/lumenis/lumenis/internal/finance/domain"
	identitydomain "github.com/lumenis/lumenis/internal/identity/domain"
	gatewaydomain "github.com/lumenis/lumenis/internal/providers/payment/domain"
	plandomain "github.com/lumenis/lumenis/internal/storageplan/domain"
	quotadomain "github.com/lumenis/lumenis/internal/storagequota/domain"
	treasurydomain "github.com/lumenis/lumenis/internal/treasury/domain"
	walletdomain "github.com/lumenis/lumenis/internal/wallet/domain"
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
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
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
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, identitydomain.ErrInvalidCredentials),
		errors.Is(err, identitydomain.ErrInvalidToken):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, filedomain.ErrNotOwner):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, walletdomain.ErrInsufficientFunds):
		return http.StatusPaymentRequired, errorPayload{
			Type:    "insufficient_funds",
			Message: "wallet balance is insufficient",
		}
	case errors.Is(err, treasurydomain.ErrInsufficientNetBalance):
		return http.StatusPaymentRequired, errorPayload{
			Type:    "insufficient_net_balance",
			Message: "institutional balance is insufficient",
		}
	case errors.Is(err, quotadomain.ErrNoActivePlan):
		return http.StatusConflict, errorPayload{
			Type:    "no_active_storage_plan",
			Message: "no storage has been purchased",
		}
	case errors.Is(err, quotadomain.ErrQuotaExhausted):
		return http.StatusConflict, errorPayload{
			Type:    "storage_quota_exhausted",
			Message: "storage quota is exhausted",
		}
	case errors.Is(err, quotadomain.ErrInsufficientQuota):
		return http.StatusConflict, errorPayload{
			Type:    "insufficient_storage_quota",
			Message: "not enough storage remaining for this file",
		}
	case errors.Is(err, filedomain.ErrExtensionNotAllowed):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "file_extension_not_allowed",
			Message: "file type is not allowed",
		}
	case errors.Is(err, treasurydomain.ErrVerificationPending):
		return http.StatusConflict, errorPayload{
			Type:    "payment_pending",
			Message: "payment has not settled yet",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, gatewaydomain.ErrGatewayDeclined),
		errors.Is(err, gatewaydomain.ErrGateway):
		return http.StatusBadGateway, errorPayload{
			Type:    "gateway_error",
			Message: "payment gateway error",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
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
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, walletdomain.ErrInvalidAmount),
		errors.Is(err, walletdomain.ErrInvalidStatus),
		errors.Is(err, quotadomain.ErrInvalidBytes),
		errors.Is(err, plandomain.ErrInvalidPlan),
		errors.Is(err, treasurydomain.ErrInvalidAmount),
		errors.Is(err, financedomain.ErrInvalidAmount),
		errors.Is(err, filedomain.ErrInvalidFile),
		errors.Is(err, filedomain.ErrInvalidPageToken),
		errors.Is(err, identitydomain.ErrInvalidRole):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, identitydomain.ErrEmailTaken),
		errors.Is(err, identitydomain.ErrSchoolExists),
		errors.Is(err, walletdomain.ErrWalletExists),
		errors.Is(err, walletdomain.ErrAlreadyResolved),
		errors.Is(err, plandomain.ErrPlanExists),
		errors.Is(err, plandomain.ErrPlanArchived),
		errors.Is(err, financedomain.ErrDuplicateOutflow),
		errors.Is(err, financedomain.ErrAlreadyProcessed),
		errors.Is(err, treasurydomain.ErrDuplicateReference),
		errors.Is(err, treasurydomain.ErrAlreadyProcessed):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, identitydomain.ErrSchoolNotFound),
		errors.Is(err, identitydomain.ErrAccountNotFound),
		errors.Is(err, walletdomain.ErrWalletNotFound),
		errors.Is(err, walletdomain.ErrTransactionNotFound),
		errors.Is(err, plandomain.ErrPlanNotFound),
		errors.Is(err, quotadomain.ErrPurchaseNotFound),
		errors.Is(err, financedomain.ErrOutflowNotFound),
		errors.Is(err, treasurydomain.ErrTransactionNotFound),
		errors.Is(err, filedomain.ErrFileNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
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

func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	status, payload := mapError(err)
	if status >= 500 {
		return "internal", payload.Type
	}
	return "client", payload.Type
}
