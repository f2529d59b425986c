package server

import (
	"errors"
	"net/http"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	auditdomain "github.com/smallbiznis/gascustody/internal/audit/domain"
	authdomain "github.com/smallbiznis/gascustody/internal/auth/domain"
	"github.com/smallbiznis/gascustody/internal/authorization"
	customerdomain "github.com/smallbiznis/gascustody/internal/customer/domain"
	dailyvolumedomain "github.com/smallbiznis/gascustody/internal/dailyvolume/domain"
	gccdomain "github.com/smallbiznis/gascustody/internal/gcc/domain"
	invoicedomain "github.com/smallbiznis/gascustody/internal/invoice/domain"
	invoiceadvicedomain "github.com/smallbiznis/gascustody/internal/invoiceadvice/domain"
	lettertemplatedomain "github.com/smallbiznis/gascustody/internal/lettertemplate/domain"
	"github.com/smallbiznis/gascustody/internal/lifecycle"
	ngmlaccountdomain "github.com/smallbiznis/gascustody/internal/ngmlaccount/domain"
	"github.com/smallbiznis/gascustody/internal/ratelimit"
	"gorm.io/gorm"
)

// ValidationError is one offending field in a 400 response.
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
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Error   errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// Domain sentinels grouped by the HTTP status they surface as.
var (
	validationErrs = []error{
		lifecycle.ErrInvalidStatus,
		customerdomain.ErrInvalidName,
		customerdomain.ErrInvalidEmail,
		customerdomain.ErrInvalidID,
		customerdomain.ErrInvalidCursor,
		dailyvolumedomain.ErrInvalidID,
		dailyvolumedomain.ErrInvalidCustomer,
		dailyvolumedomain.ErrInvalidSite,
		dailyvolumedomain.ErrInvalidVolume,
		dailyvolumedomain.ErrInvalidFormFieldAnswers,
		dailyvolumedomain.ErrInvalidCursor,
		gccdomain.ErrInvalidID,
		gccdomain.ErrInvalidCustomer,
		gccdomain.ErrInvalidSite,
		gccdomain.ErrInvalidListItem,
		gccdomain.ErrInvalidStatus,
		gccdomain.ErrInvalidCursor,
		invoiceadvicedomain.ErrInvalidID,
		invoiceadvicedomain.ErrInvalidGcc,
		invoiceadvicedomain.ErrInvalidCustomer,
		invoiceadvicedomain.ErrInvalidSite,
		invoiceadvicedomain.ErrInvalidStatus,
		invoiceadvicedomain.ErrInvalidApprovalFor,
		invoiceadvicedomain.ErrInvalidCursor,
		invoicedomain.ErrInvalidID,
		invoicedomain.ErrInvalidInvoiceAdvice,
		invoicedomain.ErrInvalidAmount,
		invoicedomain.ErrInvalidStatus,
		invoicedomain.ErrInvalidCursor,
		ngmlaccountdomain.ErrInvalidID,
		ngmlaccountdomain.ErrInvalidCursor,
		lettertemplatedomain.ErrInvalidID,
		lettertemplatedomain.ErrInvalidLetter,
		lettertemplatedomain.ErrInvalidCursor,
		auditdomain.ErrInvalidPageToken,
		auditdomain.ErrInvalidTimeRange,
		auditdomain.ErrInvalidAction,
	}
	unauthorizedErrs = []error{
		ErrUnauthorized,
		authdomain.ErrMissingToken,
		authdomain.ErrInvalidToken,
		authdomain.ErrTokenExpired,
		authorization.ErrInvalidActor,
	}
	forbiddenErrs = []error{
		ErrForbidden,
		authorization.ErrForbidden,
		gccdomain.ErrApprovalTokenInvalid,
	}
	conflictErrs = []error{
		lifecycle.ErrInvalidTransition,
		ratelimit.ErrTransitionInProgress,
		dailyvolumedomain.ErrVolumeInUse,
		gccdomain.ErrGccAlreadyExists,
		gccdomain.ErrAlreadyApproved,
		gccdomain.ErrNotAwaitingApproval,
		gccdomain.ErrGccNotDeletable,
		gccdomain.ErrDuplicateListItem,
		invoiceadvicedomain.ErrAlreadyExists,
		invoiceadvicedomain.ErrGccNotReady,
		invoiceadvicedomain.ErrAlreadyApproved,
		invoiceadvicedomain.ErrApprovalOutOfOrder,
		invoiceadvicedomain.ErrNotDeletable,
		invoicedomain.ErrAlreadyExists,
		invoicedomain.ErrDuplicateNumber,
		invoicedomain.ErrAdviceNotApproved,
		invoicedomain.ErrNotEditable,
		gorm.ErrDuplicatedKey,
	}
	notFoundErrs = []error{
		customerdomain.ErrNotFound,
		customerdomain.ErrSiteNotFound,
		dailyvolumedomain.ErrNotFound,
		gccdomain.ErrGccNotFound,
		gccdomain.ErrApprovalNotFound,
		invoiceadvicedomain.ErrNotFound,
		invoiceadvicedomain.ErrApprovalNotFound,
		invoicedomain.ErrNotFound,
		ngmlaccountdomain.ErrNotFound,
		lettertemplatedomain.ErrNotFound,
		gorm.ErrRecordNotFound,
	}
	unavailableErrs = []error{
		ErrServiceUnavailable,
		gccdomain.ErrCertificateUnavailable,
		invoicedomain.ErrDocumentUnavailable,
	}
)

// statusRule maps a sentinel group to a status. An empty message means the
// matched sentinel's own text is sent, so clients can tell
// gcc_already_approved from invalid_transition.
type statusRule struct {
	errs    []error
	status  int
	typ     string
	message string
}

var statusRules = []statusRule{
	{unauthorizedErrs, http.StatusUnauthorized, "unauthorized", "unauthorized"},
	{forbiddenErrs, http.StatusForbidden, "forbidden", "forbidden"},
	{[]error{ratelimit.ErrRateLimited}, http.StatusTooManyRequests, "rate_limited", "too many requests"},
	{conflictErrs, http.StatusConflict, "conflict", ""},
	{notFoundErrs, http.StatusNotFound, "not_found", ""},
	{unavailableErrs, http.StatusServiceUnavailable, "service_unavailable", "service unavailable"},
}

var internalError = errorPayload{Type: "internal_error", Message: "internal server error"}

// ErrorHandlingMiddleware renders the last error recorded on the context as
// the standard error envelope unless a handler already wrote a body.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		lastErr := c.Errors.Last()
		if lastErr == nil || c.Writer.Written() {
			return
		}
		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{
			Status:  "error",
			Message: payload.Message,
			Error:   payload,
		})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err)
		c.Abort()
	}
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{Errors: []ValidationError{{Field: field, Code: code, Message: message}}}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, internalError
	}
	if fields := validationFields(err); fields != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  fields,
		}
	}
	for _, rule := range statusRules {
		matched := firstMatch(err, rule.errs)
		if matched == nil {
			continue
		}
		payload := errorPayload{Type: rule.typ, Message: rule.message}
		if payload.Message == "" {
			payload.Message = sentinelMessage(err, matched)
		}
		return rule.status, payload
	}
	return http.StatusInternalServerError, internalError
}

// validationFields returns the offending fields when err is any kind of
// request validation failure, and nil otherwise.
func validationFields(err error) []ValidationError {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr.Errors
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		out := make([]ValidationError, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			field := snakeCase(fe.Field())
			out = append(out, ValidationError{
				Field:   field,
				Code:    fe.Tag(),
				Message: field + " failed " + fe.Tag() + " validation",
			})
		}
		return out
	}

	if firstMatch(err, validationErrs) == nil {
		return nil
	}
	code := rootMessage(err)
	field := strings.TrimPrefix(code, "invalid_")
	message := "invalid value"
	if code == "invalid_page_token" {
		message = "invalid page token"
	}
	if field == code {
		field = ""
	}
	return []ValidationError{{Field: field, Code: code, Message: message}}
}

// classifyErrorForLog returns the error type and code recorded on the request log line.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	_, payload := mapError(err)
	switch {
	case len(payload.Errors) > 0:
		return payload.Type, payload.Errors[0].Code
	case payload.Type == "internal_error":
		return payload.Type, payload.Type
	default:
		return payload.Type, err.Error()
	}
}

func firstMatch(err error, targets []error) error {
	for _, target := range targets {
		if errors.Is(err, target) {
			return target
		}
	}
	return nil
}

// sentinelMessage prefers the innermost error text. Storage level sentinels
// are reported generically.
func sentinelMessage(err, matched error) string {
	switch matched {
	case gorm.ErrRecordNotFound:
		return "not found"
	case gorm.ErrDuplicatedKey, lifecycle.ErrInvalidTransition, ratelimit.ErrTransitionInProgress:
		return matched.Error()
	}
	return rootMessage(err)
}

func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func snakeCase(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if !unicode.IsUpper(r) {
			b.WriteRune(r)
			continue
		}
		prevLower := i > 0 && unicode.IsLower(runes[i-1])
		nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
		if i > 0 && (prevLower || nextLower) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
