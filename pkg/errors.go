package pkg

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

var ExposeErrorDetails = false

func init() {
	if gin.DebugMode == gin.Mode() || gin.TestMode == gin.Mode() {
		ExposeErrorDetails = true
	}
}

// Reusable errors
var (
	SqlErrForeignKeyViolation = errors.New("foreign key violation")
	SqlErrCheckViolation      = errors.New("check violation")
	SqlErrTransient           = errors.New("transient sql error")
	SqlError                  = errors.New("sql error")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrRedemptionConflict     = errors.New("concurrent redemption lost the race")
	ErrOtpSpaceExhausted      = errors.New("no free otp after max attempts")
	ErrRateLimitExceeded      = errors.New("rate limit exceeded")
)

// ErrorCode defines a standardized error code
type ErrorCode struct {
	Code    string
	Status  int
	Message string // default message
}

var (
	// Generic app
	ErrInvalidInputCode   = ErrorCode{Code: "APP_INVALID_INPUT", Status: http.StatusBadRequest, Message: "invalid input"}
	ErrServerCode         = ErrorCode{Code: "APP_INTERNAL", Status: http.StatusInternalServerError, Message: "internal server error"}
	ErrRecordNotFoundCode = ErrorCode{Code: "APP_NOT_FOUND", Status: http.StatusNotFound, Message: "record not found"}
	ErrUnauthorizedCode   = ErrorCode{Code: "APP_UNAUTHORIZED", Status: http.StatusUnauthorized, Message: "unauthorized"}
	ErrForbiddenCode      = ErrorCode{Code: "APP_FORBIDDEN", Status: http.StatusForbidden, Message: "forbidden"}
	ErrRateLimitedCode    = ErrorCode{Code: "APP_RATE_LIMITED", Status: http.StatusTooManyRequests, Message: "too many requests"}

	// Business/domain rules
	ErrInvalidAmountCode     = ErrorCode{Code: "BUSINESS_INVALID_AMOUNT", Status: http.StatusBadRequest, Message: "invalid amount"}
	ErrInvalidFormatCode     = ErrorCode{Code: "BUSINESS_INVALID_FORMAT", Status: http.StatusBadRequest, Message: "invalid otp format"}
	ErrItemNotFoundCode      = ErrorCode{Code: "BUSINESS_ITEM_NOT_FOUND", Status: http.StatusNotFound, Message: "item not found"}
	ErrInsufficientFundsCode = ErrorCode{Code: "BUSINESS_INSUFFICIENT_FUNDS", Status: http.StatusPaymentRequired, Message: "Insufficient balance"}
	ErrAlreadyRedeemedCode   = ErrorCode{Code: "BUSINESS_ALREADY_REDEEMED", Status: http.StatusConflict, Message: "order already redeemed"}
	ErrExpiredCode           = ErrorCode{Code: "BUSINESS_EXPIRED", Status: http.StatusGone, Message: "order expired"}
	ErrOtpUnavailableCode    = ErrorCode{Code: "BUSINESS_OTP_UNAVAILABLE", Status: http.StatusServiceUnavailable, Message: "could not allocate a redemption code"}

	// SQL layer
	ErrSQLUnknownCode   = ErrorCode{Code: "SQL_UNKNOWN", Status: http.StatusInternalServerError, Message: "sql error"}
	ErrSQLConflictCode  = ErrorCode{Code: "SQL_CONFLICT", Status: http.StatusConflict, Message: "sql conflict"}
	ErrSQLDuplicateCode = ErrorCode{Code: "SQL_DUPLICATE", Status: http.StatusConflict, Message: "duplicate record"}
	ErrSQLInvalidInput  = ErrorCode{Code: "SQL_INVALID_INPUT", Status: http.StatusBadRequest, Message: "invalid input"}
	ErrSQLTransientCode = ErrorCode{Code: "SQL_TRANSIENT", Status: http.StatusServiceUnavailable, Message: "storage temporarily unavailable"}
)

type AppError struct {
	Code    ErrorCode
	Message string // public-facing message
	Cause   error  // internal cause (wrapped)
}

func (e AppError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}
func (e AppError) Unwrap() error { return e.Cause }

func NewAppError(code ErrorCode, msg string, cause error) error {
	return AppError{Code: code, Message: msg, Cause: cause}
}

// IsErrorCode reports whether err is an AppError carrying code.
func IsErrorCode(err error, code ErrorCode) bool {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr.Code.Code == code.Code
	}
	return false
}

// ErrorResponse defines the standardized error response format
type ErrorResponse struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ToErrorResponse converts an error into an ErrorResponse, logging details and optionally exposing error messages.
// Client errors are logged at warn level; anything that is not an AppError becomes a generic 500.
func ToErrorResponse(logger *zap.Logger, traceID string, err error) ErrorResponse {
	var appErr AppError
	if errors.As(err, &appErr) {
		resp := ErrorResponse{
			Status:  appErr.Code.Status,
			Code:    appErr.Code.Code,
			Message: appErr.Message,
		}
		if appErr.Code.Status >= http.StatusInternalServerError {
			logger.Error("application error", zap.String(TraceId, traceID), zap.String("code", appErr.Code.Code), zap.Error(err))
		} else {
			logger.Warn("request rejected", zap.String(TraceId, traceID), zap.String("code", appErr.Code.Code), zap.Error(err))
		}
		if ExposeErrorDetails {
			resp.Details = err.Error()
		}
		return resp
	}
	// Unknown error : 500
	resp := ErrorResponse{
		Status:  ErrServerCode.Status,
		Code:    ErrServerCode.Code,
		Message: ErrServerCode.Message,
	}
	logger.Error("application error", zap.String(TraceId, traceID), zap.Error(err))
	if ExposeErrorDetails {
		resp.Details = err.Error()
	}
	return resp
}

// HandleSQLError maps pg errors -> AppError with proper codes/status
func HandleSQLError(traceId string, logger *zap.Logger, err error) error {
	var pgErr *pgconn.PgError
	if errors.Is(err, pgx.ErrNoRows) {
		logger.Warn("sql error : no records found", zap.String(TraceId, traceId))
		return NewAppError(ErrRecordNotFoundCode, "no records found", err)
	}
	if !errors.As(err, &pgErr) {
		if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
			logger.Error("sql error : transient", zap.String(TraceId, traceId), zap.Error(err))
			return NewAppError(ErrSQLTransientCode, "storage temporarily unavailable", SqlErrTransient)
		}
		logger.Error("sql error : unknown", zap.String(TraceId, traceId), zap.Error(err))
		return NewAppError(ErrSQLUnknownCode, "sql error", err)
	}

	// Log rich pg error context
	logger.Error("sql error",
		zap.String(TraceId, traceId),
		zap.String("code", pgErr.Code),
		zap.String("message", pgErr.Message),
		zap.String("detail", pgErr.Detail),
		zap.String("schema", pgErr.SchemaName),
		zap.String("table", pgErr.TableName),
		zap.String("column", pgErr.ColumnName),
		zap.String("constraint", pgErr.ConstraintName),
	)

	switch pgErr.Code {
	case "23505": // unique_violation
		return NewAppError(ErrSQLDuplicateCode, "duplicate value violates unique constraint", SqlError)
	case "23503": // foreign_key_violation
		return NewAppError(ErrSQLConflictCode, "foreign key violation", SqlErrForeignKeyViolation)
	case "23514": // check_violation Ex: negative balance
		return NewAppError(ErrSQLConflictCode, "check constraint violated", SqlErrCheckViolation)
	case "22P02": // invalid_text_representation Ex: bad UUID
		return NewAppError(ErrSQLInvalidInput, "invalid input syntax", SqlError)
	case "22001": // string_data_right_truncation
		return NewAppError(ErrSQLInvalidInput, "value too long for column", SqlError)
	case "22003": // numeric_value_out_of_range
		return NewAppError(ErrSQLInvalidInput, "numeric value out of range", SqlError)
	case "40001", "40P01": // serialization_failure, deadlock_detected
		return NewAppError(ErrSQLTransientCode, "storage temporarily unavailable", SqlErrTransient)
	default:
		return NewAppError(ErrSQLUnknownCode, "sql error", SqlError)
	}
}
