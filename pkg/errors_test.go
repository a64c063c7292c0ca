package pkg

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestHandleSQLError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		code  ErrorCode
		cause error
	}{
		{"no rows", pgx.ErrNoRows, ErrRecordNotFoundCode, pgx.ErrNoRows},
		{"unique", &pgconn.PgError{Code: "23505"}, ErrSQLDuplicateCode, SqlError},
		{"check", &pgconn.PgError{Code: "23514", ConstraintName: "wallets_balance_check"}, ErrSQLConflictCode, SqlErrCheckViolation},
		{"foreign key", &pgconn.PgError{Code: "23503"}, ErrSQLConflictCode, SqlErrForeignKeyViolation},
		{"bad uuid", &pgconn.PgError{Code: "22P02"}, ErrSQLInvalidInput, SqlError},
		{"serialization", &pgconn.PgError{Code: "40001"}, ErrSQLTransientCode, SqlErrTransient},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), ErrSQLTransientCode, SqlErrTransient},
		{"unknown", errors.New("boom"), ErrSQLUnknownCode, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := HandleSQLError("trace", zap.NewNop(), tt.err)

			assert.True(t, IsErrorCode(err, tt.code), "got %v", err)
			if tt.cause != nil {
				assert.ErrorIs(t, err, tt.cause)
			}
		})
	}
}

func TestToErrorResponse(t *testing.T) {
	resp := ToErrorResponse(zap.NewNop(), "trace", NewAppError(ErrExpiredCode, "order expired", nil))
	assert.Equal(t, http.StatusGone, resp.Status)
	assert.Equal(t, ErrExpiredCode.Code, resp.Code)
	assert.Equal(t, "order expired", resp.Message)

	wrapped := fmt.Errorf("redeem: %w", NewAppError(ErrAlreadyRedeemedCode, "order already redeemed", ErrRedemptionConflict))
	resp = ToErrorResponse(zap.NewNop(), "trace", wrapped)
	assert.Equal(t, http.StatusConflict, resp.Status)

	resp = ToErrorResponse(zap.NewNop(), "trace", errors.New("nil pointer somewhere"))
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, ErrServerCode.Message, resp.Message)
}

func TestErrorCodeStatuses(t *testing.T) {
	assert.Equal(t, http.StatusPaymentRequired, ErrInsufficientFundsCode.Status)
	assert.Equal(t, http.StatusUnauthorized, ErrUnauthorizedCode.Status)
	assert.Equal(t, http.StatusNotFound, ErrRecordNotFoundCode.Status)
	assert.Equal(t, http.StatusConflict, ErrAlreadyRedeemedCode.Status)
	assert.Equal(t, http.StatusGone, ErrExpiredCode.Status)
	assert.Equal(t, http.StatusBadRequest, ErrInvalidFormatCode.Status)
}
