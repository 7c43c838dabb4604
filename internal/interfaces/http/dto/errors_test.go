package dto

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{shared.CodeValidation, http.StatusBadRequest},
		{shared.CodeUnauthorized, http.StatusUnauthorized},
		{shared.CodeForbidden, http.StatusForbidden},
		{shared.CodeNotFound, http.StatusNotFound},
		{shared.CodeConcurrencyConflict, http.StatusConflict},
		{shared.CodeAlreadyExists, http.StatusConflict},
		{finance.CodeValueExceedsRemaining, http.StatusUnprocessableEntity},
		{finance.CodeInsufficientCreditBalance, http.StatusUnprocessableEntity},
		{finance.CodeIncompleteClosing, http.StatusUnprocessableEntity},
		{finance.CodeDayClosed, http.StatusUnprocessableEntity},
		{"SOMETHING_NEW", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}

func TestClassify_DomainError(t *testing.T) {
	err := fmt.Errorf("update: %w", shared.NewValidationError("value", "Value must be positive"))

	status, resp, known := Classify(err, "req-1")

	assert.True(t, known)
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, shared.CodeValidation, resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.Equal(t, []ValidationDetail{{Field: "value", Message: "Value must be positive"}}, resp.Error.Details)
}

func TestClassify_BatchLine(t *testing.T) {
	id := uuid.New()
	lineErr := &finance.BatchLineError{
		Line:         2,
		ObligationID: id,
		Err:          finance.ErrValueExceedsRemaining(id, decimal.NewFromInt(500), decimal.NewFromInt(100)),
	}

	status, resp, _ := Classify(lineErr, "")

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, finance.CodeValueExceedsRemaining, resp.Error.Code)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "lines[1]", resp.Error.Details[0].Field)
}

func TestClassify_InfrastructureErrorIsHidden(t *testing.T) {
	status, resp, known := Classify(errors.New("dial tcp 10.0.0.1:5432: connection refused"), "r")

	assert.False(t, known)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, CodeInternal, resp.Error.Code)
	assert.Equal(t, InternalErrorMessage, resp.Error.Message)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]int{1, 2}, 41, 2, 20)

	assert.True(t, resp.Success)
	assert.Equal(t, &Meta{Total: 41, Page: 2, PageSize: 20, TotalPages: 3}, resp.Meta)
}
