package dto

import (
	"errors"
	"net/http"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/shared"
)

// Transport-only codes; everything else comes from the domain
const (
	CodeBadRequest      = "BAD_REQUEST"
	CodeInternal        = "INTERNAL_ERROR"
	CodeRequestTooLarge = "REQUEST_TOO_LARGE"
	CodeRateLimited     = "RATE_LIMITED"
	CodeTokenExpired    = "TOKEN_EXPIRED"
	CodeTokenRevoked    = "TOKEN_REVOKED"
)

// InternalErrorMessage is the only text an infrastructure failure exposes
const InternalErrorMessage = "An unexpected error occurred"

var statusByCode = map[string]int{
	shared.CodeValidation:          http.StatusBadRequest,
	CodeBadRequest:                 http.StatusBadRequest,
	shared.CodeUnauthorized:        http.StatusUnauthorized,
	CodeTokenExpired:               http.StatusUnauthorized,
	CodeTokenRevoked:               http.StatusUnauthorized,
	"INVALID_CREDENTIALS":          http.StatusUnauthorized,
	shared.CodeForbidden:           http.StatusForbidden,
	shared.CodeNotFound:            http.StatusNotFound,
	shared.CodeAlreadyExists:       http.StatusConflict,
	shared.CodeConcurrencyConflict: http.StatusConflict,
	CodeRequestTooLarge:            http.StatusRequestEntityTooLarge,
	CodeRateLimited:                http.StatusTooManyRequests,

	shared.CodeInvalidState:                  http.StatusUnprocessableEntity,
	finance.CodeValueExceedsRemaining:        http.StatusUnprocessableEntity,
	finance.CodeInsufficientCreditBalance:    http.StatusUnprocessableEntity,
	finance.CodeExceedsNominalValue:          http.StatusUnprocessableEntity,
	finance.CodeCannotCancelPartiallySettled: http.StatusUnprocessableEntity,
	finance.CodeIncompleteClosing:            http.StatusUnprocessableEntity,
	finance.CodeAccountInactive:              http.StatusUnprocessableEntity,
	finance.CodeDayClosed:                    http.StatusUnprocessableEntity,
	finance.CodeAlreadyClosed:                http.StatusUnprocessableEntity,
	finance.CodeLinkedToSettlement:           http.StatusUnprocessableEntity,
	finance.CodeNotPayable:                   http.StatusUnprocessableEntity,
}

// HTTPStatus maps an error code to its status; unknown codes are 500
func HTTPStatus(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Classify resolves err into a status and an error envelope. Batch line
// failures keep their "lines[i]" detail. The second return is false for
// infrastructure errors, whose message is replaced by a generic one.
func Classify(err error, requestID string) (int, Response, bool) {
	var lineErr *finance.BatchLineError
	if errors.As(err, &lineErr) && lineErr.Err != nil {
		de := lineErr.DomainError()
		return HTTPStatus(de.Code), NewErrorResponse(de.Code, de.Message, requestID, DetailsFrom(de.Details)...), true
	}

	var de *shared.DomainError
	if errors.As(err, &de) {
		status := HTTPStatus(de.Code)
		if status == http.StatusInternalServerError {
			return status, NewErrorResponse(CodeInternal, InternalErrorMessage, requestID), false
		}
		return status, NewErrorResponse(de.Code, de.Message, requestID, DetailsFrom(de.Details)...), true
	}

	return http.StatusInternalServerError, NewErrorResponse(CodeInternal, InternalErrorMessage, requestID), false
}
