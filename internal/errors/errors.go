// Package errors defines the error taxonomy of the cache core: upstream
// fetch failures, invalid period tokens, store failures, and partial
// refresh results.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Darryldn9/Direla-Hedera-Frontend-sub003/internal/types"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryUpstream represents ledger collaborator errors
	CategoryUpstream ErrorCategory = "upstream"
	// CategoryCache represents cache store errors
	CategoryCache ErrorCategory = "cache"
	// CategoryValidation represents caller input errors
	CategoryValidation ErrorCategory = "validation"
	// CategorySystem represents internal errors
	CategorySystem ErrorCategory = "system"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to a ServiceError
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// NewUpstreamFetchError creates an error for a failed ledger fetch. The
// update call that hit it aborts entirely and leaves the existing cache
// untouched.
func NewUpstreamFetchError(accountID string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryUpstream,
		StatusCode: http.StatusBadGateway,
		Code:       "UPSTREAM_FETCH_ERROR",
		Message:    fmt.Sprintf("failed to fetch transaction history for account %s", accountID),
		Cause:      cause,
		Details: map[string]interface{}{
			"accountId": accountID,
		},
	}
}

// NewInvalidPeriodError creates an error for an unrecognized period token
func NewInvalidPeriodError(period string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_PERIOD",
		Message:    fmt.Sprintf("invalid period: %s", period),
		Details: map[string]interface{}{
			"period": period,
		},
	}
}

// NewInvalidParameterError creates an error for a malformed caller parameter
func NewInvalidParameterError(param string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_PARAMETER",
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
	}
}

// NewStoreError creates an error for a failed cache store operation
func NewStoreError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryCache,
		StatusCode: http.StatusInternalServerError,
		Code:       "STORE_ERROR",
		Message:    fmt.Sprintf("cache store error during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Cause:      cause,
	}
}

// PartialRefreshError reports a full-account refresh where some period
// writes failed. Periods that succeeded stay committed; each (account,
// period) pair is its own consistency domain and there is no rollback.
type PartialRefreshError struct {
	AccountID string
	Failed    []types.Period
	Causes    map[types.Period]error
}

// Error implements the error interface
func (e *PartialRefreshError) Error() string {
	names := make([]string, len(e.Failed))
	for i, p := range e.Failed {
		names[i] = string(p)
	}
	return fmt.Sprintf("PARTIAL_REFRESH: cache refresh for account %s failed for periods [%s]",
		e.AccountID, strings.Join(names, ", "))
}

// Unwrap exposes the per-period causes for errors.Is / errors.As
func (e *PartialRefreshError) Unwrap() []error {
	errs := make([]error, 0, len(e.Causes))
	for _, p := range e.Failed {
		if cause := e.Causes[p]; cause != nil {
			errs = append(errs, cause)
		}
	}
	return errs
}

// ToServiceError converts to a ServiceError
func (e *PartialRefreshError) ToServiceError() *types.ServiceError {
	failed := make([]string, len(e.Failed))
	for i, p := range e.Failed {
		failed[i] = string(p)
	}
	return &types.ServiceError{
		Code:    "PARTIAL_REFRESH",
		Message: e.Error(),
		Details: map[string]interface{}{
			"accountId":     e.AccountID,
			"failedPeriods": failed,
		},
	}
}

// IsPartialRefresh reports whether err is (or wraps) a PartialRefreshError
func IsPartialRefresh(err error) (*PartialRefreshError, bool) {
	var pre *PartialRefreshError
	if errors.As(err, &pre) {
		return pre, true
	}
	return nil, false
}

// Categorize categorizes an existing error
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr
	}

	if pre, ok := IsPartialRefresh(err); ok {
		return &CategorizedError{
			Category:   CategoryCache,
			StatusCode: http.StatusInternalServerError,
			Code:       "PARTIAL_REFRESH",
			Message:    pre.Error(),
			Details:    pre.ToServiceError().Details,
			Cause:      err,
		}
	}

	return NewInternalError("unexpected error", err)
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}
