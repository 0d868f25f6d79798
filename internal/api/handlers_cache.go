package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Darryldn9/Direla-Hedera-Frontend-sub003/internal/cache"
	"github.com/Darryldn9/Direla-Hedera-Frontend-sub003/internal/logging"
	"github.com/Darryldn9/Direla-Hedera-Frontend-sub003/internal/types"
	"github.com/gorilla/mux"
)

// TransactionsResponse is the payload for cached transaction reads
type TransactionsResponse struct {
	AccountID    string                    `json:"accountId"`
	Period       types.Period              `json:"period"`
	Transactions []types.TransactionRecord `json:"transactions"`
	Count        int                       `json:"count"`
	Refreshed    bool                      `json:"refreshed"`
}

// RevenueResponse is the payload for revenue aggregation reads
type RevenueResponse struct {
	AccountID string               `json:"accountId"`
	Period    types.Period         `json:"period"`
	StartTime int64                `json:"startTime"`
	EndTime   int64                `json:"endTime"`
	Revenue   types.RevenueSummary `json:"revenue"`
}

// CacheStatusResponse is the payload for per-period cache status reads
type CacheStatusResponse struct {
	AccountID string               `json:"accountId"`
	Periods   []cache.PeriodStatus `json:"periods"`
}

// handleGetTransactions serves GET /api/v1/accounts/{accountId}/transactions/{period}
// Optional query parameters: startTime, endTime (epoch ms, inclusive),
// forceRefresh. A forced or stale read triggers a synchronous period
// refresh before reading.
func (s *Server) handleGetTransactions(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	accountID := vars["accountId"]

	period, err := types.ParsePeriod(vars["period"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PERIOD", err.Error(), nil)
		return
	}

	startTime, err := optionalInt64Param(r, "startTime")
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "startTime must be epoch milliseconds", nil)
		return
	}
	endTime, err := optionalInt64Param(r, "endTime")
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "endTime must be epoch milliseconds", nil)
		return
	}

	forceRefresh := r.URL.Query().Get("forceRefresh") == "true"

	refreshed := false
	if forceRefresh || !s.manager.IsCacheValid(r.Context(), accountID, period, s.config.MaxAgeMinutes) {
		if _, err := s.manager.UpdateCacheForPeriod(r.Context(), accountID, period); err != nil {
			respondCategorized(w, err)
			return
		}
		refreshed = true
	}

	records, err := s.manager.GetCachedTransactionsForPeriod(r.Context(), accountID, period, startTime, endTime)
	if err != nil {
		respondCategorized(w, err)
		return
	}

	respondJSON(w, http.StatusOK, TransactionsResponse{
		AccountID:    accountID,
		Period:       period,
		Transactions: records,
		Count:        len(records),
		Refreshed:    refreshed,
	})
}

// handleGetRevenue serves GET /api/v1/accounts/{accountId}/revenue/{period}
// Both startTime and endTime are mandatory; missing or non-numeric bounds
// are a caller error, not a cache error.
func (s *Server) handleGetRevenue(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	accountID := vars["accountId"]

	period, err := types.ParsePeriod(vars["period"])
	if err != nil || !period.Bounded() {
		respondError(w, http.StatusBadRequest, "INVALID_PERIOD",
			"period must be one of daily, weekly, monthly", nil)
		return
	}

	start, err := requiredInt64Param(r, "startTime")
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "startTime is required and must be epoch milliseconds", nil)
		return
	}
	end, err := requiredInt64Param(r, "endTime")
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "endTime is required and must be epoch milliseconds", nil)
		return
	}

	summary, err := s.manager.GetRevenueForPeriod(r.Context(), accountID, period, start, end)
	if err != nil {
		respondCategorized(w, err)
		return
	}

	respondJSON(w, http.StatusOK, RevenueResponse{
		AccountID: accountID,
		Period:    period,
		StartTime: start,
		EndTime:   end,
		Revenue:   *summary,
	})
}

// handleRefreshAccount serves POST /api/v1/accounts/{accountId}/cache/refresh
func (s *Server) handleRefreshAccount(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountId"]

	result, err := s.manager.UpdateCacheForAccount(r.Context(), accountID)
	if err != nil {
		respondCategorized(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleCacheStatus serves GET /api/v1/accounts/{accountId}/cache/status
func (s *Server) handleCacheStatus(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountId"]

	respondJSON(w, http.StatusOK, CacheStatusResponse{
		AccountID: accountID,
		Periods:   s.manager.Status(r.Context(), accountID, s.config.MaxAgeMinutes),
	})
}

// handleFleetRefresh serves POST /api/v1/cache/refresh
// The pass runs in the background; the response only acknowledges the trigger.
func (s *Server) handleFleetRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())

	go func() {
		if err := s.scheduler.RunPass(ctx); err != nil {
			logging.FromContext(ctx).WithError(err).Error("Triggered fleet refresh failed")
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"status": "refresh scheduled",
	})
}

// handleHealth serves GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "ok",
		"schedulerRunning": s.scheduler.IsRunning(),
	})
}

// optionalInt64Param parses an optional integer query parameter
func optionalInt64Param(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}

	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

// requiredInt64Param parses a mandatory integer query parameter
func requiredInt64Param(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseInt(raw, 10, 64)
}
