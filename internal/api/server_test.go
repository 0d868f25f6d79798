package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Darryldn9/Direla-Hedera-Frontend-sub003/internal/cache"
	apperrors "github.com/Darryldn9/Direla-Hedera-Frontend-sub003/internal/errors"
	"github.com/Darryldn9/Direla-Hedera-Frontend-sub003/internal/types"
)

type fakeManager struct {
	mu sync.Mutex

	valid      bool
	records    []types.TransactionRecord
	recordsErr error
	revenue    *types.RevenueSummary
	revenueErr error
	statuses   []cache.PeriodStatus

	refreshErr        error
	refreshResult     *cache.RefreshResult
	periodRefreshes   []types.Period
	accountRefreshes  []string
	lastReadStart     *int64
	lastReadEnd       *int64
	lastRevenueWindow [2]int64
}

func (f *fakeManager) UpdateCacheForAccount(ctx context.Context, accountID string) (*cache.RefreshResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accountRefreshes = append(f.accountRefreshes, accountID)
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	if f.refreshResult != nil {
		return f.refreshResult, nil
	}
	return &cache.RefreshResult{AccountID: accountID, Updated: true}, nil
}

func (f *fakeManager) UpdateCacheForPeriod(ctx context.Context, accountID string, period types.Period) (*cache.RefreshResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.periodRefreshes = append(f.periodRefreshes, period)
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &cache.RefreshResult{AccountID: accountID, Updated: true, Periods: []types.Period{period}}, nil
}

func (f *fakeManager) GetCachedTransactionsForPeriod(ctx context.Context, accountID string, period types.Period, startTime, endTime *int64) ([]types.TransactionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastReadStart = startTime
	f.lastReadEnd = endTime
	return f.records, f.recordsErr
}

func (f *fakeManager) GetRevenueForPeriod(ctx context.Context, accountID string, period types.Period, start, end int64) (*types.RevenueSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastRevenueWindow = [2]int64{start, end}
	if f.revenueErr != nil {
		return nil, f.revenueErr
	}
	if f.revenue != nil {
		return f.revenue, nil
	}
	return &types.RevenueSummary{}, nil
}

func (f *fakeManager) IsCacheValid(ctx context.Context, accountID string, period types.Period, maxAgeMinutes int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.valid
}

func (f *fakeManager) Status(ctx context.Context, accountID string, maxAgeMinutes int) []cache.PeriodStatus {
	return f.statuses
}

func (f *fakeManager) periodRefreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.periodRefreshes)
}

type fakeScheduler struct {
	mu        sync.Mutex
	running   bool
	passes    int
	scheduled []string
}

func (f *fakeScheduler) ScheduleAccountUpdate(ctx context.Context, accountID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, accountID)
}

func (f *fakeScheduler) RunPass(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passes++
	return nil
}

func (f *fakeScheduler) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeScheduler) passCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.passes
}

func newTestServer(manager *fakeManager, scheduler *fakeScheduler) *Server {
	return NewServer(&ServerConfig{
		MaxAgeMinutes: 5,
		RateLimitRPS:  1000,
	}, manager, scheduler)
}

func doRequest(s *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestGetTransactions(t *testing.T) {
	records := []types.TransactionRecord{
		{ID: "tx-1", Timestamp: 1000, Amount: 5, Direction: types.DirectionReceive},
		{ID: "tx-2", Timestamp: 2000, Amount: 3, Direction: types.DirectionSend},
	}

	t.Run("valid cache is served without refreshing", func(t *testing.T) {
		manager := &fakeManager{valid: true, records: records}
		s := newTestServer(manager, &fakeScheduler{})

		rec := doRequest(s, http.MethodGet, "/api/v1/accounts/0.0.1001/transactions/daily")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp TransactionsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "0.0.1001", resp.AccountID)
		assert.Equal(t, types.PeriodDaily, resp.Period)
		assert.Len(t, resp.Transactions, 2)
		assert.Equal(t, 2, resp.Count)
		assert.False(t, resp.Refreshed)
		assert.Zero(t, manager.periodRefreshCount())
	})

	t.Run("stale cache triggers synchronous refresh", func(t *testing.T) {
		manager := &fakeManager{valid: false, records: records}
		s := newTestServer(manager, &fakeScheduler{})

		rec := doRequest(s, http.MethodGet, "/api/v1/accounts/0.0.1001/transactions/weekly")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp TransactionsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Refreshed)
		assert.Equal(t, []types.Period{types.PeriodWeekly}, manager.periodRefreshes)
	})

	t.Run("forceRefresh refreshes even when cache is valid", func(t *testing.T) {
		manager := &fakeManager{valid: true, records: records}
		s := newTestServer(manager, &fakeScheduler{})

		rec := doRequest(s, http.MethodGet, "/api/v1/accounts/0.0.1001/transactions/daily?forceRefresh=true")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp TransactionsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Refreshed)
		assert.Equal(t, []types.Period{types.PeriodDaily}, manager.periodRefreshes)
	})

	t.Run("time bounds are forwarded to the read", func(t *testing.T) {
		manager := &fakeManager{valid: true, records: records}
		s := newTestServer(manager, &fakeScheduler{})

		rec := doRequest(s, http.MethodGet, "/api/v1/accounts/0.0.1001/transactions/monthly?startTime=1000&endTime=2000")
		require.Equal(t, http.StatusOK, rec.Code)

		require.NotNil(t, manager.lastReadStart)
		require.NotNil(t, manager.lastReadEnd)
		assert.Equal(t, int64(1000), *manager.lastReadStart)
		assert.Equal(t, int64(2000), *manager.lastReadEnd)
	})

	t.Run("invalid period is rejected", func(t *testing.T) {
		s := newTestServer(&fakeManager{}, &fakeScheduler{})

		rec := doRequest(s, http.MethodGet, "/api/v1/accounts/0.0.1001/transactions/yearly")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_PERIOD", decodeError(t, rec).Error.Code)
	})

	t.Run("non numeric bound is rejected", func(t *testing.T) {
		s := newTestServer(&fakeManager{valid: true}, &fakeScheduler{})

		rec := doRequest(s, http.MethodGet, "/api/v1/accounts/0.0.1001/transactions/daily?startTime=yesterday")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, ErrCodeInvalidInput, decodeError(t, rec).Error.Code)
	})

	t.Run("upstream failure during refresh maps to 502", func(t *testing.T) {
		manager := &fakeManager{
			valid:      false,
			refreshErr: apperrors.NewUpstreamFetchError("0.0.1001", assert.AnError),
		}
		s := newTestServer(manager, &fakeScheduler{})

		rec := doRequest(s, http.MethodGet, "/api/v1/accounts/0.0.1001/transactions/daily")
		require.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "UPSTREAM_FETCH_ERROR", decodeError(t, rec).Error.Code)
	})
}

func TestGetRevenue(t *testing.T) {
	t.Run("returns the aggregation for the window", func(t *testing.T) {
		manager := &fakeManager{
			revenue: &types.RevenueSummary{TotalRevenue: 40.0, TransactionCount: 3},
		}
		s := newTestServer(manager, &fakeScheduler{})

		rec := doRequest(s, http.MethodGet, "/api/v1/accounts/0.0.1001/revenue/weekly?startTime=1000&endTime=5000")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp RevenueResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, types.PeriodWeekly, resp.Period)
		assert.Equal(t, int64(1000), resp.StartTime)
		assert.Equal(t, int64(5000), resp.EndTime)
		assert.InDelta(t, 40.0, resp.Revenue.TotalRevenue, 1e-9)
		assert.Equal(t, 3, resp.Revenue.TransactionCount)
		assert.Equal(t, [2]int64{1000, 5000}, manager.lastRevenueWindow)
	})

	t.Run("missing bounds are rejected", func(t *testing.T) {
		s := newTestServer(&fakeManager{}, &fakeScheduler{})

		rec := doRequest(s, http.MethodGet, "/api/v1/accounts/0.0.1001/revenue/weekly?startTime=1000")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, ErrCodeInvalidInput, decodeError(t, rec).Error.Code)
	})

	t.Run("unbounded period is rejected", func(t *testing.T) {
		s := newTestServer(&fakeManager{}, &fakeScheduler{})

		rec := doRequest(s, http.MethodGet, "/api/v1/accounts/0.0.1001/revenue/all?startTime=1000&endTime=5000")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_PERIOD", decodeError(t, rec).Error.Code)
	})

	t.Run("non numeric bound is rejected", func(t *testing.T) {
		s := newTestServer(&fakeManager{}, &fakeScheduler{})

		rec := doRequest(s, http.MethodGet, "/api/v1/accounts/0.0.1001/revenue/daily?startTime=abc&endTime=5000")
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRefreshAccount(t *testing.T) {
	t.Run("refreshes all periods for the account", func(t *testing.T) {
		manager := &fakeManager{
			refreshResult: &cache.RefreshResult{
				AccountID:      "0.0.1001",
				Updated:        true,
				RecordsFetched: 42,
				Periods:        types.AllPeriods,
			},
		}
		s := newTestServer(manager, &fakeScheduler{})

		rec := doRequest(s, http.MethodPost, "/api/v1/accounts/0.0.1001/cache/refresh")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp cache.RefreshResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Updated)
		assert.Equal(t, 42, resp.RecordsFetched)
		assert.Equal(t, []string{"0.0.1001"}, manager.accountRefreshes)
	})

	t.Run("partial failure reports the failed periods", func(t *testing.T) {
		manager := &fakeManager{
			refreshErr: &apperrors.PartialRefreshError{
				AccountID: "0.0.1001",
				Failed:    []types.Period{types.PeriodWeekly},
				Causes:    map[types.Period]error{types.PeriodWeekly: assert.AnError},
			},
		}
		s := newTestServer(manager, &fakeScheduler{})

		rec := doRequest(s, http.MethodPost, "/api/v1/accounts/0.0.1001/cache/refresh")
		require.Equal(t, http.StatusInternalServerError, rec.Code)

		errResp := decodeError(t, rec)
		assert.Equal(t, "PARTIAL_REFRESH", errResp.Error.Code)
		assert.Equal(t, []interface{}{"weekly"}, errResp.Error.Details["failedPeriods"])
	})
}

func TestCacheStatus(t *testing.T) {
	manager := &fakeManager{
		statuses: []cache.PeriodStatus{
			{Period: types.PeriodDaily, Valid: true, LastUpdated: 123, TransactionCount: 4},
			{Period: types.PeriodWeekly, Valid: false},
			{Period: types.PeriodMonthly, Valid: false},
		},
	}
	s := newTestServer(manager, &fakeScheduler{})

	rec := doRequest(s, http.MethodGet, "/api/v1/accounts/0.0.1001/cache/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CacheStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "0.0.1001", resp.AccountID)
	require.Len(t, resp.Periods, 3)
	assert.True(t, resp.Periods[0].Valid)
	assert.Equal(t, 4, resp.Periods[0].TransactionCount)
}

func TestFleetRefresh(t *testing.T) {
	scheduler := &fakeScheduler{}
	s := newTestServer(&fakeManager{}, scheduler)

	rec := doRequest(s, http.MethodPost, "/api/v1/cache/refresh")
	require.Equal(t, http.StatusAccepted, rec.Code)

	// The pass runs in the background after the response is sent
	assert.Eventually(t, func() bool {
		return scheduler.passCount() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestHealth(t *testing.T) {
	s := newTestServer(&fakeManager{}, &fakeScheduler{running: true})

	rec := doRequest(s, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, true, resp["schedulerRunning"])
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "203.0.113.7:4567"

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, req)
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, ErrCodeRateLimitExceeded, decodeError(t, second).Error.Code)
}
