// Package cache implements the transaction cache manager: it fetches
// fresh history from the ledger, partitions it into rolling time windows,
// and serves bounded reads and revenue aggregations from the store.
package cache

import (
	"context"
	"time"

	apperrors "github.com/Darryldn9/Direla-Hedera-Frontend-sub003/internal/errors"
	"github.com/Darryldn9/Direla-Hedera-Frontend-sub003/internal/logging"
	"github.com/Darryldn9/Direla-Hedera-Frontend-sub003/internal/types"
)

// LedgerQuery fetches the ordered transaction history for an account,
// newest first, capped at limit.
type LedgerQuery interface {
	GetTransactionHistory(ctx context.Context, accountID string, limit int) ([]types.TransactionRecord, error)
}

// Store is the snapshot store consumed by the manager. Each (account,
// period) key is replaced whole on every write.
type Store interface {
	PutEntry(ctx context.Context, accountID string, period types.Period, records []types.TransactionRecord) error
	GetEntry(ctx context.Context, accountID string, period types.Period) ([]types.TransactionRecord, bool, error)
	DeleteEntry(ctx context.Context, accountID string, period types.Period) error
	DeleteAccount(ctx context.Context, accountID string) error
	PutMetadata(ctx context.Context, accountID string, period types.Period, meta *types.CacheMetadata) error
	GetMetadata(ctx context.Context, accountID string, period types.Period) (*types.CacheMetadata, bool, error)
	QueryRevenue(ctx context.Context, accountID string, period types.Period, start, end int64) (*types.RevenueSummary, bool, error)
}

// Manager owns the cache refresh and read logic for account transaction
// history.
type Manager struct {
	ledger     LedgerQuery
	store      Store
	fetchLimit int
	now        func() time.Time
}

// ManagerConfig holds configuration for the cache manager
type ManagerConfig struct {
	Ledger     LedgerQuery
	Store      Store
	FetchLimit int // default 1000
}

// NewManager creates a new cache manager
func NewManager(cfg *ManagerConfig) *Manager {
	fetchLimit := cfg.FetchLimit
	if fetchLimit <= 0 {
		fetchLimit = 1000
	}

	return &Manager{
		ledger:     cfg.Ledger,
		store:      cfg.Store,
		fetchLimit: fetchLimit,
		now:        time.Now,
	}
}

// RefreshResult reports what a refresh call did
type RefreshResult struct {
	AccountID      string         `json:"accountId"`
	Updated        bool           `json:"updated"`
	RecordsFetched int            `json:"recordsFetched"`
	Periods        []types.Period `json:"periods,omitempty"`
}

// UpdateCacheForAccount refreshes all four period snapshots for an
// account from a single ledger fetch. A fetch that returns zero records
// is a no-op and leaves the existing cache untouched. Period writes are
// independent: a failed period does not roll back the others, and the
// call reports the failed periods in a PartialRefreshError while the
// successful writes stay committed.
func (m *Manager) UpdateCacheForAccount(ctx context.Context, accountID string) (*RefreshResult, error) {
	logger := logging.FromContext(ctx).WithField("accountId", accountID)

	records, err := m.ledger.GetTransactionHistory(ctx, accountID, m.fetchLimit)
	if err != nil {
		return nil, apperrors.NewUpstreamFetchError(accountID, err)
	}

	if len(records) == 0 {
		logger.Debug("Ledger returned no transactions, leaving cache untouched")
		return &RefreshResult{AccountID: accountID, Updated: false}, nil
	}

	now := m.now()
	var written []types.Period
	var failed []types.Period
	causes := make(map[types.Period]error)

	for _, period := range types.AllPeriods {
		if err := m.writePeriod(ctx, accountID, period, records, now); err != nil {
			logger.WithError(err).WithField("period", string(period)).Error("Failed to write period snapshot")
			failed = append(failed, period)
			causes[period] = err
			continue
		}
		written = append(written, period)
	}

	result := &RefreshResult{
		AccountID:      accountID,
		Updated:        len(written) > 0,
		RecordsFetched: len(records),
		Periods:        written,
	}

	if len(failed) > 0 {
		return result, &apperrors.PartialRefreshError{
			AccountID: accountID,
			Failed:    failed,
			Causes:    causes,
		}
	}

	logger.WithField("records", len(records)).Debug("Refreshed all period snapshots")
	return result, nil
}

// UpdateCacheForPeriod refreshes a single period snapshot for an account.
// Like the full refresh, a zero-record fetch is a no-op.
func (m *Manager) UpdateCacheForPeriod(ctx context.Context, accountID string, period types.Period) (*RefreshResult, error) {
	if _, err := types.ParsePeriod(string(period)); err != nil {
		return nil, apperrors.NewInvalidPeriodError(string(period))
	}

	records, err := m.ledger.GetTransactionHistory(ctx, accountID, m.fetchLimit)
	if err != nil {
		return nil, apperrors.NewUpstreamFetchError(accountID, err)
	}

	if len(records) == 0 {
		return &RefreshResult{AccountID: accountID, Updated: false}, nil
	}

	if err := m.writePeriod(ctx, accountID, period, records, m.now()); err != nil {
		return nil, apperrors.NewStoreError("period refresh", err)
	}

	return &RefreshResult{
		AccountID:      accountID,
		Updated:        true,
		RecordsFetched: len(records),
		Periods:        []types.Period{period},
	}, nil
}

// writePeriod clears and rewrites one (account, period) snapshot and its
// metadata from the fetched record set.
func (m *Manager) writePeriod(ctx context.Context, accountID string, period types.Period, records []types.TransactionRecord, now time.Time) error {
	windowed := filterByWindow(records, period, now)

	if err := m.store.DeleteEntry(ctx, accountID, period); err != nil {
		return err
	}
	if err := m.store.PutEntry(ctx, accountID, period, windowed); err != nil {
		return err
	}

	meta := &types.CacheMetadata{
		AccountID:        accountID,
		Period:           period,
		LastUpdated:      now.UnixMilli(),
		TransactionCount: len(windowed),
		TotalRevenue:     totalRevenue(windowed),
	}
	return m.store.PutMetadata(ctx, accountID, period, meta)
}

// GetCachedTransactionsForPeriod reads the cached snapshot for an account
// and period. A cache miss returns an empty slice, not an error, and so
// do store read failures: a stale-but-absent cache is not fatal to
// callers. Optional bounds narrow the cached window; both are inclusive
// epoch milliseconds.
func (m *Manager) GetCachedTransactionsForPeriod(ctx context.Context, accountID string, period types.Period, startTime, endTime *int64) ([]types.TransactionRecord, error) {
	if _, err := types.ParsePeriod(string(period)); err != nil {
		return nil, apperrors.NewInvalidPeriodError(string(period))
	}

	records, found, err := m.store.GetEntry(ctx, accountID, period)
	if err != nil {
		logging.FromContext(ctx).WithError(err).WithFields(map[string]interface{}{
			"accountId": accountID,
			"period":    string(period),
		}).Warn("Cache read failed, degrading to empty result")
		return []types.TransactionRecord{}, nil
	}
	if !found {
		return []types.TransactionRecord{}, nil
	}

	if startTime == nil && endTime == nil {
		return records, nil
	}

	filtered := make([]types.TransactionRecord, 0, len(records))
	for _, record := range records {
		if startTime != nil && record.Timestamp < *startTime {
			continue
		}
		if endTime != nil && record.Timestamp > *endTime {
			continue
		}
		filtered = append(filtered, record)
	}

	return filtered, nil
}

// GetRevenueForPeriod aggregates received amounts within [start, end] for
// a bounded period. PeriodAll is rejected: it has no natural window for
// aggregation semantics. A cache miss yields a zero summary.
func (m *Manager) GetRevenueForPeriod(ctx context.Context, accountID string, period types.Period, start, end int64) (*types.RevenueSummary, error) {
	if _, err := types.ParsePeriod(string(period)); err != nil || !period.Bounded() {
		return nil, apperrors.NewInvalidPeriodError(string(period))
	}

	summary, found, err := m.store.QueryRevenue(ctx, accountID, period, start, end)
	if err != nil {
		logging.FromContext(ctx).WithError(err).WithFields(map[string]interface{}{
			"accountId": accountID,
			"period":    string(period),
		}).Warn("Revenue query failed, degrading to zero summary")
		return &types.RevenueSummary{}, nil
	}
	if !found {
		return &types.RevenueSummary{}, nil
	}

	return summary, nil
}

// IsCacheValid reports whether the cached snapshot for an account and
// period is fresher than maxAgeMinutes. Absent metadata or an unreachable
// store both read as invalid, never as an error.
func (m *Manager) IsCacheValid(ctx context.Context, accountID string, period types.Period, maxAgeMinutes int) bool {
	meta, found, err := m.store.GetMetadata(ctx, accountID, period)
	if err != nil || !found {
		return false
	}

	maxAgeMillis := int64(maxAgeMinutes) * 60_000
	return m.now().UnixMilli()-meta.LastUpdated <= maxAgeMillis
}

// PeriodStatus summarizes one cached period for status reporting
type PeriodStatus struct {
	Period           types.Period `json:"period"`
	Valid            bool         `json:"valid"`
	LastUpdated      int64        `json:"lastUpdated"`
	TransactionCount int          `json:"transactionCount"`
}

// Status returns the per-period cache summary for the bounded periods.
func (m *Manager) Status(ctx context.Context, accountID string, maxAgeMinutes int) []PeriodStatus {
	statuses := make([]PeriodStatus, 0, len(types.BoundedPeriods))

	for _, period := range types.BoundedPeriods {
		status := PeriodStatus{Period: period}

		meta, found, err := m.store.GetMetadata(ctx, accountID, period)
		if err == nil && found {
			maxAgeMillis := int64(maxAgeMinutes) * 60_000
			status.Valid = m.now().UnixMilli()-meta.LastUpdated <= maxAgeMillis
			status.LastUpdated = meta.LastUpdated
			status.TransactionCount = meta.TransactionCount
		}

		statuses = append(statuses, status)
	}

	return statuses
}

// ClearCacheForAccount removes all cached snapshots for an account
func (m *Manager) ClearCacheForAccount(ctx context.Context, accountID string) error {
	if err := m.store.DeleteAccount(ctx, accountID); err != nil {
		return apperrors.NewStoreError("clear account cache", err)
	}
	return nil
}

// ClearCacheForPeriod removes one cached snapshot for an account
func (m *Manager) ClearCacheForPeriod(ctx context.Context, accountID string, period types.Period) error {
	if _, err := types.ParsePeriod(string(period)); err != nil {
		return apperrors.NewInvalidPeriodError(string(period))
	}
	if err := m.store.DeleteEntry(ctx, accountID, period); err != nil {
		return apperrors.NewStoreError("clear period cache", err)
	}
	return nil
}

// filterByWindow keeps the records inside a period's rolling window
// measured back from now. The window boundary is computed once per call;
// record order is preserved.
func filterByWindow(records []types.TransactionRecord, period types.Period, now time.Time) []types.TransactionRecord {
	if period == types.PeriodAll {
		out := make([]types.TransactionRecord, len(records))
		copy(out, records)
		return out
	}

	cutoff := now.Add(-period.Window()).UnixMilli()

	out := make([]types.TransactionRecord, 0, len(records))
	for _, record := range records {
		if record.Timestamp >= cutoff {
			out = append(out, record)
		}
	}
	return out
}

// totalRevenue sums received amounts; sends count toward the transaction
// count but never toward revenue.
func totalRevenue(records []types.TransactionRecord) float64 {
	var total float64
	for _, record := range records {
		if record.Direction == types.DirectionReceive {
			total += record.Amount
		}
	}
	return total
}
