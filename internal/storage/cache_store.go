package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Darryldn9/Direla-Hedera-Frontend-sub003/internal/types"
	"github.com/redis/go-redis/v9"
)

// Cache key prefixes. Format: <prefix>:<account>:<period>
const (
	keyPrefixEntry    = "txcache"
	keyPrefixMetadata = "txmeta"
)

// CacheStore persists per-(account, period) transaction snapshots and
// their metadata in Redis. Every value is written whole; readers see
// either the prior snapshot or the new one, never a torn mix. A
// store-wide TTL bounds growth if refreshes stop, independent of the
// application-level staleness check.
type CacheStore struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewCacheStore creates a new cache store with the given safety TTL
func NewCacheStore(redis *RedisCache, ttl time.Duration) *CacheStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CacheStore{
		redis: redis,
		ttl:   ttl,
	}
}

// cachedEntry is the stored snapshot envelope for one (account, period)
type cachedEntry struct {
	AccountID string                    `json:"accountId"`
	Period    types.Period              `json:"period"`
	Records   []types.TransactionRecord `json:"records"`
	CachedAt  int64                     `json:"cachedAt"` // epoch milliseconds
}

// entryKey generates the snapshot key for an account and period
// Format: txcache:<account>:<period>
func entryKey(accountID string, period types.Period) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefixEntry, strings.ToLower(accountID), period)
}

// metadataKey generates the metadata key for an account and period
// Format: txmeta:<account>:<period>
func metadataKey(accountID string, period types.Period) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefixMetadata, strings.ToLower(accountID), period)
}

// PutEntry stores the full record snapshot for an account and period,
// replacing any previous value.
func (s *CacheStore) PutEntry(ctx context.Context, accountID string, period types.Period, records []types.TransactionRecord) error {
	entry := cachedEntry{
		AccountID: accountID,
		Period:    period,
		Records:   records,
		CachedAt:  time.Now().UnixMilli(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	return s.redis.Set(ctx, entryKey(accountID, period), data, s.ttl)
}

// GetEntry retrieves the record snapshot for an account and period. The
// second return value is false on a cache miss; a miss is not an error.
func (s *CacheStore) GetEntry(ctx context.Context, accountID string, period types.Period) ([]types.TransactionRecord, bool, error) {
	data, err := s.redis.Get(ctx, entryKey(accountID, period))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get cache entry: %w", err)
	}

	var entry cachedEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}

	return entry.Records, true, nil
}

// DeleteEntry removes the snapshot and metadata for an account and period
func (s *CacheStore) DeleteEntry(ctx context.Context, accountID string, period types.Period) error {
	return s.redis.Del(ctx, entryKey(accountID, period), metadataKey(accountID, period))
}

// DeleteAccount removes all snapshots and metadata for an account. Keys
// are deterministic per period, so no pattern scan is needed.
func (s *CacheStore) DeleteAccount(ctx context.Context, accountID string) error {
	keys := make([]string, 0, 2*len(types.AllPeriods))
	for _, period := range types.AllPeriods {
		keys = append(keys, entryKey(accountID, period), metadataKey(accountID, period))
	}
	return s.redis.Del(ctx, keys...)
}

// PutMetadata stores the metadata for an account and period
func (s *CacheStore) PutMetadata(ctx context.Context, accountID string, period types.Period, meta *types.CacheMetadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal cache metadata: %w", err)
	}

	return s.redis.Set(ctx, metadataKey(accountID, period), data, s.ttl)
}

// GetMetadata retrieves the metadata for an account and period. The
// second return value is false on a cache miss.
func (s *CacheStore) GetMetadata(ctx context.Context, accountID string, period types.Period) (*types.CacheMetadata, bool, error) {
	data, err := s.redis.Get(ctx, metadataKey(accountID, period))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get cache metadata: %w", err)
	}

	var meta types.CacheMetadata
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cache metadata: %w", err)
	}

	return &meta, true, nil
}

// QueryRevenue aggregates received amounts within [start, end] over the
// cached snapshot for an account and period. Both bounds are inclusive
// and in epoch milliseconds. The second return value is false when the
// snapshot is absent.
func (s *CacheStore) QueryRevenue(ctx context.Context, accountID string, period types.Period, start, end int64) (*types.RevenueSummary, bool, error) {
	records, found, err := s.GetEntry(ctx, accountID, period)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}

	summary := &types.RevenueSummary{}
	for _, record := range records {
		if record.Timestamp < start || record.Timestamp > end {
			continue
		}
		summary.TransactionCount++
		if record.Direction == types.DirectionReceive {
			summary.TotalRevenue += record.Amount
		}
	}

	return summary, true, nil
}

// TTL returns the configured safety TTL
func (s *CacheStore) TTL() time.Duration {
	return s.ttl
}
