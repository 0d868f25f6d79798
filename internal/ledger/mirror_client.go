// Package ledger implements the mirror node client that provides the
// authoritative transaction history for an account.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Darryldn9/Direla-Hedera-Frontend-sub003/internal/config"
	"github.com/Darryldn9/Direla-Hedera-Frontend-sub003/internal/logging"
	"github.com/Darryldn9/Direla-Hedera-Frontend-sub003/internal/retry"
	"github.com/Darryldn9/Direla-Hedera-Frontend-sub003/internal/types"
)

const (
	// Mirror node pages cap at 100 entries regardless of the requested limit
	maxPageSize = 100

	// Tinybars per HBAR
	tinybarsPerHbar = 100_000_000
)

// Client queries the Hedera mirror node REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	retryCfg   *retry.RetryConfig
}

// NewClient creates a new mirror node client
func NewClient(cfg *config.MirrorConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retryCfg: retry.DefaultRetryConfig(),
	}
}

// mirrorTransfer is one entry in a transaction's transfer list
type mirrorTransfer struct {
	Account string `json:"account"`
	Amount  int64  `json:"amount"` // tinybars, signed
}

// mirrorTransaction is a transaction as returned by the mirror node
type mirrorTransaction struct {
	TransactionID      string           `json:"transaction_id"`
	ConsensusTimestamp string           `json:"consensus_timestamp"`
	ChargedTxFee       int64            `json:"charged_tx_fee"`
	Name               string           `json:"name"`
	Result             string           `json:"result"`
	Transfers          []mirrorTransfer `json:"transfers"`
}

// mirrorResponse is one page of the transactions listing
type mirrorResponse struct {
	Transactions []mirrorTransaction `json:"transactions"`
	Links        struct {
		Next *string `json:"next"`
	} `json:"links"`
}

// GetTransactionHistory fetches the most recent transactions for an
// account, newest first, capped at limit. Pages are followed via the
// mirror node's next link until the limit is reached. Each page fetch is
// retried with exponential backoff; a page that still fails aborts the
// whole fetch.
func (c *Client) GetTransactionHistory(ctx context.Context, accountID string, limit int) ([]types.TransactionRecord, error) {
	if limit <= 0 {
		limit = 1000
	}

	logger := logging.FromContext(ctx).WithField("accountId", accountID)

	pageSize := limit
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	path := fmt.Sprintf("/api/v1/transactions?account.id=%s&limit=%d&order=desc",
		url.QueryEscape(accountID), pageSize)

	records := make([]types.TransactionRecord, 0, limit)
	pages := 0

	for path != "" && len(records) < limit {
		page, err := c.fetchPage(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("mirror node fetch for account %s: %w", accountID, err)
		}
		pages++

		for _, tx := range page.Transactions {
			record, ok := normalizeTransaction(&tx, accountID)
			if !ok {
				continue
			}
			records = append(records, record)
			if len(records) >= limit {
				break
			}
		}

		if page.Links.Next == nil {
			break
		}
		path = *page.Links.Next
	}

	logger.WithFields(map[string]interface{}{
		"records": len(records),
		"pages":   pages,
	}).Debug("Fetched transaction history from mirror node")

	return records, nil
}

// fetchPage retrieves and decodes one page of the transaction listing
func (c *Client) fetchPage(ctx context.Context, path string) (*mirrorResponse, error) {
	var page *mirrorResponse

	result := retry.WithExponentialBackoff(ctx, c.retryCfg, func(ctx context.Context, attempt int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("mirror node returned status %d: %s", resp.StatusCode, string(body))
		}

		var decoded mirrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return fmt.Errorf("failed to decode mirror node response: %w", err)
		}

		page = &decoded
		return nil
	})
	if !result.Success {
		return nil, fmt.Errorf("operation failed after %d attempts: %w", result.Attempts, result.LastError)
	}

	return page, nil
}

// normalizeTransaction converts a mirror node transaction into a
// TransactionRecord from the perspective of accountID. Transactions that
// do not move value for the account (no transfer entry) are skipped.
func normalizeTransaction(tx *mirrorTransaction, accountID string) (types.TransactionRecord, bool) {
	var own *mirrorTransfer
	for i := range tx.Transfers {
		if tx.Transfers[i].Account == accountID {
			own = &tx.Transfers[i]
			break
		}
	}
	if own == nil || own.Amount == 0 {
		return types.TransactionRecord{}, false
	}

	direction := types.DirectionReceive
	if own.Amount < 0 {
		direction = types.DirectionSend
	}

	return types.TransactionRecord{
		ID:           tx.TransactionID,
		Timestamp:    parseConsensusTimestamp(tx.ConsensusTimestamp),
		Amount:       math.Abs(float64(own.Amount)) / tinybarsPerHbar,
		Currency:     "HBAR",
		Direction:    direction,
		Counterparty: counterpartyFor(tx.Transfers, accountID, own.Amount),
		Fee:          float64(tx.ChargedTxFee) / tinybarsPerHbar,
	}, true
}

// counterpartyFor picks the dominant transfer on the opposite side of the
// account's own transfer. The fee collector and node accounts also appear
// in the transfer list, but their amounts are dwarfed by the value moved.
func counterpartyFor(transfers []mirrorTransfer, accountID string, ownAmount int64) string {
	var best string
	var bestAbs int64

	for _, t := range transfers {
		if t.Account == accountID {
			continue
		}
		// Opposite sign of our own movement
		if (ownAmount < 0) == (t.Amount < 0) {
			continue
		}
		abs := t.Amount
		if abs < 0 {
			abs = -abs
		}
		if abs > bestAbs {
			bestAbs = abs
			best = t.Account
		}
	}

	return best
}

// parseConsensusTimestamp converts a mirror node consensus timestamp
// ("seconds.nanoseconds") to epoch milliseconds.
func parseConsensusTimestamp(ts string) int64 {
	parts := strings.SplitN(ts, ".", 2)

	seconds, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0
	}

	var millis int64
	if len(parts) == 2 {
		nanos, err := strconv.ParseInt(parts[1], 10, 64)
		if err == nil {
			millis = nanos / 1_000_000
		}
	}

	return seconds*1000 + millis
}
