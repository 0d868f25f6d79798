// Package types provides common type definitions for the transaction cache service.
package types

import (
	"fmt"
	"time"
)

// Period represents a rolling time window used to partition cached
// transaction history.
type Period string

const (
	// PeriodDaily covers the trailing 24 hours
	PeriodDaily Period = "daily"
	// PeriodWeekly covers the trailing 7 days
	PeriodWeekly Period = "weekly"
	// PeriodMonthly covers the trailing 30 days
	PeriodMonthly Period = "monthly"
	// PeriodAll covers every fetched transaction
	PeriodAll Period = "all"
)

// AllPeriods lists every supported period, in nesting order.
var AllPeriods = []Period{PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodAll}

// BoundedPeriods lists the periods with a finite window. Revenue
// aggregation is only defined for these.
var BoundedPeriods = []Period{PeriodDaily, PeriodWeekly, PeriodMonthly}

// ParsePeriod validates a period token at the boundary. Unknown tokens
// are rejected before any I/O happens.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodAll:
		return Period(s), nil
	default:
		return "", fmt.Errorf("unknown period %q", s)
	}
}

// Window returns the duration of the rolling window for a period.
// PeriodAll has no window and returns 0.
func (p Period) Window() time.Duration {
	switch p {
	case PeriodDaily:
		return 24 * time.Hour
	case PeriodWeekly:
		return 7 * 24 * time.Hour
	case PeriodMonthly:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// Bounded reports whether the period has a finite window.
func (p Period) Bounded() bool {
	return p == PeriodDaily || p == PeriodWeekly || p == PeriodMonthly
}

// TransferDirection represents whether a transaction moved value into or
// out of the account whose history was fetched.
type TransferDirection string

const (
	// DirectionReceive represents an incoming transfer (account is recipient)
	DirectionReceive TransferDirection = "receive"
	// DirectionSend represents an outgoing transfer (account is sender)
	DirectionSend TransferDirection = "send"
)

// TransactionRecord represents a single ledger transaction as returned by
// the mirror node. Records are immutable once fetched.
type TransactionRecord struct {
	ID           string            `json:"id"`
	Timestamp    int64             `json:"timestamp"` // epoch milliseconds
	Amount       float64           `json:"amount"`
	Currency     string            `json:"currency"`
	Direction    TransferDirection `json:"direction"`
	Counterparty string            `json:"counterparty"`
	Fee          float64           `json:"fee"`
}

// CacheMetadata describes one cached (account, period) snapshot. It is
// always written together with the snapshot it describes.
type CacheMetadata struct {
	AccountID        string  `json:"accountId"`
	Period           Period  `json:"period"`
	LastUpdated      int64   `json:"lastUpdated"` // epoch milliseconds
	TransactionCount int     `json:"transactionCount"`
	TotalRevenue     float64 `json:"totalRevenue"`
}

// RevenueSummary is the result of a revenue aggregation query. Revenue
// counts only received amounts; the transaction count covers both
// directions.
type RevenueSummary struct {
	TotalRevenue     float64 `json:"totalRevenue"`
	TransactionCount int     `json:"transactionCount"`
}

// AccountDescriptor identifies an account known to the directory.
// Inactive accounts are skipped by the refresh scheduler.
type AccountDescriptor struct {
	AccountID string `json:"accountId"`
	IsActive  bool   `json:"isActive"`
}

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
