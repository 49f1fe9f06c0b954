package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind classifies a balance ledger entry.
type EntryKind string

const (
	EntryKindDeposit    EntryKind = "deposit"
	EntryKindCommission EntryKind = "commission"
	EntryKindWithdrawal EntryKind = "withdrawal"
)

// BalanceEntry is one append-only row of the balance ledger. Credits carry a
// positive amount, debits a negative one; the user's settled balance is the
// plain sum of their entries.
type BalanceEntry struct {
	ID        string          `json:"id"`
	UserID    int64           `json:"user_id"`
	Kind      EntryKind       `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
	CreatedAt time.Time       `json:"created_at"`
}

// BalanceSummary is the computed view returned to callers. Available is the
// settled sum minus the amounts still held by open withdrawal requests.
type BalanceSummary struct {
	Settled   decimal.Decimal `json:"settled"`
	Held      decimal.Decimal `json:"held"`
	Available decimal.Decimal `json:"available"`
}
