package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MinDepositAmount is the smallest accepted deposit notice, in USD.
var MinDepositAmount = decimal.NewFromInt(10)

// DepositStatus is the state of a deposit notice.
type DepositStatus string

const (
	DepositStatusPending   DepositStatus = "pending"
	DepositStatusConfirmed DepositStatus = "confirmed"
	DepositStatusRejected  DepositStatus = "rejected"
)

// Terminal reports whether no further transition is permitted from s.
func (s DepositStatus) Terminal() bool {
	return s == DepositStatusConfirmed || s == DepositStatusRejected
}

// DepositNotice is a user's claim that funds were sent. The platform never
// verifies the transfer on-chain; an operator confirms or rejects it.
type DepositNotice struct {
	ID          string          `json:"id"`
	UserID      int64           `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	TxReference string          `json:"tx_reference,omitempty"`
	Status      DepositStatus   `json:"status"`
	ConfirmedAt *time.Time      `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// SubmitDepositRequest is the caller input for a deposit notice.
type SubmitDepositRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	TxReference string          `json:"tx_reference"`
}

// DepositOutcome is the operator's resolution of a pending notice.
type DepositOutcome string

const (
	DepositOutcomeConfirmed DepositOutcome = "confirmed"
	DepositOutcomeRejected  DepositOutcome = "rejected"
)

// Status maps the outcome to its terminal status.
func (o DepositOutcome) Status() (DepositStatus, bool) {
	switch o {
	case DepositOutcomeConfirmed:
		return DepositStatusConfirmed, true
	case DepositOutcomeRejected:
		return DepositStatusRejected, true
	}
	return "", false
}

// ResolveDepositRequest is the operator input.
type ResolveDepositRequest struct {
	Outcome DepositOutcome `json:"outcome" binding:"required"`
}
