package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the state of a payment record.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Terminal reports whether no further transition is permitted from s.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}

// Outcome is the operator's resolution of a pending payment.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
)

// Status returns the terminal status the outcome maps to, and whether the
// outcome is valid.
func (o Outcome) Status() (PaymentStatus, bool) {
	switch o {
	case OutcomeCompleted:
		return PaymentStatusCompleted, true
	case OutcomeFailed:
		return PaymentStatusFailed, true
	}
	return "", false
}

// Payment is a recorded package purchase intent.
//
// Amount is copied from the package price at creation, commission is
// amount x tier rate at creation. Neither is ever recomputed: later package
// price edits or tier changes do not touch historical payments.
type Payment struct {
	ID          string          `json:"id"`
	UserID      int64           `json:"user_id"`
	PackageID   string          `json:"package_id"`
	Amount      decimal.Decimal `json:"amount"`
	Commission  decimal.Decimal `json:"commission"`
	BuyerWallet string          `json:"buyer_wallet"`
	Status      PaymentStatus   `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CreateIntentRequest is the caller input for a purchase intent.
type CreateIntentRequest struct {
	PackageID   string `json:"package_id" binding:"required"`
	BuyerWallet string `json:"buyer_wallet" binding:"required"`
}

// ResolveRequest is the operator input for settling a pending payment.
type ResolveRequest struct {
	Outcome Outcome `json:"outcome" binding:"required"`
}

// Filter selects payments for list and aggregate queries. Both operations
// interpret it identically so their results always agree.
type Filter struct {
	Status *PaymentStatus
	UserID *int64
	From   *time.Time
	To     *time.Time
}

// Aggregate is the reporting summary over a filter.
type Aggregate struct {
	Count         int64           `json:"count"`
	SumAmount     decimal.Decimal `json:"sum_amount"`
	SumCommission decimal.Decimal `json:"sum_commission"`
}
