package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WithdrawalStatus is the state of a withdrawal request. A request can be
// approved before funds are actually sent, hence the extra paid state.
type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
	WithdrawalStatusPaid     WithdrawalStatus = "paid"
)

// CanTransitionTo reports whether the state machine permits moving from s
// to next: pending -> approved -> paid, or pending -> rejected.
func (s WithdrawalStatus) CanTransitionTo(next WithdrawalStatus) bool {
	switch s {
	case WithdrawalStatusPending:
		return next == WithdrawalStatusApproved || next == WithdrawalStatusRejected
	case WithdrawalStatusApproved:
		return next == WithdrawalStatusPaid
	}
	return false
}

// Terminal reports whether no further transition is permitted from s.
func (s WithdrawalStatus) Terminal() bool {
	return s == WithdrawalStatusRejected || s == WithdrawalStatusPaid
}

// Open reports whether the request still holds funds against the user's
// available balance.
func (s WithdrawalStatus) Open() bool {
	return s == WithdrawalStatusPending || s == WithdrawalStatusApproved
}

// WithdrawalRequest is a user's request to pay out part of their balance.
type WithdrawalRequest struct {
	ID         string           `json:"id"`
	UserID     int64            `json:"user_id"`
	Amount     decimal.Decimal  `json:"amount"`
	Wallet     string           `json:"wallet"`
	Status     WithdrawalStatus `json:"status"`
	ApprovedAt *time.Time       `json:"approved_at,omitempty"`
	PaidAt     *time.Time       `json:"paid_at,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// SubmitWithdrawalRequest is the caller input.
type SubmitWithdrawalRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Wallet string          `json:"wallet" binding:"required"`
}

// ResolveWithdrawalRequest is the operator input; Status must be a valid
// next state for the current one.
type ResolveWithdrawalRequest struct {
	Status WithdrawalStatus `json:"status" binding:"required"`
}
