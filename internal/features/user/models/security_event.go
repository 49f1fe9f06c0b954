package models

import (
	"encoding/json"
	"time"
)

// SecurityEventKind classifies an entry in the account audit trail.
type SecurityEventKind string

const (
	EventKindLogin              SecurityEventKind = "login"
	EventKindKYCSubmitted       SecurityEventKind = "kyc_submitted"
	EventKindKYCDecided         SecurityEventKind = "kyc_decided"
	EventKindTierChanged        SecurityEventKind = "tier_changed"
	EventKindPaymentResolved    SecurityEventKind = "payment_resolved"
	EventKindDepositResolved    SecurityEventKind = "deposit_resolved"
	EventKindWithdrawalCreated  SecurityEventKind = "withdrawal_created"
	EventKindWithdrawalResolved SecurityEventKind = "withdrawal_resolved"
)

// SecurityEvent is one append-only audit record. Rows are never mutated or
// deleted; the activity feed reads them newest first.
type SecurityEvent struct {
	ID        string            `json:"id"`
	UserID    int64             `json:"user_id"`
	Kind      SecurityEventKind `json:"kind"`
	Metadata  json.RawMessage   `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
