package models

import (
	"time"

	"referral-backend/internal/features/tier"
)

// KYCStatus is the verification state of a user's identity documents.
type KYCStatus string

const (
	KYCStatusNone     KYCStatus = "none"
	KYCStatusPending  KYCStatus = "pending"
	KYCStatusApproved KYCStatus = "approved"
	KYCStatusRejected KYCStatus = "rejected"
)

// User is the long-lived root entity. Users are never deleted: payments,
// notices and audit events hang off this row forever.
type User struct {
	ID               int64     `json:"id"`
	Username         string    `json:"username"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Tier             tier.Tier `json:"tier"`
	Role             Role      `json:"role"`
	Verified         bool      `json:"verified"`
	KYCStatus        KYCStatus `json:"kyc_status"`
	PayoutWallet     string    `json:"payout_wallet"`
	CommissionWallet string    `json:"commission_wallet"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// DisplayName returns a human-readable name for notifications.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return "user"
	}
	return name
}

// CanSubmitKYC reports whether a (re-)submission is allowed from the current
// status. Re-submission from a decided state resets the flow to pending;
// a submission already under review cannot be replaced.
func (u *User) CanSubmitKYC() bool {
	return u.KYCStatus != KYCStatusPending
}

// KYCSubmission carries the document references supplied by the external
// storage collaborator. Documents are uploaded elsewhere; the core only
// records their URLs.
type KYCSubmission struct {
	DocumentURLs []string `json:"document_urls" binding:"required,min=1"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Tier         tier.Tier `json:"tier"`
	Verified     bool      `json:"verified"`
	KYCStatus    KYCStatus `json:"kyc_status"`
	PayoutWallet string    `json:"payout_wallet"`
	CreatedAt    time.Time `json:"created_at"`
}

// ToResponse converts a user to its public view.
func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:           u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Tier:         u.Tier,
		Verified:     u.Verified,
		KYCStatus:    u.KYCStatus,
		PayoutWallet: u.PayoutWallet,
		CreatedAt:    u.CreatedAt,
	}
}
