package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Package is a purchasable unit.
//
// PriceUSD is the single canonical amount field: every payment-creation path
// copies it verbatim. The display amounts are opaque marketing strings and
// must never be parsed or used in arithmetic.
type Package struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	PriceUSD      decimal.Decimal `json:"price_usd"`
	UsdtDisplay   string          `json:"usdt_display"`
	BtcDisplay    string          `json:"btc_display"`
	DurationDays  int             `json:"duration_days"`
	TransferCount int             `json:"transfer_count"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// PackageCreate is the operator input for a new package.
type PackageCreate struct {
	Name          string          `json:"name" binding:"required,min=1,max=100"`
	PriceUSD      decimal.Decimal `json:"price_usd" binding:"required"`
	UsdtDisplay   string          `json:"usdt_display"`
	BtcDisplay    string          `json:"btc_display"`
	DurationDays  int             `json:"duration_days" binding:"required,min=1"`
	TransferCount int             `json:"transfer_count" binding:"min=0"`
}

// PackageUpdate carries optional administrative edits.
type PackageUpdate struct {
	Name          *string          `json:"name,omitempty" binding:"omitempty,min=1,max=100"`
	PriceUSD      *decimal.Decimal `json:"price_usd,omitempty"`
	UsdtDisplay   *string          `json:"usdt_display,omitempty"`
	BtcDisplay    *string          `json:"btc_display,omitempty"`
	DurationDays  *int             `json:"duration_days,omitempty" binding:"omitempty,min=1"`
	TransferCount *int             `json:"transfer_count,omitempty" binding:"omitempty,min=0"`
	Active        *bool            `json:"active,omitempty"`
}
