package validation

import (
	"fmt"

	"github.com/xssnick/tonutils-go/address"
)

// ValidateWallet checks that s parses as a TON address. Payouts and
// commissions settle as USDT jettons on TON, so every user-supplied wallet
// must be a valid address in either raw or friendly form.
func ValidateWallet(s string) error {
	if s == "" {
		return fmt.Errorf("wallet must not be empty")
	}
	if _, err := address.ParseAddr(s); err != nil {
		return fmt.Errorf("invalid wallet address: %w", err)
	}
	return nil
}
