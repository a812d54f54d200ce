package model

import (
	"fmt"
	"regexp"
)

// NativeCode is the ledger's native asset code. The native asset never
// carries an issuer and is the hub for all bridged routes.
const NativeCode = "XRP"

var addressPattern = regexp.MustCompile(`^r[1-9A-HJ-NP-Za-km-z]{25,35}$`)

// Currency identifies an asset on the ledger: the native asset by code
// alone, or an issued asset by code plus issuer account.
type Currency struct {
	Code   string `json:"currency"`
	Issuer string `json:"issuer,omitempty"`
}

// Native returns the native hub currency.
func Native() Currency {
	return Currency{Code: NativeCode}
}

// IsNative reports whether the currency is the ledger's native asset.
func (c Currency) IsNative() bool {
	return c.Code == NativeCode
}

// Equal reports whether two currencies identify the same asset.
func (c Currency) Equal(other Currency) bool {
	return c.Code == other.Code && c.Issuer == other.Issuer
}

// Validate enforces the asset shape: the native asset must not carry an
// issuer, every issued asset must carry a well-formed one.
func (c Currency) Validate() error {
	if len(c.Code) < 3 || len(c.Code) > 160 {
		return fmt.Errorf("currency code %q must be between 3 and 160 characters", c.Code)
	}
	if c.IsNative() {
		if c.Issuer != "" {
			return fmt.Errorf("native currency must not have an issuer")
		}
		return nil
	}
	if c.Issuer == "" {
		return fmt.Errorf("issued currency %s requires an issuer", c.Code)
	}
	if !addressPattern.MatchString(c.Issuer) {
		return fmt.Errorf("issuer %q is not a valid ledger address", c.Issuer)
	}
	return nil
}

// Key returns a stable string form used in cache keys.
func (c Currency) Key() string {
	if c.Issuer == "" {
		return c.Code
	}
	return c.Code + "." + c.Issuer
}

// ValidAddress reports whether s is a well-formed ledger account address.
func ValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}
