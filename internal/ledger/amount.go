package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"orren/internal/model"
)

// wireAmount decodes a ledger amount, which is either a drop-scaled string
// for the native asset or a {currency, issuer, value} object for issued
// assets.
type wireAmount struct {
	Currency string `json:"currency"`
	Issuer   string `json:"issuer"`
	Value    string `json:"value"`

	drops string
}

func (a *wireAmount) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &a.drops)
	}
	type alias wireAmount
	return json.Unmarshal(data, (*alias)(a))
}

// Decimal normalizes the amount into human-readable units.
func (a *wireAmount) Decimal() (decimal.Decimal, error) {
	if a.drops != "" {
		d, err := decimal.NewFromString(a.drops)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("parse native amount %q: %w", a.drops, err)
		}
		return model.FromDrops(d), nil
	}
	d, err := decimal.NewFromString(a.Value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse issued amount %q: %w", a.Value, err)
	}
	return d, nil
}

// encodeAmount renders an amount the way the ledger expects it: drop-scaled
// string for native, value triple for issued assets.
func encodeAmount(currency model.Currency, amount decimal.Decimal) interface{} {
	if currency.IsNative() {
		return amount.Mul(decimal.NewFromInt(model.DropsPerNative)).Floor().String()
	}
	return map[string]string{
		"currency": currency.Code,
		"issuer":   currency.Issuer,
		"value":    amount.String(),
	}
}
