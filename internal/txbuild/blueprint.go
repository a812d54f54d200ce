// Package txbuild turns a winning quote into the unsigned ledger
// instructions that execute it. Instruction ordering in the returned
// sequence is the intended execution order; each instruction is dispatched
// independently by the caller and nothing here guarantees atomicity across
// them.
package txbuild

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"orren/internal/model"
)

// Ledger transaction flags.
const (
	tfFillOrKill     uint32 = 0x00000004
	tfPartialPayment uint32 = 0x00020000
)

// IssuedAmount is the value triple serialization of an issued-asset amount.
type IssuedAmount struct {
	Currency string `json:"currency"`
	Issuer   string `json:"issuer"`
	Value    string `json:"value"`
}

// Amount is a ledger amount: a drop-scaled string for the native asset, or
// an issued-asset triple.
type Amount struct {
	Drops  string
	Issued *IssuedAmount
}

// MarshalJSON renders the amount in ledger wire form.
func (a Amount) MarshalJSON() ([]byte, error) {
	if a.Issued != nil {
		return json.Marshal(a.Issued)
	}
	return json.Marshal(a.Drops)
}

// formatAmount serializes an amount for the given currency. Native amounts
// are floored to whole drops; an issued currency without an issuer is a
// build-time error.
func formatAmount(currency model.Currency, amount decimal.Decimal) (Amount, error) {
	if currency.IsNative() {
		return Amount{Drops: model.ToDrops(amount)}, nil
	}
	if currency.Issuer == "" {
		return Amount{}, fmt.Errorf("issued currency %s requires an issuer", currency.Code)
	}
	return Amount{Issued: &IssuedAmount{
		Currency: currency.Code,
		Issuer:   currency.Issuer,
		Value:    amount.String(),
	}}, nil
}

// Instruction is one unsigned ledger instruction: a Payment or an
// OfferCreate. The set is closed.
type Instruction interface {
	instruction()
}

// Payment moves an amount to a destination account, optionally bounded by a
// send ceiling and a minimum-receive floor.
type Payment struct {
	TransactionType string  `json:"TransactionType"`
	Account         string  `json:"Account"`
	Destination     string  `json:"Destination"`
	Amount          Amount  `json:"Amount"`
	SendMax         *Amount `json:"SendMax,omitempty"`
	DeliverMin      *Amount `json:"DeliverMin,omitempty"`
	Flags           uint32  `json:"Flags,omitempty"`
}

func (Payment) instruction() {}

// OfferCreate places an offer exchanging TakerPays for TakerGets.
type OfferCreate struct {
	TransactionType string `json:"TransactionType"`
	Account         string `json:"Account"`
	TakerGets       Amount `json:"TakerGets"`
	TakerPays       Amount `json:"TakerPays"`
	Flags           uint32 `json:"Flags,omitempty"`
}

func (OfferCreate) instruction() {}
