// Package fees implements the dynamic routing fee with the
// no-worse-than-baseline guarantee.
//
// Two fee formulas exist for this engine's lineage; this package implements
// the complete one: after the alpha-scaled fee is applied, a failing
// guarantee first reduces the fee to the largest value that still satisfies
// net >= baseline, and only when the gross output itself is below the
// baseline does the fee drop to zero. A route is never charged a fee it
// cannot make competitive.
package fees

import (
	"github.com/shopspring/decimal"
)

var (
	one         = decimal.NewFromInt(1)
	tenThousand = decimal.NewFromInt(10_000)
)

// Config bounds the dynamic fee. Alpha is the fraction of the improvement
// captured as fee; MinBps and CapBps clamp the result.
type Config struct {
	Alpha  float64
	MinBps int64
	CapBps int64
}

// DefaultConfig returns the production defaults: half the improvement,
// clamped to [1, 5] basis points.
func DefaultConfig() Config {
	return Config{Alpha: 0.5, MinBps: 1, CapBps: 5}
}

// Result is the outcome of one fee computation. Gated reports whether the
// baseline guarantee was evaluated; when false the fee is the flat minimum
// and no guarantee is claimed.
type Result struct {
	FeeBps         int64
	Gross          decimal.Decimal
	Net            decimal.Decimal
	ImprovementBps decimal.Decimal
	Gated          bool
}

// Compute derives the fee for a gross output against an optional baseline.
// baseline is nil (or non-positive) when the external path-finder had no
// route; the engine then falls back to a flat clamped fee and marks the
// result ungated.
func Compute(gross decimal.Decimal, baseline *decimal.Decimal, cfg Config) Result {
	if baseline == nil || baseline.Sign() <= 0 {
		feeBps := clamp(cfg.MinBps, 0, cfg.CapBps)
		return Result{
			FeeBps: feeBps,
			Gross:  gross,
			Net:    applyFee(gross, feeBps),
			Gated:  false,
		}
	}

	improvement := gross.Div(*baseline).Sub(one).Mul(tenThousand)
	if improvement.Sign() < 0 {
		improvement = decimal.Zero
	}

	feeBps := clamp(improvement.Mul(decimal.NewFromFloat(cfg.Alpha)).Floor().IntPart(), cfg.MinBps, cfg.CapBps)
	net := applyFee(gross, feeBps)

	if net.LessThan(*baseline) {
		// Reduce to the largest fee that still honors the guarantee.
		needed := one.Sub(baseline.Div(gross)).Mul(tenThousand).Ceil().IntPart()
		if needed < feeBps {
			feeBps = needed
		}
		feeBps = clamp(feeBps, 0, cfg.CapBps)
		net = applyFee(gross, feeBps)
	}

	if net.LessThan(*baseline) {
		// Gross itself is below the baseline: charge nothing.
		feeBps = 0
		net = gross
	}

	return Result{
		FeeBps:         feeBps,
		Gross:          gross,
		Net:            net,
		ImprovementBps: improvement,
		Gated:          true,
	}
}

func applyFee(gross decimal.Decimal, feeBps int64) decimal.Decimal {
	return gross.Mul(one.Sub(decimal.NewFromInt(feeBps).Div(tenThousand)))
}

func clamp(v, min, max int64) int64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
