package quote

import (
	"github.com/shopspring/decimal"

	"orren/internal/model"
)

// latencyThresholdMS is the latency at which the penalty starts costing a
// full 0.2 per threshold; at 500ms and beyond the penalty floors the score
// at zero.
const latencyThresholdMS = 100

var trustWeights = map[model.TrustTier]decimal.Decimal{
	model.TrustHigh:   decimal.NewFromInt(1),
	model.TrustMedium: decimal.NewFromFloat(0.8),
	model.TrustLow:    decimal.NewFromFloat(0.5),
}

// Score ranks a quote: expected output weighted by trust tier and penalized
// linearly for latency, never below zero, truncated to six decimal digits.
func Score(q *model.QuoteResponse) float64 {
	out, err := outOf(q)
	if err != nil {
		return 0
	}

	weight, ok := trustWeights[q.TrustTier]
	if !ok {
		weight = trustWeights[model.TrustLow]
	}

	penalty := decimal.NewFromInt(1).Sub(
		decimal.NewFromInt(q.LatencyMS).
			Div(decimal.NewFromInt(latencyThresholdMS)).
			Mul(decimal.NewFromFloat(0.2)),
	)
	if penalty.Sign() < 0 {
		penalty = decimal.Zero
	}

	score, _ := out.Mul(weight).Mul(penalty).Truncate(6).Float64()
	return score
}
