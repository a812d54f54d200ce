package quote

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"orren/internal/model"
)

const (
	// AxelarFeeBps is the flat bridge fee applied by the Axelar route.
	AxelarFeeBps int64 = 10
	// WormholeFeeBps is the flat bridge fee applied by the Wormhole route.
	WormholeFeeBps int64 = 12

	// DefaultDestinationChain is assumed when no target chain was
	// configured.
	DefaultDestinationChain = "ethereum"
)

// ExternalBridgeQuoter prices a transfer through an external cross-chain
// bridge as a flat basis-point fee on the input amount. These routes do not
// touch the ledger's venues and carry a medium trust tier.
type ExternalBridgeQuoter struct {
	route            model.RouteType
	feeBps           decimal.Decimal
	destinationChain string
}

// NewAxelarQuoter builds the Axelar bridge quoter.
func NewAxelarQuoter(destinationChain string) *ExternalBridgeQuoter {
	return newExternalQuoter(model.RouteAxelar, AxelarFeeBps, destinationChain)
}

// NewWormholeQuoter builds the Wormhole bridge quoter.
func NewWormholeQuoter(destinationChain string) *ExternalBridgeQuoter {
	return newExternalQuoter(model.RouteWormhole, WormholeFeeBps, destinationChain)
}

func newExternalQuoter(route model.RouteType, feeBps int64, destinationChain string) *ExternalBridgeQuoter {
	if destinationChain == "" {
		destinationChain = DefaultDestinationChain
	}
	return &ExternalBridgeQuoter{
		route:            route,
		feeBps:           decimal.NewFromInt(feeBps),
		destinationChain: destinationChain,
	}
}

// Quote deducts the flat bridge fee from the input amount.
func (q *ExternalBridgeQuoter) Quote(_ context.Context, _, _ model.Currency, amount decimal.Decimal) (*model.QuoteResponse, error) {
	start := time.Now()

	fee := amount.Mul(q.feeBps).Div(decimal.NewFromInt(10_000))
	out := amount.Sub(fee)

	return &model.QuoteResponse{
		RouteType:   q.route,
		ExpectedOut: out.String(),
		LatencyMS:   time.Since(start).Milliseconds(),
		TrustTier:   model.TrustMedium,
		Metadata: &model.QuoteMetadata{
			BridgeFee:        fee.String(),
			DestinationChain: q.destinationChain,
		},
	}, nil
}
