// Package ledger exposes the read-only market-data surface of the ledger.
// The core consumes the interfaces; the websocket client is one
// implementation.
package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"orren/internal/model"
)

// PoolInfo describes a constant-product pool for an asset pair. Reserves are
// in human-readable units, in the order the assets were requested.
// TradingFee is in units of 1/100000 and is nil when the ledger did not
// report one.
type PoolInfo struct {
	Account    string
	ReserveA   decimal.Decimal
	ReserveB   decimal.Decimal
	TradingFee *int32
}

// TopOffer is the best resting offer on an order book, in human-readable
// units.
type TopOffer struct {
	TakerGets decimal.Decimal
	TakerPays decimal.Decimal
	Quality   string
}

// BaselineRoute is the output of the ledger's own path-finder for a request.
type BaselineRoute struct {
	Out decimal.Decimal
}

// MarketData issues read-only venue queries. Implementations return
// (nil, nil) when the venue does not exist for the pair.
type MarketData interface {
	// FetchPoolInfo returns the pool for the pair, or nil when no pool
	// exists.
	FetchPoolInfo(ctx context.Context, assetA, assetB model.Currency) (*PoolInfo, error)

	// FetchTopOffer returns the best resting offer selling takerGets for
	// takerPays, or nil when the book is empty.
	FetchTopOffer(ctx context.Context, takerGets, takerPays model.Currency) (*TopOffer, error)
}

// PathFinder queries the ledger's built-in path-finding for a baseline
// route. sendAmount is the input on the source side, destAmount the target
// on the destination side. Implementations return (nil, nil) when no path
// is available.
type PathFinder interface {
	FindBaselineRoute(ctx context.Context, src, dst model.Currency, sendAmount, destAmount decimal.Decimal, account string) (*BaselineRoute, error)
}
