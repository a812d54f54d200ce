package quote

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"orren/internal/cache"
	"orren/internal/ledger"
	"orren/internal/model"
	"orren/internal/observability"
)

// DefaultTradingFee is the pool trading fee assumed when the ledger does not
// report one, in units of 1/100000 (300 = 0.3%).
const DefaultTradingFee int32 = 300

var tradingFeeScale = decimal.NewFromInt(100_000)

// AMMQuoter prices a swap through a constant-product pool.
type AMMQuoter struct {
	market  ledger.MarketData
	cache   *cache.Cache
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewAMMQuoter builds an AMM quoter over the given market-data source.
func NewAMMQuoter(market ledger.MarketData, quoteCache *cache.Cache, metrics *observability.Metrics, logger *zap.Logger) *AMMQuoter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AMMQuoter{market: market, cache: quoteCache, metrics: metrics, logger: logger}
}

// Quote fetches pool reserves and applies the constant-product invariant:
// out = reserveOut - k/(reserveIn + in*(1-fee)). Returns (nil, nil) when no
// pool exists or either reserve is empty.
func (q *AMMQuoter) Quote(ctx context.Context, src, dst model.Currency, amount decimal.Decimal) (*model.QuoteResponse, error) {
	key := cache.Key("amm", src, dst, amount.String())
	if q.cache != nil {
		if cached := q.cache.Get(key); cached != nil {
			q.recordCache("amm", true)
			return cached, nil
		}
		q.recordCache("amm", false)
	}

	start := time.Now()
	pool, err := q.market.FetchPoolInfo(ctx, src, dst)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, nil
	}
	if pool.ReserveA.Sign() <= 0 || pool.ReserveB.Sign() <= 0 {
		q.logger.Debug("amm pool has empty reserve",
			zap.String("src", src.Key()),
			zap.String("dst", dst.Key()),
		)
		return nil, nil
	}

	feeRaw := DefaultTradingFee
	if pool.TradingFee != nil {
		feeRaw = *pool.TradingFee
	}
	feeRate := decimal.NewFromInt32(feeRaw).Div(tradingFeeScale)

	inputAfterFee := amount.Mul(decimal.NewFromInt(1).Sub(feeRate))
	k := pool.ReserveA.Mul(pool.ReserveB)
	newReserveIn := pool.ReserveA.Add(inputAfterFee)
	out := pool.ReserveB.Sub(k.Div(newReserveIn))

	resp := &model.QuoteResponse{
		RouteType:   model.RouteAMM,
		ExpectedOut: out.String(),
		LatencyMS:   time.Since(start).Milliseconds(),
		TrustTier:   model.TrustHigh,
		Metadata: &model.QuoteMetadata{
			AMMAccount: pool.Account,
			TradingFee: feeRate.Mul(decimal.NewFromInt(100)).StringFixed(4),
		},
	}
	if q.cache != nil {
		q.cache.Set(key, resp)
	}
	return resp, nil
}

func (q *AMMQuoter) recordCache(venue string, hit bool) {
	if q.metrics == nil {
		return
	}
	if hit {
		q.metrics.CacheHits.WithLabelValues(venue).Inc()
	} else {
		q.metrics.CacheMisses.WithLabelValues(venue).Inc()
	}
}
