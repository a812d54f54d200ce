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

// CLOBQuoter prices a swap against the top of the order book. It reads only
// the single best resting offer and projects its rate linearly over the
// requested size; accuracy degrades for orders larger than that offer,
// which is why the route carries a medium trust tier.
type CLOBQuoter struct {
	market  ledger.MarketData
	cache   *cache.Cache
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewCLOBQuoter builds an order-book quoter over the given market-data
// source.
func NewCLOBQuoter(market ledger.MarketData, quoteCache *cache.Cache, metrics *observability.Metrics, logger *zap.Logger) *CLOBQuoter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CLOBQuoter{market: market, cache: quoteCache, metrics: metrics, logger: logger}
}

// Quote fetches the top offer for the pair and projects amount through its
// effective rate. Returns (nil, nil) when no offers exist.
func (q *CLOBQuoter) Quote(ctx context.Context, src, dst model.Currency, amount decimal.Decimal) (*model.QuoteResponse, error) {
	key := cache.Key("clob", src, dst, amount.String())
	if q.cache != nil {
		if cached := q.cache.Get(key); cached != nil {
			q.recordCache(true)
			return cached, nil
		}
		q.recordCache(false)
	}

	start := time.Now()
	offer, err := q.market.FetchTopOffer(ctx, dst, src)
	if err != nil {
		return nil, err
	}
	if offer == nil {
		return nil, nil
	}
	if offer.TakerPays.Sign() <= 0 {
		q.logger.Debug("top offer has empty taker_pays",
			zap.String("src", src.Key()),
			zap.String("dst", dst.Key()),
		)
		return nil, nil
	}

	rate := offer.TakerGets.Div(offer.TakerPays)
	out := amount.Mul(rate)

	resp := &model.QuoteResponse{
		RouteType:   model.RouteCLOB,
		ExpectedOut: out.String(),
		LatencyMS:   time.Since(start).Milliseconds(),
		TrustTier:   model.TrustMedium,
		Metadata: &model.QuoteMetadata{
			TakerGets: offer.TakerGets.String(),
			TakerPays: offer.TakerPays.String(),
			Quality:   offer.Quality,
		},
	}
	if q.cache != nil {
		q.cache.Set(key, resp)
	}
	return resp, nil
}

func (q *CLOBQuoter) recordCache(hit bool) {
	if q.metrics == nil {
		return
	}
	if hit {
		q.metrics.CacheHits.WithLabelValues("clob").Inc()
	} else {
		q.metrics.CacheMisses.WithLabelValues("clob").Inc()
	}
}
