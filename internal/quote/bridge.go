package quote

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"orren/internal/model"
)

// BridgeQuoter routes through the native hub asset when neither side of the
// request is the hub. Each leg takes the better of the AMM and CLOB quotes;
// if any leg has no liquidity the whole bridge fails, never a partial
// route.
type BridgeQuoter struct {
	amm    Quoter
	clob   Quoter
	logger *zap.Logger
}

// NewBridgeQuoter builds a hub-bridge quoter over the two base quoters.
func NewBridgeQuoter(amm, clob Quoter, logger *zap.Logger) *BridgeQuoter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BridgeQuoter{amm: amm, clob: clob, logger: logger}
}

// Quote evaluates src -> hub -> dst. Returns (nil, nil) when either side is
// already the hub asset or a leg cannot be quoted. Latency is the wall time
// of the whole composite evaluation.
func (q *BridgeQuoter) Quote(ctx context.Context, src, dst model.Currency, amount decimal.Decimal) (*model.QuoteResponse, error) {
	if src.IsNative() || dst.IsNative() {
		return nil, nil
	}

	start := time.Now()
	hub := model.Native()

	leg1 := bestOfLeg(ctx, q.amm, q.clob, q.logger, src, hub, amount)
	if leg1 == nil {
		return nil, nil
	}
	leg1Out, err := outOf(leg1)
	if err != nil {
		return nil, err
	}

	leg2 := bestOfLeg(ctx, q.amm, q.clob, q.logger, hub, dst, leg1Out)
	if leg2 == nil {
		return nil, nil
	}

	return &model.QuoteResponse{
		RouteType:   model.RouteXRPBridge,
		ExpectedOut: leg2.ExpectedOut,
		LatencyMS:   time.Since(start).Milliseconds(),
		TrustTier:   model.TrustHigh,
		Metadata: &model.QuoteMetadata{
			Leg1: leg1,
			Leg2: leg2,
		},
	}, nil
}

// bestOfLeg runs both base quoters concurrently for one leg and returns the
// quote with the larger output, or nil when neither venue can serve it.
// Venue errors degrade to "no quote from this venue".
func bestOfLeg(ctx context.Context, amm, clob Quoter, logger *zap.Logger, src, dst model.Currency, amount decimal.Decimal) *model.QuoteResponse {
	type result struct {
		quote *model.QuoteResponse
		err   error
	}

	ammCh := make(chan result, 1)
	clobCh := make(chan result, 1)
	go func() {
		quote, err := amm.Quote(ctx, src, dst, amount)
		ammCh <- result{quote, err}
	}()
	go func() {
		quote, err := clob.Quote(ctx, src, dst, amount)
		clobCh <- result{quote, err}
	}()

	ammRes := <-ammCh
	clobRes := <-clobCh
	if ammRes.err != nil {
		logger.Warn("amm leg failed", zap.Error(ammRes.err))
		ammRes.quote = nil
	}
	if clobRes.err != nil {
		logger.Warn("clob leg failed", zap.Error(clobRes.err))
		clobRes.quote = nil
	}

	switch {
	case ammRes.quote == nil:
		return clobRes.quote
	case clobRes.quote == nil:
		return ammRes.quote
	}

	ammOut, err := outOf(ammRes.quote)
	if err != nil {
		return clobRes.quote
	}
	clobOut, err := outOf(clobRes.quote)
	if err != nil {
		return ammRes.quote
	}
	if ammOut.GreaterThan(clobOut) {
		return ammRes.quote
	}
	return clobRes.quote
}
