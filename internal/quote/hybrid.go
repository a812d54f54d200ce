package quote

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"orren/internal/model"
)

// HybridQuoter evaluates the two fixed venue orderings through the hub
// asset (AMM then CLOB, and CLOB then AMM) in parallel and keeps whichever
// yields the larger final output. Ties favor the AMM-first strategy.
type HybridQuoter struct {
	amm    Quoter
	clob   Quoter
	logger *zap.Logger
}

// NewHybridQuoter builds a hybrid quoter over the two base quoters.
func NewHybridQuoter(amm, clob Quoter, logger *zap.Logger) *HybridQuoter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HybridQuoter{amm: amm, clob: clob, logger: logger}
}

// Quote evaluates both orderings concurrently. Returns (nil, nil) when
// either side is the hub asset or neither strategy completes. The reported
// latency is the wall time of the whole evaluation, not the sum of leg
// latencies.
func (q *HybridQuoter) Quote(ctx context.Context, src, dst model.Currency, amount decimal.Decimal) (*model.QuoteResponse, error) {
	if src.IsNative() || dst.IsNative() {
		return nil, nil
	}

	start := time.Now()

	ammFirstCh := make(chan *model.QuoteResponse, 1)
	clobFirstCh := make(chan *model.QuoteResponse, 1)
	go func() { ammFirstCh <- q.strategy(ctx, model.RouteHybridAMMCLOB, q.amm, q.clob, src, dst, amount) }()
	go func() { clobFirstCh <- q.strategy(ctx, model.RouteHybridCLOBAMM, q.clob, q.amm, src, dst, amount) }()

	ammFirst := <-ammFirstCh
	clobFirst := <-clobFirstCh
	latency := time.Since(start).Milliseconds()

	best := pickHybrid(ammFirst, clobFirst)
	if best == nil {
		return nil, nil
	}
	best.LatencyMS = latency
	return best, nil
}

// strategy quotes the two legs in order: first src -> hub, then hub -> dst
// with the first leg's output. The second query is strictly sequenced after
// the first because it depends on its output.
func (q *HybridQuoter) strategy(ctx context.Context, route model.RouteType, first, second Quoter, src, dst model.Currency, amount decimal.Decimal) *model.QuoteResponse {
	hub := model.Native()

	leg1, err := first.Quote(ctx, src, hub, amount)
	if err != nil {
		q.logger.Warn("hybrid leg1 failed", zap.String("route", string(route)), zap.Error(err))
		return nil
	}
	if leg1 == nil {
		return nil
	}
	leg1Out, err := outOf(leg1)
	if err != nil {
		return nil
	}

	leg2, err := second.Quote(ctx, hub, dst, leg1Out)
	if err != nil {
		q.logger.Warn("hybrid leg2 failed", zap.String("route", string(route)), zap.Error(err))
		return nil
	}
	if leg2 == nil {
		return nil
	}

	return &model.QuoteResponse{
		RouteType:   route,
		ExpectedOut: leg2.ExpectedOut,
		TrustTier:   model.TrustHigh,
		Metadata: &model.QuoteMetadata{
			Leg1: leg1,
			Leg2: leg2,
		},
	}
}

func pickHybrid(ammFirst, clobFirst *model.QuoteResponse) *model.QuoteResponse {
	switch {
	case ammFirst == nil:
		return clobFirst
	case clobFirst == nil:
		return ammFirst
	}

	ammOut, err := outOf(ammFirst)
	if err != nil {
		return clobFirst
	}
	clobOut, err := outOf(clobFirst)
	if err != nil {
		return ammFirst
	}
	if ammOut.GreaterThanOrEqual(clobOut) {
		return ammFirst
	}
	return clobFirst
}
