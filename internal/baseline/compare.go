// Package baseline compares quoted outputs against the ledger's own
// path-finder, the independently observed route backing the fee guarantee.
package baseline

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"orren/internal/ledger"
	"orren/internal/model"
)

// DefaultAccount is used for path-finding when the caller did not supply an
// account; path-find results do not depend on the account's balances for
// the pairs quoted here.
const DefaultAccount = "rN7n7otQDd6FczFgLdlqtyMVrn3NnrcH7C"

// Comparator resolves the baseline route for a request. Any failure
// degrades to "no baseline"; it never blocks the quote.
type Comparator struct {
	finder  ledger.PathFinder
	account string
	logger  *zap.Logger
}

// NewComparator builds a comparator over the given path-finder.
func NewComparator(finder ledger.PathFinder, account string, logger *zap.Logger) *Comparator {
	if account == "" {
		account = DefaultAccount
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Comparator{finder: finder, account: account, logger: logger}
}

// Compare queries the ledger path-finder for the same request and reports
// how the quote improves on it. Returns (nil, nil) when no baseline is
// available.
func (c *Comparator) Compare(ctx context.Context, req model.QuoteRequest, quote *model.QuoteResponse) (*model.NativeComparison, *decimal.Decimal) {
	sendAmount, err := model.ParseAmount(req.Amount)
	if err != nil {
		return nil, nil
	}
	ourOut, err := decimal.NewFromString(quote.ExpectedOut)
	if err != nil {
		return nil, nil
	}

	route, err := c.finder.FindBaselineRoute(ctx, req.SourceAsset, req.DestinationAsset, sendAmount, ourOut, c.account)
	if err != nil {
		c.logger.Warn("baseline path-find failed", zap.Error(err))
		return nil, nil
	}
	if route == nil || route.Out.Sign() <= 0 {
		return nil, nil
	}

	improvementPercent := ourOut.Sub(route.Out).Div(route.Out).Mul(decimal.NewFromInt(100))
	improvementBps := improvementPercent.Mul(decimal.NewFromInt(100))

	nativeOut := route.Out
	return &model.NativeComparison{
		NativeExpectedOut:  nativeOut.String(),
		OurExpectedOut:     quote.ExpectedOut,
		ImprovementBps:     improvementBps.StringFixed(2),
		ImprovementPercent: improvementPercent.StringFixed(4),
	}, &nativeOut
}
