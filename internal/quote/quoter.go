// Package quote implements the per-venue quoters, the composite
// bridge/hybrid routers, scoring, and the aggregating router.
package quote

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"orren/internal/model"
)

// Quoter produces a quote for converting amount of src into dst. A venue
// with no usable liquidity returns (nil, nil); transport failures return an
// error. Callers treat both as "no quote from this venue".
type Quoter interface {
	Quote(ctx context.Context, src, dst model.Currency, amount decimal.Decimal) (*model.QuoteResponse, error)
}

// outOf parses a quote's expected output back into a decimal.
func outOf(q *model.QuoteResponse) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(q.ExpectedOut)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse expected_out %q: %w", q.ExpectedOut, err)
	}
	return d, nil
}
