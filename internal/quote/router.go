package quote

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"orren/internal/model"
)

// Router fans a quote request out to every applicable venue, scores the
// results, and returns them ranked best-first.
type Router struct {
	quoters []Quoter
	logger  *zap.Logger
}

// NewRouter builds a router over the given quoters. Composite quoters guard
// their own applicability (they decline requests touching the hub asset),
// so the router fans out to all of them unconditionally.
func NewRouter(logger *zap.Logger, quoters ...Quoter) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{quoters: quoters, logger: logger}
}

// AllQuotes returns every obtainable quote for the request, scored and
// sorted descending. A venue failure degrades to "no quote from this
// venue"; an empty slice means no route exists.
func (r *Router) AllQuotes(ctx context.Context, req model.QuoteRequest) ([]*model.QuoteResponse, error) {
	amount, err := model.ParseAmount(req.Amount)
	if err != nil {
		return nil, err
	}

	results := make([]*model.QuoteResponse, len(r.quoters))
	var wg sync.WaitGroup
	for i, q := range r.quoters {
		wg.Add(1)
		go func(i int, q Quoter) {
			defer wg.Done()
			quote, err := q.Quote(ctx, req.SourceAsset, req.DestinationAsset, amount)
			if err != nil {
				r.logger.Warn("venue quote failed",
					zap.String("src", req.SourceAsset.Key()),
					zap.String("dst", req.DestinationAsset.Key()),
					zap.Error(err),
				)
				return
			}
			results[i] = quote
		}(i, q)
	}
	wg.Wait()

	quotes := make([]*model.QuoteResponse, 0, len(results))
	for _, quote := range results {
		if quote == nil {
			continue
		}
		quote.Score = Score(quote)
		quotes = append(quotes, quote)
	}

	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].Score > quotes[j].Score
	})
	return quotes, nil
}

// BestQuote returns the top-ranked quote, or nil when no route exists.
func (r *Router) BestQuote(ctx context.Context, req model.QuoteRequest) (*model.QuoteResponse, error) {
	quotes, err := r.AllQuotes(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(quotes) == 0 {
		return nil, nil
	}
	return quotes[0], nil
}
