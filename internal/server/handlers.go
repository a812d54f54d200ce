package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"orren/internal/fees"
	"orren/internal/model"
	"orren/internal/storage"
	"orren/internal/txbuild"
)

const auditTimeout = 5 * time.Second

type buildTxRequest struct {
	model.QuoteRequest
	UserAddress string `json:"user_address"`
	MinOut      string `json:"min_out,omitempty"`
	SlippageBps int64  `json:"slippage_bps,omitempty"`
	Mode        string `json:"mode,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleQuote(c *gin.Context) {
	var req model.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quotes, err := s.router.AllQuotes(c.Request.Context(), req)
	if err != nil {
		s.logger.Error("quote aggregation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if len(quotes) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no routes found for the given asset pair"})
		return
	}

	s.priceQuote(c.Request.Context(), req, quotes[0])
	s.recordQuote(req, quotes[0])

	c.JSON(http.StatusOK, gin.H{"quotes": quotes})
}

func (s *Server) handleBuildTx(c *gin.Context) {
	var req buildTxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := req.QuoteRequest.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !model.ValidAddress(req.UserAddress) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_address is not a valid ledger address"})
		return
	}

	best, err := s.router.BestQuote(c.Request.Context(), req.QuoteRequest)
	if err != nil {
		s.logger.Error("quote aggregation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if best == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no route found"})
		return
	}

	feeResult := s.priceQuote(c.Request.Context(), req.QuoteRequest, best)
	s.recordQuote(req.QuoteRequest, best)

	opts := txbuild.Options{
		MinOut:      req.MinOut,
		SlippageBps: req.SlippageBps,
		Mode:        txbuild.Mode(req.Mode),
	}
	if feeResult != nil && feeResult.Gated {
		opts.Fee = &txbuild.FeeInfo{
			FeeBps: feeResult.FeeBps,
			Gross:  feeResult.Gross,
			Net:    feeResult.Net,
		}
	}

	instructions, err := s.builder.Build(best, req.QuoteRequest, req.UserAddress, opts)
	if err != nil {
		s.logger.Warn("build transaction failed", zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"quote":        best,
		"transactions": instructions,
	})
}

// priceQuote runs the baseline comparison and fee engine on the winning
// quote and attaches the pricing, comparison, and guarantee-status blocks.
// A missing or failed baseline degrades to the flat ungated fee.
func (s *Server) priceQuote(ctx context.Context, req model.QuoteRequest, best *model.QuoteResponse) *fees.Result {
	gross, err := decimal.NewFromString(best.ExpectedOut)
	if err != nil {
		s.logger.Error("unparseable expected_out on winning quote", zap.String("expected_out", best.ExpectedOut))
		return nil
	}

	var baselineOut *decimal.Decimal
	if s.comparator != nil {
		comparison, nativeOut := s.comparator.Compare(ctx, req, best)
		best.NativeComparison = comparison
		baselineOut = nativeOut
	}

	result := fees.Compute(gross, baselineOut, s.feeConfig)

	pricing := &model.Pricing{
		GrossOut:       best.ExpectedOut,
		FeeBps:         result.FeeBps,
		NetOut:         result.Net.String(),
		ImprovementBps: result.ImprovementBps.StringFixed(2),
	}
	if baselineOut != nil {
		pricing.NativeOut = baselineOut.String()
	}
	best.Pricing = pricing

	if result.Gated {
		best.Guarantee = model.GuaranteeAvailable
	} else {
		best.Guarantee = model.GuaranteeUnavailable
	}
	return &result
}

// recordQuote updates metrics and appends the audit record for a served
// quote. Both are best-effort.
func (s *Server) recordQuote(req model.QuoteRequest, best *model.QuoteResponse) {
	if s.metrics != nil {
		s.metrics.QuoteLatency.Observe(float64(best.LatencyMS))
		s.metrics.QuotesTotal.Inc()
		if best.Pricing != nil && best.Guarantee == model.GuaranteeAvailable {
			if improvement, err := decimal.NewFromString(best.Pricing.ImprovementBps); err == nil {
				s.metrics.ImprovementBps.Observe(improvement.InexactFloat64())
			}
			net, netErr := decimal.NewFromString(best.Pricing.NetOut)
			native, nativeErr := decimal.NewFromString(best.Pricing.NativeOut)
			if netErr == nil && nativeErr == nil && net.GreaterThanOrEqual(native) {
				s.metrics.NativeWins.Inc()
			}
		}
	}

	if s.audit == nil {
		return
	}
	record := storage.QuoteRecord{
		ServedAt:    time.Now().UTC(),
		SourceAsset: req.SourceAsset.Key(),
		DestAsset:   req.DestinationAsset.Key(),
		Amount:      req.Amount,
		RouteType:   string(best.RouteType),
		ExpectedOut: best.ExpectedOut,
		Score:       best.Score,
		LatencyMS:   best.LatencyMS,
	}
	if best.Pricing != nil {
		record.FeeBps = best.Pricing.FeeBps
		record.NetOut = best.Pricing.NetOut
		record.NativeOut = best.Pricing.NativeOut
		record.ImprovementBps = best.Pricing.ImprovementBps
		record.GuaranteeWin = best.Guarantee == model.GuaranteeAvailable
	}

	select {
	case s.auditCh <- record:
	default:
		s.logger.Warn("audit queue full, dropping record",
			zap.String("route_type", record.RouteType),
		)
	}
}
