package model

import "fmt"

// RouteType tags the venue composition behind a quote.
type RouteType string

const (
	RouteAMM           RouteType = "amm"
	RouteCLOB          RouteType = "clob"
	RouteXRPBridge     RouteType = "xrp-bridge"
	RouteHybridAMMCLOB RouteType = "hybrid-amm-clob"
	RouteHybridCLOBAMM RouteType = "hybrid-clob-amm"
	RouteAxelar        RouteType = "cross-chain-axelar"
	RouteWormhole      RouteType = "cross-chain-wormhole"
)

// Composite reports whether the route is executed as multiple legs.
func (r RouteType) Composite() bool {
	switch r {
	case RouteXRPBridge, RouteHybridAMMCLOB, RouteHybridCLOBAMM:
		return true
	}
	return false
}

// TrustTier classifies a venue type by settlement certainty. It is assigned
// by venue, not computed.
type TrustTier string

const (
	TrustHigh   TrustTier = "high"
	TrustMedium TrustTier = "medium"
	TrustLow    TrustTier = "low"
)

// GuaranteeStatus marks whether the no-worse-than-baseline guarantee was
// evaluated for a quote.
type GuaranteeStatus string

const (
	GuaranteeAvailable   GuaranteeStatus = "available"
	GuaranteeUnavailable GuaranteeStatus = "unavailable"
)

// QuoteRequest asks for the best route converting a source amount into a
// destination asset. Values are immutable once constructed.
type QuoteRequest struct {
	SourceAsset      Currency `json:"source_asset"`
	DestinationAsset Currency `json:"destination_asset"`
	Amount           string   `json:"amount"`
}

// Validate rejects malformed requests before any venue query is issued.
func (r QuoteRequest) Validate() error {
	if err := r.SourceAsset.Validate(); err != nil {
		return fmt.Errorf("source asset: %w", err)
	}
	if err := r.DestinationAsset.Validate(); err != nil {
		return fmt.Errorf("destination asset: %w", err)
	}
	if _, err := ParseAmount(r.Amount); err != nil {
		return err
	}
	return nil
}

// QuoteMetadata carries per-route detail: venue identifiers for base
// routes, the owned leg quotes for composite routes, and bridge fees for
// cross-chain routes.
type QuoteMetadata struct {
	AMMAccount       string         `json:"amm_account,omitempty"`
	TakerGets        string         `json:"taker_gets,omitempty"`
	TakerPays        string         `json:"taker_pays,omitempty"`
	Quality          string         `json:"quality,omitempty"`
	TradingFee       string         `json:"trading_fee,omitempty"`
	Leg1             *QuoteResponse `json:"leg1,omitempty"`
	Leg2             *QuoteResponse `json:"leg2,omitempty"`
	BridgeFee        string         `json:"bridge_fee,omitempty"`
	DestinationChain string         `json:"destination_chain,omitempty"`
}

// NativeComparison records how the quoted output compares against the
// ledger's own path-finder for the same request.
type NativeComparison struct {
	NativeExpectedOut  string `json:"native_expected_out"`
	OurExpectedOut     string `json:"our_expected_out"`
	ImprovementBps     string `json:"improvement_bps"`
	ImprovementPercent string `json:"improvement_percent"`
}

// Pricing is the dynamic-fee annotation attached to a winning quote.
type Pricing struct {
	GrossOut       string `json:"gross_out"`
	FeeBps         int64  `json:"fee_bps"`
	NetOut         string `json:"net_out"`
	NativeOut      string `json:"native_out,omitempty"`
	ImprovementBps string `json:"improvement_bps"`
}

// QuoteResponse is one priced route for a QuoteRequest. Composite routes own
// their leg quotes in Metadata. Scoring and the guarantee/pricing blocks are
// written per request, so a response must never be shared across requests;
// Clone gives each request its own copy.
type QuoteResponse struct {
	RouteType        RouteType         `json:"route_type"`
	ExpectedOut      string            `json:"expected_out"`
	LatencyMS        int64             `json:"latency_ms"`
	TrustTier        TrustTier         `json:"trust_tier"`
	Score            float64           `json:"score"`
	Guarantee        GuaranteeStatus   `json:"guarantee,omitempty"`
	Metadata         *QuoteMetadata    `json:"metadata,omitempty"`
	NativeComparison *NativeComparison `json:"native_comparison,omitempty"`
	Pricing          *Pricing          `json:"pricing,omitempty"`
}

// Clone deep-copies the response, including nested leg quotes and the
// comparison and pricing blocks.
func (q *QuoteResponse) Clone() *QuoteResponse {
	if q == nil {
		return nil
	}
	out := *q
	if q.Metadata != nil {
		meta := *q.Metadata
		meta.Leg1 = q.Metadata.Leg1.Clone()
		meta.Leg2 = q.Metadata.Leg2.Clone()
		out.Metadata = &meta
	}
	if q.NativeComparison != nil {
		cmp := *q.NativeComparison
		out.NativeComparison = &cmp
	}
	if q.Pricing != nil {
		pricing := *q.Pricing
		out.Pricing = &pricing
	}
	return &out
}
