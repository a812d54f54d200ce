package storage

import (
	"context"
	"time"
)

// QuoteRecord is one served quote flattened for the audit trail.
type QuoteRecord struct {
	ServedAt       time.Time `json:"served_at"`
	SourceAsset    string    `json:"source_asset"`
	DestAsset      string    `json:"dest_asset"`
	Amount         string    `json:"amount"`
	RouteType      string    `json:"route_type"`
	ExpectedOut    string    `json:"expected_out"`
	Score          float64   `json:"score"`
	LatencyMS      int64     `json:"latency_ms"`
	FeeBps         int64     `json:"fee_bps"`
	NetOut         string    `json:"net_out,omitempty"`
	NativeOut      string    `json:"native_out,omitempty"`
	ImprovementBps string    `json:"improvement_bps,omitempty"`
	GuaranteeWin   bool      `json:"guarantee_win"`
}

// AuditSink records served quotes for later analysis.
type AuditSink interface {
	PutQuoteBatch(ctx context.Context, records []QuoteRecord) error
}
