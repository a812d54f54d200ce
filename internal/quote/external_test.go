package quote

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"orren/internal/model"
)

func TestExternalBridgeFlatFee(t *testing.T) {
	cases := []struct {
		name    string
		quoter  *ExternalBridgeQuoter
		route   model.RouteType
		wantOut string
		wantFee string
	}{
		{"axelar", NewAxelarQuoter(""), model.RouteAxelar, "999", "1"},
		{"wormhole", NewWormholeQuoter(""), model.RouteWormhole, "998.8", "1.2"},
	}

	for _, tc := range cases {
		q, err := tc.quoter.Quote(context.Background(), usd, eur, decimal.NewFromInt(1000))
		if err != nil {
			t.Fatalf("%s: quote: %v", tc.name, err)
		}
		if q.RouteType != tc.route {
			t.Fatalf("%s: route mismatch: %s", tc.name, q.RouteType)
		}
		if q.ExpectedOut != tc.wantOut {
			t.Fatalf("%s: out mismatch: %s != %s", tc.name, q.ExpectedOut, tc.wantOut)
		}
		if q.TrustTier != model.TrustMedium {
			t.Fatalf("%s: trust tier mismatch: %s", tc.name, q.TrustTier)
		}
		if q.Metadata == nil || q.Metadata.BridgeFee != tc.wantFee {
			t.Fatalf("%s: bridge fee mismatch: %+v", tc.name, q.Metadata)
		}
		if q.Metadata.DestinationChain != DefaultDestinationChain {
			t.Fatalf("%s: chain mismatch: %s", tc.name, q.Metadata.DestinationChain)
		}
	}
}

func TestExternalBridgeDestinationChain(t *testing.T) {
	q, err := NewAxelarQuoter("avalanche").Quote(context.Background(), usd, eur, decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if q.Metadata.DestinationChain != "avalanche" {
		t.Fatalf("chain mismatch: %s", q.Metadata.DestinationChain)
	}
}
