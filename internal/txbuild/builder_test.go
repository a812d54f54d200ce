package txbuild

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"orren/internal/model"
)

const (
	testIssuer  = "rvYAfWj5gh67oV6fW32ZzP3Aw4Eubs59B"
	testAccount = "rEhxGqkqPPSxQ3P25J66ft5TwpzV14k2de"
	testFeeAcct = "rMnvSBkX5LhzhuAZ6UrkgAiDm9UDpCrJcm"
)

func issued(code string) model.Currency {
	return model.Currency{Code: code, Issuer: testIssuer}
}

func request(src, dst model.Currency, amount string) model.QuoteRequest {
	return model.QuoteRequest{SourceAsset: src, DestinationAsset: dst, Amount: amount}
}

func ammQuote(out, poolAccount string) *model.QuoteResponse {
	q := &model.QuoteResponse{RouteType: model.RouteAMM, ExpectedOut: out}
	if poolAccount != "" {
		q.Metadata = &model.QuoteMetadata{AMMAccount: poolAccount}
	}
	return q
}

func TestBuildAMMWithSlippageFloor(t *testing.T) {
	b := NewBuilder(testFeeAcct)
	quote := ammQuote("100", "")
	req := request(issued("USD"), issued("EUR"), "50")

	instrs, err := b.Build(quote, req, testAccount, Options{SlippageBps: 50})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(instrs) != 1 {
		t.Fatalf("expected 1 instruction, got %d", len(instrs))
	}
	pay, ok := instrs[0].(Payment)
	if !ok {
		t.Fatalf("expected Payment, got %T", instrs[0])
	}
	if pay.Account != testAccount || pay.Destination != testAccount {
		t.Fatalf("unexpected accounts: %s -> %s", pay.Account, pay.Destination)
	}
	if pay.Amount.Issued == nil || pay.Amount.Issued.Value != "100" {
		t.Fatalf("amount mismatch: %+v", pay.Amount)
	}
	if pay.SendMax == nil || pay.SendMax.Issued.Value != "50" {
		t.Fatalf("send max mismatch: %+v", pay.SendMax)
	}
	if pay.DeliverMin == nil || pay.DeliverMin.Issued.Value != "99.5" {
		t.Fatalf("deliver min mismatch: %+v", pay.DeliverMin)
	}
}

func TestBuildAMMRoutesThroughPoolAccount(t *testing.T) {
	b := NewBuilder(testFeeAcct)
	pool := "rPoo1nH3qybrMBnSaN6odDfwLPPgdVDTnd"
	quote := ammQuote("100", pool)
	req := request(issued("USD"), issued("EUR"), "50")

	instrs, err := b.Build(quote, req, testAccount, Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	pay := instrs[0].(Payment)
	if pay.Destination != pool {
		t.Fatalf("expected pool destination %s, got %s", pool, pay.Destination)
	}
	if pay.DeliverMin != nil {
		t.Fatalf("no floor requested, got %+v", pay.DeliverMin)
	}
}

func TestBuildNativeSendMaxInDrops(t *testing.T) {
	b := NewBuilder(testFeeAcct)
	quote := ammQuote("25", "")
	req := request(model.Native(), issued("USD"), "10")

	instrs, err := b.Build(quote, req, testAccount, Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	pay := instrs[0].(Payment)
	if pay.SendMax == nil || pay.SendMax.Drops != "10000000" {
		t.Fatalf("expected drop-scaled send max, got %+v", pay.SendMax)
	}
	if pay.Amount.Issued == nil || pay.Amount.Issued.Currency != "USD" {
		t.Fatalf("amount mismatch: %+v", pay.Amount)
	}
}

func TestBuildExactOut(t *testing.T) {
	b := NewBuilder(testFeeAcct)
	quote := ammQuote("100", "")
	req := request(issued("USD"), issued("EUR"), "50")

	instrs, err := b.Build(quote, req, testAccount, Options{Mode: ModeExactOut})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	pay := instrs[0].(Payment)
	if pay.Flags&tfPartialPayment == 0 {
		t.Fatal("exact-out payment must allow partial delivery")
	}
	if pay.SendMax == nil || pay.SendMax.Issued.Value != "51" {
		t.Fatalf("expected buffered send max 51, got %+v", pay.SendMax)
	}
	if pay.DeliverMin == nil || pay.DeliverMin.Issued.Value != "100" {
		t.Fatalf("exact-out floor must be the target, got %+v", pay.DeliverMin)
	}
}

func TestBuildCLOBFillOrKill(t *testing.T) {
	b := NewBuilder(testFeeAcct)
	quote := &model.QuoteResponse{RouteType: model.RouteCLOB, ExpectedOut: "20"}
	req := request(issued("USD"), issued("EUR"), "10")

	instrs, err := b.Build(quote, req, testAccount, Options{MinOut: "19.9"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	offer, ok := instrs[0].(OfferCreate)
	if !ok {
		t.Fatalf("expected OfferCreate, got %T", instrs[0])
	}
	if offer.Flags&tfFillOrKill == 0 {
		t.Fatal("expected fill-or-kill flag with a receive constraint")
	}
	if offer.TakerGets.Issued.Value != "20" || offer.TakerPays.Issued.Value != "10" {
		t.Fatalf("offer sides mismatch: gets %+v pays %+v", offer.TakerGets, offer.TakerPays)
	}

	instrs, err = b.Build(quote, req, testAccount, Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if instrs[0].(OfferCreate).Flags&tfFillOrKill != 0 {
		t.Fatal("unconstrained offer must not be fill-or-kill")
	}
}

func TestBuildMissingIssuer(t *testing.T) {
	b := NewBuilder(testFeeAcct)
	quote := ammQuote("100", "")
	req := request(issued("USD"), model.Currency{Code: "EUR"}, "50")

	_, err := b.Build(quote, req, testAccount, Options{})
	if err == nil || !strings.Contains(err.Error(), "issuer") {
		t.Fatalf("expected issuer error, got %v", err)
	}
}

func TestBuildNonExecutableRoute(t *testing.T) {
	b := NewBuilder(testFeeAcct)
	quote := &model.QuoteResponse{RouteType: model.RouteAxelar, ExpectedOut: "100"}
	req := request(issued("USD"), issued("EUR"), "50")

	if _, err := b.Build(quote, req, testAccount, Options{}); err == nil {
		t.Fatal("expected error for non-ledger route")
	}
}

func TestBuildCompositeWithFee(t *testing.T) {
	b := NewBuilder(testFeeAcct)
	quote := &model.QuoteResponse{
		RouteType:   model.RouteXRPBridge,
		ExpectedOut: "80",
		Metadata: &model.QuoteMetadata{
			Leg1: &model.QuoteResponse{RouteType: model.RouteCLOB, ExpectedOut: "40"},
			Leg2: &model.QuoteResponse{RouteType: model.RouteAMM, ExpectedOut: "80"},
		},
	}
	req := request(issued("USD"), issued("EUR"), "50")
	fee := &FeeInfo{FeeBps: 5, Gross: decimal.RequireFromString("80"), Net: decimal.RequireFromString("79.96")}

	instrs, err := b.Build(quote, req, testAccount, Options{Fee: fee})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(instrs) != 3 {
		t.Fatalf("expected leg1, leg2 and fee payment, got %d instructions", len(instrs))
	}

	leg1, ok := instrs[0].(OfferCreate)
	if !ok {
		t.Fatalf("leg1 should be an offer, got %T", instrs[0])
	}
	if leg1.TakerPays.Issued == nil || leg1.TakerPays.Issued.Currency != "USD" {
		t.Fatalf("leg1 pays mismatch: %+v", leg1.TakerPays)
	}
	if leg1.TakerGets.Drops != "40000000" {
		t.Fatalf("leg1 must receive the hub asset in drops, got %+v", leg1.TakerGets)
	}

	leg2, ok := instrs[1].(Payment)
	if !ok {
		t.Fatalf("leg2 should be a payment, got %T", instrs[1])
	}
	if leg2.SendMax == nil || leg2.SendMax.Drops != "40000000" {
		t.Fatalf("leg2 must spend leg1 output, got %+v", leg2.SendMax)
	}
	// Fee info backs leg2's receive floor.
	if leg2.DeliverMin == nil || leg2.DeliverMin.Issued.Value != "79.96" {
		t.Fatalf("leg2 floor mismatch: %+v", leg2.DeliverMin)
	}

	feePay, ok := instrs[2].(Payment)
	if !ok {
		t.Fatalf("trailing instruction should be the fee payment, got %T", instrs[2])
	}
	if feePay.Destination != testFeeAcct {
		t.Fatalf("fee must go to the collection account, got %s", feePay.Destination)
	}
	if feePay.Amount.Issued == nil || feePay.Amount.Issued.Value != "0.04" {
		t.Fatalf("fee amount mismatch: %+v", feePay.Amount)
	}
}

func TestBuildZeroFeeOmitsFeePayment(t *testing.T) {
	b := NewBuilder(testFeeAcct)
	quote := ammQuote("100", "")
	req := request(issued("USD"), issued("EUR"), "50")
	fee := &FeeInfo{FeeBps: 0, Gross: decimal.RequireFromString("100"), Net: decimal.RequireFromString("100")}

	instrs, err := b.Build(quote, req, testAccount, Options{Fee: fee})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(instrs) != 1 {
		t.Fatalf("waived fee must not add an instruction, got %d", len(instrs))
	}
}
