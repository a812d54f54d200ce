package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"orren/internal/baseline"
	"orren/internal/cache"
	"orren/internal/fees"
	"orren/internal/ledger"
	"orren/internal/model"
	"orren/internal/quote"
	"orren/internal/storage"
	"orren/internal/txbuild"
)

const (
	testIssuer  = "rvYAfWj5gh67oV6fW32ZzP3Aw4Eubs59B"
	testAddress = "rEhxGqkqPPSxQ3P25J66ft5TwpzV14k2de"
	testFeeAcct = "rMnvSBkX5LhzhuAZ6UrkgAiDm9UDpCrJcm"
)

type quoterFunc func(ctx context.Context, src, dst model.Currency, amount decimal.Decimal) (*model.QuoteResponse, error)

func (f quoterFunc) Quote(ctx context.Context, src, dst model.Currency, amount decimal.Decimal) (*model.QuoteResponse, error) {
	return f(ctx, src, dst, amount)
}

func fixedQuoter(route model.RouteType, out string) quote.Quoter {
	return quoterFunc(func(context.Context, model.Currency, model.Currency, decimal.Decimal) (*model.QuoteResponse, error) {
		return &model.QuoteResponse{
			RouteType:   route,
			ExpectedOut: out,
			TrustTier:   model.TrustHigh,
		}, nil
	})
}

func emptyQuoter() quote.Quoter {
	return quoterFunc(func(context.Context, model.Currency, model.Currency, decimal.Decimal) (*model.QuoteResponse, error) {
		return nil, nil
	})
}

type finderFunc func(ctx context.Context, src, dst model.Currency, sendAmount, destAmount decimal.Decimal, account string) (*ledger.BaselineRoute, error)

func (f finderFunc) FindBaselineRoute(ctx context.Context, src, dst model.Currency, sendAmount, destAmount decimal.Decimal, account string) (*ledger.BaselineRoute, error) {
	return f(ctx, src, dst, sendAmount, destAmount, account)
}

func fixedFinder(out string) ledger.PathFinder {
	return finderFunc(func(context.Context, model.Currency, model.Currency, decimal.Decimal, decimal.Decimal, string) (*ledger.BaselineRoute, error) {
		return &ledger.BaselineRoute{Out: decimal.RequireFromString(out)}, nil
	})
}

func newTestServer(comparator *baseline.Comparator, quoters ...quote.Quoter) *Server {
	return newTestServerWithAudit(comparator, nil, quoters...)
}

func newTestServerWithAudit(comparator *baseline.Comparator, audit storage.AuditSink, quoters ...quote.Quoter) *Server {
	router := quote.NewRouter(nil, quoters...)
	builder := txbuild.NewBuilder(testFeeAcct)
	return New(router, builder, comparator, audit, nil, fees.DefaultConfig(), nil)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func quoteBody() map[string]any {
	return map[string]any{
		"source_asset":      map[string]string{"currency": "USD", "issuer": testIssuer},
		"destination_asset": map[string]string{"currency": "EUR", "issuer": testIssuer},
		"amount":            "50",
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(nil, fixedQuoter(model.RouteAMM, "100"))
	rec := doJSON(t, s, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected health body: %v", body)
	}
}

func TestQuoteUngatedWithoutComparator(t *testing.T) {
	s := newTestServer(nil, fixedQuoter(model.RouteAMM, "100"))
	rec := doJSON(t, s, http.MethodPost, "/quote", quoteBody())
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Quotes []model.QuoteResponse `json:"quotes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Quotes) != 1 {
		t.Fatalf("expected 1 quote, got %d", len(body.Quotes))
	}

	best := body.Quotes[0]
	if best.Guarantee != model.GuaranteeUnavailable {
		t.Fatalf("expected ungated quote, got %s", best.Guarantee)
	}
	if best.Pricing == nil {
		t.Fatal("winning quote must carry pricing")
	}
	if best.Pricing.FeeBps != 1 {
		t.Fatalf("expected flat minimum fee, got %d", best.Pricing.FeeBps)
	}
	if best.Pricing.NetOut != "99.99" {
		t.Fatalf("net mismatch: %s", best.Pricing.NetOut)
	}
	if best.NativeComparison != nil {
		t.Fatal("no comparator, no comparison")
	}
}

func TestQuoteGatedWithComparator(t *testing.T) {
	comparator := baseline.NewComparator(fixedFinder("100"), "", nil)
	s := newTestServer(comparator, fixedQuoter(model.RouteAMM, "105"))

	rec := doJSON(t, s, http.MethodPost, "/quote", quoteBody())
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Quotes []model.QuoteResponse `json:"quotes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	best := body.Quotes[0]
	if best.Guarantee != model.GuaranteeAvailable {
		t.Fatalf("expected gated quote, got %s", best.Guarantee)
	}
	if best.NativeComparison == nil || best.NativeComparison.ImprovementBps != "500.00" {
		t.Fatalf("comparison mismatch: %+v", best.NativeComparison)
	}
	if best.Pricing == nil || best.Pricing.FeeBps != 5 {
		t.Fatalf("pricing mismatch: %+v", best.Pricing)
	}
	if best.Pricing.NativeOut != "100" {
		t.Fatalf("native out mismatch: %s", best.Pricing.NativeOut)
	}
	net := decimal.RequireFromString(best.Pricing.NetOut)
	if net.LessThan(decimal.RequireFromString("100")) {
		t.Fatalf("guarantee violated: net %s", best.Pricing.NetOut)
	}
}

func TestQuoteRanksMultipleVenues(t *testing.T) {
	s := newTestServer(nil,
		fixedQuoter(model.RouteCLOB, "90"),
		fixedQuoter(model.RouteAMM, "110"),
	)
	rec := doJSON(t, s, http.MethodPost, "/quote", quoteBody())
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var body struct {
		Quotes []model.QuoteResponse `json:"quotes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Quotes) != 2 || body.Quotes[0].RouteType != model.RouteAMM {
		t.Fatalf("unexpected ranking: %+v", body.Quotes)
	}
	if body.Quotes[1].Pricing != nil {
		t.Fatal("only the winner is priced")
	}
}

type stubMarket struct {
	pool *ledger.PoolInfo
}

func (s *stubMarket) FetchPoolInfo(context.Context, model.Currency, model.Currency) (*ledger.PoolInfo, error) {
	return s.pool, nil
}

func (s *stubMarket) FetchTopOffer(context.Context, model.Currency, model.Currency) (*ledger.TopOffer, error) {
	return nil, nil
}

// A quote served from the cache must not retain the pricing and guarantee
// blocks attached when it won an earlier request.
func TestQuoteCachedNonWinnerCarriesNoPricing(t *testing.T) {
	market := &stubMarket{pool: &ledger.PoolInfo{
		ReserveA: decimal.NewFromInt(1000),
		ReserveB: decimal.NewFromInt(2000),
	}}
	amm := quote.NewAMMQuoter(market, cache.New(10, time.Minute), nil, nil)

	// The book venue loses the first request and wins the second.
	var calls int32
	book := quoterFunc(func(context.Context, model.Currency, model.Currency, decimal.Decimal) (*model.QuoteResponse, error) {
		out := "1"
		if atomic.AddInt32(&calls, 1) > 1 {
			out = "100"
		}
		return &model.QuoteResponse{
			RouteType:   model.RouteCLOB,
			ExpectedOut: out,
			TrustTier:   model.TrustHigh,
		}, nil
	})
	s := newTestServer(nil, amm, book)

	rec := doJSON(t, s, http.MethodPost, "/quote", quoteBody())
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: status %d", rec.Code)
	}
	var first struct {
		Quotes []model.QuoteResponse `json:"quotes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.Quotes[0].RouteType != model.RouteAMM || first.Quotes[0].Pricing == nil {
		t.Fatalf("first request should price the amm winner: %+v", first.Quotes[0])
	}

	rec = doJSON(t, s, http.MethodPost, "/quote", quoteBody())
	if rec.Code != http.StatusOK {
		t.Fatalf("second request: status %d", rec.Code)
	}
	var second struct {
		Quotes []model.QuoteResponse `json:"quotes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(second.Quotes) != 2 || second.Quotes[0].RouteType != model.RouteCLOB {
		t.Fatalf("second request should be won by the book venue: %+v", second.Quotes)
	}
	loser := second.Quotes[1]
	if loser.RouteType != model.RouteAMM {
		t.Fatalf("expected the cached amm quote in second place, got %s", loser.RouteType)
	}
	if loser.Pricing != nil || loser.Guarantee != "" || loser.NativeComparison != nil {
		t.Fatalf("cached non-winner served with stale pricing: %+v", loser)
	}
}

func TestQuoteNoRoutes(t *testing.T) {
	s := newTestServer(nil, emptyQuoter())
	rec := doJSON(t, s, http.MethodPost, "/quote", quoteBody())
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestQuoteRejectsInvalidRequest(t *testing.T) {
	s := newTestServer(nil, fixedQuoter(model.RouteAMM, "100"))

	body := quoteBody()
	body["amount"] = "-5"
	if rec := doJSON(t, s, http.MethodPost, "/quote", body); rec.Code != http.StatusBadRequest {
		t.Fatalf("negative amount: expected 400, got %d", rec.Code)
	}

	body = quoteBody()
	body["source_asset"] = map[string]string{"currency": "USD"}
	if rec := doJSON(t, s, http.MethodPost, "/quote", body); rec.Code != http.StatusBadRequest {
		t.Fatalf("issuerless asset: expected 400, got %d", rec.Code)
	}
}

func TestBuildTx(t *testing.T) {
	s := newTestServer(nil, fixedQuoter(model.RouteAMM, "100"))

	body := quoteBody()
	body["user_address"] = testAddress
	body["slippage_bps"] = 50
	rec := doJSON(t, s, http.MethodPost, "/build-tx", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Quote        model.QuoteResponse `json:"quote"`
		Transactions []json.RawMessage   `json:"transactions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(resp.Transactions))
	}

	var tx struct {
		TransactionType string `json:"TransactionType"`
		Account         string `json:"Account"`
		DeliverMin      struct {
			Value string `json:"value"`
		} `json:"DeliverMin"`
	}
	if err := json.Unmarshal(resp.Transactions[0], &tx); err != nil {
		t.Fatalf("decode tx: %v", err)
	}
	if tx.TransactionType != "Payment" || tx.Account != testAddress {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
	if tx.DeliverMin.Value != "99.5" {
		t.Fatalf("slippage floor mismatch: %s", tx.DeliverMin.Value)
	}
}

type collectingSink struct {
	mu      sync.Mutex
	records []storage.QuoteRecord
}

func (s *collectingSink) PutQuoteBatch(_ context.Context, records []storage.QuoteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	return nil
}

func (s *collectingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func TestQuoteAuditedThroughQueue(t *testing.T) {
	sink := &collectingSink{}
	s := newTestServerWithAudit(nil, sink, fixedQuoter(model.RouteAMM, "100"))

	for i := 0; i < 3; i++ {
		if rec := doJSON(t, s, http.MethodPost, "/quote", quoteBody()); rec.Code != http.StatusOK {
			t.Fatalf("status %d", rec.Code)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for sink.count() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("audit records not written, got %d", sink.count())
		}
		time.Sleep(10 * time.Millisecond)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	for _, record := range sink.records {
		if record.RouteType != string(model.RouteAMM) || record.ExpectedOut != "100" {
			t.Fatalf("unexpected audit record: %+v", record)
		}
		if record.FeeBps != 1 {
			t.Fatalf("winner pricing missing from audit record: %+v", record)
		}
	}
}

func TestBuildTxRejectsBadAddress(t *testing.T) {
	s := newTestServer(nil, fixedQuoter(model.RouteAMM, "100"))
	body := quoteBody()
	body["user_address"] = "not-an-address"
	if rec := doJSON(t, s, http.MethodPost, "/build-tx", body); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestBuildTxNonExecutableRoute(t *testing.T) {
	s := newTestServer(nil, fixedQuoter(model.RouteAxelar, "100"))
	body := quoteBody()
	body["user_address"] = testAddress
	if rec := doJSON(t, s, http.MethodPost, "/build-tx", body); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}
