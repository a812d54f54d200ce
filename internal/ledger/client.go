package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"orren/internal/model"
)

const bookDepthLimit = 10

// Client speaks the ledger's websocket JSON-RPC protocol. Requests are
// serialized over a single connection; the connection is dialed lazily and
// re-dialed after failures.
type Client struct {
	url    string
	logger *zap.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	nextID int64
}

var _ MarketData = (*Client)(nil)
var _ PathFinder = (*Client)(nil)

// NewClient builds a client for the given websocket URL. No connection is
// made until the first request.
func NewClient(url string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{url: url, logger: logger}
}

// Close tears down the underlying connection, if any.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close(websocket.StatusNormalClosure, "client closed")
		c.conn = nil
	}
}

type rpcEnvelope struct {
	ID           int64           `json:"id"`
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message"`
	Error        string          `json:"error"`
	Result       json.RawMessage `json:"result"`
}

// request sends one command and waits for its response. The mutex keeps the
// request/response exchange strictly ordered on the shared connection.
func (c *Client) request(ctx context.Context, payload map[string]interface{}) (json.RawMessage, *rpcEnvelope, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		conn, _, err := websocket.Dial(ctx, c.url, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("dial ledger %s: %w", c.url, err)
		}
		c.conn = conn
	}

	c.nextID++
	id := c.nextID
	payload["id"] = id

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("encode request: %w", err)
	}
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		c.dropConn()
		return nil, nil, fmt.Errorf("write request: %w", err)
	}

	for {
		_, raw, err := c.conn.Read(ctx)
		if err != nil {
			c.dropConn()
			return nil, nil, fmt.Errorf("read response: %w", err)
		}
		var env rpcEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, nil, fmt.Errorf("decode response: %w", err)
		}
		if env.ID != id {
			// Out-of-band message (e.g. a server stream); skip it.
			continue
		}
		return env.Result, &env, nil
	}
}

func (c *Client) dropConn() {
	if c.conn != nil {
		_ = c.conn.Close(websocket.StatusInternalError, "request failed")
		c.conn = nil
	}
}

// FetchPoolInfo queries amm_info for the pair. A missing pool is reported as
// (nil, nil).
func (c *Client) FetchPoolInfo(ctx context.Context, assetA, assetB model.Currency) (*PoolInfo, error) {
	result, env, err := c.request(ctx, map[string]interface{}{
		"command": "amm_info",
		"asset":   assetSpec(assetA),
		"asset2":  assetSpec(assetB),
	})
	if err != nil {
		return nil, err
	}
	if env.Status != "success" {
		// The ledger reports a missing pool as an entry-not-found error.
		c.logger.Debug("amm_info miss", zap.String("error", env.Error))
		return nil, nil
	}

	var body struct {
		AMM struct {
			Account    string     `json:"account"`
			Amount     wireAmount `json:"amount"`
			Amount2    wireAmount `json:"amount2"`
			TradingFee *int32     `json:"trading_fee"`
		} `json:"amm"`
	}
	if err := json.Unmarshal(result, &body); err != nil {
		return nil, fmt.Errorf("decode amm_info: %w", err)
	}

	reserveA, err := body.AMM.Amount.Decimal()
	if err != nil {
		return nil, err
	}
	reserveB, err := body.AMM.Amount2.Decimal()
	if err != nil {
		return nil, err
	}
	return &PoolInfo{
		Account:    body.AMM.Account,
		ReserveA:   reserveA,
		ReserveB:   reserveB,
		TradingFee: body.AMM.TradingFee,
	}, nil
}

// FetchTopOffer queries book_offers and returns the best resting offer, or
// (nil, nil) when the book is empty.
func (c *Client) FetchTopOffer(ctx context.Context, takerGets, takerPays model.Currency) (*TopOffer, error) {
	result, env, err := c.request(ctx, map[string]interface{}{
		"command":    "book_offers",
		"taker_gets": assetSpec(takerGets),
		"taker_pays": assetSpec(takerPays),
		"limit":      bookDepthLimit,
	})
	if err != nil {
		return nil, err
	}
	if env.Status != "success" {
		c.logger.Debug("book_offers miss", zap.String("error", env.Error))
		return nil, nil
	}

	var body struct {
		Offers []struct {
			TakerGets wireAmount `json:"TakerGets"`
			TakerPays wireAmount `json:"TakerPays"`
			Quality   string     `json:"quality"`
		} `json:"offers"`
	}
	if err := json.Unmarshal(result, &body); err != nil {
		return nil, fmt.Errorf("decode book_offers: %w", err)
	}
	if len(body.Offers) == 0 {
		return nil, nil
	}

	best := body.Offers[0]
	gets, err := best.TakerGets.Decimal()
	if err != nil {
		return nil, err
	}
	pays, err := best.TakerPays.Decimal()
	if err != nil {
		return nil, err
	}
	return &TopOffer{TakerGets: gets, TakerPays: pays, Quality: best.Quality}, nil
}

// FindBaselineRoute queries the ledger's own path-finding for the request
// and returns the output of its best alternative, or (nil, nil) when no
// path exists.
func (c *Client) FindBaselineRoute(ctx context.Context, src, dst model.Currency, sendAmount, destAmount decimal.Decimal, account string) (*BaselineRoute, error) {
	result, env, err := c.request(ctx, map[string]interface{}{
		"command":             "ripple_path_find",
		"source_account":      account,
		"destination_account": account,
		"destination_amount":  encodeAmount(dst, destAmount),
		"send_max":            encodeAmount(src, sendAmount),
	})
	if err != nil {
		return nil, err
	}
	if env.Status != "success" {
		c.logger.Debug("path_find miss", zap.String("error", env.Error))
		return nil, nil
	}

	var body struct {
		Alternatives []struct {
			DestinationAmount wireAmount `json:"destination_amount"`
		} `json:"alternatives"`
	}
	if err := json.Unmarshal(result, &body); err != nil {
		return nil, fmt.Errorf("decode path_find: %w", err)
	}
	if len(body.Alternatives) == 0 {
		return nil, nil
	}

	out, err := body.Alternatives[0].DestinationAmount.Decimal()
	if err != nil {
		return nil, err
	}
	return &BaselineRoute{Out: out}, nil
}

func assetSpec(c model.Currency) map[string]string {
	spec := map[string]string{"currency": c.Code}
	if c.Issuer != "" {
		spec["issuer"] = c.Issuer
	}
	return spec
}
