package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pquerna/otp/totp"

	"daytrader/errs"
	"daytrader/logger"
)

// RealConfig parameterizes the Real adapter (§6 Broker config block).
type RealConfig struct {
	BaseURL        string
	DataURL        string
	WebsocketURL   string
	RequestTimeout time.Duration
	APIKey         string
	APISecret      string
	OTPSecret      string // TOTP seed for the device-auth handshake; empty disables it
	TokenPath      string
}

// RealBroker implements Broker against the live brokerage REST API.
// Grounded on SynapseStrike/trader/alpaca_trader.go's doRequest/signed-
// header shape, extended with the OAuth-token-with-expiry cache and OTP
// device-auth handshake original_source/korea-investment-api/src/auth.rs
// shows, and a websocket price feed in place of polling GetCurrentPrice.
type RealBroker struct {
	cfg     RealConfig
	http    *http.Client
	retry   *RetryPolicy
	tokens  *TokenStore
	mu      sync.RWMutex
	token   string
	priceMu sync.RWMutex
	prices  map[string]float64
	wsConn  *websocket.Conn
}

// NewRealBroker wires a RealBroker and starts its websocket price feed.
// A failure to connect the feed is logged, not fatal: GetCurrentPrice falls
// back to the REST endpoint when the feed hasn't populated a stock yet.
func NewRealBroker(ctx context.Context, cfg RealConfig, retry *RetryPolicy) *RealBroker {
	b := &RealBroker{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.RequestTimeout},
		retry:  retry,
		tokens: NewTokenStore(cfg.TokenPath),
		prices: make(map[string]float64),
	}
	if err := b.ensureToken(ctx); err != nil {
		logger.Errorf("broker: initial token acquisition failed: %v", err)
	}
	if cfg.WebsocketURL != "" {
		go b.runPriceFeed(ctx)
	}
	return b
}

// ensureToken loads the cached token or performs the device-auth handshake
// and a fresh OAuth exchange if it has expired (§5 "Token store... reads
// happen at startup and after each refresh").
func (b *RealBroker) ensureToken(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	token, expiresAt, found, err := b.tokens.Load()
	if err != nil {
		return err
	}
	if found && time.Now().Before(expiresAt.Add(-30*time.Second)) {
		b.token = token
		return nil
	}
	if b.cfg.OTPSecret != "" {
		if _, err := totp.GenerateCode(b.cfg.OTPSecret, time.Now()); err != nil {
			return errs.New(errs.Config, "broker.ensureToken", fmt.Errorf("device OTP generation failed: %w", err))
		}
	}
	newToken, err := b.requestNewToken(ctx)
	if err != nil {
		return err
	}
	issuedAt := time.Now()
	newExpiresAt, err := ParseExpiry(newToken)
	if err != nil {
		newExpiresAt = issuedAt.Add(23 * time.Hour) // brokerage default if unparsable
	}
	if err := b.tokens.Save(newToken, issuedAt, newExpiresAt); err != nil {
		logger.Warnf("broker: token refreshed but cache save failed: %v", err)
	}
	b.token = newToken
	return nil
}

func (b *RealBroker) requestNewToken(ctx context.Context) (string, error) {
	var token string
	err := b.retry.Do(ctx, "broker.requestNewToken", func(ctx context.Context) error {
		resp, err := b.doRequest(ctx, "", http.MethodPost, "/oauth2/tokenP", map[string]string{
			"grant_type": "client_credentials",
			"appkey":     b.cfg.APIKey,
			"appsecret":  b.cfg.APISecret,
		})
		if err != nil {
			return err
		}
		var body struct {
			AccessToken string `json:"access_token"`
		}
		if err := json.Unmarshal(resp, &body); err != nil {
			return errs.New(errs.Parse, "broker.requestNewToken", err)
		}
		token = body.AccessToken
		return nil
	})
	return token, err
}

// doRequest performs one authenticated HTTP round trip, classifying status
// codes into the §7 error taxonomy so RetryPolicy can decide whether to
// retry (timeout/429/5xx -> Network/RateLimit) or surface immediately
// (4xx -> OrderReject).
func (b *RealBroker) doRequest(ctx context.Context, token string, method, path string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, errs.New(errs.Parse, "broker.doRequest", err)
		}
		reqBody = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.cfg.BaseURL+path, reqBody)
	if err != nil {
		return nil, errs.New(errs.Network, "broker.doRequest", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("appkey", b.cfg.APIKey)
	req.Header.Set("appsecret", b.cfg.APISecret)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, errs.New(errs.Network, "broker.doRequest", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.New(errs.Network, "broker.doRequest", err)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, errs.New(errs.RateLimit, "broker.doRequest", fmt.Errorf("rate limited: %s", respBody))
	case resp.StatusCode >= 500:
		return nil, errs.New(errs.Network, "broker.doRequest", fmt.Errorf("status %d: %s", resp.StatusCode, respBody))
	case resp.StatusCode >= 400:
		return nil, errs.New(errs.OrderReject, "broker.doRequest", fmt.Errorf("status %d: %s", resp.StatusCode, respBody))
	}
	return respBody, nil
}

func (b *RealBroker) authedRequest(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	if err := b.ensureToken(ctx); err != nil {
		return nil, err
	}
	b.mu.RLock()
	token := b.token
	b.mu.RUnlock()

	var respBody []byte
	err := b.retry.Do(ctx, "broker."+path, func(ctx context.Context) error {
		resp, err := b.doRequest(ctx, token, method, path, body)
		if err != nil {
			return err
		}
		respBody = resp
		return nil
	})
	return respBody, err
}

func (b *RealBroker) ExecuteOrder(ctx context.Context, order Order) (string, error) {
	resp, err := b.authedRequest(ctx, http.MethodPost, "/uapi/domestic-stock/v1/trading/order-cash", map[string]interface{}{
		"PDNO":     order.Stock,
		"ORD_DVSN": "01", // market order
		"ORD_QTY":  fmt.Sprintf("%d", order.Quantity),
		"SIDE":     string(order.Side),
	})
	if err != nil {
		return "", err
	}
	var body struct {
		OrderID string `json:"ODNO"`
	}
	if err := json.Unmarshal(resp, &body); err != nil {
		return "", errs.New(errs.Parse, "broker.ExecuteOrder", err)
	}
	return body.OrderID, nil
}

func (b *RealBroker) CheckFill(ctx context.Context, orderID string) (bool, error) {
	resp, err := b.authedRequest(ctx, http.MethodGet, "/uapi/domestic-stock/v1/trading/inquire-order?ODNO="+orderID, nil)
	if err != nil {
		return false, err
	}
	var body struct {
		Status string `json:"ORD_STAT"`
	}
	if err := json.Unmarshal(resp, &body); err != nil {
		return false, errs.New(errs.Parse, "broker.CheckFill", err)
	}
	return body.Status == "FILLED" || body.Status == "체결", nil
}

func (b *RealBroker) CancelOrder(ctx context.Context, orderID string) error {
	_, err := b.authedRequest(ctx, http.MethodPost, "/uapi/domestic-stock/v1/trading/order-rvsecncl", map[string]interface{}{
		"ODNO":              orderID,
		"RVSE_CNCL_DVSN_CD": "02", // cancel
	})
	return err
}

func (b *RealBroker) GetBalance(ctx context.Context) (Balance, error) {
	resp, err := b.authedRequest(ctx, http.MethodGet, "/uapi/domestic-stock/v1/trading/inquire-balance", nil)
	if err != nil {
		return Balance{}, errs.New(errs.BalanceInquiry, "broker.GetBalance", err)
	}
	var body struct {
		Cash       float64 `json:"dnca_tot_amt,string"`
		Equity     float64 `json:"tot_evlu_amt,string"`
		HoldingQty int64   `json:"hldg_qty,string"`
	}
	if err := json.Unmarshal(resp, &body); err != nil {
		return Balance{}, errs.New(errs.Parse, "broker.GetBalance", err)
	}
	return Balance{Cash: body.Cash, Equity: body.Equity, HoldingQty: body.HoldingQty}, nil
}

func (b *RealBroker) GetAvgPrice(ctx context.Context, stock string) (float64, error) {
	resp, err := b.authedRequest(ctx, http.MethodGet, "/uapi/domestic-stock/v1/trading/inquire-balance?PDNO="+stock, nil)
	if err != nil {
		return 0, errs.New(errs.BalanceInquiry, "broker.GetAvgPrice", err)
	}
	var body struct {
		AvgPrice float64 `json:"pchs_avg_pric,string"`
		Qty      int64   `json:"hldg_qty,string"`
	}
	if err := json.Unmarshal(resp, &body); err != nil {
		return 0, errs.New(errs.Parse, "broker.GetAvgPrice", err)
	}
	if body.Qty == 0 {
		return 0, ErrNotHeld
	}
	return body.AvgPrice, nil
}

func (b *RealBroker) GetCurrentPrice(ctx context.Context, stock string) (float64, error) {
	b.priceMu.RLock()
	p, ok := b.prices[stock]
	b.priceMu.RUnlock()
	if ok {
		return p, nil
	}
	resp, err := b.authedRequest(ctx, http.MethodGet, "/uapi/domestic-stock/v1/quotations/inquire-price?PDNO="+stock, nil)
	if err != nil {
		return 0, err
	}
	var body struct {
		Price float64 `json:"stck_prpr,string"`
	}
	if err := json.Unmarshal(resp, &body); err != nil {
		return 0, errs.New(errs.Parse, "broker.GetCurrentPrice", err)
	}
	return body.Price, nil
}

// GetCurrentPriceAtTime has no meaning against a live brokerage (there is
// no historical 1-minute store to query live) — callers in Real/Paper mode
// only ever call GetCurrentPrice; this exists solely to satisfy Broker.
func (b *RealBroker) GetCurrentPriceAtTime(ctx context.Context, stock string, key string) (float64, error) {
	return b.GetCurrentPrice(ctx, stock)
}

// runPriceFeed maintains a websocket subscription updating b.prices, so
// GetCurrentPrice can return the latest push instead of polling REST.
// After a read error it redials at once; a failed dial is retried after a
// fixed 5s delay. Returns once ctx is done.
func (b *RealBroker) runPriceFeed(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, b.cfg.WebsocketURL, nil)
		if err != nil {
			logger.Warnf("broker: price feed dial failed, retrying in 5s: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}
		b.wsConn = conn
		b.readPriceLoop(ctx, conn)
		conn.Close()
	}
}

func (b *RealBroker) readPriceLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		if ctx.Err() != nil {
			return
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Warnf("broker: price feed read failed: %v", err)
			return
		}
		var tick struct {
			Stock string  `json:"stock"`
			Price float64 `json:"price"`
		}
		if err := json.Unmarshal(msg, &tick); err != nil {
			continue
		}
		b.priceMu.Lock()
		b.prices[tick.Stock] = tick.Price
		b.priceMu.Unlock()
	}
}
