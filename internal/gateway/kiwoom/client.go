// Package kiwoom talks to the Windows bridge agent that fronts the actual
// trading terminal. The bridge exposes a small HTTP API; credentials and the
// trade mode travel as headers on every request.
package kiwoom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/londonerlim84/unomatix-kiwoomapi/internal/store/model"
	"github.com/londonerlim84/unomatix-kiwoomapi/internal/trading"

	"github.com/tidwall/gjson"
)

// Config describes the bridge endpoint.
type Config struct {
	URL            string
	TimeoutSeconds int
}

// Client implements trading.Gateway against the bridge agent.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client

	mu    sync.RWMutex
	creds trading.Credentials
}

func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.URL)
	if raw == "" {
		return nil, fmt.Errorf("bridge.url cannot be empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing bridge.url failed: %w", err)
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// SetHTTPClient sets the HTTP client for testing.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Connect binds the client to a configuration's credentials and logs the
// bridge into the terminal for that mode.
func (c *Client) Connect(ctx context.Context, creds trading.Credentials) error {
	c.mu.Lock()
	c.creds = creds
	c.mu.Unlock()

	_, err := c.doRequest(ctx, http.MethodPost, "connect", nil, map[string]any{
		"trade_mode": string(creds.Mode),
	})
	return err
}

// QuotePrice returns the bridge's current price for an instrument code.
func (c *Client) QuotePrice(ctx context.Context, instrumentCode string) (int64, error) {
	res, err := c.doRequest(ctx, http.MethodGet, "stock/price", url.Values{"code": {instrumentCode}}, nil)
	if err != nil {
		return 0, err
	}
	return res.Get("current_price").Int(), nil
}

// InstrumentInfo looks up name and venue for an instrument code.
func (c *Client) InstrumentInfo(ctx context.Context, instrumentCode string) (trading.InstrumentInfo, error) {
	res, err := c.doRequest(ctx, http.MethodGet, "stock/info", url.Values{"code": {instrumentCode}}, nil)
	if err != nil {
		return trading.InstrumentInfo{}, err
	}
	return trading.InstrumentInfo{
		Code:   instrumentCode,
		Name:   res.Get("name").String(),
		Market: res.Get("market").String(),
	}, nil
}

// SubmitOrder sends an order to the bridge. The terminal's order-type code
// is 1 for buy, 2 for sell; its quote-type code is 03 for market, 00 for
// limit.
func (c *Client) SubmitOrder(ctx context.Context, req trading.SubmitRequest) (string, error) {
	orderType := 1
	if req.Side == model.OrderSideSell {
		orderType = 2
	}
	priceType := "03"
	if req.PriceKind == model.PriceKindLimit {
		priceType = "00"
	}

	res, err := c.doRequest(ctx, http.MethodPost, "order", nil, map[string]any{
		"order_type": orderType,
		"stock_code": req.InstrumentCode,
		"quantity":   req.Quantity,
		"price":      req.Price,
		"price_type": priceType,
		"account_no": req.AccountNo,
		"request_id": req.RequestID,
	})
	if err != nil {
		return "", err
	}
	ref := res.Get("order_no").String()
	if ref == "" {
		return "", fmt.Errorf("%w: bridge returned no order reference", trading.ErrGatewayUnavailable)
	}
	return ref, nil
}

// CancelOrder cancels the unfilled remainder of an order at the bridge.
func (c *Client) CancelOrder(ctx context.Context, orderRef, instrumentCode string, quantity int64) error {
	_, err := c.doRequest(ctx, http.MethodPost, "order/cancel", nil, map[string]any{
		"order_no":   orderRef,
		"stock_code": instrumentCode,
		"quantity":   quantity,
		"account_no": c.credentials().AccountNo,
	})
	return err
}

// HoldingsSnapshot pulls the broker-side holdings for an account.
func (c *Client) HoldingsSnapshot(ctx context.Context, accountNo string) ([]trading.HoldingSnapshot, error) {
	res, err := c.doRequest(ctx, http.MethodGet, "balance", url.Values{"account_no": {accountNo}}, nil)
	if err != nil {
		return nil, err
	}
	var items []trading.HoldingSnapshot
	for _, item := range res.Get("items").Array() {
		items = append(items, trading.HoldingSnapshot{
			InstrumentCode: item.Get("stock_code").String(),
			InstrumentName: item.Get("stock_name").String(),
			Quantity:       item.Get("quantity").Int(),
			AvgPrice:       item.Get("avg_price").Int(),
			CurrentPrice:   item.Get("current_price").Int(),
			ProfitRate:     item.Get("profit_rate").Float(),
			ProfitAmount:   item.Get("profit_amount").Int(),
		})
	}
	return items, nil
}

// ConditionInfo is one condition-search rule as the terminal reports it.
type ConditionInfo struct {
	Index int
	Name  string
}

// ConditionList fetches the condition-search rules defined in the terminal.
func (c *Client) ConditionList(ctx context.Context) ([]ConditionInfo, error) {
	res, err := c.doRequest(ctx, http.MethodGet, "condition/list", nil, nil)
	if err != nil {
		return nil, err
	}
	var conds []ConditionInfo
	for _, item := range res.Get("conditions").Array() {
		conds = append(conds, ConditionInfo{
			Index: int(item.Get("index").Int()),
			Name:  item.Get("name").String(),
		})
	}
	return conds, nil
}

// StartCondition starts a condition search on the given screen and returns
// the initially matched instrument codes.
func (c *Client) StartCondition(ctx context.Context, screenNo, name string, index int, realtime bool) ([]string, error) {
	res, err := c.doRequest(ctx, http.MethodPost, "condition/search", nil, map[string]any{
		"screen_no":       screenNo,
		"condition_name":  name,
		"condition_index": index,
		"is_realtime":     realtime,
	})
	if err != nil {
		return nil, err
	}
	var codes []string
	for _, item := range res.Get("stocks").Array() {
		if code := item.String(); code != "" {
			codes = append(codes, code)
		}
	}
	return codes, nil
}

// StopCondition stops a running realtime condition search.
func (c *Client) StopCondition(ctx context.Context, screenNo, name string, index int) error {
	_, err := c.doRequest(ctx, http.MethodPost, "condition/stop", nil, map[string]any{
		"screen_no":       screenNo,
		"condition_name":  name,
		"condition_index": index,
	})
	return err
}

func (c *Client) credentials() trading.Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, query url.Values, payload any) (gjson.Result, error) {
	target := *c.baseURL
	target.Path = strings.TrimRight(target.Path, "/") + "/api/" + endpoint
	if query != nil {
		target.RawQuery = query.Encode()
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return gjson.Result{}, err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return gjson.Result{}, err
	}
	creds := c.credentials()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Trade-Mode", string(creds.Mode))
	req.Header.Set("X-App-Key", creds.AppKey)
	req.Header.Set("X-App-Secret", creds.AppSecret)
	req.Header.Set("X-Account-No", creds.AccountNo)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, classifyTransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return gjson.Result{}, classifyTransportError(err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		msg := strings.TrimSpace(string(raw))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return gjson.Result{}, fmt.Errorf("%w: bridge %s returned %d: %s",
			trading.ErrGatewayUnavailable, endpoint, resp.StatusCode, msg)
	}
	return gjson.ParseBytes(raw), nil
}

// classifyTransportError maps transport failures onto the engine's gateway
// error taxonomy: timeouts are recoverable, everything else is the bridge
// being unreachable.
func classifyTransportError(err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("%w: %v", trading.ErrGatewayTimeout, err)
	}
	return fmt.Errorf("%w: %v", trading.ErrGatewayUnavailable, err)
}
