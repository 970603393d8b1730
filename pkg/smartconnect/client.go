// Package smartconnect is a minimal Angel One SmartAPI client covering what
// the trading engine needs: session handling, LTP quotes, order placement,
// historical candles, and scrip search.
//
// Every request runs through one bounded-timeout HTTP client, so callers
// fail fast instead of blocking when the broker is unreachable.
package smartconnect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	defaultRootURL = "https://apiconnect.angelone.in"
	defaultTimeout = 7 * time.Second
)

var routes = map[string]string{
	"api.login":        "/rest/auth/angelbroking/user/v1/loginByPassword",
	"api.logout":       "/rest/secure/angelbroking/user/v1/logout",
	"api.token":        "/rest/auth/angelbroking/jwt/v1/generateTokens",
	"api.user.profile": "/rest/secure/angelbroking/user/v1/getProfile",
	"api.order.place":  "/rest/secure/angelbroking/order/v1/placeOrder",
	"api.ltp.data":     "/rest/secure/angelbroking/order/v1/getLtpData",
	"api.candle.data":  "/rest/secure/angelbroking/historical/v1/getCandleData",
	"api.search.scrip": "/rest/secure/angelbroking/order/v1/searchScrip",
}

// APIError is a structured error from the SmartAPI backend.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("smartapi: %s (%s)", e.Message, e.Code)
}

// Config configures a Client.
type Config struct {
	APIKey  string
	RootURL string        // default: https://apiconnect.angelone.in
	Timeout time.Duration // default: 7s

	// Client fingerprint headers required by SmartAPI. Resolved from the
	// host when empty.
	ClientLocalIP  string
	ClientPublicIP string
	ClientMAC      string
}

// Client talks to Angel One SmartAPI. Safe for concurrent use; token
// refresh swaps tokens under a lock on the existing instance rather than
// rebuilding the client.
type Client struct {
	apiKey  string
	rootURL string
	http    *http.Client

	localIP  string
	publicIP string
	mac      string

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	feedToken    string
	clientCode   string

	// SessionExpiryHook is invoked when the backend reports an expired
	// token (HTTP 403 TokenException).
	SessionExpiryHook func()
}

// NewClient builds a Client from configuration.
func NewClient(cfg Config) *Client {
	if cfg.RootURL == "" {
		cfg.RootURL = defaultRootURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.ClientLocalIP == "" {
		cfg.ClientLocalIP = localIPOr("127.0.0.1")
	}
	if cfg.ClientPublicIP == "" {
		cfg.ClientPublicIP = cfg.ClientLocalIP
	}
	if cfg.ClientMAC == "" {
		cfg.ClientMAC = macOr("00:11:22:33:44:55")
	}
	return &Client{
		apiKey:   cfg.APIKey,
		rootURL:  cfg.RootURL,
		http:     &http.Client{Timeout: cfg.Timeout},
		localIP:  cfg.ClientLocalIP,
		publicIP: cfg.ClientPublicIP,
		mac:      cfg.ClientMAC,
	}
}

// GenerateSession logs in with clientCode, password, and a current TOTP,
// storing the returned JWT, refresh, and feed tokens.
func (c *Client) GenerateSession(ctx context.Context, clientCode, password, totp string) error {
	res, err := c.post(ctx, "api.login", map[string]any{
		"clientcode": clientCode,
		"password":   password,
		"totp":       totp,
	})
	if err != nil {
		return err
	}
	data, ok := res["data"].(map[string]any)
	if !ok {
		return errors.New("smartapi: unexpected login response format")
	}

	c.mu.Lock()
	c.accessToken, _ = data["jwtToken"].(string)
	c.refreshToken, _ = data["refreshToken"].(string)
	c.feedToken, _ = data["feedToken"].(string)
	c.clientCode = clientCode
	c.mu.Unlock()

	if c.AccessToken() == "" {
		return errors.New("smartapi: login succeeded but no jwt token returned")
	}
	return nil
}

// RenewAccessToken exchanges the stored refresh token for fresh tokens.
func (c *Client) RenewAccessToken(ctx context.Context) error {
	c.mu.RLock()
	refresh := c.refreshToken
	c.mu.RUnlock()

	res, err := c.post(ctx, "api.token", map[string]any{"refreshToken": refresh})
	if err != nil {
		return err
	}
	data, ok := res["data"].(map[string]any)
	if !ok {
		return errors.New("smartapi: unexpected token response format")
	}

	c.mu.Lock()
	if jwt, _ := data["jwtToken"].(string); jwt != "" {
		c.accessToken = jwt
	}
	if ft, _ := data["feedToken"].(string); ft != "" {
		c.feedToken = ft
	}
	c.mu.Unlock()
	return nil
}

// TerminateSession logs the client out.
func (c *Client) TerminateSession(ctx context.Context) error {
	_, err := c.post(ctx, "api.logout", map[string]any{"clientcode": c.ClientCode()})
	return err
}

// AccessToken returns the current JWT.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// FeedToken returns the WebSocket feed token.
func (c *Client) FeedToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.feedToken
}

// ClientCode returns the logged-in client code.
func (c *Client) ClientCode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clientCode
}

// APIKey returns the configured API key.
func (c *Client) APIKey() string { return c.apiKey }

// GetLTP returns the last traded price in rupees.
func (c *Client) GetLTP(ctx context.Context, exchange, tradingSymbol, symbolToken string) (float64, error) {
	res, err := c.post(ctx, "api.ltp.data", map[string]any{
		"exchange":      exchange,
		"tradingsymbol": tradingSymbol,
		"symboltoken":   symbolToken,
	})
	if err != nil {
		return 0, err
	}
	data, ok := res["data"].(map[string]any)
	if !ok {
		return 0, errors.New("smartapi: unexpected ltp response format")
	}
	ltp, err := toFloat(data["ltp"])
	if err != nil {
		return 0, fmt.Errorf("smartapi: parse ltp: %w", err)
	}
	return ltp, nil
}

// OrderParams describes an order to place.
type OrderParams struct {
	Variety         string // NORMAL, AMO
	TradingSymbol   string
	SymbolToken     string
	TransactionType string // BUY, SELL
	Exchange        string // NSE
	OrderType       string // MARKET, LIMIT
	ProductType     string // INTRADAY
	Duration        string // DAY
	Price           float64
	Quantity        int64
	Tag             string
}

// PlaceOrder submits an order and returns the broker order id.
func (c *Client) PlaceOrder(ctx context.Context, p OrderParams) (string, error) {
	params := map[string]any{
		"variety":         p.Variety,
		"tradingsymbol":   p.TradingSymbol,
		"symboltoken":     p.SymbolToken,
		"transactiontype": p.TransactionType,
		"exchange":        p.Exchange,
		"ordertype":       p.OrderType,
		"producttype":     p.ProductType,
		"duration":        p.Duration,
		"quantity":        strconv.FormatInt(p.Quantity, 10),
		"ordertag":        p.Tag,
	}
	if p.OrderType == "LIMIT" {
		params["price"] = fmt.Sprintf("%.2f", p.Price)
	}
	res, err := c.post(ctx, "api.order.place", params)
	if err != nil {
		return "", err
	}
	if data, ok := res["data"].(map[string]any); ok {
		if oid, _ := data["orderid"].(string); oid != "" {
			return oid, nil
		}
	}
	return "", fmt.Errorf("smartapi: place order: missing orderid in response")
}

// CandleRow is one OHLCV bar from the historical candle API.
type CandleRow struct {
	TS     time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// CandleParams describes a historical candle request. From and To use the
// SmartAPI format "2006-01-02 15:04" in IST.
type CandleParams struct {
	Exchange    string
	SymbolToken string
	Interval    string // ONE_MINUTE, FIVE_MINUTE, ... ONE_DAY
	From        string
	To          string
}

// GetCandleData fetches historical candles, oldest first.
func (c *Client) GetCandleData(ctx context.Context, p CandleParams) ([]CandleRow, error) {
	res, err := c.post(ctx, "api.candle.data", map[string]any{
		"exchange":    p.Exchange,
		"symboltoken": p.SymbolToken,
		"interval":    p.Interval,
		"fromdate":    p.From,
		"todate":      p.To,
	})
	if err != nil {
		return nil, err
	}
	rows, ok := res["data"].([]any)
	if !ok {
		return nil, errors.New("smartapi: unexpected candle response format")
	}

	out := make([]CandleRow, 0, len(rows))
	for _, raw := range rows {
		cols, ok := raw.([]any)
		if !ok || len(cols) < 6 {
			continue
		}
		ts, _ := cols[0].(string)
		parsed, err := time.Parse("2006-01-02T15:04:05-07:00", ts)
		if err != nil {
			continue
		}
		var row CandleRow
		row.TS = parsed
		if row.Open, err = toFloat(cols[1]); err != nil {
			continue
		}
		if row.High, err = toFloat(cols[2]); err != nil {
			continue
		}
		if row.Low, err = toFloat(cols[3]); err != nil {
			continue
		}
		if row.Close, err = toFloat(cols[4]); err != nil {
			continue
		}
		if v, err := toFloat(cols[5]); err == nil {
			row.Volume = int64(v)
		}
		out = append(out, row)
	}
	return out, nil
}

// Scrip is one result from scrip search.
type Scrip struct {
	Exchange      string `json:"exchange"`
	TradingSymbol string `json:"tradingsymbol"`
	SymbolToken   string `json:"symboltoken"`
}

// SearchScrip looks up instruments matching the query on an exchange.
func (c *Client) SearchScrip(ctx context.Context, exchange, query string) ([]Scrip, error) {
	res, err := c.post(ctx, "api.search.scrip", map[string]any{
		"exchange":    exchange,
		"searchscrip": query,
	})
	if err != nil {
		return nil, err
	}
	rows, ok := res["data"].([]any)
	if !ok {
		return nil, nil // no matches
	}
	out := make([]Scrip, 0, len(rows))
	for _, raw := range rows {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		s := Scrip{}
		s.Exchange, _ = m["exchange"].(string)
		s.TradingSymbol, _ = m["tradingsymbol"].(string)
		s.SymbolToken, _ = m["symboltoken"].(string)
		out = append(out, s)
	}
	return out, nil
}

// ---- transport ----

func (c *Client) post(ctx context.Context, route string, params map[string]any) (map[string]any, error) {
	uri, ok := routes[route]
	if !ok {
		return nil, fmt.Errorf("smartapi: unknown route %s", route)
	}
	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rootURL+uri, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("smartapi: %s: %w", route, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("smartapi: %s: read body: %w", route, err)
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("smartapi: %s: parse response: %w", route, err)
	}

	if et, _ := out["error_type"].(string); et != "" {
		if et == "TokenException" && resp.StatusCode == http.StatusForbidden && c.SessionExpiryHook != nil {
			c.SessionExpiryHook()
		}
		msg, _ := out["message"].(string)
		return out, &APIError{Code: et, Message: msg}
	}
	if st, ok := out["status"].(bool); ok && !st {
		msg, _ := out["message"].(string)
		code, _ := out["errorcode"].(string)
		return out, &APIError{Code: code, Message: msg}
	}
	return out, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-ClientLocalIP", c.localIP)
	req.Header.Set("X-ClientPublicIP", c.publicIP)
	req.Header.Set("X-MACAddress", c.mac)
	req.Header.Set("X-PrivateKey", c.apiKey)
	req.Header.Set("X-UserType", "USER")
	req.Header.Set("X-SourceID", "WEB")
	if tok := c.AccessToken(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		return strconv.ParseFloat(t, 64)
	case json.Number:
		return t.Float64()
	default:
		return 0, fmt.Errorf("unexpected numeric type %T", v)
	}
}

func localIPOr(fallback string) string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return fallback
	}
	for _, addr := range addrs {
		if ipNet, ok := addr.(*net.IPNet); ok && !ipNet.IP.IsLoopback() && ipNet.IP.To4() != nil {
			return ipNet.IP.String()
		}
	}
	return fallback
}

func macOr(fallback string) string {
	ifs, err := net.Interfaces()
	if err != nil {
		return fallback
	}
	for _, ifc := range ifs {
		if len(ifc.HardwareAddr) > 0 {
			return ifc.HardwareAddr.String()
		}
	}
	return fallback
}
