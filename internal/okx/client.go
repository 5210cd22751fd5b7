// Package okx reads public market data from the OKX v5 REST API.
package okx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/zappabad/liquidbook/internal/orderbook/core"
)

// ErrAPI is returned when OKX answers with a non-zero code.
var ErrAPI = errors.New("okx api error")

// Ticker holds 24h statistics for an instrument.
type Ticker struct {
	InstID    string
	Last      float64
	BidPx     float64
	AskPx     float64
	Open24h   float64
	High24h   float64
	Low24h    float64
	VolCcy24h float64
	Time      time.Time
}

// Change returns last minus the 24h open.
func (t Ticker) Change() float64 { return t.Last - t.Open24h }

// ChangePercent returns the 24h change in percent, or false when the open is zero.
func (t Ticker) ChangePercent() (float64, bool) {
	if t.Open24h == 0 {
		return 0, false
	}
	return t.Change() / t.Open24h * 100, true
}

// Client is a rate-limited OKX REST client bound to one instrument.
type Client struct {
	baseURL string
	instID  string
	http    *http.Client
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRateLimit caps outgoing requests. A non-positive rps disables the limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewClient returns a client for instID at baseURL.
func NewClient(baseURL, instID string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		instID:  instID,
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(10), 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InstID returns the instrument the client reads.
func (c *Client) InstID() string { return c.instID }

type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if env.Code != "0" {
		return fmt.Errorf("%w: %s: code %s: %s", ErrAPI, path, env.Code, env.Msg)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", path, err)
	}
	return nil
}

type tickerRecord struct {
	InstID    string `json:"instId"`
	Last      string `json:"last"`
	BidPx     string `json:"bidPx"`
	AskPx     string `json:"askPx"`
	Open24h   string `json:"open24h"`
	High24h   string `json:"high24h"`
	Low24h    string `json:"low24h"`
	VolCcy24h string `json:"volCcy24h"`
	Ts        string `json:"ts"`
}

// Ticker returns the instrument's 24h ticker.
func (c *Client) Ticker(ctx context.Context) (Ticker, error) {
	var recs []tickerRecord
	if err := c.get(ctx, "/api/v5/market/ticker", url.Values{"instId": {c.instID}}, &recs); err != nil {
		return Ticker{}, err
	}
	if len(recs) == 0 {
		return Ticker{}, fmt.Errorf("%w: empty ticker for %s", ErrAPI, c.instID)
	}
	r := recs[0]

	last, err := parseFloat("last", r.Last)
	if err != nil {
		return Ticker{}, err
	}
	return Ticker{
		InstID:    r.InstID,
		Last:      last,
		BidPx:     parseFloatOr(r.BidPx),
		AskPx:     parseFloatOr(r.AskPx),
		Open24h:   parseFloatOr(r.Open24h),
		High24h:   parseFloatOr(r.High24h),
		Low24h:    parseFloatOr(r.Low24h),
		VolCcy24h: parseFloatOr(r.VolCcy24h),
		Time:      parseMillis(r.Ts),
	}, nil
}

// MarkPrice returns the instrument's mark price.
func (c *Client) MarkPrice(ctx context.Context) (float64, error) {
	var recs []struct {
		MarkPx string `json:"markPx"`
	}
	q := url.Values{"instId": {c.instID}, "instType": {"MARGIN"}}
	if err := c.get(ctx, "/api/v5/public/mark-price", q, &recs); err != nil {
		return 0, err
	}
	if len(recs) == 0 {
		return 0, fmt.Errorf("%w: empty mark price for %s", ErrAPI, c.instID)
	}
	return parseFloat("markPx", recs[0].MarkPx)
}

type tradeRecord struct {
	TradeID string `json:"tradeId"`
	Px      string `json:"px"`
	Sz      string `json:"sz"`
	Side    string `json:"side"`
	Ts      string `json:"ts"`
}

// Trades returns up to limit recent trades, newest first. Trades that fail to
// parse are skipped.
func (c *Client) Trades(ctx context.Context, limit int) ([]core.Trade, error) {
	q := url.Values{"instId": {c.instID}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var recs []tradeRecord
	if err := c.get(ctx, "/api/v5/market/trades", q, &recs); err != nil {
		return nil, err
	}

	out := make([]core.Trade, 0, len(recs))
	for _, r := range recs {
		px, err := parseFloat("px", r.Px)
		if err != nil {
			continue
		}
		sz, err := decimal.NewFromString(r.Sz)
		if err != nil || sz.IsNegative() {
			continue
		}
		side := core.SideSell
		if r.Side == "buy" {
			side = core.SideBuy
		}
		out = append(out, core.Trade{
			ID:    r.TradeID,
			Price: px,
			Size:  sz,
			Side:  side,
			Time:  parseMillis(r.Ts),
		})
	}
	return out, nil
}

func parseFloat(field, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrAPI, field, err)
	}
	return v, nil
}

func parseFloatOr(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseMillis(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
