package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"signal_engine/internal/models"
	"signal_engine/pkg/retry"

	"github.com/bytedance/sonic"
)

// ErrPriceUnavailable — источник временно не отдал цену, можно повторить.
var ErrPriceUnavailable = errors.New("price unavailable")

// ErrSymbolUnsupported — символа на площадке нет, повторять бессмысленно.
var ErrSymbolUnsupported = errors.New("symbol unsupported")

// Client ходит в bybit v5 за ценами и свечами.
type Client struct {
	http *http.Client
	base string
}

func NewClient(base string, timeout time.Duration) *Client {
	return &Client{
		http: &http.Client{Timeout: timeout},
		base: base,
	}
}

// Price — последняя цена символа.
func (c *Client) Price(ctx context.Context, symbol string) (models.Ticker, error) {
	payload, err := c.tickers(ctx, symbol)
	if err != nil {
		return models.Ticker{}, err
	}

	t := payload.Result.List[0]
	last, err := strconv.ParseFloat(t.LastPrice, 64)
	if err != nil || last <= 0 {
		return models.Ticker{}, retry.Temporary(fmt.Errorf("%w: lastPrice=%q", ErrPriceUnavailable, t.LastPrice))
	}

	return models.Ticker{
		Symbol:     symbol,
		LastPrice:  last,
		ObservedAt: time.Now(),
	}, nil
}

// Snapshot — срез рынка для источника сценариев: тикер + свечи 5m.
func (c *Client) Snapshot(ctx context.Context, symbol string) (models.Snapshot, error) {
	payload, err := c.tickers(ctx, symbol)
	if err != nil {
		return models.Snapshot{}, err
	}
	t := payload.Result.List[0]

	snap := models.Snapshot{
		Symbol:      symbol,
		LastPrice:   parseF(t.LastPrice),
		High24h:     parseF(t.HighPrice24H),
		Low24h:      parseF(t.LowPrice24H),
		Volume24h:   parseF(t.Volume24H),
		PriceChg24h: parseF(t.Price24HPcnt) * 100,
		ObservedAt:  time.Now(),
	}
	if snap.LastPrice <= 0 {
		return models.Snapshot{}, retry.Temporary(fmt.Errorf("%w: %s", ErrPriceUnavailable, symbol))
	}

	candles, err := c.klines(ctx, symbol, "5", 100)
	if err != nil {
		return models.Snapshot{}, err
	}
	snap.Candles = candles
	return snap, nil
}

func (c *Client) tickers(ctx context.Context, symbol string) (*tickersResponse, error) {
	u := c.base + "/v5/market/tickers?category=linear&symbol=" + url.QueryEscape(symbol)

	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var payload tickersResponse
	if err := sonic.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode tickers: %w", err)
	}
	if payload.RetCode != 0 {
		return nil, retry.Permanent(fmt.Errorf("%w: %s: api %d %s", ErrSymbolUnsupported, symbol, payload.RetCode, payload.RetMsg))
	}
	if len(payload.Result.List) == 0 {
		return nil, retry.Permanent(fmt.Errorf("%w: %s", ErrSymbolUnsupported, symbol))
	}
	return &payload, nil
}

func (c *Client) klines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	u := fmt.Sprintf("%s/v5/market/kline?category=linear&symbol=%s&interval=%s&limit=%d",
		c.base, url.QueryEscape(symbol), interval, limit)

	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var payload klineResponse
	if err := sonic.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode kline: %w", err)
	}
	if payload.RetCode != 0 {
		return nil, retry.Permanent(fmt.Errorf("%w: %s: api %d %s", ErrSymbolUnsupported, symbol, payload.RetCode, payload.RetMsg))
	}

	candles := make([]models.Candle, 0, len(payload.Result.List))
	// bybit отдаёт свечи от новых к старым, разворачиваем
	for i := len(payload.Result.List) - 1; i >= 0; i-- {
		row := payload.Result.List[i]
		if len(row) < 6 {
			continue
		}
		startMs, _ := strconv.ParseInt(row[0], 10, 64)
		start := time.UnixMilli(startMs)
		candles = append(candles, models.Candle{
			Open:   parseF(row[1]),
			High:   parseF(row[2]),
			Low:    parseF(row[3]),
			Close:  parseF(row[4]),
			Volume: parseF(row[5]),
			Start:  start,
			End:    start.Add(5 * time.Minute),
		})
	}
	return candles, nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, retry.Temporary(fmt.Errorf("%w: %v", ErrPriceUnavailable, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, retry.Temporary(fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode/100 != 2 {
		err := fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, retry.Temporary(err)
		}
		return nil, retry.Permanent(err)
	}
	return body, nil
}

func parseF(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
