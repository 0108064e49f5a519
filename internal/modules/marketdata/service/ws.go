package service

import (
	"context"
	"strconv"
	"time"

	pricesvc "signal_engine/internal/modules/pricecache/service"
	"signal_engine/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

// Stream — опциональный ws-стрим тикеров поверх REST-опроса. Пишет в
// тот же кэш цен, просто быстрее.
type Stream struct {
	url    string
	dialer *websocket.Dialer
	cache  *pricesvc.Cache
	active ActiveSet
}

// ActiveSet — на какие символы подписываться.
type ActiveSet interface {
	ActiveSymbols() []string
}

func NewStream(url string, cache *pricesvc.Cache, active ActiveSet) *Stream {
	return &Stream{
		url:    url,
		dialer: &websocket.Dialer{},
		cache:  cache,
		active: active,
	}
}

// Run — connect/subscribe/read loop с реконнектом до отмены контекста.
func (s *Stream) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		symbols := s.active.ActiveSymbols()
		if len(symbols) == 0 {
			// подписываться не на что, подождём сигналов
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		logger.Info("[WS] connect %s, %d symbols", s.url, len(symbols))
		conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
		if err != nil {
			logger.Error("[WS] dial: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		args := make([]string, 0, len(symbols))
		for _, sym := range symbols {
			args = append(args, "tickers."+sym)
		}
		sub := map[string]any{"op": "subscribe", "args": args}
		if err := conn.WriteJSON(sub); err != nil {
			logger.Error("[WS] subscribe: %v", err)
			_ = conn.Close()
			continue
		}

		// keepalive ping каждые 20s, иначе bybit рвёт соединение
		stopPing := make(chan struct{})
		go func() {
			t := time.NewTicker(20 * time.Second)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-stopPing:
					return
				case <-t.C:
					_ = conn.WriteJSON(map[string]string{"op": "ping"})
				}
			}
		}()

		s.readLoop(ctx, conn)
		close(stopPing)
		_ = conn.Close()
	}
}

func (s *Stream) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		if ctx.Err() != nil {
			return
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Error("[WS] read: %v", err)
			return
		}

		var frame wsTicker
		if err := sonic.Unmarshal(msg, &frame); err != nil {
			continue
		}
		if frame.Data.Symbol == "" || frame.Data.LastPrice == "" {
			continue
		}

		price, err := strconv.ParseFloat(frame.Data.LastPrice, 64)
		if err != nil || price <= 0 {
			continue
		}

		at := time.Now()
		if frame.Ts > 0 {
			at = time.UnixMilli(frame.Ts)
		}
		s.cache.Set(frame.Data.Symbol, price, at)
	}
}
