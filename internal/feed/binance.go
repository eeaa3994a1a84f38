package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Elloy123/imbalance-chart27/internal/model"
)

const (
	binanceWSBase     = "wss://stream.binance.com:9443/ws"
	reconnectDelay    = 1 * time.Second
	maxReconnectDelay = 30 * time.Second
)

// binanceTrade matches the Binance trade stream payload.
// Example: {"e":"trade","E":1672515782136,"s":"BTCUSDT","t":12345,"p":"16850.00","q":"0.005","T":1672515782136,"m":true}
type binanceTrade struct {
	EventType string `json:"e"`
	Symbol    string `json:"s"`
	TradeID   int64  `json:"t"`
	Price     string `json:"p"`
	Qty       string `json:"q"`
	TradeTime int64  `json:"T"`
	IsMaker   bool   `json:"m"` // buyer is maker => aggressive sell
}

// Binance streams public trade events and normalizes them to ticks. Volume is
// reported in quote units (price x qty); the aggressor side comes straight
// from the maker flag, so no tick-rule inference is needed. No API keys.
type Binance struct {
	mu     sync.Mutex
	symbol string
	conn   *websocket.Conn

	logger *slog.Logger
	trades int64
}

func NewBinance(symbol string, logger *slog.Logger) *Binance {
	return &Binance{
		symbol: strings.ToUpper(symbol),
		logger: logger.With("component", "binance_feed"),
	}
}

// SetSymbol switches the streamed instrument by dropping the current
// connection; the reconnect loop dials the new stream.
func (b *Binance) SetSymbol(symbol string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.symbol = strings.ToUpper(symbol)
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
}

// Run connects and consumes trades until ctx is cancelled, reconnecting with
// capped exponential backoff.
func (b *Binance) Run(ctx context.Context, handler Handler) error {
	delay := reconnectDelay
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := b.consume(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b.logger.Warn("feed_disconnected", "error", err, "retry_in", delay.String())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

func (b *Binance) consume(ctx context.Context, handler Handler) error {
	b.mu.Lock()
	symbol := b.symbol
	b.mu.Unlock()

	url := fmt.Sprintf("%s/%s@trade", binanceWSBase, strings.ToLower(symbol))
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()

	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()

	b.logger.Info("feed_connected", "symbol", symbol, "url", url)

	var event binanceTrade
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := conn.ReadJSON(&event); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if event.EventType != "trade" {
			continue
		}

		price, err := strconv.ParseFloat(event.Price, 64)
		if err != nil || price <= 0 {
			continue
		}
		qty, _ := strconv.ParseFloat(event.Qty, 64)

		side := model.SideBuy
		if event.IsMaker {
			side = model.SideSell
		}

		// The trade stream carries no quotes; synthesize a nominal
		// half-spread around the print for display purposes.
		halfSpread := price * 0.000005

		b.trades++
		handler(model.Tick{
			Symbol:    symbol,
			Price:     price,
			Bid:       price - halfSpread,
			Ask:       price + halfSpread,
			Volume:    price * qty, // quote-denominated real volume
			Side:      side,
			Timestamp: event.TradeTime,
			Spread:    2 * halfSpread,
		})

		if b.trades%1000 == 0 {
			b.logger.Debug("feed_progress", "symbol", symbol, "trades", b.trades)
		}
	}
}
