package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"praxis/internal/model"
)

const binanceStreamBase = "wss://stream.binance.com:9443/ws/"

// BinanceClient implements the ExchangeClient interface for Binance.
type BinanceClient struct {
	logger *slog.Logger
	url    string
	stream *streamer
}

// NewBinanceClient creates a new BinanceClient. An empty url streams the
// public ticker for the pair passed to StartStream.
func NewBinanceClient(logger *slog.Logger, url string) *BinanceClient {
	b := &BinanceClient{logger: logger, url: url}
	b.stream = &streamer{
		logger:   logger,
		exchange: b.GetName(),
		parse:    parseBinanceTicker,
	}
	return b
}

func (b *BinanceClient) GetName() string {
	return "binance"
}

// StartStream connects to the Binance WebSocket API and streams price ticks for pair.
func (b *BinanceClient) StartStream(ctx context.Context, priceChan chan<- model.PriceTick, pair string) error {
	return b.stream.run(ctx, binanceStreamURL(b.url, pair), priceChan, pair)
}

// binanceStreamURL returns url, or the public ticker stream for pair when url is empty.
func binanceStreamURL(url, pair string) string {
	if url != "" {
		return url
	}
	return binanceStreamBase + binanceSymbol(pair) + "@ticker"
}

// binanceSymbol turns "BTC/EUR" into "btceur".
func binanceSymbol(pair string) string {
	return strings.ToLower(strings.ReplaceAll(pair, "/", ""))
}

// The quantity fields are declared so "B" and "A" do not case-fold onto the prices.
type binanceTicker struct {
	Event  string `json:"e"`
	Bid    string `json:"b"`
	BidQty string `json:"B"`
	Ask    string `json:"a"`
	AskQty string `json:"A"`
}

func parseBinanceTicker(message []byte) (quote, error) {
	var t binanceTicker
	if err := json.Unmarshal(message, &t); err != nil {
		return quote{}, err
	}
	if t.Bid == "" || t.Ask == "" {
		return quote{}, nil
	}
	bid, err := strconv.ParseFloat(t.Bid, 64)
	if err != nil {
		return quote{}, fmt.Errorf("parse bid price: %w", err)
	}
	ask, err := strconv.ParseFloat(t.Ask, 64)
	if err != nil {
		return quote{}, fmt.Errorf("parse ask price: %w", err)
	}
	return quote{bid: bid, ask: ask, ok: true}, nil
}
