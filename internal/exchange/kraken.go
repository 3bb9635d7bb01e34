package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"praxis/internal/model"
)

const krakenURL = "wss://ws.kraken.com"

// KrakenClient implements the ExchangeClient interface for Kraken.
type KrakenClient struct {
	logger *slog.Logger
	url    string
	stream *streamer
}

// NewKrakenClient creates a new KrakenClient. An empty url uses the public endpoint.
func NewKrakenClient(logger *slog.Logger, url string) *KrakenClient {
	if url == "" {
		url = krakenURL
	}
	k := &KrakenClient{logger: logger, url: url}
	k.stream = &streamer{
		logger:    logger,
		exchange:  k.GetName(),
		subscribe: subscribeKraken,
		parse:     parseKrakenTicker,
	}
	return k
}

func (k *KrakenClient) GetName() string {
	return "kraken"
}

// StartStream connects to the Kraken WebSocket API and streams price ticks for pair.
func (k *KrakenClient) StartStream(ctx context.Context, priceChan chan<- model.PriceTick, pair string) error {
	return k.stream.run(ctx, k.url, priceChan, pair)
}

// krakenPair maps common asset codes to Kraken's ("BTC/EUR" -> "XBT/EUR").
func krakenPair(pair string) string {
	base, quoteAsset, found := strings.Cut(pair, "/")
	if !found {
		return pair
	}
	if base == "BTC" {
		base = "XBT"
	}
	return base + "/" + quoteAsset
}

func subscribeKraken(c *websocket.Conn, pair string) error {
	subscription := map[string]interface{}{
		"event": "subscribe",
		"pair":  []string{krakenPair(pair)},
		"subscription": map[string]string{
			"name": "ticker",
		},
	}
	return c.WriteJSON(subscription)
}

// Ticker data arrives as [channelID, tickerData, channelName, pair]; control
// messages such as heartbeats and subscriptionStatus are JSON objects.
func parseKrakenTicker(message []byte) (quote, error) {
	var frame []json.RawMessage
	if err := json.Unmarshal(message, &frame); err != nil {
		var event struct {
			Event string `json:"event"`
		}
		if json.Unmarshal(message, &event) == nil && event.Event != "" {
			return quote{}, nil
		}
		return quote{}, err
	}
	if len(frame) < 2 {
		return quote{}, fmt.Errorf("short ticker frame: %d elements", len(frame))
	}

	// price levels are [price, wholeLotVolume, lotVolume] with mixed types
	var data struct {
		Ask []json.RawMessage `json:"a"`
		Bid []json.RawMessage `json:"b"`
	}
	if err := json.Unmarshal(frame[1], &data); err != nil {
		return quote{}, err
	}
	if len(data.Bid) == 0 || len(data.Ask) == 0 {
		return quote{}, nil
	}
	bid, err := krakenPrice(data.Bid[0])
	if err != nil {
		return quote{}, fmt.Errorf("parse bid price: %w", err)
	}
	ask, err := krakenPrice(data.Ask[0])
	if err != nil {
		return quote{}, fmt.Errorf("parse ask price: %w", err)
	}
	return quote{bid: bid, ask: ask, ok: true}, nil
}

func krakenPrice(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(s, 64)
}
