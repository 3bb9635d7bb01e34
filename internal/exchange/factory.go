package exchange

import (
	"fmt"
	"log/slog"

	"praxis/internal/config"
)

// NewClient creates a new exchange client based on the given name and configuration.
func NewClient(name string, logger *slog.Logger, cfg *config.FeedConfig) (ExchangeClient, error) {
	switch name {
	case "kraken":
		return NewKrakenClient(logger, cfg.URL), nil
	case "binance":
		return NewBinanceClient(logger, cfg.URL), nil
	default:
		return nil, fmt.Errorf("unknown exchange: %s", name)
	}
}
