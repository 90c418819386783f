package marketdata

import (
	"fmt"
	"log/slog"

	"cryptobot/internal/config"
)

const sandboxBaseURL = "https://sandbox-api.coinmarketcap.com"

// NewClient creates a market-data client based on the given provider name and configuration.
func NewClient(name string, logger *slog.Logger, cfg config.MarketDataConfig, rec Recorder) (Client, error) {
	switch name {
	case "coinmarketcap":
		return NewCoinMarketCapClient(logger, cfg.BaseURL, cfg.APIKey, cfg.Timeout, rec), nil
	case "coinmarketcap-sandbox":
		return NewCoinMarketCapClient(logger, sandboxBaseURL, cfg.APIKey, cfg.Timeout, rec), nil
	default:
		return nil, fmt.Errorf("unknown market-data provider: %s", name)
	}
}
