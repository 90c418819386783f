package marketdata

import (
	"context"

	"cryptobot/internal/model"
)

// Client defines the standard interface for market-data clients.
type Client interface {
	GetName() string
	FetchPrices(ctx context.Context, symbols []model.Symbol) (model.PriceSnapshot, error)
}

// Recorder receives request and retry counts.
type Recorder interface {
	MarketDataRequest()
	FetchRetry()
}

type noopRecorder struct{}

func (noopRecorder) MarketDataRequest() {}
func (noopRecorder) FetchRetry()        {}
