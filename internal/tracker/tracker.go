package tracker

import (
	"log/slog"
	"math"

	"github.com/shopspring/decimal"

	"cryptobot/internal/model"
)

var hundred = decimal.NewFromInt(100)

// History is the per-symbol price state carried between cycles: the last EUR price
// and a bounded window of recent EUR prices.
type History struct {
	last     map[model.Symbol]decimal.Decimal
	windows  map[model.Symbol]*Ring[decimal.Decimal]
	capacity int
}

// NewHistory creates an empty history keeping up to capacity points per symbol.
func NewHistory(capacity int) *History {
	return &History{
		last:     make(map[model.Symbol]decimal.Decimal),
		windows:  make(map[model.Symbol]*Ring[decimal.Decimal]),
		capacity: capacity,
	}
}

// Last returns the stored EUR price for sym.
func (h *History) Last(sym model.Symbol) (decimal.Decimal, bool) {
	p, ok := h.last[sym]
	return p, ok
}

// Deltas computes the change of every snapshot symbol against the stored prices.
// It does not modify h.
func (h *History) Deltas(snapshot model.PriceSnapshot) map[model.Symbol]model.PriceDelta {
	deltas := make(map[model.Symbol]model.PriceDelta, len(snapshot))
	for sym, quote := range snapshot {
		prior, ok := h.last[sym]
		if !ok {
			deltas[sym] = model.PriceDelta{
				Current:       quote.EUR,
				Change:        decimal.Zero,
				PercentChange: decimal.Zero,
				FirstSighting: true,
			}
			continue
		}

		change := quote.EUR.Sub(prior)
		percent := decimal.Zero
		if !prior.IsZero() {
			percent = change.Div(prior).Mul(hundred)
		}
		deltas[sym] = model.PriceDelta{
			Current:       quote.EUR,
			Change:        change,
			PercentChange: percent,
		}
	}
	return deltas
}

// Record stores the snapshot's EUR prices. Symbols absent from the snapshot keep
// their previous price.
func (h *History) Record(snapshot model.PriceSnapshot) {
	for sym, quote := range snapshot {
		h.last[sym] = quote.EUR
		w, ok := h.windows[sym]
		if !ok {
			w = NewRing[decimal.Decimal](h.capacity)
			h.windows[sym] = w
		}
		w.Push(quote.EUR)
	}
}

// Volatility returns the sample standard deviation of successive percent returns in
// the symbol's window, or zero with fewer than two returns.
func (h *History) Volatility(sym model.Symbol) float64 {
	w, ok := h.windows[sym]
	if !ok || w.Len() < 3 {
		return 0
	}

	prices := w.Values()
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1].IsZero() {
			continue
		}
		r := prices[i].Sub(prices[i-1]).Div(prices[i-1]).Mul(hundred)
		returns = append(returns, r.InexactFloat64())
	}
	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var sumSquares float64
	for _, r := range returns {
		sumSquares += (r - mean) * (r - mean)
	}
	return math.Sqrt(sumSquares / float64(len(returns)-1))
}

// Tracker turns successive snapshots into deltas.
type Tracker struct {
	logger  *slog.Logger
	history *History
}

// NewTracker creates a Tracker that owns history.
func NewTracker(logger *slog.Logger, history *History) *Tracker {
	return &Tracker{logger: logger, history: history}
}

// Track computes deltas for snapshot against the previous cycle, then records the
// snapshot. Deltas never reflect the prices written by the same call.
func (t *Tracker) Track(snapshot model.PriceSnapshot) map[model.Symbol]model.PriceDelta {
	deltas := t.history.Deltas(snapshot)
	t.history.Record(snapshot)

	for sym, d := range deltas {
		if d.FirstSighting {
			t.logger.Debug("Tracker: first sighting", "symbol", sym, "price", d.Current.StringFixed(2))
			continue
		}
		t.logger.Debug("Tracker: price change",
			"symbol", sym,
			"change", d.Change.StringFixed(2),
			"percent", d.PercentChange.StringFixed(2),
		)
	}
	return deltas
}

// History returns the tracker's state.
func (t *Tracker) History() *History {
	return t.history
}
