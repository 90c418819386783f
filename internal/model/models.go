package model

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Symbol identifies a tracked asset, e.g. "BTC".
type Symbol string

// TrackedSymbols is the fixed set of assets, in report order.
var TrackedSymbols = []Symbol{"BTC", "XRP", "ETH", "SOL"}

// Quote currencies requested from the market-data API.
const (
	CurrencyEUR = "EUR"
	CurrencyUSD = "USD"
)

// Quote holds one symbol's price in both quote currencies for one cycle.
type Quote struct {
	EUR decimal.Decimal
	USD decimal.Decimal
}

// PriceSnapshot maps each resolved symbol to its quote for the current cycle.
// It is built once by the fetcher and not modified afterwards.
type PriceSnapshot map[Symbol]Quote

// Symbols returns the snapshot's symbols in TrackedSymbols order, followed by any
// untracked symbols in lexical order.
func (s PriceSnapshot) Symbols() []Symbol {
	out := make([]Symbol, 0, len(s))
	seen := make(map[Symbol]struct{}, len(s))
	for _, sym := range TrackedSymbols {
		if _, ok := s[sym]; ok {
			out = append(out, sym)
			seen[sym] = struct{}{}
		}
	}
	var extra []Symbol
	for sym := range s {
		if _, ok := seen[sym]; !ok {
			extra = append(extra, sym)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}

// PriceDelta is the change of a symbol's EUR price against the previous cycle.
type PriceDelta struct {
	Current       decimal.Decimal
	Change        decimal.Decimal
	PercentChange decimal.Decimal
	// FirstSighting is set when no prior price existed; Change and PercentChange are zero.
	FirstSighting bool
}

// CycleStats are the process-wide counters and timestamps of the update loop.
type CycleStats struct {
	UpdateCount          int       `json:"update_count"`
	LastSuccessfulUpdate time.Time `json:"last_successful_update"`
	LastUpdateStarted    time.Time `json:"last_update_started"`
}

// ArchivedQuote is one symbol's row in the snapshot archive.
type ArchivedQuote struct {
	ID            int64           `db:"id"`
	Cycle         int             `db:"cycle"`
	Symbol        Symbol          `db:"symbol"`
	EURPrice      decimal.Decimal `db:"eur_price"`
	USDPrice      decimal.Decimal `db:"usd_price"`
	ChangeEUR     decimal.Decimal `db:"change_eur"`
	PercentChange decimal.Decimal `db:"percent_change"`
	FirstSighting bool            `db:"first_sighting"`
	ObservedAt    time.Time       `db:"observed_at"`
}
