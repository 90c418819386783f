// Package report renders the messages sent to the channel.
package report

import (
	"fmt"
	"strings"
	"time"

	"cryptobot/internal/model"
)

var glyphs = map[model.Symbol]string{
	"BTC": "₿",
	"ETH": "⟠",
	"SOL": "◎",
	"XRP": "✖",
}

const fallbackGlyph = "🪙"

// Glyph returns the display glyph for sym.
func Glyph(sym model.Symbol) string {
	if g, ok := glyphs[sym]; ok {
		return g
	}
	return fallbackGlyph
}

// Update holds everything a price report is rendered from.
type Update struct {
	Snapshot    model.PriceSnapshot
	Deltas      map[model.Symbol]model.PriceDelta
	UpdateCount int
	Now         time.Time
	NextUpdate  time.Time
	Summary     string
}

// FormatUpdate renders a price report. Times are printed in their own location.
func FormatUpdate(u Update) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🔄 Crypto Update #%d • %s\n", u.UpdateCount, u.Now.Format("15:04 02-01-2006"))
	fmt.Fprintf(&b, "⏳ Next update at: %s\n\n", u.NextUpdate.Format("15:04"))

	for _, sym := range u.Snapshot.Symbols() {
		quote := u.Snapshot[sym]
		fmt.Fprintf(&b, "%s %s: €%s | $%s", Glyph(sym), sym, Number(quote.EUR), Number(quote.USD))

		if delta, ok := u.Deltas[sym]; ok && !delta.FirstSighting {
			direction := "📈"
			if delta.Change.IsNegative() {
				direction = "📉"
			}
			fmt.Fprintf(&b, " %s %s%%", direction, Signed(delta.PercentChange))
		}
		b.WriteByte('\n')
	}

	b.WriteString(u.Summary)
	return b.String()
}

// Formatter fills in the clock-dependent parts of a report.
type Formatter struct {
	location *time.Location
	interval time.Duration
}

// NewFormatter creates a Formatter printing times in loc for the given update interval.
func NewFormatter(loc *time.Location, interval time.Duration) *Formatter {
	if loc == nil {
		loc = time.UTC
	}
	return &Formatter{location: loc, interval: interval}
}

// Update renders a price report at now. The next update is predicted from the
// interval in whole minutes.
func (f *Formatter) Update(snapshot model.PriceSnapshot, deltas map[model.Symbol]model.PriceDelta, updateCount int, now time.Time, summary string) string {
	local := now.In(f.location)
	return FormatUpdate(Update{
		Snapshot:    snapshot,
		Deltas:      deltas,
		UpdateCount: updateCount,
		Now:         local,
		NextUpdate:  local.Add(f.interval.Truncate(time.Minute)),
		Summary:     summary,
	})
}

// Error renders the report sent when a cycle fails.
func (f *Formatter) Error(err error, lastSuccess, now time.Time) string {
	const layout = "2006-01-02 15:04:05"
	return "⚠️ Bot Error Occurred\n" +
		fmt.Sprintf("❌ Error: %v\n", err) +
		fmt.Sprintf("🔄 Last Successful Update: %s UTC\n", lastSuccess.UTC().Format(layout)) +
		fmt.Sprintf("🕒 Error Time: %s UTC\n", now.UTC().Format(layout)) +
		"♻️ Attempting to reconnect..."
}

// Startup renders the one-time status report.
func (f *Formatter) Startup(symbols []model.Symbol, now time.Time) string {
	names := make([]string, len(symbols))
	for i, sym := range symbols {
		names[i] = string(sym)
	}
	return "🤖 Bot Started\n" +
		"✅ Status: Online\n" +
		fmt.Sprintf("🪙 Tracking: %s.\n", strings.Join(names, ", ")) +
		fmt.Sprintf("⏱️ Update Interval: %d minutes.\n", int(f.interval/time.Minute)) +
		fmt.Sprintf("🕒 Start Time: %s.", now.In(f.location).Format("02-01-2006 15:04:05"))
}

// Countdown renders the time-remaining notice.
func Countdown(remaining time.Duration) string {
	minutes := int(remaining / time.Minute)
	seconds := int((remaining % time.Minute) / time.Second)
	return fmt.Sprintf("Time remaining for next update: %d minutes and %d seconds.", minutes, seconds)
}
