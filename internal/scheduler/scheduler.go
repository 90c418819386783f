package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"cryptobot/internal/database"
	"cryptobot/internal/model"
	"cryptobot/internal/publisher"
	"cryptobot/internal/report"
	"cryptobot/internal/tracker"
)

// RecoveryDelay is the pause after a failed cycle.
const RecoveryDelay = 5 * time.Second

// PriceFetcher returns the current quotes for symbols.
type PriceFetcher interface {
	FetchPrices(ctx context.Context, symbols []model.Symbol) (model.PriceSnapshot, error)
}

// Summarizer turns deltas into narrative text. It must not fail.
type Summarizer interface {
	Summarize(ctx context.Context, deltas map[model.Symbol]model.PriceDelta, volatility map[model.Symbol]float64) string
}

// Recorder receives cycle outcomes.
type Recorder interface {
	CycleSucceeded(at time.Time, took time.Duration, resolved int)
	CycleFailed()
}

// Deps are the collaborators of a Scheduler. Archive and Metrics are optional.
type Deps struct {
	Fetcher    PriceFetcher
	Tracker    *tracker.Tracker
	Summarizer Summarizer
	Formatter  *report.Formatter
	Publisher  publisher.Publisher
	Archive    database.Repository
	Metrics    Recorder
}

// Scheduler runs the fetch, compute, summarize, format, publish loop.
// Only one cycle is ever in flight.
type Scheduler struct {
	logger   *slog.Logger
	deps     Deps
	symbols  []model.Symbol
	interval time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	// stats and state are written only by the loop goroutine; readers get a consistent copy.
	stats atomic.Pointer[model.CycleStats]
	state atomic.Int32
}

// New creates a Scheduler for symbols, sleeping interval between successful cycles.
func New(logger *slog.Logger, deps Deps, symbols []model.Symbol, interval time.Duration) *Scheduler {
	s := &Scheduler{
		logger:   logger,
		deps:     deps,
		symbols:  symbols,
		interval: interval,
		now:      time.Now,
		sleep:    sleepContext,
	}
	s.stats.Store(&model.CycleStats{})
	return s
}

// Stats returns a copy of the current cycle statistics.
func (s *Scheduler) Stats() model.CycleStats {
	return *s.stats.Load()
}

// State returns the current cycle state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

func (s *Scheduler) setState(st State) {
	s.state.Store(int32(st))
	s.logger.Debug("Scheduler: state", "state", st.String())
}

// LastUpdateStarted returns when the current wait for the next cycle began.
func (s *Scheduler) LastUpdateStarted() time.Time {
	return s.stats.Load().LastUpdateStarted
}

// Interval returns the configured update interval.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// AnnounceStartup publishes the startup status report.
func (s *Scheduler) AnnounceStartup(ctx context.Context) {
	msg := s.deps.Formatter.Startup(s.symbols, s.now())
	s.logger.Debug("Scheduler: startup message", "text", msg)
	s.publish(ctx, msg)
}

// Run loops until ctx is cancelled. Cycle failures are reported to the channel and
// retried after RecoveryDelay; they never end the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	start := s.now()
	s.stats.Store(&model.CycleStats{LastSuccessfulUpdate: start, LastUpdateStarted: start})
	s.logger.Info("Scheduler: started", "interval", s.interval, "symbols", len(s.symbols))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		delay := s.interval
		if err := s.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.handleError(ctx, err)
			delay = RecoveryDelay
		}

		s.setState(StateSleeping)
		s.logger.Debug("Scheduler: sleeping", "delay", delay)
		if err := s.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// RunCycle performs one update. It returns an error only when no price report could
// be produced; publish and archive failures are logged and swallowed.
func (s *Scheduler) RunCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Scheduler: cycle panicked", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("unexpected error: %v", r)
		}
	}()

	started := s.now()
	prev := s.Stats()

	s.setState(StateFetching)
	snapshot, err := s.deps.Fetcher.FetchPrices(ctx, s.symbols)
	if err != nil {
		return err
	}

	s.setState(StateComputing)
	deltas := s.deps.Tracker.Track(snapshot)

	volatility := make(map[model.Symbol]float64, len(snapshot))
	for sym := range snapshot {
		volatility[sym] = s.deps.Tracker.History().Volatility(sym)
	}
	s.setState(StateSummarizing)
	summary := s.deps.Summarizer.Summarize(ctx, deltas, volatility)

	s.setState(StateFormatting)
	count := prev.UpdateCount + 1
	msg := s.deps.Formatter.Update(snapshot, deltas, count, s.now(), summary)

	s.setState(StatePublishing)
	s.publish(ctx, msg)

	done := s.now()
	s.stats.Store(&model.CycleStats{
		UpdateCount:          count,
		LastSuccessfulUpdate: done,
		LastUpdateStarted:    done,
	})
	if s.deps.Metrics != nil {
		s.deps.Metrics.CycleSucceeded(done, done.Sub(started), len(snapshot))
	}
	s.logger.Info("Scheduler: update complete", "update", count, "symbols", len(snapshot), "took", done.Sub(started))

	s.archive(ctx, count, snapshot, deltas, done)
	return nil
}

func (s *Scheduler) handleError(ctx context.Context, err error) {
	s.setState(StateErrorHandling)
	if s.deps.Metrics != nil {
		s.deps.Metrics.CycleFailed()
	}

	s.logger.Error("Scheduler: cycle failed",
		"error", err,
		"exhausted", errors.Is(err, model.ErrFetchExhausted),
		"noPrices", errors.Is(err, model.ErrNoPricesAvailable),
	)
	s.publish(ctx, s.deps.Formatter.Error(err, s.Stats().LastSuccessfulUpdate, s.now()))
}

func (s *Scheduler) publish(ctx context.Context, msg string) {
	if err := s.deps.Publisher.Publish(ctx, msg); err != nil {
		s.logger.Error("Scheduler: error sending message", "error", err)
	}
}

func (s *Scheduler) archive(ctx context.Context, cycle int, snapshot model.PriceSnapshot, deltas map[model.Symbol]model.PriceDelta, at time.Time) {
	if s.deps.Archive == nil {
		return
	}

	quotes := make([]model.ArchivedQuote, 0, len(snapshot))
	for _, sym := range snapshot.Symbols() {
		q, d := snapshot[sym], deltas[sym]
		quotes = append(quotes, model.ArchivedQuote{
			Cycle:         cycle,
			Symbol:        sym,
			EURPrice:      q.EUR,
			USDPrice:      q.USD,
			ChangeEUR:     d.Change,
			PercentChange: d.PercentChange,
			FirstSighting: d.FirstSighting,
			ObservedAt:    at,
		})
	}
	if err := s.deps.Archive.ArchiveSnapshot(ctx, quotes); err != nil {
		s.logger.Error("Scheduler: failed to archive snapshot", "error", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
