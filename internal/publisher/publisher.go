package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cryptobot/internal/model"
)

// Publisher delivers rendered text to a destination.
type Publisher interface {
	Publish(ctx context.Context, text string) error
}

// Recorder receives the outcome of each delivery.
type Recorder interface {
	Publish(target string, err error)
}

// Target is a named destination.
type Target struct {
	Name      string
	Publisher Publisher
}

// Multi delivers every message to all of its targets.
type Multi struct {
	logger  *slog.Logger
	targets []Target
	rec     Recorder
}

// NewMulti creates a Multi publisher. rec may be nil.
func NewMulti(logger *slog.Logger, rec Recorder, targets ...Target) *Multi {
	return &Multi{logger: logger, targets: targets, rec: rec}
}

// Publish sends text to every target. A failing target does not stop the others; the
// combined error wraps model.ErrPublishFailed.
func (m *Multi) Publish(ctx context.Context, text string) error {
	var errs []error
	for _, t := range m.targets {
		err := t.Publisher.Publish(ctx, text)
		if m.rec != nil {
			m.rec.Publish(t.Name, err)
		}
		if err != nil {
			m.logger.Error("Publisher: delivery failed", "target", t.Name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", t.Name, err))
			continue
		}
		m.logger.Debug("Publisher: delivered", "target", t.Name, "text", text)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", model.ErrPublishFailed, errors.Join(errs...))
	}
	return nil
}
