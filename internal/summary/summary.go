// Package summary asks a chat-completion API for a short market summary.
// Failures never propagate: callers always get text back.
package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"cryptobot/internal/model"
	"cryptobot/internal/report"
)

const (
	DisabledText    = "⚠️ AI Analysis is currently disabled."
	UnavailableText = "⚠️ AI Analysis unavailable at this time."
	header          = "\n\n📊 Quick Analysis:\n"
	title           = "Crypto Analysis Bot"
)

// Recorder receives the result of each summary request.
type Recorder interface {
	Summary(result string)
}

type noopRecorder struct{}

func (noopRecorder) Summary(string) {}

// Options configures a Summarizer.
type Options struct {
	Enabled bool
	APIKey  string
	BaseURL string
	Model   string
	Referer string
	Timeout time.Duration
}

// Summarizer turns price deltas into narrative text.
type Summarizer struct {
	logger *slog.Logger
	opts   Options
	client *http.Client
	rec    Recorder
}

// NewSummarizer creates a Summarizer. The HTTP client is bounded by opts.Timeout.
func NewSummarizer(logger *slog.Logger, opts Options, rec Recorder) *Summarizer {
	if rec == nil {
		rec = noopRecorder{}
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Summarizer{
		logger: logger,
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		rec:    rec,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// Summarize returns the analysis for deltas, or a placeholder when disabled or on any failure.
// volatility may be nil.
func (s *Summarizer) Summarize(ctx context.Context, deltas map[model.Symbol]model.PriceDelta, volatility map[model.Symbol]float64) string {
	if !s.opts.Enabled {
		s.rec.Summary("disabled")
		return DisabledText
	}

	text, err := s.complete(ctx, Prompt(deltas, volatility))
	if err != nil {
		s.logger.Error("Summarizer: AI analysis error", "error", err)
		s.rec.Summary("unavailable")
		return UnavailableText
	}

	s.rec.Summary("ok")
	return header + text
}

func (s *Summarizer) complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:    s.opts.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.opts.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.opts.APIKey)
	req.Header.Set("X-Title", title)
	if s.opts.Referer != "" {
		req.Header.Set("HTTP-Referer", s.opts.Referer)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrSummarizationUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", model.ErrSummarizationUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d: %s", model.ErrSummarizationUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	content := gjson.GetBytes(body, "choices.0.message.content")
	if !gjson.ValidBytes(body) || content.Type != gjson.String {
		return "", fmt.Errorf("%w: response has no message content", model.ErrSummarizationUnavailable)
	}
	return strings.TrimSpace(content.String()), nil
}

// Prompt builds the analysis request listing each symbol's price and change.
func Prompt(deltas map[model.Symbol]model.PriceDelta, volatility map[model.Symbol]float64) string {
	snapshot := make(model.PriceSnapshot, len(deltas))
	for sym := range deltas {
		snapshot[sym] = model.Quote{}
	}

	var prices strings.Builder
	prices.WriteString("Current Prices:\n")
	for _, sym := range snapshot.Symbols() {
		d := deltas[sym]
		fmt.Fprintf(&prices, "%s: Current: €%s, Change: %s (%s%%)",
			sym, report.Number(d.Current), report.Signed(d.Change), report.Signed(d.PercentChange))
		if v := volatility[sym]; v > 0 {
			fmt.Fprintf(&prices, ", Volatility: %.2f%%", v)
		}
		prices.WriteByte('\n')
	}

	return fmt.Sprintf(`
Analyze this cryptocurrency data and provide a simple trading summary:

%s
Provide a brief overview:
1. Which coins are trending up/down?
2. Which coins have high volatility?
3. One key trading opportunity, if any.
4. Main risk to watch for.

Keep the analysis simple and actionable. Focus on the most important points only.`, prices.String())
}
