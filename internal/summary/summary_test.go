package summary

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cryptobot/internal/model"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Summary(result string) {
	m.Called(result)
}

func sampleDeltas() map[model.Symbol]model.PriceDelta {
	return map[model.Symbol]model.PriceDelta{
		"BTC": {Current: decimal.RequireFromString("51000"), Change: decimal.RequireFromString("1000"), PercentChange: decimal.RequireFromString("2")},
		"ETH": {Current: decimal.RequireFromString("2400"), Change: decimal.RequireFromString("-100"), PercentChange: decimal.RequireFromString("-4")},
	}
}

func newSummarizer(t *testing.T, handler http.HandlerFunc, rec Recorder) *Summarizer {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewSummarizer(testLogger, Options{
		Enabled: true,
		APIKey:  "sk-test",
		BaseURL: ts.URL + "/",
		Model:   "test-model",
		Referer: "https://bot.example",
		Timeout: 2 * time.Second,
	}, rec)
}

func TestSummarize_Disabled(t *testing.T) {
	rec := new(MockRecorder)
	rec.On("Summary", "disabled").Return().Once()

	s := NewSummarizer(testLogger, Options{Enabled: false, BaseURL: "http://127.0.0.1:1"}, rec)
	assert.Equal(t, DisabledText, s.Summarize(context.Background(), sampleDeltas(), nil))
	rec.AssertExpectations(t)
}

func TestSummarize_Success(t *testing.T) {
	rec := new(MockRecorder)
	rec.On("Summary", "ok").Return().Once()

	s := newSummarizer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "Crypto Analysis Bot", r.Header.Get("X-Title"))
		assert.Equal(t, "https://bot.example", r.Header.Get("HTTP-Referer"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Contains(t, req.Messages[0].Content, "BTC: Current: €51,000.00, Change: +1,000.00 (+2.00%)")
		assert.Contains(t, req.Messages[0].Content, "ETH: Current: €2,400.00, Change: -100.00 (-4.00%)")

		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"  BTC up, ETH down.\n"}}]}`)
	}, rec)

	got := s.Summarize(context.Background(), sampleDeltas(), nil)
	assert.Equal(t, "\n\n📊 Quick Analysis:\nBTC up, ETH down.", got)
	rec.AssertExpectations(t)
}

func TestSummarize_FailuresDegradeToPlaceholder(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non-2xx", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
		}},
		{"empty choices", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"choices":[]}`)
		}},
		{"invalid json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `not json`)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := new(MockRecorder)
			rec.On("Summary", "unavailable").Return().Once()

			s := newSummarizer(t, tt.handler, rec)
			assert.Equal(t, UnavailableText, s.Summarize(context.Background(), sampleDeltas(), nil))
			rec.AssertExpectations(t)
		})
	}
}

func TestSummarize_TimeoutDegrades(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
	}))
	defer ts.Close()
	defer close(release)

	s := NewSummarizer(testLogger, Options{Enabled: true, BaseURL: ts.URL, Timeout: 50 * time.Millisecond}, nil)
	assert.Equal(t, UnavailableText, s.Summarize(context.Background(), sampleDeltas(), nil))
	assert.Equal(t, int32(1), calls.Load())
}

func TestPrompt_IncludesVolatilityWhenKnown(t *testing.T) {
	p := Prompt(sampleDeltas(), map[model.Symbol]float64{"BTC": 1.234})
	assert.Contains(t, p, "BTC: Current: €51,000.00, Change: +1,000.00 (+2.00%), Volatility: 1.23%\n")
	assert.Contains(t, p, "ETH: Current: €2,400.00, Change: -100.00 (-4.00%)\n")
	assert.Contains(t, p, "Which coins are trending up/down?")
}
