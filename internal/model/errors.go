package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfigMissing is returned when required configuration keys are absent.
	ErrConfigMissing = errors.New("missing required configuration")
	// ErrFetchExhausted is returned when every market-data attempt failed.
	ErrFetchExhausted = errors.New("price fetch retries exhausted")
	// ErrNoPricesAvailable is returned when a fetch resolved zero symbols.
	ErrNoPricesAvailable = errors.New("no cryptocurrency prices were successfully fetched")
	// ErrSummarizationUnavailable marks a failed summary call. It never leaves the summary package.
	ErrSummarizationUnavailable = errors.New("summarization unavailable")
	// ErrPublishFailed marks a failed delivery.
	ErrPublishFailed = errors.New("publish failed")
)

// FetchExhaustedError carries the last request failure after all attempts were used.
type FetchExhaustedError struct {
	Attempts int
	Err      error
}

func (e *FetchExhaustedError) Error() string {
	return fmt.Sprintf("failed to fetch prices after %d attempts: %v", e.Attempts, e.Err)
}

func (e *FetchExhaustedError) Unwrap() []error {
	return []error{ErrFetchExhausted, e.Err}
}

// MissingKeysError names every required key absent from the configuration.
type MissingKeysError struct {
	Keys []string
}

func (e *MissingKeysError) Error() string {
	return fmt.Sprintf("%v: %s", ErrConfigMissing, strings.Join(e.Keys, ", "))
}

func (e *MissingKeysError) Unwrap() error {
	return ErrConfigMissing
}
