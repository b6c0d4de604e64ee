package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgnsrekt/pcr_agent/internal/analyzer"
)

const (
	CodeValidation      = "VALIDATION"
	CodeNotFound        = "NOT_FOUND"
	CodeDataUnavailable = "DATA_UNAVAILABLE"
	CodeAccessDenied    = "ACCESS_DENIED"
	CodeThrottled       = "THROTTLED"
)

// CodedError is a typed error used for stable API mapping.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *CodedError) Unwrap() error { return e.Cause }

func newError(code, msg string, cause error) error {
	return &CodedError{Code: code, Message: msg, Cause: cause}
}

// IsDataUnavailable reports whether err is a fetch-side failure the poll loop
// should skip and retry.
func IsDataUnavailable(err error) bool {
	var coded *CodedError
	if !errors.As(err, &coded) {
		return false
	}
	switch coded.Code {
	case CodeDataUnavailable, CodeAccessDenied, CodeThrottled:
		return true
	}
	return false
}

// Chain is one fetched option-chain snapshot.
type Chain struct {
	Symbol    string          `json:"symbol"`
	Spot      float64         `json:"spot"`
	Expiry    string          `json:"expiry,omitempty"`
	Ladder    analyzer.Ladder `json:"ladder"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`
	Simulated bool            `json:"simulated"`
}

// Source supplies option chains for one index at a time.
type Source interface {
	Name() string
	Fetch(ctx context.Context, symbol string) (Chain, error)
}

// Indices are the NSE index symbols with listed option chains.
var Indices = []string{"NIFTY", "BANKNIFTY", "FINNIFTY", "MIDCPNIFTY"}
