package ledger

import (
	"errors"
	"fmt"
)

var ErrTradeNotFound = errors.New("trade not found")

// OversellError is returned when a SELL would exceed the held share count.
// The projector itself never raises it; the check happens before the ledger
// is touched so the caller can correct the input.
type OversellError struct {
	Ticker    string
	Requested float64
	Held      float64
}

func (e *OversellError) Error() string {
	return fmt.Sprintf(
		"cannot sell %g shares of %s: only %g held; record a BUY trade first if an existing position has no purchase history",
		e.Requested, e.Ticker, e.Held)
}

// ValidationError rejects malformed ledger input before any mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
