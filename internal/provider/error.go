package provider

import "fmt"

// Error wraps an upstream failure with the symbol and operation it
// belongs to. The scheduler contains these per symbol; they never
// surface as process-level failures.
type Error struct {
	Symbol string
	Op     string // "quote" or "history"
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s %s: %v", e.Op, e.Symbol, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func quoteErr(symbol string, err error) error {
	return &Error{Symbol: symbol, Op: "quote", Err: err}
}

func historyErr(symbol string, err error) error {
	return &Error{Symbol: symbol, Op: "history", Err: err}
}
