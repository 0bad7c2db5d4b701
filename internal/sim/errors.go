package sim

import "errors"

// Sentinel errors for the simulation engine. The handler layer maps these
// to HTTP status codes and user-facing notices.
var (
	ErrInstrumentNotFound = errors.New("instrument_not_found")
	ErrInsufficientFunds  = errors.New("insufficient_funds")
	ErrNotOwned           = errors.New("not_owned")
	ErrSessionClosed      = errors.New("session_closed")
)
