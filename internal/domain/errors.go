package domain

import "errors"

// Sentinel errors shared by services and mapped to HTTP statuses at
// the handler layer. Services wrap these with %w and context; callers
// test with errors.Is.
var (
	// ErrValidation - malformed request (quantity, ticker, action),
	// rejected before any state mutation
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientFunds - buy cost exceeds available cash
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientPosition - sell quantity exceeds held quantity
	ErrInsufficientPosition = errors.New("insufficient position")

	// ErrLimitExceeded - position sizing blocked the trade
	ErrLimitExceeded = errors.New("position limit exceeded")

	// ErrUnknownSimulation - no simulation with the given id
	ErrUnknownSimulation = errors.New("unknown simulation")

	// ErrUnknownAsset - ticker not present in the universe
	ErrUnknownAsset = errors.New("unknown asset")

	// ErrDataUnavailable - price or history missing; consumers degrade
	// the affected sub-score to neutral instead of aborting
	ErrDataUnavailable = errors.New("market data unavailable")

	// ErrModelUnavailable - probability provider down; consumers
	// degrade the ml sub-score to neutral
	ErrModelUnavailable = errors.New("probability model unavailable")
)
