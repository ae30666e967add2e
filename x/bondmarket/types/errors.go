package types

import (
	"cosmossdk.io/errors"
)

// Module error codes
var (
	// Input validation
	ErrZeroAmount  = errors.Register("bondmarket", 1, "zero-sized trade")
	ErrZeroDeposit = errors.Register("bondmarket", 2, "deposit amount must be positive")

	// Temporal validation
	ErrMaturityTooSoon    = errors.Register("bondmarket", 10, "time to maturity below trading band")
	ErrMaturityTooFar     = errors.Register("bondmarket", 11, "time to maturity above trading band")
	ErrMaturityNotActive  = errors.Register("bondmarket", 12, "maturity not in the active registry")
	ErrMaturityActive     = errors.Register("bondmarket", 13, "maturity is still active")
	ErrMaturityNotReached = errors.Register("bondmarket", 14, "maturity timestamp not yet reached")
	ErrInvalidHint        = errors.Register("bondmarket", 15, "invalid registry predecessor hint")

	// Invariant/math validation
	ErrInvariantViolated = errors.Register("bondmarket", 20, "swap would violate the pool invariant")
	ErrRateOutOfBounds   = errors.Register("bondmarket", 21, "resulting utilization outside configured band")

	// Liquidity/solvency
	ErrInsufficientLiquidPrincipal = errors.Register("bondmarket", 30, "insufficient liquid principal")
	ErrNegativeEquity              = errors.Register("bondmarket", 31, "nominal equity is not positive")
	ErrSolvencyFloorViolated       = errors.Register("bondmarket", 32, "risk-weighted equity below solvency floor")
)
