package model

import "errors"

// Failure kinds reported by the engine. Callers match them with errors.Is.
var (
	ErrDivideByZero          = errors.New("divide by zero")
	ErrOverflow              = errors.New("overflow")
	ErrNoLiquidity           = errors.New("no liquidity")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity in the pool")
	ErrHighSlippage          = errors.New("slippage greater than permissible")
	ErrInvalidLpAmount       = errors.New("invalid lp amount")
	ErrStoptapActivated      = errors.New("stoptap activated")
	ErrInvalidPythAccount    = errors.New("invalid price feed account")
	ErrPoolANotActive        = errors.New("pool a not active")
	ErrPoolBNotActive        = errors.New("pool b not active")
	ErrMissingAccount        = errors.New("missing account")
	ErrMissingSPLAccount     = errors.New("missing token account")
	ErrInvalidAdmin          = errors.New("invalid admin")
	ErrPriceNotAvailable     = errors.New("price not available")
	ErrSameAsset             = errors.New("input and output assets are equal")
	ErrInvalidBaseFee        = errors.New("base fee exceeds fee scale")
	ErrAlreadyInitialized    = errors.New("treasury already initialized")
	ErrPoolExists            = errors.New("pool already exists")
)
