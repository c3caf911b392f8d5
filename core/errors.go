package core

import (
	"errors"
	"strconv"
)

// ErrorCode int
type ErrorCode int

const (
	// ErrUnknown unkown
	ErrUnknown ErrorCode = 100000
	// ErrUnauthorized acting on another account without delegation
	ErrUnauthorized ErrorCode = 100001

	// ErrValidation malformed input, duplicate or unknown market
	ErrValidation ErrorCode = 100101
	// ErrInsufficientLiquidity insufficient liquidity
	ErrInsufficientLiquidity ErrorCode = 100105
	// ErrHealthCheckFailed position would breach lltv
	ErrHealthCheckFailed ErrorCode = 100106
	// ErrStalePrice oracle reading too old
	ErrStalePrice ErrorCode = 100107
	// ErrInvalidPrice invalid price
	ErrInvalidPrice ErrorCode = 100108
	// ErrArithmetic overflow or underflow inside ledger math
	ErrArithmetic ErrorCode = 100110
	// ErrConflict state changed underneath the call, safe to retry
	ErrConflict ErrorCode = 100111
)

func (e ErrorCode) String() string {
	return strconv.Itoa(int(e))
}

func (e ErrorCode) Error() string {
	return e.String()
}

// Name short symbolic name of the code
func (e ErrorCode) Name() string {
	switch e {
	case ErrUnauthorized:
		return "Unauthorized"
	case ErrValidation:
		return "ValidationError"
	case ErrInsufficientLiquidity:
		return "InsufficientLiquidity"
	case ErrHealthCheckFailed:
		return "HealthCheckFailed"
	case ErrStalePrice:
		return "StalePrice"
	case ErrInvalidPrice:
		return "InvalidPrice"
	case ErrArithmetic:
		return "ArithmeticError"
	case ErrConflict:
		return "Conflict"
	default:
		return "Unknown"
	}
}

// With attach a reason to the code
func (e ErrorCode) With(reason string) *Error {
	return &Error{Code: e, Reason: reason}
}

// Wrap attach a reason and the underlying cause
func (e ErrorCode) Wrap(reason string, err error) *Error {
	return &Error{Code: e, Reason: reason, Err: err}
}

// Error a coded error with a human readable reason
type Error struct {
	Code   ErrorCode `json:"code"`
	Reason string    `json:"msg"`
	Err    error     `json:"-"`
}

func (e *Error) Error() string {
	msg := e.Code.Name()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches both *Error with the same code and the bare ErrorCode
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case ErrorCode:
		return e.Code == t
	case *Error:
		return e.Code == t.Code && (t.Reason == "" || t.Reason == e.Reason)
	}

	return false
}

// CodeOf extract the code of err, ErrUnknown if err carries none
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	var code ErrorCode
	if errors.As(err, &code) {
		return code
	}

	return ErrUnknown
}

// Reasons shared by the ledger and its stores
const (
	ReasonMarketNotCreated       = "market not created"
	ReasonMarketAlreadyCreated   = "market already created"
	ReasonInconsistentInput      = "inconsistent input"
	ReasonZeroAssets             = "zero assets"
	ReasonZeroAddress            = "zero address"
	ReasonInsufficientLiquidity  = "insufficient liquidity"
	ReasonInsufficientCollateral = "insufficient collateral"
	ReasonHealthyPosition        = "position is healthy"
	ReasonUnauthorized           = "unauthorized"
	ReasonStaleWrite             = "stale write"
)
