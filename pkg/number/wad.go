package number

import (
	"errors"

	"github.com/holiman/uint256"
)

var (
	// ErrOverflow result does not fit in 256 bits
	ErrOverflow = errors.New("number: overflow")
	// ErrUnderflow subtraction below zero
	ErrUnderflow = errors.New("number: underflow")
	// ErrDivisionByZero zero divisor
	ErrDivisionByZero = errors.New("number: division by zero")
)

// WAD fixed point unit, 1e18
var WAD = uint256.NewInt(1e18)

// Zero returns a fresh zero value
func Zero() *uint256.Int {
	return new(uint256.Int)
}

// Int uint64 to *uint256.Int
func Int(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// Wad v * 1e18
func Wad(v uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(v), WAD)
}

// Pow10 10^n, n <= 77
func Pow10(n uint) *uint256.Int {
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(n)))
}

// MulDivDown (x * y) / d rounded down, with a 512-bit intermediate product
func MulDivDown(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrDivisionByZero
	}

	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, ErrOverflow
	}

	return z, nil
}

// MulDivUp (x * y) / d rounded up
func MulDivUp(x, y, d *uint256.Int) (*uint256.Int, error) {
	z, err := MulDivDown(x, y, d)
	if err != nil {
		return nil, err
	}

	if new(uint256.Int).MulMod(x, y, d).IsZero() {
		return z, nil
	}

	return Add(z, uint256.NewInt(1))
}

// WMulDown x * y / WAD rounded down
func WMulDown(x, y *uint256.Int) (*uint256.Int, error) {
	return MulDivDown(x, y, WAD)
}

// WMulUp x * y / WAD rounded up
func WMulUp(x, y *uint256.Int) (*uint256.Int, error) {
	return MulDivUp(x, y, WAD)
}

// WDivDown x * WAD / y rounded down
func WDivDown(x, y *uint256.Int) (*uint256.Int, error) {
	return MulDivDown(x, WAD, y)
}

// WDivUp x * WAD / y rounded up
func WDivUp(x, y *uint256.Int) (*uint256.Int, error) {
	return MulDivUp(x, WAD, y)
}

// Add checked x + y
func Add(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}

	return z, nil
}

// Sub checked x - y
func Sub(x, y *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, ErrUnderflow
	}

	return z, nil
}

// Mul checked x * y
func Mul(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}

	return z, nil
}

// ZeroFloorSub max(x - y, 0)
func ZeroFloorSub(x, y *uint256.Int) *uint256.Int {
	if x.Cmp(y) <= 0 {
		return Zero()
	}

	return new(uint256.Int).Sub(x, y)
}

// Min smaller of x and y, copied
func Min(x, y *uint256.Int) *uint256.Int {
	if x.Cmp(y) <= 0 {
		return x.Clone()
	}

	return y.Clone()
}
