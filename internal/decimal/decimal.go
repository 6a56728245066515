// Package decimal wraps cockroachdb/apd at decimal128 precision, exposing
// exactly the primitives the DSM interpreter needs and translating apd's
// Condition bitmask into the handful of fault classes the interpreter cares
// about.
package decimal

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// Precision matches IEEE-754 decimal128: 34 significant digits.
const Precision = 34

// Ctx is the shared arithmetic context used by every Machine. apd.Context
// values are safe for concurrent use so long as callers don't mutate them,
// which nothing here does.
var Ctx = apd.Context{
	Precision:   Precision,
	MaxExponent: apd.MaxExponent,
	MinExponent: apd.MinExponent,
	Traps:       apd.DefaultTraps &^ apd.InvalidOperation,
	Rounding:    apd.RoundHalfEven,
}

// Fault classifies an arithmetic failure into the handful of categories the
// interpreter needs to report to callers.
type Fault int

const (
	// FaultNone means the operation completed without triggering any of the
	// conditions this package tracks.
	FaultNone Fault = iota
	FaultDivisionByZero
	FaultOverflow
	FaultUnderflow
	FaultInvalid
)

func (f Fault) String() string {
	switch f {
	case FaultDivisionByZero:
		return "division by zero"
	case FaultOverflow:
		return "overflow"
	case FaultUnderflow:
		return "underflow"
	case FaultInvalid:
		return "illegal operation"
	default:
		return "none"
	}
}

func classify(cond apd.Condition, err error) Fault {
	switch {
	case cond.DivisionByZero():
		return FaultDivisionByZero
	case cond.Overflow():
		return FaultOverflow
	case cond.Underflow() || cond.Subnormal():
		return FaultUnderflow
	case err != nil || cond.InvalidOperation() || cond.DivisionImpossible() || cond.DivisionUndefined():
		return FaultInvalid
	default:
		return FaultNone
	}
}

// New allocates a zero-valued Decimal. Callers almost always want FromInt64
// or FromString instead; this exists for op handlers that build up a result
// in place.
func New() *apd.Decimal { return new(apd.Decimal) }

// FromString parses s as a finite decimal literal. Scientific notation is
// rejected; DSMAL constants are always written in plain decimal form.
func FromString(s string) (*apd.Decimal, error) {
	for _, r := range s {
		if r == 'e' || r == 'E' {
			return nil, fmt.Errorf("decimal: scientific notation not allowed: %q", s)
		}
	}
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("decimal: invalid literal %q: %w", s, err)
	}
	if d.Form != apd.Finite {
		return nil, fmt.Errorf("decimal: non-finite literal %q", s)
	}
	Reduce(d, d)
	return d, nil
}

// FromInt64 builds a Decimal from a plain integer.
func FromInt64(n int64) *apd.Decimal {
	return apd.New(n, 0)
}

// Reduce strips trailing fractional zeros in place, the canonicalization the
// interpreter applies to every computed result.
func Reduce(dst, src *apd.Decimal) {
	_, _, _ = Ctx.Reduce(dst, src)
}

// Add, Sub, Mul, Quo, Pow each compute dst = op(a, b) under Ctx and report a
// Fault classification alongside any Go error.
func Add(dst, a, b *apd.Decimal) Fault {
	cond, err := Ctx.Add(dst, a, b)
	return classify(cond, err)
}

func Sub(dst, a, b *apd.Decimal) Fault {
	cond, err := Ctx.Sub(dst, a, b)
	return classify(cond, err)
}

func Mul(dst, a, b *apd.Decimal) Fault {
	cond, err := Ctx.Mul(dst, a, b)
	return classify(cond, err)
}

func Quo(dst, a, b *apd.Decimal) Fault {
	if b.IsZero() {
		return FaultDivisionByZero
	}
	cond, err := Ctx.Quo(dst, a, b)
	return classify(cond, err)
}

func Pow(dst, a, b *apd.Decimal) Fault {
	cond, err := Ctx.Pow(dst, a, b)
	return classify(cond, err)
}

func Neg(dst, a *apd.Decimal) Fault {
	cond, err := Ctx.Neg(dst, a)
	return classify(cond, err)
}

func Abs(dst, a *apd.Decimal) Fault {
	cond, err := Ctx.Abs(dst, a)
	return classify(cond, err)
}

func Ceil(dst, a *apd.Decimal) Fault {
	cond, err := Ctx.Ceil(dst, a)
	return classify(cond, err)
}

func Floor(dst, a *apd.Decimal) Fault {
	cond, err := Ctx.Floor(dst, a)
	return classify(cond, err)
}

// Round rounds to the nearest integer, ties to even, matching decimal128's
// default rounding mode.
func Round(dst, a *apd.Decimal) Fault {
	cond, err := Ctx.Quantize(dst, a, 0)
	return classify(cond, err)
}

// Cmp reports -1, 0, or 1 as a compares less than, equal to, or greater than
// b. The error is always nil.
func Cmp(a, b *apd.Decimal) (int, error) {
	return a.Cmp(b), nil
}

// IsZero reports whether d represents any numeric zero (sign-insensitive).
func IsZero(d *apd.Decimal) bool {
	return d.IsZero()
}

// IsInteger reports whether d has no fractional part.
func IsInteger(d *apd.Decimal) bool {
	if d.Exponent >= 0 {
		return true
	}
	var integ, frac apd.Decimal
	d.Modf(&integ, &frac)
	return frac.IsZero()
}

// AsInt32 returns d's value as an int32 and true if d is an integer that
// fits in the signed 32-bit range.
func AsInt32(d *apd.Decimal) (int32, bool) {
	if !IsInteger(d) {
		return 0, false
	}
	n, err := d.Int64()
	if err != nil || n < -(1<<31) || n > (1<<31)-1 {
		return 0, false
	}
	return int32(n), true
}
