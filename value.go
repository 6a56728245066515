package abysmal

import (
	"github.com/cockroachdb/apd/v3"

	"github.com/zillow/abysmal/internal/decimal"
)

// cell holds one decimal value plus the bookkeeping the interpreter's fast
// paths need: an optional int32 overlay and a cached canonical string. Only
// arena-resident cells are ever collected; interned digits and Program
// constants are never indexed by the arena at all, so they need no mark bit.
type cell struct {
	d        apd.Decimal
	i32      int32
	i32Valid bool
	str      string
	strValid bool
}

// setDecimal installs d as the cell's payload, reducing it and refreshing
// the int32 fast path. d must already be finite; callers are expected to
// have routed NaN/Inf results to a halt before reaching here.
func (c *cell) setDecimal(d *apd.Decimal) {
	decimal.Reduce(&c.d, d)
	c.str = ""
	c.strValid = false
	if n, ok := decimal.AsInt32(&c.d); ok {
		c.i32, c.i32Valid = n, true
	} else {
		c.i32Valid = false
	}
}

// setInt32 installs an integer payload directly, used by opcode
// short-circuits that already know the result is a small integer and want
// to skip a trip through apd.
func (c *cell) setInt32(n int32) {
	c.d.SetInt64(int64(n))
	c.i32 = n
	c.i32Valid = true
	c.str = ""
	c.strValid = false
}

// string returns the canonical decimal string form, computing and caching
// it on first use. Zero is always "0"; integers carry no decimal point;
// everything else is the minimal reduced form apd produces once trailing
// zeros have been stripped by Reduce.
func (c *cell) string() string {
	if c.strValid {
		return c.str
	}
	var s string
	switch {
	case decimal.IsZero(&c.d):
		s = "0"
	case c.i32Valid:
		s = itoa32(c.i32)
	default:
		s = c.d.Text('f')
	}
	c.str = s
	c.strValid = true
	return s
}

func itoa32(n int32) string {
	// avoids pulling in strconv for a hot, tiny path; matches the range the
	// int32 fast path actually exercises.
	if n == 0 {
		return "0"
	}
	neg := n < 0
	var buf [11]byte
	i := len(buf)
	u := uint32(n)
	if neg {
		u = uint32(-n)
	}
	for u > 0 {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// internedDigits holds the 19 process-global cells for integers -9..9,
// shared read-only across every Program and Machine in the process. They
// live outside any arena, so the collector never observes or reclaims them.
var internedDigits [19]cell

func init() {
	for i := range internedDigits {
		n := int32(i - 9)
		internedDigits[i].setInt32(n)
	}
}

func internedDigit(n int32) *cell {
	if n < -9 || n > 9 {
		return nil
	}
	return &internedDigits[n+9]
}

// refKind distinguishes the three places a value slot may point.
type refKind uint8

const (
	refInterned refKind = iota
	refConstant
	refArena
)

// ref is a non-owning pointer into one of the three value sources a Machine
// composes: the process-global interned digits, its Program's immutable
// constant table, or its own arena. It is the representation used for every
// stack slot and variable slot.
type ref struct {
	kind refKind
	idx  int32 // meaning depends on kind: interned offset, constant index, or arena.Ref
}

var zeroRef = internedRef(0)
var oneRef = internedRef(1)

func internedRef(n int32) ref {
	return ref{kind: refInterned, idx: n + 9}
}

func constantRef(i int) ref {
	return ref{kind: refConstant, idx: int32(i)}
}

// simplify reduces d and returns the canonical ref for its value: the
// interned zero cell for any zero result, an interned digit for any reduced
// integer in [-9, 9], or else a freshly allocated arena cell. Every computed
// result is routed through simplify before it is pushed or stored, so that
// interning never depends on which opcode produced the value.
func (m *Machine) simplify(d *apd.Decimal) (ref, error) {
	decimal.Reduce(d, d)
	if decimal.IsZero(d) {
		return zeroRef, nil
	}
	if n, ok := decimal.AsInt32(d); ok && n >= -9 && n <= 9 {
		return internedRef(n), nil
	}
	return m.allocRef(func(c *cell) { c.setDecimal(d) })
}

// obviouslyEqual reports whether a and b are identity-equal without a real
// comparison: true if a and b name the same cell, or if both carry equal
// fast-path integers. Decimal values that merely compare equal are
// deliberately NOT obviously equal, so that e.g. a/a=1 never masks a real
// division's error behavior for operands that only happen to have equal
// value but different identity.
func (m *Machine) obviouslyEqual(a, b ref) bool {
	if a.kind == b.kind && a.idx == b.idx {
		return true
	}
	ca, cb := m.cellAt(a), m.cellAt(b)
	return ca.i32Valid && cb.i32Valid && ca.i32 == cb.i32
}
