package abysmal

import (
	"math"

	"github.com/cockroachdb/apd/v3"

	"github.com/zillow/abysmal/internal/decimal"
)

// opcodeHandler runs one decoded instruction (except Exit, which the main
// loop handles directly) and reports whether it set pc itself.
type opcodeHandler func(m *Machine, st *runState, param uint16) (jumped bool)

var opcodeHandlers [opcodeCount]opcodeHandler

func init() {
	opcodeHandlers[opJumpUnconditional] = opJumpUnconditionalHandler
	opcodeHandlers[opJumpIfNonzero] = opJumpIfNonzeroHandler
	opcodeHandlers[opJumpIfZero] = opJumpIfZeroHandler
	opcodeHandlers[opLoadConstant] = opLoadConstantHandler
	opcodeHandlers[opLoadVariable] = opLoadVariableHandler
	opcodeHandlers[opLoadRandom] = opLoadRandomHandler
	opcodeHandlers[opLoadZero] = opLoadZeroHandler
	opcodeHandlers[opLoadOne] = opLoadOneHandler
	opcodeHandlers[opSetVariable] = opSetVariableHandler
	opcodeHandlers[opCopy] = opCopyHandler
	opcodeHandlers[opPop] = opPopHandler
	opcodeHandlers[opNot] = opNotHandler
	opcodeHandlers[opNegate] = opNegateHandler
	opcodeHandlers[opAbsolute] = opAbsoluteHandler
	opcodeHandlers[opCeiling] = opCeilingHandler
	opcodeHandlers[opFloor] = opFloorHandler
	opcodeHandlers[opRound] = opRoundHandler
	opcodeHandlers[opEqual] = opEqualHandler
	opcodeHandlers[opNotEqual] = opNotEqualHandler
	opcodeHandlers[opGreaterThan] = opGreaterThanHandler
	opcodeHandlers[opGreaterThanOrEqual] = opGreaterThanOrEqualHandler
	opcodeHandlers[opAdd] = opAddHandler
	opcodeHandlers[opSub] = opSubHandler
	opcodeHandlers[opMul] = opMulHandler
	opcodeHandlers[opDiv] = opDivHandler
	opcodeHandlers[opPow] = opPowHandler
	opcodeHandlers[opMin] = opMinHandler
	opcodeHandlers[opMax] = opMaxHandler
}

// Ju   Jump-unconditional   pc := param
func opJumpUnconditionalHandler(m *Machine, st *runState, param uint16) bool {
	st.pc = int(param)
	return true
}

// Jn   Jump-if-nonzero   pop a; if a != 0, pc := param
func opJumpIfNonzeroHandler(m *Machine, st *runState, param uint16) bool {
	a := m.pop()
	if !decimal.IsZero(&m.cellAt(a).d) {
		st.pc = int(param)
		return true
	}
	return false
}

// Jz   Jump-if-zero   pop a; if a == 0, pc := param
func opJumpIfZeroHandler(m *Machine, st *runState, param uint16) bool {
	a := m.pop()
	if decimal.IsZero(&m.cellAt(a).d) {
		st.pc = int(param)
		return true
	}
	return false
}

// Lc   Load-constant   push constants[param]
func opLoadConstantHandler(m *Machine, st *runState, param uint16) bool {
	m.push(constantRef(int(param)))
	return false
}

// Lv   Load-variable   push the current value of variable[param]
func opLoadVariableHandler(m *Machine, st *runState, param uint16) bool {
	m.push(m.variables[param])
	return false
}

// Lr   Load-random   pull the next value from the random source and push it
func opLoadRandomHandler(m *Machine, st *runState, param uint16) bool {
	r, ok := m.resolveRandom()
	if !ok {
		m.halt(execErrorf(st.pc, "Lr", "random source exhausted or invalid"))
	}
	m.push(r)
	return false
}

// resolveRandom pushes interned zero when no source is configured, rather
// than failing outright; a configured source that is exhausted or yields an
// unparsable value fails the instruction instead. Called once per Lr, never
// cached, so successive Lrs in the same run observe successive values.
func (m *Machine) resolveRandom() (ref, bool) {
	if m.randomSource == nil {
		return zeroRef, true
	}
	s, ok := m.randomSource.Next()
	if !ok {
		return ref{}, false
	}
	d, err := decimal.FromString(s)
	if err != nil {
		return ref{}, false
	}
	r, err := m.simplify(d)
	if err != nil {
		return ref{}, false
	}
	return r, true
}

// Lz   Load-zero   push interned 0
func opLoadZeroHandler(m *Machine, st *runState, param uint16) bool {
	m.push(zeroRef)
	return false
}

// Lo   Load-one   push interned 1
func opLoadOneHandler(m *Machine, st *runState, param uint16) bool {
	m.push(oneRef)
	return false
}

// St   Set-variable   pop; assign to variable[param]
func opSetVariableHandler(m *Machine, st *runState, param uint16) bool {
	m.variables[param] = m.pop()
	return false
}

// Cp   Copy   duplicate the top of stack without removing it
func opCopyHandler(m *Machine, st *runState, param uint16) bool {
	m.push(m.peek())
	return false
}

// Pp   Pop   discard the top of stack
func opPopHandler(m *Machine, st *runState, param uint16) bool {
	m.pop()
	return false
}

// Nt   Not   pop a; push 1 if a == 0 else 0
func opNotHandler(m *Machine, st *runState, param uint16) bool {
	a := m.pop()
	if decimal.IsZero(&m.cellAt(a).d) {
		m.push(oneRef)
	} else {
		m.push(zeroRef)
	}
	return false
}

// Ng   Negate   pop; push the arithmetic negation
func opNegateHandler(m *Machine, st *runState, param uint16) bool {
	a := m.pop()
	r, err := m.negate(a)
	if err != nil {
		m.halt(execErrorf(st.pc, "Ng", "%v", err))
	}
	m.push(r)
	return false
}

// Ab   Absolute   leave non-negative operands unchanged, else negate
func opAbsoluteHandler(m *Machine, st *runState, param uint16) bool {
	a := m.pop()
	c := m.cellAt(a)
	if c.d.Sign() >= 0 {
		m.push(a)
		return false
	}
	r, err := m.negate(a)
	if err != nil {
		m.halt(execErrorf(st.pc, "Ab", "%v", err))
	}
	m.push(r)
	return false
}

// Cl   Ceiling   round toward +infinity; integral operands are a no-op
func opCeilingHandler(m *Machine, st *runState, param uint16) bool {
	roundOp(m, st, "Cl", decimal.Ceil)
	return false
}

// Fl   Floor   round toward -infinity; integral operands are a no-op
func opFloorHandler(m *Machine, st *runState, param uint16) bool {
	roundOp(m, st, "Fl", decimal.Floor)
	return false
}

// Rd   Round   round to nearest, ties to even; integral operands are a no-op
func opRoundHandler(m *Machine, st *runState, param uint16) bool {
	roundOp(m, st, "Rd", decimal.Round)
	return false
}

func roundOp(m *Machine, st *runState, opcode string, fn func(dst, a *apd.Decimal) decimal.Fault) {
	a := m.pop()
	c := m.cellAt(a)
	if decimal.IsInteger(&c.d) {
		m.push(a)
		return
	}
	var d apd.Decimal
	if fault := fn(&d, &c.d); fault != decimal.FaultNone {
		m.halt(faultError(st.pc, opcode, fault))
	}
	r, err := m.simplify(&d)
	if err != nil {
		m.halt(execErrorf(st.pc, opcode, "%v", err))
	}
	m.push(r)
}

// Eq   Equal   pop b, pop a; push 1 if a == b else 0
func opEqualHandler(m *Machine, st *runState, param uint16) bool {
	pushBool(m, compareOp(m, st, "Eq") == 0)
	return false
}

// Ne   Not-equal   pop b, pop a; push 1 if a != b else 0
func opNotEqualHandler(m *Machine, st *runState, param uint16) bool {
	pushBool(m, compareOp(m, st, "Ne") != 0)
	return false
}

// Gt   Greater-than   pop b, pop a; push 1 if a > b else 0
func opGreaterThanHandler(m *Machine, st *runState, param uint16) bool {
	pushBool(m, compareOp(m, st, "Gt") > 0)
	return false
}

// Ge   Greater-than-or-equal   pop b, pop a; push 1 if a >= b else 0
func opGreaterThanOrEqualHandler(m *Machine, st *runState, param uint16) bool {
	pushBool(m, compareOp(m, st, "Ge") >= 0)
	return false
}

func pushBool(m *Machine, b bool) {
	if b {
		m.push(oneRef)
	} else {
		m.push(zeroRef)
	}
}

func compareOp(m *Machine, st *runState, opcode string) int {
	b := m.pop()
	a := m.pop()
	cmp, err := m.compare(a, b)
	if err != nil {
		m.halt(execErrorf(st.pc, opcode, "%v", err))
	}
	return cmp
}

// Ad   Add   pop b, pop a; push a+b, short-circuiting a+0=a and 0+b=b
func opAddHandler(m *Machine, st *runState, param uint16) bool {
	b := m.pop()
	a := m.pop()
	ca, cb := m.cellAt(a), m.cellAt(b)
	switch {
	case cellIsZero(ca):
		m.push(b)
	case cellIsZero(cb):
		m.push(a)
	case ca.i32Valid && cb.i32Valid:
		m.pushFastOrFull(st, "Ad", a, b, addInt32, decimal.Add)
	default:
		m.pushDecimal(st, "Ad", &ca.d, &cb.d, decimal.Add)
	}
	return false
}

// Sb   Sub   pop b, pop a; push a-b, short-circuiting a-0=a, a-a=0, 0-b=-b
func opSubHandler(m *Machine, st *runState, param uint16) bool {
	b := m.pop()
	a := m.pop()
	ca, cb := m.cellAt(a), m.cellAt(b)
	switch {
	case cellIsZero(cb):
		m.push(a)
	case m.obviouslyEqual(a, b):
		m.push(zeroRef)
	case cellIsZero(ca):
		r, err := m.negate(b)
		if err != nil {
			m.halt(execErrorf(st.pc, "Sb", "%v", err))
		}
		m.push(r)
	case ca.i32Valid && cb.i32Valid:
		m.pushFastOrFull(st, "Sb", a, b, subInt32, decimal.Sub)
	default:
		m.pushDecimal(st, "Sb", &ca.d, &cb.d, decimal.Sub)
	}
	return false
}

// Ml   Mul   pop b, pop a; push a*b, short-circuiting *0, a*1=a, 1*b=b
func opMulHandler(m *Machine, st *runState, param uint16) bool {
	b := m.pop()
	a := m.pop()
	ca, cb := m.cellAt(a), m.cellAt(b)
	switch {
	case cellIsZero(ca) || cellIsZero(cb):
		m.push(zeroRef)
	case cellIsOne(cb):
		m.push(a)
	case cellIsOne(ca):
		m.push(b)
	case ca.i32Valid && cb.i32Valid:
		m.pushFastOrFull(st, "Ml", a, b, mulInt32, decimal.Mul)
	default:
		m.pushDecimal(st, "Ml", &ca.d, &cb.d, decimal.Mul)
	}
	return false
}

// Dv   Div   pop b, pop a; push a/b. a/0 fails, a/1=a, 0/b=0, a/a=1 when
// obviously equal (same cell or matching fast-path integers; values that
// merely compare equal still go through real division).
func opDivHandler(m *Machine, st *runState, param uint16) bool {
	b := m.pop()
	a := m.pop()
	ca, cb := m.cellAt(a), m.cellAt(b)
	switch {
	case cellIsZero(cb):
		m.halt(execErrorf(st.pc, "Dv", "division by zero"))
	case m.obviouslyEqual(a, b):
		m.push(oneRef)
	case cellIsOne(cb):
		m.push(a)
	case cellIsZero(ca):
		m.push(zeroRef)
	default:
		m.pushDecimal(st, "Dv", &ca.d, &cb.d, decimal.Quo)
	}
	return false
}

// Pw   Pow   pop b, pop a; push a^b, with the documented algebraic
// identities (including 0^0=0) and 0^negative treated as illegal.
func opPowHandler(m *Machine, st *runState, param uint16) bool {
	b := m.pop()
	a := m.pop()
	ca, cb := m.cellAt(a), m.cellAt(b)
	switch {
	case cellIsOne(cb):
		m.push(a)
	case cellIsZero(cb):
		if cellIsZero(ca) {
			m.push(zeroRef)
		} else {
			m.push(oneRef)
		}
	case cellIsOne(ca):
		m.push(oneRef)
	case cellIsZero(ca) && cb.d.Sign() < 0:
		m.halt(execErrorf(st.pc, "Pw", "illegal: zero raised to a negative power"))
	case cellIsInt(cb, 2):
		m.pushDecimal(st, "Pw", &ca.d, &ca.d, decimal.Mul)
	default:
		m.pushDecimal(st, "Pw", &ca.d, &cb.d, decimal.Pow)
	}
	return false
}

// Mn   Min   pop b, pop a; push the smaller; ties push b
func opMinHandler(m *Machine, st *runState, param uint16) bool {
	minMax(m, st, "Mn", func(cmp int) bool { return cmp < 0 })
	return false
}

// Mx   Max   pop b, pop a; push the larger; ties push b
func opMaxHandler(m *Machine, st *runState, param uint16) bool {
	minMax(m, st, "Mx", func(cmp int) bool { return cmp > 0 })
	return false
}

func minMax(m *Machine, st *runState, opcode string, aWins func(cmp int) bool) {
	b := m.pop()
	a := m.pop()
	cmp, err := m.compare(a, b)
	if err != nil {
		m.halt(execErrorf(st.pc, opcode, "%v", err))
	}
	if aWins(cmp) {
		m.push(a)
	} else {
		m.push(b)
	}
}

// pushFastOrFull tries a native int32 computation when both operands carry
// a valid fast path and the result doesn't overflow int32; otherwise it
// falls back to the decimal path, so fast-path-eligible results always end
// up with both representations recorded.
func (m *Machine) pushFastOrFull(st *runState, opcode string, a, b ref, fast func(a, b int32) (int32, bool), full func(dst, a, b *apd.Decimal) decimal.Fault) {
	ca, cb := m.cellAt(a), m.cellAt(b)
	if n, ok := fast(ca.i32, cb.i32); ok {
		r, err := m.refFromInt32(n)
		if err != nil {
			m.halt(execErrorf(st.pc, opcode, "%v", err))
		}
		m.push(r)
		return
	}
	m.pushDecimal(st, opcode, &ca.d, &cb.d, full)
}

func (m *Machine) pushDecimal(st *runState, opcode string, a, b *apd.Decimal, op func(dst, a, b *apd.Decimal) decimal.Fault) {
	var d apd.Decimal
	if fault := op(&d, a, b); fault != decimal.FaultNone {
		m.halt(faultError(st.pc, opcode, fault))
	}
	r, err := m.simplify(&d)
	if err != nil {
		m.halt(execErrorf(st.pc, opcode, "%v", err))
	}
	m.push(r)
}

func faultError(pc int, opcode string, fault decimal.Fault) error {
	if fault == decimal.FaultDivisionByZero {
		return execErrorf(pc, opcode, "division by zero")
	}
	return execErrorf(pc, opcode, "%s", fault)
}

// negate returns a ref to -r's value, using the int32 fast path when safely
// representable (MinInt32 is excluded because -MinInt32 overflows int32).
func (m *Machine) negate(r ref) (ref, error) {
	c := m.cellAt(r)
	if c.i32Valid && c.i32 != math.MinInt32 {
		return m.refFromInt32(-c.i32)
	}
	var d apd.Decimal
	if fault := decimal.Neg(&d, &c.d); fault != decimal.FaultNone {
		return ref{}, faultError(0, "Ng", fault)
	}
	return m.simplify(&d)
}

// compare returns -1, 0, or 1 for a versus b, using the int32 fast path when
// both operands carry one.
func (m *Machine) compare(a, b ref) (int, error) {
	ca, cb := m.cellAt(a), m.cellAt(b)
	if ca.i32Valid && cb.i32Valid {
		switch {
		case ca.i32 < cb.i32:
			return -1, nil
		case ca.i32 > cb.i32:
			return 1, nil
		default:
			return 0, nil
		}
	}
	return decimal.Cmp(&ca.d, &cb.d)
}

// refFromInt32 returns the canonical ref for a plain int32 result: an
// interned digit when it fits [-9, 9], otherwise a fresh arena cell.
func (m *Machine) refFromInt32(n int32) (ref, error) {
	if n >= -9 && n <= 9 {
		return internedRef(n), nil
	}
	return m.allocRef(func(c *cell) { c.setInt32(n) })
}

func cellIsZero(c *cell) bool { return decimal.IsZero(&c.d) }

var decOne = decimal.FromInt64(1)

func cellIsOne(c *cell) bool {
	if c.i32Valid {
		return c.i32 == 1
	}
	cmp, err := decimal.Cmp(&c.d, decOne)
	return err == nil && cmp == 0
}

func cellIsInt(c *cell, n int32) bool {
	if c.i32Valid {
		return c.i32 == n
	}
	cmp, err := decimal.Cmp(&c.d, decimal.FromInt64(int64(n)))
	return err == nil && cmp == 0
}

func addInt32(a, b int32) (int32, bool) {
	sum := int64(a) + int64(b)
	if sum < math.MinInt32 || sum > math.MaxInt32 {
		return 0, false
	}
	return int32(sum), true
}

func subInt32(a, b int32) (int32, bool) {
	diff := int64(a) - int64(b)
	if diff < math.MinInt32 || diff > math.MaxInt32 {
		return 0, false
	}
	return int32(diff), true
}

func mulInt32(a, b int32) (int32, bool) {
	prod := int64(a) * int64(b)
	if prod < math.MinInt32 || prod > math.MaxInt32 {
		return 0, false
	}
	return int32(prod), true
}
