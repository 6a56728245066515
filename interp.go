package abysmal

import (
	"context"
	"errors"

	"github.com/zillow/abysmal/internal/panicerr"
)

// pc and executed live on the interpreter's per-run state rather than on
// Machine itself, so that a Machine's fields never reflect a stale mid-run
// snapshot between calls to Run.
type runState struct {
	pc       int
	executed int
	coverage []bool // nil unless capturing
}

// halt aborts the current run by panicking with a wrapped error; Run and
// RunWithCoverage recover it via internal/panicerr.Guard. The interpreter
// never blocks on anything, so the recovery never needs a second goroutine
// to make the panic cancellable.
func (m *Machine) halt(err error) {
	panic(haltError{err})
}

func (m *Machine) haltif(err error) {
	if err != nil {
		m.halt(err)
	}
}

func unwrapHalt(err error) error {
	if err == nil {
		return nil
	}
	var he haltError
	if errors.As(err, &he) {
		return he.error
	}
	return err
}

// Run executes the Machine's Program from pc 0 until Exit, an error, or ctx
// cancellation, and returns the number of instructions executed. ctx is
// checked once per tick, at the same point as every other precondition;
// cancellation surfaces as an ExecutionError like any other fault. The
// instruction limit remains the primary resource bound on a run; ctx gives
// callers an additional, real cancellation path on top of it.
func (m *Machine) Run(ctx context.Context) (int, error) {
	var n int
	err := panicerr.Guard("Machine.Run", func() error {
		var rerr error
		n, rerr = m.run(ctx, nil)
		return rerr
	})
	return n, unwrapHalt(err)
}

// RunWithCoverage behaves like Run but also returns a per-instruction
// coverage vector: bit pc is set if instruction pc was ever dispatched. On
// failure the vector is discarded.
func (m *Machine) RunWithCoverage(ctx context.Context) ([]bool, error) {
	coverage := make([]bool, len(m.prog.instructions))
	err := panicerr.Guard("Machine.RunWithCoverage", func() error {
		_, rerr := m.run(ctx, coverage)
		return rerr
	})
	if err := unwrapHalt(err); err != nil {
		return nil, err
	}
	return coverage, nil
}

func (m *Machine) run(ctx context.Context, coverage []bool) (int, error) {
	m.stack = m.stack[:0]
	st := runState{coverage: coverage}

	for {
		if err := ctx.Err(); err != nil {
			m.halt(execErrorf(st.pc, "", "context canceled: %v", err))
		}

		if st.pc < 0 || st.pc >= len(m.prog.instructions) {
			m.halt(execErrorf(st.pc, "", "program counter %d out of bounds [0, %d)", st.pc, len(m.prog.instructions)))
		}
		instr := m.prog.instructions[st.pc]
		info := opcodeTable[instr.op]

		if st.executed >= m.instructionLimit {
			m.halt(InstructionLimitExceededError{
				ExecutionError: ExecutionError{
					Reason:      "instruction limit exceeded",
					Instruction: st.pc,
					Opcode:      info.mnemonic,
				},
				Limit: m.instructionLimit,
			})
		}
		if len(m.stack) < info.pops {
			m.halt(execErrorf(st.pc, info.mnemonic, "stack underflow: need %d, have %d", info.pops, len(m.stack)))
		}

		st.executed++
		if st.coverage != nil {
			st.coverage[st.pc] = true
		}
		if m.logger != nil {
			m.logger.Debug("exec", "pc", st.pc, "op", info.mnemonic, "param", instr.param, "stack", len(m.stack))
		}

		if instr.op == opExit {
			m.stack = m.stack[:0]
			return st.executed, nil
		}

		if len(m.stack)-info.pops+info.pushes > StackSize {
			m.halt(execErrorf(st.pc, info.mnemonic, "stack overflow"))
		}

		jumped := m.dispatch(&st, instr)
		if !jumped {
			st.pc++
		}
	}
}

// dispatch runs one non-Exit opcode and reports whether it altered pc
// itself (a jump), in which case the main loop must not also advance it.
func (m *Machine) dispatch(st *runState, instr instruction) (jumped bool) {
	handler := opcodeHandlers[instr.op]
	if handler == nil {
		m.halt(execErrorf(st.pc, instr.op.String(), "unimplemented opcode"))
	}
	return handler(m, st, instr.param)
}

// pop and push manipulate the operand stack directly; bounds have already
// been checked by the pre-dispatch checks in run, so these never fail.
func (m *Machine) pop() ref {
	i := len(m.stack) - 1
	r := m.stack[i]
	m.stack = m.stack[:i]
	return r
}

func (m *Machine) push(r ref) {
	m.stack = append(m.stack, r)
}

func (m *Machine) peek() ref {
	return m.stack[len(m.stack)-1]
}
