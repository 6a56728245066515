package abysmal

import (
	"log/slog"

	"github.com/zillow/abysmal/internal/arena"
)

// Fixed resource bounds every Machine enforces regardless of Program size.
const (
	StackSize               = 32
	ArenaSize               = 256
	DefaultInstructionLimit = 10000
)

// RandomSource supplies values to the Lr opcode. Next is called once per Lr
// actually executed, in strict execution order, so successive Lrs observe
// successive values; returning false means the source is exhausted or
// otherwise unable to produce a value, which the interpreter surfaces as an
// ExecutionError.
type RandomSource interface {
	Next() (value string, ok bool)
}

// Machine is a mutable execution instance bound to exactly one Program. A
// Machine owns its operand stack, arena, and variable banks; the Program it
// references is immutable and may be shared with other Machines, including
// concurrently, since each Machine never mutates anything outside itself.
type Machine struct {
	prog *Program

	arena *arena.Arena
	cells []cell // parallel to arena slot indices, cells[ref-1] is ref's payload

	// variables holds 2*N entries: [0,N) current slots, [N,2N) baseline
	// slots, both with identical ref semantics.
	variables []ref

	stack []ref

	instructionLimit int
	randomSource     RandomSource

	logger *slog.Logger
}

// NewMachine constructs a Machine bound to p, applying baseline overrides
// from opts. Unknown variable names produce a KeyError; values that can't be
// coerced to a decimal produce a ValueError. The baseline snapshot used by
// Reset is captured after options are applied, so overridden baselines
// survive a Reset rather than being lost to it.
func (p *Program) NewMachine(opts ...MachineOption) (*Machine, error) {
	n := len(p.variables)
	m := &Machine{
		prog:             p,
		arena:            arena.New(ArenaSize),
		cells:            make([]cell, ArenaSize),
		variables:        make([]ref, 2*n),
		stack:            make([]ref, 0, StackSize),
		instructionLimit: DefaultInstructionLimit,
	}
	for i := range m.variables[:n] {
		m.variables[i] = zeroRef
	}

	for _, opt := range defaultMachineOptions {
		if err := opt.apply(m); err != nil {
			return nil, err
		}
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(m); err != nil {
			return nil, err
		}
	}

	copy(m.variables[n:], m.variables[:n])
	return m, nil
}

// Program returns the Machine's bound Program.
func (m *Machine) Program() *Program { return m.prog }

// InstructionLimit returns the current per-run instruction budget.
func (m *Machine) InstructionLimit() int { return m.instructionLimit }

// SetInstructionLimit changes the per-run instruction budget used by
// subsequent calls to Run/RunWithCoverage.
func (m *Machine) SetInstructionLimit(limit int) { m.instructionLimit = limit }

// SetRandomSource installs the iterator consulted by Lr. Passing nil
// restores the no-source behavior: Lr pushes interned zero instead of
// failing.
func (m *Machine) SetRandomSource(src RandomSource) {
	m.randomSource = src
}

// cellAt dereferences r into its backing cell, regardless of which of the
// three value sources it points into.
func (m *Machine) cellAt(r ref) *cell {
	switch r.kind {
	case refInterned:
		return &internedDigits[r.idx]
	case refConstant:
		return &m.prog.constants[r.idx]
	default:
		return &m.cells[r.idx-1]
	}
}

// allocRef reserves a fresh arena cell, running a mark-sweep collection if
// necessary, applies set to initialize its payload, and returns a ref to it.
// extraRoots lets a caller that has already popped operands off the stack
// keep them alive across the allocation, since a collection triggered by
// Alloc can only see the stack, variables, and whatever extraRoots names.
func (m *Machine) allocRef(set func(c *cell), extraRoots ...ref) (ref, error) {
	a, err := m.arena.Alloc(
		func(ar *arena.Arena) { m.markRoots(ar, extraRoots) },
		func(r arena.Ref) { m.cells[r-1] = cell{} },
	)
	if err != nil {
		return ref{}, err
	}
	set(&m.cells[a-1])
	return ref{kind: refArena, idx: int32(a)}, nil
}

func (m *Machine) markRoots(a *arena.Arena, extra []ref) {
	for _, r := range m.stack {
		m.markRef(a, r)
	}
	for _, r := range m.variables {
		m.markRef(a, r)
	}
	for _, r := range extra {
		m.markRef(a, r)
	}
}

func (m *Machine) markRef(a *arena.Arena, r ref) {
	if r.kind == refArena {
		a.Mark(arena.Ref(r.idx))
	}
}
