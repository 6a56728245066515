package abysmal

import "fmt"

// InvalidProgramError is returned only by program construction: the DSMAL
// text is structurally or semantically malformed.
type InvalidProgramError struct {
	Reason string
}

func (err InvalidProgramError) Error() string {
	return fmt.Sprintf("invalid program: %s", err.Reason)
}

func invalidProgramf(format string, args ...interface{}) error {
	return InvalidProgramError{Reason: fmt.Sprintf(format, args...)}
}

// ExecutionError is raised by Run/RunWithCoverage for any runtime fault:
// division by zero, invalid power, out-of-bounds pc, stack under/overflow,
// arena exhaustion, decimal overflow/underflow, random-source failure, or an
// invalid opcode parameter discovered at execute time. Instruction and
// Opcode identify where execution was when the fault occurred.
type ExecutionError struct {
	Reason      string
	Instruction int
	Opcode      string
}

func (err ExecutionError) Error() string {
	if err.Opcode != "" {
		return fmt.Sprintf("execution error at instruction %d (%s): %s", err.Instruction, err.Opcode, err.Reason)
	}
	return fmt.Sprintf("execution error: %s", err.Reason)
}

func execErrorf(pc int, opcode string, format string, args ...interface{}) error {
	return ExecutionError{Reason: fmt.Sprintf(format, args...), Instruction: pc, Opcode: opcode}
}

// InstructionLimitExceededError is a subtype of ExecutionError raised when a
// run hits its per-run instruction budget.
type InstructionLimitExceededError struct {
	ExecutionError
	Limit int
}

func (err InstructionLimitExceededError) Error() string {
	return fmt.Sprintf("instruction limit exceeded (%d)", err.Limit)
}

func (err InstructionLimitExceededError) Unwrap() error { return err.ExecutionError }

// KeyError is raised at the host variable-access boundary when a name does
// not exist in the Program.
type KeyError struct {
	Name string
}

func (err KeyError) Error() string { return fmt.Sprintf("unknown variable %q", err.Name) }

// ValueError is raised at the host variable-access boundary when a supplied
// value cannot be coerced to a decimal.
type ValueError struct {
	Name  string
	Value interface{}
}

func (err ValueError) Error() string {
	return fmt.Sprintf("invalid value for variable %q: %v", err.Name, err.Value)
}

// IndexError is raised at the host variable-access boundary when GetAt or
// SetAt addresses a variable slot outside [0, VariableCount()). Out-of-range
// load/store parameters are rejected earlier, by LoadProgram, as an
// InvalidProgramError.
type IndexError struct {
	Index int
	Bound int
}

func (err IndexError) Error() string {
	return fmt.Sprintf("index %d out of range [0, %d)", err.Index, err.Bound)
}

// haltError is the sentinel panic payload the interpreter's halt() wraps
// errors in; Run/RunWithCoverage unwrap it back into a plain error via
// errors.As.
type haltError struct{ error }

func (err haltError) Unwrap() error { return err.error }
