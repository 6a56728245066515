package abysmal

import "log/slog"

// MachineOption configures a Machine at construction time: a slice of
// defaults is applied first, then caller-supplied options in order. Unlike
// most functional-option shapes, applying an option here can fail, since a
// baseline override can raise KeyError/ValueError.
type MachineOption interface {
	apply(m *Machine) error
}

type machineOptionFunc func(m *Machine) error

func (f machineOptionFunc) apply(m *Machine) error { return f(m) }

var defaultMachineOptions = []MachineOption{}

// WithBaseline overrides the baseline value of every named variable in
// values, applied in map order (Go map iteration order is unspecified;
// since each entry targets a distinct slot, order does not affect the
// result). Unknown names produce KeyError; unparsable values produce
// ValueError.
func WithBaseline(values map[string]string) MachineOption {
	return machineOptionFunc(func(m *Machine) error {
		for name, v := range values {
			if err := m.Set(name, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// WithBaselineValue overrides a single named variable's baseline value.
// value may be a bool, any Go integer type, *apd.Decimal, or a
// decimal-parsable string.
func WithBaselineValue(name string, value interface{}) MachineOption {
	return machineOptionFunc(func(m *Machine) error {
		return m.Set(name, value)
	})
}

// WithInstructionLimit overrides the default per-run instruction budget.
func WithInstructionLimit(limit int) MachineOption {
	return machineOptionFunc(func(m *Machine) error {
		m.instructionLimit = limit
		return nil
	})
}

// WithRandomSource installs the iterator consulted by the Lr opcode.
func WithRandomSource(src RandomSource) MachineOption {
	return machineOptionFunc(func(m *Machine) error {
		m.SetRandomSource(src)
		return nil
	})
}

// WithLogger attaches a structured logger for opt-in execution tracing.
func WithLogger(logger *slog.Logger) MachineOption {
	return machineOptionFunc(func(m *Machine) error {
		m.logger = logger
		return nil
	})
}
