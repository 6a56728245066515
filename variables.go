package abysmal

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/zillow/abysmal/internal/decimal"
)

// Get returns the canonical decimal string form of the named variable's
// current value. Unknown names produce KeyError.
func (m *Machine) Get(name string) (string, error) {
	i, ok := m.prog.variableIdx[name]
	if !ok {
		return "", KeyError{Name: name}
	}
	return m.cellAt(m.variables[i]).string(), nil
}

// Set assigns the named variable's current value. value may be a bool
// (mapped to 1/0), any Go integer type, *apd.Decimal, or a decimal-parsable
// string. Unknown names produce KeyError; values that can't be coerced
// produce ValueError.
func (m *Machine) Set(name string, value interface{}) error {
	i, ok := m.prog.variableIdx[name]
	if !ok {
		return KeyError{Name: name}
	}
	d, err := coerceDecimal(value)
	if err != nil {
		return ValueError{Name: name, Value: value}
	}
	r, err := m.simplify(d)
	if err != nil {
		return err
	}
	m.variables[i] = r
	return nil
}

// GetAt returns the canonical decimal string form of variable slot i's
// current value, addressing it by position instead of by name. Out-of-range
// i produces IndexError.
func (m *Machine) GetAt(i int) (string, error) {
	if i < 0 || i >= len(m.prog.variables) {
		return "", IndexError{Index: i, Bound: len(m.prog.variables)}
	}
	return m.cellAt(m.variables[i]).string(), nil
}

// SetAt assigns variable slot i's current value by position. Out-of-range i
// produces IndexError; values that can't be coerced produce ValueError.
func (m *Machine) SetAt(i int, value interface{}) error {
	if i < 0 || i >= len(m.prog.variables) {
		return IndexError{Index: i, Bound: len(m.prog.variables)}
	}
	d, err := coerceDecimal(value)
	if err != nil {
		return ValueError{Name: m.prog.variables[i], Value: value}
	}
	r, err := m.simplify(d)
	if err != nil {
		return err
	}
	m.variables[i] = r
	return nil
}

// coerceDecimal tries each accepted input shape in turn: booleans first
// (mapped to 1/0), then integers, then an already-built decimal, then a
// parsable string.
func coerceDecimal(value interface{}) (*apd.Decimal, error) {
	switch v := value.(type) {
	case bool:
		if v {
			return decimal.FromInt64(1), nil
		}
		return decimal.FromInt64(0), nil
	case int:
		return decimal.FromInt64(int64(v)), nil
	case int8:
		return decimal.FromInt64(int64(v)), nil
	case int16:
		return decimal.FromInt64(int64(v)), nil
	case int32:
		return decimal.FromInt64(int64(v)), nil
	case int64:
		return decimal.FromInt64(v), nil
	case uint8:
		return decimal.FromInt64(int64(v)), nil
	case uint16:
		return decimal.FromInt64(int64(v)), nil
	case uint32:
		return decimal.FromInt64(int64(v)), nil
	case uint, uint64, uintptr:
		// formatted rather than converted: values above MaxInt64 would wrap
		return decimal.FromString(fmt.Sprint(v))
	case *apd.Decimal:
		return v, nil
	case string:
		return decimal.FromString(v)
	default:
		return nil, fmt.Errorf("abysmal: cannot coerce %T to decimal", value)
	}
}

// Reset restores every current variable slot to its baseline value, then
// applies overrides in order. Each override receives the Machine after the
// baseline restore (and after any earlier overrides) so it can call Set
// itself; this mirrors machine.reset(overrides={}) while letting overrides be
// expressed with the same Set/WithBaselineValue vocabulary used at
// construction. reset();reset() is idempotent because baseline slots are
// never mutated by anything but NewMachine.
func (m *Machine) Reset(overrides ...func(*Machine) error) (*Machine, error) {
	n := len(m.prog.variables)
	copy(m.variables[:n], m.variables[n:])
	for _, override := range overrides {
		if override == nil {
			continue
		}
		if err := override(m); err != nil {
			return m, err
		}
	}
	return m, nil
}
