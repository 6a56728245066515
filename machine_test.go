package abysmal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoad(t *testing.T, source string) *Program {
	t.Helper()
	p, err := LoadProgram(source)
	require.NoError(t, err)
	return p
}

func TestRunEmptyProgramExitsImmediately(t *testing.T) {
	p := mustLoad(t, ";;Xx")
	m, err := p.NewMachine()
	require.NoError(t, err)

	n, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunComputesAndStoresVariable(t *testing.T) {
	p := mustLoad(t, "x|y;3.14;Lv0CpMlLc0MlSt1Xx")
	m, err := p.NewMachine(WithBaselineValue("x", 2))
	require.NoError(t, err)

	n, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	y, err := m.Get("y")
	require.NoError(t, err)
	assert.Equal(t, "12.56", y)
}

func TestDivisionByZeroFails(t *testing.T) {
	p := mustLoad(t, ";;LoLzDvXx")
	m, err := p.NewMachine()
	require.NoError(t, err)

	_, err = m.Run(context.Background())
	var execErr ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, "Dv", execErr.Opcode)
}

func TestProgramCounterOutOfBoundsFails(t *testing.T) {
	p := mustLoad(t, "p;;Lv0")
	m, err := p.NewMachine()
	require.NoError(t, err)

	_, err = m.Run(context.Background())
	var execErr ExecutionError
	require.True(t, errors.As(err, &execErr))
}

func TestInstructionLimitExceeded(t *testing.T) {
	p := mustLoad(t, ";;Lz" + loopBody(10))
	m, err := p.NewMachine(WithInstructionLimit(3))
	require.NoError(t, err)

	_, err = m.Run(context.Background())
	var limitErr InstructionLimitExceededError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, 3, limitErr.Limit)
}

// loopBody returns n Pp/Lz pairs, used only to build a program that needs
// more than a handful of ticks without depending on any single opcode's
// short-circuit behavior.
func loopBody(n int) string {
	var body string
	for i := 0; i < n; i++ {
		body += "PpLz"
	}
	return body + "Xx"
}

func TestResetIsIdempotent(t *testing.T) {
	p := mustLoad(t, "x;;Lz" + "St0" + "Xx")
	m, err := p.NewMachine(WithBaselineValue("x", 5))
	require.NoError(t, err)

	_, err = m.Run(context.Background())
	require.NoError(t, err)
	x, _ := m.Get("x")
	assert.Equal(t, "0", x)

	_, err = m.Reset()
	require.NoError(t, err)
	x1, _ := m.Get("x")
	_, err = m.Reset()
	require.NoError(t, err)
	x2, _ := m.Get("x")
	assert.Equal(t, x1, x2)
	assert.Equal(t, "5", x1)
}

func TestResetWithOverrides(t *testing.T) {
	p := mustLoad(t, "x;;Xx")
	m, err := p.NewMachine(WithBaselineValue("x", 1))
	require.NoError(t, err)

	_, err = m.Reset(func(m *Machine) error { return m.Set("x", 9) })
	require.NoError(t, err)
	x, _ := m.Get("x")
	assert.Equal(t, "9", x)
}

func TestGetUnknownVariable(t *testing.T) {
	p := mustLoad(t, ";;Xx")
	m, err := p.NewMachine()
	require.NoError(t, err)

	_, err = m.Get("missing")
	assert.IsType(t, KeyError{}, err)
}

func TestSetUnknownVariable(t *testing.T) {
	p := mustLoad(t, ";;Xx")
	m, err := p.NewMachine()
	require.NoError(t, err)

	err = m.Set("missing", 1)
	assert.IsType(t, KeyError{}, err)
}

func TestSetUnparsableValue(t *testing.T) {
	p := mustLoad(t, "x;;Xx")
	m, err := p.NewMachine()
	require.NoError(t, err)

	err = m.Set("x", "not-a-number")
	assert.IsType(t, ValueError{}, err)
}

func TestGetAtAndSetAtAddressByPosition(t *testing.T) {
	p := mustLoad(t, "x|y;;Xx")
	m, err := p.NewMachine()
	require.NoError(t, err)

	require.NoError(t, m.SetAt(1, 7))
	y, err := m.GetAt(1)
	require.NoError(t, err)
	assert.Equal(t, "7", y)
}

func TestGetAtOutOfRangeIndex(t *testing.T) {
	p := mustLoad(t, "x;;Xx")
	m, err := p.NewMachine()
	require.NoError(t, err)

	_, err = m.GetAt(5)
	var idxErr IndexError
	require.True(t, errors.As(err, &idxErr))
	assert.Equal(t, 5, idxErr.Index)
	assert.Equal(t, 1, idxErr.Bound)
}

func TestSetAtOutOfRangeIndex(t *testing.T) {
	p := mustLoad(t, "x;;Xx")
	m, err := p.NewMachine()
	require.NoError(t, err)

	err = m.SetAt(-1, 1)
	assert.IsType(t, IndexError{}, err)
}

func TestWithBaselineAppliesMultiple(t *testing.T) {
	p := mustLoad(t, "x|y;;Xx")
	m, err := p.NewMachine(WithBaseline(map[string]string{"x": "1", "y": "2"}))
	require.NoError(t, err)

	x, _ := m.Get("x")
	y, _ := m.Get("y")
	assert.Equal(t, "1", x)
	assert.Equal(t, "2", y)
}

func TestRunRespectsContextCancellation(t *testing.T) {
	p := mustLoad(t, ";;Lz"+loopBody(10000))
	m, err := p.NewMachine()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = m.Run(ctx)
	var execErr ExecutionError
	require.True(t, errors.As(err, &execErr))
}

func TestCanonicalStringHasNoTrailingZeros(t *testing.T) {
	p := mustLoad(t, "x;1.2000;Lc0St0Xx")
	m, err := p.NewMachine()
	require.NoError(t, err)
	_, err = m.Run(context.Background())
	require.NoError(t, err)
	x, _ := m.Get("x")
	assert.Equal(t, "1.2", x)
}

func TestZeroStringIsAlwaysZero(t *testing.T) {
	p := mustLoad(t, "x;;LzSt0Xx")
	m, err := p.NewMachine()
	require.NoError(t, err)
	_, err = m.Run(context.Background())
	require.NoError(t, err)
	x, _ := m.Get("x")
	assert.Equal(t, "0", x)
}
