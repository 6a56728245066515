package abysmal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithCoverageMarksExecutedInstructionsOnly(t *testing.T) {
	// Jz4 fires since the top of stack is 0, jumping straight to Xx and
	// leaving Lo/St0 uncovered.
	p := mustLoad(t, "x;;LzJz4LoSt0Xx")
	m, err := p.NewMachine()
	require.NoError(t, err)

	bits, err := m.RunWithCoverage(context.Background())
	require.NoError(t, err)
	require.Len(t, bits, p.InstructionCount())

	assert.True(t, bits[0], "Lz")
	assert.True(t, bits[1], "Jz4")
	assert.False(t, bits[2], "Lo should be skipped by the jump")
	assert.False(t, bits[3], "St0 should be skipped by the jump")
	assert.True(t, bits[4], "Xx")
}

func TestRunWithCoverageDiscardsVectorOnFailure(t *testing.T) {
	p := mustLoad(t, ";;LoLzDvXx")
	m, err := p.NewMachine()
	require.NoError(t, err)

	bits, err := m.RunWithCoverage(context.Background())
	assert.Error(t, err)
	assert.Nil(t, bits)
}

func TestStackUnderflowFails(t *testing.T) {
	p := mustLoad(t, ";;PpXx")
	m, err := p.NewMachine()
	require.NoError(t, err)

	_, err = m.Run(context.Background())
	assert.Error(t, err)
}

func TestJumpIfNonzeroTakesBranch(t *testing.T) {
	p := mustLoad(t, "x;;LoJn4LzSt0Xx")
	m, err := p.NewMachine()
	require.NoError(t, err)

	_, err = m.Run(context.Background())
	require.NoError(t, err)
	x, _ := m.Get("x")
	assert.Equal(t, "0", x)
}

func TestCopyDuplicatesTopOfStack(t *testing.T) {
	p := mustLoad(t, "x|y;;LoCpSt0St1Xx")
	m, err := p.NewMachine()
	require.NoError(t, err)

	_, err = m.Run(context.Background())
	require.NoError(t, err)
	x, _ := m.Get("x")
	y, _ := m.Get("y")
	assert.Equal(t, "1", x)
	assert.Equal(t, "1", y)
}

func TestNotFlipsBooleanValue(t *testing.T) {
	p := mustLoad(t, "x;;LzNtSt0Xx")
	m, err := p.NewMachine()
	require.NoError(t, err)

	_, err = m.Run(context.Background())
	require.NoError(t, err)
	x, _ := m.Get("x")
	assert.Equal(t, "1", x)
}

func TestEqualityComparesValues(t *testing.T) {
	p := mustLoad(t, "x;;LoLoEqSt0Xx")
	m, err := p.NewMachine()
	require.NoError(t, err)

	_, err = m.Run(context.Background())
	require.NoError(t, err)
	x, _ := m.Get("x")
	assert.Equal(t, "1", x)
}

func TestMinMaxPickCorrectOperand(t *testing.T) {
	p := mustLoad(t, "x|y;5|9;Lc0Lc1MnSt0Lc0Lc1MxSt1Xx")
	m, err := p.NewMachine()
	require.NoError(t, err)

	_, err = m.Run(context.Background())
	require.NoError(t, err)
	x, _ := m.Get("x")
	y, _ := m.Get("y")
	assert.Equal(t, "5", x)
	assert.Equal(t, "9", y)
}

func TestPowZeroToZeroIsZero(t *testing.T) {
	p := mustLoad(t, "x;;LzLzPwSt0Xx")
	m, err := p.NewMachine()
	require.NoError(t, err)

	_, err = m.Run(context.Background())
	require.NoError(t, err)
	x, _ := m.Get("x")
	assert.Equal(t, "0", x)
}

func TestPowNonzeroToZeroIsOne(t *testing.T) {
	p := mustLoad(t, "x;;LoLzPwSt0Xx")
	m, err := p.NewMachine()
	require.NoError(t, err)

	_, err = m.Run(context.Background())
	require.NoError(t, err)
	x, _ := m.Get("x")
	assert.Equal(t, "1", x)
}

// sliceRandomSource yields its values in order, then reports exhaustion.
type sliceRandomSource struct {
	values []string
	i      int
}

func (s *sliceRandomSource) Next() (string, bool) {
	if s.i >= len(s.values) {
		return "", false
	}
	v := s.values[s.i]
	s.i++
	return v, true
}

func TestLoadRandomPullsSuccessiveValues(t *testing.T) {
	p := mustLoad(t, "x|y;;LrSt0LrSt1Xx")
	m, err := p.NewMachine(WithRandomSource(&sliceRandomSource{values: []string{"3", "7"}}))
	require.NoError(t, err)

	_, err = m.Run(context.Background())
	require.NoError(t, err)
	x, _ := m.Get("x")
	y, _ := m.Get("y")
	assert.Equal(t, "3", x)
	assert.Equal(t, "7", y)
}

func TestLoadRandomWithNoSourcePushesZero(t *testing.T) {
	p := mustLoad(t, "x;;LrSt0Xx")
	m, err := p.NewMachine()
	require.NoError(t, err)

	_, err = m.Run(context.Background())
	require.NoError(t, err)
	x, _ := m.Get("x")
	assert.Equal(t, "0", x)
}

func TestLoadRandomExhaustionFails(t *testing.T) {
	p := mustLoad(t, ";;LrLrXx")
	m, err := p.NewMachine(WithRandomSource(&sliceRandomSource{values: []string{"1"}}))
	require.NoError(t, err)

	_, err = m.Run(context.Background())
	var execErr ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, "Lr", execErr.Opcode)
}

func TestLoadRandomPullsFreshValuesEachRun(t *testing.T) {
	p := mustLoad(t, "x;;LrSt0Xx")
	src := &sliceRandomSource{values: []string{"1", "2"}}
	m, err := p.NewMachine(WithRandomSource(src))
	require.NoError(t, err)

	_, err = m.Run(context.Background())
	require.NoError(t, err)
	x1, _ := m.Get("x")
	assert.Equal(t, "1", x1)

	_, err = m.Reset()
	require.NoError(t, err)
	_, err = m.Run(context.Background())
	require.NoError(t, err)
	x2, _ := m.Get("x")
	assert.Equal(t, "2", x2)
}
