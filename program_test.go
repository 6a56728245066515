package abysmal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProgramParsesSections(t *testing.T) {
	p, err := LoadProgram("x|y;3.14;Lv0CpMlLc0MlSt1Xx")
	require.NoError(t, err)
	assert.Equal(t, 2, p.VariableCount())
	assert.Equal(t, 1, p.ConstantCount())
	assert.Equal(t, 7, p.InstructionCount())
	assert.Equal(t, "x", p.VariableName(0))
	assert.Equal(t, "y", p.VariableName(1))
}

func TestLoadProgramRequiresExactlyTwoSeparators(t *testing.T) {
	_, err := LoadProgram(";Xx")
	assert.IsType(t, InvalidProgramError{}, err)

	_, err = LoadProgram(";;;Xx")
	assert.IsType(t, InvalidProgramError{}, err)
}

func TestLoadProgramRejectsEmptyCode(t *testing.T) {
	_, err := LoadProgram(";;")
	assert.IsType(t, InvalidProgramError{}, err)
}

func TestLoadProgramRejectsDuplicateVariableNames(t *testing.T) {
	_, err := LoadProgram("x|x;;Xx")
	assert.IsType(t, InvalidProgramError{}, err)
}

func TestLoadProgramRejectsEmptyVariableName(t *testing.T) {
	_, err := LoadProgram("x||y;;Xx")
	assert.IsType(t, InvalidProgramError{}, err)
}

func TestLoadProgramRejectsUnknownOpcode(t *testing.T) {
	_, err := LoadProgram(";;Zz")
	assert.IsType(t, InvalidProgramError{}, err)
}

func TestLoadProgramRejectsMissingParameter(t *testing.T) {
	_, err := LoadProgram(";;Lc")
	assert.IsType(t, InvalidProgramError{}, err)
}

func TestLoadProgramRejectsUnexpectedParameter(t *testing.T) {
	_, err := LoadProgram(";;Xx0")
	assert.IsType(t, InvalidProgramError{}, err)
}

func TestLoadProgramRejectsOutOfRangeConstantIndex(t *testing.T) {
	_, err := LoadProgram(";1;Lc1Xx")
	assert.IsType(t, InvalidProgramError{}, err)
}

func TestLoadProgramRejectsOutOfRangeVariableIndex(t *testing.T) {
	_, err := LoadProgram("x;;Lv1Xx")
	assert.IsType(t, InvalidProgramError{}, err)
}

func TestLoadProgramAcceptsUncheckedJumpTarget(t *testing.T) {
	// Jump targets aren't range-checked until run time.
	p, err := LoadProgram(";;Ju999")
	require.NoError(t, err)
	assert.Equal(t, 1, p.InstructionCount())
}

func TestLoadProgramRejectsUnparsableConstant(t *testing.T) {
	_, err := LoadProgram(";1e5;Xx")
	assert.IsType(t, InvalidProgramError{}, err)
}

func TestSerializeRoundTrip(t *testing.T) {
	source := "x|y;3.14|2.5;Lv0CpMlLc0MlSt1Xx"
	p, err := LoadProgram(source)
	require.NoError(t, err)
	assert.Equal(t, source, p.Serialize())

	p2, err := LoadProgram(p.Serialize())
	require.NoError(t, err)
	assert.Equal(t, p.VariableCount(), p2.VariableCount())
	assert.Equal(t, p.ConstantCount(), p2.ConstantCount())
	assert.Equal(t, p.InstructionCount(), p2.InstructionCount())
}

func TestLoadProgramNoVariablesOrConstants(t *testing.T) {
	p, err := LoadProgram(";;Xx")
	require.NoError(t, err)
	assert.Equal(t, 0, p.VariableCount())
	assert.Equal(t, 0, p.ConstantCount())
	assert.Equal(t, 1, p.InstructionCount())
}
