package abysmal

import (
	"strings"

	"github.com/zillow/abysmal/internal/decimal"
	"github.com/zillow/abysmal/internal/dsmal"
)

// maxSection is the uint16 ceiling enforced on variable, constant, and
// instruction counts, since a Program's instruction parameters address
// these tables with a 16-bit index.
const maxSection = 65535

// Program is the immutable, shareable result of compiling one DSMAL string:
// a variable name table, a constant table, and a decoded instruction
// vector. A Program owns none of the mutable execution state a Machine
// needs; many Machines may share one Program, including across goroutines.
type Program struct {
	source       string
	variables    []string
	variableIdx  map[string]int
	constants    []cell
	instructions []instruction
}

// LoadProgram parses source as a DSMAL program ("VARS;CONSTS;CODE") and
// returns the compiled, immutable Program. Any structural or semantic
// violation (wrong section count, duplicate or empty variable name,
// unparsable constant, unknown opcode, out-of-range load/store parameter,
// or an empty CODE section) is reported as an InvalidProgramError.
func LoadProgram(source string) (*Program, error) {
	parts := strings.Split(source, ";")
	if len(parts) != 3 {
		return nil, invalidProgramf("expected exactly two ';' separators, found %d", len(parts)-1)
	}

	variables, variableIdx, err := parseVariables(parts[0])
	if err != nil {
		return nil, err
	}
	constants, err := parseConstants(parts[1])
	if err != nil {
		return nil, err
	}
	instructions, err := parseInstructions(parts[2], len(variables), len(constants))
	if err != nil {
		return nil, err
	}

	return &Program{
		source:       source,
		variables:    variables,
		variableIdx:  variableIdx,
		constants:    constants,
		instructions: instructions,
	}, nil
}

// Serialize returns the original DSMAL source this Program was built from,
// byte for byte, rather than re-rendering the parsed structure. So
// LoadProgram(p.Serialize()) always yields an equivalent Program even when
// a different (but equivalent) rendering would also have been valid DSMAL.
func (p *Program) Serialize() string { return p.source }

// VariableCount returns the number of named variable slots the program
// declares.
func (p *Program) VariableCount() int { return len(p.variables) }

// ConstantCount returns the number of constants in the program's table.
func (p *Program) ConstantCount() int { return len(p.constants) }

// InstructionCount returns the length of the decoded instruction vector.
func (p *Program) InstructionCount() int { return len(p.instructions) }

// VariableName returns the declared name of variable slot i.
func (p *Program) VariableName(i int) string { return p.variables[i] }

func parseVariables(section string) ([]string, map[string]int, error) {
	names := splitSection(section)
	if len(names) > maxSection {
		return nil, nil, invalidProgramf("too many variables: %d exceeds %d", len(names), maxSection)
	}
	idx := make(map[string]int, len(names))
	for i, name := range names {
		if name == "" {
			return nil, nil, invalidProgramf("variable name at position %d is empty", i)
		}
		if _, dup := idx[name]; dup {
			return nil, nil, invalidProgramf("duplicate variable name %q", name)
		}
		idx[name] = i
	}
	return names, idx, nil
}

func parseConstants(section string) ([]cell, error) {
	lits := splitSection(section)
	if len(lits) > maxSection {
		return nil, invalidProgramf("too many constants: %d exceeds %d", len(lits), maxSection)
	}
	constants := make([]cell, len(lits))
	for i, lit := range lits {
		d, err := decimal.FromString(lit)
		if err != nil {
			return nil, invalidProgramf("constant %d: %v", i, err)
		}
		constants[i].setDecimal(d)
	}
	return constants, nil
}

// splitSection splits a pipe-separated section the way the DSMAL grammar
// requires: "" means zero entries, anything else splits on "|" with empty
// entries preserved (so "||" is three empty names, which parseVariables and
// parseConstants each reject for their own reasons).
func splitSection(section string) []string {
	if section == "" {
		return nil
	}
	return strings.Split(section, "|")
}

func parseInstructions(code string, variableCount, constantCount int) ([]instruction, error) {
	if code == "" {
		return nil, invalidProgramf("code section is empty")
	}
	tokens, err := dsmal.Scan(code)
	if err != nil {
		return nil, invalidProgramf("%v", err)
	}
	if len(tokens) > maxSection {
		return nil, invalidProgramf("too many instructions: %d exceeds %d", len(tokens), maxSection)
	}

	instructions := make([]instruction, len(tokens))
	for i, tok := range tokens {
		op, known := mnemonicToOpcode[tok.Mnemonic]
		if !known {
			return nil, invalidProgramf("offset %d: unknown opcode %q", tok.Offset, tok.Mnemonic)
		}
		info := opcodeTable[op]
		if info.hasParam != tok.HasParam {
			if info.hasParam {
				return nil, invalidProgramf("offset %d: opcode %q requires a parameter", tok.Offset, tok.Mnemonic)
			}
			return nil, invalidProgramf("offset %d: opcode %q takes no parameter", tok.Offset, tok.Mnemonic)
		}

		// Load/store-of-constant/variable parameters are bounds-checked
		// here, at parse time; jump targets are intentionally left
		// unchecked until run time, since a forward jump's target may
		// not exist yet while earlier instructions are still being
		// decoded.
		switch op {
		case opLoadConstant:
			if int(tok.Param) >= constantCount {
				return nil, invalidProgramf("offset %d: constant index %d out of range [0, %d)", tok.Offset, tok.Param, constantCount)
			}
		case opLoadVariable, opSetVariable:
			if int(tok.Param) >= variableCount {
				return nil, invalidProgramf("offset %d: variable index %d out of range [0, %d)", tok.Offset, tok.Param, variableCount)
			}
		}

		instructions[i] = instruction{op: op, param: tok.Param}
	}
	return instructions, nil
}
