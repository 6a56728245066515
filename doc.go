/*
Package abysmal implements a decimal stack machine: a small, deliberately
non-Turing-complete virtual machine for evaluating decimal arithmetic and
comparison scripts compiled from DSMAL, a flat, semicolon-delimited bytecode
format.

A Program is the immutable, compiled form of one DSMAL source string: a
table of named variables, a table of decimal constants, and a decoded
instruction vector. Programs are safe to share across goroutines and across
any number of Machines.

	prog, err := abysmal.LoadProgram("x|y;;Lv0Lv1AdSt0Xx")
	if err != nil {
		// invalid program
	}

A Machine is one mutable execution instance bound to a Program: its own
32-slot operand stack, a 256-cell arena with mark-and-sweep collection, and
current/baseline banks for the Program's named variables. Every computed
value is routed through a canonicalization step that interns small integers
and zero, so that most programs touch the arena rarely if at all.

	m, err := prog.NewMachine(abysmal.WithBaselineValue("x", 1))
	if err != nil {
		// bad baseline override
	}
	if _, err := m.Run(context.Background()); err != nil {
		// execution fault: ExecutionError, InstructionLimitExceededError, ...
	}
	y, _ := m.Get("y")

Multiple Machines bound to the same Program may run concurrently; see
RunConcurrently. A single Machine is not safe for concurrent use.
*/
package abysmal
