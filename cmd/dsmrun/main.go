package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/zillow/abysmal"
)

type setFlag map[string]string

func (s setFlag) String() string {
	var b strings.Builder
	for k, v := range s {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%s", k, v)
	}
	return b.String()
}

func (s setFlag) Set(kv string) error {
	name, value, ok := strings.Cut(kv, "=")
	if !ok {
		return fmt.Errorf("expected name=value, got %q", kv)
	}
	s[name] = value
	return nil
}

func main() {
	ctx := context.Background()

	var timeout time.Duration
	var trace bool
	var tracePath string
	var limit int
	var coverage bool
	sets := make(setFlag)
	flag.DurationVar(&timeout, "timeout", 0, "specify a time limit")
	flag.BoolVar(&trace, "trace", false, "enable trace logging to stderr")
	flag.StringVar(&tracePath, "trace-file", "", "also write JSON trace logging to this file")
	flag.IntVar(&limit, "limit", 0, "override the instruction limit")
	flag.BoolVar(&coverage, "coverage", false, "run with coverage capture and report it on stdout")
	flag.Var(sets, "set", "set a baseline variable, name=value (repeatable)")
	flag.Parse()

	if err := run(ctx, os.Stdin, os.Stdout, timeout, trace, tracePath, limit, coverage, sets, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %+v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdin io.Reader, stdout io.Writer, timeout time.Duration, trace bool, tracePath string, limit int, coverage bool, sets setFlag, args []string) error {
	source, err := readSource(stdin, args)
	if err != nil {
		return err
	}

	prog, err := abysmal.LoadProgram(source)
	if err != nil {
		return err
	}

	var opts []abysmal.MachineOption
	if limit != 0 {
		opts = append(opts, abysmal.WithInstructionLimit(limit))
	}
	if len(sets) > 0 {
		opts = append(opts, abysmal.WithBaseline(sets))
	}
	if trace || tracePath != "" {
		logger, closer, err := newLogger(trace, tracePath)
		if err != nil {
			return err
		}
		defer closer.Close()
		opts = append(opts, abysmal.WithLogger(logger))
	}

	m, err := prog.NewMachine(opts...)
	if err != nil {
		return err
	}

	if timeout != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if coverage {
		bits, err := m.RunWithCoverage(ctx)
		if err != nil {
			return err
		}
		printCoverage(stdout, bits)
	} else if _, err := m.Run(ctx); err != nil {
		return err
	}

	return printVariables(stdout, prog, m)
}

func readSource(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		b, err := os.ReadFile(args[0])
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func printVariables(w io.Writer, prog *abysmal.Program, m *abysmal.Machine) error {
	for i := 0; i < prog.VariableCount(); i++ {
		name := prog.VariableName(i)
		value, err := m.Get(name)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s=%s\n", name, value); err != nil {
			return err
		}
	}
	return nil
}

func printCoverage(w io.Writer, bits []bool) {
	hit := 0
	for _, b := range bits {
		if b {
			hit++
		}
	}
	fmt.Fprintf(w, "coverage: %d/%d instructions\n", hit, len(bits))
}
