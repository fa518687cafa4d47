package bf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Config controls tape size and execution bounds.
type Config struct {
	// TapeSize is the number of cells given to each run. Zero selects
	// DefaultTapeSize.
	TapeSize int
	// StepQuota stops a run after this many steps. Zero means unlimited.
	StepQuota int
	Logger    *slog.Logger
}

// Engine compiles Brainfuck sources into runnable programs. An Engine is
// safe for concurrent use.
type Engine struct {
	config Config
	logger *slog.Logger
}

// NewEngine validates cfg and fills in defaults.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.TapeSize < 0 {
		return nil, fmt.Errorf("tape size must not be negative (got %d)", cfg.TapeSize)
	}
	if cfg.StepQuota < 0 {
		return nil, fmt.Errorf("step quota must not be negative (got %d)", cfg.StepQuota)
	}
	if cfg.TapeSize == 0 {
		cfg.TapeSize = DefaultTapeSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{config: cfg, logger: logger}, nil
}

func MustNewEngine(cfg Config) *Engine {
	engine, err := NewEngine(cfg)
	if err != nil {
		panic(err)
	}
	return engine
}

// Config returns the effective configuration, defaults applied.
func (e *Engine) Config() Config {
	return e.config
}

// Compile tokenizes and parses source. Syntax errors carry a code frame
// pointing at the offending bracket.
func (e *Engine) Compile(source string) (*Program, error) {
	instructions, err := Parse(Tokenize(source))
	if err != nil {
		var syntaxErr *SyntaxError
		if errors.As(err, &syntaxErr) {
			syntaxErr.source = source
		}
		e.logger.Debug("compile failed", slog.String("error", err.Error()))
		return nil, err
	}

	e.logger.Debug("compiled program",
		slog.Int("instructions", len(instructions)),
		slog.Int("loops", CountLoops(instructions)))

	return &Program{engine: e, instructions: instructions, source: source}, nil
}

// Program is a compiled instruction tree. It may be run any number of times,
// concurrently, as long as each run uses its own Machine.
type Program struct {
	engine       *Engine
	instructions []Instruction
	source       string
}

// RunOptions wires a run to its I/O and state.
type RunOptions struct {
	// Input feeds Input instructions. A nil Input behaves as an empty one.
	Input io.Reader
	// Output receives Output instructions. Nil discards.
	Output io.Writer
	// Machine, when set, is used instead of a fresh tape and keeps its
	// state after the run.
	Machine *Machine
	// Logger overrides the engine logger for this run.
	Logger *slog.Logger
}

// RunStats describes a finished run, successful or not.
type RunStats struct {
	Steps   int
	Pointer int
}

func (p *Program) Instructions() []Instruction {
	return p.instructions
}

func (p *Program) Source() string {
	return p.source
}

// Run executes the program.
func (p *Program) Run(ctx context.Context, opts RunOptions) (RunStats, error) {
	machine := opts.Machine
	if machine == nil {
		machine = NewMachine(p.engine.config.TapeSize)
	}
	logger := opts.Logger
	if logger == nil {
		logger = p.engine.logger
	}

	exec := newExecution(ctx, machine, opts.Input, opts.Output)
	exec.source = p.source
	exec.quota = p.engine.config.StepQuota

	err := exec.run(p.instructions)
	stats := RunStats{Steps: exec.Steps(), Pointer: machine.Pointer}
	if err != nil {
		logger.Debug("program failed",
			slog.Int("steps", stats.Steps),
			slog.Int("pointer", stats.Pointer),
			slog.String("error", err.Error()))
		return stats, err
	}
	logger.Debug("program finished",
		slog.Int("steps", stats.Steps),
		slog.Int("pointer", stats.Pointer))
	return stats, nil
}

// Run compiles and runs source with the default configuration.
func Run(ctx context.Context, source string, input io.Reader, output io.Writer) error {
	program, err := MustNewEngine(Config{}).Compile(source)
	if err != nil {
		return err
	}
	_, err = program.Run(ctx, RunOptions{Input: input, Output: output})
	return err
}
