package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/mgomes/dotbf/bf"
	"github.com/spf13/cobra"
)

type lintWarning struct {
	Pos     bf.Position
	Message string
}

func newAnalyzeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <file.bf>",
		Short: "Report suspicious constructs in a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.analyzeProgram(cmd.OutOrStdout(), args[0])
		},
	}
}

func (a *app) analyzeProgram(stdout io.Writer, path string) error {
	source, err := readSource(path)
	if err != nil {
		return err
	}
	engine, err := a.newEngine()
	if err != nil {
		return err
	}
	program, err := engine.Compile(source)
	if err != nil {
		return fmt.Errorf("analysis compile failed: %w", err)
	}

	warnings := analyzeProgramWarnings(program.Instructions())
	if len(warnings) == 0 {
		fmt.Fprintln(stdout, "No issues found")
		return nil
	}

	for _, warning := range warnings {
		fmt.Fprintf(stdout, "%s:%d:%d: %s\n", path, warning.Pos.Line, warning.Pos.Column, warning.Message)
	}

	return fmt.Errorf("analysis found %d issue(s)", len(warnings))
}

func analyzeProgramWarnings(instructions []bf.Instruction) []lintWarning {
	warnings := make([]lintWarning, 0)
	lintInstructions(instructions, true, &warnings)

	sort.SliceStable(warnings, func(i, j int) bool {
		if warnings[i].Pos.Line != warnings[j].Pos.Line {
			return warnings[i].Pos.Line < warnings[j].Pos.Line
		}
		return warnings[i].Pos.Column < warnings[j].Pos.Column
	})

	return warnings
}

// lintInstructions walks one instruction sequence. tapeZero holds while no
// cell has been written yet; cellZero holds while the current cell is known
// to be zero, which is also the case right after a loop exits.
func lintInstructions(instructions []bf.Instruction, tapeZero bool, warnings *[]lintWarning) {
	cellZero := tapeZero
	var prev bf.Instruction
	for _, instr := range instructions {
		switch typed := instr.(type) {
		case *bf.NoOp:
			continue
		case *bf.Loop:
			if cellZero {
				*warnings = append(*warnings, lintWarning{
					Pos:     typed.Pos(),
					Message: "loop never runs: the current cell is always zero here",
				})
			}
			if len(typed.Body) == 0 {
				*warnings = append(*warnings, lintWarning{
					Pos:     typed.Pos(),
					Message: "empty loop never terminates once entered",
				})
			}
			lintInstructions(typed.Body, false, warnings)
			cellZero = true
		case *bf.MoveRight, *bf.MoveLeft:
			if cancels(prev, instr) {
				*warnings = append(*warnings, lintWarning{
					Pos:     prev.Pos(),
					Message: "pointer move is immediately undone",
				})
			}
			cellZero = tapeZero
		case *bf.Increment, *bf.Decrement:
			if cancels(prev, instr) {
				*warnings = append(*warnings, lintWarning{
					Pos:     prev.Pos(),
					Message: "cell change is immediately undone",
				})
			}
			cellZero = false
			tapeZero = false
		case *bf.Input:
			cellZero = false
			tapeZero = false
		}
		prev = instr
	}
}

func cancels(prev, next bf.Instruction) bool {
	switch prev.(type) {
	case *bf.MoveRight:
		_, ok := next.(*bf.MoveLeft)
		return ok
	case *bf.MoveLeft:
		_, ok := next.(*bf.MoveRight)
		return ok
	case *bf.Increment:
		_, ok := next.(*bf.Decrement)
		return ok
	case *bf.Decrement:
		_, ok := next.(*bf.Increment)
		return ok
	}
	return false
}
