package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/mgomes/dotbf/bf"
	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	var inputPath string
	cmd := &cobra.Command{
		Use:   "run [flags] <file.bf>",
		Short: "Run a Brainfuck program",
		Long: `Run compiles and executes a .bf file. Program input is read from stdin
unless --input names a file; output goes to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runProgram(cmd, args[0], inputPath)
		},
	}
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "read program input from this file instead of stdin")
	return cmd
}

func (a *app) runProgram(cmd *cobra.Command, path, inputPath string) error {
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
		return fmt.Errorf("compile failed: %w", err)
	}

	var input io.Reader = cmd.InOrStdin()
	if inputPath != "" {
		f, err := os.Open(inputPath)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		input = f
	}

	logger := a.logger.With(
		slog.String("run_id", uuid.NewString()),
		slog.String("program", path),
	)
	logger.Debug("starting program", slog.Int("tape_size", engine.Config().TapeSize))

	out := bufio.NewWriter(cmd.OutOrStdout())
	_, err = program.Run(cmd.Context(), bf.RunOptions{
		Input:  input,
		Output: out,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	return nil
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file.bf>...",
		Short: "Compile programs without running them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.newEngine()
			if err != nil {
				return err
			}
			for _, path := range args {
				source, err := readSource(path)
				if err != nil {
					return err
				}
				if _, err := engine.Compile(source); err != nil {
					return fmt.Errorf("%s: compile failed: %w", path, err)
				}
			}
			return nil
		},
	}
}
