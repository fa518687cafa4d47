package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/mgomes/dotbf/bf"
	"github.com/spf13/cobra"
)

const cliVersion = "0.1.0"

var errInvalidExtension = errors.New("invalid file type (.bf expected)")

func main() {
	ctx, stop := interruptContext(context.Background())
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// interruptContext is cancelled by the first interrupt. The handler is then
// released, so a second interrupt terminates the process even while a read
// is blocked on stdin.
func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	context.AfterFunc(ctx, stop)
	return ctx, stop
}

// app carries what every subcommand shares once flags are parsed.
type app struct {
	configPath string
	verbose    bool

	config Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "dotbf [file.bf]",
		Short: "Brainfuck interpreter and tooling",
		Long: `dotbf runs Brainfuck programs. A single .bf argument is shorthand for
"dotbf run <file.bf>".`,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			if err := checkSourcePath(args[0]); err != nil {
				return fmt.Errorf("unknown command or file %q: %w", args[0], err)
			}
			return a.runProgram(cmd, args[0], "")
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default: $DOTBF_CONFIG or ./dotbf.toml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newRunCmd(a),
		newCheckCmd(a),
		newFmtCmd(),
		newAnalyzeCmd(a),
		newLSPCmd(a),
		newREPLCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) init(logOutput io.Writer) error {
	cfg, err := loadConfig(a.configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(logOutput, cfg.Log, a.verbose)
	if err != nil {
		return err
	}
	a.config = cfg
	a.logger = logger
	return nil
}

func (a *app) newEngine() (*bf.Engine, error) {
	return bf.NewEngine(a.config.engineConfig(a.logger))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the dotbf version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "dotbf %s\n", cliVersion)
			return err
		},
	}
}

func checkSourcePath(path string) error {
	if filepath.Ext(path) != ".bf" {
		return errInvalidExtension
	}
	return nil
}

func readSource(path string) (string, error) {
	if err := checkSourcePath(path); err != nil {
		return "", err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve program path: %w", err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("read program: %w", err)
	}
	return string(data), nil
}
