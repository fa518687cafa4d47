package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mgomes/dotbf/bf"
	"github.com/spf13/cobra"
)

type fmtOptions struct {
	write bool
	check bool
	strip bool
}

func newFmtCmd() *cobra.Command {
	var opts fmtOptions
	cmd := &cobra.Command{
		Use:   "fmt [flags] <path>...",
		Short: "Normalize whitespace in .bf files",
		Long: `Fmt normalizes line endings and trailing whitespace of .bf files and
prints the result. Directories are walked recursively. With --strip only the
command characters are kept, which also requires the brackets to balance.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFmt(cmd.OutOrStdout(), args, opts)
		},
	}
	cmd.Flags().BoolVarP(&opts.write, "write", "w", false, "write result to source files instead of stdout")
	cmd.Flags().BoolVar(&opts.check, "check", false, "fail if any source file needs formatting")
	cmd.Flags().BoolVar(&opts.strip, "strip", false, "drop comments and whitespace, keeping only commands")
	return cmd
}

func runFmt(stdout io.Writer, targets []string, opts fmtOptions) error {
	if len(targets) == 0 {
		return errors.New("dotbf fmt: path required")
	}

	files, err := collectSourceFiles(targets)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return nil
	}

	changedCount := 0
	for _, path := range files {
		originalBytes, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		original := string(originalBytes)
		formatted, err := formatSource(original, opts.strip)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		changed := formatted != original
		if changed {
			changedCount++
		}

		switch {
		case opts.write && changed:
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("stat %s: %w", path, err)
			}
			if err := os.WriteFile(path, []byte(formatted), info.Mode().Perm()); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
		case !opts.write && !opts.check:
			if _, err := io.WriteString(stdout, formatted); err != nil {
				return err
			}
		}
	}

	if opts.check && changedCount > 0 {
		return fmt.Errorf("dotbf fmt: %d file(s) need formatting", changedCount)
	}

	return nil
}

func collectSourceFiles(targets []string) ([]string, error) {
	seen := make(map[string]struct{})
	files := make([]string, 0)
	addFile := func(path string) {
		if checkSourcePath(path) != nil {
			return
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		files = append(files, abs)
	}

	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", target, err)
		}
		if !info.IsDir() {
			addFile(target)
			continue
		}
		err = filepath.WalkDir(target, func(path string, entry fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if entry.IsDir() {
				return nil
			}
			addFile(path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", target, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

func formatSource(source string, strip bool) (string, error) {
	if strip {
		instructions, err := bf.Parse(bf.Tokenize(source))
		if err != nil {
			return "", err
		}
		return bf.Source(instructions) + "\n", nil
	}

	normalized := strings.ReplaceAll(source, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	lines := strings.Split(normalized, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}

	joined := strings.Join(lines, "\n")
	joined = strings.TrimRight(joined, "\n")
	return joined + "\n", nil
}
