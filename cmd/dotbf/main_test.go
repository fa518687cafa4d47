package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mgomes/dotbf/bf"
)

func TestRootCommandRejectsUnknownCommand(t *testing.T) {
	_, _, err := executeCLI(t, "", "unknown")
	if err == nil {
		t.Fatalf("expected unknown command error")
	}
	if !strings.Contains(err.Error(), "unknown command") || !errors.Is(err, errInvalidExtension) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRootCommandRunsBareProgramPath(t *testing.T) {
	path := writeProgram(t, ",+.")

	stdout, _, err := executeCLI(t, "a", path)
	if err != nil {
		t.Fatalf("dotbf <file> failed: %v", err)
	}
	if stdout != "b" {
		t.Fatalf("unexpected stdout: %q", stdout)
	}
}

func TestRootCommandWithoutArgsPrintsHelp(t *testing.T) {
	stdout, _, err := executeCLI(t, "")
	if err != nil {
		t.Fatalf("dotbf without args failed: %v", err)
	}
	if !strings.Contains(stdout, "Usage:") || !strings.Contains(stdout, "dotbf [file.bf]") {
		t.Fatalf("expected usage, got %q", stdout)
	}
}

func TestRootCommandRejectsSeveralPaths(t *testing.T) {
	if _, _, err := executeCLI(t, "", "a.bf", "b.bf"); err == nil {
		t.Fatalf("expected argument count error")
	}
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := executeCLI(t, "", "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if stdout != "dotbf "+cliVersion+"\n" {
		t.Fatalf("unexpected version output: %q", stdout)
	}
}

func TestRunCommandPrintsProgramOutput(t *testing.T) {
	path := writeProgram(t, "++++++++[>++++++++<-]>+.")

	stdout, _, err := executeCLI(t, "", "run", path)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if stdout != "A" {
		t.Fatalf("unexpected stdout: %q", stdout)
	}
}

func TestRunCommandReadsStdin(t *testing.T) {
	path := writeProgram(t, ",.,.")

	stdout, _, err := executeCLI(t, "hi", "run", path)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if stdout != "hi" {
		t.Fatalf("unexpected stdout: %q", stdout)
	}
}

func TestRunCommandReadsInputFile(t *testing.T) {
	path := writeProgram(t, ",+.")
	inputPath := filepath.Join(t.TempDir(), "input.txt")
	if err := os.WriteFile(inputPath, []byte("a"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	stdout, _, err := executeCLI(t, "ignored", "run", "--input", inputPath, path)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if stdout != "b" {
		t.Fatalf("unexpected stdout: %q", stdout)
	}
}

func TestRunCommandRejectsNonBFExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.txt")
	if err := os.WriteFile(path, []byte("+."), 0o644); err != nil {
		t.Fatalf("write program: %v", err)
	}

	_, _, err := executeCLI(t, "", "run", path)
	if !errors.Is(err, errInvalidExtension) {
		t.Fatalf("expected invalid extension error, got %v", err)
	}
	if err.Error() != "invalid file type (.bf expected)" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestRunCommandMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.bf")

	_, _, err := executeCLI(t, "", "run", path)
	if err == nil {
		t.Fatalf("expected read error")
	}
	if !strings.Contains(err.Error(), "read program") || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunCommandRequiresExactlyOnePath(t *testing.T) {
	if _, _, err := executeCLI(t, "", "run"); err == nil {
		t.Fatalf("expected argument error")
	}
}

func TestRunCommandReportsSyntaxError(t *testing.T) {
	path := writeProgram(t, "+[")

	_, _, err := executeCLI(t, "", "run", path)
	if !errors.Is(err, bf.ErrUnmatchedOpen) {
		t.Fatalf("expected unmatched open error, got %v", err)
	}
	if !strings.Contains(err.Error(), "compile failed") {
		t.Fatalf("missing context in error: %v", err)
	}
}

func TestRunCommandReportsRuntimeErrorAfterFlushingOutput(t *testing.T) {
	path := writeProgram(t, "+++.<")

	stdout, _, err := executeCLI(t, "", "run", path)
	if !errors.Is(err, bf.ErrPointerOutOfBounds) {
		t.Fatalf("expected pointer error, got %v", err)
	}
	if !strings.Contains(err.Error(), "execution failed") {
		t.Fatalf("missing context in error: %v", err)
	}
	if stdout != "\x03" {
		t.Fatalf("output before failure should be flushed, got %q", stdout)
	}
}

func TestRunCommandHonoursConfiguredTapeSize(t *testing.T) {
	configPath := writeConfig(t, "[engine]\ntape_size = 2\n")
	path := writeProgram(t, ">>")

	_, _, err := executeCLI(t, "", "--config", configPath, "run", path)
	if !errors.Is(err, bf.ErrPointerOutOfBounds) {
		t.Fatalf("expected pointer error on a two cell tape, got %v", err)
	}
}

func TestRunCommandHonoursConfiguredStepQuota(t *testing.T) {
	configPath := writeConfig(t, "[engine]\nstep_quota = 100\n")
	path := writeProgram(t, "+[]")

	_, _, err := executeCLI(t, "", "--config", configPath, "run", path)
	if !errors.Is(err, bf.ErrStepQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}
}

func TestRunCommandVerboseLogsRunID(t *testing.T) {
	path := writeProgram(t, "+.")

	_, stderr, err := executeCLI(t, "", "-v", "run", path)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(stderr, "starting program") || !strings.Contains(stderr, "run_id=") {
		t.Fatalf("expected debug log with run id, got %q", stderr)
	}
}

func TestRunCommandQuietByDefault(t *testing.T) {
	path := writeProgram(t, "+.")

	_, stderr, err := executeCLI(t, "", "run", path)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if stderr != "" {
		t.Fatalf("expected no log output, got %q", stderr)
	}
}

func TestCheckCommand(t *testing.T) {
	good := writeProgram(t, "+[->+<]")
	bad := writeProgram(t, "+]")

	if _, _, err := executeCLI(t, "", "check", good); err != nil {
		t.Fatalf("check failed: %v", err)
	}

	_, _, err := executeCLI(t, "", "check", good, bad)
	if !errors.Is(err, bf.ErrUnmatchedClose) {
		t.Fatalf("expected unmatched close error, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), bad+": compile failed") {
		t.Fatalf("error should name the failing file: %v", err)
	}
}

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv(configEnvVar, "")

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg != defaultConfig() {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Engine.TapeSize != bf.DefaultTapeSize || cfg.Log.Level != "warn" || cfg.REPL.StepQuota != 1_000_000 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	path := writeConfig(t, "[engine]\ntape_size = 64\n\n[log]\nlevel = \"debug\"\nformat = \"json\"\n")
	t.Setenv(configEnvVar, path)

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Engine.TapeSize != 64 {
		t.Fatalf("tape size = %d, want 64", cfg.Engine.TapeSize)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("unexpected log config: %+v", cfg.Log)
	}
	if cfg.REPL.TapeWindow != 6 {
		t.Fatalf("tape window default not applied: %d", cfg.REPL.TapeWindow)
	}
}

func TestLoadConfigKeepsExplicitZeroREPLSettings(t *testing.T) {
	path := writeConfig(t, "[repl]\nstep_quota = 0\ntape_window = 0\n")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.REPL.StepQuota != 0 {
		t.Fatalf("repl.step_quota = %d, want 0 (unlimited)", cfg.REPL.StepQuota)
	}
	if cfg.REPL.TapeWindow != 0 {
		t.Fatalf("repl.tape_window = %d, want 0", cfg.REPL.TapeWindow)
	}
	if cfg.Log.Level != "warn" || cfg.Engine.TapeSize != bf.DefaultTapeSize {
		t.Fatalf("omitted keys should keep defaults: %+v", cfg)
	}

	engineCfg := cfg.engineConfig(nil)
	engineCfg.StepQuota = cfg.REPL.StepQuota
	m := newREPLModel(bf.MustNewEngine(engineCfg), cfg.REPL.TapeWindow)
	if quota := m.engine.Config().StepQuota; quota != 0 {
		t.Fatalf("repl engine quota = %d, want unlimited", quota)
	}
	if output, isErr := m.evaluate("++++[>++++++++<-]"); isErr {
		t.Fatalf("unlimited repl quota rejected program: %s", output)
	}
	if start, cells := m.machine.Window(m.tapeWindow); start != 0 || len(cells) != 1 {
		t.Fatalf("zero window should show only the pointer cell, got start=%d cells=%v", start, cells)
	}
}

func TestLoadConfigFindsWorkingDirectoryFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "dotbf.toml"), []byte("[repl]\ntape_window = 2\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Chdir(dir)
	t.Setenv(configEnvVar, "")

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.REPL.TapeWindow != 2 {
		t.Fatalf("tape window = %d, want 2", cfg.REPL.TapeWindow)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "unknown key", content: "[engine]\ntape = 1\n", want: "unknown keys: engine.tape"},
		{name: "negative tape", content: "[engine]\ntape_size = -1\n", want: "engine.tape_size must not be negative"},
		{name: "negative quota", content: "[repl]\nstep_quota = -5\n", want: "repl.step_quota must not be negative"},
		{name: "bad level", content: "[log]\nlevel = \"loud\"\n", want: "log.level \"loud\""},
		{name: "bad format", content: "[log]\nformat = \"xml\"\n", want: "log.format must be text or json"},
		{name: "malformed", content: "[engine\n", want: "failed to parse config"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.content)
			_, err := loadConfig(path)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not contain %q", err.Error(), tc.want)
			}
		})
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, LogConfig{Level: "info", Format: "json"}, false)
	if err != nil {
		t.Fatalf("newLogger failed: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("hello")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug message should be filtered: %q", out)
	}
	if !strings.Contains(out, `"msg":"hello"`) {
		t.Fatalf("expected json record, got %q", out)
	}
}

func executeCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv(configEnvVar, "")
	t.Setenv("HOME", t.TempDir())

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeProgram(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.bf")
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatalf("write program: %v", err)
	}
	return path
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dotbf.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
