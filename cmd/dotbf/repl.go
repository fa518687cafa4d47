package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mgomes/dotbf/bf"
	"github.com/spf13/cobra"
)

var (
	accentColor    = lipgloss.Color("#3B82F6")
	successColor   = lipgloss.Color("#10B981")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	highlightColor = lipgloss.Color("#F59E0B")

	promptStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(successColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	headerStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true).
			Padding(0, 1)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(highlightColor)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	cellStyle = lipgloss.NewStyle().
			Padding(0, 1)

	pointerCellStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Bold(true).
				Foreground(highlightColor)

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)
)

var replCommands = []string{":clear", ":help", ":input", ":quit", ":reset", ":tape"}

type historyEntry struct {
	input  string
	output string
	isErr  bool
}

type replModel struct {
	textInput   textinput.Model
	engine      *bf.Engine
	machine     *bf.Machine
	pending     []byte
	tapeWindow  int
	history     []historyEntry
	cmdHistory  []string
	historyIdx  int
	width       int
	height      int
	showHelp    bool
	showTape    bool
	quitting    bool
	initialized bool
}

type keyMap struct {
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	CtrlC key.Binding
	CtrlD key.Binding
	CtrlL key.Binding
	Tab   key.Binding
	CtrlT key.Binding
	CtrlK key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑", "previous command"),
	),
	Down: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("↓", "next command"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "execute"),
	),
	CtrlC: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
	CtrlD: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("ctrl+d", "quit"),
	),
	CtrlL: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "clear"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "complete command"),
	),
	CtrlT: key.NewBinding(
		key.WithKeys("ctrl+t"),
		key.WithHelp("ctrl+t", "toggle tape"),
	),
	CtrlK: key.NewBinding(
		key.WithKeys("ctrl+k"),
		key.WithHelp("ctrl+k", "toggle help"),
	),
}

func newREPLCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session with a persistent tape",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engineCfg := a.config.engineConfig(a.logger)
			engineCfg.StepQuota = a.config.REPL.StepQuota
			engine, err := bf.NewEngine(engineCfg)
			if err != nil {
				return err
			}
			p := tea.NewProgram(
				newREPLModel(engine, a.config.REPL.TapeWindow),
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
			)
			_, err = p.Run()
			if errors.Is(err, tea.ErrProgramKilled) && cmd.Context().Err() != nil {
				return nil
			}
			return err
		},
	}
}

func newREPLModel(engine *bf.Engine, tapeWindow int) replModel {
	ti := textinput.New()
	ti.Placeholder = "type brainfuck, or :help"
	ti.Focus()
	ti.CharLimit = 4096
	ti.Width = 60
	ti.PromptStyle = promptStyle
	ti.Prompt = "bf> "

	return replModel{
		textInput:  ti,
		engine:     engine,
		machine:    bf.NewMachine(engine.Config().TapeSize),
		tapeWindow: tapeWindow,
		history:    make([]historyEntry, 0),
		cmdHistory: make([]string, 0),
		historyIdx: -1,
		showTape:   true,
	}
}

func (m replModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textInput.Width = msg.Width - 10
		m.initialized = true
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.CtrlC), key.Matches(msg, keys.CtrlD):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.CtrlL):
			m.history = make([]historyEntry, 0)
			return m, nil

		case key.Matches(msg, keys.CtrlT):
			m.showTape = !m.showTape
			return m, nil

		case key.Matches(msg, keys.CtrlK):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, keys.Up):
			if len(m.cmdHistory) > 0 {
				if m.historyIdx == -1 {
					m.historyIdx = len(m.cmdHistory) - 1
				} else if m.historyIdx > 0 {
					m.historyIdx--
				}
				m.textInput.SetValue(m.cmdHistory[m.historyIdx])
				m.textInput.CursorEnd()
			}
			return m, nil

		case key.Matches(msg, keys.Down):
			if m.historyIdx != -1 {
				if m.historyIdx < len(m.cmdHistory)-1 {
					m.historyIdx++
					m.textInput.SetValue(m.cmdHistory[m.historyIdx])
				} else {
					m.historyIdx = -1
					m.textInput.SetValue("")
				}
				m.textInput.CursorEnd()
			}
			return m, nil

		case key.Matches(msg, keys.Tab):
			m = m.handleAutocomplete()
			return m, nil

		case key.Matches(msg, keys.Enter):
			input := strings.TrimSpace(m.textInput.Value())
			if input == "" {
				return m, nil
			}

			if strings.HasPrefix(input, ":") {
				var cmd tea.Cmd
				m, cmd = m.handleCommand(input)
				m.textInput.SetValue("")
				m.historyIdx = -1
				return m, cmd
			}

			output, isErr := m.evaluate(input)
			m.history = append(m.history, historyEntry{
				input:  input,
				output: output,
				isErr:  isErr,
			})
			m.cmdHistory = append(m.cmdHistory, input)
			m.textInput.SetValue("")
			m.historyIdx = -1
			return m, nil
		}
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m replModel) handleCommand(input string) (replModel, tea.Cmd) {
	cmd, arg, _ := strings.Cut(input, " ")

	switch cmd {
	case ":help", ":h":
		m.showHelp = !m.showHelp
	case ":clear", ":c":
		m.history = make([]historyEntry, 0)
	case ":tape", ":t":
		m.showTape = !m.showTape
	case ":input", ":i":
		data := decodeInputArg(arg)
		m.pending = append(m.pending, data...)
		m.history = append(m.history, historyEntry{
			input:  input,
			output: fmt.Sprintf("Queued %d byte(s) of input (%d pending)", len(data), len(m.pending)),
		})
	case ":reset", ":r":
		m.machine.Reset()
		m.pending = nil
		m.history = append(m.history, historyEntry{
			input:  input,
			output: "Tape and input reset",
		})
	case ":quit", ":q":
		m.quitting = true
		return m, tea.Quit
	default:
		m.history = append(m.history, historyEntry{
			input:  input,
			output: fmt.Sprintf("Unknown command: %s", cmd),
			isErr:  true,
		})
	}
	return m, nil
}

// decodeInputArg accepts Go string escapes such as \n and \x00 so that any
// byte can be queued from the prompt.
func decodeInputArg(arg string) []byte {
	if decoded, err := strconv.Unquote(`"` + arg + `"`); err == nil {
		return []byte(decoded)
	}
	return []byte(arg)
}

func (m replModel) handleAutocomplete() replModel {
	input := m.textInput.Value()
	if !strings.HasPrefix(input, ":") || strings.Contains(input, " ") {
		return m
	}

	var completions []string
	for _, c := range replCommands {
		if strings.HasPrefix(c, input) {
			completions = append(completions, c)
		}
	}
	sort.Strings(completions)

	if len(completions) == 1 {
		m.textInput.SetValue(completions[0])
		m.textInput.CursorEnd()
	} else if len(completions) > 1 {
		m.history = append(m.history, historyEntry{
			output: "Completions: " + strings.Join(completions, ", "),
		})
	}

	return m
}

// evaluate runs one line against the session machine. The tape and pointer
// keep whatever state the line leaves behind, even when it fails.
func (m *replModel) evaluate(input string) (string, bool) {
	program, err := m.engine.Compile(input)
	if err != nil {
		return err.Error(), true
	}

	var out bytes.Buffer
	in := bytes.NewReader(m.pending)
	_, err = program.Run(context.Background(), bf.RunOptions{
		Input:   in,
		Output:  &out,
		Machine: m.machine,
	})
	m.pending = m.pending[len(m.pending)-in.Len():]

	state := fmt.Sprintf("ptr=%d cell=%d", m.machine.Pointer, m.machine.Cell())
	if err != nil {
		if out.Len() > 0 {
			return fmt.Sprintf("%s\noutput %q before failure", err.Error(), out.Bytes()), true
		}
		return err.Error(), true
	}
	if out.Len() == 0 {
		return state, false
	}
	return fmt.Sprintf("%q  %s", out.Bytes(), state), false
}

func (m replModel) View() string {
	if !m.initialized {
		return "Loading..."
	}

	if m.quitting {
		return mutedStyle.Render("Goodbye!\n")
	}

	var b strings.Builder

	header := headerStyle.Render("dotbf REPL")
	version := mutedStyle.Render("v" + cliVersion)
	b.WriteString(header + " " + version + "\n")
	b.WriteString(mutedStyle.Render(strings.Repeat("─", max(0, min(m.width-2, 60)))) + "\n\n")

	reservedLines := 8 // header, input, help hint, etc.
	if m.showHelp {
		reservedLines += 12
	}
	if m.showTape {
		reservedLines += 5
	}
	availableHeight := m.height - reservedLines

	historyStart := 0
	if len(m.history) > availableHeight {
		historyStart = min(len(m.history), len(m.history)-availableHeight)
	}

	for i := historyStart; i < len(m.history); i++ {
		entry := m.history[i]
		if entry.input != "" {
			b.WriteString(mutedStyle.Render("  › ") + entry.input + "\n")
		}
		if entry.isErr {
			b.WriteString("  " + errorStyle.Render("✗ "+entry.output) + "\n")
		} else {
			b.WriteString("  " + resultStyle.Render("→ "+entry.output) + "\n")
		}
		b.WriteString("\n")
	}

	if m.showTape {
		b.WriteString(renderTapePanel(m.machine, m.tapeWindow, len(m.pending)))
		b.WriteString("\n")
	}

	if m.showHelp {
		b.WriteString(renderHelpPanel())
		b.WriteString("\n")
	}

	b.WriteString(m.textInput.View() + "\n\n")

	footer := helpKeyStyle.Render("ctrl+k") + helpDescStyle.Render(" help  ") +
		helpKeyStyle.Render("ctrl+t") + helpDescStyle.Render(" tape  ") +
		helpKeyStyle.Render("ctrl+l") + helpDescStyle.Render(" clear  ") +
		helpKeyStyle.Render("ctrl+c") + helpDescStyle.Render(" quit")
	b.WriteString(footer)

	return b.String()
}

func renderTapePanel(machine *bf.Machine, radius, pending int) string {
	start, cells := machine.Window(radius)

	indexes := make([]string, len(cells))
	values := make([]string, len(cells))
	for i, cell := range cells {
		style := cellStyle
		if start+i == machine.Pointer {
			style = pointerCellStyle
		}
		width := max(len(strconv.Itoa(start+i)), 3)
		indexes[i] = mutedStyle.Render(cellStyle.Render(fmt.Sprintf("%*d", width, start+i)))
		values[i] = style.Render(fmt.Sprintf("%*d", width, cell))
	}

	title := lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Tape")
	meta := mutedStyle.Render(fmt.Sprintf("pointer %d · %d byte(s) of input pending", machine.Pointer, pending))
	body := lipgloss.JoinVertical(lipgloss.Left,
		title,
		lipgloss.JoinHorizontal(lipgloss.Top, indexes...),
		lipgloss.JoinHorizontal(lipgloss.Top, values...),
		meta,
	)
	return borderStyle.Render(body)
}

func renderHelpPanel() string {
	help := []struct {
		key  string
		desc string
	}{
		{"↑/↓", "Navigate command history"},
		{"Tab", "Complete a :command"},
		{"Enter", "Run the line on the current tape"},
		{":input", "Queue input bytes (escapes like \\n allowed)"},
		{":tape", "Toggle the tape panel"},
		{":reset", "Zero the tape and drop pending input"},
		{":clear", "Clear history"},
		{":help", "Toggle this help"},
		{":quit", "Exit REPL"},
	}

	var lines []string
	lines = append(lines, lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Help"))
	for _, h := range help {
		line := fmt.Sprintf("  %s  %s",
			helpKeyStyle.Render(fmt.Sprintf("%-8s", h.key)),
			helpDescStyle.Render(h.desc))
		lines = append(lines, line)
	}

	return borderStyle.Render(strings.Join(lines, "\n"))
}
