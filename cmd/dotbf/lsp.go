package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/mgomes/dotbf/bf"
	"github.com/spf13/cobra"
)

const (
	lspSeverityError   = 1
	lspSeverityWarning = 2
)

type commandDoc struct {
	char   string
	name   string
	detail string
}

var commandDocs = []commandDoc{
	{">", "move right", "Move the data pointer one cell to the right."},
	{"<", "move left", "Move the data pointer one cell to the left."},
	{"+", "increment", "Add one to the current cell, wrapping 255 to 0."},
	{"-", "decrement", "Subtract one from the current cell, wrapping 0 to 255."},
	{".", "output", "Write the current cell as one byte of output."},
	{",", "input", "Read one byte of input into the current cell."},
	{"[", "loop start", "Skip past the matching `]` if the current cell is zero."},
	{"]", "loop end", "Jump back to the matching `[` if the current cell is nonzero."},
}

type lspInboundMessage struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Method  string           `json:"method,omitempty"`
	Params  json.RawMessage  `json:"params,omitempty"`
}

type lspResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type lspOutboundMessage struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      *json.RawMessage  `json:"id,omitempty"`
	Method  string            `json:"method,omitempty"`
	Params  any               `json:"params,omitempty"`
	Result  any               `json:"result,omitempty"`
	Error   *lspResponseError `json:"error,omitempty"`
}

type lspDidOpenParams struct {
	TextDocument struct {
		URI  string `json:"uri"`
		Text string `json:"text"`
	} `json:"textDocument"`
}

type lspDidChangeParams struct {
	TextDocument struct {
		URI string `json:"uri"`
	} `json:"textDocument"`
	ContentChanges []struct {
		Text string `json:"text"`
	} `json:"contentChanges"`
}

type lspDidCloseParams struct {
	TextDocument struct {
		URI string `json:"uri"`
	} `json:"textDocument"`
}

type lspTextDocumentPositionParams struct {
	TextDocument struct {
		URI string `json:"uri"`
	} `json:"textDocument"`
	Position struct {
		Line      int `json:"line"`
		Character int `json:"character"`
	} `json:"position"`
}

type lspServer struct {
	reader *bufio.Reader
	writer *bufio.Writer
	docs   map[string]string
}

func newLSPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Start a language server on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.logger.Debug("starting language server")
			return newLSPServer(cmd.InOrStdin(), cmd.OutOrStdout()).serve()
		},
	}
}

func newLSPServer(in io.Reader, out io.Writer) *lspServer {
	return &lspServer{
		reader: bufio.NewReader(in),
		writer: bufio.NewWriter(out),
		docs:   make(map[string]string),
	}
}

func (s *lspServer) serve() error {
	for {
		payload, err := s.readPayload()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		var incoming lspInboundMessage
		if err := json.Unmarshal(payload, &incoming); err != nil {
			continue
		}

		messages := s.handleMessage(incoming)
		for _, msg := range messages {
			if err := s.writePayload(msg); err != nil {
				return err
			}
		}

		if incoming.Method == "exit" {
			return nil
		}
	}
}

func (s *lspServer) handleMessage(incoming lspInboundMessage) []lspOutboundMessage {
	switch incoming.Method {
	case "initialize":
		return []lspOutboundMessage{
			{
				JSONRPC: "2.0",
				ID:      incoming.ID,
				Result: map[string]any{
					"capabilities": map[string]any{
						"positionEncoding": "utf-16",
						"textDocumentSync": 1,
						"hoverProvider":    true,
						"completionProvider": map[string]any{
							"resolveProvider": false,
						},
					},
					"serverInfo": map[string]any{
						"name":    "dotbf",
						"version": cliVersion,
					},
				},
			},
		}
	case "initialized", "exit":
		return nil
	case "shutdown":
		if incoming.ID == nil {
			return nil
		}
		return []lspOutboundMessage{{JSONRPC: "2.0", ID: incoming.ID, Result: nil}}
	case "textDocument/didOpen":
		var params lspDidOpenParams
		if err := json.Unmarshal(incoming.Params, &params); err != nil {
			return nil
		}
		s.docs[params.TextDocument.URI] = params.TextDocument.Text
		return []lspOutboundMessage{
			publishDiagnostics(params.TextDocument.URI, params.TextDocument.Text),
		}
	case "textDocument/didChange":
		var params lspDidChangeParams
		if err := json.Unmarshal(incoming.Params, &params); err != nil {
			return nil
		}
		if len(params.ContentChanges) == 0 {
			return nil
		}
		latest := params.ContentChanges[len(params.ContentChanges)-1].Text
		s.docs[params.TextDocument.URI] = latest
		return []lspOutboundMessage{
			publishDiagnostics(params.TextDocument.URI, latest),
		}
	case "textDocument/didClose":
		var params lspDidCloseParams
		if err := json.Unmarshal(incoming.Params, &params); err != nil {
			return nil
		}
		delete(s.docs, params.TextDocument.URI)
		return nil
	case "textDocument/completion":
		if incoming.ID == nil {
			return nil
		}
		return []lspOutboundMessage{
			{
				JSONRPC: "2.0",
				ID:      incoming.ID,
				Result: map[string]any{
					"isIncomplete": false,
					"items":        completionItems(),
				},
			},
		}
	case "textDocument/hover":
		if incoming.ID == nil {
			return nil
		}
		var params lspTextDocumentPositionParams
		if err := json.Unmarshal(incoming.Params, &params); err != nil {
			return []lspOutboundMessage{
				{
					JSONRPC: "2.0",
					ID:      incoming.ID,
					Error:   &lspResponseError{Code: -32602, Message: "invalid hover params"},
				},
			}
		}
		source := s.docs[params.TextDocument.URI]
		doc, ok := commandAtPosition(source, params.Position.Line, params.Position.Character)
		if !ok {
			return []lspOutboundMessage{
				{JSONRPC: "2.0", ID: incoming.ID, Result: nil},
			}
		}
		return []lspOutboundMessage{
			{
				JSONRPC: "2.0",
				ID:      incoming.ID,
				Result: map[string]any{
					"contents": map[string]any{
						"kind":  "markdown",
						"value": fmt.Sprintf("`%s` %s\n\n%s", doc.char, doc.name, doc.detail),
					},
				},
			},
		}
	default:
		if incoming.ID == nil {
			return nil
		}
		return []lspOutboundMessage{
			{
				JSONRPC: "2.0",
				ID:      incoming.ID,
				Error: &lspResponseError{
					Code:    -32601,
					Message: "method not found",
				},
			},
		}
	}
}

func publishDiagnostics(uri, source string) lspOutboundMessage {
	return lspOutboundMessage{
		JSONRPC: "2.0",
		Method:  "textDocument/publishDiagnostics",
		Params: map[string]any{
			"uri":         uri,
			"diagnostics": diagnosticsForSource(source),
		},
	}
}

// diagnosticsForSource reports a syntax error when the brackets do not
// balance, and the analyzer warnings otherwise.
func diagnosticsForSource(source string) []map[string]any {
	lines := strings.Split(source, "\n")
	instructions, err := bf.Parse(bf.Tokenize(source))
	if err != nil {
		var syntaxErr *bf.SyntaxError
		if !errors.As(err, &syntaxErr) {
			return []map[string]any{newDiagnostic(0, 0, lspSeverityError, err.Error())}
		}
		line, character := lspPosition(lines, syntaxErr.Pos)
		return []map[string]any{
			newDiagnostic(line, character, lspSeverityError, syntaxErr.Message()),
		}
	}

	warnings := analyzeProgramWarnings(instructions)
	out := make([]map[string]any, 0, len(warnings))
	for _, warning := range warnings {
		line, character := lspPosition(lines, warning.Pos)
		out = append(out, newDiagnostic(line, character, lspSeverityWarning, warning.Message))
	}
	return out
}

// lspPosition converts a 1-based line and rune column into the zero-based
// line and UTF-16 offset the protocol expects.
func lspPosition(lines []string, pos bf.Position) (int, int) {
	line := pos.Line - 1
	if line < 0 || line >= len(lines) {
		return max(0, line), max(0, pos.Column-1)
	}
	character := 0
	for i, r := range []rune(lines[line]) {
		if i >= pos.Column-1 {
			break
		}
		character += utf16Len(r)
	}
	return line, character
}

func utf16Len(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}

func newDiagnostic(line, character, severity int, message string) map[string]any {
	line = max(0, line)
	character = max(0, character)
	return map[string]any{
		"range": map[string]any{
			"start": map[string]any{
				"line":      line,
				"character": character,
			},
			"end": map[string]any{
				"line":      line,
				"character": character + 1,
			},
		},
		"severity": severity,
		"source":   "dotbf",
		"message":  message,
	}
}

func completionItems() []map[string]any {
	items := make([]map[string]any, 0, len(commandDocs))
	for _, doc := range commandDocs {
		items = append(items, map[string]any{
			"label":         doc.char,
			"kind":          14, // Keyword
			"detail":        doc.name,
			"documentation": doc.detail,
		})
	}
	return items
}

// commandAtPosition finds the command under a zero-based line and UTF-16
// character offset. A cursor just past a command still hovers it.
func commandAtPosition(source string, line, character int) (commandDoc, bool) {
	lines := strings.Split(source, "\n")
	if line < 0 || line >= len(lines) {
		return commandDoc{}, false
	}

	var before commandDoc
	haveBefore := false
	offset := 0
	for _, r := range lines[line] {
		if offset > character {
			break
		}
		width := utf16Len(r)
		doc, ok := lookupCommandDoc(r)
		switch {
		case ok && offset == character:
			return doc, true
		case ok && offset+width == character:
			before, haveBefore = doc, true
		}
		offset += width
	}
	return before, haveBefore
}

func lookupCommandDoc(r rune) (commandDoc, bool) {
	for _, doc := range commandDocs {
		if doc.char == string(r) {
			return doc, true
		}
	}
	return commandDoc{}, false
}

func (s *lspServer) readPayload() ([]byte, error) {
	contentLength := -1
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("invalid Content-Length: %w", err)
			}
			contentLength = n
		}
	}

	if contentLength < 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}
	payload := make([]byte, contentLength)
	if _, err := io.ReadFull(s.reader, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (s *lspServer) writePayload(msg lspOutboundMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.writer, "Content-Length: %d\r\n\r\n", len(data)); err != nil {
		return err
	}
	if _, err := s.writer.Write(data); err != nil {
		return err
	}
	return s.writer.Flush()
}
