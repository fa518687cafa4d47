package bf

import "unicode/utf8"

type lexer struct {
	input string

	offset int

	line   int
	column int

	ch rune
}

func newLexer(input string) *lexer {
	return &lexer{input: input, line: 1, column: 0}
}

func (l *lexer) readRune() bool {
	if l.offset >= len(l.input) {
		return false
	}

	r, w := utf8.DecodeRuneInString(l.input[l.offset:])
	l.offset += w

	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	l.column++

	l.ch = r
	return true
}

func (l *lexer) position() Position {
	return Position{Line: l.line, Column: l.column}
}

// Tokenize scans source into the token stream consumed by Parse. The stream
// always starts with TokenProgramStart and ends with TokenProgramEnd; every
// character that is not one of the eight commands is skipped.
func Tokenize(source string) []Token {
	l := newLexer(source)
	tokens := []Token{{Type: TokenProgramStart, Pos: Position{Line: 1}}}

	for l.readRune() {
		if tt, ok := lookupCommand(l.ch); ok {
			tokens = append(tokens, Token{Type: tt, Pos: l.position()})
		}
	}

	end := l.position()
	if l.ch == '\n' {
		end = Position{Line: l.line + 1, Column: 0}
	}
	end.Column++
	tokens = append(tokens, Token{Type: TokenProgramEnd, Pos: end})
	return tokens
}
