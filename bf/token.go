package bf

// TokenType identifies the lexical category of a token.
type TokenType uint8

const (
	TokenProgramStart TokenType = iota
	TokenProgramEnd

	TokenMoveRight
	TokenMoveLeft
	TokenIncrement
	TokenDecrement
	TokenOutput
	TokenInput
	TokenOpenLoop
	TokenCloseLoop
)

// Token captures lexical information for the parser.
type Token struct {
	Type TokenType
	Pos  Position
}

// Position identifies a line and column in the source file. Columns count
// characters, not bytes.
type Position struct {
	Line   int
	Column int
}

func (tt TokenType) String() string {
	switch tt {
	case TokenProgramStart:
		return "<start>"
	case TokenProgramEnd:
		return "<end>"
	case TokenMoveRight:
		return ">"
	case TokenMoveLeft:
		return "<"
	case TokenIncrement:
		return "+"
	case TokenDecrement:
		return "-"
	case TokenOutput:
		return "."
	case TokenInput:
		return ","
	case TokenOpenLoop:
		return "["
	case TokenCloseLoop:
		return "]"
	default:
		return "<invalid>"
	}
}

func lookupCommand(ch rune) (TokenType, bool) {
	switch ch {
	case '>':
		return TokenMoveRight, true
	case '<':
		return TokenMoveLeft, true
	case '+':
		return TokenIncrement, true
	case '-':
		return TokenDecrement, true
	case '.':
		return TokenOutput, true
	case ',':
		return TokenInput, true
	case '[':
		return TokenOpenLoop, true
	case ']':
		return TokenCloseLoop, true
	}
	return 0, false
}
