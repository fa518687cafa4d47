package bf

// Parse builds the instruction tree for a token stream produced by Tokenize.
//
// Tokens are consumed in a single pass while tracking bracket depth. At depth
// zero every command maps to its leaf instruction and the sentinels map to
// NoOp. Tokens inside a bracket pair are skipped at this level and parsed
// recursively once the closing bracket that returns the depth to zero is
// found, producing a Loop.
func Parse(tokens []Token) ([]Instruction, error) {
	instructions := make([]Instruction, 0, len(tokens))
	depth := 0
	open := 0

	for i, tok := range tokens {
		if depth > 0 && tok.Type != TokenOpenLoop && tok.Type != TokenCloseLoop {
			continue
		}

		switch tok.Type {
		case TokenProgramStart, TokenProgramEnd:
			instructions = append(instructions, &NoOp{position: tok.Pos})
		case TokenMoveRight:
			instructions = append(instructions, &MoveRight{position: tok.Pos})
		case TokenMoveLeft:
			instructions = append(instructions, &MoveLeft{position: tok.Pos})
		case TokenIncrement:
			instructions = append(instructions, &Increment{position: tok.Pos})
		case TokenDecrement:
			instructions = append(instructions, &Decrement{position: tok.Pos})
		case TokenOutput:
			instructions = append(instructions, &Output{position: tok.Pos})
		case TokenInput:
			instructions = append(instructions, &Input{position: tok.Pos})
		case TokenOpenLoop:
			if depth == 0 {
				open = i
			}
			depth++
		case TokenCloseLoop:
			if depth == 0 {
				return nil, newSyntaxError(UnmatchedClose, tok.Pos)
			}
			depth--
			if depth == 0 {
				body, err := Parse(tokens[open+1 : i])
				if err != nil {
					return nil, err
				}
				instructions = append(instructions, &Loop{Body: body, position: tokens[open].Pos})
			}
		}
	}

	if depth != 0 {
		return nil, newSyntaxError(UnmatchedOpen, tokens[open].Pos)
	}

	return instructions, nil
}
