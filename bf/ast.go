package bf

import "strings"

// Instruction is a node of the program tree produced by Parse.
type Instruction interface {
	Pos() Position
	instrNode()
}

type MoveRight struct{ position Position }

func (i *MoveRight) instrNode()    {}
func (i *MoveRight) Pos() Position { return i.position }

type MoveLeft struct{ position Position }

func (i *MoveLeft) instrNode()    {}
func (i *MoveLeft) Pos() Position { return i.position }

type Increment struct{ position Position }

func (i *Increment) instrNode()    {}
func (i *Increment) Pos() Position { return i.position }

type Decrement struct{ position Position }

func (i *Decrement) instrNode()    {}
func (i *Decrement) Pos() Position { return i.position }

type Output struct{ position Position }

func (i *Output) instrNode()    {}
func (i *Output) Pos() Position { return i.position }

type Input struct{ position Position }

func (i *Input) instrNode()    {}
func (i *Input) Pos() Position { return i.position }

// Loop re-runs Body while the current cell is nonzero. Its position is the
// opening bracket.
type Loop struct {
	Body     []Instruction
	position Position
}

func (i *Loop) instrNode()    {}
func (i *Loop) Pos() Position { return i.position }

// NoOp stands in for the ProgramStart and ProgramEnd sentinels.
type NoOp struct{ position Position }

func (i *NoOp) instrNode()    {}
func (i *NoOp) Pos() Position { return i.position }

// Source renders instructions back into Brainfuck without comments or
// whitespace. Rendering a parsed program yields its command characters.
func Source(instructions []Instruction) string {
	var b strings.Builder
	writeSource(&b, instructions)
	return b.String()
}

func writeSource(b *strings.Builder, instructions []Instruction) {
	for _, instr := range instructions {
		switch typed := instr.(type) {
		case *MoveRight:
			b.WriteByte('>')
		case *MoveLeft:
			b.WriteByte('<')
		case *Increment:
			b.WriteByte('+')
		case *Decrement:
			b.WriteByte('-')
		case *Output:
			b.WriteByte('.')
		case *Input:
			b.WriteByte(',')
		case *Loop:
			b.WriteByte('[')
			writeSource(b, typed.Body)
			b.WriteByte(']')
		}
	}
}

// CountLoops returns the number of Loop nodes at every nesting level.
func CountLoops(instructions []Instruction) int {
	count := 0
	for _, instr := range instructions {
		if loop, ok := instr.(*Loop); ok {
			count += 1 + CountLoops(loop.Body)
		}
	}
	return count
}

// Walk calls fn for every instruction in depth-first source order. Loop
// bodies are visited only when fn returns true for the loop.
func Walk(instructions []Instruction, fn func(Instruction) bool) {
	for _, instr := range instructions {
		if !fn(instr) {
			continue
		}
		if loop, ok := instr.(*Loop); ok {
			Walk(loop.Body, fn)
		}
	}
}
