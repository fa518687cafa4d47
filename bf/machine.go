package bf

// DefaultTapeSize is the conventional Brainfuck tape length.
const DefaultTapeSize = 30000

// Machine is the mutable state of a run: the tape and the data pointer. A
// single Machine is shared by every nested loop of a run.
type Machine struct {
	Tape    []byte
	Pointer int
}

// NewMachine returns a zeroed machine with size cells. A size of zero or
// less selects DefaultTapeSize.
func NewMachine(size int) *Machine {
	if size <= 0 {
		size = DefaultTapeSize
	}
	return &Machine{Tape: make([]byte, size)}
}

// Cell returns the value under the data pointer.
func (m *Machine) Cell() byte {
	return m.Tape[m.Pointer]
}

// Reset zeroes the tape and moves the pointer back to the first cell.
func (m *Machine) Reset() {
	clear(m.Tape)
	m.Pointer = 0
}

// Window returns up to 2*radius+1 cells centred on the pointer, clamped to
// the tape, along with the index of the first returned cell.
func (m *Machine) Window(radius int) (int, []byte) {
	if radius < 0 {
		radius = 0
	}
	start := max(0, m.Pointer-radius)
	end := min(len(m.Tape), m.Pointer+radius+1)
	if start >= end {
		return start, nil
	}
	return start, m.Tape[start:end]
}

func (m *Machine) inBounds() bool {
	return m.Pointer >= 0 && m.Pointer < len(m.Tape)
}
