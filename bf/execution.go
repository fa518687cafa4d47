package bf

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

// ctxPollInterval is how many steps run between context checks. It must be
// a power of two.
const ctxPollInterval = 1024

// Execution walks an instruction tree against one Machine.
type Execution struct {
	ctx     context.Context
	machine *Machine
	in      io.ByteReader
	out     io.Writer
	source  string
	quota   int
	steps   int
	scratch [1]byte
}

type flusher interface {
	Flush() error
}

func newExecution(ctx context.Context, machine *Machine, input io.Reader, output io.Writer) *Execution {
	if ctx == nil {
		ctx = context.Background()
	}
	if output == nil {
		output = io.Discard
	}
	exec := &Execution{ctx: ctx, machine: machine, out: output}
	switch r := input.(type) {
	case nil:
		exec.in = emptyInput{}
	case io.ByteReader:
		exec.in = r
	default:
		exec.in = bufio.NewReader(r)
	}
	return exec
}

// Interpret runs instructions against machine, reading Input bytes from input
// and writing Output bytes to output. It returns a *RuntimeError when the
// data pointer would leave the tape, input is exhausted or unreadable, or
// output cannot be written.
//
// Interpret only returns on completion or failure: a loop whose cell never
// reaches zero runs until ctx is cancelled.
func Interpret(ctx context.Context, instructions []Instruction, machine *Machine, input io.Reader, output io.Writer) error {
	if machine == nil {
		machine = NewMachine(DefaultTapeSize)
	}
	exec := newExecution(ctx, machine, input, output)
	return exec.run(instructions)
}

// Steps reports how many steps the execution has taken.
func (exec *Execution) Steps() int {
	return exec.steps
}

func (exec *Execution) run(instructions []Instruction) error {
	if !exec.machine.inBounds() {
		return exec.errorAt(KindPointer, Position{},
			fmt.Sprintf("data pointer %d outside tape of %d cells", exec.machine.Pointer, len(exec.machine.Tape)),
			ErrPointerOutOfBounds)
	}
	err := exec.interpret(instructions)
	if flushErr := exec.flush(); flushErr != nil && err == nil {
		err = exec.errorAt(KindOutput, Position{}, flushErr.Error(), ErrOutputFailed, flushErr)
	}
	return err
}

func (exec *Execution) interpret(instructions []Instruction) error {
	m := exec.machine
	for _, instr := range instructions {
		if err := exec.step(instr.Pos()); err != nil {
			return err
		}

		switch typed := instr.(type) {
		case *MoveRight:
			if m.Pointer+1 >= len(m.Tape) {
				return exec.errorAt(KindPointer, typed.Pos(),
					fmt.Sprintf("cannot move right past cell %d", len(m.Tape)-1),
					ErrPointerOutOfBounds)
			}
			m.Pointer++
		case *MoveLeft:
			if m.Pointer == 0 {
				return exec.errorAt(KindPointer, typed.Pos(), "cannot move left of cell 0", ErrPointerOutOfBounds)
			}
			m.Pointer--
		case *Increment:
			m.Tape[m.Pointer]++
		case *Decrement:
			m.Tape[m.Pointer]--
		case *Output:
			exec.scratch[0] = m.Tape[m.Pointer]
			if _, err := exec.out.Write(exec.scratch[:]); err != nil {
				return exec.errorAt(KindOutput, typed.Pos(), err.Error(), ErrOutputFailed, err)
			}
		case *Input:
			if err := exec.flush(); err != nil {
				return exec.errorAt(KindOutput, typed.Pos(), err.Error(), ErrOutputFailed, err)
			}
			b, err := exec.in.ReadByte()
			if err != nil {
				if err == io.EOF {
					return exec.errorAt(KindInput, typed.Pos(), "no input left to read", ErrInputExhausted)
				}
				return exec.errorAt(KindInput, typed.Pos(), "failed to read input: "+err.Error(), ErrInputExhausted, err)
			}
			m.Tape[m.Pointer] = b
		case *Loop:
			for m.Tape[m.Pointer] != 0 {
				if err := exec.interpret(typed.Body); err != nil {
					return err
				}
				if err := exec.step(typed.Pos()); err != nil {
					return err
				}
			}
		case *NoOp:
		}
	}
	return nil
}

func (exec *Execution) step(pos Position) error {
	exec.steps++
	if exec.quota > 0 && exec.steps > exec.quota {
		return exec.errorAt(KindQuota, pos, fmt.Sprintf("step quota of %d exceeded", exec.quota), ErrStepQuotaExceeded)
	}
	if exec.steps&(ctxPollInterval-1) == 0 {
		select {
		case <-exec.ctx.Done():
			err := exec.ctx.Err()
			return exec.errorAt(KindCanceled, pos, err.Error(), err)
		default:
		}
	}
	return nil
}

func (exec *Execution) flush() error {
	if f, ok := exec.out.(flusher); ok {
		return f.Flush()
	}
	return nil
}

type emptyInput struct{}

func (emptyInput) ReadByte() (byte, error) {
	return 0, io.EOF
}
