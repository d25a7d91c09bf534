package masm

import (
	"errors"
	"fmt"

	"weft-ledger/go-client/internal/field"
)

var ErrExecution = errors.New("masm execution failed")

// Execute runs the artifact against a copy of the storage slots and
// returns the resulting slots. storage.get pushes the four elements of a
// word with the last element on top; storage.set pops in reverse.
func Execute(artifact *Artifact, storage []field.Word) ([]field.Word, error) {
	if artifact.Empty() {
		return nil, fmt.Errorf("%w: empty artifact", ErrExecution)
	}
	out := make([]field.Word, len(storage))
	copy(out, storage)

	var stack []field.Element
	pop := func() (field.Element, error) {
		if len(stack) == 0 {
			return 0, fmt.Errorf("%w: stack underflow", ErrExecution)
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return top, nil
	}

	for _, op := range artifact.Ops {
		switch op.Code {
		case OpPush:
			stack = append(stack, field.NewElement(op.Imm))
		case OpAdd, OpSub:
			a, err := pop()
			if err != nil {
				return nil, err
			}
			b, err := pop()
			if err != nil {
				return nil, err
			}
			if op.Code == OpAdd {
				stack = append(stack, b.Add(a))
			} else {
				stack = append(stack, b.Sub(a))
			}
		case OpSwap:
			if len(stack) < 2 {
				return nil, fmt.Errorf("%w: stack underflow", ErrExecution)
			}
			stack[len(stack)-1], stack[len(stack)-2] = stack[len(stack)-2], stack[len(stack)-1]
		case OpDrop:
			if _, err := pop(); err != nil {
				return nil, err
			}
		case OpStorageGet:
			idx := int(op.Imm)
			if idx >= len(out) {
				return nil, fmt.Errorf("%w: storage slot %d out of range", ErrExecution, idx)
			}
			stack = append(stack, out[idx][0], out[idx][1], out[idx][2], out[idx][3])
		case OpStorageSet:
			idx := int(op.Imm)
			if idx >= len(out) {
				return nil, fmt.Errorf("%w: storage slot %d out of range", ErrExecution, idx)
			}
			var word field.Word
			for i := 3; i >= 0; i-- {
				e, err := pop()
				if err != nil {
					return nil, err
				}
				word[i] = e
			}
			out[idx] = word
		default:
			return nil, fmt.Errorf("%w: unknown opcode %d", ErrExecution, op.Code)
		}
	}
	return out, nil
}
