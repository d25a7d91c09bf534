package masm

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

type OpCode uint8

const (
	OpPush OpCode = iota + 1
	OpAdd
	OpSub
	OpSwap
	OpDrop
	OpStorageGet
	OpStorageSet
)

// Op is one VM instruction. Imm carries the push value or the storage
// slot index; it is zero for pure stack ops.
type Op struct {
	Code OpCode
	Imm  uint64
}

// Library is a compiled set of exported procedures addressable by a
// two-segment path such as "contracts::counter".
type Library struct {
	Path   string
	Digest [32]byte

	procs map[string][]Op
}

// Proc returns the inlined body of an exported procedure.
func (l *Library) Proc(name string) ([]Op, bool) {
	ops, ok := l.procs[name]
	return ops, ok
}

// Artifact is a fully resolved executable program: all library calls are
// inlined at compile time, so execution needs no further lookup.
type Artifact struct {
	Ops    []Op
	Digest [32]byte
}

func (a *Artifact) Empty() bool { return a == nil || len(a.Ops) == 0 }

func digestOps(domain string, ops []Op) [32]byte {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(domain))
	var buf [9]byte
	for _, op := range ops {
		buf[0] = byte(op.Code)
		binary.LittleEndian.PutUint64(buf[1:], op.Imm)
		h.Write(buf[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
