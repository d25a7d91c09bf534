// Package entity builds accounts and notes deterministically from seeds,
// components and compiled artifacts.
package entity

import (
	"errors"

	"golang.org/x/crypto/blake2b"

	"weft-ledger/go-client/internal/field"
	"weft-ledger/go-client/internal/ledger"
	"weft-ledger/go-client/internal/masm"
)

var (
	ErrComponentLayout   = errors.New("component layout invalid for account kind")
	ErrScriptCompilation = errors.New("script invalid for note execution")
	ErrMissingTarget     = errors.New("network note requires a target account")
)

// AccountComponent pairs a compiled library with the storage slots it
// claims and the account kinds it may be installed into.
type AccountComponent struct {
	library  *masm.Library
	slots    []field.Word
	allKinds bool
	kinds    map[ledger.AccountKind]struct{}
}

func NewAccountComponent(library *masm.Library, slots ...field.Word) AccountComponent {
	return AccountComponent{
		library: library,
		slots:   append([]field.Word(nil), slots...),
		kinds:   make(map[ledger.AccountKind]struct{}),
	}
}

// CompileComponent compiles library source and attaches its storage layout.
func CompileComponent(source, path string, slots ...field.Word) (AccountComponent, error) {
	lib, err := masm.CompileLibrary(source, path)
	if err != nil {
		return AccountComponent{}, err
	}
	return NewAccountComponent(lib, slots...), nil
}

// SupportsAllKinds marks the component installable into every account kind.
func (c AccountComponent) SupportsAllKinds() AccountComponent {
	c.allKinds = true
	return c
}

func (c AccountComponent) WithSupportedKinds(kinds ...ledger.AccountKind) AccountComponent {
	next := make(map[ledger.AccountKind]struct{}, len(c.kinds)+len(kinds))
	for k := range c.kinds {
		next[k] = struct{}{}
	}
	for _, k := range kinds {
		next[k] = struct{}{}
	}
	c.kinds = next
	return c
}

func (c AccountComponent) Supports(kind ledger.AccountKind) bool {
	if c.allKinds {
		return true
	}
	_, ok := c.kinds[kind]
	return ok
}

func (c AccountComponent) SlotCount() int { return len(c.slots) }

func (c AccountComponent) Library() *masm.Library { return c.library }

func (c AccountComponent) Path() string {
	if c.library == nil {
		return ""
	}
	return c.library.Path
}

// Digest commits to the component code and its initial storage layout.
func (c AccountComponent) Digest() [32]byte {
	h, _ := blake2b.New256(nil)
	h.Write([]byte("weft/component/v1"))
	if c.library != nil {
		h.Write(c.library.Digest[:])
	}
	for _, slot := range c.slots {
		h.Write(slot.Bytes())
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
