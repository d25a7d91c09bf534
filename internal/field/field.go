// Package field implements the 64-bit prime field used for ledger words.
package field

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

// Modulus is the Goldilocks prime 2^64 - 2^32 + 1.
const Modulus uint64 = 0xffffffff00000001

// Element is a field element reduced modulo Modulus.
type Element uint64

// Word is the fixed-width storage unit: four field elements.
type Word [4]Element

func NewElement(v uint64) Element {
	if v >= Modulus {
		v -= Modulus
	}
	return Element(v)
}

func (e Element) Uint64() uint64 { return uint64(e) }

func (e Element) Add(other Element) Element {
	sum, carry := bits.Add64(uint64(e), uint64(other), 0)
	if carry == 1 {
		// 2^64 mod Modulus == 2^32 - 1
		sum += 1<<32 - 1
	} else if sum >= Modulus {
		sum -= Modulus
	}
	return Element(sum)
}

func (e Element) Sub(other Element) Element {
	if uint64(e) >= uint64(other) {
		return Element(uint64(e) - uint64(other))
	}
	return Element(Modulus - uint64(other) + uint64(e))
}

// ZeroWord returns [0,0,0,0].
func ZeroWord() Word { return Word{} }

func WordFromUints(a, b, c, d uint64) Word {
	return Word{NewElement(a), NewElement(b), NewElement(c), NewElement(d)}
}

// Bytes returns the canonical little-endian encoding of the word.
func (w Word) Bytes() []byte {
	out := make([]byte, 32)
	for i, e := range w {
		binary.LittleEndian.PutUint64(out[i*8:], uint64(e))
	}
	return out
}

func (w Word) Equal(other Word) bool { return w == other }

func (w Word) String() string {
	return fmt.Sprintf("[%d, %d, %d, %d]", uint64(w[0]), uint64(w[1]), uint64(w[2]), uint64(w[3]))
}
