package ledger

import (
	"fmt"

	"weft-ledger/go-client/internal/field"
)

type CodeMutability uint8

const (
	CodeUpdatable CodeMutability = iota + 1
	CodeImmutable
)

type Visibility uint8

const (
	VisibilityPublic Visibility = iota + 1
	VisibilityPrivate
	VisibilityNetwork
)

// AccountKind is the closed cross product of code mutability and storage
// visibility. Only the six named constants are valid; anything else fails
// Valid().
type AccountKind uint8

const (
	KindUpdatablePublic AccountKind = iota + 1
	KindUpdatablePrivate
	KindUpdatableNetwork
	KindImmutablePublic
	KindImmutablePrivate
	KindImmutableNetwork
)

func NewAccountKind(m CodeMutability, v Visibility) (AccountKind, error) {
	switch m {
	case CodeUpdatable:
		switch v {
		case VisibilityPublic:
			return KindUpdatablePublic, nil
		case VisibilityPrivate:
			return KindUpdatablePrivate, nil
		case VisibilityNetwork:
			return KindUpdatableNetwork, nil
		}
	case CodeImmutable:
		switch v {
		case VisibilityPublic:
			return KindImmutablePublic, nil
		case VisibilityPrivate:
			return KindImmutablePrivate, nil
		case VisibilityNetwork:
			return KindImmutableNetwork, nil
		}
	}
	return 0, fmt.Errorf("invalid account kind: mutability=%d visibility=%d", m, v)
}

func (k AccountKind) Valid() bool {
	return k >= KindUpdatablePublic && k <= KindImmutableNetwork
}

func (k AccountKind) Mutability() CodeMutability {
	if k >= KindImmutablePublic {
		return CodeImmutable
	}
	return CodeUpdatable
}

func (k AccountKind) Visibility() Visibility {
	switch k {
	case KindUpdatablePublic, KindImmutablePublic:
		return VisibilityPublic
	case KindUpdatablePrivate, KindImmutablePrivate:
		return VisibilityPrivate
	default:
		return VisibilityNetwork
	}
}

func (k AccountKind) String() string {
	switch k {
	case KindUpdatablePublic:
		return "updatable-public"
	case KindUpdatablePrivate:
		return "updatable-private"
	case KindUpdatableNetwork:
		return "updatable-network"
	case KindImmutablePublic:
		return "immutable-public"
	case KindImmutablePrivate:
		return "immutable-private"
	case KindImmutableNetwork:
		return "immutable-network"
	}
	return fmt.Sprintf("account-kind(%d)", uint8(k))
}

// StorageSlot is one fixed-width word of account state addressed by index.
type StorageSlot struct {
	Index uint8      `json:"index"`
	Value field.Word `json:"value"`
}

type Account struct {
	ID         AccountID     `json:"id"`
	Kind       AccountKind   `json:"kind"`
	Slots      []StorageSlot `json:"slots"`
	AuthDigest [32]byte      `json:"auth_digest"`
	Nonce      uint64        `json:"nonce"`
}

// Slot returns the word stored at the given index.
func (a *Account) Slot(index uint8) (field.Word, bool) {
	for _, slot := range a.Slots {
		if slot.Index == index {
			return slot.Value, true
		}
	}
	return field.Word{}, false
}

// StorageWords returns the slot values ordered by index, suitable for
// script execution.
func (a *Account) StorageWords() []field.Word {
	out := make([]field.Word, len(a.Slots))
	for i, slot := range a.Slots {
		out[i] = slot.Value
	}
	return out
}

// SetStorageWords replaces the slot values in order, keeping indices.
func (a *Account) SetStorageWords(words []field.Word) {
	for i := range a.Slots {
		if i < len(words) {
			a.Slots[i].Value = words[i]
		}
	}
}

func (a *Account) Clone() Account {
	out := *a
	out.Slots = append([]StorageSlot(nil), a.Slots...)
	return out
}
