package entity

import (
	"fmt"

	"golang.org/x/crypto/blake2b"

	"weft-ledger/go-client/internal/ledger"
)

const maxStorageSlots = 256

// AccountBuilder assembles an account from a 32-byte seed, a kind, an auth
// component and ordered business components. Building is pure: identical
// inputs always produce the identical account id.
type AccountBuilder struct {
	seed       [32]byte
	kind       ledger.AccountKind
	auth       *AccountComponent
	components []AccountComponent
}

func NewAccountBuilder(seed [32]byte) *AccountBuilder {
	return &AccountBuilder{seed: seed}
}

func (b *AccountBuilder) WithKind(kind ledger.AccountKind) *AccountBuilder {
	b.kind = kind
	return b
}

func (b *AccountBuilder) WithAuthComponent(c AccountComponent) *AccountBuilder {
	b.auth = &c
	return b
}

func (b *AccountBuilder) WithComponent(c AccountComponent) *AccountBuilder {
	b.components = append(b.components, c)
	return b
}

func (b *AccountBuilder) Build() (ledger.Account, error) {
	if !b.kind.Valid() {
		return ledger.Account{}, fmt.Errorf("%w: kind is not set", ErrComponentLayout)
	}
	if b.auth == nil {
		return ledger.Account{}, fmt.Errorf("%w: auth component is required", ErrComponentLayout)
	}
	if !b.auth.Supports(b.kind) {
		return ledger.Account{}, fmt.Errorf("%w: auth component %q does not support %s",
			ErrComponentLayout, b.auth.Path(), b.kind)
	}
	if len(b.components) == 0 {
		return ledger.Account{}, fmt.Errorf("%w: at least one component is required", ErrComponentLayout)
	}

	total := b.auth.SlotCount()
	for _, c := range b.components {
		if !c.Supports(b.kind) {
			return ledger.Account{}, fmt.Errorf("%w: component %q does not support %s",
				ErrComponentLayout, c.Path(), b.kind)
		}
		total += c.SlotCount()
	}
	if total > maxStorageSlots {
		return ledger.Account{}, fmt.Errorf("%w: %d slots exceed the %d slot limit",
			ErrComponentLayout, total, maxStorageSlots)
	}

	authDigest := b.auth.Digest()
	account := ledger.Account{
		ID:         b.accountID(authDigest),
		Kind:       b.kind,
		AuthDigest: authDigest,
		Slots:      make([]ledger.StorageSlot, 0, total),
	}
	index := uint8(0)
	appendSlots := func(c AccountComponent) {
		for _, value := range c.slots {
			account.Slots = append(account.Slots, ledger.StorageSlot{Index: index, Value: value})
			index++
		}
	}
	appendSlots(*b.auth)
	for _, c := range b.components {
		appendSlots(c)
	}
	return account, nil
}

func (b *AccountBuilder) accountID(authDigest [32]byte) ledger.AccountID {
	h, _ := blake2b.New256(nil)
	h.Write([]byte("weft/account/v1"))
	h.Write(b.seed[:])
	h.Write([]byte{byte(b.kind)})
	h.Write(authDigest[:])
	for _, c := range b.components {
		d := c.Digest()
		h.Write(d[:])
	}
	var id ledger.AccountID
	copy(id[:], h.Sum(nil))
	return id
}
