// Package ledger defines the shared data model: accounts, notes,
// transactions and their identifiers.
package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58/base58"
)

const (
	accountIDPrefix     = "acct1"
	noteIDPrefix        = "note1"
	transactionIDPrefix = "txn1"
)

var ErrInvalidID = errors.New("invalid ledger id")

type AccountID [32]byte

type NoteID [32]byte

type TransactionID [32]byte

func (id AccountID) String() string { return accountIDPrefix + base58.Encode(id[:]) }

func (id NoteID) String() string { return noteIDPrefix + base58.Encode(id[:]) }

func (id TransactionID) String() string { return transactionIDPrefix + base58.Encode(id[:]) }

func ParseAccountID(s string) (AccountID, error) {
	var id AccountID
	raw, err := parseID(s, accountIDPrefix)
	if err != nil {
		return id, err
	}
	copy(id[:], raw)
	return id, nil
}

func ParseNoteID(s string) (NoteID, error) {
	var id NoteID
	raw, err := parseID(s, noteIDPrefix)
	if err != nil {
		return id, err
	}
	copy(id[:], raw)
	return id, nil
}

func ParseTransactionID(s string) (TransactionID, error) {
	var id TransactionID
	raw, err := parseID(s, transactionIDPrefix)
	if err != nil {
		return id, err
	}
	copy(id[:], raw)
	return id, nil
}

func (id AccountID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *AccountID) UnmarshalText(text []byte) error {
	parsed, err := ParseAccountID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id NoteID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *NoteID) UnmarshalText(text []byte) error {
	parsed, err := ParseNoteID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id TransactionID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *TransactionID) UnmarshalText(text []byte) error {
	parsed, err := ParseTransactionID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func parseID(s, prefix string) ([]byte, error) {
	if !strings.HasPrefix(s, prefix) {
		return nil, fmt.Errorf("%w: missing %q prefix", ErrInvalidID, prefix)
	}
	raw, err := base58.Decode(s[len(prefix):])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("%w: decoded length %d", ErrInvalidID, len(raw))
	}
	return raw, nil
}
