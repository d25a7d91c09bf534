// Package remote defines the narrow interface the client consumes from
// the remote ledger authority. Wire transport is out of scope; anything
// satisfying Authority can back a client.
package remote

import (
	"context"
	"errors"
	"fmt"

	"weft-ledger/go-client/internal/ledger"
)

// Summary is the result of one resynchronization pass.
type Summary struct {
	ChainHeight           uint64
	CommittedTransactions []ledger.TransactionID
	CommittedNotes        []ledger.NoteID
}

type NoteRelevance uint8

const (
	RelevanceAlways NoteRelevance = iota + 1
	RelevanceAfterBlock
)

type ConsumableNote struct {
	Note      ledger.Note
	Relevance NoteRelevance
}

// SubmittedTransaction is what the client forwards after local execution:
// the transaction, the resulting account state, and the notes it produced
// or consumed.
type SubmittedTransaction struct {
	Transaction   ledger.Transaction
	Account       ledger.Account
	OutputNotes   []ledger.Note
	ConsumedNotes []ledger.NoteID
}

type Authority interface {
	Resync(ctx context.Context) (Summary, error)
	SubmitTransaction(ctx context.Context, tx SubmittedTransaction) error
	GetAccount(ctx context.Context, id ledger.AccountID) (*ledger.Account, error)
	GetTransactionsByIDs(ctx context.Context, ids []ledger.TransactionID) ([]ledger.Transaction, error)
	GetConsumableNotes(ctx context.Context, owner *ledger.AccountID) ([]ConsumableNote, error)
	GetCommittedNotes(ctx context.Context) ([]ledger.Note, error)
	ImportAccount(ctx context.Context, id ledger.AccountID) (*ledger.Account, error)
}

// ResyncError wraps any failure raised while resynchronizing. Pollers
// treat it as fatal for the current wait.
type ResyncError struct {
	Err error
}

func (e *ResyncError) Error() string { return fmt.Sprintf("resync failed: %v", e.Err) }

func (e *ResyncError) Unwrap() error { return e.Err }

func NewResyncError(err error) error {
	if err == nil {
		return nil
	}
	return &ResyncError{Err: err}
}

func IsResyncError(err error) bool {
	var re *ResyncError
	return errors.As(err, &re)
}

// NotFoundError reports an absent account, note or transaction.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.Kind, e.ID) }

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
