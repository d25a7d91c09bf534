// Package txn turns a transaction intent into a submitted transaction:
// it executes the intent locally against the account's observed state,
// derives the stable transaction id and forwards the result to the
// authority. Nothing here retries; a failed submission surfaces as a
// SubmissionError and the caller decides what to do next.
package txn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"

	"weft-ledger/go-client/internal/client"
	"weft-ledger/go-client/internal/ledger"
	"weft-ledger/go-client/internal/masm"
	"weft-ledger/go-client/internal/remote"
)

// Intent is the closed set of things a transaction can do.
type Intent interface {
	isIntent()
}

// RunScript executes a transaction script against the account's storage.
type RunScript struct {
	Script *masm.Artifact
}

// ProduceNotes emits notes without touching the account's storage.
type ProduceNotes struct {
	Notes []ledger.Note
}

// ConsumedNote pairs a note with an optional inclusion proof. The proof
// is opaque here; an authority that verifies proofs receives it as-is.
type ConsumedNote struct {
	Note  ledger.Note
	Proof []byte
}

// ConsumeNotes applies the given notes' scripts to the account, in order.
type ConsumeNotes struct {
	Notes []ConsumedNote
}

func (RunScript) isIntent()    {}
func (ProduceNotes) isIntent() {}
func (ConsumeNotes) isIntent() {}

// SubmissionError reports a failed submission. Stage is "execute" when
// local execution rejected the intent and "submit" when the authority
// rejected the transaction.
type SubmissionError struct {
	Stage string
	Err   error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Stage, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

func IsSubmissionError(err error) bool {
	var se *SubmissionError
	return errors.As(err, &se)
}

func executeErr(err error) error { return &SubmissionError{Stage: "execute", Err: err} }
func submitErr(err error) error  { return &SubmissionError{Stage: "submit", Err: err} }

// Handle identifies a submitted transaction for later status polling.
type Handle struct {
	TransactionID ledger.TransactionID
	AccountID     ledger.AccountID
	SubmittedAt   time.Time
}

// Submit executes the intent against the account's observed state and
// forwards the resulting transaction to the authority.
func Submit(ctx context.Context, c *client.Client, accountID ledger.AccountID, intent Intent) (Handle, error) {
	acct, err := c.GetAccount(accountID)
	if err != nil {
		return Handle{}, executeErr(err)
	}

	var (
		outputs  []ledger.Note
		consumed []ledger.NoteID
		payload  [32]byte
	)
	switch in := intent.(type) {
	case RunScript:
		if in.Script == nil || in.Script.Empty() {
			return Handle{}, executeErr(errors.New("empty transaction script"))
		}
		words, err := masm.Execute(in.Script, acct.StorageWords())
		if err != nil {
			return Handle{}, executeErr(err)
		}
		acct.SetStorageWords(words)
		payload = in.Script.Digest
	case ProduceNotes:
		if len(in.Notes) == 0 {
			return Handle{}, executeErr(errors.New("no notes to produce"))
		}
		for _, note := range in.Notes {
			if note.Recipient.Script == nil || note.Recipient.Script.Empty() {
				return Handle{}, executeErr(errors.New("note carries an empty script"))
			}
		}
		outputs = append([]ledger.Note(nil), in.Notes...)
		payload = digestNoteIDs(in.Notes, nil)
	case ConsumeNotes:
		if len(in.Notes) == 0 {
			return Handle{}, executeErr(errors.New("no notes to consume"))
		}
		for _, cn := range in.Notes {
			words, err := masm.Execute(cn.Note.Recipient.Script, acct.StorageWords())
			if err != nil {
				return Handle{}, executeErr(err)
			}
			acct.SetStorageWords(words)
			consumed = append(consumed, cn.Note.ID())
		}
		payload = digestNoteIDs(nil, in.Notes)
	default:
		return Handle{}, executeErr(fmt.Errorf("unknown intent %T", intent))
	}

	nonce := acct.Nonce
	acct.Nonce++

	txID := ledger.ComputeTransactionID(accountID, nonce, payload)
	submission := remote.SubmittedTransaction{
		Transaction: ledger.Transaction{
			ID:      txID,
			Account: accountID,
			Status:  ledger.StatusPending,
		},
		Account:       acct,
		OutputNotes:   outputs,
		ConsumedNotes: consumed,
	}
	if err := c.SubmitTransaction(ctx, submission); err != nil {
		return Handle{}, submitErr(err)
	}
	return Handle{
		TransactionID: txID,
		AccountID:     accountID,
		SubmittedAt:   time.Now(),
	}, nil
}

func digestNoteIDs(produced []ledger.Note, consumedNotes []ConsumedNote) [32]byte {
	h, _ := blake2b.New256(nil)
	h.Write([]byte("weft/txn/notes/v1"))
	for _, note := range produced {
		id := note.ID()
		h.Write(id[:])
	}
	for _, cn := range consumedNotes {
		id := cn.Note.ID()
		h.Write(id[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
