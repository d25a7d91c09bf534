// Package await polls the authority until a submitted transaction or note
// becomes observable. The loop is resync, evaluate, sleep; it runs until
// the condition holds, the context ends, or a resync fails.
package await

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"weft-ledger/go-client/internal/client"
	"weft-ledger/go-client/internal/ledger"
)

const defaultInterval = 2 * time.Second

// ErrTransactionDiscarded reports that the authority dropped the
// transaction. Only surfaced when FailOnDiscard is set; the default
// waiter keeps polling, matching callers that treat a discard as
// something a later resubmission resolves.
var ErrTransactionDiscarded = errors.New("transaction discarded")

type Waiter struct {
	client        *client.Client
	interval      time.Duration
	failOnDiscard bool
	log           *slog.Logger
}

type Option func(*Waiter)

func WithInterval(d time.Duration) Option {
	return func(w *Waiter) {
		if d > 0 {
			w.interval = d
		}
	}
}

// FailOnDiscard makes WaitForTransaction return ErrTransactionDiscarded
// when the transaction is observed in the discarded state.
func FailOnDiscard() Option {
	return func(w *Waiter) { w.failOnDiscard = true }
}

func WithLogger(log *slog.Logger) Option {
	return func(w *Waiter) {
		if log != nil {
			w.log = log
		}
	}
}

func New(c *client.Client, opts ...Option) *Waiter {
	w := &Waiter{
		client:   c,
		interval: defaultInterval,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WaitForTransaction blocks until the transaction is committed. A resync
// failure aborts the wait; the caller may retry the whole wait.
func (w *Waiter) WaitForTransaction(ctx context.Context, id ledger.TransactionID) (ledger.Transaction, error) {
	for {
		if _, err := w.client.SyncState(ctx); err != nil {
			return ledger.Transaction{}, err
		}
		tx, ok := w.client.Session().Transaction(id)
		if ok {
			switch tx.Status {
			case ledger.StatusCommitted:
				return tx, nil
			case ledger.StatusDiscarded:
				if w.failOnDiscard {
					return tx, fmt.Errorf("%w: %s", ErrTransactionDiscarded, id)
				}
			}
		}
		w.log.Debug("transaction not yet committed", slog.String("transaction_id", id.String()))
		if err := w.sleep(ctx); err != nil {
			return ledger.Transaction{}, err
		}
	}
}

// WaitForNote blocks until the note is observable: listed as consumable
// for the owner when one is given, otherwise present among committed
// notes.
func (w *Waiter) WaitForNote(ctx context.Context, id ledger.NoteID, owner *ledger.AccountID) error {
	for {
		if _, err := w.client.SyncState(ctx); err != nil {
			return err
		}
		visible, err := w.noteVisible(ctx, id, owner)
		if err != nil {
			return err
		}
		if visible {
			return nil
		}
		w.log.Debug("note not yet observable", slog.String("note_id", id.String()))
		if err := w.sleep(ctx); err != nil {
			return err
		}
	}
}

func (w *Waiter) noteVisible(ctx context.Context, id ledger.NoteID, owner *ledger.AccountID) (bool, error) {
	if owner != nil {
		notes, err := w.client.GetConsumableNotes(ctx, owner)
		if err != nil {
			return false, err
		}
		for _, cn := range notes {
			if cn.Note.ID() == id {
				return true, nil
			}
		}
		return false, nil
	}
	notes, err := w.client.GetCommittedNotes(ctx)
	if err != nil {
		return false, err
	}
	for _, note := range notes {
		if note.ID() == id {
			return true, nil
		}
	}
	return false, nil
}

func (w *Waiter) sleep(ctx context.Context) error {
	client.CountPollWait()
	timer := time.NewTimer(w.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
