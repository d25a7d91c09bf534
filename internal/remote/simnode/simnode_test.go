package simnode

import (
	"context"
	"errors"
	"testing"

	"weft-ledger/go-client/internal/field"
	"weft-ledger/go-client/internal/ledger"
	"weft-ledger/go-client/internal/masm"
	"weft-ledger/go-client/internal/remote"
)

func submitAccount(t *testing.T, n *Node, acct ledger.Account, notes ...ledger.Note) ledger.TransactionID {
	t.Helper()
	id := ledger.ComputeTransactionID(acct.ID, acct.Nonce, [32]byte{acct.ID[0]})
	err := n.SubmitTransaction(context.Background(), remote.SubmittedTransaction{
		Transaction: ledger.Transaction{ID: id, Account: acct.ID, Status: ledger.StatusPending},
		Account:     acct,
		OutputNotes: notes,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return id
}

func TestCommitSchedule(t *testing.T) {
	n := New(Config{CommitDelay: 2})
	ctx := context.Background()

	acct := ledger.Account{ID: ledger.AccountID{1}, Kind: ledger.KindUpdatablePublic}
	txID := submitAccount(t, n, acct)

	summary, err := n.Resync(ctx)
	if err != nil {
		t.Fatalf("resync: %v", err)
	}
	if len(summary.CommittedTransactions) != 0 {
		t.Fatal("transaction committed a resync early")
	}
	if _, err := n.GetAccount(ctx, acct.ID); !remote.IsNotFound(err) {
		t.Fatalf("expected account absent before commit, got %v", err)
	}

	summary, err = n.Resync(ctx)
	if err != nil {
		t.Fatalf("resync: %v", err)
	}
	if len(summary.CommittedTransactions) != 1 || summary.CommittedTransactions[0] != txID {
		t.Fatalf("expected %s committed, got %v", txID, summary.CommittedTransactions)
	}
	if _, err := n.GetAccount(ctx, acct.ID); err != nil {
		t.Fatalf("account missing after commit: %v", err)
	}
}

func TestNetworkNoteConsumption(t *testing.T) {
	n := New(Config{CommitDelay: 1, ConsumeDelay: 1})
	ctx := context.Background()

	lib, err := masm.CompileLibrary(
		"export.increment\n    storage.get.0\n    push.1\n    add\n    storage.set.0\nend\n",
		"contracts::counter",
	)
	if err != nil {
		t.Fatalf("compile library: %v", err)
	}
	script, err := masm.CompileScript("begin\n    call.contracts::counter::increment\nend\n", lib)
	if err != nil {
		t.Fatalf("compile script: %v", err)
	}

	counter := ledger.Account{
		ID:    ledger.AccountID{2},
		Kind:  ledger.KindImmutableNetwork,
		Slots: []ledger.StorageSlot{{Index: 0, Value: field.ZeroWord()}},
	}
	submitAccount(t, n, counter)

	wallet := ledger.Account{ID: ledger.AccountID{3}, Kind: ledger.KindUpdatablePublic}
	note := ledger.Note{
		Metadata: ledger.NoteMetadata{
			Creator:    wallet.ID,
			Visibility: ledger.NoteNetwork,
			Tag:        ledger.TagFromAccountID(counter.ID),
		},
		Recipient: ledger.NoteRecipient{Serial: field.WordFromUints(1, 2, 3, 4), Script: script},
	}
	submitAccount(t, n, wallet, note)

	// Resync 1 commits both transactions; the note waits one more round.
	if _, err := n.Resync(ctx); err != nil {
		t.Fatalf("resync: %v", err)
	}
	notes, err := n.GetConsumableNotes(ctx, &counter.ID)
	if err != nil {
		t.Fatalf("consumable notes: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("expected 1 consumable note, got %d", len(notes))
	}

	if _, err := n.Resync(ctx); err != nil {
		t.Fatalf("resync: %v", err)
	}
	got, err := n.GetAccount(ctx, counter.ID)
	if err != nil {
		t.Fatalf("get counter: %v", err)
	}
	slot, _ := got.Slot(0)
	if want := field.WordFromUints(0, 0, 0, 1); !slot.Equal(want) {
		t.Fatalf("slot0 = %v, want %v", slot, want)
	}
	if got.Nonce != counter.Nonce+1 {
		t.Fatalf("nonce = %d, want %d", got.Nonce, counter.Nonce+1)
	}

	notes, err = n.GetConsumableNotes(ctx, &counter.ID)
	if err != nil {
		t.Fatalf("consumable notes: %v", err)
	}
	if len(notes) != 0 {
		t.Fatal("consumed note still listed as consumable")
	}
}

func TestScriptedFailureAndDiscard(t *testing.T) {
	n := New(DefaultConfig())
	ctx := context.Background()

	cause := errors.New("gateway unavailable")
	n.FailResyncAt(1, cause)
	if _, err := n.Resync(ctx); !remote.IsResyncError(err) || !errors.Is(err, cause) {
		t.Fatalf("expected wrapped resync failure, got %v", err)
	}

	acct := ledger.Account{ID: ledger.AccountID{4}, Kind: ledger.KindUpdatablePublic}
	txID := submitAccount(t, n, acct)
	n.DiscardTransaction(txID)
	if _, err := n.Resync(ctx); err != nil {
		t.Fatalf("resync: %v", err)
	}
	txs, err := n.GetTransactionsByIDs(ctx, []ledger.TransactionID{txID})
	if err != nil {
		t.Fatalf("get transactions: %v", err)
	}
	if len(txs) != 1 || txs[0].Status != ledger.StatusDiscarded {
		t.Fatalf("expected discarded transaction, got %+v", txs)
	}
}
