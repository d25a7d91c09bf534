package txn

import (
	"context"
	"path/filepath"
	"testing"

	"weft-ledger/go-client/internal/client"
	"weft-ledger/go-client/internal/field"
	"weft-ledger/go-client/internal/ledger"
	"weft-ledger/go-client/internal/masm"
	"weft-ledger/go-client/internal/remote"
	"weft-ledger/go-client/internal/remote/simnode"
)

const counterSource = `
export.increment
    storage.get.0
    push.1
    add
    storage.set.0
end
`

func compileIncrement(t *testing.T) *masm.Artifact {
	t.Helper()
	lib, err := masm.CompileLibrary(counterSource, "contracts::counter")
	if err != nil {
		t.Fatalf("compile library: %v", err)
	}
	script, err := masm.CompileScript(
		"begin\n    call.contracts::counter::increment\nend\n",
		lib,
	)
	if err != nil {
		t.Fatalf("compile script: %v", err)
	}
	return script
}

func newTestClient(t *testing.T, node *simnode.Node) *client.Client {
	t.Helper()
	dir := t.TempDir()
	c, err := client.NewBuilder().
		WithAuthority(node).
		WithStore(filepath.Join(dir, "state.weft"), "passphrase").
		WithKeystoreDir(filepath.Join(dir, "keys")).
		Build()
	if err != nil {
		t.Fatalf("build client: %v", err)
	}
	return c
}

func counterAccount(fill byte) ledger.Account {
	var id ledger.AccountID
	for i := range id {
		id[i] = fill
	}
	return ledger.Account{
		ID:    id,
		Kind:  ledger.KindImmutableNetwork,
		Slots: []ledger.StorageSlot{{Index: 0, Value: field.ZeroWord()}},
	}
}

func incrementNote(t *testing.T, script *masm.Artifact, creator, target ledger.AccountID, vis ledger.NoteVisibility) ledger.Note {
	t.Helper()
	return ledger.Note{
		Metadata: ledger.NoteMetadata{
			Creator:    creator,
			Visibility: vis,
			Tag:        ledger.TagFromAccountID(target),
		},
		Recipient: ledger.NoteRecipient{
			Serial: field.WordFromUints(7, 7, 7, 7),
			Script: script,
		},
	}
}

func TestSubmitRunScript(t *testing.T) {
	node := simnode.New(simnode.DefaultConfig())
	c := newTestClient(t, node)
	ctx := context.Background()

	acct := counterAccount(1)
	if err := c.AddAccount(acct); err != nil {
		t.Fatalf("add account: %v", err)
	}
	script := compileIncrement(t)

	handle, err := Submit(ctx, c, acct.ID, RunScript{Script: script})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if handle.AccountID != acct.ID {
		t.Fatal("handle account mismatch")
	}

	// Local post-state is recorded immediately.
	got, err := c.GetAccount(acct.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	want := field.WordFromUints(0, 0, 0, 1)
	if slot, ok := got.Slot(0); !ok || !slot.Equal(want) {
		t.Fatalf("slot0 = %v, want %v", slot, want)
	}
	if got.Nonce != acct.Nonce+1 {
		t.Fatalf("nonce = %d, want %d", got.Nonce, acct.Nonce+1)
	}

	if _, err := c.SyncState(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}
	tx, ok := c.Session().Transaction(handle.TransactionID)
	if !ok || tx.Status != ledger.StatusCommitted {
		t.Fatalf("expected committed transaction, got %+v ok=%v", tx, ok)
	}
}

func TestSubmitProduceNotes(t *testing.T) {
	node := simnode.New(simnode.DefaultConfig())
	c := newTestClient(t, node)
	ctx := context.Background()

	wallet := counterAccount(1)
	wallet.Kind = ledger.KindUpdatablePublic
	target := counterAccount(2)
	if err := c.AddAccount(wallet); err != nil {
		t.Fatalf("add wallet: %v", err)
	}
	note := incrementNote(t, compileIncrement(t), wallet.ID, target.ID, ledger.NoteNetwork)

	handle, err := Submit(ctx, c, wallet.ID, ProduceNotes{Notes: []ledger.Note{note}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := c.SyncState(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}
	rec, ok := c.Session().Note(note.ID())
	if !ok || !rec.Committed {
		t.Fatalf("expected committed note, got %+v ok=%v", rec, ok)
	}
	if _, ok := c.Session().Transaction(handle.TransactionID); !ok {
		t.Fatal("transaction missing from session")
	}
}

func TestSubmitConsumeNotes(t *testing.T) {
	node := simnode.New(simnode.DefaultConfig())
	c := newTestClient(t, node)
	ctx := context.Background()

	counter := counterAccount(3)
	if err := c.AddAccount(counter); err != nil {
		t.Fatalf("add counter: %v", err)
	}
	note := incrementNote(t, compileIncrement(t), counter.ID, counter.ID, ledger.NotePrivate)

	if _, err := Submit(ctx, c, counter.ID, ConsumeNotes{Notes: []ConsumedNote{{Note: note}}}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	got, err := c.GetAccount(counter.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	want := field.WordFromUints(0, 0, 0, 1)
	if slot, ok := got.Slot(0); !ok || !slot.Equal(want) {
		t.Fatalf("slot0 = %v, want %v", slot, want)
	}
}

func TestSubmitRejectsBadIntents(t *testing.T) {
	node := simnode.New(simnode.DefaultConfig())
	c := newTestClient(t, node)
	ctx := context.Background()

	acct := counterAccount(4)
	if err := c.AddAccount(acct); err != nil {
		t.Fatalf("add account: %v", err)
	}

	cases := []struct {
		name   string
		target ledger.AccountID
		intent Intent
	}{
		{"empty script", acct.ID, RunScript{}},
		{"no notes produced", acct.ID, ProduceNotes{}},
		{"no notes consumed", acct.ID, ConsumeNotes{}},
		{"unknown account", ledger.AccountID{0xFF}, RunScript{Script: compileIncrement(t)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Submit(ctx, c, tc.target, tc.intent)
			if !IsSubmissionError(err) {
				t.Fatalf("expected SubmissionError, got %v", err)
			}
		})
	}
}

func TestSubmitRejectsDuplicate(t *testing.T) {
	node := simnode.New(simnode.DefaultConfig())
	c := newTestClient(t, node)
	ctx := context.Background()

	acct := counterAccount(5)
	if err := c.AddAccount(acct); err != nil {
		t.Fatalf("add account: %v", err)
	}
	script := compileIncrement(t)
	if _, err := Submit(ctx, c, acct.ID, RunScript{Script: script}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	// Second run executes against the advanced nonce so it is a new id.
	if _, err := Submit(ctx, c, acct.ID, RunScript{Script: script}); err != nil {
		t.Fatalf("second submit: %v", err)
	}

	// Forcing the same id through the raw authority is rejected.
	acct2 := acct.Clone()
	id := ledger.ComputeTransactionID(acct.ID, acct.Nonce, script.Digest)
	dup := remote.SubmittedTransaction{
		Transaction: ledger.Transaction{ID: id, Account: acct.ID, Status: ledger.StatusPending},
		Account:     acct2,
	}
	if err := node.SubmitTransaction(ctx, dup); err == nil {
		t.Fatal("expected duplicate submission to be rejected")
	}
}
