package ledger

import (
	"errors"
	"testing"

	"weft-ledger/go-client/internal/field"
	"weft-ledger/go-client/internal/masm"
)

func TestAccountIDRoundTrip(t *testing.T) {
	var id AccountID
	for i := range id {
		id[i] = byte(i)
	}
	parsed, err := ParseAccountID(id.String())
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if parsed != id {
		t.Fatal("round trip mismatch")
	}
}

func TestParseIDRejectsGarbage(t *testing.T) {
	if _, err := ParseAccountID("note1abc"); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("wrong prefix should fail: %v", err)
	}
	if _, err := ParseNoteID("note1!!!!"); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("bad base58 should fail: %v", err)
	}
	if _, err := ParseTransactionID("txn1abc"); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("short payload should fail: %v", err)
	}
}

func TestAccountKindEnumeration(t *testing.T) {
	kind, err := NewAccountKind(CodeImmutable, VisibilityNetwork)
	if err != nil {
		t.Fatalf("valid kind rejected: %v", err)
	}
	if kind != KindImmutableNetwork {
		t.Fatalf("expected immutable-network, got %s", kind)
	}
	if kind.Mutability() != CodeImmutable || kind.Visibility() != VisibilityNetwork {
		t.Fatal("kind components mismatch")
	}

	if _, err := NewAccountKind(CodeMutability(9), VisibilityPublic); err == nil {
		t.Fatal("invalid mutability should be rejected")
	}
	if AccountKind(0).Valid() || AccountKind(7).Valid() {
		t.Fatal("out-of-range kinds must not validate")
	}
}

func TestAccountSlotAccess(t *testing.T) {
	acct := Account{
		Kind: KindImmutableNetwork,
		Slots: []StorageSlot{
			{Index: 0, Value: field.WordFromUints(0, 0, 0, 7)},
		},
	}
	w, ok := acct.Slot(0)
	if !ok || !w.Equal(field.WordFromUints(0, 0, 0, 7)) {
		t.Fatal("slot 0 lookup failed")
	}
	if _, ok := acct.Slot(1); ok {
		t.Fatal("missing slot should not resolve")
	}

	clone := acct.Clone()
	clone.Slots[0].Value = field.ZeroWord()
	if w, _ := acct.Slot(0); !w.Equal(field.WordFromUints(0, 0, 0, 7)) {
		t.Fatal("clone must not alias the original slots")
	}
}

func noteFixture(serial field.Word, timestamp uint64) Note {
	artifact, err := masm.CompileScript("begin\npush.1\ndrop\nend")
	if err != nil {
		panic(err)
	}
	return Note{
		Metadata: NoteMetadata{
			Visibility: NotePublic,
			Timestamp:  field.NewElement(timestamp),
		},
		Recipient: NoteRecipient{Serial: serial, Script: artifact},
	}
}

func TestNoteIDIgnoresTimestamp(t *testing.T) {
	serial := field.WordFromUints(1, 2, 3, 4)
	n1 := noteFixture(serial, 100)
	n2 := noteFixture(serial, 9999)
	if n1.ID() != n2.ID() {
		t.Fatal("note id must not depend on the timestamp")
	}

	n3 := noteFixture(field.WordFromUints(4, 3, 2, 1), 100)
	if n1.ID() == n3.ID() {
		t.Fatal("distinct serials must produce distinct note ids")
	}
}

func TestTagFromAccountIDStable(t *testing.T) {
	var a, b AccountID
	a[0], b[0] = 1, 2
	if TagFromAccountID(a) != TagFromAccountID(a) {
		t.Fatal("tag derivation must be deterministic")
	}
	if TagFromAccountID(a) == TagFromAccountID(b) {
		t.Fatal("different ids should map to different tags")
	}
}

func TestTransactionStatusTerminal(t *testing.T) {
	if StatusPending.Terminal() {
		t.Fatal("pending is not terminal")
	}
	if !StatusCommitted.Terminal() || !StatusDiscarded.Terminal() {
		t.Fatal("committed and discarded are terminal")
	}
}
