package keystore

import (
	"bytes"
	"errors"
	"testing"

	"weft-ledger/go-client/internal/securefile"
)

func TestDeriveAuthKeyDeterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, 32)
	k1, err := DeriveAuthKey(seed)
	if err != nil {
		t.Fatalf("derive 1: %v", err)
	}
	k2, err := DeriveAuthKey(seed)
	if err != nil {
		t.Fatalf("derive 2: %v", err)
	}
	if !bytes.Equal(k1.PublicKey, k2.PublicKey) {
		t.Fatal("auth key derivation must be deterministic")
	}

	other, _ := DeriveAuthKey(bytes.Repeat([]byte{8}, 32))
	if bytes.Equal(k1.PublicKey, other.PublicKey) {
		t.Fatal("different seeds must derive different keys")
	}
}

func TestKeystoreRoundTrip(t *testing.T) {
	ks := New(t.TempDir(), "store-secret")
	key, err := DeriveAuthKey(bytes.Repeat([]byte{1}, 32))
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if err := ks.AddKey(key); err != nil {
		t.Fatalf("add key: %v", err)
	}

	got, err := ks.Key(key.PublicKey)
	if err != nil {
		t.Fatalf("get key: %v", err)
	}
	if !bytes.Equal(got.PrivateKey, key.PrivateKey) {
		t.Fatal("round trip private key mismatch")
	}

	names, err := ks.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 1 {
		t.Fatalf("expected one key, got %d", len(names))
	}
}

func TestKeystoreWrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	key, _ := DeriveAuthKey(bytes.Repeat([]byte{2}, 32))
	if err := New(dir, "right").AddKey(key); err != nil {
		t.Fatalf("add key: %v", err)
	}
	if _, err := New(dir, "wrong").Key(key.PublicKey); !errors.Is(err, securefile.ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
}

func TestKeystoreMissingKey(t *testing.T) {
	ks := New(t.TempDir(), "secret")
	key, _ := DeriveAuthKey(bytes.Repeat([]byte{3}, 32))
	if _, err := ks.Key(key.PublicKey); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestRemoveAllIdempotent(t *testing.T) {
	ks := New(t.TempDir()+"/nonexistent", "secret")
	if err := ks.RemoveAll(); err != nil {
		t.Fatalf("remove on missing dir: %v", err)
	}
	if err := ks.RemoveAll(); err != nil {
		t.Fatalf("second remove: %v", err)
	}

	populated := New(t.TempDir(), "secret")
	key, _ := DeriveAuthKey(bytes.Repeat([]byte{4}, 32))
	if err := populated.AddKey(key); err != nil {
		t.Fatalf("add key: %v", err)
	}
	if err := populated.RemoveAll(); err != nil {
		t.Fatalf("remove all: %v", err)
	}
	names, err := populated.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 0 {
		t.Fatal("keys should be gone after RemoveAll")
	}
}

func TestMnemonicSeed(t *testing.T) {
	mnemonic, err := NewMnemonic()
	if err != nil {
		t.Fatalf("new mnemonic: %v", err)
	}
	s1, err := SeedFromMnemonic(mnemonic, "")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	s2, err := SeedFromMnemonic(mnemonic, "")
	if err != nil {
		t.Fatalf("seed again: %v", err)
	}
	if s1 != s2 {
		t.Fatal("seed derivation must be deterministic")
	}

	if _, err := SeedFromMnemonic("not a mnemonic", ""); !errors.Is(err, ErrInvalidMnemonic) {
		t.Fatalf("expected ErrInvalidMnemonic, got %v", err)
	}
}
