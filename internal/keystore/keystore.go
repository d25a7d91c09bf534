// Package keystore persists account auth key material encrypted at rest.
package keystore

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/hkdf"

	"weft-ledger/go-client/internal/securefile"
)

const (
	keyFileSuffix   = ".key"
	hkdfInfoSigning = "weft/auth/signing/v1"
)

var ErrKeyNotFound = errors.New("keystore key not found")

// AuthSecretKey is an ed25519 signing pair attached to an account.
type AuthSecretKey struct {
	PublicKey  ed25519.PublicKey  `json:"public_key"`
	PrivateKey ed25519.PrivateKey `json:"private_key"`
}

// DeriveAuthKey derives the signing pair from a 32-byte account seed.
// Deterministic: one seed always yields the same pair.
func DeriveAuthKey(seed []byte) (AuthSecretKey, error) {
	reader := hkdf.New(sha256.New, seed, nil, []byte(hkdfInfoSigning))
	signingSeed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(reader, signingSeed); err != nil {
		return AuthSecretKey{}, err
	}
	priv := ed25519.NewKeyFromSeed(signingSeed)
	return AuthSecretKey{
		PublicKey:  priv.Public().(ed25519.PublicKey),
		PrivateKey: priv,
	}, nil
}

// Keystore stores one encrypted file per key under a directory.
type Keystore struct {
	dir        string
	passphrase string
}

func New(dir, passphrase string) *Keystore {
	return &Keystore{dir: strings.TrimSpace(dir), passphrase: passphrase}
}

func (k *Keystore) Dir() string { return k.dir }

func (k *Keystore) AddKey(key AuthSecretKey) error {
	if len(key.PublicKey) != ed25519.PublicKeySize || len(key.PrivateKey) != ed25519.PrivateKeySize {
		return fmt.Errorf("invalid auth key sizes: pub=%d priv=%d", len(key.PublicKey), len(key.PrivateKey))
	}
	payload, err := json.Marshal(key)
	if err != nil {
		return err
	}
	sealed, err := securefile.Seal(k.passphrase, payload)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(k.dir, 0o700); err != nil {
		return err
	}
	return os.WriteFile(k.keyPath(key.PublicKey), sealed, 0o600)
}

func (k *Keystore) Key(pub ed25519.PublicKey) (AuthSecretKey, error) {
	raw, err := os.ReadFile(k.keyPath(pub))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return AuthSecretKey{}, fmt.Errorf("%w: %x", ErrKeyNotFound, pub)
		}
		return AuthSecretKey{}, err
	}
	payload, err := securefile.Unseal(k.passphrase, raw)
	if err != nil {
		return AuthSecretKey{}, err
	}
	var key AuthSecretKey
	if err := json.Unmarshal(payload, &key); err != nil {
		return AuthSecretKey{}, securefile.ErrInvalidEnvelope
	}
	return key, nil
}

// List returns the hex-encoded public keys currently stored.
func (k *Keystore) List() ([]string, error) {
	entries, err := os.ReadDir(k.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, keyFileSuffix) {
			continue
		}
		out = append(out, strings.TrimSuffix(name, keyFileSuffix))
	}
	return out, nil
}

// RemoveAll deletes every stored key. A missing directory is not an error.
func (k *Keystore) RemoveAll() error {
	entries, err := os.ReadDir(k.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if err := os.Remove(filepath.Join(k.dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (k *Keystore) keyPath(pub ed25519.PublicKey) string {
	return filepath.Join(k.dir, hex.EncodeToString(pub)+keyFileSuffix)
}
