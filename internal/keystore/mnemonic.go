package keystore

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/tyler-smith/go-bip39"
)

var ErrInvalidMnemonic = errors.New("invalid mnemonic")

// NewMnemonic generates a fresh 24-word mnemonic for a wallet seed.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// SeedFromMnemonic turns a mnemonic into the 32-byte account seed.
func SeedFromMnemonic(mnemonic, passphrase string) ([32]byte, error) {
	var seed [32]byte
	if !bip39.IsMnemonicValid(mnemonic) {
		return seed, fmt.Errorf("%w: checksum mismatch", ErrInvalidMnemonic)
	}
	full := bip39.NewSeed(mnemonic, passphrase)
	seed = sha256.Sum256(full)
	return seed, nil
}
