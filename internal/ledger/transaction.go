package ledger

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

type TransactionStatus uint8

const (
	StatusPending TransactionStatus = iota + 1
	StatusCommitted
	StatusDiscarded
)

func (s TransactionStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusCommitted:
		return "committed"
	case StatusDiscarded:
		return "discarded"
	}
	return "unknown"
}

// Terminal reports whether the status can no longer change.
func (s TransactionStatus) Terminal() bool {
	return s == StatusCommitted || s == StatusDiscarded
}

// Transaction is a single state transition submitted against one account.
type Transaction struct {
	ID          TransactionID     `json:"id"`
	Account     AccountID         `json:"account"`
	Status      TransactionStatus `json:"status"`
	BlockHeight uint64            `json:"block_height"`
}

// ComputeTransactionID derives the stable transaction id from the target
// account, its nonce at execution time and the request payload digest.
func ComputeTransactionID(account AccountID, nonce uint64, payload [32]byte) TransactionID {
	h, _ := blake2b.New256(nil)
	h.Write([]byte("weft/txn/v1"))
	h.Write(account[:])
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], nonce)
	h.Write(buf[:])
	h.Write(payload[:])
	var id TransactionID
	copy(id[:], h.Sum(nil))
	return id
}
