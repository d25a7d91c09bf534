package ledger

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"

	"weft-ledger/go-client/internal/field"
	"weft-ledger/go-client/internal/masm"
)

type NoteVisibility uint8

const (
	NotePublic NoteVisibility = iota + 1
	NotePrivate
	NoteNetwork
)

func (v NoteVisibility) String() string {
	switch v {
	case NotePublic:
		return "public"
	case NotePrivate:
		return "private"
	case NoteNetwork:
		return "network"
	}
	return "unknown"
}

// NoteTag routes a note to the accounts expected to consume it.
type NoteTag uint32

// TagFromAccountID derives the routing tag for an account.
func TagFromAccountID(id AccountID) NoteTag {
	return NoteTag(binary.BigEndian.Uint32(id[:4]))
}

type ExecutionHint uint8

const (
	HintNone ExecutionHint = iota
	HintAlways
)

type Asset struct {
	Faucet AccountID `json:"faucet"`
	Amount uint64    `json:"amount"`
}

type NoteAssets []Asset

// Commitment folds the asset list into a single digest. Empty asset lists
// are valid and commit to the bare domain separator.
func (a NoteAssets) Commitment() [32]byte {
	h, _ := blake2b.New256(nil)
	h.Write([]byte("weft/assets/v1"))
	var buf [8]byte
	for _, asset := range a {
		h.Write(asset.Faucet[:])
		binary.LittleEndian.PutUint64(buf[:], asset.Amount)
		h.Write(buf[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

type NoteInputs []field.Element

// NoteRecipient identifies who can consume a note: a random serial word,
// the compiled note script and its inputs.
type NoteRecipient struct {
	Serial field.Word     `json:"serial"`
	Script *masm.Artifact `json:"script"`
	Inputs NoteInputs     `json:"inputs"`
}

func (r NoteRecipient) Digest() [32]byte {
	h, _ := blake2b.New256(nil)
	h.Write([]byte("weft/recipient/v1"))
	h.Write(r.Serial.Bytes())
	if r.Script != nil {
		h.Write(r.Script.Digest[:])
	}
	var buf [8]byte
	for _, in := range r.Inputs {
		binary.LittleEndian.PutUint64(buf[:], in.Uint64())
		h.Write(buf[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

type NoteMetadata struct {
	Creator    AccountID      `json:"creator"`
	Visibility NoteVisibility `json:"visibility"`
	Tag        NoteTag        `json:"tag"`
	Hint       ExecutionHint  `json:"hint"`
	Timestamp  field.Element  `json:"timestamp"`
}

type Note struct {
	Assets    NoteAssets    `json:"assets"`
	Metadata  NoteMetadata  `json:"metadata"`
	Recipient NoteRecipient `json:"recipient"`
}

// ID is a deterministic function of the recipient and assets only; the
// metadata timestamp never feeds the id.
func (n Note) ID() NoteID {
	recipient := n.Recipient.Digest()
	assets := n.Assets.Commitment()
	h, _ := blake2b.New256(nil)
	h.Write([]byte("weft/note/v1"))
	h.Write(recipient[:])
	h.Write(assets[:])
	var id NoteID
	copy(id[:], h.Sum(nil))
	return id
}
