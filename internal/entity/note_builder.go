package entity

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"weft-ledger/go-client/internal/field"
	"weft-ledger/go-client/internal/ledger"
	"weft-ledger/go-client/internal/masm"
)

// NoteBuilder assembles a note. Build draws one fresh random serial word
// per call; everything else is deterministic.
//
// Tag rule: a network note is tagged by the target account expected to
// consume it, a private note by its creator. Public notes use the target
// when one is supplied and fall back to the creator.
type NoteBuilder struct {
	script     *masm.Artifact
	inputs     ledger.NoteInputs
	assets     ledger.NoteAssets
	creator    ledger.AccountID
	visibility ledger.NoteVisibility
	hint       ledger.ExecutionHint
	target     *ledger.AccountID
	timestamp  field.Element
	rand       io.Reader
}

func NewNoteBuilder(script *masm.Artifact, creator ledger.AccountID, visibility ledger.NoteVisibility) *NoteBuilder {
	return &NoteBuilder{
		script:     script,
		creator:    creator,
		visibility: visibility,
		rand:       rand.Reader,
	}
}

func (b *NoteBuilder) WithInputs(inputs ...field.Element) *NoteBuilder {
	b.inputs = append(ledger.NoteInputs(nil), inputs...)
	return b
}

func (b *NoteBuilder) WithAssets(assets ...ledger.Asset) *NoteBuilder {
	b.assets = append(ledger.NoteAssets(nil), assets...)
	return b
}

func (b *NoteBuilder) WithTarget(target ledger.AccountID) *NoteBuilder {
	b.target = &target
	return b
}

func (b *NoteBuilder) WithExecutionHint(hint ledger.ExecutionHint) *NoteBuilder {
	b.hint = hint
	return b
}

func (b *NoteBuilder) WithTimestamp(ts field.Element) *NoteBuilder {
	b.timestamp = ts
	return b
}

// WithRand overrides the serial number source. Tests use this to pin the
// serial word.
func (b *NoteBuilder) WithRand(r io.Reader) *NoteBuilder {
	b.rand = r
	return b
}

func (b *NoteBuilder) Build() (ledger.Note, error) {
	if b.script.Empty() {
		return ledger.Note{}, fmt.Errorf("%w: artifact is empty", ErrScriptCompilation)
	}
	tag, err := b.deriveTag()
	if err != nil {
		return ledger.Note{}, err
	}
	serial, err := drawSerial(b.rand)
	if err != nil {
		return ledger.Note{}, err
	}
	timestamp := b.timestamp
	if timestamp == 0 {
		timestamp = field.NewElement(uint64(time.Now().Unix()))
	}
	return ledger.Note{
		Assets: append(ledger.NoteAssets(nil), b.assets...),
		Metadata: ledger.NoteMetadata{
			Creator:    b.creator,
			Visibility: b.visibility,
			Tag:        tag,
			Hint:       b.hint,
			Timestamp:  timestamp,
		},
		Recipient: ledger.NoteRecipient{
			Serial: serial,
			Script: b.script,
			Inputs: append(ledger.NoteInputs(nil), b.inputs...),
		},
	}, nil
}

func (b *NoteBuilder) deriveTag() (ledger.NoteTag, error) {
	switch b.visibility {
	case ledger.NoteNetwork:
		if b.target == nil {
			return 0, ErrMissingTarget
		}
		return ledger.TagFromAccountID(*b.target), nil
	case ledger.NotePrivate:
		return ledger.TagFromAccountID(b.creator), nil
	case ledger.NotePublic:
		if b.target != nil {
			return ledger.TagFromAccountID(*b.target), nil
		}
		return ledger.TagFromAccountID(b.creator), nil
	}
	return 0, fmt.Errorf("%w: unknown visibility %d", ErrScriptCompilation, b.visibility)
}

func drawSerial(r io.Reader) (field.Word, error) {
	var raw [32]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return field.Word{}, fmt.Errorf("draw serial number: %w", err)
	}
	var serial field.Word
	for i := range serial {
		serial[i] = field.NewElement(binary.LittleEndian.Uint64(raw[i*8:]))
	}
	return serial, nil
}
