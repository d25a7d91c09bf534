// Package session owns the local cache for one workflow phase: the
// synced-state snapshot and the keystore directory. Sessions are explicit
// values; two sessions with distinct paths never collide.
package session

import (
	"errors"
	"os"
	"sync"

	"weft-ledger/go-client/internal/keystore"
	"weft-ledger/go-client/internal/ledger"
	"weft-ledger/go-client/internal/securefile"
)

// NoteRecord tracks what the session knows about a note.
type NoteRecord struct {
	Note      ledger.Note `json:"note"`
	Committed bool        `json:"committed"`
	Consumed  bool        `json:"consumed"`
}

type State struct {
	ChainHeight  uint64                                      `json:"chain_height"`
	Accounts     map[ledger.AccountID]ledger.Account         `json:"accounts"`
	Notes        map[ledger.NoteID]NoteRecord                `json:"notes"`
	Transactions map[ledger.TransactionID]ledger.Transaction `json:"transactions"`
}

func emptyState() State {
	return State{
		Accounts:     make(map[ledger.AccountID]ledger.Account),
		Notes:        make(map[ledger.NoteID]NoteRecord),
		Transactions: make(map[ledger.TransactionID]ledger.Transaction),
	}
}

type Session struct {
	mu        sync.RWMutex
	statePath string
	secret    string
	keys      *keystore.Keystore
	state     State
}

// Open loads the snapshot at statePath when one exists, otherwise starts
// from an empty view.
func Open(statePath, keystoreDir, secret string) (*Session, error) {
	s := &Session{
		statePath: statePath,
		secret:    secret,
		keys:      keystore.New(keystoreDir, secret),
		state:     emptyState(),
	}
	var loaded State
	err := securefile.ReadSealedJSON(statePath, secret, &loaded)
	switch {
	case err == nil:
		if loaded.Accounts == nil {
			loaded.Accounts = make(map[ledger.AccountID]ledger.Account)
		}
		if loaded.Notes == nil {
			loaded.Notes = make(map[ledger.NoteID]NoteRecord)
		}
		if loaded.Transactions == nil {
			loaded.Transactions = make(map[ledger.TransactionID]ledger.Transaction)
		}
		s.state = loaded
	case errors.Is(err, os.ErrNotExist):
		// Fresh session.
	default:
		return nil, err
	}
	return s, nil
}

func (s *Session) Keystore() *keystore.Keystore { return s.keys }

func (s *Session) StatePath() string { return s.statePath }

// Save persists the current view as a sealed snapshot.
func (s *Session) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return securefile.WriteSealedJSON(s.statePath, s.secret, s.state)
}

func (s *Session) ChainHeight() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ChainHeight
}

func (s *Session) SetChainHeight(height uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ChainHeight = height
}

func (s *Session) PutAccount(acct ledger.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Accounts[acct.ID] = acct.Clone()
}

func (s *Session) Account(id ledger.AccountID) (ledger.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.state.Accounts[id]
	if !ok {
		return ledger.Account{}, false
	}
	return acct.Clone(), true
}

func (s *Session) PutTransaction(tx ledger.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Transactions[tx.ID] = tx
}

func (s *Session) Transaction(id ledger.TransactionID) (ledger.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.state.Transactions[id]
	return tx, ok
}

// PendingTransactionIDs lists transactions not yet observed as terminal.
func (s *Session) PendingTransactionIDs() []ledger.TransactionID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ledger.TransactionID
	for id, tx := range s.state.Transactions {
		if !tx.Status.Terminal() {
			out = append(out, id)
		}
	}
	return out
}

func (s *Session) PutNote(note ledger.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := note.ID()
	record := s.state.Notes[id]
	record.Note = note
	s.state.Notes[id] = record
}

func (s *Session) Note(id ledger.NoteID) (NoteRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.state.Notes[id]
	return record, ok
}

func (s *Session) MarkNoteCommitted(id ledger.NoteID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.state.Notes[id]; ok {
		record.Committed = true
		s.state.Notes[id] = record
	}
}

// Reset discards all cached state: key material, the snapshot file, and
// the in-memory view. A missing cache is not an error, and a second
// Reset is a no-op.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.keys.RemoveAll(); err != nil {
		return err
	}
	if err := os.Remove(s.statePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	s.state = emptyState()
	return nil
}

// Reset deletes the cache at the given locations without opening a
// session, for callers tearing down a previous phase.
func Reset(keystoreDir, statePath string) error {
	if err := keystore.New(keystoreDir, "").RemoveAll(); err != nil {
		return err
	}
	if err := os.Remove(statePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
