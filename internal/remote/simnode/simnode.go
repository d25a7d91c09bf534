// Package simnode is an in-memory ledger authority used by the demo CLI
// and the end-to-end tests. It commits submitted transactions on a
// resync schedule and auto-consumes network-tagged notes against network
// accounts, which is enough to observe the eventual-consistency behavior
// the client is built around.
package simnode

import (
	"context"
	"fmt"
	"sync"

	"weft-ledger/go-client/internal/ledger"
	"weft-ledger/go-client/internal/masm"
	"weft-ledger/go-client/internal/remote"
)

type Config struct {
	// CommitDelay is how many resyncs after submission a transaction
	// stays pending before it commits.
	CommitDelay int
	// ConsumeDelay is how many further resyncs after commitment a
	// network note waits before the network consumes it.
	ConsumeDelay int
}

func DefaultConfig() Config {
	return Config{CommitDelay: 1, ConsumeDelay: 1}
}

type txEntry struct {
	submitted remote.SubmittedTransaction
	status    ledger.TransactionStatus
	commitAt  int
	height    uint64
}

type noteEntry struct {
	note      ledger.Note
	consumeAt int
	consumed  bool
}

type Node struct {
	mu       sync.Mutex
	cfg      Config
	height   uint64
	resyncs  int
	accounts map[ledger.AccountID]ledger.Account
	txs      map[ledger.TransactionID]*txEntry
	txOrder  []ledger.TransactionID
	notes    map[ledger.NoteID]*noteEntry
	noteIDs  []ledger.NoteID

	failures map[int]error
	discards map[ledger.TransactionID]bool
}

func New(cfg Config) *Node {
	if cfg.CommitDelay < 1 {
		cfg.CommitDelay = 1
	}
	if cfg.ConsumeDelay < 0 {
		cfg.ConsumeDelay = 0
	}
	return &Node{
		cfg:      cfg,
		accounts: make(map[ledger.AccountID]ledger.Account),
		txs:      make(map[ledger.TransactionID]*txEntry),
		notes:    make(map[ledger.NoteID]*noteEntry),
		failures: make(map[int]error),
		discards: make(map[ledger.TransactionID]bool),
	}
}

// FailResyncAt makes the n-th Resync call (1-based) return the given
// error instead of progressing the chain.
func (n *Node) FailResyncAt(call int, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures[call] = err
}

// DiscardTransaction marks a pending transaction to be discarded instead
// of committed.
func (n *Node) DiscardTransaction(id ledger.TransactionID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.discards[id] = true
}

// ResyncCount reports how many Resync calls the node has served.
func (n *Node) ResyncCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.resyncs
}

func (n *Node) Resync(ctx context.Context) (remote.Summary, error) {
	if err := ctx.Err(); err != nil {
		return remote.Summary{}, remote.NewResyncError(err)
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	n.resyncs++
	if err := n.failures[n.resyncs]; err != nil {
		return remote.Summary{}, remote.NewResyncError(err)
	}
	n.height++

	for _, id := range n.txOrder {
		entry := n.txs[id]
		if entry.status != ledger.StatusPending || n.resyncs < entry.commitAt {
			continue
		}
		if n.discards[id] {
			entry.status = ledger.StatusDiscarded
			entry.height = n.height
			continue
		}
		n.commitLocked(id, entry)
	}
	n.consumeNetworkNotesLocked()

	return n.summaryLocked(), nil
}

func (n *Node) commitLocked(id ledger.TransactionID, entry *txEntry) {
	entry.status = ledger.StatusCommitted
	entry.height = n.height

	post := entry.submitted.Account.Clone()
	n.accounts[post.ID] = post

	for _, note := range entry.submitted.OutputNotes {
		noteID := note.ID()
		if _, exists := n.notes[noteID]; exists {
			continue
		}
		n.notes[noteID] = &noteEntry{
			note:      note,
			consumeAt: n.resyncs + n.cfg.ConsumeDelay,
		}
		n.noteIDs = append(n.noteIDs, noteID)
	}
	for _, noteID := range entry.submitted.ConsumedNotes {
		if ne, ok := n.notes[noteID]; ok {
			ne.consumed = true
		}
	}
}

// consumeNetworkNotesLocked emulates the network executing committed
// network notes against matching network accounts.
func (n *Node) consumeNetworkNotesLocked() {
	for _, noteID := range n.noteIDs {
		entry := n.notes[noteID]
		if entry.consumed || entry.note.Metadata.Visibility != ledger.NoteNetwork || n.resyncs < entry.consumeAt {
			continue
		}
		target, ok := n.accountByTagLocked(entry.note.Metadata.Tag)
		if !ok {
			continue
		}
		updated, err := masm.Execute(entry.note.Recipient.Script, target.StorageWords())
		if err != nil {
			// A note whose script cannot run against the target stays
			// unconsumed, same as a real network rejecting it.
			continue
		}
		target.SetStorageWords(updated)
		target.Nonce++
		n.accounts[target.ID] = target
		entry.consumed = true
	}
}

func (n *Node) accountByTagLocked(tag ledger.NoteTag) (ledger.Account, bool) {
	for id, acct := range n.accounts {
		if acct.Kind.Visibility() == ledger.VisibilityNetwork && ledger.TagFromAccountID(id) == tag {
			return acct.Clone(), true
		}
	}
	return ledger.Account{}, false
}

func (n *Node) summaryLocked() remote.Summary {
	summary := remote.Summary{ChainHeight: n.height}
	for _, id := range n.txOrder {
		if n.txs[id].status == ledger.StatusCommitted {
			summary.CommittedTransactions = append(summary.CommittedTransactions, id)
		}
	}
	for _, noteID := range n.noteIDs {
		summary.CommittedNotes = append(summary.CommittedNotes, noteID)
	}
	return summary
}

func (n *Node) SubmitTransaction(ctx context.Context, tx remote.SubmittedTransaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	id := tx.Transaction.ID
	if _, exists := n.txs[id]; exists {
		return fmt.Errorf("transaction %s already submitted", id)
	}
	n.txs[id] = &txEntry{
		submitted: tx,
		status:    ledger.StatusPending,
		commitAt:  n.resyncs + n.cfg.CommitDelay,
	}
	n.txOrder = append(n.txOrder, id)
	return nil
}

func (n *Node) GetAccount(ctx context.Context, id ledger.AccountID) (*ledger.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	acct, ok := n.accounts[id]
	if !ok {
		return nil, &remote.NotFoundError{Kind: "account", ID: id.String()}
	}
	clone := acct.Clone()
	return &clone, nil
}

func (n *Node) ImportAccount(ctx context.Context, id ledger.AccountID) (*ledger.Account, error) {
	return n.GetAccount(ctx, id)
}

func (n *Node) GetTransactionsByIDs(ctx context.Context, ids []ledger.TransactionID) ([]ledger.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]ledger.Transaction, 0, len(ids))
	for _, id := range ids {
		entry, ok := n.txs[id]
		if !ok {
			continue
		}
		out = append(out, ledger.Transaction{
			ID:          id,
			Account:     entry.submitted.Transaction.Account,
			Status:      entry.status,
			BlockHeight: entry.height,
		})
	}
	return out, nil
}

func (n *Node) GetConsumableNotes(ctx context.Context, owner *ledger.AccountID) ([]remote.ConsumableNote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	var out []remote.ConsumableNote
	for _, noteID := range n.noteIDs {
		entry := n.notes[noteID]
		if entry.consumed {
			continue
		}
		if owner != nil && entry.note.Metadata.Tag != ledger.TagFromAccountID(*owner) {
			continue
		}
		out = append(out, remote.ConsumableNote{Note: entry.note, Relevance: remote.RelevanceAlways})
	}
	return out, nil
}

func (n *Node) GetCommittedNotes(ctx context.Context) ([]ledger.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]ledger.Note, 0, len(n.noteIDs))
	for _, noteID := range n.noteIDs {
		out = append(out, n.notes[noteID].note)
	}
	return out, nil
}

var _ remote.Authority = (*Node)(nil)
