// Package client binds a remote authority to a local session: it is the
// single entry point workflows use to observe and drive the ledger.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"weft-ledger/go-client/internal/keystore"
	"weft-ledger/go-client/internal/ledger"
	"weft-ledger/go-client/internal/remote"
	"weft-ledger/go-client/internal/session"
)

var ErrNoAuthority = errors.New("client requires a remote authority")

type Client struct {
	authority remote.Authority
	session   *session.Session
	log       *slog.Logger
	limiter   *rate.Limiter
	timeout   time.Duration
}

// Builder assembles a Client the way the reference flows construct one:
// authority first, then the local store locations.
type Builder struct {
	authority   remote.Authority
	statePath   string
	keystoreDir string
	secret      string
	logger      *slog.Logger
	rateLimit   rate.Limit
	burst       int
	timeout     time.Duration
}

func NewBuilder() *Builder {
	return &Builder{rateLimit: rate.Inf, burst: 1}
}

func (b *Builder) WithAuthority(a remote.Authority) *Builder {
	b.authority = a
	return b
}

func (b *Builder) WithStore(statePath, secret string) *Builder {
	b.statePath = statePath
	b.secret = secret
	return b
}

func (b *Builder) WithKeystoreDir(dir string) *Builder {
	b.keystoreDir = dir
	return b
}

func (b *Builder) WithLogger(log *slog.Logger) *Builder {
	b.logger = log
	return b
}

// WithRequestTimeout bounds each authority call. Zero leaves calls
// bounded only by the caller's context.
func (b *Builder) WithRequestTimeout(d time.Duration) *Builder {
	if d > 0 {
		b.timeout = d
	}
	return b
}

// WithRateLimit caps authority calls at rps requests per second.
func (b *Builder) WithRateLimit(rps float64, burst int) *Builder {
	if rps > 0 && burst > 0 {
		b.rateLimit = rate.Limit(rps)
		b.burst = burst
	}
	return b
}

func (b *Builder) Build() (*Client, error) {
	if b.authority == nil {
		return nil, ErrNoAuthority
	}
	if b.statePath == "" || b.keystoreDir == "" {
		return nil, fmt.Errorf("client requires store and keystore paths")
	}
	sess, err := session.Open(b.statePath, b.keystoreDir, b.secret)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	log := b.logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	registerMetrics()
	return &Client{
		authority: b.authority,
		session:   sess,
		log:       log,
		limiter:   rate.NewLimiter(b.rateLimit, b.burst),
		timeout:   b.timeout,
	}, nil
}

func (c *Client) Session() *session.Session { return c.session }

func (c *Client) Keystore() *keystore.Keystore { return c.session.Keystore() }

func (c *Client) pace(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}

// callCtx bounds a single authority call with the configured request
// timeout.
func (c *Client) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// SyncState resynchronizes the session view from the remote authority and
// persists the updated snapshot.
func (c *Client) SyncState(ctx context.Context) (remote.Summary, error) {
	if err := c.pace(ctx); err != nil {
		return remote.Summary{}, remote.NewResyncError(err)
	}
	callCtx, cancel := c.callCtx(ctx)
	summary, err := c.authority.Resync(callCtx)
	cancel()
	if err != nil {
		resyncFailures.Inc()
		if !remote.IsResyncError(err) {
			err = remote.NewResyncError(err)
		}
		return remote.Summary{}, err
	}
	resyncsTotal.Inc()

	c.session.SetChainHeight(summary.ChainHeight)
	for _, noteID := range summary.CommittedNotes {
		c.session.MarkNoteCommitted(noteID)
	}
	if pending := c.session.PendingTransactionIDs(); len(pending) > 0 {
		callCtx, cancel := c.callCtx(ctx)
		txs, err := c.authority.GetTransactionsByIDs(callCtx, pending)
		cancel()
		if err != nil {
			return remote.Summary{}, remote.NewResyncError(err)
		}
		for _, tx := range txs {
			c.session.PutTransaction(tx)
		}
	}
	if err := c.session.Save(); err != nil {
		return remote.Summary{}, fmt.Errorf("persist session: %w", err)
	}
	c.log.Debug("synced state", slog.Uint64("chain_height", summary.ChainHeight))
	return summary, nil
}

// AddAccount records a locally built account in the session. The remote
// authority only learns about it on first submission.
func (c *Client) AddAccount(acct ledger.Account) error {
	c.session.PutAccount(acct)
	return c.session.Save()
}

// ImportAccountByID pulls a remote account into the session, the way a
// fresh observer adopts state it did not create.
func (c *Client) ImportAccountByID(ctx context.Context, id ledger.AccountID) error {
	if err := c.pace(ctx); err != nil {
		return err
	}
	callCtx, cancel := c.callCtx(ctx)
	acct, err := c.authority.ImportAccount(callCtx, id)
	cancel()
	if err != nil {
		return err
	}
	c.session.PutAccount(*acct)
	c.log.Debug("imported account", slog.String("account_id", id.String()))
	return c.session.Save()
}

// GetAccount returns the session's observed state for the account.
func (c *Client) GetAccount(id ledger.AccountID) (ledger.Account, error) {
	acct, ok := c.session.Account(id)
	if !ok {
		return ledger.Account{}, &remote.NotFoundError{Kind: "account", ID: id.String()}
	}
	return acct, nil
}

// TransactionStatus looks the transaction up remotely and records the
// answer. Unknown transactions read as still pending.
func (c *Client) TransactionStatus(ctx context.Context, id ledger.TransactionID) (ledger.TransactionStatus, error) {
	if err := c.pace(ctx); err != nil {
		return 0, err
	}
	callCtx, cancel := c.callCtx(ctx)
	txs, err := c.authority.GetTransactionsByIDs(callCtx, []ledger.TransactionID{id})
	cancel()
	if err != nil {
		return 0, err
	}
	if len(txs) == 0 {
		return ledger.StatusPending, nil
	}
	c.session.PutTransaction(txs[0])
	return txs[0].Status, nil
}

func (c *Client) GetConsumableNotes(ctx context.Context, owner *ledger.AccountID) ([]remote.ConsumableNote, error) {
	if err := c.pace(ctx); err != nil {
		return nil, err
	}
	callCtx, cancel := c.callCtx(ctx)
	defer cancel()
	return c.authority.GetConsumableNotes(callCtx, owner)
}

func (c *Client) GetCommittedNotes(ctx context.Context) ([]ledger.Note, error) {
	if err := c.pace(ctx); err != nil {
		return nil, err
	}
	callCtx, cancel := c.callCtx(ctx)
	defer cancel()
	return c.authority.GetCommittedNotes(callCtx)
}

// SubmitTransaction forwards a locally executed transaction and records
// the optimistic post-state in the session.
func (c *Client) SubmitTransaction(ctx context.Context, st remote.SubmittedTransaction) error {
	if err := c.pace(ctx); err != nil {
		return err
	}
	callCtx, cancel := c.callCtx(ctx)
	err := c.authority.SubmitTransaction(callCtx, st)
	cancel()
	if err != nil {
		return err
	}
	submissionsTotal.Inc()

	c.session.PutTransaction(st.Transaction)
	c.session.PutAccount(st.Account)
	for _, note := range st.OutputNotes {
		c.session.PutNote(note)
	}
	c.log.Info("submitted transaction",
		slog.String("transaction_id", st.Transaction.ID.String()),
		slog.String("account_id", st.Transaction.Account.String()),
	)
	return c.session.Save()
}
