// Package workflows scripts the end-to-end counter flows: deploy a
// network counter account, then advance it either with a transaction
// script, a network note the authority consumes on its own, or a private
// note consumed explicitly. Each flow starts from a wiped local store so
// every observation is a fresh read of remote state.
package workflows

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/crypto/blake2b"

	"weft-ledger/go-client/internal/await"
	"weft-ledger/go-client/internal/client"
	"weft-ledger/go-client/internal/entity"
	"weft-ledger/go-client/internal/field"
	"weft-ledger/go-client/internal/keystore"
	"weft-ledger/go-client/internal/ledger"
	"weft-ledger/go-client/internal/remote"
	"weft-ledger/go-client/internal/session"
	"weft-ledger/go-client/internal/txn"
)

// Env carries everything a workflow needs. Authority is typically the
// simulated node; any remote.Authority works.
type Env struct {
	Authority   remote.Authority
	StorePath   string
	KeystoreDir string
	Passphrase  string
	// Seed makes the counter account id deterministic. Empty draws a
	// random seed.
	Seed         string
	PollInterval time.Duration
	// RequestTimeout bounds each authority call. Zero leaves calls
	// unbounded.
	RequestTimeout time.Duration
	// ResyncRateLimit caps authority calls per second. Zero disables
	// pacing.
	ResyncRateLimit float64
	Log             *slog.Logger
}

func (e Env) log() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (e Env) pollInterval() time.Duration {
	if e.PollInterval > 0 {
		return e.PollInterval
	}
	return 2 * time.Second
}

// DeployResult reports the accounts a deploy produced and the counter
// value a fresh observer read back.
type DeployResult struct {
	CounterID ledger.AccountID
	WalletID  ledger.AccountID
	Mnemonic  string
	Counter   field.Word
}

// Deploy wipes the local store, creates a wallet and the network counter
// account, runs one increment against the counter and verifies from a
// fresh session that the committed value is 1.
func Deploy(ctx context.Context, env Env) (DeployResult, error) {
	if err := session.Reset(env.KeystoreDir, env.StorePath); err != nil {
		return DeployResult{}, fmt.Errorf("reset store: %w", err)
	}
	c, err := newClient(env)
	if err != nil {
		return DeployResult{}, err
	}
	lib, err := loadContracts()
	if err != nil {
		return DeployResult{}, err
	}

	walletID, mnemonic, err := createWallet(c, lib)
	if err != nil {
		return DeployResult{}, err
	}
	counter, err := buildCounterAccount(env, lib)
	if err != nil {
		return DeployResult{}, err
	}
	if err := c.AddAccount(counter); err != nil {
		return DeployResult{}, fmt.Errorf("record counter account: %w", err)
	}
	env.log().Info("deploying counter account",
		slog.String("counter_id", counter.ID.String()),
		slog.String("wallet_id", walletID.String()),
	)

	handle, err := txn.Submit(ctx, c, counter.ID, txn.RunScript{Script: lib.incrementScript})
	if err != nil {
		return DeployResult{}, err
	}
	w := await.New(c, await.WithInterval(env.pollInterval()), await.WithLogger(env.log()))
	if _, err := w.WaitForTransaction(ctx, handle.TransactionID); err != nil {
		return DeployResult{}, err
	}

	value, err := observeCounter(ctx, env, counter.ID)
	if err != nil {
		return DeployResult{}, err
	}
	return DeployResult{
		CounterID: counter.ID,
		WalletID:  walletID,
		Mnemonic:  mnemonic,
		Counter:   value,
	}, nil
}

// IncrementWithNote advances the counter by emitting a network note
// tagged for it. The authority consumes the note; the wallet never
// touches the counter account directly.
func IncrementWithNote(ctx context.Context, env Env, counterID ledger.AccountID) (field.Word, error) {
	if err := session.Reset(env.KeystoreDir, env.StorePath); err != nil {
		return field.Word{}, fmt.Errorf("reset store: %w", err)
	}
	c, err := newClient(env)
	if err != nil {
		return field.Word{}, err
	}
	lib, err := loadContracts()
	if err != nil {
		return field.Word{}, err
	}
	walletID, _, err := createWallet(c, lib)
	if err != nil {
		return field.Word{}, err
	}
	if err := c.ImportAccountByID(ctx, counterID); err != nil {
		return field.Word{}, fmt.Errorf("import counter account: %w", err)
	}
	before, err := counterValue(c, counterID)
	if err != nil {
		return field.Word{}, err
	}
	want := nextCount(before)

	note, err := entity.NewNoteBuilder(lib.incrementScript, walletID, ledger.NoteNetwork).
		WithTarget(counterID).
		WithExecutionHint(ledger.HintAlways).
		Build()
	if err != nil {
		return field.Word{}, fmt.Errorf("build network note: %w", err)
	}
	env.log().Info("producing network note",
		slog.String("note_id", note.ID().String()),
		slog.String("counter_id", counterID.String()),
	)

	handle, err := txn.Submit(ctx, c, walletID, txn.ProduceNotes{Notes: []ledger.Note{note}})
	if err != nil {
		return field.Word{}, err
	}
	w := await.New(c, await.WithInterval(env.pollInterval()), await.WithLogger(env.log()))
	if _, err := w.WaitForTransaction(ctx, handle.TransactionID); err != nil {
		return field.Word{}, err
	}
	if err := awaitCounterValue(ctx, env, c, counterID, want); err != nil {
		return field.Word{}, err
	}
	return observeCounter(ctx, env, counterID)
}

// IncrementWithPrivateNote advances the counter with a private note that
// the counter account consumes explicitly.
func IncrementWithPrivateNote(ctx context.Context, env Env, counterID ledger.AccountID) (field.Word, error) {
	if err := session.Reset(env.KeystoreDir, env.StorePath); err != nil {
		return field.Word{}, fmt.Errorf("reset store: %w", err)
	}
	c, err := newClient(env)
	if err != nil {
		return field.Word{}, err
	}
	lib, err := loadContracts()
	if err != nil {
		return field.Word{}, err
	}
	walletID, _, err := createWallet(c, lib)
	if err != nil {
		return field.Word{}, err
	}
	if err := c.ImportAccountByID(ctx, counterID); err != nil {
		return field.Word{}, fmt.Errorf("import counter account: %w", err)
	}

	note, err := entity.NewNoteBuilder(lib.incrementScript, walletID, ledger.NotePrivate).Build()
	if err != nil {
		return field.Word{}, fmt.Errorf("build private note: %w", err)
	}
	produce, err := txn.Submit(ctx, c, walletID, txn.ProduceNotes{Notes: []ledger.Note{note}})
	if err != nil {
		return field.Word{}, err
	}
	w := await.New(c, await.WithInterval(env.pollInterval()), await.WithLogger(env.log()))
	if _, err := w.WaitForTransaction(ctx, produce.TransactionID); err != nil {
		return field.Word{}, err
	}

	consume, err := txn.Submit(ctx, c, counterID, txn.ConsumeNotes{
		Notes: []txn.ConsumedNote{{Note: note}},
	})
	if err != nil {
		return field.Word{}, err
	}
	if _, err := w.WaitForTransaction(ctx, consume.TransactionID); err != nil {
		return field.Word{}, err
	}
	return observeCounter(ctx, env, counterID)
}

func newClient(env Env) (*client.Client, error) {
	return client.NewBuilder().
		WithAuthority(env.Authority).
		WithStore(env.StorePath, env.Passphrase).
		WithKeystoreDir(env.KeystoreDir).
		WithRequestTimeout(env.RequestTimeout).
		WithRateLimit(env.ResyncRateLimit, 1).
		WithLogger(env.log()).
		Build()
}

// createWallet makes a fresh basic wallet: a new mnemonic, signing keys
// in the keystore and an updatable public account in the session.
func createWallet(c *client.Client, lib *contracts) (ledger.AccountID, string, error) {
	mnemonic, err := keystore.NewMnemonic()
	if err != nil {
		return ledger.AccountID{}, "", fmt.Errorf("generate mnemonic: %w", err)
	}
	seed, err := keystore.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		return ledger.AccountID{}, "", err
	}
	key, err := keystore.DeriveAuthKey(seed[:])
	if err != nil {
		return ledger.AccountID{}, "", err
	}
	if err := c.Keystore().AddKey(key); err != nil {
		return ledger.AccountID{}, "", fmt.Errorf("store wallet key: %w", err)
	}

	wallet, err := entity.NewAccountBuilder(seed).
		WithKind(ledger.KindUpdatablePublic).
		WithAuthComponent(lib.walletAuth).
		WithComponent(lib.wallet).
		Build()
	if err != nil {
		return ledger.AccountID{}, "", fmt.Errorf("build wallet account: %w", err)
	}
	if err := c.AddAccount(wallet); err != nil {
		return ledger.AccountID{}, "", fmt.Errorf("record wallet account: %w", err)
	}
	return wallet.ID, mnemonic, nil
}

func buildCounterAccount(env Env, lib *contracts) (ledger.Account, error) {
	var seed [32]byte
	if env.Seed != "" {
		seed = blake2b.Sum256([]byte(env.Seed))
	} else if _, err := io.ReadFull(rand.Reader, seed[:]); err != nil {
		return ledger.Account{}, fmt.Errorf("draw counter seed: %w", err)
	}
	acct, err := entity.NewAccountBuilder(seed).
		WithKind(ledger.KindImmutableNetwork).
		WithAuthComponent(lib.noAuth).
		WithComponent(lib.counter).
		Build()
	if err != nil {
		return ledger.Account{}, fmt.Errorf("build counter account: %w", err)
	}
	return acct, nil
}

func counterValue(c *client.Client, counterID ledger.AccountID) (field.Word, error) {
	acct, err := c.GetAccount(counterID)
	if err != nil {
		return field.Word{}, err
	}
	slot, ok := acct.Slot(0)
	if !ok {
		return field.Word{}, errors.New("counter account has no slot 0")
	}
	return slot, nil
}

func nextCount(w field.Word) field.Word {
	w[3] = w[3].Add(field.NewElement(1))
	return w
}

// awaitCounterValue polls until the remote counter reads the wanted
// value. Used for network notes, where consumption happens on the
// authority's schedule rather than ours.
func awaitCounterValue(ctx context.Context, env Env, c *client.Client, counterID ledger.AccountID, want field.Word) error {
	interval := env.pollInterval()
	for {
		if _, err := c.SyncState(ctx); err != nil {
			return err
		}
		if err := c.ImportAccountByID(ctx, counterID); err == nil {
			value, err := counterValue(c, counterID)
			if err == nil && value.Equal(want) {
				return nil
			}
		} else if !remote.IsNotFound(err) {
			return err
		}
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// observeCounter reads the counter back the way a fresh client would:
// wiped store, import by id, read slot 0.
func observeCounter(ctx context.Context, env Env, counterID ledger.AccountID) (field.Word, error) {
	if err := session.Reset(env.KeystoreDir, env.StorePath); err != nil {
		return field.Word{}, fmt.Errorf("reset store: %w", err)
	}
	c, err := newClient(env)
	if err != nil {
		return field.Word{}, err
	}
	if err := c.ImportAccountByID(ctx, counterID); err != nil {
		return field.Word{}, fmt.Errorf("import counter account: %w", err)
	}
	return counterValue(c, counterID)
}
