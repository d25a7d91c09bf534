package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"weft-ledger/go-client/internal/config"
	"weft-ledger/go-client/internal/field"
	"weft-ledger/go-client/internal/ledger"
	"weft-ledger/go-client/internal/platform/redactlog"
	"weft-ledger/go-client/internal/remote/simnode"
	"weft-ledger/go-client/internal/workflows"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	workflow := flag.String("workflow", "deploy", "workflow to run: deploy | increment | increment-private")
	configPath := flag.String("config", "", "Path to weft.yaml (optional)")
	storePath := flag.String("store", "", "State store path override (optional)")
	keystoreDir := flag.String("keystore", "", "Keystore directory override (optional)")
	seed := flag.String("seed", "counterctl", "Deterministic counter account seed")
	counterID := flag.String("counter", "", "Counter account id (required for increment workflows)")
	passphrase := flag.String("passphrase", "", "Store passphrase (or WEFT_PASSPHRASE)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()
	if *showVersion {
		fmt.Printf("counterctl version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(redactlog.Wrap(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, *workflow, *configPath, *storePath, *keystoreDir, *seed, *counterID, *passphrase); err != nil {
		log.Error("counterctl failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, workflow, configPath, storePath, keystoreDir, seed, counterID, passphrase string) error {
	cfg, err := config.LoadFromPath(configPath)
	if err != nil {
		return err
	}
	if storePath != "" {
		cfg.StorePath = storePath
	}
	if keystoreDir != "" {
		cfg.KeystoreDir = keystoreDir
	}
	if passphrase == "" {
		passphrase = os.Getenv("WEFT_PASSPHRASE")
	}

	// No wire transport ships yet, so every workflow runs against the
	// in-process authority.
	env := workflows.Env{
		Authority:       simnode.New(simnode.DefaultConfig()),
		StorePath:       cfg.StorePath,
		KeystoreDir:     cfg.KeystoreDir,
		Passphrase:      passphrase,
		Seed:            seed,
		PollInterval:    cfg.PollInterval,
		RequestTimeout:  cfg.RequestTimeout,
		ResyncRateLimit: cfg.ResyncRateLimit,
		Log:             log,
	}

	switch workflow {
	case "deploy":
		result, err := workflows.Deploy(ctx, env)
		if err != nil {
			return err
		}
		log.Info("deploy finished",
			slog.String("counter_id", result.CounterID.String()),
			slog.String("wallet_id", result.WalletID.String()),
			slog.String("counter", result.Counter.String()),
		)
		fmt.Println(result.CounterID)
		return nil
	case "increment", "increment-private":
		if counterID == "" {
			return fmt.Errorf("-counter is required for %s", workflow)
		}
		id, err := ledger.ParseAccountID(counterID)
		if err != nil {
			return err
		}
		var value field.Word
		if workflow == "increment" {
			value, err = workflows.IncrementWithNote(ctx, env, id)
		} else {
			value, err = workflows.IncrementWithPrivateNote(ctx, env, id)
		}
		if err != nil {
			return err
		}
		log.Info("increment finished", slog.String("counter", value.String()))
		return nil
	default:
		return fmt.Errorf("unknown workflow %q", workflow)
	}
}
