package workflows

import (
	"fmt"

	"weft-ledger/go-client/internal/entity"
	"weft-ledger/go-client/internal/field"
	"weft-ledger/go-client/internal/ledger"
	"weft-ledger/go-client/internal/masm"
)

const counterContractPath = "contracts::counter"

const counterContractSource = `
# Counter contract: slot 0 holds the count in the last limb.
export.increment
    storage.get.0
    push.1
    add
    storage.set.0
end
`

const incrementScriptSource = `
begin
    call.contracts::counter::increment
end
`

const noAuthSource = `
# Accounts driven by the network carry no caller authentication.
export.auth
    push.0
    drop
end
`

const walletAuthSource = `
export.auth
    push.1
    drop
end
`

const walletSource = `
export.receive
    push.0
    drop
end
`

type contracts struct {
	incrementScript *masm.Artifact
	counter         entity.AccountComponent
	noAuth          entity.AccountComponent
	wallet          entity.AccountComponent
	walletAuth      entity.AccountComponent
}

func loadContracts() (*contracts, error) {
	lib, err := masm.CompileLibrary(counterContractSource, counterContractPath)
	if err != nil {
		return nil, fmt.Errorf("compile counter contract: %w", err)
	}
	script, err := masm.CompileScript(incrementScriptSource, lib)
	if err != nil {
		return nil, fmt.Errorf("compile increment script: %w", err)
	}
	counter := entity.NewAccountComponent(lib, field.ZeroWord()).
		WithSupportedKinds(ledger.KindImmutableNetwork, ledger.KindImmutablePublic)

	noAuth, err := entity.CompileComponent(noAuthSource, "auth::none")
	if err != nil {
		return nil, fmt.Errorf("compile no-auth component: %w", err)
	}
	walletAuth, err := entity.CompileComponent(walletAuthSource, "auth::ed25519")
	if err != nil {
		return nil, fmt.Errorf("compile wallet auth component: %w", err)
	}
	wallet, err := entity.CompileComponent(walletSource, "wallets::basic")
	if err != nil {
		return nil, fmt.Errorf("compile wallet component: %w", err)
	}
	return &contracts{
		incrementScript: script,
		counter:         counter,
		noAuth:          noAuth.SupportsAllKinds(),
		wallet:          wallet.SupportsAllKinds(),
		walletAuth:      walletAuth.SupportsAllKinds(),
	}, nil
}
