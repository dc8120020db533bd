// Package protocol assembles the on-ledger components over one store and
// bootstraps their genesis state.
package protocol

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/celer-network/go-provernet/bridge"
	"github.com/celer-network/go-provernet/config"
	provernetdb "github.com/celer-network/go-provernet/db"
	"github.com/celer-network/go-provernet/log"
	"github.com/celer-network/go-provernet/registry"
	"github.com/celer-network/go-provernet/staking"
	"github.com/celer-network/go-provernet/statemachine"
	"github.com/celer-network/go-provernet/storage"
	"github.com/celer-network/go-provernet/token"
	"github.com/celer-network/go-provernet/types"
	"github.com/celer-network/go-provernet/vault"
	"github.com/celer-network/go-provernet/verifier"
)

var logger = log.NewLogger("protocol")

// System addresses of the on-ledger components.
var (
	BaseAssetAddress  = systemAddress("base")
	AssetVaultAddress = systemAddress("assetvault")
	RegistryAddress   = systemAddress("registry")
	EngineAddress     = systemAddress("staking")
	BridgeAddress     = systemAddress("bridge")
)

func systemAddress(name string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte("provernet." + name)))
}

type Protocol struct {
	Store      *storage.Store
	Clock      clock.Clock
	Params     *config.Params
	Serializer *types.Serializer

	Base       *token.Token
	AssetVault *vault.Vault
	Registry   *registry.Registry
	Engine     *staking.Engine
	Bridge     *bridge.Bridge
}

// New wires the components. The first call on a fresh store applies
// genesis; later calls restore the existing state and ignore genesis.
func New(store *storage.Store, params *config.Params, clk clock.Clock, v verifier.Verifier, genesis *config.Genesis) (*Protocol, error) {
	serializer, err := types.NewSerializer()
	if err != nil {
		return nil, err
	}
	p := &Protocol{
		Store:      store,
		Clock:      clk,
		Params:     params,
		Serializer: serializer,
		Base:       token.New(store, clk, BaseAssetAddress, "PROVE"),
	}
	p.AssetVault = vault.New(store, p.Base, token.New(store, clk, AssetVaultAddress, "AV"))
	p.Registry = registry.New(store, RegistryAddress, EngineAddress)
	p.Engine = staking.New(store, clk, EngineAddress, staking.Params{
		MinStake:                params.MinStakeAmount(),
		UnstakePeriod:           params.UnstakePeriod,
		SlashCancellationPeriod: params.SlashCancellationPeriod,
		MaxUnstakeRequests:      params.MaxUnstakeRequests,
		ProtocolFeeBips:         params.ProtocolFeeBips,
		FeeRecipient:            params.FeeRecipientAddress(),
	}, p.Base, p.AssetVault, p.Registry)
	p.Bridge = bridge.New(store, clk, BridgeAddress, bridge.Params{
		MinTransferAmount: params.MinTransferAmountValue(),
		MaxBlockAge:       params.MaxBlockAge,
		FreezeDuration:    params.FreezeDuration,
		TreeDepth:         params.TreeDepth,
	}, p.Base, p.Engine, v, serializer)
	p.Registry.SetIntentSink(p.Bridge)

	if err = p.bootstrap(genesis); err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}
	return p, nil
}

// Bootstrapped reports whether genesis was applied to the store.
func (p *Protocol) Bootstrapped() (bool, error) {
	return p.Store.GetBool(provernetdb.NamespaceGenesisMarker, provernetdb.EmptyKey)
}

func (p *Protocol) bootstrap(genesis *config.Genesis) error {
	done, err := p.Bootstrapped()
	if err != nil || done {
		return err
	}
	return p.Store.Atomic(func() error {
		owner := p.Params.OwnerAddress()
		if err := p.Engine.Initialize(owner, p.Params.DispenserAddress(), BridgeAddress, p.Params.DispenseRateAmount()); err != nil {
			return err
		}
		genesisRoot := statemachine.GenesisRoot(p.Params.TreeDepth)
		if err := p.Bridge.Initialize(owner, p.Params.SequencerAddress(), RegistryAddress, p.Params.VKeyHash(), genesisRoot); err != nil {
			return err
		}
		if genesis != nil {
			if err := p.allocate(genesis); err != nil {
				return err
			}
		}
		logger.Info().Str("owner", owner.Hex()).Str("genesisRoot", genesisRoot.Hex()).Msg("genesis applied")
		return p.Store.SetBool(provernetdb.NamespaceGenesisMarker, provernetdb.EmptyKey, true)
	})
}

func (p *Protocol) allocate(genesis *config.Genesis) error {
	accounts := genesis.Accounts()
	ordered := make([]common.Address, 0, len(accounts))
	for account := range accounts {
		ordered = append(ordered, account)
	}
	sort.Slice(ordered, func(i, j int) bool { return bytes.Compare(ordered[i].Bytes(), ordered[j].Bytes()) < 0 })
	for _, account := range ordered {
		if accounts[account].Sign() == 0 {
			continue
		}
		if err := p.Base.Mint(account, accounts[account]); err != nil {
			return err
		}
	}
	if reserve := genesis.DispenseReserveAmount(); reserve.Sign() > 0 {
		return p.Base.Mint(EngineAddress, reserve)
	}
	return nil
}
