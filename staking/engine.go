// Package staking orchestrates staking, unstaking, slashing, dispensing and
// prover rewards over the asset vault and the per-prover vaults.
package staking

import (
	"fmt"
	"math/big"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"

	provernetdb "github.com/celer-network/go-provernet/db"
	"github.com/celer-network/go-provernet/log"
	"github.com/celer-network/go-provernet/registry"
	"github.com/celer-network/go-provernet/storage"
	"github.com/celer-network/go-provernet/token"
	"github.com/celer-network/go-provernet/types"
	"github.com/celer-network/go-provernet/vault"
)

var logger = log.NewLogger("staking")

var (
	roleOwner     = []byte("owner")
	roleDispenser = []byte("dispenser")
	roleBridge    = []byte("bridge")
)

type Params struct {
	MinStake                *big.Int
	UnstakePeriod           uint64
	SlashCancellationPeriod uint64
	MaxUnstakeRequests      int
	ProtocolFeeBips         uint64
	FeeRecipient            common.Address
}

// Engine is the staking engine. Its Address holds the dispense reserve and
// acts as the intermediate holder while assets move between vaults.
type Engine struct {
	Address common.Address

	store      *storage.Store
	clock      clock.Clock
	params     Params
	base       *token.Token
	assetVault *vault.Vault
	registry   *registry.Registry
}

func New(
	store *storage.Store,
	clk clock.Clock,
	address common.Address,
	params Params,
	base *token.Token,
	assetVault *vault.Vault,
	reg *registry.Registry,
) *Engine {
	return &Engine{
		Address:    address,
		store:      store,
		clock:      clk,
		params:     params,
		base:       base,
		assetVault: assetVault,
		registry:   reg,
	}
}

// Initialize sets the roles and starts the dispense schedule at rate. It can
// only run once.
func (e *Engine) Initialize(owner common.Address, dispenser common.Address, bridge common.Address, rate *big.Int) error {
	return e.store.Atomic(func() error {
		current, err := e.Owner()
		if err != nil {
			return err
		}
		if current != (common.Address{}) {
			return fmt.Errorf("staking engine already initialized")
		}
		if owner == (common.Address{}) {
			return types.ErrZeroAddress
		}
		for role, addr := range map[string]common.Address{
			string(roleOwner):     owner,
			string(roleDispenser): dispenser,
			string(roleBridge):    bridge,
		} {
			if err = e.setRole([]byte(role), addr); err != nil {
				return err
			}
		}
		return e.putSchedule(&types.DispenseSchedule{
			Rate:               new(big.Int).Set(rate),
			RateChangedAt:      e.now(),
			EarnedAtLastChange: new(big.Int),
			Distributed:        new(big.Int),
		})
	})
}

func (e *Engine) Owner() (common.Address, error) {
	return e.role(roleOwner)
}

func (e *Engine) Dispenser() (common.Address, error) {
	return e.role(roleDispenser)
}

func (e *Engine) Bridge() (common.Address, error) {
	return e.role(roleBridge)
}

func (e *Engine) TransferOwnership(caller common.Address, newOwner common.Address) error {
	if newOwner == (common.Address{}) {
		return types.ErrZeroAddress
	}
	return e.setRoleAs(caller, roleOwner, newOwner)
}

// SetDispenser replaces the dispenser. The zero address revokes the role.
func (e *Engine) SetDispenser(caller common.Address, dispenser common.Address) error {
	return e.setRoleAs(caller, roleDispenser, dispenser)
}

// SetBridge replaces the bridge. The zero address revokes the role.
func (e *Engine) SetBridge(caller common.Address, bridge common.Address) error {
	return e.setRoleAs(caller, roleBridge, bridge)
}

func (e *Engine) setRoleAs(caller common.Address, role []byte, addr common.Address) error {
	return e.store.Atomic(func() error {
		if err := e.onlyRole(caller, roleOwner); err != nil {
			return err
		}
		logger.Info().Str("role", string(role)).Str("address", addr.Hex()).Msg("role updated")
		return e.setRole(role, addr)
	})
}

func (e *Engine) role(role []byte) (common.Address, error) {
	data, _, err := e.store.Get(provernetdb.NamespaceStakingRoles, role)
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(data), nil
}

func (e *Engine) setRole(role []byte, addr common.Address) error {
	if addr == (common.Address{}) {
		return e.store.Delete(provernetdb.NamespaceStakingRoles, role)
	}
	return e.store.Set(provernetdb.NamespaceStakingRoles, role, addr.Bytes())
}

func (e *Engine) onlyRole(caller common.Address, role []byte) error {
	holder, err := e.role(role)
	if err != nil {
		return err
	}
	if holder == (common.Address{}) || holder != caller {
		return types.ErrUnauthorized
	}
	return nil
}

func (e *Engine) now() uint64 {
	return uint64(e.clock.Now().Unix())
}

// ProverVault returns the vault of a registered prover.
func (e *Engine) ProverVault(p *types.Prover) *vault.Vault {
	shares := token.New(e.store, e.clock, p.Vault, fmt.Sprintf("PV-%d", p.ID))
	return vault.New(e.store, e.assetVault.Shares, shares)
}

func (e *Engine) prover(prover common.Address) (*types.Prover, *vault.Vault, error) {
	p, err := e.registry.ProverByVault(prover)
	if err != nil {
		return nil, nil, err
	}
	return p, e.ProverVault(p), nil
}

// redeemThrough converts prover vault shares back to base asset for receiver.
// A layer whose shares are worth nothing burns them instead of failing.
func (e *Engine) redeemThrough(pv *vault.Vault, owner common.Address, shares *big.Int, receiver common.Address) (*big.Int, error) {
	avShares, err := redeemOrBurn(pv, owner, shares, e.Address)
	if err != nil {
		return nil, err
	}
	if avShares.Sign() == 0 {
		return avShares, nil
	}
	return redeemOrBurn(e.assetVault, e.Address, avShares, receiver)
}

func redeemOrBurn(v *vault.Vault, owner common.Address, shares *big.Int, receiver common.Address) (*big.Int, error) {
	assets, err := v.PreviewRedeem(shares)
	if err != nil {
		return nil, err
	}
	if assets.Sign() == 0 {
		return assets, v.Shares.Burn(owner, shares)
	}
	return v.Redeem(owner, shares, receiver)
}
