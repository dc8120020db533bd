// Package registry creates and tracks provers, one per owner.
package registry

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	provernetdb "github.com/celer-network/go-provernet/db"
	"github.com/celer-network/go-provernet/log"
	"github.com/celer-network/go-provernet/storage"
	"github.com/celer-network/go-provernet/types"
)

var logger = log.NewLogger("registry")

// IntentSink receives the CreateProver intent of every new prover.
type IntentSink interface {
	CreateProver(caller common.Address, prover common.Address, owner common.Address, stakerFeeBips uint64) (uint64, error)
}

type Registry struct {
	Address common.Address

	store *storage.Store
	sink  IntentSink
	// engine is the only caller allowed to deactivate provers.
	engine common.Address
}

func New(store *storage.Store, address common.Address, engine common.Address) *Registry {
	return &Registry{
		Address: address,
		store:   store,
		engine:  engine,
	}
}

// SetIntentSink routes CreateProver intents. The bridge and the registry
// reference each other, so the sink is attached after construction.
func (r *Registry) SetIntentSink(sink IntentSink) {
	r.sink = sink
}

// VaultAddress is the deterministic vault address of prover id.
func (r *Registry) VaultAddress(id uint64) common.Address {
	return crypto.CreateAddress(r.Address, id)
}

// CreateProver registers a prover for owner and raises its CreateProver
// intent. The returned prover is identified by its vault address.
func (r *Registry) CreateProver(owner common.Address, stakerFeeBips uint64) (*types.Prover, error) {
	if owner == (common.Address{}) {
		return nil, types.ErrZeroAddress
	}
	if stakerFeeBips > types.BipsDenominator {
		return nil, types.ErrInvalidFeeBips
	}
	var prover *types.Prover
	err := r.store.Atomic(func() error {
		_, exists, err := r.store.Get(provernetdb.NamespaceProverOwner, owner.Bytes())
		if err != nil {
			return err
		}
		if exists {
			return types.ErrProverAlreadyExists
		}
		count, err := r.Count()
		if err != nil {
			return err
		}
		id := count + 1
		prover = &types.Prover{
			ID:            id,
			Vault:         r.VaultAddress(id),
			Owner:         owner,
			StakerFeeBips: stakerFeeBips,
			Active:        true,
		}
		if err = r.put(prover); err != nil {
			return err
		}
		if err = r.store.SetUint64(provernetdb.NamespaceProverOwner, owner.Bytes(), id); err != nil {
			return err
		}
		if err = r.store.SetUint64(provernetdb.NamespaceProverVault, prover.Vault.Bytes(), id); err != nil {
			return err
		}
		if err = r.store.SetUint64(provernetdb.NamespaceProverCounter, provernetdb.EmptyKey, id); err != nil {
			return err
		}
		if r.sink == nil {
			return fmt.Errorf("no intent sink attached")
		}
		_, err = r.sink.CreateProver(r.Address, prover.Vault, owner, stakerFeeBips)
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Uint64("id", prover.ID).Str("prover", prover.Vault.Hex()).Str("owner", owner.Hex()).Msg("prover created")
	return prover, nil
}

// Prover returns the prover with the given id.
func (r *Registry) Prover(id uint64) (*types.Prover, error) {
	prover := new(types.Prover)
	exists, err := r.store.GetRLP(provernetdb.NamespaceProver, provernetdb.Uint64Key(id), prover)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, types.ErrProverNotFound
	}
	return prover, nil
}

func (r *Registry) ProverByOwner(owner common.Address) (*types.Prover, error) {
	return r.lookup(provernetdb.NamespaceProverOwner, owner)
}

// ProverByVault resolves a prover from its address.
func (r *Registry) ProverByVault(vault common.Address) (*types.Prover, error) {
	return r.lookup(provernetdb.NamespaceProverVault, vault)
}

func (r *Registry) IsActive(prover common.Address) (bool, error) {
	p, err := r.ProverByVault(prover)
	if err != nil {
		return false, err
	}
	return p.Active, nil
}

func (r *Registry) OwnerOf(prover common.Address) (common.Address, error) {
	p, err := r.ProverByVault(prover)
	if err != nil {
		return common.Address{}, err
	}
	return p.Owner, nil
}

// Count returns the number of provers ever created.
func (r *Registry) Count() (uint64, error) {
	return r.store.GetUint64(provernetdb.NamespaceProverCounter, provernetdb.EmptyKey)
}

// Deactivate marks a prover inactive. Only the staking engine calls it.
func (r *Registry) Deactivate(caller common.Address, prover common.Address) error {
	if caller != r.engine {
		return types.ErrUnauthorized
	}
	return r.store.Atomic(func() error {
		p, err := r.ProverByVault(prover)
		if err != nil {
			return err
		}
		if !p.Active {
			return nil
		}
		p.Active = false
		if err = r.put(p); err != nil {
			return err
		}
		logger.Info().Str("prover", prover.Hex()).Msg("prover deactivated")
		r.store.Emit(&types.ProverDeactivatedEvent{Prover: prover})
		return nil
	})
}

func (r *Registry) put(p *types.Prover) error {
	return r.store.SetRLP(provernetdb.NamespaceProver, provernetdb.Uint64Key(p.ID), p)
}

func (r *Registry) lookup(namespace []byte, addr common.Address) (*types.Prover, error) {
	_, exists, err := r.store.Get(namespace, addr.Bytes())
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, types.ErrProverNotFound
	}
	id, err := r.store.GetUint64(namespace, addr.Bytes())
	if err != nil {
		return nil, err
	}
	return r.Prover(id)
}
