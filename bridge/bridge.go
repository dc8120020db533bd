// Package bridge is the proof-gated transition log. It escrows deposits,
// queues on-ledger actions as pending transactions and advances the root
// chain when a sequencer submits public values with a valid proof.
package bridge

import (
	"fmt"
	"math/big"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"

	provernetdb "github.com/celer-network/go-provernet/db"
	"github.com/celer-network/go-provernet/log"
	"github.com/celer-network/go-provernet/storage"
	"github.com/celer-network/go-provernet/token"
	"github.com/celer-network/go-provernet/types"
	"github.com/celer-network/go-provernet/verifier"
)

var logger = log.NewLogger("bridge")

var (
	keyOwner     = []byte("owner")
	keySequencer = []byte("sequencer")
	keyRegistry  = []byte("registry")
	keyVKey      = []byte("vkey")
	keyPaused    = []byte("paused")
	keyPausedAt  = []byte("pausedAt")
	keyEmergency = []byte("emergency")
)

// StakingEngine receives the reward and slash directives of a step.
type StakingEngine interface {
	ProcessReward(caller common.Address, prover common.Address, amount *big.Int) error
	RequestSlash(caller common.Address, prover common.Address, amount *big.Int) (uint64, error)
}

type Params struct {
	MinTransferAmount *big.Int
	// MaxBlockAge bounds how old a step timestamp may be, in seconds.
	MaxBlockAge uint64
	// FreezeDuration is how long the bridge must stay paused before
	// emergency withdrawals open.
	FreezeDuration uint64
	// TreeDepth is the depth of the off-ledger balance tree.
	TreeDepth int
}

type Bridge struct {
	Address common.Address

	store      *storage.Store
	clock      clock.Clock
	params     Params
	base       *token.Token
	engine     StakingEngine
	verifier   verifier.Verifier
	serializer *types.Serializer
}

func New(
	store *storage.Store,
	clk clock.Clock,
	address common.Address,
	params Params,
	base *token.Token,
	engine StakingEngine,
	v verifier.Verifier,
	serializer *types.Serializer,
) *Bridge {
	return &Bridge{
		Address:    address,
		store:      store,
		clock:      clk,
		params:     params,
		base:       base,
		engine:     engine,
		verifier:   v,
		serializer: serializer,
	}
}

// Initialize records the roles, the program key and the genesis root at
// block 0. It can only run once.
func (b *Bridge) Initialize(owner common.Address, sequencer common.Address, registry common.Address, vkey common.Hash, genesisRoot common.Hash) error {
	if owner == (common.Address{}) {
		return types.ErrZeroAddress
	}
	if genesisRoot == (common.Hash{}) {
		return types.ErrInvalidRoot
	}
	return b.store.Atomic(func() error {
		_, exists, err := b.store.Get(provernetdb.NamespaceStateRoot, provernetdb.Uint64Key(0))
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("bridge already initialized")
		}
		if err = b.setAddress(keyOwner, owner); err != nil {
			return err
		}
		if err = b.setAddress(keySequencer, sequencer); err != nil {
			return err
		}
		if err = b.setAddress(keyRegistry, registry); err != nil {
			return err
		}
		if err = b.store.Set(provernetdb.NamespaceBridgeConfig, keyVKey, vkey.Bytes()); err != nil {
			return err
		}
		return b.appendRoot(&types.StateRoot{BlockNumber: 0, Root: genesisRoot, Timestamp: b.now()})
	})
}

func (b *Bridge) now() uint64 {
	return uint64(b.clock.Now().Unix())
}

func (b *Bridge) Owner() (common.Address, error) {
	return b.address(keyOwner)
}

func (b *Bridge) Sequencer() (common.Address, error) {
	return b.address(keySequencer)
}

func (b *Bridge) TransferOwnership(caller common.Address, newOwner common.Address) error {
	if newOwner == (common.Address{}) {
		return types.ErrZeroAddress
	}
	return b.setAddressAs(caller, keyOwner, newOwner)
}

// SetSequencer replaces the sequencer. The zero address revokes the role.
func (b *Bridge) SetSequencer(caller common.Address, sequencer common.Address) error {
	return b.setAddressAs(caller, keySequencer, sequencer)
}

func (b *Bridge) setAddressAs(caller common.Address, key []byte, addr common.Address) error {
	return b.store.Atomic(func() error {
		if err := b.only(caller, keyOwner); err != nil {
			return err
		}
		logger.Info().Str("role", string(key)).Str("address", addr.Hex()).Msg("role updated")
		return b.setAddress(key, addr)
	})
}

func (b *Bridge) address(key []byte) (common.Address, error) {
	data, _, err := b.store.Get(provernetdb.NamespaceBridgeConfig, key)
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(data), nil
}

func (b *Bridge) setAddress(key []byte, addr common.Address) error {
	if addr == (common.Address{}) {
		return b.store.Delete(provernetdb.NamespaceBridgeConfig, key)
	}
	return b.store.Set(provernetdb.NamespaceBridgeConfig, key, addr.Bytes())
}

func (b *Bridge) only(caller common.Address, key []byte) error {
	holder, err := b.address(key)
	if err != nil {
		return err
	}
	if holder == (common.Address{}) || holder != caller {
		return types.ErrUnauthorized
	}
	return nil
}

// VKey is the key of the program whose proofs advance the root chain.
func (b *Bridge) VKey() (common.Hash, error) {
	data, _, err := b.store.Get(provernetdb.NamespaceBridgeConfig, keyVKey)
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(data), nil
}

// Pause stops every mutating entry point except withdrawal claims.
func (b *Bridge) Pause(caller common.Address) error {
	return b.store.Atomic(func() error {
		if err := b.only(caller, keyOwner); err != nil {
			return err
		}
		if err := b.whenNotPaused(); err != nil {
			return err
		}
		now := b.now()
		if err := b.store.SetBool(provernetdb.NamespaceBridgeConfig, keyPaused, true); err != nil {
			return err
		}
		if err := b.store.SetUint64(provernetdb.NamespaceBridgeConfig, keyPausedAt, now); err != nil {
			return err
		}
		logger.Warn().Uint64("at", now).Msg("bridge paused")
		b.store.Emit(&types.PausedEvent{At: now})
		return nil
	})
}

func (b *Bridge) Unpause(caller common.Address) error {
	return b.store.Atomic(func() error {
		if err := b.only(caller, keyOwner); err != nil {
			return err
		}
		paused, err := b.Paused()
		if err != nil {
			return err
		}
		if !paused {
			return types.ErrNotPaused
		}
		// Emergency claims are not debited off-ledger, so the root chain
		// cannot resume once one was paid.
		emergency, err := b.EmergencyMode()
		if err != nil {
			return err
		}
		if emergency {
			return types.ErrEmergencyMode
		}
		if err = b.store.SetBool(provernetdb.NamespaceBridgeConfig, keyPaused, false); err != nil {
			return err
		}
		if err = b.store.Delete(provernetdb.NamespaceBridgeConfig, keyPausedAt); err != nil {
			return err
		}
		logger.Info().Msg("bridge unpaused")
		b.store.Emit(&types.UnpausedEvent{At: b.now()})
		return nil
	})
}

func (b *Bridge) Paused() (bool, error) {
	return b.store.GetBool(provernetdb.NamespaceBridgeConfig, keyPaused)
}

// EmergencyMode reports whether any emergency withdrawal was taken. The
// bridge cannot be unpaused after that.
func (b *Bridge) EmergencyMode() (bool, error) {
	return b.store.GetBool(provernetdb.NamespaceBridgeConfig, keyEmergency)
}

// PausedAt returns when the current pause started.
func (b *Bridge) PausedAt() (uint64, error) {
	return b.store.GetUint64(provernetdb.NamespaceBridgeConfig, keyPausedAt)
}

func (b *Bridge) whenNotPaused() error {
	paused, err := b.Paused()
	if err != nil {
		return err
	}
	if paused {
		return types.ErrPaused
	}
	return nil
}

// BlockNumber is the number of the latest root.
func (b *Bridge) BlockNumber() (uint64, error) {
	return b.store.GetUint64(provernetdb.NamespaceBridgeHead, provernetdb.EmptyKey)
}

// Root is the latest committed root.
func (b *Bridge) Root() (common.Hash, error) {
	head, err := b.Head()
	if err != nil {
		return common.Hash{}, err
	}
	return head.Root, nil
}

// Head is the latest entry of the root chain.
func (b *Bridge) Head() (*types.StateRoot, error) {
	n, err := b.BlockNumber()
	if err != nil {
		return nil, err
	}
	return b.StateRoot(n)
}

func (b *Bridge) StateRoot(blockNumber uint64) (*types.StateRoot, error) {
	root := new(types.StateRoot)
	exists, err := b.store.GetRLP(provernetdb.NamespaceStateRoot, provernetdb.Uint64Key(blockNumber), root)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("no root at block %d", blockNumber)
	}
	return root, nil
}

func (b *Bridge) appendRoot(root *types.StateRoot) error {
	if err := b.store.SetRLP(provernetdb.NamespaceStateRoot, provernetdb.Uint64Key(root.BlockNumber), root); err != nil {
		return err
	}
	return b.store.SetUint64(provernetdb.NamespaceBridgeHead, provernetdb.EmptyKey, root.BlockNumber)
}

// Fork replaces the program key and appends newRoot without a proof. It is
// the owner's recovery path when the off-ledger computation is stuck.
func (b *Bridge) Fork(caller common.Address, newVKey common.Hash, newRoot common.Hash) error {
	if newRoot == (common.Hash{}) {
		return types.ErrInvalidRoot
	}
	return b.store.Atomic(func() error {
		if err := b.only(caller, keyOwner); err != nil {
			return err
		}
		head, err := b.Head()
		if err != nil {
			return err
		}
		next := &types.StateRoot{BlockNumber: head.BlockNumber + 1, Root: newRoot, Timestamp: b.now()}
		if err = b.appendRoot(next); err != nil {
			return err
		}
		if err = b.store.Set(provernetdb.NamespaceBridgeConfig, keyVKey, newVKey.Bytes()); err != nil {
			return err
		}
		logger.Warn().Uint64("blockNumber", next.BlockNumber).Str("vkey", newVKey.Hex()).Str("root", newRoot.Hex()).Msg("fork")
		b.store.Emit(&types.ForkEvent{BlockNumber: next.BlockNumber, VKey: newVKey, OldRoot: head.Root, NewRoot: newRoot})
		return nil
	})
}
