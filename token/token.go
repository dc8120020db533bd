// Package token implements fungible ledger tokens. BaseAsset and every vault
// share token are instances keyed by their own address.
package token

import (
	"fmt"
	"math/big"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"

	provernetdb "github.com/celer-network/go-provernet/db"
	"github.com/celer-network/go-provernet/log"
	"github.com/celer-network/go-provernet/storage"
	"github.com/celer-network/go-provernet/types"
)

var logger = log.NewLogger("token")

// Token is a fungible token whose balances live in the ledger store.
type Token struct {
	Address common.Address
	Symbol  string

	store *storage.Store
	clock clock.Clock
}

func New(store *storage.Store, clk clock.Clock, address common.Address, symbol string) *Token {
	return &Token{
		Address: address,
		Symbol:  symbol,
		store:   store,
		clock:   clk,
	}
}

func (t *Token) balanceKey(account common.Address) []byte {
	return provernetdb.JoinKey(t.Address.Bytes(), account.Bytes())
}

func (t *Token) allowanceKey(owner common.Address, spender common.Address) []byte {
	return provernetdb.JoinKey(t.Address.Bytes(), owner.Bytes(), spender.Bytes())
}

func (t *Token) BalanceOf(account common.Address) (*big.Int, error) {
	return t.store.GetBig(provernetdb.NamespaceTokenBalance, t.balanceKey(account))
}

func (t *Token) TotalSupply() (*big.Int, error) {
	return t.store.GetBig(provernetdb.NamespaceTokenSupply, t.Address.Bytes())
}

func (t *Token) Allowance(owner common.Address, spender common.Address) (*big.Int, error) {
	return t.store.GetBig(provernetdb.NamespaceTokenAllowance, t.allowanceKey(owner, spender))
}

// Nonces returns the next permit nonce of owner.
func (t *Token) Nonces(owner common.Address) (uint64, error) {
	return t.store.GetUint64(provernetdb.NamespaceTokenNonce, t.balanceKey(owner))
}

// Transfer moves amount from the caller to to.
func (t *Token) Transfer(caller common.Address, to common.Address, amount *big.Int) error {
	return t.store.Atomic(func() error {
		return t.move(caller, to, amount)
	})
}

// TransferFrom moves amount from from to to on behalf of the caller, spending
// allowance. An allowance of MaxUint256 is never decremented.
func (t *Token) TransferFrom(caller common.Address, from common.Address, to common.Address, amount *big.Int) error {
	return t.store.Atomic(func() error {
		if caller != from {
			if err := t.spendAllowance(from, caller, amount); err != nil {
				return err
			}
		}
		return t.move(from, to, amount)
	})
}

func (t *Token) Approve(caller common.Address, spender common.Address, amount *big.Int) error {
	return t.store.Atomic(func() error {
		return t.approve(caller, spender, amount)
	})
}

// Mint creates amount new tokens for to. Only token controllers call it.
func (t *Token) Mint(to common.Address, amount *big.Int) error {
	if to == (common.Address{}) {
		return types.ErrZeroAddress
	}
	return t.store.Atomic(func() error {
		if err := t.add(provernetdb.NamespaceTokenBalance, t.balanceKey(to), amount); err != nil {
			return err
		}
		if err := t.add(provernetdb.NamespaceTokenSupply, t.Address.Bytes(), amount); err != nil {
			return err
		}
		t.store.Emit(&types.TransferEvent{Token: t.Address, To: to, Amount: new(big.Int).Set(amount)})
		return nil
	})
}

// Burn destroys amount tokens held by from. Only token controllers call it.
func (t *Token) Burn(from common.Address, amount *big.Int) error {
	return t.store.Atomic(func() error {
		if err := t.sub(provernetdb.NamespaceTokenBalance, t.balanceKey(from), amount, types.ErrInsufficientBalance); err != nil {
			return err
		}
		if err := t.sub(provernetdb.NamespaceTokenSupply, t.Address.Bytes(), amount, types.ErrInsufficientBalance); err != nil {
			return err
		}
		t.store.Emit(&types.TransferEvent{Token: t.Address, From: from, Amount: new(big.Int).Set(amount)})
		return nil
	})
}

func (t *Token) move(from common.Address, to common.Address, amount *big.Int) error {
	if to == (common.Address{}) {
		return types.ErrZeroAddress
	}
	if err := t.sub(provernetdb.NamespaceTokenBalance, t.balanceKey(from), amount, types.ErrInsufficientBalance); err != nil {
		return err
	}
	if err := t.add(provernetdb.NamespaceTokenBalance, t.balanceKey(to), amount); err != nil {
		return err
	}
	logger.Trace().Str("token", t.Symbol).Str("from", from.Hex()).Str("to", to.Hex()).Str("amount", amount.String()).Msg("transfer")
	t.store.Emit(&types.TransferEvent{Token: t.Address, From: from, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

func (t *Token) approve(owner common.Address, spender common.Address, amount *big.Int) error {
	if spender == (common.Address{}) {
		return types.ErrZeroAddress
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("negative allowance %s", amount)
	}
	if err := t.store.SetBig(provernetdb.NamespaceTokenAllowance, t.allowanceKey(owner, spender), amount); err != nil {
		return err
	}
	t.store.Emit(&types.ApprovalEvent{Token: t.Address, Owner: owner, Spender: spender, Amount: new(big.Int).Set(amount)})
	return nil
}

func (t *Token) spendAllowance(owner common.Address, spender common.Address, amount *big.Int) error {
	allowance, err := t.Allowance(owner, spender)
	if err != nil {
		return err
	}
	if allowance.Cmp(math.MaxBig256) == 0 {
		return nil
	}
	if allowance.Cmp(amount) < 0 {
		return types.ErrInsufficientAllowance
	}
	return t.store.SetBig(provernetdb.NamespaceTokenAllowance, t.allowanceKey(owner, spender), new(big.Int).Sub(allowance, amount))
}

func (t *Token) add(namespace []byte, key []byte, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("negative amount %s", amount)
	}
	current, err := t.store.GetBig(namespace, key)
	if err != nil {
		return err
	}
	return t.store.SetBig(namespace, key, current.Add(current, amount))
}

func (t *Token) sub(namespace []byte, key []byte, amount *big.Int, insufficient error) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("negative amount %s", amount)
	}
	current, err := t.store.GetBig(namespace, key)
	if err != nil {
		return err
	}
	if current.Cmp(amount) < 0 {
		return insufficient
	}
	return t.store.SetBig(namespace, key, current.Sub(current, amount))
}
