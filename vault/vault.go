// Package vault implements proportional share pools. The AssetVault wraps the
// base asset; every ProverVault wraps AssetVault shares. Vault calls move
// tokens without allowance checks, so only the staking engine holds vaults.
package vault

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/celer-network/go-provernet/log"
	"github.com/celer-network/go-provernet/storage"
	"github.com/celer-network/go-provernet/token"
	"github.com/celer-network/go-provernet/types"
)

var logger = log.NewLogger("vault")

type Vault struct {
	// Address holds the underlying and is the address of the share token.
	Address    common.Address
	Shares     *token.Token
	Underlying *token.Token

	store *storage.Store
}

// New returns the vault at address over underlying. The share token is keyed
// by the vault address.
func New(store *storage.Store, underlying *token.Token, shares *token.Token) *Vault {
	return &Vault{
		Address:    shares.Address,
		Shares:     shares,
		Underlying: underlying,
		store:      store,
	}
}

// TotalAssets is the vault's balance of the underlying token.
func (v *Vault) TotalAssets() (*big.Int, error) {
	return v.Underlying.BalanceOf(v.Address)
}

func (v *Vault) TotalShares() (*big.Int, error) {
	return v.Shares.TotalSupply()
}

func (v *Vault) BalanceOf(account common.Address) (*big.Int, error) {
	return v.Shares.BalanceOf(account)
}

// PreviewDeposit returns the shares minted for assets. An empty vault mints
// one share per asset.
func (v *Vault) PreviewDeposit(assets *big.Int) (*big.Int, error) {
	totalShares, totalAssets, err := v.totals()
	if err != nil {
		return nil, err
	}
	if totalShares.Sign() == 0 {
		return new(big.Int).Set(assets), nil
	}
	if totalAssets.Sign() == 0 {
		return nil, types.ErrVaultDrained
	}
	shares := new(big.Int).Mul(assets, totalShares)
	return shares.Quo(shares, totalAssets), nil
}

// PreviewRedeem returns the assets paid out for shares.
func (v *Vault) PreviewRedeem(shares *big.Int) (*big.Int, error) {
	totalShares, totalAssets, err := v.totals()
	if err != nil {
		return nil, err
	}
	if totalShares.Sign() == 0 {
		return new(big.Int), nil
	}
	assets := new(big.Int).Mul(shares, totalAssets)
	return assets.Quo(assets, totalShares), nil
}

// Deposit moves assets of the underlying from from into the vault and mints
// shares to receiver. It fails rather than mint zero shares.
func (v *Vault) Deposit(from common.Address, assets *big.Int, receiver common.Address) (*big.Int, error) {
	if assets.Sign() <= 0 {
		return nil, types.ErrZeroAmount
	}
	var shares *big.Int
	err := v.store.Atomic(func() error {
		var err error
		shares, err = v.PreviewDeposit(assets)
		if err != nil {
			return err
		}
		if shares.Sign() == 0 {
			return types.ErrZeroReceiptAmount
		}
		if err = v.Underlying.Transfer(from, v.Address, assets); err != nil {
			return err
		}
		return v.Shares.Mint(receiver, shares)
	})
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("vault", v.Shares.Symbol).Str("assets", assets.String()).Str("shares", shares.String()).
		Str("receiver", receiver.Hex()).Msg("deposit")
	return shares, nil
}

// Redeem burns shares held by owner and pays the assets to receiver.
func (v *Vault) Redeem(owner common.Address, shares *big.Int, receiver common.Address) (*big.Int, error) {
	if shares.Sign() <= 0 {
		return nil, types.ErrZeroAmount
	}
	var assets *big.Int
	err := v.store.Atomic(func() error {
		var err error
		assets, err = v.PreviewRedeem(shares)
		if err != nil {
			return err
		}
		if assets.Sign() == 0 {
			return types.ErrZeroReceiptAmount
		}
		if err = v.Shares.Burn(owner, shares); err != nil {
			return err
		}
		return v.Underlying.Transfer(v.Address, receiver, assets)
	})
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("vault", v.Shares.Symbol).Str("shares", shares.String()).Str("assets", assets.String()).
		Str("receiver", receiver.Hex()).Msg("redeem")
	return assets, nil
}

// Donate credits assets to the vault without minting shares, raising the
// share price for every holder.
func (v *Vault) Donate(from common.Address, assets *big.Int) error {
	if assets.Sign() <= 0 {
		return types.ErrZeroAmount
	}
	return v.Underlying.Transfer(from, v.Address, assets)
}

func (v *Vault) totals() (*big.Int, *big.Int, error) {
	totalShares, err := v.TotalShares()
	if err != nil {
		return nil, nil, err
	}
	totalAssets, err := v.TotalAssets()
	if err != nil {
		return nil, nil, err
	}
	return totalShares, totalAssets, nil
}
