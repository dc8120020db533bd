package config

import (
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v2"
)

// Allocation credits Amount of the base asset to Account at genesis.
type Allocation struct {
	Account string `yaml:"account"`
	Amount  string `yaml:"amount"`
}

// Genesis is the initial distribution of the base asset.
type Genesis struct {
	Balances []Allocation `yaml:"balances"`
	// DispenseReserve is minted to the staking engine to fund dispenses.
	DispenseReserve string `yaml:"dispenseReserve"`
}

// LoadGenesis reads a yaml genesis file.
func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseGenesis(data)
}

func ParseGenesis(data []byte) (*Genesis, error) {
	genesis := &Genesis{}
	if err := yaml.UnmarshalStrict(data, genesis); err != nil {
		return nil, fmt.Errorf("parse genesis: %w", err)
	}
	if genesis.DispenseReserve == "" {
		genesis.DispenseReserve = "0"
	}
	if _, err := ParseAmount(genesis.DispenseReserve); err != nil {
		return nil, fmt.Errorf("dispenseReserve: %w", err)
	}
	for i, alloc := range genesis.Balances {
		if !common.IsHexAddress(alloc.Account) {
			return nil, fmt.Errorf("balance %d: invalid account %q", i, alloc.Account)
		}
		if _, err := ParseAmount(alloc.Amount); err != nil {
			return nil, fmt.Errorf("balance %d: %w", i, err)
		}
	}
	return genesis, nil
}

// Marshal encodes the genesis back to yaml.
func (g *Genesis) Marshal() ([]byte, error) {
	return yaml.Marshal(g)
}

// Accounts returns the parsed allocations.
func (g *Genesis) Accounts() map[common.Address]*big.Int {
	out := make(map[common.Address]*big.Int, len(g.Balances))
	for _, alloc := range g.Balances {
		amount := mustParseAmount(alloc.Amount)
		account := common.HexToAddress(alloc.Account)
		if existing, ok := out[account]; ok {
			amount = amount.Add(amount, existing)
		}
		out[account] = amount
	}
	return out
}

func (g *Genesis) DispenseReserveAmount() *big.Int {
	return mustParseAmount(g.DispenseReserve)
}
