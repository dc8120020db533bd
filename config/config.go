// Package config loads protocol parameters with viper and genesis
// allocations from yaml.
package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// Params are the protocol parameters. Amounts are decimal strings in base
// units, addresses and hashes are hex.
type Params struct {
	Owner        string `mapstructure:"owner"`
	Dispenser    string `mapstructure:"dispenser"`
	Sequencer    string `mapstructure:"sequencer"`
	FeeRecipient string `mapstructure:"feeRecipient"`

	MinStake                string `mapstructure:"minStake"`
	UnstakePeriod           uint64 `mapstructure:"unstakePeriod"`
	SlashCancellationPeriod uint64 `mapstructure:"slashCancellationPeriod"`
	MaxUnstakeRequests      int    `mapstructure:"maxUnstakeRequests"`
	DispenseRate            string `mapstructure:"dispenseRate"`
	ProtocolFeeBips         uint64 `mapstructure:"protocolFeeBips"`

	MinTransferAmount string `mapstructure:"minTransferAmount"`
	MaxBlockAge       uint64 `mapstructure:"maxBlockAge"`
	FreezeDuration    uint64 `mapstructure:"freezeDuration"`
	TreeDepth         int    `mapstructure:"treeDepth"`
	VKey              string `mapstructure:"vkey"`

	BlockInterval string `mapstructure:"blockInterval"`
	MaxBlockTxs   int    `mapstructure:"maxBlockTxs"`
}

var defaults = map[string]interface{}{
	"owner":                   "0x00000000000000000000000000000000000000a1",
	"dispenser":               "0x00000000000000000000000000000000000000a2",
	"sequencer":               "0x00000000000000000000000000000000000000a3",
	"feeRecipient":            "0x00000000000000000000000000000000000000a4",
	"minStake":                "1000000000000000000",
	"unstakePeriod":           21 * 24 * 3600,
	"slashCancellationPeriod": 7 * 24 * 3600,
	"maxUnstakeRequests":      32,
	"dispenseRate":            "0",
	"protocolFeeBips":         30,
	"minTransferAmount":       "1000000000000000",
	"maxBlockAge":             3600,
	"freezeDuration":          7 * 24 * 3600,
	"treeDepth":               256,
	"vkey":                    "0x",
	"blockInterval":           "10s",
	"maxBlockTxs":             256,
}

// DefaultParams returns working parameters for a local network.
func DefaultParams() *Params {
	params, err := load(newViper())
	if err != nil {
		panic(err)
	}
	return params
}

// Load merges the "parameters" and "roles" config files found in dir over
// the defaults. PROVERNET_* environment variables override both.
func Load(dir string) (*Params, error) {
	v := newViper()
	if dir != "" {
		v.AddConfigPath(dir)
		for _, name := range []string{"parameters", "roles"} {
			v.SetConfigName(name)
			if err := v.MergeInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
					return nil, fmt.Errorf("read %s config: %w", name, err)
				}
			}
		}
	}
	return load(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix("PROVERNET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func load(v *viper.Viper) (*Params, error) {
	params := &Params{}
	if err := v.Unmarshal(params); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return params, nil
}

// Validate checks that every field parses.
func (p *Params) Validate() error {
	for name, addr := range map[string]string{
		"owner":        p.Owner,
		"dispenser":    p.Dispenser,
		"sequencer":    p.Sequencer,
		"feeRecipient": p.FeeRecipient,
	} {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid %s address %q", name, addr)
		}
	}
	for name, amount := range map[string]string{
		"minStake":          p.MinStake,
		"dispenseRate":      p.DispenseRate,
		"minTransferAmount": p.MinTransferAmount,
	} {
		if _, err := ParseAmount(amount); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if p.ProtocolFeeBips > 10000 {
		return fmt.Errorf("protocolFeeBips %d above 10000", p.ProtocolFeeBips)
	}
	if p.MaxUnstakeRequests <= 0 {
		return fmt.Errorf("maxUnstakeRequests must be positive")
	}
	if _, err := time.ParseDuration(p.BlockInterval); err != nil {
		return fmt.Errorf("invalid blockInterval: %w", err)
	}
	if p.TreeDepth <= 0 || p.TreeDepth > 256 {
		return fmt.Errorf("treeDepth %d out of range", p.TreeDepth)
	}
	return nil
}

func (p *Params) OwnerAddress() common.Address        { return common.HexToAddress(p.Owner) }
func (p *Params) DispenserAddress() common.Address    { return common.HexToAddress(p.Dispenser) }
func (p *Params) SequencerAddress() common.Address    { return common.HexToAddress(p.Sequencer) }
func (p *Params) FeeRecipientAddress() common.Address { return common.HexToAddress(p.FeeRecipient) }
func (p *Params) VKeyHash() common.Hash               { return common.HexToHash(p.VKey) }

func (p *Params) MinStakeAmount() *big.Int         { return mustParseAmount(p.MinStake) }
func (p *Params) DispenseRateAmount() *big.Int     { return mustParseAmount(p.DispenseRate) }
func (p *Params) MinTransferAmountValue() *big.Int { return mustParseAmount(p.MinTransferAmount) }

func (p *Params) BlockIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(p.BlockInterval)
	return d
}

// ParseAmount parses a non-negative decimal or 0x-prefixed hex amount.
func ParseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("negative amount %q", s)
	}
	return amount, nil
}

func mustParseAmount(s string) *big.Int {
	amount, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return amount
}
