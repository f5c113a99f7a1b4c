// Package config reads the process environment and the persisted amounts
// document the workflow runs with.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/shopspring/decimal"
)

// Decimals is the number of decimals of every token the bot handles.
const Decimals = 18

// Config holds operation amounts in base units.
type Config struct {
	WrapAmount    *big.Int    `json:"wrapAmount"`
	UnwrapAmount  *big.Int    `json:"unwrapAmount"`
	StakeAmount   *big.Int    `json:"stakeAmount"`
	UnstakeAmount *big.Int    `json:"unstakeAmount"`
	BridgeAmount  *big.Int    `json:"bridgeAmount"`
	Citea         CiteaConfig `json:"citeaConfig"`
}

// CiteaConfig configures the exchange operations. Percentages and slippage
// are fractions, 0.02 meaning 2%.
type CiteaConfig struct {
	Pair                []string        `json:"pair"`
	SwapAmount          *big.Int        `json:"swapAmount"`
	AddLiquidityAmount  *big.Int        `json:"addLiquidityAmount"`
	RemoveLiquidityPerc decimal.Decimal `json:"removeLiquidityPerc"`
	Slippage            decimal.Decimal `json:"slippage"`
}

// Defaults returns the amounts written by `init --auto`.
func Defaults() *Config {
	return &Config{
		WrapAmount:    ToBaseUnits(decimal.RequireFromString("0.02")),
		UnwrapAmount:  ToBaseUnits(decimal.RequireFromString("0.01")),
		StakeAmount:   ToBaseUnits(decimal.RequireFromString("0.01")),
		UnstakeAmount: ToBaseUnits(decimal.RequireFromString("0.01")),
		BridgeAmount:  ToBaseUnits(decimal.RequireFromString("0.02")),
		Citea: CiteaConfig{
			Pair:                []string{"wsfi", "aimm"},
			SwapAmount:          ToBaseUnits(decimal.RequireFromString("0.015")),
			AddLiquidityAmount:  ToBaseUnits(decimal.RequireFromString("0.01")),
			RemoveLiquidityPerc: decimal.RequireFromString("0.2"),
			Slippage:            decimal.RequireFromString("0.02"),
		},
	}
}

// ToBaseUnits scales a token amount by 10^18, dropping any fraction of a
// base unit.
func ToBaseUnits(amount decimal.Decimal) *big.Int {
	return amount.Shift(Decimals).Floor().BigInt()
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file %q not found, run init first: %w", path, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %q: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	amounts := map[string]*big.Int{
		"wrapAmount":                     c.WrapAmount,
		"unwrapAmount":                   c.UnwrapAmount,
		"stakeAmount":                    c.StakeAmount,
		"unstakeAmount":                  c.UnstakeAmount,
		"bridgeAmount":                   c.BridgeAmount,
		"citeaConfig.swapAmount":         c.Citea.SwapAmount,
		"citeaConfig.addLiquidityAmount": c.Citea.AddLiquidityAmount,
	}
	for name, v := range amounts {
		if v == nil {
			return fmt.Errorf("%s is missing", name)
		}
		if v.Sign() < 0 {
			return fmt.Errorf("%s is negative", name)
		}
	}

	if len(c.Citea.Pair) != 2 {
		return fmt.Errorf("citeaConfig.pair must name two tokens, got %d", len(c.Citea.Pair))
	}
	if c.Citea.Slippage.IsNegative() || c.Citea.Slippage.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("citeaConfig.slippage must be in [0, 1), got %s", c.Citea.Slippage)
	}
	if !c.Citea.RemoveLiquidityPerc.IsPositive() || c.Citea.RemoveLiquidityPerc.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("citeaConfig.removeLiquidityPerc must be in (0, 1], got %s", c.Citea.RemoveLiquidityPerc)
	}
	return nil
}
