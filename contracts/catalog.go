package contracts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/sfi-network/sfi-bridge-bot/types"
)

//go:embed catalog.yaml abis/*.json
var files embed.FS

// ErrUnknownContract is returned when a logical name is not registered for a chain.
var ErrUnknownContract = errors.New("unknown contract")

type catalogFile struct {
	Contracts  map[types.Chain]map[string]entry `yaml:"contracts"`
	Interfaces map[string]string                `yaml:"interfaces"`
}

type entry struct {
	Address string `yaml:"address"`
	ABI     string `yaml:"abi"`
}

type key struct {
	chain types.Chain
	name  string
}

// Catalog is an immutable lookup of deployed contracts keyed by (chain, name),
// plus interfaces for contracts whose address is discovered at runtime such as
// liquidity pair tokens.
type Catalog struct {
	contracts  map[key]Contract
	interfaces map[string]abi.ABI
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	raw, err := files.ReadFile("catalog.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(raw, func(name string) ([]byte, error) {
		return files.ReadFile(path.Join("abis", name))
	})
}

// Parse builds a catalog from a YAML document. readABI returns the JSON ABI
// referenced by an entry.
func Parse(raw []byte, readABI func(name string) ([]byte, error)) (*Catalog, error) {
	var doc catalogFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	parsed := make(map[string]abi.ABI)
	loadABI := func(name string) (abi.ABI, error) {
		if a, ok := parsed[name]; ok {
			return a, nil
		}
		data, err := readABI(name)
		if err != nil {
			return abi.ABI{}, fmt.Errorf("failed to read abi %s: %w", name, err)
		}
		a, err := abi.JSON(bytes.NewReader(data))
		if err != nil {
			return abi.ABI{}, fmt.Errorf("failed to parse abi %s: %w", name, err)
		}
		parsed[name] = a
		return a, nil
	}

	c := &Catalog{
		contracts:  make(map[key]Contract),
		interfaces: make(map[string]abi.ABI),
	}

	for chain, entries := range doc.Contracts {
		for name, e := range entries {
			if !common.IsHexAddress(e.Address) {
				return nil, fmt.Errorf("invalid address for %s on %s: %q", name, chain, e.Address)
			}
			addr := common.HexToAddress(e.Address)
			if addr == (common.Address{}) {
				return nil, fmt.Errorf("zero address for %s on %s", name, chain)
			}
			a, err := loadABI(e.ABI)
			if err != nil {
				return nil, err
			}
			c.contracts[key{chain, name}] = Contract{Name: name, Chain: chain, Address: addr, ABI: a}
		}
	}

	for name, file := range doc.Interfaces {
		a, err := loadABI(file)
		if err != nil {
			return nil, err
		}
		c.interfaces[name] = a
	}

	return c, nil
}

// Resolve returns the contract registered under name on chain.
func (c *Catalog) Resolve(chain types.Chain, name string) (Contract, error) {
	contract, ok := c.contracts[key{chain, name}]
	if !ok {
		return Contract{}, fmt.Errorf("%w: %s on %s", ErrUnknownContract, name, chain)
	}
	return contract, nil
}

// Contracts lists the contracts registered on chain ordered by name.
func (c *Catalog) Contracts(chain types.Chain) []Contract {
	var out []Contract
	for k, contract := range c.contracts {
		if k.chain == chain {
			out = append(out, contract)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// MustResolve is like Resolve but panics. It is meant for names that are part
// of the embedded catalog.
func (c *Catalog) MustResolve(chain types.Chain, name string) Contract {
	contract, err := c.Resolve(chain, name)
	if err != nil {
		panic(err)
	}
	return contract
}

// Bind attaches the interface registered under name to a runtime address.
func (c *Catalog) Bind(chain types.Chain, name string, addr common.Address) (Contract, error) {
	a, ok := c.interfaces[name]
	if !ok {
		return Contract{}, fmt.Errorf("%w: interface %s", ErrUnknownContract, name)
	}
	if addr == (common.Address{}) {
		return Contract{}, fmt.Errorf("cannot bind %s to the zero address", name)
	}
	return Contract{Name: name, Chain: chain, Address: addr, ABI: a}, nil
}
