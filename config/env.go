package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/sfi-network/sfi-bridge-bot/gelato"
	"github.com/sfi-network/sfi-bridge-bot/scheduler"
)

const (
	DefaultRollupRPC     = "https://rpc-testnet.singularityfinance.ai"
	DefaultSettlementRPC = "https://ethereum-sepolia-rpc.publicnode.com"
	DefaultConfigFile    = "config.json"
)

var ErrMissingPrivateKey = errors.New("PRIVATE_KEY is not set")

// Env is the process configuration read from the environment and an optional
// .env file.
type Env struct {
	PrivateKey    string
	RollupRPC     string
	SettlementRPC string
	GelatoAPI     string
	GelatoSlug    string
	ConfigFile    string
	APIPort       string
	RetryDelay    time.Duration
}

// LoadEnv loads the given dotenv files (".env" when none is given) into the
// process environment and reads Env from it. Missing files are ignored and
// variables already set in the environment win.
func LoadEnv(files ...string) (*Env, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	env := &Env{
		PrivateKey:    os.Getenv("PRIVATE_KEY"),
		RollupRPC:     getenv("SFI_RPC_URL", DefaultRollupRPC),
		SettlementRPC: getenv("SEPOLIA_RPC_URL", DefaultSettlementRPC),
		GelatoAPI:     getenv("GELATO_API_URL", gelato.DefaultEndpoint),
		GelatoSlug:    getenv("GELATO_SLUG", gelato.DefaultSlug),
		ConfigFile:    getenv("CONFIG_FILE", DefaultConfigFile),
		APIPort:       os.Getenv("API_PORT"),
		RetryDelay:    scheduler.DefaultDelay,
	}

	if v := os.Getenv("RETRY_DELAY"); v != "" {
		d, err := parseDelay(v)
		if err != nil {
			return nil, fmt.Errorf("failed to parse RETRY_DELAY: %w", err)
		}
		env.RetryDelay = d
	}

	if env.APIPort != "" {
		if _, err := strconv.ParseUint(env.APIPort, 10, 16); err != nil {
			return nil, fmt.Errorf("failed to parse API_PORT: %w", err)
		}
	}

	return env, nil
}

// RequireKey fails when no signing key is configured.
func (e *Env) RequireKey() error {
	if e.PrivateKey == "" {
		return ErrMissingPrivateKey
	}
	return nil
}

// parseDelay accepts a Go duration or a plain number of seconds.
func parseDelay(v string) (time.Duration, error) {
	if secs, err := strconv.ParseUint(v, 10, 32); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("delay must be positive, got %s", d)
	}
	return d, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
