package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	require.Equal(t, "20000000000000000", cfg.WrapAmount.String())
	require.Equal(t, "15000000000000000", cfg.Citea.SwapAmount.String())
	require.Equal(t, []string{"wsfi", "aimm"}, cfg.Citea.Pair)
}

func TestLoadScriptFormat(t *testing.T) {
	// as written by the python script, travelConfig is ignored
	doc := `{
    "wrapAmount": 20000000000000000,
    "unwrapAmount": 10000000000000000,
    "stakeAmount": 10000000000000000,
    "unstakeAmount": 10000000000000000,
    "bridgeAmount": 20000000000000000,
    "citeaConfig": {
        "pair": ["wsfi", "usdc"],
        "swapAmount": 15000000000000000,
        "addLiquidityAmount": 10000000000000000,
        "removeLiquidityPerc": 0.2,
        "slippage": 0.02
    },
    "travelConfig": {"amount": 100000000000000, "to": "0x03a519F1bD19CE974566bA91190b62D5C00E3A81"}
}`
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(20000000000000000), cfg.WrapAmount)
	require.Equal(t, []string{"wsfi", "usdc"}, cfg.Citea.Pair)
	require.True(t, decimal.RequireFromString("0.02").Equal(cfg.Citea.Slippage))
	require.True(t, decimal.RequireFromString("0.2").Equal(cfg.Citea.RemoveLiquidityPerc))
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, Defaults().Save(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Zero(t, Defaults().BridgeAmount.Cmp(cfg.BridgeAmount))
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	_, err = Load(bad)
	require.Error(t, err)

	incomplete := filepath.Join(dir, "incomplete.json")
	require.NoError(t, os.WriteFile(incomplete, []byte(`{"wrapAmount": 1}`), 0o600))
	_, err = Load(incomplete)
	require.ErrorContains(t, err, "missing")
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Citea.Slippage = decimal.NewFromInt(1)
	require.ErrorContains(t, cfg.Validate(), "slippage")

	cfg = Defaults()
	cfg.Citea.RemoveLiquidityPerc = decimal.Zero
	require.ErrorContains(t, cfg.Validate(), "removeLiquidityPerc")

	cfg = Defaults()
	cfg.Citea.Pair = []string{"wsfi"}
	require.ErrorContains(t, cfg.Validate(), "pair")

	cfg = Defaults()
	cfg.StakeAmount = big.NewInt(-1)
	require.ErrorContains(t, cfg.Validate(), "negative")
}

func TestToBaseUnits(t *testing.T) {
	require.Equal(t, "1000000000000000000", ToBaseUnits(decimal.NewFromInt(1)).String())
	require.Equal(t, "1", ToBaseUnits(decimal.RequireFromString("0.0000000000000000019")).String())
}

func TestLoadEnv(t *testing.T) {
	dotenv := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("SFI_RPC_URL=http://rollup.local\nRETRY_DELAY=2\nAPI_PORT=8080\n"), 0o600))

	t.Setenv("PRIVATE_KEY", "0xabc")
	t.Setenv("SFI_RPC_URL", "")
	t.Setenv("SEPOLIA_RPC_URL", "")
	t.Setenv("RETRY_DELAY", "")
	t.Setenv("API_PORT", "")
	t.Setenv("GELATO_SLUG", "custom")
	// godotenv does not override variables that are already set, even empty ones
	require.NoError(t, os.Unsetenv("SFI_RPC_URL"))
	require.NoError(t, os.Unsetenv("RETRY_DELAY"))
	require.NoError(t, os.Unsetenv("API_PORT"))

	env, err := LoadEnv(dotenv)
	require.NoError(t, err)
	require.NoError(t, env.RequireKey())
	require.Equal(t, "http://rollup.local", env.RollupRPC)
	require.Equal(t, DefaultSettlementRPC, env.SettlementRPC)
	require.Equal(t, "custom", env.GelatoSlug)
	require.Equal(t, 2*time.Second, env.RetryDelay)
	require.Equal(t, "8080", env.APIPort)
}

func TestLoadEnvMissingFileAndKey(t *testing.T) {
	t.Setenv("PRIVATE_KEY", "")
	t.Setenv("RETRY_DELAY", "1m")

	env, err := LoadEnv(filepath.Join(t.TempDir(), "nope.env"))
	require.NoError(t, err)
	require.ErrorIs(t, env.RequireKey(), ErrMissingPrivateKey)
	require.Equal(t, time.Minute, env.RetryDelay)

	t.Setenv("RETRY_DELAY", "soon")
	_, err = LoadEnv(filepath.Join(t.TempDir(), "nope.env"))
	require.Error(t, err)
}
