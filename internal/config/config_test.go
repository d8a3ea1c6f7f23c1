package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sheikh-saqib/token-ledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const holder = "0x00000000000000000000000000000000000000A1"

func lookup(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestDefaults(t *testing.T) {
	cfg, err := FromEnv(lookup(map[string]string{"INITIAL_HOLDER": holder}))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.Strict)

	want := models.DefaultGenesis("0x00000000000000000000000000000000000000a1")
	assert.True(t, cfg.Genesis.Token.Equal(want.Token))
	assert.Equal(t, want.Holder, cfg.Genesis.Holder)
	assert.Equal(t, "1000000000000000000000000000", cfg.Genesis.Token.TotalSupply.Dec())
}

func TestHolderIsRequired(t *testing.T) {
	_, err := FromEnv(lookup(nil))
	assert.Error(t, err)

	_, err = FromEnv(lookup(map[string]string{"INITIAL_HOLDER": "0x0"}))
	assert.Error(t, err)
}

func TestOverrides(t *testing.T) {
	cfg, err := FromEnv(lookup(map[string]string{
		"INITIAL_HOLDER":     holder,
		"STORE":              "Bolt",
		"BOLT_PATH":          "/tmp/x.db",
		"KAFKA_BROKERS":      "k1:9092, k2:9092,",
		"TOKEN_NAME":         "Other",
		"TOKEN_SYMBOL":       "OTH",
		"TOKEN_DECIMALS":     "6",
		"TOKEN_TOTAL_SUPPLY": "5000000",
		"LEDGER_STRICT":      "true",
		"LOG_LEVEL":          "debug",
	}))
	require.NoError(t, err)

	assert.Equal(t, StoreBolt, cfg.Store)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "Other", cfg.Genesis.Token.Name)
	assert.Equal(t, uint8(6), cfg.Genesis.Token.Decimals)
	assert.Equal(t, uint64(5000000), cfg.Genesis.Token.TotalSupply.Uint64())
	assert.True(t, cfg.Strict)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidation(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown store":      {"STORE": "redis"},
		"postgres needs dsn": {"STORE": "postgres"},
		"bad supply":         {"TOKEN_TOTAL_SUPPLY": "-1"},
		"decimals too large": {"TOKEN_DECIMALS": "78"},
		"bad strict":         {"LEDGER_STRICT": "maybe"},
		"malformed holder":   {"INITIAL_HOLDER": "alice"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			if _, ok := vars["INITIAL_HOLDER"]; !ok {
				vars["INITIAL_HOLDER"] = holder
			}
			_, err := FromEnv(lookup(vars))
			assert.Error(t, err)
		})
	}
}

func TestGenesisFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
token:
  name: FileToken
  symbol: FTK
  decimals: 2
  total_supply: "12345"
holder: "0x00000000000000000000000000000000000000b0"
`), 0o600))

	cfg, err := FromEnv(lookup(map[string]string{
		"GENESIS_FILE": path,
		"TOKEN_SYMBOL": "ENV",
	}))
	require.NoError(t, err)

	assert.Equal(t, "FileToken", cfg.Genesis.Token.Name)
	assert.Equal(t, "ENV", cfg.Genesis.Token.Symbol)
	assert.Equal(t, uint8(2), cfg.Genesis.Token.Decimals)
	assert.Equal(t, uint64(12345), cfg.Genesis.Token.TotalSupply.Uint64())
	assert.Equal(t, models.Address("0x00000000000000000000000000000000000000b0"), cfg.Genesis.Holder)
}
