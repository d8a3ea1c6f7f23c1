package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
	"github.com/joho/godotenv"
	"github.com/sheikh-saqib/token-ledger/internal/logx"
	"github.com/sheikh-saqib/token-ledger/internal/models"
	"gopkg.in/yaml.v3"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreBolt     = "bolt"
)

type Config struct {
	HTTPAddr string

	Store       string
	DatabaseURL string
	BoltPath    string

	KafkaBrokers       []string
	KafkaTransferTopic string
	KafkaApprovalTopic string

	Genesis models.Genesis
	Strict  bool

	Log logx.Options
}

// genesisFile is the YAML layout read from GENESIS_FILE.
type genesisFile struct {
	Token struct {
		Name        string `yaml:"name"`
		Symbol      string `yaml:"symbol"`
		Decimals    *uint8 `yaml:"decimals"`
		TotalSupply string `yaml:"total_supply"`
	} `yaml:"token"`
	Holder string `yaml:"holder"`
}

// Load reads .env (if present) and the process environment. Values already
// set in the environment win over .env.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from an arbitrary lookup, which keeps tests off
// the process environment.
func FromEnv(getenv func(string) string) (*Config, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		HTTPAddr:           env("HTTP_ADDR", ":8080"),
		Store:              strings.ToLower(env("STORE", StoreMemory)),
		DatabaseURL:        env("DATABASE_URL", ""),
		BoltPath:           env("BOLT_PATH", "./data/ledger.db"),
		KafkaBrokers:       splitList(env("KAFKA_BROKERS", "")),
		KafkaTransferTopic: env("KAFKA_TRANSFER_TOPIC", "token_transfer"),
		KafkaApprovalTopic: env("KAFKA_APPROVAL_TOPIC", "token_approval"),
		Log: logx.Options{
			Filename: env("LOG_FILE", ""),
			Level:    env("LOG_LEVEL", "info"),
		},
	}

	var err error
	if cfg.Strict, err = parseBool(env("LEDGER_STRICT", "false")); err != nil {
		return nil, fmt.Errorf("LEDGER_STRICT: %w", err)
	}
	if cfg.Log.MaxSizeMB, err = strconv.Atoi(env("LOG_FILE_MAX_SIZE_MB", "100")); err != nil {
		return nil, fmt.Errorf("LOG_FILE_MAX_SIZE_MB: %w", err)
	}
	if cfg.Log.MaxAgeDays, err = strconv.Atoi(env("LOG_FILE_MAX_AGE_DAYS", "28")); err != nil {
		return nil, fmt.Errorf("LOG_FILE_MAX_AGE_DAYS: %w", err)
	}

	if cfg.Genesis, err = loadGenesis(env); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	case StoreBolt:
		if c.BoltPath == "" {
			return errors.New("BOLT_PATH is required for the bolt store")
		}
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}

	if c.Genesis.Holder.IsNull() {
		return errors.New("INITIAL_HOLDER must be a non-null address")
	}
	if c.Genesis.Token.Decimals > models.MaxDecimals {
		return fmt.Errorf("token decimals %d exceed %d", c.Genesis.Token.Decimals, models.MaxDecimals)
	}
	return nil
}

// loadGenesis starts from the reference token, applies GENESIS_FILE and then
// individual TOKEN_* variables.
func loadGenesis(env func(string, string) string) (models.Genesis, error) {
	genesis := models.DefaultGenesis("")
	token := &genesis.Token

	if path := env("GENESIS_FILE", ""); path != "" {
		if err := applyGenesisFile(path, &genesis); err != nil {
			return genesis, err
		}
	}

	token.Name = env("TOKEN_NAME", token.Name)
	token.Symbol = env("TOKEN_SYMBOL", token.Symbol)
	if v := env("TOKEN_DECIMALS", ""); v != "" {
		d, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return genesis, fmt.Errorf("TOKEN_DECIMALS: %w", err)
		}
		token.Decimals = uint8(d)
	}
	if v := env("TOKEN_TOTAL_SUPPLY", ""); v != "" {
		supply, err := uint256.FromDecimal(v)
		if err != nil {
			return genesis, fmt.Errorf("TOKEN_TOTAL_SUPPLY: %w", err)
		}
		token.TotalSupply = supply
	}
	if v := env("INITIAL_HOLDER", ""); v != "" {
		holder, err := models.ParseAddress(v)
		if err != nil {
			return genesis, fmt.Errorf("INITIAL_HOLDER: %w", err)
		}
		genesis.Holder = holder
	}
	return genesis, nil
}

func applyGenesisFile(path string, genesis *models.Genesis) error {
	logx.Info("CONFIG", "Loading genesis from ", path)
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open genesis file: %w", err)
	}
	defer file.Close()

	var raw genesisFile
	if err := yaml.NewDecoder(file).Decode(&raw); err != nil {
		return fmt.Errorf("failed to decode genesis file: %w", err)
	}

	if raw.Token.Name != "" {
		genesis.Token.Name = raw.Token.Name
	}
	if raw.Token.Symbol != "" {
		genesis.Token.Symbol = raw.Token.Symbol
	}
	if raw.Token.Decimals != nil {
		genesis.Token.Decimals = *raw.Token.Decimals
	}
	if raw.Token.TotalSupply != "" {
		supply, err := uint256.FromDecimal(raw.Token.TotalSupply)
		if err != nil {
			return fmt.Errorf("genesis total_supply: %w", err)
		}
		genesis.Token.TotalSupply = supply
	}
	if raw.Holder != "" {
		holder, err := models.ParseAddress(raw.Holder)
		if err != nil {
			return fmt.Errorf("genesis holder: %w", err)
		}
		genesis.Holder = holder
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBool(s string) (bool, error) {
	return strconv.ParseBool(strings.ToLower(s))
}
