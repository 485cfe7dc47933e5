package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"stealth-swap/pkg/types"
)

// Config holds the application configuration
type Config struct {
	Catalog     CatalogConfig         `mapstructure:"catalog"`
	Networks    map[string]EVMNetwork `mapstructure:"networks"`
	Wallet      WalletConfig          `mapstructure:"wallet"`
	Executor    ExecutorConfig        `mapstructure:"executor"`
	Vault       VaultConfig           `mapstructure:"vault"`
	Server      ServerConfig          `mapstructure:"server"`
	Logger      LoggerConfig          `mapstructure:"logger"`
	HistoryPath string                `mapstructure:"history_path"`
	AutoConfirm bool                  `mapstructure:"auto_confirm"`
}

// CatalogConfig lists the chains and tokens offered to the user, in order
type CatalogConfig struct {
	Chains []types.Chain `mapstructure:"chains"`
	Tokens []types.Token `mapstructure:"tokens"`
}

// EVMNetwork holds connection settings for one chain of the catalog
type EVMNetwork struct {
	RPCUrl   string  `mapstructure:"rpc_url"`
	ChainID  int64   `mapstructure:"chain_id"`
	GasLimit *uint64 `mapstructure:"gas_limit"`
	GasPrice *int64  `mapstructure:"gas_price"`
}

// WalletConfig configures the local EVM account used as the connected wallet
type WalletConfig struct {
	PrivateKey   string        `mapstructure:"private_key"`
	DefaultChain string        `mapstructure:"default_chain"`
	BalanceTTL   time.Duration `mapstructure:"balance_ttl"`
}

// ExecutorConfig configures the 1Click swap executor
type ExecutorConfig struct {
	JWTToken          string            `mapstructure:"jwt_token"`
	Deadline          time.Duration     `mapstructure:"deadline"`
	AutoDeposit       bool              `mapstructure:"auto_deposit"`
	Blockchains       map[string]string `mapstructure:"blockchains"`
	BridgeFeePercent  string            `mapstructure:"bridge_fee_percent"`
	EstimatedDuration string            `mapstructure:"estimated_duration"`
}

// VaultConfig holds the vault deployment parameters
type VaultConfig struct {
	Network      string `mapstructure:"network"`
	FeeCollector string `mapstructure:"fee_collector"`
	ProtocolFee  uint64 `mapstructure:"protocol_fee"`
	Artifact     string `mapstructure:"artifact"`
	Output       string `mapstructure:"output"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

var globalConfig *Config

// DefaultChains is the catalog shipped when none is configured
var DefaultChains = []types.Chain{
	{ID: "ethereum", Name: "Ethereum", Symbol: "ETH", Icon: "🟦"},
	{ID: "polygon", Name: "Polygon", Symbol: "MATIC", Icon: "🟣"},
	{ID: "arbitrum", Name: "Arbitrum", Symbol: "ARB", Icon: "🔵"},
	{ID: "optimism", Name: "Optimism", Symbol: "OP", Icon: "🔴"},
	{ID: "bsc", Name: "BSC", Symbol: "BNB", Icon: "🟡"},
}

// DefaultTokens is the token list shipped when none is configured
var DefaultTokens = []types.Token{
	{ID: "eth", Symbol: "ETH", Name: "Ethereum", Icon: "🟦", Balance: "1.2345", Decimals: 18},
	{ID: "usdc", Symbol: "USDC", Name: "USD Coin", Icon: "🔵", Balance: "1,234.56", Decimals: 6,
		Contracts: map[string]string{"ethereum": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"}},
	{ID: "usdt", Symbol: "USDT", Name: "Tether", Icon: "🟢", Balance: "567.89", Decimals: 6,
		Contracts: map[string]string{"ethereum": "0xdAC17F958D2ee523a2206206994597C13D831ec7"}},
	{ID: "dai", Symbol: "DAI", Name: "Dai Stablecoin", Icon: "🟡", Balance: "234.56", Decimals: 18,
		Contracts: map[string]string{"ethereum": "0x6B175474E89094C44Da98b954EedeAC495271d0F"}},
	{ID: "wbtc", Symbol: "WBTC", Name: "Wrapped Bitcoin", Icon: "🟠", Balance: "0.1234", Decimals: 8,
		Contracts: map[string]string{"ethereum": "0x2260FAC5E5542a773Aa44fBCbeDF7C193bc2C599"}},
}

// New returns a viper instance with every default registered
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("history_path", "")
	v.SetDefault("auto_confirm", false)

	// Keys read only from the environment still need a default to be unmarshalled
	v.SetDefault("wallet.private_key", "")
	v.SetDefault("executor.jwt_token", "")

	v.SetDefault("wallet.default_chain", "ethereum")
	v.SetDefault("wallet.balance_ttl", "30s")

	v.SetDefault("networks", map[string]interface{}{
		"ethereum": map[string]interface{}{"rpc_url": "https://eth.llamarpc.com", "chain_id": 1},
		"polygon":  map[string]interface{}{"rpc_url": "https://polygon-rpc.com", "chain_id": 137},
		"arbitrum": map[string]interface{}{"rpc_url": "https://arb1.arbitrum.io/rpc", "chain_id": 42161},
		"optimism": map[string]interface{}{"rpc_url": "https://mainnet.optimism.io", "chain_id": 10},
		"bsc":      map[string]interface{}{"rpc_url": "https://bsc-dataseed.binance.org", "chain_id": 56},
		"sepolia":  map[string]interface{}{"rpc_url": "https://rpc.sepolia.org", "chain_id": 11155111},
	})

	v.SetDefault("executor.deadline", "24h")
	v.SetDefault("executor.auto_deposit", false)
	v.SetDefault("executor.bridge_fee_percent", "0.1")
	v.SetDefault("executor.estimated_duration", "~3-5 minutes")
	v.SetDefault("executor.blockchains", map[string]string{
		"ethereum": "eth",
		"polygon":  "pol",
		"arbitrum": "arb",
		"optimism": "op",
		"bsc":      "bsc",
	})

	v.SetDefault("vault.network", "sepolia")
	v.SetDefault("vault.fee_collector", "0x0000000000000000000000000000000000000000")
	v.SetDefault("vault.protocol_fee", 30)
	v.SetDefault("vault.artifact", "artifacts/contracts/StealthSwapVault.sol/StealthSwapVault.json")
	v.SetDefault("vault.output", "deployment-info.json")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.session_ttl", "30m")
	v.SetDefault("server.cleanup_interval", "5m")
	v.SetDefault("server.shutdown_timeout", "5s")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "console")

	v.SetEnvPrefix("STEALTH_SWAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	v := New()
	v.SetConfigName(".stealth-swap")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME")
	v.AddConfigPath(".")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg, err := Decode(v)
	if err != nil {
		return nil, err
	}

	globalConfig = cfg
	return cfg, nil
}

// Decode unmarshals a viper instance into a validated Config
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(cfg.Catalog.Chains) == 0 {
		cfg.Catalog.Chains = append([]types.Chain(nil), DefaultChains...)
	}
	if len(cfg.Catalog.Tokens) == 0 {
		cfg.Catalog.Tokens = append([]types.Token(nil), DefaultTokens...)
	}
	for i := range cfg.Catalog.Tokens {
		if cfg.Catalog.Tokens[i].Decimals == 0 {
			cfg.Catalog.Tokens[i].Decimals = 18
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the catalog for duplicate or empty identifiers
func (c *Config) Validate() error {
	seen := make(map[string]bool)
	for _, ch := range c.Catalog.Chains {
		if ch.ID == "" {
			return fmt.Errorf("catalog chain %q has no id", ch.Name)
		}
		if seen[ch.ID] {
			return fmt.Errorf("duplicate catalog chain id %q", ch.ID)
		}
		seen[ch.ID] = true
	}

	seen = make(map[string]bool)
	for _, t := range c.Catalog.Tokens {
		if t.ID == "" {
			return fmt.Errorf("catalog token %q has no id", t.Symbol)
		}
		if seen[t.ID] {
			return fmt.Errorf("duplicate catalog token id %q", t.ID)
		}
		seen[t.ID] = true
	}

	if c.Vault.ProtocolFee > 10000 {
		return fmt.Errorf("vault protocol fee %d exceeds 10000 basis points", c.Vault.ProtocolFee)
	}
	return nil
}

// RequireExecutor checks the settings needed to submit swaps
func (c *Config) RequireExecutor() error {
	if c.Executor.JWTToken == "" {
		return fmt.Errorf("JWT token not found. Please set STEALTH_SWAP_EXECUTOR_JWT_TOKEN environment variable or add executor.jwt_token to .stealth-swap.yaml")
	}
	return nil
}

// Network returns the connection settings for a chain
func (c *Config) Network(chainID string) (EVMNetwork, error) {
	n, ok := c.Networks[chainID]
	if !ok || n.RPCUrl == "" {
		return EVMNetwork{}, fmt.Errorf("network %s not configured", chainID)
	}
	return n, nil
}

// Get returns the global configuration, loading it on first use
func Get() (*Config, error) {
	if globalConfig == nil {
		return Load()
	}
	return globalConfig, nil
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}
