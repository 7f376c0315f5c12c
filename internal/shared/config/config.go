package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig
	Blockchain BlockchainConfig
	Arbitrage  ArbitrageConfig
}

type ServerConfig struct {
	Address         string        `yaml:"address"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type BlockchainConfig struct {
	EthereumRPCURL     string `yaml:"ethereum_rpc_url"`
	WebsocketRPCURL    string `yaml:"websocket_rpc_url"`
	ChainID            int64  `yaml:"chain_id"`
	ConnectionPoolSize int    `yaml:"connection_pool_size"`

	// PrivateKey/SigningKey/BotAddress are populated from the environment
	// only (never from YAML) and are never logged.
	PrivateKey  string `yaml:"-"`
	SigningKey  string `yaml:"-"`
	BotAddress  string `yaml:"-"`
}

// ArbitrageConfig configures the triangular-path strategy loop (C8) and its
// supporting components (C2-C7).
type ArbitrageConfig struct {
	FactoryAddresses     []string `yaml:"factory_addresses"`
	RouterAddresses      []string `yaml:"router_addresses"`
	FactoryDeployBlocks  []uint64 `yaml:"factory_deploy_blocks"`

	BaseTokenAddress  string `yaml:"base_token_address"`
	BaseTokenDecimals uint8  `yaml:"base_token_decimals"`
	QuoteTokenDecimals uint8 `yaml:"quote_token_decimals"`

	// ReferencePoolAddress is a base/quote pool used to price gas cost in
	// base-token units (spec.md §4.8's gas-cost conversion).
	ReferencePoolAddress string `yaml:"reference_pool_address"`
	// ReferencePoolBaseIsToken0 says whether the reference pool's token0
	// is the base token (otherwise token1 is assumed).
	ReferencePoolBaseIsToken0 bool `yaml:"reference_pool_base_is_token0"`

	BlacklistTokens []string `yaml:"blacklist_tokens"`

	// PoolListPath points at a YAML file enumerating the pool universe to
	// scan (see internal/core/pool.LoadList). Discovering pools from
	// factory logs is out of scope; this repository consumes a list
	// produced by an external indexer or one-off script.
	PoolListPath string `yaml:"pool_list_path"`

	EstimatedGasUnits     int64 `yaml:"estimated_gas_units"`
	InitialFetchBatchSize int   `yaml:"initial_fetch_batch_size"`
	EventChannelCapacity  int   `yaml:"event_channel_capacity"`

	OptimizeMaxAmountIn string `yaml:"optimize_max_amount_in"` // decimal string, whole base-token units
	OptimizeStep        int64  `yaml:"optimize_step"`

	EnablePendingTxStream bool `yaml:"enable_pending_tx_stream"`
}

// BlacklistAddresses parses BlacklistTokens into common.Address values,
// skipping any entry that does not parse as a hex address.
func (a ArbitrageConfig) BlacklistAddresses() []common.Address {
	out := make([]common.Address, 0, len(a.BlacklistTokens))
	for _, t := range a.BlacklistTokens {
		t = strings.TrimSpace(t)
		if t == "" || !common.IsHexAddress(t) {
			continue
		}
		out = append(out, common.HexToAddress(t))
	}
	return out
}

func LoadConfig(configPath string) (*Config, error) {
	config := getDefaultConfig()

	if configPath != "" {
		if err := loadFromYAML(configPath, config); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	rpcURL := os.Getenv("ETHEREUM_RPC_URL")
	if rpcURL == "" {
		rpcURL = os.Getenv("HTTPS_URL")
	}
	if rpcURL == "" {
		return nil, fmt.Errorf("ETHEREUM_RPC_URL or HTTPS_URL environment variable is required")
	}
	config.Blockchain.EthereumRPCURL = rpcURL

	return config, nil
}

// LoadArbitrageEnv populates the secrets and endpoints the arbitrageur
// entrypoint requires that LoadConfig intentionally leaves to the
// environment: HTTPS_URL, WSS_URL, CHAIN_ID, PRIVATE_KEY, SIGNING_KEY, and
// BOT_ADDRESS. Every one of these is fatal-if-missing, mirroring the
// original implementation's Env::new() panic-on-missing-var behavior.
func LoadArbitrageEnv(config *Config) error {
	httpsURL := os.Getenv("HTTPS_URL")
	if httpsURL == "" {
		httpsURL = config.Blockchain.EthereumRPCURL
	}
	if httpsURL == "" {
		return fmt.Errorf("HTTPS_URL environment variable is required")
	}
	config.Blockchain.EthereumRPCURL = httpsURL

	wssURL := os.Getenv("WSS_URL")
	if wssURL == "" {
		return fmt.Errorf("WSS_URL environment variable is required")
	}
	config.Blockchain.WebsocketRPCURL = wssURL

	chainIDStr := os.Getenv("CHAIN_ID")
	if chainIDStr == "" {
		return fmt.Errorf("CHAIN_ID environment variable is required")
	}
	var chainID int64
	if _, err := fmt.Sscanf(chainIDStr, "%d", &chainID); err != nil {
		return fmt.Errorf("invalid CHAIN_ID %q: %w", chainIDStr, err)
	}
	config.Blockchain.ChainID = chainID

	privateKey := os.Getenv("PRIVATE_KEY")
	if privateKey == "" {
		return fmt.Errorf("PRIVATE_KEY environment variable is required")
	}
	config.Blockchain.PrivateKey = privateKey

	signingKey := os.Getenv("SIGNING_KEY")
	if signingKey == "" {
		return fmt.Errorf("SIGNING_KEY environment variable is required")
	}
	config.Blockchain.SigningKey = signingKey

	botAddress := os.Getenv("BOT_ADDRESS")
	if botAddress == "" {
		return fmt.Errorf("BOT_ADDRESS environment variable is required")
	}
	config.Blockchain.BotAddress = botAddress

	return nil
}

func loadFromYAML(configPath string, config *Config) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, config)
}

func getDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":1337",
			ShutdownTimeout: 30 * time.Second,
		},
		Blockchain: BlockchainConfig{
			ConnectionPoolSize: 5,
		},
		Arbitrage: ArbitrageConfig{
			QuoteTokenDecimals:    18,
			BaseTokenDecimals:     18,
			EstimatedGasUnits:     550_000,
			InitialFetchBatchSize: 250,
			EventChannelCapacity:  512,
			OptimizeStep:          10,
			OptimizeMaxAmountIn:   "1000",
		},
	}
}
