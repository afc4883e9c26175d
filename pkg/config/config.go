// Copyright 2025 VRF Relay Worker Authors
//
// Package config loads the relay worker's YAML configuration file, with
// ${VAR_NAME} / ${VAR_NAME:-default} environment variable substitution
// applied before parsing.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vrfrelay/worker/pkg/evmclient"
	"github.com/vrfrelay/worker/pkg/vrftask"
)

// Duration wraps time.Duration for YAML unmarshaling from Go duration
// strings ("30s", "5m").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

// Config is the top-level relay worker configuration.
type Config struct {
	BandChain BandChainConfig `yaml:"band_chain"`
	EVMChain  EVMChainConfig  `yaml:"evm_chain"`
	Engine    EngineConfig    `yaml:"engine"`
	Store     StoreConfig     `yaml:"store"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// BandChainConfig configures the oracle-chain gRPC endpoint and request
// parameters.
type BandChainConfig struct {
	GRPCEndpoint string   `yaml:"grpc_endpoint"`
	MinCount     uint64   `yaml:"min_count"`
	AskCount     uint64   `yaml:"ask_count"`
	PrepareGas   uint64   `yaml:"prepare_gas"`
	ExecuteGas   uint64   `yaml:"execute_gas"`
	DSFeeLimit   uint64   `yaml:"ds_fee_limit"`
	GasLimit     uint64   `yaml:"gas_limit"`
	GasPrice     float64  `yaml:"gas_price"`
	SignerKey    string   `yaml:"signer_key"`
	TxTimeout    Duration `yaml:"tx_timeout"`
	ProofTimeout Duration `yaml:"proof_timeout"`
}

// EVMChainConfig configures the client-chain RPC endpoint, contracts, and
// worker signing key.
type EVMChainConfig struct {
	RPCEndpoint        string   `yaml:"rpc_endpoint"`
	ChainID            int64    `yaml:"chain_id"`
	PrivateKey         string   `yaml:"private_key"`
	VRFProviderAddr    string   `yaml:"vrf_provider_address"`
	VRFLensAddr        string   `yaml:"vrf_lens_address"`
	BridgeAddr         string   `yaml:"bridge_address"`
	WhitelistedCallers []string `yaml:"whitelisted_callers"`
	EIP1559            bool     `yaml:"eip1559"`
}

// EngineConfig configures the pipeline engine's pacing and retry policy.
type EngineConfig struct {
	PollInterval      Duration `yaml:"poll_rate"`
	QueueCapacity     int      `yaml:"queue_capacity"`
	MaxRetries        int      `yaml:"max_retries"`
	ReorgInterval     Duration `yaml:"reorg_interval"`
	BlockDifference   uint64   `yaml:"block_difference"`
	StartNonce        uint64   `yaml:"start_nonce"`
	StartupNonceCheck uint64   `yaml:"startup_nonce_check"`
}

// StoreConfig selects and configures the task store backend.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "memory" or "postgres"
	DSN    string `yaml:"dsn"`
}

// MetricsConfig configures the Prometheus exposition endpoint.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// LoggingConfig configures the zerolog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultValue := ""
		if len(groups) >= 4 {
			defaultValue = groups[3]
		}
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// Load reads path, substitutes ${VAR} references against the process
// environment, parses the result as YAML, applies defaults, and validates
// required fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read config file %s: %v", vrftask.ErrConfig, path, err)
	}

	expanded := substituteEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse config file %s: %v", vrftask.ErrConfig, path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.BandChain.MinCount == 0 {
		c.BandChain.MinCount = 2
	}
	if c.BandChain.AskCount == 0 {
		c.BandChain.AskCount = 3
	}
	if c.BandChain.PrepareGas == 0 {
		c.BandChain.PrepareGas = 100000
	}
	if c.BandChain.ExecuteGas == 0 {
		c.BandChain.ExecuteGas = 400000
	}
	if c.BandChain.DSFeeLimit == 0 {
		c.BandChain.DSFeeLimit = 48
	}
	if c.BandChain.GasLimit == 0 {
		c.BandChain.GasLimit = 800000
	}
	if c.BandChain.GasPrice == 0 {
		c.BandChain.GasPrice = 0.0025
	}
	if c.BandChain.TxTimeout == 0 {
		c.BandChain.TxTimeout = Duration(30 * time.Second)
	}
	if c.BandChain.ProofTimeout == 0 {
		c.BandChain.ProofTimeout = Duration(60 * time.Second)
	}
	if c.Engine.PollInterval == 0 {
		c.Engine.PollInterval = Duration(5 * time.Second)
	}
	if c.Engine.QueueCapacity == 0 {
		c.Engine.QueueCapacity = 10000
	}
	if c.Engine.MaxRetries == 0 {
		c.Engine.MaxRetries = 3
	}
	if c.Engine.ReorgInterval == 0 {
		c.Engine.ReorgInterval = Duration(15 * time.Second)
	}
	if c.Engine.BlockDifference == 0 {
		c.Engine.BlockDifference = 10
	}
	if c.Engine.StartupNonceCheck == 0 {
		c.Engine.StartupNonceCheck = 100
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":9464"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) validate() error {
	var missing []string
	if c.BandChain.GRPCEndpoint == "" {
		missing = append(missing, "band_chain.grpc_endpoint")
	}
	if c.BandChain.SignerKey == "" {
		missing = append(missing, "band_chain.signer_key")
	}
	if c.EVMChain.RPCEndpoint == "" {
		missing = append(missing, "evm_chain.rpc_endpoint")
	}
	if c.EVMChain.PrivateKey == "" {
		missing = append(missing, "evm_chain.private_key")
	}
	if c.EVMChain.VRFProviderAddr == "" {
		missing = append(missing, "evm_chain.vrf_provider_address")
	}
	if c.EVMChain.VRFLensAddr == "" {
		missing = append(missing, "evm_chain.vrf_lens_address")
	}
	if c.EVMChain.BridgeAddr == "" {
		missing = append(missing, "evm_chain.bridge_address")
	}
	if c.Store.Driver == "postgres" && c.Store.DSN == "" {
		missing = append(missing, "store.dsn")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required fields: %v", vrftask.ErrConfig, missing)
	}
	return nil
}

// GasStrategy derives an evmclient.GasStrategy from the loaded config.
func (c *Config) GasStrategy() evmclient.GasStrategy {
	return evmclient.GasStrategy{EIP1559: c.EVMChain.EIP1559}
}
