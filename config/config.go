package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/solvernet/intentd/core"
)

// TLSConfig holds PEM paths for mutual-TLS on the RPC listener.
type TLSConfig struct {
	CACert   string `yaml:"ca_cert" env:"INTENTD_TLS_CA_CERT"`
	NodeCert string `yaml:"node_cert" env:"INTENTD_TLS_NODE_CERT"`
	NodeKey  string `yaml:"node_key" env:"INTENTD_TLS_NODE_KEY"`
}

// GenesisConfig describes the ledger's initial balances. Applied exactly
// once per data directory; account → token id → decimal amount.
type GenesisConfig struct {
	Alloc map[string]map[string]string `yaml:"alloc"`
}

// Config holds all node configuration. Values load from a YAML file and
// may be overridden by INTENTD_* environment variables.
type Config struct {
	DataDir    string `yaml:"data_dir" env:"INTENTD_DATA_DIR"`
	ListenAddr string `yaml:"listen_addr" env:"INTENTD_LISTEN_ADDR"`
	// AuthToken, when set, is required as "Authorization: Bearer <token>"
	// on every RPC request.
	AuthToken string `yaml:"auth_token" env:"INTENTD_AUTH_TOKEN"`

	// VerifyingContract is this deployment's identity. Payloads naming a
	// different verifying contract are rejected.
	VerifyingContract  string `yaml:"verifying_contract" env:"INTENTD_VERIFYING_CONTRACT"`
	WrappedNativeToken string `yaml:"wrapped_native_token" env:"INTENTD_WRAPPED_NATIVE_TOKEN"`
	FeePips            uint32 `yaml:"fee_pips" env:"INTENTD_FEE_PIPS"`
	FeeCollector       string `yaml:"fee_collector" env:"INTENTD_FEE_COLLECTOR"`

	TLS     *TLSConfig    `yaml:"tls"`
	Genesis GenesisConfig `yaml:"genesis"`
}

// DefaultConfig returns a single-node development configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir:            "./data",
		ListenAddr:         "127.0.0.1:8545",
		VerifyingContract:  "intents.dev",
		WrappedNativeToken: "ft:wrap.native",
		FeePips:            0,
		FeeCollector:       "fees.intents.dev",
	}
}

// Load reads a YAML config file from path and applies environment
// overrides. An empty path loads defaults plus environment only.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that YAML decoding cannot.
func (c *Config) Validate() error {
	if c.VerifyingContract == "" {
		return fmt.Errorf("verifying_contract is required")
	}
	if !core.Pips(c.FeePips).Valid() {
		return fmt.Errorf("fee_pips %d exceeds %d", c.FeePips, core.MaxPips)
	}
	if c.FeePips > 0 && c.FeeCollector == "" {
		return fmt.Errorf("fee_collector is required when fee_pips is set")
	}
	if _, err := c.WrappedToken(); err != nil {
		return err
	}
	for account, tokens := range c.Genesis.Alloc {
		if account == "" {
			return fmt.Errorf("genesis alloc: empty account")
		}
		for token, amount := range tokens {
			if _, err := core.ParseTokenID(token); err != nil {
				return fmt.Errorf("genesis alloc %s: %w", account, err)
			}
			if _, err := core.ParseUint128(amount); err != nil {
				return fmt.Errorf("genesis alloc %s %s: %w", account, token, err)
			}
		}
	}
	return nil
}

// FeeRate returns the protocol fee as typed pips.
func (c *Config) FeeRate() core.Pips {
	return core.Pips(c.FeePips)
}

// WrappedToken parses the configured wrapped native token id.
func (c *Config) WrappedToken() (core.TokenID, error) {
	token, err := core.ParseTokenID(c.WrappedNativeToken)
	if err != nil {
		return core.TokenID{}, fmt.Errorf("wrapped_native_token: %w", err)
	}
	return token, nil
}

// Save writes the config to path as YAML.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
