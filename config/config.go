// Package config loads the relayer settings from a JSON file with
// environment overrides and validates them once at startup.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ErrInvalidConfig is returned when the merged settings fail validation.
var ErrInvalidConfig = errors.New("invalid config")

type SourceChainConfig struct {
	Name            string `mapstructure:"name" validate:"required"`
	RPCURL          string `mapstructure:"rpc_url" validate:"required,url"`
	ContractAddress string `mapstructure:"contract_address" validate:"required,eth_addr"`
	EventName       string `mapstructure:"event_name" validate:"required"`
	StartBlock      uint64 `mapstructure:"start_block"`
}

type DestinationChainConfig struct {
	Name            string `mapstructure:"name" validate:"required"`
	RPCURL          string `mapstructure:"rpc_url" validate:"required,url"`
	ContractAddress string `mapstructure:"contract_address" validate:"required,eth_addr"`
	RelayerWallet   string `mapstructure:"relayer_wallet" validate:"required,eth_addr"`
	// Never read by the relayer. Signing happens outside this process.
	RelayerPrivateKey string `mapstructure:"relayer_private_key"`
}

type APIConfig struct {
	GasStationURL  string `mapstructure:"gas_station_url" validate:"required,url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"gt=0"`
	Retries        int    `mapstructure:"retries" validate:"gte=0"`
}

type RPCConfig struct {
	TimeoutSeconds           int     `mapstructure:"timeout_seconds" validate:"gt=0"`
	ConnectRetries           int     `mapstructure:"connect_retries" validate:"gt=0"`
	ConnectRetryDelaySeconds int     `mapstructure:"connect_retry_delay_seconds" validate:"gte=0"`
	RequestsPerSecond        float64 `mapstructure:"requests_per_second" validate:"gte=0"`
}

type RetryConfig struct {
	MaxAttempts int `mapstructure:"max_attempts" validate:"gte=0"`
}

type GasConfig struct {
	Limit uint64 `mapstructure:"limit" validate:"gt=0"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    string `mapstructure:"port" validate:"required_if=Enabled true"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name" validate:"required_with=URI"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
}

// Config is the validated, immutable settings value handed to every
// component constructor.
type Config struct {
	SourceChain          SourceChainConfig      `mapstructure:"source_chain"`
	DestinationChain     DestinationChainConfig `mapstructure:"destination_chain"`
	API                  APIConfig              `mapstructure:"api"`
	RunIntervalSeconds   int                    `mapstructure:"run_interval_seconds" validate:"gt=0"`
	BlockProcessingLimit uint64                 `mapstructure:"block_processing_limit" validate:"gt=0"`
	FaultBackoffSeconds  int                    `mapstructure:"fault_backoff_seconds" validate:"gtfield=RunIntervalSeconds"`
	RPC                  RPCConfig              `mapstructure:"rpc"`
	Retry                RetryConfig            `mapstructure:"retry"`
	Gas                  GasConfig              `mapstructure:"gas"`
	Log                  LogConfig              `mapstructure:"log"`
	Server               ServerConfig           `mapstructure:"server"`
	Database             DatabaseConfig         `mapstructure:"database"`
	Telemetry            TelemetryConfig        `mapstructure:"telemetry"`
}

func (c Config) RunInterval() time.Duration {
	return time.Duration(c.RunIntervalSeconds) * time.Second
}

func (c Config) FaultBackoff() time.Duration {
	return time.Duration(c.FaultBackoffSeconds) * time.Second
}

func (c RPCConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c RPCConfig) ConnectRetryDelay() time.Duration {
	return time.Duration(c.ConnectRetryDelaySeconds) * time.Second
}

func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source_chain.start_block", 0)
	v.SetDefault("source_chain.event_name", "TokensLocked")
	v.SetDefault("api.timeout_seconds", 10)
	v.SetDefault("api.retries", 0)
	v.SetDefault("run_interval_seconds", 30)
	v.SetDefault("block_processing_limit", 100)
	v.SetDefault("rpc.timeout_seconds", 10)
	v.SetDefault("rpc.connect_retries", 3)
	v.SetDefault("rpc.connect_retry_delay_seconds", 5)
	v.SetDefault("rpc.requests_per_second", 0)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("gas.limit", 200000)
	v.SetDefault("log.level", "info")
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", "8080")
	v.SetDefault("database.name", "ll-bridge-relayer")
	v.SetDefault("telemetry.service_name", "ll-bridge-relayer")
}

// Load reads the JSON file at path, applies CORE_ENGINE_ overrides found in
// environ (os.Environ format) and validates the result.
func Load(path string, environ []string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	ApplyEnvOverrides(v, environ)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.FaultBackoffSeconds == 0 {
		cfg.FaultBackoffSeconds = 2 * cfg.RunIntervalSeconds
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the struct tags of the whole tree.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
