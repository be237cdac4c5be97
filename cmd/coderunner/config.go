package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nostrlang/coderunner"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

var appName = "coderunner"

var validate = validator.New()

// Config is loaded from the YAML file (global).
type Config struct {
	KeyStorePath            string                     `yaml:"key_store_path"`
	LogLevel                string                     `yaml:"log_level"`
	RelayURLs               []string                   `yaml:"relay_urls" validate:"required,min=1,dive,url"`
	WorkspaceRoot           string                     `yaml:"workspace_root"`
	MaxConcurrentExecutions int64                      `yaml:"max_concurrent_executions"`
	ExecutionTimeoutSeconds int                        `yaml:"execution_timeout_seconds"`
	Toolchains              coderunner.ToolchainConfig `yaml:",inline"`
}

func (c *Config) validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if err := c.Toolchains.Validate(); err != nil {
		return fmt.Errorf("validating toolchains: %w", err)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.WorkspaceRoot == "" {
		c.WorkspaceRoot = coderunner.WorkspaceRoot
	}
	if c.MaxConcurrentExecutions == 0 {
		c.MaxConcurrentExecutions = 16
	}
	if c.ExecutionTimeoutSeconds == 0 {
		c.ExecutionTimeoutSeconds = 30
	}
}

func (c *Config) executionTimeout() time.Duration {
	return time.Duration(c.ExecutionTimeoutSeconds) * time.Second
}

func loadConfig(c *cli.Context) (*Config, error) {
	var (
		configFile string
		err        error
	)

	if c.IsSet("config") {
		configFile = c.String("config")
	} else if configFile, err = defaultConfigPath(); err != nil {
		return nil, err
	}

	b, err := os.ReadFile(configFile)
	if err != nil {
		return nil, err
	}

	decoder := yaml.NewDecoder(bytes.NewReader(b))
	decoder.KnownFields(true)

	cfg := &Config{}
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config file: %w", err)
	}

	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.KeyStorePath == "" {
		path, err := defaultKeyPath()
		if err != nil {
			return nil, err
		}
		cfg.KeyStorePath = path
	}

	return cfg, nil
}

func defaultConfigPath() (string, error) {
	return configDirFilePath("config.yaml")
}

func configDirFilePath(filename string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName, filename), nil
}
