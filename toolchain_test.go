package coderunner

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToolchainConfigValidateRejectsMissingCommand(t *testing.T) {
	t.Parallel()
	cfg := &ToolchainConfig{Overrides: []ToolchainOverride{{Language: "rust"}}}
	require.Error(t, cfg.Validate())
}

func TestToolchainConfigValidateRejectsDoubleDefault(t *testing.T) {
	t.Parallel()
	cfg := &ToolchainConfig{Overrides: []ToolchainOverride{
		{Language: "rust", Command: "rustc", Default: true},
		{Language: "rust", Command: "rust-script", Default: true},
	}}
	require.Error(t, cfg.Validate())
}

func TestToolchainConfigLookupReturnsDefault(t *testing.T) {
	t.Parallel()
	cfg := &ToolchainConfig{Overrides: []ToolchainOverride{
		{Language: "rust", Command: "rustc", Default: false},
		{Language: "rust", Command: "rust-script", Default: true},
	}}
	require.NoError(t, cfg.Validate())

	override, ok := cfg.Lookup("rust")
	require.True(t, ok)
	require.Equal(t, "rust-script", override.Command)

	_, ok = cfg.Lookup("python")
	require.False(t, ok)
}
