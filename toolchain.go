package coderunner

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ToolchainOverride lets an operator replace the default command used to
// run a given language: a slice of per-item config validated
// individually, plus one hand-written cross-item invariant.
type ToolchainOverride struct {
	Language string   `yaml:"language" validate:"required"`
	Command  string   `yaml:"command" validate:"required"`
	Args     []string `yaml:"args,omitempty"`
	Default  bool     `yaml:"default,omitempty"`
}

// ToolchainConfig is the validated set of overrides loaded from config.
type ToolchainConfig struct {
	Overrides []ToolchainOverride `yaml:"toolchains,omitempty" validate:"dive"`
}

// Validate mirrors NodeInfo.Validate: struct-tag validation plus the
// "at most one default per language" invariant (the counterpart of "at
// most one ContactInfo may be primary").
func (c *ToolchainConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	defaults := map[string]bool{}
	for _, o := range c.Overrides {
		if !o.Default {
			continue
		}
		if defaults[o.Language] {
			return fmt.Errorf("language %s: %w", o.Language, errors.New("only one toolchain override may be marked default"))
		}
		defaults[o.Language] = true
	}
	return nil
}

// Lookup returns the override for language marked default, if any.
func (c *ToolchainConfig) Lookup(language string) (ToolchainOverride, bool) {
	for _, o := range c.Overrides {
		if o.Language == language && o.Default {
			return o, true
		}
	}
	return ToolchainOverride{}, false
}
