// Package config reads the configuration of a calibration run from a JSON file.
package config

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/camcal/calibration"
	"go.viam.com/camcal/logging"
)

// Config is the on-disk configuration of a calibration run.
type Config struct {
	ConfigFilePath string `json:"-"`

	Session calibration.Config `json:"session"`
	Log     LogConfig          `json:"log"`
	Debug   bool               `json:"debug"`
}

// LogConfig controls where logs go and at what level.
type LogConfig struct {
	// Level applies to the root logger; subloggers can be adjusted with Patterns.
	Level    string                        `json:"level"`
	Patterns []logging.LoggerPatternConfig `json:"patterns"`
	File     *logging.FileAppenderConfig   `json:"file"`
}

// Default returns a config with every setting at its default and no board.
func Default() *Config {
	return &Config{
		Session: calibration.DefaultConfig(calibration.BoardConfig{}),
		Log:     LogConfig{Level: "info"},
	}
}

// Validate ensures the config is usable. All log settings problems are reported together.
func (c *Config) Validate() error {
	if err := c.Session.Validate("session"); err != nil {
		return err
	}
	return c.Log.Validate("log")
}

// Validate checks the level, the patterns and the file appender.
func (lc *LogConfig) Validate(path string) error {
	var errs error
	if lc.Level != "" {
		if _, err := logging.LevelFromString(lc.Level); err != nil {
			errs = multierr.Append(errs, utils.NewConfigValidationError(path, err))
		}
	}
	for i, p := range lc.Patterns {
		if err := p.Validate(); err != nil {
			errs = multierr.Append(errs, utils.NewConfigValidationError(fmt.Sprintf("%s.patterns.%d", path, i), err))
		}
	}
	if lc.File != nil && lc.File.Path == "" {
		errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError(path+".file", "path"))
	}
	if lc.File != nil && lc.File.MaxSizeMB < 0 {
		errs = multierr.Append(errs,
			utils.NewConfigValidationError(path+".file", errors.New("max_size_mb cannot be negative")))
	}
	return errs
}
