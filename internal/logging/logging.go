// Package logging builds the zap loggers used by every binary.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON logger for env "production" and a console logger
// otherwise. verbose lowers the level to debug. Output goes to stderr.
func New(env string, verbose bool) (*zap.Logger, error) {
	return build(env, verbose, nil)
}

// NewFile is New writing to path instead of stderr, for the terminal UI
// which owns the screen.
func NewFile(path string, verbose bool) (*zap.Logger, error) {
	return build("production", verbose, []string{path})
}

func build(env string, verbose bool, outputs []string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if outputs != nil {
		cfg.OutputPaths = outputs
		cfg.ErrorOutputPaths = outputs
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
