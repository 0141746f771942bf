// Package logging builds the engine's zap logger and scrubs secrets from
// anything that reaches it.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New creates the root logger for the given environment. Local development
// gets the human-readable console encoder; everything else logs JSON.
func New(env string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "local" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
