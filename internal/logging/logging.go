// Package logging builds the process logger. Its level lives in a
// zap.AtomicLevel shared with the job server, which can change it at runtime.
package logging

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var ErrUnknownFormat = errors.New("unknown log format")

// ParseLevel reads a level name such as "debug" or "WARN". Empty means info.
func ParseLevel(name string) (zap.AtomicLevel, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return zap.NewAtomicLevelAt(zapcore.InfoLevel), nil
	}
	return zap.ParseAtomicLevel(name)
}

// New builds a logger on level. format "json" selects the production
// encoder, "console" or empty the human-readable development one.
func New(level zap.AtomicLevel, format string) (*zap.Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		cfg = zap.NewProductionConfig()
	case "", "console":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownFormat, format)
	}
	cfg.Level = level
	return cfg.Build()
}
