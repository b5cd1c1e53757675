// Package logging defines the small leveled-logger surface the sampling
// packages write to, plus a zap-backed constructor for the CLI.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the subset of logging that sampling code needs. It is satisfied
// by *zap.SugaredLogger, which is what the CLI supplies.
type Logger interface {
	Info(args ...interface{})
	Warn(args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

// New builds a console logger. With verbose true the level drops to debug.
func New(verbose bool) *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	lg, err := cfg.Build()
	if err != nil {
		// Config above is static, so this only fires on a zap regression
		return zap.NewNop().Sugar()
	}
	return lg.Sugar()
}

// Nop returns a logger that discards everything.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// Capture is an in-memory Logger for tests.
type Capture struct {
	Infos []string
	Warns []string
}

// Info records an info message
func (c *Capture) Info(args ...interface{}) {
	c.Infos = append(c.Infos, fmt.Sprint(args...))
}

// Warn records a warning message
func (c *Capture) Warn(args ...interface{}) {
	c.Warns = append(c.Warns, fmt.Sprint(args...))
}

// Infof records a formatted info message
func (c *Capture) Infof(template string, args ...interface{}) {
	c.Infos = append(c.Infos, fmt.Sprintf(template, args...))
}

// Warnf records a formatted warning message
func (c *Capture) Warnf(template string, args ...interface{}) {
	c.Warns = append(c.Warns, fmt.Sprintf(template, args...))
}
