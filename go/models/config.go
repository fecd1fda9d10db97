package models

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Color     bool
	LogLevel  string
	Name      string
	Output    io.WriteCloser
	Prompt    string
	TraceFile string
	Verbose   bool
}

func NewConfig() *Config {
	return &Config{
		LogLevel: "info",
		Name:     "R1",
		Output:   os.Stderr,
		Prompt:   "> ",
	}
}

// Logger builds the zap logger described by the config. Verbose forces debug.
func (c *Config) Logger() (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if c.LogLevel != "" {
		if err := level.Set(c.LogLevel); err != nil {
			return nil, err
		}
	}
	if c.Verbose {
		level = zapcore.DebugLevel
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = !c.Verbose
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if c.Color {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return cfg.Build()
}
