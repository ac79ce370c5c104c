// Package logger builds the application's zap logger.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Encoding selects the log line format.
type Encoding string

const (
	EncodingConsole Encoding = "console"
	EncodingJSON    Encoding = "json"
)

// Options configures New.
type Options struct {
	Level         string
	Encoding      Encoding
	FilePath      string // Written in addition to stdout when set
	Development   bool
	InitialFields map[string]any
}

// New builds a logger writing to stdout and, if configured, a log file.
func New(opts ...func(*Options)) (*zap.Logger, error) {
	options := Options{
		Level:    "info",
		Encoding: EncodingJSON,
	}
	for _, opt := range opts {
		opt(&options)
	}

	lvl, err := zap.ParseAtomicLevel(options.Level)
	if err != nil {
		return nil, fmt.Errorf("parse level: %w", err)
	}

	outputs := []string{"stdout"}
	if options.FilePath != "" {
		outputs = append(outputs, options.FilePath)
	}

	conf := zap.Config{
		Level:       lvl,
		Development: options.Development,
		Encoding:    string(options.Encoding),
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:     "msg",
			LevelKey:       "level",
			TimeKey:        "ts",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
		InitialFields:    options.InitialFields,
	}

	log, err := conf.Build(zap.AddStacktrace(zap.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return log, nil
}

// MustNew is New that panics on error.
func MustNew(opts ...func(*Options)) *zap.Logger {
	log, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return log
}
