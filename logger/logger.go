// Package logger builds the structured application logger.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the logging surface used across the module.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	Sync() error
}

type options struct {
	name  string
	level string
	file  string
}

type Option func(*options)

func Name(name string) Option   { return func(o *options) { o.name = name } }
func Level(level string) Option { return func(o *options) { o.level = level } }

// File routes output to a rotated log file instead of stderr.
func File(path string) Option { return func(o *options) { o.file = path } }

func New(opts ...Option) (Logger, error) {
	o := options{name: "vocalize", level: "info"}
	for _, opt := range opts {
		opt(&o)
	}

	level, err := zapcore.ParseLevel(o.level)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var (
		sink    zapcore.WriteSyncer
		encoder zapcore.Encoder
	)
	if o.file != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   o.file,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		})
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		sink = zapcore.Lock(os.Stderr)
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, sink, zap.NewAtomicLevelAt(level))
	return zap.New(core).Named(o.name).Sugar(), nil
}

// Nop discards everything.
func Nop() Logger {
	return zap.NewNop().Sugar()
}
