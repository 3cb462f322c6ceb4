// Package logging constructs the production umebot.Logger backed by zap,
// with rotation handled by lumberjack. Grounded on the stack the
// iamprashant-voice-ai example pulls in for the same pair of concerns.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Eden-sudo/UMEBOT-Robotics-Project/internal/umebot"
)

// Options configures the production logger.
type Options struct {
	// FilePath, if non-empty, enables a rotating file core in addition to
	// the console core.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Debug      bool
}

// zapLogger adapts *zap.SugaredLogger to umebot.Logger. zap's own method
// names (Debugw/Infow/...) don't match the interface's (Debug/Info/...),
// so this is a one-line-per-method shim rather than a structural match.
type zapLogger struct {
	s *zap.SugaredLogger
}

var _ umebot.Logger = (*zapLogger)(nil)

func (z *zapLogger) Debug(msg string, args ...interface{}) { z.s.Debugw(msg, args...) }
func (z *zapLogger) Info(msg string, args ...interface{})  { z.s.Infow(msg, args...) }
func (z *zapLogger) Warn(msg string, args ...interface{})  { z.s.Warnw(msg, args...) }
func (z *zapLogger) Error(msg string, args ...interface{}) { z.s.Errorw(msg, args...) }

// New builds a umebot.Logger writing to stderr and, if configured, to a
// rotating log file.
func New(opts Options) (umebot.Logger, func() error, error) {
	level := zapcore.InfoLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(zapcore.AddSync(os.Stderr)), level),
	}

	if opts.FilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    orDefault(opts.MaxSizeMB, 50),
			MaxBackups: orDefault(opts.MaxBackups, 5),
			MaxAge:     orDefault(opts.MaxAgeDays, 28),
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotator), level))
	}

	core := zapcore.NewTee(cores...)
	zl := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))

	sync := func() error { return zl.Sync() }
	return &zapLogger{s: zl.Sugar()}, sync, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
