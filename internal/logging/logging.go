// Package logging builds the project's single zap logger. zap itself
// is only an indirect dependency of the teacher, pulled in through its
// docker/testcontainers transitives; this package is grounded instead
// on the icinga-go-library reference code's zapcore.NewCore setup
// (switching only the encoder between JSON and console), since that is
// the corpus's one example of a project wiring up its own zap logger
// rather than inheriting one from a framework.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures the root logger.
type Options struct {
	JSON  bool // --json-logs: structured JSON lines instead of a human-readable console encoding
	Debug bool // --debug: emit debug-level records
}

// New builds a SugaredLogger writing to stderr, so stdout carries only
// the progress bar that dump and migrate draw there (every summary,
// including import's and restore's, is a log record on stderr).
func New(opts Options) *zap.SugaredLogger {
	level := zapcore.InfoLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if opts.JSON {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	return zap.New(core).Sugar()
}
