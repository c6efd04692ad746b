// Package observability provides the process-wide CLI logger.
package observability

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is the logger all commands write through. It is never nil:
// the package default is a console logger at info level, and
// InitCLILogger replaces it once configuration has been read.
var CLILogger = newCLILogger(zapcore.InfoLevel, false)

// InitCLILogger configures CLILogger with the given level and profile.
//
// level is one of debug, info, warn, error; unrecognized values fall
// back to info. structured selects JSON lines on stderr; the console
// profile prints bare messages with fields appended.
func InitCLILogger(level string, structured bool) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	CLILogger = newCLILogger(lvl, structured)
}

func newCLILogger(lvl zapcore.Level, structured bool) *zap.Logger {
	var enc zapcore.Encoder
	if structured {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "ts"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(cfg)
	} else {
		// Message-first console output: no timestamps, levels, or caller
		// noise in front of prompt and diagnostic lines.
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.TimeKey = zapcore.OmitKey
		cfg.LevelKey = zapcore.OmitKey
		cfg.CallerKey = zapcore.OmitKey
		enc = zapcore.NewConsoleEncoder(cfg)
	}
	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), lvl)
	return zap.New(core)
}
