package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const consoleOutput = "stderr"

// InitLog builds the console logger. Logs go to stderr so that a report
// written to stdout stays clean.
func InitLog(lvl zap.AtomicLevel) *zap.Logger {
	plain, err := NewLogger(lvl, "")
	if err != nil {
		panic(err)
	}
	return plain
}

// NewLogger builds a logger sharing lvl. An empty path logs to the console,
// any other path is opened for appending and receives JSON lines. Internal
// logger errors always reach stderr.
func NewLogger(lvl zap.AtomicLevel, path string) (*zap.Logger, error) {
	loggerCfg := &zap.Config{
		Level:            lvl,
		Encoding:         "console",
		EncoderConfig:    encoderConfig(),
		OutputPaths:      []string{consoleOutput},
		ErrorOutputPaths: []string{consoleOutput},
	}
	if path != "" && path != consoleOutput {
		loggerCfg.Encoding = "json"
		loggerCfg.OutputPaths = []string{path}
	}

	return loggerCfg.Build(zap.AddStacktrace(zap.DPanicLevel))
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "severity",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.RFC3339TimeEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// SetLevel changes the level of a logger built by InitLog or NewLogger.
func SetLevel(lvl zap.AtomicLevel, name string) error {
	parsed, err := zapcore.ParseLevel(name)
	if err != nil {
		return err
	}
	lvl.SetLevel(parsed)
	return nil
}
