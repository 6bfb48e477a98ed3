package log

// Two-sink zap logging: everything goes to the file logger, success and error
// lines are echoed to the console. Loggers are no-ops until Init is called.

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures Init.
type Options struct {
	Dir      string // directory for app.log, "logs" when empty
	Level    string // debug, info, warn, error
	Console  bool   // echo success/error lines to stdout
	MaxBytes int64  // truncate app.log past this size, MaxLogFileSize when zero
}

var (
	mu            sync.RWMutex
	fileLogger    = zap.NewNop()
	consoleLogger = zap.NewNop()
	logFile       *rotatingLogWriter
)

// Init builds the file and console loggers. Call Sync before exit.
func Init(opts Options) error {
	dir := opts.Dir
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	level := zapcore.DebugLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
	}

	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = MaxLogFileSize
	}
	writer, err := openLogFile(filepath.Join(dir, "app.log"), maxBytes)
	if err != nil {
		return err
	}

	file := zap.New(zapcore.NewCore(newFileEncoder(), writer, level))

	console := zap.NewNop()
	if opts.Console {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = customLevelEncoder
		cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		cfg.EncoderConfig.EncodeCaller = nil
		cfg.Development = false
		cfg.DisableStacktrace = true
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		if console, err = cfg.Build(); err != nil {
			writer.Close()
			return fmt.Errorf("failed to build console logger: %w", err)
		}
	}

	mu.Lock()
	if logFile != nil {
		logFile.Close()
	}
	fileLogger, consoleLogger, logFile = file, console, writer
	mu.Unlock()
	return nil
}

// Sync flushes both loggers and closes the log file.
func Sync() {
	mu.Lock()
	defer mu.Unlock()

	_ = fileLogger.Sync()
	_ = consoleLogger.Sync()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	fileLogger, consoleLogger = zap.NewNop(), zap.NewNop()
}

// Logger returns the file logger, for libraries that want a *zap.Logger.
func Logger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return fileLogger
}

func loggers() (*zap.Logger, *zap.Logger) {
	mu.RLock()
	defer mu.RUnlock()
	return fileLogger, consoleLogger
}

// GenerateRequestID returns 8 random bytes, hex encoded.
func GenerateRequestID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// LogRequest records an outbound HTTP call (file only).
func LogRequest(requestID, method, endpoint string, fields ...zap.Field) {
	file, _ := loggers()
	file.Info("HTTP request", append([]zap.Field{
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("endpoint", endpoint),
	}, fields...)...)
}

// LogResponse records the result of an outbound call. Non-2xx responses are
// also printed on the console.
func LogResponse(requestID string, statusCode int, durationMs int64, fields ...zap.Field) {
	file, console := loggers()
	all := append([]zap.Field{
		zap.String("request_id", requestID),
		zap.Int("status_code", statusCode),
		zap.Int64("duration_ms", durationMs),
	}, fields...)

	if statusCode >= 200 && statusCode < 300 {
		file.Info("HTTP response", all...)
		return
	}
	file.Error("HTTP response", all...)
	if endpoint := fieldString(fields, "endpoint"); endpoint != "" {
		console.Error(fmt.Sprintf("✗ HTTP request failed [%d] %s", statusCode, endpoint))
	} else {
		console.Error(fmt.Sprintf("✗ HTTP request failed [%d]", statusCode))
	}
}

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorWhite  = "\033[37m"
)

// INFO on the console is only ever written by LogSuccess.
func customLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.DebugLevel:
		enc.AppendString(colorCyan + "DEBUG" + colorReset)
	case zapcore.InfoLevel:
		enc.AppendString(colorGreen + "SUCCESS" + colorReset)
	case zapcore.WarnLevel:
		enc.AppendString(colorYellow + "WARN" + colorReset)
	case zapcore.ErrorLevel, zapcore.FatalLevel, zapcore.PanicLevel:
		enc.AppendString(colorRed + level.CapitalString() + colorReset)
	default:
		enc.AppendString(colorWhite + level.String() + colorReset)
	}
}

func LogInfo(message string, fields ...zap.Field) {
	file, _ := loggers()
	file.Info(message, fields...)
}

// LogSuccess goes to the file and, prefixed with a check mark, to the console.
func LogSuccess(message string, fields ...zap.Field) {
	file, console := loggers()
	file.Info(message, fields...)
	console.Info(consoleLine("✓ ", message, fields))
}

// LogError goes to the file and, prefixed with a cross, to the console.
func LogError(message string, fields ...zap.Field) {
	file, console := loggers()
	file.Error(message, fields...)
	console.Error(consoleLine("✗ ", message, fields))
}

func LogWarn(message string, fields ...zap.Field) {
	file, _ := loggers()
	file.Warn(message, fields...)
}

func LogDebug(message string, fields ...zap.Field) {
	file, _ := loggers()
	file.Debug(message, fields...)
}

func consoleLine(prefix, message string, fields []zap.Field) string {
	for _, f := range fields {
		if f.Key == "duration_ms" && f.Type == zapcore.Int64Type && f.Integer > 0 {
			return fmt.Sprintf("%s%s (%dms)", prefix, message, f.Integer)
		}
	}
	return prefix + message
}

func fieldString(fields []zap.Field, key string) string {
	for _, f := range fields {
		if f.Key == key {
			return f.String
		}
	}
	return ""
}
