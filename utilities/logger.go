package utilities

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"cataid-backend/internal/config"
)

// Log levels, lowest first.
const (
	LevelDebug = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	debugLog = log.New(os.Stderr, "DEBUG: ", log.Ldate|log.Ltime)
	infoLog  = log.New(os.Stderr, "INFO: ", log.Ldate|log.Ltime)
	warnLog  = log.New(os.Stderr, "WARNING: ", log.Ldate|log.Ltime)
	errorLog = log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime)
	minLevel = LevelInfo
	logMutex sync.Mutex
	closers  []io.Closer
)

// SetupLogging routes each level to stdout/stderr and a rotated file under
// cfg.Dir. Until it is called everything goes to stderr.
func SetupLogging(cfg config.LoggingConfig) error {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	logMutex.Lock()
	defer logMutex.Unlock()

	for _, c := range closers {
		_ = c.Close()
	}
	closers = nil

	infoFile := rotating(cfg, "info.log")
	warnFile := rotating(cfg, "warn.log")
	errorFile := rotating(cfg, "error.log")

	infoWriter := io.MultiWriter(os.Stdout, infoFile)
	warnWriter := io.MultiWriter(os.Stdout, warnFile)
	errorWriter := io.MultiWriter(os.Stderr, errorFile)

	debugLog = log.New(infoWriter, "DEBUG: ", log.Ldate|log.Ltime)
	infoLog = log.New(infoWriter, "INFO: ", log.Ldate|log.Ltime)
	warnLog = log.New(warnWriter, "WARNING: ", log.Ldate|log.Ltime)
	errorLog = log.New(errorWriter, "ERROR: ", log.Ldate|log.Ltime)
	minLevel = ParseLevel(cfg.Level)

	// Override Go's default log
	log.SetOutput(infoWriter)
	return nil
}

func rotating(cfg config.LoggingConfig, name string) *lumberjack.Logger {
	l := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, name),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	closers = append(closers, l)
	return l
}

// CloseLogging flushes and closes the rotated files.
func CloseLogging() {
	logMutex.Lock()
	defer logMutex.Unlock()
	for _, c := range closers {
		_ = c.Close()
	}
	closers = nil
}

// ParseLevel maps a level name to its constant; unknown names mean info.
func ParseLevel(s string) int {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func getCallerInfo() string {
	pc, _, _, ok := runtime.Caller(3)
	if !ok {
		return "unknown"
	}
	name := runtime.FuncForPC(pc).Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func logAt(level int, format string, v ...interface{}) {
	logMutex.Lock()
	defer logMutex.Unlock()

	if level < minLevel {
		return
	}
	logEntry := fmt.Sprintf("[%s] %s", getCallerInfo(), fmt.Sprintf(format, v...))

	switch level {
	case LevelDebug:
		debugLog.Println(logEntry)
	case LevelWarn:
		warnLog.Println(logEntry)
	case LevelError:
		errorLog.Println(logEntry)
	default:
		infoLog.Println(logEntry)
	}
}

func Debug(format string, v ...interface{}) {
	logAt(LevelDebug, format, v...)
}

func Info(format string, v ...interface{}) {
	logAt(LevelInfo, format, v...)
}

func Warn(format string, v ...interface{}) {
	logAt(LevelWarn, format, v...)
}

func Error(format string, v ...interface{}) {
	logAt(LevelError, format, v...)
}
