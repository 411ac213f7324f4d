package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"ecoscanner/internal/config"
)

// Log file names, one per level.
const (
	InfoFile    = "info.log"
	WarningFile = "warning.log"
	ErrorFile   = "error.log"
)

// Logger provides leveled logging (info/warning/error) to files and stdout/stderr.
type Logger struct {
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	logDir     string
	files      []*os.File
	mu         sync.Mutex
}

// NewLogger creates a Logger and ensures the log directory exists.
func NewLogger(config *config.Config) *Logger {
	if err := os.MkdirAll(config.LogDirectory, 0755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	logger := &Logger{
		logDir: config.LogDirectory,
	}

	logger.setupLoggers()
	return logger
}

// NewWithWriter routes every level to w. No files are written, so the /logs
// viewers report not found.
func NewWithWriter(w io.Writer) *Logger {
	l := &Logger{}
	l.infoLog = log.New(w, "INFO    ", log.Lmsgprefix)
	l.warningLog = log.New(w, "WARNING ", log.Lmsgprefix)
	l.errorLog = log.New(w, "ERROR   ", log.Lmsgprefix)
	return l
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return NewWithWriter(io.Discard)
}

func (l *Logger) setupLoggers() {
	infoFileHandle := l.openLogFile(filepath.Join(l.logDir, InfoFile))
	warningFileHandle := l.openLogFile(filepath.Join(l.logDir, WarningFile))
	errorFileHandle := l.openLogFile(filepath.Join(l.logDir, ErrorFile))

	infoWriter := io.MultiWriter(os.Stdout, infoFileHandle)
	warningWriter := io.MultiWriter(os.Stdout, warningFileHandle)
	errorWriter := io.MultiWriter(os.Stderr, errorFileHandle)

	l.infoLog = log.New(infoWriter, "ℹ️  INFO    ", log.Ldate|log.Ltime|log.Lshortfile)
	l.warningLog = log.New(warningWriter, "⚠️  WARNING ", log.Ldate|log.Ltime|log.Lshortfile)
	l.errorLog = log.New(errorWriter, "❌ ERROR   ", log.Ldate|log.Ltime|log.Lshortfile)
}

func (l *Logger) openLogFile(filename string) *os.File {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file %s: %v", filename, err)
	}
	l.files = append(l.files, file)
	return file
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLog.Output(2, fmt.Sprintf(format, v...))
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warningLog.Output(2, fmt.Sprintf(format, v...))
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Output(2, fmt.Sprintf(format, v...))
}

// Dir returns the log directory, empty for writer-backed loggers.
func (l *Logger) Dir() string {
	return l.logDir
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) error {
	if l.logDir == "" {
		return fmt.Errorf("logger has no log directory")
	}

	filePath := filepath.Join(l.logDir, fileName)
	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		l.Error("Error opening file: %v", err)
		return fmt.Errorf("failed to truncate %s: %w", fileName, err)
	}
	defer file.Close()

	l.Info("File content has been cleared: %s", fileName)
	return nil
}

// Close closes the underlying log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.files = nil
	return firstErr
}
