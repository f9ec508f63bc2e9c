package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/dicomsort/internal/sorter"
)

// FileLogger writes job events to a per-job log file and maintains a
// latest.log symlink pointing to the most recent one.
// It is thread-safe and implements the sorter.Logger interface.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates a FileLogger in logDir at the given level.
// The log file is named sort-YYYYMMDD-HHMMSS.log; a numeric suffix is added
// when a job started in the same second already owns that name.
func NewFileLogger(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	now := time.Now()
	base := fmt.Sprintf("sort-%s", now.Format("20060102-150405"))

	var (
		file    *os.File
		runFile string
		err     error
	)
	for i := 0; i < 100; i++ {
		name := base + ".log"
		if i > 0 {
			name = fmt.Sprintf("%s-%d.log", base, i)
		}
		runFile = filepath.Join(logDir, name)
		file, err = os.OpenFile(runFile, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil || !os.IsExist(err) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create job log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	fl := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
	}

	fl.write("=== dicomsort job log ===\n")
	fl.write(fmt.Sprintf("Started at: %s\n\n", now.Format(time.RFC3339)))

	return fl, nil
}

// Path returns the job log file path.
func (fl *FileLogger) Path() string {
	return fl.runFile
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return enabled(fl.logLevel, messageLevel)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.write(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// LogJobStart records the job parameters at INFO level.
func (fl *FileLogger) LogJobStart(job sorter.Job) {
	if !fl.shouldLog("info") {
		return
	}
	ts := timestamp()
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] Job %s\n", ts, job.ID))
	sb.WriteString(fmt.Sprintf("[%s]   source:  %s\n", ts, job.SourceDir))
	sb.WriteString(fmt.Sprintf("[%s]   output:  %s\n", ts, job.OutputRoot))
	sb.WriteString(fmt.Sprintf("[%s]   pattern: %s %s\n", ts, job.PatternName, job.Pattern))
	sb.WriteString(fmt.Sprintf("[%s]   mode:    %s, on missing tag: %s, dry run: %t\n", ts, job.Mode, job.Policy, job.DryRun))
	fl.write(sb.String())
}

// LogRecordPlanned records a resolved record at DEBUG level.
func (fl *FileLogger) LogRecordPlanned(p sorter.Placement) {
	if !fl.shouldLog("debug") {
		return
	}
	fl.write(fmt.Sprintf("[%s] planned %s -> %s\n", timestamp(), p.Source, p.RelativePath))
}

// LogRecordPlaced records a placed file at INFO level.
func (fl *FileLogger) LogRecordPlaced(p sorter.Placement) {
	if !fl.shouldLog("info") {
		return
	}
	fl.write(fmt.Sprintf("[%s] placed %s -> %s\n", timestamp(), p.Source, p.Destination))
}

// LogRecordSkipped records a skipped file at WARN level.
func (fl *FileLogger) LogRecordSkipped(s sorter.Skipped) {
	fl.LogWarn(skipMessage(s))
}

// LogSummary writes the plain-text summary at INFO level.
func (fl *FileLogger) LogSummary(result *sorter.Result) {
	if result == nil || !fl.shouldLog("info") {
		return
	}
	ts := timestamp()
	var sb strings.Builder
	for _, line := range summaryLines(result, nil) {
		sb.WriteString(fmt.Sprintf("[%s] %s\n", ts, line))
	}
	fl.write(sb.String())
}

// Close flushes and closes the job log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync job log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close job log: %w", err)
		}
		fl.runLog = nil
	}
	return nil
}

// write is a thread-safe helper to append to the job log file.
func (fl *FileLogger) write(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		fl.runLog.Sync()
	}
}
