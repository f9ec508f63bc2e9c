// Package logger provides logging implementations for dicomsort jobs.
//
// Loggers receive the job events emitted by the sorter (job start, planned,
// placed and skipped records, and the final summary) and write them to the
// console or to per-job log files. Implementations are thread-safe.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/harrison/dicomsort/internal/sorter"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs job progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps.
// Color output is enabled for terminal output (os.Stdout/os.Stderr on a TTY).
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
	progress    *ProgressBar
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	useColor := isTerminal(writer)
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: useColor,
		progress:    NewProgressBar(0, 20, useColor),
	}
}

// isTerminal reports whether w is a terminal that should receive colors.
// NO_COLOR disables color through color.NoColor.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	if f != os.Stdout && f != os.Stderr {
		return false
	}
	if color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))

	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	default:
		return "info"
	}
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// enabled reports whether messageLevel passes the configured level.
func enabled(configured, messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(configured)
}

// shouldLog checks if a message at the given level should be logged.
func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return cl.writer != nil && enabled(cl.logLevel, messageLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

// logWithLevel writes "[HH:MM:SS] [LEVEL] message" if filtering allows it.
func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	label := level
	if cl.colorOutput {
		label = levelColor(level).Sprint(level)
	}
	fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", timestamp(), label, message)
}

// levelColor returns the color used for a level label.
func levelColor(level string) *color.Color {
	switch strings.ToUpper(level) {
	case "TRACE":
		return color.New(color.FgHiBlack)
	case "DEBUG":
		return color.New(color.FgCyan)
	case "INFO":
		return color.New(color.FgBlue)
	case "WARN":
		return color.New(color.FgYellow)
	case "ERROR":
		return color.New(color.FgRed)
	default:
		return color.New(color.Reset)
	}
}

// writeLines writes lines prefixed with the current timestamp.
func (cl *ConsoleLogger) writeLines(lines ...string) {
	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(fmt.Sprintf("[%s] %s\n", ts, line))
	}
	cl.writer.Write([]byte(sb.String()))
}

// LogJobStart logs the start of a sort job at INFO level.
// Format: "[HH:MM:SS] Sorting <dir> with pattern <name> into <out>"
func (cl *ConsoleLogger) LogJobStart(job sorter.Job) {
	cl.mutex.Lock()
	cl.progress = NewProgressBar(0, 20, cl.colorOutput)
	cl.mutex.Unlock()

	if !cl.shouldLog("info") {
		return
	}

	name := patternLabel(job)
	if cl.colorOutput {
		name = color.New(color.Bold).Sprint(name)
	}
	line := fmt.Sprintf("Sorting %s with pattern %s into %s (%s)", job.SourceDir, name, job.OutputRoot, job.Mode)
	if job.DryRun {
		line += " [dry run]"
	}
	cl.writeLines(line)
}

// LogRecordPlanned logs a resolved record at DEBUG level.
// Format: "[HH:MM:SS] Planned <source> -> <relative path>"
func (cl *ConsoleLogger) LogRecordPlanned(p sorter.Placement) {
	cl.mutex.Lock()
	cl.progress.SetTotal(cl.progress.Total() + 1)
	cl.mutex.Unlock()

	if !cl.shouldLog("debug") {
		return
	}
	cl.writeLines(fmt.Sprintf("Planned %s -> %s", p.Source, p.RelativePath))
}

// LogRecordPlaced logs a placed file with a progress bar at DEBUG level.
// Format: "[HH:MM:SS] [====      ] 2/5 (40%) <relative path>"
func (cl *ConsoleLogger) LogRecordPlaced(p sorter.Placement) {
	cl.mutex.Lock()
	cl.progress.Increment()
	bar := cl.progress.Render()
	cl.mutex.Unlock()

	if !cl.shouldLog("debug") {
		return
	}
	cl.writeLines(fmt.Sprintf("%s %s", bar, p.RelativePath))
}

// LogRecordSkipped logs a skipped record at WARN level.
// Format: "[HH:MM:SS] [WARN] Skipped <source>: <reason>"
func (cl *ConsoleLogger) LogRecordSkipped(s sorter.Skipped) {
	cl.LogWarn(skipMessage(s))
}

// LogSummary logs the job summary at INFO level.
func (cl *ConsoleLogger) LogSummary(result *sorter.Result) {
	if result == nil || !cl.shouldLog("info") {
		return
	}

	var scheme *colorScheme
	if cl.colorOutput {
		scheme = newColorScheme()
	}
	cl.writeLines(summaryLines(result, scheme)...)
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// patternLabel names the pattern of a job, falling back to its source.
func patternLabel(job sorter.Job) string {
	if job.PatternName == "" {
		return fmt.Sprintf("%q", job.Pattern)
	}
	return job.PatternName
}

func skipMessage(s sorter.Skipped) string {
	if s.Err != nil && s.Reason == sorter.SkipMissingTag {
		return fmt.Sprintf("Skipped %s: %s: %v", s.Source, s.Reason, s.Err)
	}
	return fmt.Sprintf("Skipped %s: %s", s.Source, s.Reason)
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "450ms", "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		remainder := d % time.Hour
		if remainder == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		minutes := remainder / time.Minute
		remainder = remainder % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case d >= time.Minute:
		minutes := d / time.Minute
		remainder := d % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	case d >= time.Second:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	default:
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
}

// NoOpLogger discards all job events.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

// LogJobStart is a no-op implementation.
func (n *NoOpLogger) LogJobStart(job sorter.Job) {}

// LogRecordPlanned is a no-op implementation.
func (n *NoOpLogger) LogRecordPlanned(p sorter.Placement) {}

// LogRecordPlaced is a no-op implementation.
func (n *NoOpLogger) LogRecordPlaced(p sorter.Placement) {}

// LogRecordSkipped is a no-op implementation.
func (n *NoOpLogger) LogRecordSkipped(s sorter.Skipped) {}

// LogSummary is a no-op implementation.
func (n *NoOpLogger) LogSummary(result *sorter.Result) {}
