package logger

import "github.com/harrison/dicomsort/internal/sorter"

// MultiLogger fans job events out to several loggers in order.
type MultiLogger struct {
	loggers []sorter.Logger
}

// NewMultiLogger creates a MultiLogger. Nil loggers are dropped.
func NewMultiLogger(loggers ...sorter.Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

// LogJobStart forwards to every logger.
func (m *MultiLogger) LogJobStart(job sorter.Job) {
	for _, l := range m.loggers {
		l.LogJobStart(job)
	}
}

// LogRecordPlanned forwards to every logger.
func (m *MultiLogger) LogRecordPlanned(p sorter.Placement) {
	for _, l := range m.loggers {
		l.LogRecordPlanned(p)
	}
}

// LogRecordPlaced forwards to every logger.
func (m *MultiLogger) LogRecordPlaced(p sorter.Placement) {
	for _, l := range m.loggers {
		l.LogRecordPlaced(p)
	}
}

// LogRecordSkipped forwards to every logger.
func (m *MultiLogger) LogRecordSkipped(s sorter.Skipped) {
	for _, l := range m.loggers {
		l.LogRecordSkipped(s)
	}
}

// LogSummary forwards to every logger.
func (m *MultiLogger) LogSummary(result *sorter.Result) {
	for _, l := range m.loggers {
		l.LogSummary(result)
	}
}
