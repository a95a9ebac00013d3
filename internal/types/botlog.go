package types

import "time"

// LogLevel is the severity class of an engine log entry.
type LogLevel string

const (
	LogLevelInfo    LogLevel = "info"
	LogLevelSuccess LogLevel = "success"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
	LogLevelTrade   LogLevel = "trade"
)

// LogEntry is one append-only, user-visible engine event. Entries exist for
// operator visibility and debugging and are never mutated.
type LogEntry struct {
	UserID  string            `yaml:"user_id" json:"user_id"`
	Time    time.Time         `yaml:"time" json:"time"`
	Level   LogLevel          `yaml:"level" json:"level"`
	Message string            `yaml:"message" json:"message"`
	Fields  map[string]string `yaml:"fields" json:"fields"`
}
