// Package audit provides fire-and-forget security audit logging
package audit

import (
	"fmt"
	"time"

	"github.com/scopeauth/go-core/pkg/types"
)

// Logger records security audit events. Log never blocks the caller and
// never returns an error to it: authorization decisions must not depend on
// audit sink availability.
type Logger interface {
	// Log enqueues an event for asynchronous delivery
	Log(event *types.AuditEvent)

	// Flush writes all pending events
	Flush() error

	// Close flushes remaining events and releases the writer
	Close() error
}

// Config for the audit logger
type Config struct {
	// Enabled turns audit logging on; when false a no-op logger is built
	Enabled bool

	// Output type: stdout or file
	Type string

	// For file output
	FilePath       string
	FileMaxSize    int // MB
	FileMaxAge     int // days
	FileMaxBackups int

	// BufferSize is the ring buffer capacity; the oldest event is dropped
	// on overflow
	BufferSize int

	// FlushInterval is the background flush cadence
	FlushInterval time.Duration

	// WriteRetries bounds re-attempts for a failed writer flush
	WriteRetries int
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		Type:           "stdout",
		BufferSize:     1000,
		FlushInterval:  100 * time.Millisecond,
		FileMaxSize:    100,
		FileMaxAge:     30,
		FileMaxBackups: 10,
		WriteRetries:   2,
	}
}

// Validate validates the configuration, defaulting zero tunables
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Type != "stdout" && c.Type != "file" {
		return fmt.Errorf("invalid audit type: %s (must be stdout or file)", c.Type)
	}
	if c.Type == "file" && c.FilePath == "" {
		return fmt.Errorf("file path is required for file output")
	}
	// The ring keeps one slot open to distinguish full from empty, so a
	// size below 2 cannot hold any event
	if c.BufferSize < 2 {
		c.BufferSize = 1000
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 100 * time.Millisecond
	}
	if c.WriteRetries < 0 {
		c.WriteRetries = 0
	}
	return nil
}

// NewLogger creates an audit logger per the configuration
func NewLogger(cfg *Config) (Logger, error) {
	if cfg == nil {
		c := DefaultConfig()
		cfg = &c
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if !cfg.Enabled {
		return &noopLogger{}, nil
	}

	var writer Writer
	var err error
	switch cfg.Type {
	case "file":
		writer, err = NewFileWriter(cfg.FilePath, cfg.FileMaxSize, cfg.FileMaxAge, cfg.FileMaxBackups)
		if err != nil {
			return nil, err
		}
	default:
		writer = NewStdoutWriter()
	}

	return newAsyncLogger(writer, *cfg), nil
}

// noopLogger discards all events
type noopLogger struct{}

func (n *noopLogger) Log(*types.AuditEvent) {}
func (n *noopLogger) Flush() error          { return nil }
func (n *noopLogger) Close() error          { return nil }
