package audit

import (
	"bytes"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scopeauth/go-core/pkg/types"
)

type captureWriter struct {
	mu     sync.Mutex
	events []*types.AuditEvent
	fail   int // fail this many writes before succeeding
}

func (w *captureWriter) Write(event *types.AuditEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail > 0 {
		w.fail--
		return errors.New("sink unavailable")
	}
	w.events = append(w.events, event)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func (w *captureWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.events)
}

func TestAsyncLogger_DeliversEvents(t *testing.T) {
	writer := &captureWriter{}
	logger := newAsyncLogger(writer, DefaultConfig())
	defer logger.Close()

	logger.Log(&types.AuditEvent{
		Type:        types.EventInheritanceResolved,
		PrincipalID: "principal-1",
		Details:     map[string]any{"provider": "google"},
	})

	require.NoError(t, logger.Flush())
	require.Equal(t, 1, writer.count())

	event := writer.events[0]
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.Timestamp.IsZero())
	assert.Equal(t, types.EventInheritanceResolved, event.Type)
}

func TestAsyncLogger_LogNeverBlocks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferSize = 8

	writer := &captureWriter{fail: 1 << 30} // sink permanently down
	logger := newAsyncLogger(writer, cfg)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			logger.Log(&types.AuditEvent{Type: types.EventContextSwitched, PrincipalID: "p"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Log blocked on a failing sink")
	}
}

func TestAsyncLogger_RetriesFailedWrites(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WriteRetries = 2

	writer := &captureWriter{fail: 2}
	logger := newAsyncLogger(writer, cfg)
	defer logger.Close()

	logger.Log(&types.AuditEvent{Type: types.EventDelegationUsed, PrincipalID: "p"})

	require.NoError(t, logger.Flush())
	assert.Equal(t, 1, writer.count())
}

func TestAsyncLogger_DropsOldestOnOverflow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferSize = 4
	cfg.FlushInterval = time.Hour // flush manually

	writer := &captureWriter{}
	logger := &asyncLogger{
		writer:  writer,
		buffer:  make([]*types.AuditEvent, cfg.BufferSize),
		size:    cfg.BufferSize,
		flushCh: make(chan struct{}, 1),
		doneCh:  make(chan struct{}),
	}

	for i := 0; i < 10; i++ {
		logger.Log(&types.AuditEvent{Type: types.EventDelegationUsed, PrincipalID: "p"})
	}

	require.NoError(t, logger.Flush())
	// Ring of size 4 holds at most size-1 pending events
	assert.Equal(t, cfg.BufferSize-1, writer.count())
}

func TestConfig_Validate_FloorsBufferSize(t *testing.T) {
	// A ring of size 1 could never hold a pending event, so sizes
	// below 2 fall back to the default
	cfg := Config{Enabled: true, Type: "stdout", BufferSize: 1}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1000, cfg.BufferSize)

	writer := &captureWriter{}
	logger := newAsyncLogger(writer, cfg)
	defer logger.Close()

	logger.Log(&types.AuditEvent{Type: types.EventContextSwitched, PrincipalID: "p"})
	require.NoError(t, logger.Flush())
	assert.Equal(t, 1, writer.count())
}

func TestJSONWriter_EncodesEvent(t *testing.T) {
	var buf bytes.Buffer
	writer := NewJSONWriter(&buf)

	err := writer.Write(&types.AuditEvent{
		ID:          "evt-1",
		Type:        types.EventDelegationCreated,
		PrincipalID: "principal-1",
		Timestamp:   time.Now(),
		Details:     map[string]any{"permission": "expense_approve"},
	})
	require.NoError(t, err)

	var decoded types.AuditEvent
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "evt-1", decoded.ID)
	assert.Equal(t, types.EventDelegationCreated, decoded.Type)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"disabled skips validation", Config{Enabled: false}, false},
		{"stdout ok", Config{Enabled: true, Type: "stdout"}, false},
		{"file requires path", Config{Enabled: true, Type: "file"}, true},
		{"unknown type", Config{Enabled: true, Type: "syslog"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNewLogger_Disabled(t *testing.T) {
	logger, err := NewLogger(&Config{Enabled: false})
	require.NoError(t, err)

	// No-op logger accepts events without a writer
	logger.Log(&types.AuditEvent{Type: types.EventContextDenied})
	require.NoError(t, logger.Flush())
	require.NoError(t, logger.Close())
}
