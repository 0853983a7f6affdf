package audit

import (
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/scopeauth/go-core/pkg/types"
)

// stdoutWriter writes audit events to stdout as JSON lines
type stdoutWriter struct {
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewStdoutWriter creates a writer targeting stdout
func NewStdoutWriter() Writer {
	return &stdoutWriter{encoder: json.NewEncoder(os.Stdout)}
}

// NewJSONWriter creates a writer targeting an arbitrary stream; tests use
// this with a buffer.
func NewJSONWriter(w io.Writer) Writer {
	return &stdoutWriter{encoder: json.NewEncoder(w)}
}

func (w *stdoutWriter) Write(event *types.AuditEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.encoder.Encode(event)
}

func (w *stdoutWriter) Close() error {
	return nil
}
