package audit

import "github.com/scopeauth/go-core/pkg/types"

// Writer writes audit events to a destination
type Writer interface {
	// Write writes one event
	Write(event *types.AuditEvent) error

	// Close closes the writer
	Close() error
}
