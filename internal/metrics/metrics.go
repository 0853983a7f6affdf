// Package metrics provides observability for the authorization core
package metrics

import (
	"net/http"
	"time"
)

// Metrics provides observability for the authorization core
type Metrics interface {
	// Inheritance metrics
	RecordResolution(provider string, duration time.Duration)
	RecordDirectoryFailure()

	// Context metrics
	RecordContextSwitch(contextType string, success bool)
	RecordCacheHit()
	RecordCacheMiss()

	// Delegation metrics
	RecordDelegationCheck(allowed bool)
	RecordDelegationUsage()

	// HTTP handler for Prometheus scraping
	HTTPHandler() http.Handler
}

// NoOp is a no-op implementation for tests and disabled monitoring
type NoOp struct{}

// NewNoOp creates a no-op metrics instance
func NewNoOp() *NoOp {
	return &NoOp{}
}

func (n *NoOp) RecordResolution(string, time.Duration) {}
func (n *NoOp) RecordDirectoryFailure()                {}
func (n *NoOp) RecordContextSwitch(string, bool)       {}
func (n *NoOp) RecordCacheHit()                        {}
func (n *NoOp) RecordCacheMiss()                       {}
func (n *NoOp) RecordDelegationCheck(bool)             {}
func (n *NoOp) RecordDelegationUsage()                 {}
func (n *NoOp) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
}
