package audit

import (
	"context"
	"log/slog"
	"sync"
)

// AuditMiddleware routes audit events from handlers to a client
type AuditMiddleware struct {
	client Auditor
}

// Global audit middleware instance for easy access from handlers
var (
	globalAuditMiddleware *AuditMiddleware
	globalAuditOnce       sync.Once
)

// NewAuditMiddleware creates the audit middleware and installs it as the
// global instance on first call. A nil or disabled client makes every
// logging call a no-op without affecting request handling.
func NewAuditMiddleware(client Auditor) *AuditMiddleware {
	middleware := &AuditMiddleware{client: client}

	globalAuditOnce.Do(func() {
		globalAuditMiddleware = middleware
	})

	return middleware
}

// Client returns the audit client instance
func (m *AuditMiddleware) Client() Auditor {
	return m.client
}

// LogAuditEvent forwards an audit event to the configured client
func (m *AuditMiddleware) LogAuditEvent(ctx context.Context, auditRequest *AuditLogRequest) {
	if m.client == nil {
		return
	}
	m.client.LogEvent(ctx, auditRequest)
}

// LogAuditEvent logs an audit event through the global middleware instance.
// Handlers call this rather than carrying a client reference.
func LogAuditEvent(ctx context.Context, auditRequest *AuditLogRequest) {
	if globalAuditMiddleware != nil {
		globalAuditMiddleware.LogAuditEvent(ctx, auditRequest)
	} else {
		slog.Warn("Global AuditMiddleware is not initialized; audit event not logged")
	}
}

// GetGlobalAuditMiddleware returns the global audit middleware instance
func GetGlobalAuditMiddleware() *AuditMiddleware {
	return globalAuditMiddleware
}

// ResetGlobalAuditMiddleware resets the global instance between test cases
func ResetGlobalAuditMiddleware() {
	globalAuditOnce = sync.Once{}
	globalAuditMiddleware = nil
}
