package audit

import (
	"encoding/json"
)

// AuditLogRequest is the wire payload accepted by the external audit service
type AuditLogRequest struct {
	// Trace & Correlation
	TraceID *string `json:"traceId,omitempty"` // UUID string, nullable for standalone events

	// Temporal
	Timestamp string `json:"timestamp"` // ISO 8601 format, required

	// Event Classification
	EventType   *string `json:"eventType,omitempty"`   // MANAGEMENT_EVENT, ATTENDANCE_EVENT, REPORT_EVENT
	EventAction *string `json:"eventAction,omitempty"` // CREATE, READ, UPDATE, DELETE, EXPORT
	Status      string  `json:"status"`                // SUCCESS, FAILURE

	// Actor Information
	ActorType string `json:"actorType"` // ADMIN, MEMBER, SYSTEM
	ActorID   string `json:"actorId"`   // email, uuid, or service-name (required)

	// Target Information
	TargetType string  `json:"targetType"`         // SERVICE, RESOURCE
	TargetID   *string `json:"targetId,omitempty"` // resource id or service name

	// Metadata (payload without PII/sensitive data)
	RequestMetadata    json.RawMessage `json:"requestMetadata,omitempty"`
	ResponseMetadata   json.RawMessage `json:"responseMetadata,omitempty"`
	AdditionalMetadata json.RawMessage `json:"additionalMetadata,omitempty"`
}

// Audit log status constants
const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)

// Actor type constants
const (
	ActorTypeAdmin  = "ADMIN"
	ActorTypeMember = "MEMBER"
	ActorTypeSystem = "SYSTEM"
)

// Event type constants
const (
	EventTypeManagement = "MANAGEMENT_EVENT"
	EventTypeAttendance = "ATTENDANCE_EVENT"
	EventTypeReport     = "REPORT_EVENT"
)

// Event action constants
const (
	ActionCreate = "CREATE"
	ActionRead   = "READ"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
	ActionExport = "EXPORT"
)

// NewEvent builds a request for a resource-targeted event. Status defaults
// to success; callers flip it with Failed().
func NewEvent(eventType, action, actorType, actorID, targetID string) *AuditLogRequest {
	et := eventType
	ea := action
	tid := targetID
	req := &AuditLogRequest{
		Timestamp:   CurrentTimestamp(),
		EventType:   &et,
		EventAction: &ea,
		Status:      StatusSuccess,
		ActorType:   actorType,
		ActorID:     actorID,
		TargetType:  "RESOURCE",
	}
	if targetID != "" {
		req.TargetID = &tid
	}
	return req
}

// Failed marks the event as a failure and returns it for chaining
func (r *AuditLogRequest) Failed() *AuditLogRequest {
	r.Status = StatusFailure
	return r
}

// WithMetadata attaches additional context-specific data
func (r *AuditLogRequest) WithMetadata(metadata map[string]interface{}) *AuditLogRequest {
	r.AdditionalMetadata = MarshalMetadata(metadata)
	return r
}
