package middleware

import (
	"context"
	"log/slog"
	"net/http"

	auditpkg "github.com/brigade-attendance/attendance-backend/audit"
	"github.com/brigade-attendance/attendance-backend/v1/models"
)

// LogAudit logs an audit event for a write operation, extracting the actor
// from the request's authentication context
func LogAudit(client auditpkg.Auditor, r *http.Request, resource models.ResourceType, resourceID *string, status string) {
	if client == nil || !client.IsEnabled() {
		return
	}
	if !isWriteOperation(r.Method) {
		return
	}

	actorType, actorID := extractActorInfoFromRequest(r)
	if actorID == "" {
		// Actor ID is a required field
		slog.Warn("Cannot log audit event: no actor ID found")
		return
	}

	logAudit(client, r, resource, resourceID, actorType, actorID, status)
}

// LogPublicAudit logs a write event from the unauthenticated attendance
// routes, attributed to the member username the caller checked or submitted
func LogPublicAudit(client auditpkg.Auditor, r *http.Request, resource models.ResourceType, resourceID *string, memberUsername, status string) {
	if client == nil || !client.IsEnabled() {
		return
	}
	if !isWriteOperation(r.Method) || memberUsername == "" {
		return
	}

	logAudit(client, r, resource, resourceID, auditpkg.ActorTypeMember, memberUsername, status)
}

func logAudit(client auditpkg.Auditor, r *http.Request, resource models.ResourceType, resourceID *string, actorType, actorID, status string) {
	eventAction := determineEventAction(r.Method)
	if eventAction == "" {
		return
	}

	targetID := ""
	if resourceID != nil {
		targetID = *resourceID
	}

	event := auditpkg.NewEvent(eventTypeFor(resource), eventAction, actorType, actorID, targetID).
		WithMetadata(map[string]interface{}{
			"resource":   resource,
			"resourceId": resourceID,
		})
	if status == auditpkg.StatusFailure {
		event.Failed()
	}

	// Fire-and-forget on a background context; the request context may be
	// cancelled before delivery completes
	client.LogEvent(context.Background(), event)
}

// extractActorInfoFromRequest maps the authenticated user to audit actor fields
func extractActorInfoFromRequest(r *http.Request) (actorType string, actorID string) {
	user, err := GetUserFromRequest(r)
	if err != nil || user == nil {
		return auditpkg.ActorTypeMember, ""
	}

	switch user.GetPrimaryRole() {
	case models.RoleAdmin:
		actorType = auditpkg.ActorTypeAdmin
	case models.RoleSystem:
		actorType = auditpkg.ActorTypeSystem
	default:
		actorType = auditpkg.ActorTypeMember
	}
	return actorType, user.IdpUserID
}

// LogAuditEvent logs through the global audit middleware instance
func LogAuditEvent(r *http.Request, resource models.ResourceType, resourceID *string, status string) {
	globalMiddleware := auditpkg.GetGlobalAuditMiddleware()
	if globalMiddleware != nil {
		LogAudit(globalMiddleware.Client(), r, resource, resourceID, status)
	} else {
		slog.Warn("Audit logging skipped: globalAuditMiddleware is not initialized")
	}
}

// LogPublicAuditEvent logs a public-route event through the global audit
// middleware instance
func LogPublicAuditEvent(r *http.Request, resource models.ResourceType, resourceID *string, memberUsername, status string) {
	globalMiddleware := auditpkg.GetGlobalAuditMiddleware()
	if globalMiddleware != nil {
		LogPublicAudit(globalMiddleware.Client(), r, resource, resourceID, memberUsername, status)
	} else {
		slog.Warn("Audit logging skipped: globalAuditMiddleware is not initialized")
	}
}

func isWriteOperation(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch || method == http.MethodDelete
}

func determineEventAction(method string) string {
	switch method {
	case http.MethodPost:
		return auditpkg.ActionCreate
	case http.MethodPut, http.MethodPatch:
		return auditpkg.ActionUpdate
	case http.MethodDelete:
		return auditpkg.ActionDelete
	default:
		return ""
	}
}

func eventTypeFor(resource models.ResourceType) string {
	switch resource {
	case models.ResourceTypeAttendanceRecords:
		return auditpkg.EventTypeAttendance
	case models.ResourceTypeReports:
		return auditpkg.EventTypeReport
	default:
		return auditpkg.EventTypeManagement
	}
}
