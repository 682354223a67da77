package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/brigade-attendance/attendance-backend/pkg/apperrors"
	"github.com/brigade-attendance/attendance-backend/shared/utils"
	"github.com/brigade-attendance/attendance-backend/v1/middleware"
	"github.com/brigade-attendance/attendance-backend/v1/models"
	"github.com/brigade-attendance/attendance-backend/v1/services"
	"github.com/brigade-attendance/attendance-backend/v1/sessions"

	"gorm.io/gorm"
)

// V1Handler handles all V1 API routes
type V1Handler struct {
	memberService     *services.MemberService
	attendanceService *services.AttendanceService
	reportService     *services.ReportService
	sessionBinding    sessions.IdentityBinding
}

// NewV1Handler creates a new V1 handler
func NewV1Handler(db *gorm.DB, sessionBinding sessions.IdentityBinding) *V1Handler {
	memberService := services.NewMemberService(db)
	return &V1Handler{
		memberService:     memberService,
		attendanceService: services.NewAttendanceService(db, memberService),
		reportService:     services.NewReportService(db, memberService),
		sessionBinding:    sessionBinding,
	}
}

// SetupV1Routes configures the admin-gated V1 API routes
func (h *V1Handler) SetupV1Routes(mux *http.ServeMux) {
	// Member directory routes
	mux.Handle("/api/v1/members", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleMembers)))
	mux.Handle("/api/v1/members/", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleMembers)))

	// Report routes
	mux.Handle("/api/v1/reports/", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleReports)))
}

// SetupPublicRoutes configures the session-gated attendance routes. These
// never pass through the JWT chain.
func (h *V1Handler) SetupPublicRoutes(mux *http.ServeMux) {
	mux.Handle("/api/v1/attendance/", utils.PanicRecoveryMiddleware(http.HandlerFunc(h.handleAttendance)))
}

// respondWithServiceError maps a service error to its HTTP response. Causes
// stay in the server log; only the safe message goes to the caller.
func respondWithServiceError(w http.ResponseWriter, err error) {
	if apiErr, ok := apperrors.AsAPIError(err); ok {
		if apiErr.InternalErr != nil {
			slog.Error("Request failed", "code", apiErr.Code, "error", apiErr.InternalErr)
		}
		utils.RespondWithError(w, apiErr.HTTPStatus, apiErr.Message)
		return
	}
	slog.Error("Request failed", "error", err)
	utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
}

// handleAttendance handles the public submission-gate routes
func (h *V1Handler) handleAttendance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/attendance"), "/")
	switch path {
	case "check-username":
		h.checkUsername(w, r)
	case "submit":
		h.submitAttendance(w, r)
	case "names":
		h.searchNames(w, r)
	default:
		utils.RespondWithError(w, http.StatusNotFound, "Endpoint not found")
	}
}

// checkUsername validates a username and binds it to the caller's session
func (h *V1Handler) checkUsername(w http.ResponseWriter, r *http.Request) {
	var req models.CheckUsernameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	member, err := h.attendanceService.CheckUsername(req.Username)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	// Re-checking overwrites any previous binding
	if err := h.sessionBinding.Bind(w, r, member.Username); err != nil {
		slog.Error("Failed to bind username to session", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, models.CheckUsernameResponse{
		DisplayName: member.DisplayName,
	})
}

// submitAttendance persists a submission after verifying it against the
// session's bound username
func (h *V1Handler) submitAttendance(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	boundUsername, _ := h.sessionBinding.BoundUsername(r)

	resp, err := h.attendanceService.SubmitAttendance(r.Context(), &req, boundUsername)
	if err != nil {
		// No authenticated user exists on this route; attribute the event
		// to the session binding, or to the claimed name on a failed check
		actor := boundUsername
		if actor == "" {
			actor = models.NormalizeUsername(req.Name)
		}
		middleware.LogPublicAuditEvent(r, models.ResourceTypeAttendanceRecords, nil, actor, string(models.AuditStatusFailure))
		respondWithServiceError(w, err)
		return
	}

	middleware.LogPublicAuditEvent(r, models.ResourceTypeAttendanceRecords, &resp.RecordID, boundUsername, string(models.AuditStatusSuccess))

	utils.RespondWithSuccess(w, http.StatusCreated, resp)
}

// searchNames returns usernames matching a query for form autocomplete
func (h *V1Handler) searchNames(w http.ResponseWriter, r *http.Request) {
	var req models.NameSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	usernames, err := h.memberService.SearchUsernames(req.Query)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, models.NameSearchResponse{Usernames: usernames})
}

// handleMembers handles member directory routes
func (h *V1Handler) handleMembers(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/members")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	// Collection endpoint: GET /api/v1/members and POST /api/v1/members
	if len(parts) == 1 && parts[0] == "" {
		switch r.Method {
		case http.MethodGet:
			h.getAllMembers(w, r)
		case http.MethodPost:
			h.createMember(w, r)
		default:
			utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	if len(parts) != 1 || parts[0] == "" {
		utils.RespondWithError(w, http.StatusNotFound, "Endpoint not found")
		return
	}

	// Bulk delete endpoint: POST /api/v1/members/delete
	if parts[0] == "delete" {
		if r.Method != http.MethodPost {
			utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h.deleteMembers(w, r)
		return
	}

	// Item endpoint: PUT /api/v1/members/{memberNumber}
	if r.Method != http.MethodPut {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	h.updateMember(w, r, parts[0])
}

// getAllMembers lists the member directory
func (h *V1Handler) getAllMembers(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.GetUserFromRequest(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if !user.HasPermission(models.PermissionReadAllMembers) {
		utils.RespondWithError(w, http.StatusForbidden, "Insufficient permissions")
		return
	}

	members, err := h.memberService.GetAllMembers()
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, members)
}

// createMember registers a new member
func (h *V1Handler) createMember(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.GetUserFromRequest(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if !user.HasPermission(models.PermissionCreateMember) {
		utils.RespondWithError(w, http.StatusForbidden, "Insufficient permissions")
		return
	}

	var req models.CreateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	member, err := h.memberService.CreateMember(&req)
	if err != nil {
		middleware.LogAuditEvent(r, models.ResourceTypeMembers, nil, string(models.AuditStatusFailure))
		respondWithServiceError(w, err)
		return
	}

	middleware.LogAuditEvent(r, models.ResourceTypeMembers, &member.MemberNumber, string(models.AuditStatusSuccess))

	utils.RespondWithSuccess(w, http.StatusCreated, member)
}

// updateMember replaces a member's fields, keyed by their current number
func (h *V1Handler) updateMember(w http.ResponseWriter, r *http.Request, memberNumber string) {
	user, err := middleware.GetUserFromRequest(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if !user.HasPermission(models.PermissionUpdateMember) {
		utils.RespondWithError(w, http.StatusForbidden, "Insufficient permissions")
		return
	}

	var req models.UpdateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	member, err := h.memberService.UpdateMember(memberNumber, &req)
	if err != nil {
		middleware.LogAuditEvent(r, models.ResourceTypeMembers, &memberNumber, string(models.AuditStatusFailure))
		respondWithServiceError(w, err)
		return
	}

	middleware.LogAuditEvent(r, models.ResourceTypeMembers, &member.MemberNumber, string(models.AuditStatusSuccess))

	utils.RespondWithSuccess(w, http.StatusOK, member)
}

// deleteMembers removes members in bulk by their numbers
func (h *V1Handler) deleteMembers(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.GetUserFromRequest(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if !user.HasPermission(models.PermissionDeleteMember) {
		utils.RespondWithError(w, http.StatusForbidden, "Insufficient permissions")
		return
	}

	var req models.DeleteMembersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	deleted, err := h.memberService.DeleteMembers(req.MemberNumbers)
	if err != nil {
		middleware.LogAuditEvent(r, models.ResourceTypeMembers, nil, string(models.AuditStatusFailure))
		respondWithServiceError(w, err)
		return
	}

	joined := strings.Join(req.MemberNumbers, ",")
	middleware.LogAuditEvent(r, models.ResourceTypeMembers, &joined, string(models.AuditStatusSuccess))

	utils.RespondWithSuccess(w, http.StatusOK, models.DeleteMembersResponse{DeletedCount: deleted})
}

// handleReports handles the report engine routes
func (h *V1Handler) handleReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/reports"), "/")
	switch path {
	case "run":
		h.runReport(w, r)
	case "export":
		h.exportReport(w, r)
	default:
		utils.RespondWithError(w, http.StatusNotFound, "Endpoint not found")
	}
}

// runReport returns matching records as JSON
func (h *V1Handler) runReport(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.GetUserFromRequest(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if !user.HasPermission(models.PermissionRunReport) {
		utils.RespondWithError(w, http.StatusForbidden, "Insufficient permissions")
		return
	}

	var filter models.ReportFilter
	if err := json.NewDecoder(r.Body).Decode(&filter); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	report, err := h.reportService.RunReport(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	utils.RespondWithSuccess(w, http.StatusOK, report)
}

// exportReport streams the report as an xlsx attachment
func (h *V1Handler) exportReport(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.GetUserFromRequest(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if !user.HasPermission(models.PermissionExportReport) {
		utils.RespondWithError(w, http.StatusForbidden, "Insufficient permissions")
		return
	}

	var req models.ExportReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	filename, content, err := h.reportService.ExportReport(r.Context(), &req)
	if err != nil {
		middleware.LogAuditEvent(r, models.ResourceTypeReports, nil, string(models.AuditStatusFailure))
		respondWithServiceError(w, err)
		return
	}

	middleware.LogAuditEvent(r, models.ResourceTypeReports, &filename, string(models.AuditStatusSuccess))

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(content); err != nil {
		slog.Error("Failed to write export response", "error", err)
	}
}
