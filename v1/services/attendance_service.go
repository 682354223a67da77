package services

import (
	"context"
	"log/slog"

	"github.com/brigade-attendance/attendance-backend/pkg/apperrors"
	"github.com/brigade-attendance/attendance-backend/pkg/monitoring"
	"github.com/brigade-attendance/attendance-backend/v1/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AttendanceService handles the public submission gate: the username check
// that opens a session and the attendance submission verified against it.
type AttendanceService struct {
	db            *gorm.DB
	memberService *MemberService
}

// NewAttendanceService creates a new attendance service
func NewAttendanceService(db *gorm.DB, memberService *MemberService) *AttendanceService {
	return &AttendanceService{db: db, memberService: memberService}
}

// CheckUsername normalizes and validates a submitted username, then resolves
// it against the member directory. Malformed input and unknown usernames get
// distinct statuses but the same message body, so callers cannot probe which
// usernames are merely badly formed.
func (s *AttendanceService) CheckUsername(raw string) (*models.Member, error) {
	username := models.NormalizeUsername(raw)
	if !models.ValidateUsername(username) {
		return nil, apperrors.ValidationError("Unrecognized username")
	}

	member, err := s.memberService.GetMemberByUsername(username)
	if err != nil {
		if apiErr, ok := apperrors.AsAPIError(err); ok && apiErr.Type == apperrors.ErrorTypeNotFound {
			return nil, apperrors.NotFoundError("Unrecognized username")
		}
		return nil, err
	}
	return member, nil
}

// SubmitAttendance validates a submission against the session's bound
// username and the field allow-lists, then persists one activity record.
// Every check runs before anything touches the store.
func (s *AttendanceService) SubmitAttendance(ctx context.Context, req *models.SubmitAttendanceRequest, boundUsername string) (*models.SubmitAttendanceResponse, error) {
	if boundUsername == "" {
		return nil, apperrors.ForbiddenError("Username has not been verified")
	}
	if models.NormalizeUsername(req.Name) != boundUsername {
		return nil, apperrors.ForbiddenError("Submitted name does not match verified username")
	}

	if req.Name == "" || !models.ValidateName(req.Name) {
		return nil, apperrors.InvalidFieldError("name")
	}
	if req.Operational == "" || !models.ValidateOption(req.Operational) {
		return nil, apperrors.InvalidFieldError("operational")
	}
	if req.Activity == "" || !models.ValidateOption(req.Activity) {
		return nil, apperrors.InvalidFieldError("activity")
	}
	if req.EpochTimestamp <= 0 {
		return nil, apperrors.InvalidFieldError("epochTimestamp")
	}

	subFields := []struct {
		name  string
		value string
		check func(string) bool
	}{
		{"baType", req.BaType, models.ValidateSubField},
		{"chainsawType", req.ChainsawType, models.ValidateSubField},
		{"deploymentType", req.DeploymentType, models.ValidateSubField},
		{"deploymentLocation", req.DeploymentLocation, models.ValidateSubField},
		{"otherType", req.OtherType, models.ValidateFreeText},
	}
	for _, f := range subFields {
		if f.value != "" && !f.check(f.value) {
			return nil, apperrors.InvalidFieldError(f.name)
		}
	}

	detail, err := models.NewActivityDetail(req.Activity, models.ActivityDetail{
		BaType:             req.BaType,
		ChainsawType:       req.ChainsawType,
		DeploymentType:     req.DeploymentType,
		DeploymentLocation: req.DeploymentLocation,
		OtherType:          req.OtherType,
	})
	if err != nil {
		return nil, err
	}

	record := models.ActivityRecord{
		RecordID:       "rec_" + uuid.New().String(),
		Name:           req.Name,
		Operational:    req.Operational,
		Activity:       req.Activity,
		EpochTimestamp: req.EpochTimestamp,
	}
	detail.Apply(&record)

	if err := s.db.Create(&record).Error; err != nil {
		monitoring.RecordBusinessEvent(ctx, "attendance_submission", false)
		return nil, apperrors.DatabaseError("attendance record create", err)
	}

	monitoring.RecordBusinessEvent(ctx, "attendance_submission", true)
	slog.Info("Attendance recorded",
		"recordId", record.RecordID,
		"activity", record.Activity,
		"operational", record.Operational)

	return &models.SubmitAttendanceResponse{RecordID: record.RecordID}, nil
}
