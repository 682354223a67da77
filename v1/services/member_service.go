package services

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/brigade-attendance/attendance-backend/pkg/apperrors"
	"github.com/brigade-attendance/attendance-backend/v1/models"
	"gorm.io/gorm"
)

// MemberService handles member directory operations
type MemberService struct {
	db *gorm.DB
}

// NewMemberService creates a new member service
func NewMemberService(db *gorm.DB) *MemberService {
	return &MemberService{db: db}
}

// sanitizedMemberInput holds validated, normalized member fields
type sanitizedMemberInput struct {
	displayName    string
	username       string
	memberNumber   string
	status         string
	classification string
	membershipType string
}

// sanitizeMemberInput normalizes and validates the member fields shared by
// create and update. Display name and username are both derived from the
// cleaned first and last names so the two can never drift apart.
func sanitizeMemberInput(firstName, lastName, memberNumber, status, classification, membershipType string) (*sanitizedMemberInput, error) {
	first := models.SanitizePersonName(firstName)
	last := models.SanitizePersonName(lastName)
	if first == "" || !models.ValidatePersonName(first) {
		return nil, apperrors.InvalidFieldError("firstName")
	}
	if last == "" || !models.ValidatePersonName(last) {
		return nil, apperrors.InvalidFieldError("lastName")
	}

	number := strings.TrimSpace(memberNumber)
	if !models.ValidateMemberNumber(number) {
		return nil, apperrors.InvalidFieldError("memberNumber")
	}

	out := &sanitizedMemberInput{
		displayName:    first + " " + last,
		username:       first + "." + last,
		memberNumber:   number,
		status:         models.SanitizeOption(status),
		classification: models.SanitizeOption(classification),
		membershipType: models.SanitizeOption(membershipType),
	}

	optionFields := []struct {
		name  string
		value string
	}{
		{"status", out.status},
		{"classification", out.classification},
		{"membershipType", out.membershipType},
	}
	for _, f := range optionFields {
		if f.value == "" || !models.ValidateName(f.value) {
			return nil, apperrors.InvalidFieldError(f.name)
		}
	}

	return out, nil
}

// CreateMember registers a new member. The honeypot field rejects automated
// form submissions before any validation runs.
func (s *MemberService) CreateMember(req *models.CreateMemberRequest) (*models.Member, error) {
	if req.Website != "" {
		return nil, apperrors.ValidationError("Invalid submission")
	}

	input, err := sanitizeMemberInput(req.FirstName, req.LastName, req.MemberNumber,
		req.Status, req.Classification, req.MembershipType)
	if err != nil {
		return nil, err
	}

	var count int64
	err = s.db.Model(&models.Member{}).
		Where("member_number = ? OR username = ?", input.memberNumber, input.username).
		Count(&count).Error
	if err != nil {
		return nil, apperrors.DatabaseError("member lookup", err)
	}
	if count > 0 {
		return nil, apperrors.ValidationError("Member already exists")
	}

	member := models.Member{
		MemberNumber:   input.memberNumber,
		DisplayName:    input.displayName,
		Username:       input.username,
		Status:         input.status,
		Classification: input.classification,
		MembershipType: input.membershipType,
	}

	if err := s.db.Create(&member).Error; err != nil {
		return nil, apperrors.DatabaseError("member create", err)
	}

	slog.Info("Member created", "memberNumber", member.MemberNumber, "username", member.Username)
	return &member, nil
}

// GetAllMembers returns every member in the directory
func (s *MemberService) GetAllMembers() ([]models.Member, error) {
	var members []models.Member
	if err := s.db.Order("display_name asc").Find(&members).Error; err != nil {
		return nil, apperrors.DatabaseError("member list", err)
	}
	return members, nil
}

// GetMemberByUsername looks up a member by the first.last username
func (s *MemberService) GetMemberByUsername(username string) (*models.Member, error) {
	var member models.Member
	err := s.db.First(&member, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFoundError("Member not found")
	}
	if err != nil {
		return nil, apperrors.DatabaseError("member lookup", err)
	}
	return &member, nil
}

// GetMemberByDisplayName looks up a member by the spaces form of their name
func (s *MemberService) GetMemberByDisplayName(displayName string) (*models.Member, error) {
	var member models.Member
	err := s.db.First(&member, "display_name = ?", displayName).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFoundError("Member not found")
	}
	if err != nil {
		return nil, apperrors.DatabaseError("member lookup", err)
	}
	return &member, nil
}

// SearchUsernames returns usernames containing the query, case-insensitive
func (s *MemberService) SearchUsernames(query string) ([]string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(query))
	if trimmed == "" {
		return []string{}, nil
	}

	var usernames []string
	err := s.db.Model(&models.Member{}).
		Where("username LIKE ?", "%"+trimmed+"%").
		Order("username asc").
		Pluck("username", &usernames).Error
	if err != nil {
		return nil, apperrors.DatabaseError("username search", err)
	}
	if usernames == nil {
		usernames = []string{}
	}
	return usernames, nil
}

// UpdateMember replaces a member's fields, keyed by their current number.
// A name change rewrites the derived username and every historical activity
// record in the same transaction, so reports keep joining cleanly.
func (s *MemberService) UpdateMember(oldNumber string, req *models.UpdateMemberRequest) (*models.Member, error) {
	input, err := sanitizeMemberInput(req.FirstName, req.LastName, req.MemberNumber,
		req.Status, req.Classification, req.MembershipType)
	if err != nil {
		return nil, err
	}

	var member models.Member
	err = s.db.First(&member, "member_number = ?", oldNumber).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFoundError("Member not found")
	}
	if err != nil {
		return nil, apperrors.DatabaseError("member lookup", err)
	}

	oldDisplayName := member.DisplayName

	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, apperrors.DatabaseError("transaction start", tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	updates := map[string]interface{}{
		"member_number":   input.memberNumber,
		"display_name":    input.displayName,
		"username":        input.username,
		"status":          input.status,
		"classification":  input.classification,
		"membership_type": input.membershipType,
	}
	if err := tx.Model(&models.Member{}).
		Where("member_number = ?", oldNumber).
		Updates(updates).Error; err != nil {
		tx.Rollback()
		return nil, apperrors.DatabaseError("member update", err)
	}

	// Propagate a rename to historical attendance records
	if oldDisplayName != input.displayName {
		if err := tx.Model(&models.ActivityRecord{}).
			Where("name = ?", oldDisplayName).
			Update("name", input.displayName).Error; err != nil {
			tx.Rollback()
			return nil, apperrors.DatabaseError("activity record rename", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, apperrors.DatabaseError("transaction commit", err)
	}

	slog.Info("Member updated",
		"oldMemberNumber", oldNumber,
		"memberNumber", input.memberNumber,
		"renamed", oldDisplayName != input.displayName)

	updated := models.Member{
		MemberNumber:   input.memberNumber,
		DisplayName:    input.displayName,
		Username:       input.username,
		Status:         input.status,
		Classification: input.classification,
		MembershipType: input.membershipType,
		BaseModel:      member.BaseModel,
	}
	return &updated, nil
}

// DeleteMembers removes members in bulk by their numbers. Their historical
// activity records are left in place.
func (s *MemberService) DeleteMembers(memberNumbers []string) (int64, error) {
	if len(memberNumbers) == 0 {
		return 0, apperrors.ValidationError("No member numbers provided")
	}
	for _, number := range memberNumbers {
		if !models.ValidateMemberNumber(strings.TrimSpace(number)) {
			return 0, apperrors.InvalidFieldError(fmt.Sprintf("memberNumbers (%s)", number))
		}
	}

	result := s.db.Where("member_number IN ?", memberNumbers).Delete(&models.Member{})
	if result.Error != nil {
		return 0, apperrors.DatabaseError("member delete", result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, apperrors.NotFoundError("No matching members found")
	}

	slog.Info("Members deleted", "requested", len(memberNumbers), "deleted", result.RowsAffected)
	return result.RowsAffected, nil
}
