package services

import (
	"testing"

	"github.com/brigade-attendance/attendance-backend/pkg/apperrors"
	"github.com/brigade-attendance/attendance-backend/v1/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newMemberRequest() *models.CreateMemberRequest {
	return &models.CreateMemberRequest{
		FirstName:      "John",
		LastName:       "Smith",
		MemberNumber:   "12345",
		Status:         "Active",
		Classification: "Firefighter",
		MembershipType: "Ordinary",
	}
}

func requireAPIError(t *testing.T, err error) *apperrors.APIError {
	t.Helper()
	require.Error(t, err)
	apiErr, ok := apperrors.AsAPIError(err)
	require.True(t, ok, "expected an API error, got %v", err)
	return apiErr
}

func TestCreateMember(t *testing.T) {
	db := RequireTestDB(t)
	service := NewMemberService(db)

	t.Run("Derives display name and username", func(t *testing.T) {
		CleanupTestData(t, db)

		member, err := service.CreateMember(newMemberRequest())
		require.NoError(t, err)

		assert.Equal(t, "john smith", member.DisplayName)
		assert.Equal(t, "john.smith", member.Username)
		assert.Equal(t, "12345", member.MemberNumber)
		assert.Equal(t, "Active", member.Status)
	})

	t.Run("Strips dashes and case from names", func(t *testing.T) {
		CleanupTestData(t, db)

		req := newMemberRequest()
		req.FirstName = "Mary-Anne"
		req.LastName = " OBrien "

		member, err := service.CreateMember(req)
		require.NoError(t, err)

		assert.Equal(t, "maryanne obrien", member.DisplayName)
		assert.Equal(t, "maryanne.obrien", member.Username)
	})

	t.Run("Honeypot field rejects submission", func(t *testing.T) {
		CleanupTestData(t, db)

		req := newMemberRequest()
		req.Website = "https://spam.example"

		_, err := service.CreateMember(req)
		apiErr := requireAPIError(t, err)
		assert.Equal(t, 400, apiErr.HTTPStatus)
		assert.Equal(t, "Invalid submission", apiErr.Message)

		var count int64
		require.NoError(t, db.Model(&models.Member{}).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("Invalid fields rejected by name", func(t *testing.T) {
		CleanupTestData(t, db)

		tests := []struct {
			name     string
			mutate   func(*models.CreateMemberRequest)
			expected string
		}{
			{"Numeric first name", func(r *models.CreateMemberRequest) { r.FirstName = "J0hn" }, "Invalid characters in field: firstName"},
			{"Empty last name", func(r *models.CreateMemberRequest) { r.LastName = "" }, "Invalid characters in field: lastName"},
			{"Member number with zero", func(r *models.CreateMemberRequest) { r.MemberNumber = "10001" }, "Invalid characters in field: memberNumber"},
			{"Status with markup", func(r *models.CreateMemberRequest) { r.Status = "Active<script>" }, "Invalid characters in field: status"},
			{"Empty membership type", func(r *models.CreateMemberRequest) { r.MembershipType = "" }, "Invalid characters in field: membershipType"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req := newMemberRequest()
				tt.mutate(req)

				_, err := service.CreateMember(req)
				apiErr := requireAPIError(t, err)
				assert.Equal(t, 400, apiErr.HTTPStatus)
				assert.Equal(t, tt.expected, apiErr.Message)
			})
		}
	})

	t.Run("Duplicate member number rejected", func(t *testing.T) {
		CleanupTestData(t, db)

		_, err := service.CreateMember(newMemberRequest())
		require.NoError(t, err)

		req := newMemberRequest()
		req.FirstName = "Jane"
		_, err = service.CreateMember(req)
		apiErr := requireAPIError(t, err)
		assert.Equal(t, "Member already exists", apiErr.Message)
	})

	t.Run("Duplicate username rejected", func(t *testing.T) {
		CleanupTestData(t, db)

		_, err := service.CreateMember(newMemberRequest())
		require.NoError(t, err)

		req := newMemberRequest()
		req.MemberNumber = "67899"
		_, err = service.CreateMember(req)
		apiErr := requireAPIError(t, err)
		assert.Equal(t, "Member already exists", apiErr.Message)
	})
}

func TestGetMemberByUsername(t *testing.T) {
	db := RequireTestDB(t)
	service := NewMemberService(db)

	_, err := service.CreateMember(newMemberRequest())
	require.NoError(t, err)

	t.Run("Known username", func(t *testing.T) {
		member, err := service.GetMemberByUsername("john.smith")
		require.NoError(t, err)
		assert.Equal(t, "john smith", member.DisplayName)
	})

	t.Run("Unknown username", func(t *testing.T) {
		_, err := service.GetMemberByUsername("jane.doe")
		apiErr := requireAPIError(t, err)
		assert.Equal(t, 404, apiErr.HTTPStatus)
	})
}

func TestSearchUsernames(t *testing.T) {
	db := RequireTestDB(t)
	service := NewMemberService(db)

	for _, req := range []*models.CreateMemberRequest{
		{FirstName: "John", LastName: "Smith", MemberNumber: "11111", Status: "Active", Classification: "Firefighter", MembershipType: "Ordinary"},
		{FirstName: "Jane", LastName: "Smythe", MemberNumber: "22222", Status: "Active", Classification: "Firefighter", MembershipType: "Ordinary"},
		{FirstName: "Alex", LastName: "Chen", MemberNumber: "33333", Status: "Active", Classification: "Firefighter", MembershipType: "Ordinary"},
	} {
		_, err := service.CreateMember(req)
		require.NoError(t, err)
	}

	t.Run("Partial match", func(t *testing.T) {
		usernames, err := service.SearchUsernames("sm")
		require.NoError(t, err)
		assert.Equal(t, []string{"jane.smythe", "john.smith"}, usernames)
	})

	t.Run("Case insensitive", func(t *testing.T) {
		usernames, err := service.SearchUsernames("CHEN")
		require.NoError(t, err)
		assert.Equal(t, []string{"alex.chen"}, usernames)
	})

	t.Run("No match returns empty slice", func(t *testing.T) {
		usernames, err := service.SearchUsernames("zzz")
		require.NoError(t, err)
		assert.NotNil(t, usernames)
		assert.Empty(t, usernames)
	})

	t.Run("Blank query returns empty slice", func(t *testing.T) {
		usernames, err := service.SearchUsernames("   ")
		require.NoError(t, err)
		assert.Empty(t, usernames)
	})
}

func TestUpdateMember(t *testing.T) {
	db := RequireTestDB(t)
	service := NewMemberService(db)

	seed := func(t *testing.T) {
		CleanupTestData(t, db)
		_, err := service.CreateMember(newMemberRequest())
		require.NoError(t, err)
	}

	t.Run("Updates fields in place", func(t *testing.T) {
		seed(t)

		updated, err := service.UpdateMember("12345", &models.UpdateMemberRequest{
			FirstName:      "John",
			LastName:       "Smith",
			MemberNumber:   "12345",
			Status:         "Inactive",
			Classification: "Firefighter",
			MembershipType: "Life",
		})
		require.NoError(t, err)
		assert.Equal(t, "Inactive", updated.Status)
		assert.Equal(t, "Life", updated.MembershipType)

		stored, err := service.GetMemberByUsername("john.smith")
		require.NoError(t, err)
		assert.Equal(t, "Inactive", stored.Status)
	})

	t.Run("Rename propagates to username and activity records", func(t *testing.T) {
		seed(t)

		records := []models.ActivityRecord{
			{RecordID: "rec_a", Name: "john smith", Operational: "Operational", Activity: "Training", EpochTimestamp: 1000},
			{RecordID: "rec_b", Name: "john smith", Operational: "Non-Operational", Activity: "Meeting", EpochTimestamp: 2000},
			{RecordID: "rec_c", Name: "jane doe", Operational: "Operational", Activity: "Training", EpochTimestamp: 3000},
		}
		require.NoError(t, db.Create(&records).Error)

		updated, err := service.UpdateMember("12345", &models.UpdateMemberRequest{
			FirstName:      "Jonathan",
			LastName:       "Smith",
			MemberNumber:   "12345",
			Status:         "Active",
			Classification: "Firefighter",
			MembershipType: "Ordinary",
		})
		require.NoError(t, err)
		assert.Equal(t, "jonathan smith", updated.DisplayName)
		assert.Equal(t, "jonathan.smith", updated.Username)

		var renamed int64
		require.NoError(t, db.Model(&models.ActivityRecord{}).
			Where("name = ?", "jonathan smith").Count(&renamed).Error)
		assert.Equal(t, int64(2), renamed)

		var untouched int64
		require.NoError(t, db.Model(&models.ActivityRecord{}).
			Where("name = ?", "jane doe").Count(&untouched).Error)
		assert.Equal(t, int64(1), untouched)

		_, err = service.GetMemberByUsername("john.smith")
		apiErr := requireAPIError(t, err)
		assert.Equal(t, 404, apiErr.HTTPStatus)
	})

	t.Run("Member number can change", func(t *testing.T) {
		seed(t)

		updated, err := service.UpdateMember("12345", &models.UpdateMemberRequest{
			FirstName:      "John",
			LastName:       "Smith",
			MemberNumber:   "54321",
			Status:         "Active",
			Classification: "Firefighter",
			MembershipType: "Ordinary",
		})
		require.NoError(t, err)
		assert.Equal(t, "54321", updated.MemberNumber)

		var member models.Member
		require.NoError(t, db.First(&member, "member_number = ?", "54321").Error)
		err = db.First(&models.Member{}, "member_number = ?", "12345").Error
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("Unknown member number", func(t *testing.T) {
		seed(t)

		_, err := service.UpdateMember("99999", &models.UpdateMemberRequest{
			FirstName:      "John",
			LastName:       "Smith",
			MemberNumber:   "99999",
			Status:         "Active",
			Classification: "Firefighter",
			MembershipType: "Ordinary",
		})
		apiErr := requireAPIError(t, err)
		assert.Equal(t, 404, apiErr.HTTPStatus)
		assert.Equal(t, "Member not found", apiErr.Message)
	})
}

func TestDeleteMembers(t *testing.T) {
	db := RequireTestDB(t)
	service := NewMemberService(db)

	seed := func(t *testing.T) {
		CleanupTestData(t, db)
		for _, req := range []*models.CreateMemberRequest{
			{FirstName: "John", LastName: "Smith", MemberNumber: "11111", Status: "Active", Classification: "Firefighter", MembershipType: "Ordinary"},
			{FirstName: "Jane", LastName: "Doe", MemberNumber: "22222", Status: "Active", Classification: "Firefighter", MembershipType: "Ordinary"},
		} {
			_, err := service.CreateMember(req)
			require.NoError(t, err)
		}
	}

	t.Run("Bulk delete reports count", func(t *testing.T) {
		seed(t)

		deleted, err := service.DeleteMembers([]string{"11111", "22222"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), deleted)

		var count int64
		require.NoError(t, db.Model(&models.Member{}).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("Activity records survive deletion", func(t *testing.T) {
		seed(t)
		record := models.ActivityRecord{RecordID: "rec_x", Name: "john smith", Operational: "Operational", Activity: "Training", EpochTimestamp: 1000}
		require.NoError(t, db.Create(&record).Error)

		_, err := service.DeleteMembers([]string{"11111"})
		require.NoError(t, err)

		var count int64
		require.NoError(t, db.Model(&models.ActivityRecord{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Empty list rejected", func(t *testing.T) {
		seed(t)

		_, err := service.DeleteMembers(nil)
		apiErr := requireAPIError(t, err)
		assert.Equal(t, 400, apiErr.HTTPStatus)
	})

	t.Run("Invalid member number rejected before delete", func(t *testing.T) {
		seed(t)

		_, err := service.DeleteMembers([]string{"11111", "1; DROP TABLE members"})
		apiErr := requireAPIError(t, err)
		assert.Equal(t, 400, apiErr.HTTPStatus)

		var count int64
		require.NoError(t, db.Model(&models.Member{}).Count(&count).Error)
		assert.Equal(t, int64(2), count)
	})

	t.Run("No matching members", func(t *testing.T) {
		seed(t)

		_, err := service.DeleteMembers([]string{"99999"})
		apiErr := requireAPIError(t, err)
		assert.Equal(t, 404, apiErr.HTTPStatus)
		assert.Equal(t, "No matching members found", apiErr.Message)
	})
}
