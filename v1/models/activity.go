package models

import (
	"github.com/brigade-attendance/attendance-backend/pkg/apperrors"
)

// ActivityRecord is one reported attendance event. Name matches a member's
// display name at submission time; it is not a foreign key, so historical
// records survive member deletion. At most one sub-field group is populated,
// determined by Activity.
type ActivityRecord struct {
	RecordID           string  `gorm:"primarykey;column:record_id" json:"recordId"`
	Name               string  `gorm:"column:name;not null;index" json:"name"`
	Operational        string  `gorm:"column:operational;not null" json:"operational"`
	Activity           string  `gorm:"column:activity;not null" json:"activity"`
	EpochTimestamp     int64   `gorm:"column:epoch_timestamp;not null;index" json:"epochTimestamp"`
	BaType             *string `gorm:"column:ba_type" json:"baType,omitempty"`
	ChainsawType       *string `gorm:"column:chainsaw_type" json:"chainsawType,omitempty"`
	DeploymentType     *string `gorm:"column:deployment_type" json:"deploymentType,omitempty"`
	DeploymentLocation *string `gorm:"column:deployment_location" json:"deploymentLocation,omitempty"`
	OtherType          *string `gorm:"column:other_type" json:"otherType,omitempty"`
	BaseModel
}

// TableName sets the table name for GORM
func (ActivityRecord) TableName() string {
	return "activity_records"
}

// ActivityDetail is the tagged sub-field variant for an activity category.
// Build one through NewActivityDetail so the "which fields for which
// activity" invariant holds at construction time, not just at validation.
type ActivityDetail struct {
	BaType             string
	ChainsawType       string
	DeploymentType     string
	DeploymentLocation string
	OtherType          string
}

// NewActivityDetail validates the conditional requirements for activity and
// returns a detail carrying only the applicable fields. Fields supplied for
// a non-matching activity are dropped rather than persisted.
func NewActivityDetail(activity string, in ActivityDetail) (ActivityDetail, error) {
	var out ActivityDetail
	switch activity {
	case ActivityBAChecks:
		if in.BaType == "" {
			return out, apperrors.MissingFieldError("baType")
		}
		out.BaType = in.BaType
	case ActivityChainsawChecks:
		if in.ChainsawType == "" {
			return out, apperrors.MissingFieldError("chainsawType")
		}
		out.ChainsawType = in.ChainsawType
	case ActivityDeployment:
		if in.DeploymentType == "" {
			return out, apperrors.MissingFieldError("deploymentType")
		}
		if in.DeploymentLocation == "" {
			return out, apperrors.MissingFieldError("deploymentLocation")
		}
		out.DeploymentType = in.DeploymentType
		out.DeploymentLocation = in.DeploymentLocation
	case ActivityOtherOperational, ActivityOtherNonOperational:
		if in.OtherType == "" {
			return out, apperrors.MissingFieldError("otherType")
		}
		out.OtherType = in.OtherType
	}
	return out, nil
}

// Apply copies the populated sub-fields onto a record, leaving the rest nil
func (d ActivityDetail) Apply(rec *ActivityRecord) {
	if d.BaType != "" {
		rec.BaType = &d.BaType
	}
	if d.ChainsawType != "" {
		rec.ChainsawType = &d.ChainsawType
	}
	if d.DeploymentType != "" {
		rec.DeploymentType = &d.DeploymentType
	}
	if d.DeploymentLocation != "" {
		rec.DeploymentLocation = &d.DeploymentLocation
	}
	if d.OtherType != "" {
		rec.OtherType = &d.OtherType
	}
}

// DetailLabel returns the populated sub-field for detailed exports, in
// baType > chainsawType > deploymentType > otherType priority order
func (r *ActivityRecord) DetailLabel() string {
	switch {
	case r.BaType != nil && *r.BaType != "":
		return *r.BaType
	case r.ChainsawType != nil && *r.ChainsawType != "":
		return *r.ChainsawType
	case r.DeploymentType != nil && *r.DeploymentType != "":
		return *r.DeploymentType
	case r.OtherType != nil && *r.OtherType != "":
		return *r.OtherType
	}
	return ""
}

// LocationLabel returns the deployment location, if any
func (r *ActivityRecord) LocationLabel() string {
	if r.DeploymentLocation != nil {
		return *r.DeploymentLocation
	}
	return ""
}
