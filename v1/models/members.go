package models

// Member represents one registered person in the member directory.
// MemberNumber is the mutation key used by admin update/delete; DisplayName
// is the join target referenced by activity records.
type Member struct {
	MemberNumber   string `gorm:"primarykey;column:member_number" json:"memberNumber"`
	DisplayName    string `gorm:"column:display_name;not null;unique" json:"displayName"`
	Username       string `gorm:"column:username;not null;unique" json:"username"`
	Status         string `gorm:"column:status;not null" json:"status"`
	Classification string `gorm:"column:classification;not null" json:"classification"`
	MembershipType string `gorm:"column:membership_type;not null" json:"membershipType"`
	BaseModel
}

// TableName sets the table name for GORM
func (Member) TableName() string {
	return "members"
}
