package models

// CheckUsernameRequest is the public identity-check payload
type CheckUsernameRequest struct {
	Username string `json:"username"`
}

// CheckUsernameResponse confirms a recognized username
type CheckUsernameResponse struct {
	DisplayName string `json:"displayName"`
}

// SubmitAttendanceRequest is the public attendance submission payload.
// Name is the spaces form of the member's display name; the sub-fields are
// required or ignored depending on Activity.
type SubmitAttendanceRequest struct {
	Name               string `json:"name"`
	Operational        string `json:"operational"`
	Activity           string `json:"activity"`
	EpochTimestamp     int64  `json:"epochTimestamp"`
	BaType             string `json:"baType,omitempty"`
	ChainsawType       string `json:"chainsawType,omitempty"`
	DeploymentType     string `json:"deploymentType,omitempty"`
	DeploymentLocation string `json:"deploymentLocation,omitempty"`
	OtherType          string `json:"otherType,omitempty"`
}

// SubmitAttendanceResponse returns the stored record's identifier
type SubmitAttendanceResponse struct {
	RecordID string `json:"recordId"`
}

// NameSearchRequest is the username autocomplete payload
type NameSearchRequest struct {
	Query string `json:"query"`
}

// NameSearchResponse lists usernames matching a search query
type NameSearchResponse struct {
	Usernames []string `json:"usernames"`
}

// CreateMemberRequest is the admin member-creation payload. Website is a
// honeypot: any non-empty value rejects the request.
type CreateMemberRequest struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	MemberNumber   string `json:"memberNumber"`
	Status         string `json:"status"`
	Classification string `json:"classification"`
	MembershipType string `json:"membershipType"`
	Website        string `json:"website,omitempty"`
}

// UpdateMemberRequest carries the full replacement state for a member. The
// member being updated is addressed by its current number in the URL; the
// body may carry a new number.
type UpdateMemberRequest struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	MemberNumber   string `json:"memberNumber"`
	Status         string `json:"status"`
	Classification string `json:"classification"`
	MembershipType string `json:"membershipType"`
}

// DeleteMembersRequest is the bulk member delete payload
type DeleteMembersRequest struct {
	MemberNumbers []string `json:"memberNumbers"`
}

// DeleteMembersResponse reports how many members were removed
type DeleteMembersResponse struct {
	DeletedCount int64 `json:"deletedCount"`
}

// ReportFilter bounds and narrows a report query. StartEpoch and EndEpoch
// are required; the remaining fields are optional equality filters.
type ReportFilter struct {
	StartEpoch         int64  `json:"startEpoch"`
	EndEpoch           int64  `json:"endEpoch"`
	Name               string `json:"name,omitempty"`
	Operational        string `json:"operational,omitempty"`
	Activity           string `json:"activity,omitempty"`
	BaType             string `json:"baType,omitempty"`
	ChainsawType       string `json:"chainsawType,omitempty"`
	DeploymentType     string `json:"deploymentType,omitempty"`
	DeploymentLocation string `json:"deploymentLocation,omitempty"`
}

// ReportRecord is an activity record decorated with its local-time rendering
type ReportRecord struct {
	ActivityRecord
	Timestamp string `json:"timestamp"`
}

// RunReportResponse carries the matched records and their count
type RunReportResponse struct {
	Count   int            `json:"count"`
	Records []ReportRecord `json:"records"`
}

// ExportReportRequest asks for a spreadsheet instead of a JSON result set.
// FormattedStart/FormattedEnd name the file; when absent the filter epochs
// are rendered in the report timezone instead.
type ExportReportRequest struct {
	ReportFilter
	IncludeZeroAttendance bool   `json:"includeZeroAttendance"`
	Detailed              bool   `json:"detailed"`
	FormattedStart        string `json:"formattedStart,omitempty"`
	FormattedEnd          string `json:"formattedEnd,omitempty"`
}
