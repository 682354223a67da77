package models

// OperationalFlag classifies an activity record as operational or not
type OperationalFlag string

const (
	OperationalFlagOperational    OperationalFlag = "Operational"
	OperationalFlagNonOperational OperationalFlag = "Non-Operational"
)

// Activity labels with conditional sub-fields. Labels without sub-fields
// (Meeting, Training, Incident-Call, ...) are free-form categorical values
// and only pattern-checked.
const (
	ActivityBAChecks            = "BA-Checks"
	ActivityChainsawChecks      = "Chainsaw-Checks"
	ActivityDeployment          = "Deployment"
	ActivityOtherOperational    = "Other-operational"
	ActivityOtherNonOperational = "Other-Non-operational"
)

// AuditStatus represents the status of audit events
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "SUCCESS"
	AuditStatusFailure AuditStatus = "FAILURE"
)

// ResourceType represents different resource types for auditing
type ResourceType string

const (
	ResourceTypeMembers           ResourceType = "MEMBERS"
	ResourceTypeAttendanceRecords ResourceType = "ATTENDANCE-RECORDS"
	ResourceTypeReports           ResourceType = "REPORTS"
)

// Username length bounds for the public identity check
const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
)

// Report engine bounds. The row cap keeps workbook construction memory
// predictable; the range bound keeps a single query from scanning more
// than a year of records.
const (
	MaxExportRows    = 50000
	MaxReportRangeMs = int64(365) * 24 * 3600 * 1000
)

// Reporting timezone and formats. All submitted epochs are rendered in the
// brigade's local timezone regardless of where the server runs.
const (
	ReportTimeZone        = "Australia/Sydney"
	ReportTimestampLayout = "2006-01-02 15:04"
	ExportDateLayout      = "20060102"
)

// ExportSheetName is the single worksheet every export carries
const ExportSheetName = "Report"
