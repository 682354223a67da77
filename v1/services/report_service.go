package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brigade-attendance/attendance-backend/pkg/apperrors"
	"github.com/brigade-attendance/attendance-backend/pkg/monitoring"
	"github.com/brigade-attendance/attendance-backend/v1/models"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// summaryHeader is the column layout for grouped-per-member exports
var summaryHeader = []interface{}{
	"Name", "Member number", "Status", "Membership Classification",
	"Membership type", "Operational activities", "Non-operational activities",
}

// detailedHeader is the column layout for row-per-record exports
var detailedHeader = []interface{}{
	"Name", "Member number", "Status", "Membership Classification",
	"Membership type", "Operational", "Activity", "Activity detail",
	"Activity location", "Timestamp",
}

// ReportService runs attendance queries and builds spreadsheet exports
type ReportService struct {
	db            *gorm.DB
	memberService *MemberService
	location      *time.Location
	maxRows       int
}

// NewReportService creates a new report service
func NewReportService(db *gorm.DB, memberService *MemberService) *ReportService {
	location, err := time.LoadLocation(models.ReportTimeZone)
	if err != nil {
		slog.Warn("Failed to load report timezone, falling back to UTC",
			"timezone", models.ReportTimeZone, "error", err)
		location = time.UTC
	}
	return &ReportService{
		db:            db,
		memberService: memberService,
		location:      location,
		maxRows:       models.MaxExportRows,
	}
}

// validateFilter checks the required range and its one-year bound
func (s *ReportService) validateFilter(filter models.ReportFilter) error {
	if filter.StartEpoch <= 0 || filter.EndEpoch <= 0 {
		return apperrors.MissingFieldError("startEpoch/endEpoch")
	}
	if filter.EndEpoch < filter.StartEpoch {
		return apperrors.ValidationError("End of range precedes its start")
	}
	if filter.EndEpoch-filter.StartEpoch > models.MaxReportRangeMs {
		return apperrors.ValidationError("Date range cannot exceed one year")
	}
	return nil
}

// queryRecords fetches records in the range with equality filters applied.
// A limit of 0 means unbounded.
func (s *ReportService) queryRecords(ctx context.Context, filter models.ReportFilter, limit int) ([]models.ActivityRecord, error) {
	query := s.db.Where("epoch_timestamp >= ? AND epoch_timestamp <= ?",
		filter.StartEpoch, filter.EndEpoch)

	equalityFilters := []struct {
		column string
		value  string
	}{
		{"name", filter.Name},
		{"operational", filter.Operational},
		{"activity", filter.Activity},
		{"ba_type", filter.BaType},
		{"chainsaw_type", filter.ChainsawType},
		{"deployment_type", filter.DeploymentType},
		{"deployment_location", filter.DeploymentLocation},
	}
	for _, f := range equalityFilters {
		if f.value != "" {
			query = query.Where(f.column+" = ?", f.value)
		}
	}

	if limit > 0 {
		query = query.Limit(limit)
	}

	start := time.Now()
	var records []models.ActivityRecord
	err := query.Order("epoch_timestamp asc").Find(&records).Error
	monitoring.RecordDBLatency(ctx, "postgres", "report_query", time.Since(start))
	if err != nil {
		return nil, apperrors.DatabaseError("report query", err)
	}
	return records, nil
}

// formatTimestamp renders an epoch-milliseconds value in the report timezone
func (s *ReportService) formatTimestamp(epochMs int64) string {
	return time.UnixMilli(epochMs).In(s.location).Format(models.ReportTimestampLayout)
}

// RunReport returns the matching records as JSON with local timestamps.
// The result set is intentionally unbounded; only exports carry a row cap,
// because only workbook construction holds everything in memory twice.
func (s *ReportService) RunReport(ctx context.Context, filter models.ReportFilter) (*models.RunReportResponse, error) {
	if err := s.validateFilter(filter); err != nil {
		return nil, err
	}

	records, err := s.queryRecords(ctx, filter, 0)
	if err != nil {
		return nil, err
	}

	reportRecords := make([]models.ReportRecord, 0, len(records))
	for _, record := range records {
		reportRecords = append(reportRecords, models.ReportRecord{
			ActivityRecord: record,
			Timestamp:      s.formatTimestamp(record.EpochTimestamp),
		})
	}

	return &models.RunReportResponse{
		Count:   len(reportRecords),
		Records: reportRecords,
	}, nil
}

// memberLookupCache resolves display names to members once per export call
type memberLookupCache struct {
	service *MemberService
	entries map[string]*models.Member
}

// get returns the member for a display name, nil when the directory has no
// entry for it (the member may have been deleted since submission)
func (c *memberLookupCache) get(ctx context.Context, displayName string) (*models.Member, error) {
	if member, ok := c.entries[displayName]; ok {
		monitoring.RecordCacheEvent(ctx, "export_member_lookup", true)
		return member, nil
	}
	monitoring.RecordCacheEvent(ctx, "export_member_lookup", false)

	member, err := c.service.GetMemberByDisplayName(displayName)
	if err != nil {
		if apiErr, ok := apperrors.AsAPIError(err); ok && apiErr.Type == apperrors.ErrorTypeNotFound {
			c.entries[displayName] = nil
			return nil, nil
		}
		return nil, err
	}
	c.entries[displayName] = member
	return member, nil
}

// ExportReport builds an xlsx workbook for the filtered range and returns
// its filename and content. The whole export aborts on any store error; no
// partial file is ever returned.
func (s *ReportService) ExportReport(ctx context.Context, req *models.ExportReportRequest) (string, []byte, error) {
	if err := s.validateFilter(req.ReportFilter); err != nil {
		return "", nil, err
	}

	// Fetch one row past the cap so an oversized result is detected without
	// counting separately
	records, err := s.queryRecords(ctx, req.ReportFilter, s.maxRows+1)
	if err != nil {
		monitoring.RecordBusinessEvent(ctx, "report_export", false)
		return "", nil, err
	}
	if len(records) > s.maxRows {
		monitoring.RecordBusinessEvent(ctx, "report_export", false)
		return "", nil, apperrors.PayloadTooLargeError(
			fmt.Sprintf("Report exceeds the maximum of %d rows; narrow the filters", s.maxRows))
	}

	file := excelize.NewFile()
	defer func() {
		if err := file.Close(); err != nil {
			slog.Error("Failed to close workbook", "error", err)
		}
	}()

	if err := file.SetSheetName(file.GetSheetName(0), models.ExportSheetName); err != nil {
		return "", nil, apperrors.InternalError("Failed to build workbook", err)
	}

	cache := &memberLookupCache{service: s.memberService, entries: make(map[string]*models.Member)}

	var rowCount int
	var mode string
	if req.Detailed {
		mode = "detailed"
		rowCount, err = s.writeDetailedRows(ctx, file, records, cache, req.IncludeZeroAttendance)
	} else {
		mode = "summary"
		rowCount, err = s.writeSummaryRows(ctx, file, records, cache, req.IncludeZeroAttendance)
	}
	if err != nil {
		monitoring.RecordBusinessEvent(ctx, "report_export", false)
		return "", nil, err
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		monitoring.RecordBusinessEvent(ctx, "report_export", false)
		return "", nil, apperrors.InternalError("Failed to serialize workbook", err)
	}

	filename := s.exportFilename(req)
	monitoring.RecordExportRows(ctx, mode, int64(rowCount))
	monitoring.RecordBusinessEvent(ctx, "report_export", true)
	slog.Info("Report exported", "filename", filename, "mode", mode, "rows", rowCount)

	return filename, buf.Bytes(), nil
}

// identityColumns returns the five member columns shared by both layouts.
// Records whose member was deleted keep the submitted name with blanks for
// the directory fields.
func identityColumns(displayName string, member *models.Member) []interface{} {
	if member == nil {
		return []interface{}{displayName, "", "", "", ""}
	}
	return []interface{}{
		member.DisplayName, member.MemberNumber, member.Status,
		member.Classification, member.MembershipType,
	}
}

// attendanceCounters tracks per-member activity totals for the summary layout
type attendanceCounters struct {
	operational    int
	nonOperational int
}

// writeSummaryRows groups records per member with operational and
// non-operational counters, one row per member
func (s *ReportService) writeSummaryRows(ctx context.Context, file *excelize.File, records []models.ActivityRecord, cache *memberLookupCache, includeZeroAttendance bool) (int, error) {
	if err := file.SetSheetRow(models.ExportSheetName, "A1", &summaryHeader); err != nil {
		return 0, apperrors.InternalError("Failed to build workbook", err)
	}

	// Preserve first-seen order so the sheet follows the query order
	var names []string
	counters := make(map[string]*attendanceCounters)
	for _, record := range records {
		c, ok := counters[record.Name]
		if !ok {
			c = &attendanceCounters{}
			counters[record.Name] = c
			names = append(names, record.Name)
		}
		if record.Operational == string(models.OperationalFlagOperational) {
			c.operational++
		} else {
			c.nonOperational++
		}
	}

	row := 2
	for _, name := range names {
		member, err := cache.get(ctx, name)
		if err != nil {
			return 0, err
		}
		c := counters[name]
		cells := append(identityColumns(name, member), c.operational, c.nonOperational)
		if err := file.SetSheetRow(models.ExportSheetName, fmt.Sprintf("A%d", row), &cells); err != nil {
			return 0, apperrors.InternalError("Failed to build workbook", err)
		}
		row++
	}

	if includeZeroAttendance {
		members, err := s.memberService.GetAllMembers()
		if err != nil {
			return 0, err
		}
		for i := range members {
			member := &members[i]
			if _, seen := counters[member.DisplayName]; seen {
				continue
			}
			cells := append(identityColumns(member.DisplayName, member), 0, 0)
			if err := file.SetSheetRow(models.ExportSheetName, fmt.Sprintf("A%d", row), &cells); err != nil {
				return 0, apperrors.InternalError("Failed to build workbook", err)
			}
			row++
		}
	}

	return row - 2, nil
}

// writeDetailedRows writes one row per record with activity detail columns
func (s *ReportService) writeDetailedRows(ctx context.Context, file *excelize.File, records []models.ActivityRecord, cache *memberLookupCache, includeZeroAttendance bool) (int, error) {
	if err := file.SetSheetRow(models.ExportSheetName, "A1", &detailedHeader); err != nil {
		return 0, apperrors.InternalError("Failed to build workbook", err)
	}

	seen := make(map[string]bool)
	row := 2
	for i := range records {
		record := &records[i]
		seen[record.Name] = true

		member, err := cache.get(ctx, record.Name)
		if err != nil {
			return 0, err
		}

		cells := append(identityColumns(record.Name, member),
			record.Operational,
			record.Activity,
			record.DetailLabel(),
			record.LocationLabel(),
			s.formatTimestamp(record.EpochTimestamp),
		)
		if err := file.SetSheetRow(models.ExportSheetName, fmt.Sprintf("A%d", row), &cells); err != nil {
			return 0, apperrors.InternalError("Failed to build workbook", err)
		}
		row++
	}

	if includeZeroAttendance {
		members, err := s.memberService.GetAllMembers()
		if err != nil {
			return 0, err
		}
		for i := range members {
			member := &members[i]
			if seen[member.DisplayName] {
				continue
			}
			cells := append(identityColumns(member.DisplayName, member),
				"No recorded attendance", "", "", "", "")
			if err := file.SetSheetRow(models.ExportSheetName, fmt.Sprintf("A%d", row), &cells); err != nil {
				return 0, apperrors.InternalError("Failed to build workbook", err)
			}
			row++
		}
	}

	return row - 2, nil
}

// exportFilename derives the attachment name from the caller-provided range
// labels, falling back to the epochs rendered in the report timezone
func (s *ReportService) exportFilename(req *models.ExportReportRequest) string {
	start := req.FormattedStart
	if start == "" {
		start = time.UnixMilli(req.StartEpoch).In(s.location).Format(models.ExportDateLayout)
	}
	end := req.FormattedEnd
	if end == "" {
		end = time.UnixMilli(req.EndEpoch).In(s.location).Format(models.ExportDateLayout)
	}
	return fmt.Sprintf("member-attendance-report-%s-%s.xlsx", start, end)
}
