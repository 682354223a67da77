package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	// AuditLogsEndpoint is the API endpoint for creating audit logs
	AuditLogsEndpoint = "/api/audit-logs"
	// DefaultHTTPTimeout is the default timeout for HTTP requests to the audit service
	DefaultHTTPTimeout = 10 * time.Second
)

// Auditor is the abstraction handlers log through. Implementations must be
// asynchronous (fire-and-forget), degrade gracefully when the audit service
// is unavailable, and be safe for concurrent use.
type Auditor interface {
	// LogEvent logs an audit event asynchronously. When auditing is disabled
	// or unavailable it returns immediately without error.
	LogEvent(ctx context.Context, event *AuditLogRequest)

	// IsEnabled reports whether audit logging is currently active, letting
	// callers skip event preparation when it is not.
	IsEnabled() bool
}

// Client sends audit events to the external audit service
type Client struct {
	baseURL    string
	httpClient *http.Client
	enabled    bool
}

// NewClient creates a new audit client. Auditing is disabled by an empty
// baseURL or by ENABLE_AUDIT=false; a disabled client turns every LogEvent
// into a no-op.
func NewClient(baseURL string) *Client {
	enabled := isAuditEnabled(baseURL)

	if !enabled {
		slog.Info("Audit client disabled",
			"reason", "ENABLE_AUDIT=false or audit service URL not configured",
			"impact", "Services will continue running but audit events will not be logged")
		return &Client{enabled: false}
	}

	slog.Info("Audit client initialized", "baseURL", baseURL)
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultHTTPTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
			},
		},
		enabled: true,
	}
}

// IsEnabled returns whether the audit client is enabled
func (c *Client) IsEnabled() bool {
	return c.enabled
}

// LogEvent sends an audit event to the audit service asynchronously
// (fire-and-forget). It returns immediately; delivery happens in a
// background goroutine on a background context so cancellation of the
// request context does not drop the event.
func (c *Client) LogEvent(ctx context.Context, event *AuditLogRequest) {
	if !c.enabled || c.httpClient == nil {
		return
	}

	go c.logEvent(context.Background(), event)
}

func (c *Client) logEvent(ctx context.Context, event *AuditLogRequest) {
	payloadBytes, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal audit request", "error", err)
		return
	}

	endpointURL, err := url.JoinPath(c.baseURL, AuditLogsEndpoint)
	if err != nil {
		slog.Error("Failed to construct audit service URL", "error", err, "baseURL", c.baseURL)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewReader(payloadBytes))
	if err != nil {
		slog.Error("Failed to create audit request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("Failed to send audit request", "error", err)
		return
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			slog.Error("Failed to close audit response body", "error", err)
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusCreated {
		bodyBytes, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			slog.Error("Audit service returned non-201 status and failed to read body",
				"status", resp.StatusCode, "readError", readErr)
		} else {
			slog.Error("Audit service returned non-201 status",
				"status", resp.StatusCode, "body", string(bodyBytes))
		}
		return
	}

	slog.Info("Audit event logged successfully",
		"eventType", event.EventType,
		"actorType", event.ActorType,
		"actorId", event.ActorID,
		"targetType", event.TargetType,
		"status", event.Status)
}

// isAuditEnabled checks if audit logging is enabled. Auditing defaults to
// enabled whenever a URL is configured.
func isAuditEnabled(baseURL string) bool {
	if baseURL == "" {
		return false
	}

	enableAudit := os.Getenv("ENABLE_AUDIT")
	if enableAudit == "" {
		return true
	}

	enableAuditLower := strings.ToLower(strings.TrimSpace(enableAudit))
	return enableAuditLower == "true" || enableAuditLower == "1" || enableAuditLower == "yes"
}
