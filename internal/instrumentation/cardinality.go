package instrumentation

import (
	"strconv"
	"strings"
)

// Cardinality management helpers for metrics.
//
// API endpoints carry user and schedule ids in their paths. Recording them
// verbatim would create one time series per id, so every label value that
// may contain an id goes through TemplateEndpoint first.

// IDPlaceholder replaces numeric path segments in templated endpoints.
const IDPlaceholder = "{id}"

// TemplateEndpoint replaces every purely numeric path segment with IDPlaceholder
// and drops any query string.
//
// Example:
//
//	TemplateEndpoint("/users/12/schedules")  // "/users/{id}/schedules"
//	TemplateEndpoint("/schedules/7")         // "/schedules/{id}"
//	TemplateEndpoint("/login")               // "/login"
//	TemplateEndpoint("")                     // "unknown"
func TemplateEndpoint(endpoint string) string {
	if endpoint == "" {
		return "unknown"
	}
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		endpoint = endpoint[:i]
	}

	segments := strings.Split(endpoint, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if _, err := strconv.ParseInt(seg, 10, 64); err == nil {
			segments[i] = IDPlaceholder
		}
	}
	return strings.Join(segments, "/")
}

// Operation names used for spans and audit records.
const (
	OperationLogin          = "login"
	OperationRegister       = "register"
	OperationListSchedules  = "list_schedules"
	OperationCreateSchedule = "create_schedule"
	OperationDeleteSchedule = "delete_schedule"
	OperationListUsers      = "list_users"
)
