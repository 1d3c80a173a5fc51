package api

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/schedcli/internal/instrumentation"
)

// call wraps Request in an api.<operation> span.
func (c *Client) call(ctx context.Context, operation, method, endpoint string, body any, attrs ...attribute.KeyValue) (*Response, error) {
	attrs = append(attrs, attribute.String(instrumentation.SpanAttrEndpoint, instrumentation.TemplateEndpoint(endpoint)))
	ctx, span := instrumentation.StartAPISpan(ctx, operation, attrs...)
	defer span.End()

	resp, err := c.Request(ctx, method, endpoint, body)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}
	instrumentation.SetSpanSuccess(span)
	return resp, nil
}

// Register creates an account. The created user is discarded.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	_, err := c.call(ctx, instrumentation.OperationRegister, http.MethodPost, "/users/register", reg)
	return err
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, creds Credentials) (string, error) {
	resp, err := c.call(ctx, instrumentation.OperationLogin, http.MethodPost, "/users/login", creds)
	if err != nil {
		return "", err
	}

	var out loginResponse
	if err := resp.Decode(&out); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("login: %w: response carries no token", ErrMalformedResponse)
	}
	return out.Token, nil
}

// ListSchedules returns the entries owned by userID in server order. A 204
// answer is an empty list.
func (c *Client) ListSchedules(ctx context.Context, userID int64) ([]ScheduleEntry, error) {
	endpoint := fmt.Sprintf("/users/%d/schedules", userID)
	resp, err := c.call(ctx, instrumentation.OperationListSchedules, http.MethodGet, endpoint, nil,
		attribute.Int64(instrumentation.SpanAttrTargetID, userID))
	if err != nil {
		return nil, err
	}
	if resp.NoContent {
		return nil, nil
	}

	var entries []ScheduleEntry
	if err := resp.Decode(&entries); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return entries, nil
}

// CreateSchedule creates an entry. Start and end times are converted to UTC.
// A 204 answer yields a nil entry and no error.
func (c *Client) CreateSchedule(ctx context.Context, in NewSchedule) (*ScheduleEntry, error) {
	in.StartTime = in.StartTime.UTC()
	in.EndTime = in.EndTime.UTC()

	resp, err := c.call(ctx, instrumentation.OperationCreateSchedule, http.MethodPost, "/schedules", in,
		attribute.Int64(instrumentation.SpanAttrTargetID, in.OwnerID))
	if err != nil {
		return nil, err
	}
	if resp.NoContent {
		return nil, nil
	}

	var created ScheduleEntry
	if err := resp.Decode(&created); err != nil {
		return nil, fmt.Errorf("create schedule: %w", err)
	}
	return &created, nil
}

// DeleteSchedule deletes an entry. The API answers 204; any other 2xx is
// accepted as well.
func (c *Client) DeleteSchedule(ctx context.Context, id int64) error {
	endpoint := fmt.Sprintf("/schedules/%d", id)
	_, err := c.call(ctx, instrumentation.OperationDeleteSchedule, http.MethodDelete, endpoint, nil,
		attribute.Int64(instrumentation.SpanAttrEntryID, id))
	return err
}

// ListUsers returns every account. The server only allows the admin. A 204
// answer is an empty list.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	resp, err := c.call(ctx, instrumentation.OperationListUsers, http.MethodGet, "/admin/users", nil)
	if err != nil {
		return nil, err
	}
	if resp.NoContent {
		return nil, nil
	}

	var users []User
	if err := resp.Decode(&users); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
