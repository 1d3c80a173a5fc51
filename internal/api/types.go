package api

import "time"

// ScheduleEntry is one calendar entry as returned by the API.
type ScheduleEntry struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	OwnerID     int64     `json:"owner_id"`
	CreatorID   int64     `json:"creator_id,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
}

// NewSchedule is the body of POST /schedules. Times are sent in UTC.
type NewSchedule struct {
	Title       string    `json:"title"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	OwnerID     int64     `json:"owner_id"`
}

// User is an account as listed by GET /admin/users.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// Registration is the body of POST /users/register.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Credentials is the body of POST /users/login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}
