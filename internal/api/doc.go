// Package api is the client for the remote scheduling API.
//
// Client.Request is the single network boundary of schedcli. It sends JSON,
// attaches the bearer token when the session holds one and normalizes the
// three possible outcomes of a call:
//
//   - a non-2xx status becomes an *APIError carrying the raw body text
//   - a 204 becomes a Response with NoContent set, distinct from an empty object
//   - any other 2xx body must be valid JSON, otherwise ErrMalformedResponse
//
// Transport failures are reported as *NetworkError. Nothing is retried.
//
// The typed helpers (Login, ListSchedules, CreateSchedule, ...) wrap Request
// for each endpoint of the API and open an OpenTelemetry span per call.
package api
