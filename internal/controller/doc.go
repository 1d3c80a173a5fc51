// Package controller owns the application state of schedcli and turns user
// actions into API calls.
//
// An App holds one State: the UI mode (logged out or showing a schedule),
// the decoded identity, the cached entries of the logged-in user, the
// reference date of the displayed week and, for the admin, the user list and
// the currently selected user. Every action takes the App's mutex for its
// whole duration, so actions never interleave.
//
// The identity decoded from the token is unverified. It only decides what
// is shown (for example the admin panel); the server authorizes every call.
package controller
