// Package cmd implements the command-line interface for schedcli.
//
// Every command restores the persisted session and performs one action of
// the schedule controller:
//   - login, register, logout, whoami: session handling
//   - week, list, add, delete: the logged-in user's schedule
//   - admin users|schedules|add|delete: manage other users' schedules (admin only)
//   - serve: run the local web UI with health and metrics endpoints
//   - version: display version information
package cmd
