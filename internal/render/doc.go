// Package render prints controller state on a terminal: the week grid, entry
// lists, the admin user list and the admin selection.
package render
