// Package web serves the schedule UI as server-rendered HTML for a single
// local user.
//
// One controller.App sits behind the server and every form post maps to one
// controller action followed by a 303 redirect back to the page. The week
// grid is drawn from calendar.Grid with one pixel per minute. Forms are
// protected with gorilla/csrf and entry descriptions in the admin panel are
// rendered as Markdown with raw HTML escaped.
package web
