// Package calendar lays out schedule entries on a Monday-to-Sunday week grid.
//
// Layout is a pure function: given a reference date, the current time and a
// list of entries it returns a Grid describing the hour axis, the seven day
// columns and one positioned Block per entry that starts inside the week.
// Positions use one unit per minute since local midnight, so a block starting
// at 09:00 has Top 540.
//
// An entry that crosses midnight is cut off at the end of its start day:
// Height only looks at the time of day of the end, and is clamped at zero.
package calendar
