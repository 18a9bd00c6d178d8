// Package planner turns a raw scan into an ordered connection plan and
// drives individual connection attempts.
//
// The plan is built in two steps. Normalize cleans the scan and sorts it by
// signal strength, strongest first, keeping scan order among equals. Rank
// then walks the known networks in preference order and, for each, the
// sorted scan, emitting one Candidate per matching access point. Preference
// therefore always beats signal strength: every candidate of the first
// known network comes before any candidate of the second.
//
// An Attempter joins one candidate and polls the station for a bounded
// time. The first candidate that connects wins.
package planner
