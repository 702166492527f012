// Package monitor implements background session monitoring: a polling loop
// that diffs a session's event growth against a cursor, classifies new events
// with a pluggable detector, and queues messages for injection subject to an
// intervention budget.
//
// The monitor is strictly read-only on the session. Anything it wants to say
// goes through the injection queue and is delivered by the driver-side
// coordinator at a turn boundary.
package monitor
