// Package types provides the core data types shared by the sessionwatch
// store, runner, and monitor.
package types

import "fmt"

// SessionKey identifies a session by the (application, user, session) triple.
type SessionKey struct {
	AppID     string `json:"appID"`
	UserID    string `json:"userID"`
	SessionID string `json:"sessionID"`
}

// String renders the key as "app/user/session" for logs and storage paths.
func (k SessionKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.AppID, k.UserID, k.SessionID)
}

// Session is the durable record of one conversation: an append-only event
// sequence plus a mutable key-value state blob. Events are in insertion
// order, which is chronological order; they are never reordered or truncated.
type Session struct {
	AppID     string         `json:"appID"`
	UserID    string         `json:"userID"`
	ID        string         `json:"id"`
	Events    []Event        `json:"events"`
	State     map[string]any `json:"state,omitempty"`
	Time      SessionTime    `json:"time"`
}

// Key returns the session's identifying triple.
func (s *Session) Key() SessionKey {
	return SessionKey{AppID: s.AppID, UserID: s.UserID, SessionID: s.ID}
}

// SessionTime contains timestamps for a session, in unix milliseconds.
type SessionTime struct {
	Created int64 `json:"created"`
	Updated int64 `json:"updated"`
}
