package event

import "github.com/opencode-ai/sessionwatch/pkg/types"

// SessionCreatedData is the data for session.created events.
type SessionCreatedData struct {
	Key types.SessionKey `json:"key"`
}

// SessionDeletedData is the data for session.deleted events.
type SessionDeletedData struct {
	Key types.SessionKey `json:"key"`
}

// EventAppendedData is the data for event.appended events.
type EventAppendedData struct {
	Key   types.SessionKey `json:"key"`
	Event types.Event      `json:"event"`
	Index int              `json:"index"`
}

// MonitorData is the data for monitor.started and monitor.stopped events.
type MonitorData struct {
	Key types.SessionKey `json:"key"`
}

// MonitorAlertData is the data for monitor.alert events.
type MonitorAlertData struct {
	Key        types.SessionKey `json:"key"`
	Detector   string           `json:"detector"`
	EventIndex int              `json:"eventIndex"`
	Message    string           `json:"message,omitempty"`
}

// InjectionData is the data for injection.queued and injection.delivered events.
type InjectionData struct {
	Key     types.SessionKey `json:"key"`
	Message string           `json:"message"`
}
