package types

import "encoding/json"

// Role identifies the author of an event.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Event is one appended contribution to a session: a role plus an ordered
// sequence of content parts. Events are immutable once appended.
type Event struct {
	ID    string    `json:"id"`
	Role  Role      `json:"role"`
	Parts []Part    `json:"parts"`
	Time  EventTime `json:"time"`
}

// EventTime contains the creation timestamp of an event, in unix milliseconds.
type EventTime struct {
	Created int64 `json:"created"`
}

// Text concatenates the text of all text parts in the event.
func (e Event) Text() string {
	var out string
	for _, p := range e.Parts {
		if tp, ok := p.(*TextPart); ok {
			out += tp.Text
		}
	}
	return out
}

// UnmarshalJSON handles the polymorphic parts slice.
func (e *Event) UnmarshalJSON(data []byte) error {
	type alias Event
	aux := struct {
		*alias
		Parts []json.RawMessage `json:"parts"`
	}{alias: (*alias)(e)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	e.Parts = make([]Part, 0, len(aux.Parts))
	for _, raw := range aux.Parts {
		part, err := UnmarshalPart(raw)
		if err != nil {
			return err
		}
		e.Parts = append(e.Parts, part)
	}
	return nil
}

// TextEvent builds an event with a single text part.
func TextEvent(id string, role Role, text string, created int64) Event {
	return Event{
		ID:   id,
		Role: role,
		Parts: []Part{
			&TextPart{ID: id + "-0", Type: "text", Text: text},
		},
		Time: EventTime{Created: created},
	}
}
