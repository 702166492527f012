package types

import "encoding/json"

// Part represents a component of an event's content.
type Part interface {
	PartType() string
	PartID() string
}

// TextPart represents a text content part.
type TextPart struct {
	ID   string `json:"id"`
	Type string `json:"type"` // always "text"
	Text string `json:"text"`
}

func (p *TextPart) PartType() string { return "text" }
func (p *TextPart) PartID() string   { return p.ID }

// ToolPart represents a structured tool call and its result.
type ToolPart struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"` // always "tool"
	ToolName string         `json:"toolName"`
	Input    map[string]any `json:"input,omitempty"`
	Output   *string        `json:"output,omitempty"`
	State    string         `json:"state,omitempty"` // "pending" | "running" | "completed" | "error"
}

func (p *ToolPart) PartType() string { return "tool" }
func (p *ToolPart) PartID() string   { return p.ID }

// UnmarshalPart unmarshals a JSON part into the appropriate concrete type.
// Unknown types decode as text so a malformed part never aborts a batch.
func UnmarshalPart(data []byte) (Part, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	switch probe.Type {
	case "tool":
		var p ToolPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	default:
		var p TextPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return &p, nil
	}
}
