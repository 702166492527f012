package monitor

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/opencode-ai/sessionwatch/internal/logging"
	"github.com/opencode-ai/sessionwatch/pkg/types"
)

// excerptLen bounds the text excerpt in passive observation logs.
const excerptLen = 100

// PassiveDetector observes and logs new events without ever producing a
// message. Each text part is logged with its event index, role, and an
// excerpt; tool parts are logged by tool name.
type PassiveDetector struct {
	log zerolog.Logger
}

// NewPassiveDetector creates a passive observer.
func NewPassiveDetector() *PassiveDetector {
	return &PassiveDetector{
		log: logging.With().Str("detector", "passive").Logger(),
	}
}

func (d *PassiveDetector) Name() string { return "passive" }

func (d *PassiveDetector) Classify(ctx context.Context, events []types.Event, sess *types.Session) (Outcome, error) {
	base := len(sess.Events) - len(events)
	for i, ev := range events {
		for _, part := range ev.Parts {
			switch p := part.(type) {
			case *types.TextPart:
				d.log.Info().
					Int("eventIndex", base+i).
					Str("role", string(ev.Role)).
					Str("text", excerpt(p.Text)).
					Msg("observed text")
			case *types.ToolPart:
				d.log.Info().
					Int("eventIndex", base+i).
					Str("role", string(ev.Role)).
					Str("tool", p.ToolName).
					Msg("observed tool call")
			}
		}
	}
	if len(sess.State) > 0 {
		d.log.Debug().Interface("state", sess.State).Msg("session state")
	}
	return Outcome{}, nil
}

func excerpt(text string) string {
	if len(text) <= excerptLen {
		return text
	}
	return text[:excerptLen] + "..."
}
