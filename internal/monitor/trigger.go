package monitor

import (
	"context"
	"fmt"
	"strings"

	"github.com/opencode-ai/sessionwatch/pkg/types"
)

// DefaultTriggers are the substrings the trigger detector watches for when
// none are configured.
var DefaultTriggers = []string{"rm -rf", "delete all", "drop database", "password", "api key", "secret"}

// DefaultWarning is the message composed for a trigger match when no
// composer is configured.
const DefaultWarning = "SAFETY WARNING (from monitoring system): a potentially " +
	"destructive or sensitive operation was detected in the conversation. " +
	"Please review carefully before proceeding."

// TriggerDetector matches case-insensitive substrings against the text parts
// of new events and composes one warning message per matching batch. An
// optional budget suppresses messages once exhausted.
type TriggerDetector struct {
	// Triggers are the substrings to match, case-insensitive.
	// Defaults to DefaultTriggers.
	Triggers []string
	// Roles restricts which event roles are inspected. Empty means model only.
	Roles []types.Role
	// FirstMatchOnly stops scanning a batch at the first match. When false
	// the whole batch is scanned and the last match wins. Either way one
	// message at most is produced per batch.
	FirstMatchOnly bool
	// Budget, when set, is consumed before a message is produced. An
	// exhausted budget turns the detection into an observe-only outcome.
	Budget *Budget
	// Compose builds the warning message for a matched trigger. Defaults to
	// a fixed warning naming the trigger.
	Compose func(trigger string, ev types.Event) string
}

// NewTriggerDetector creates a trigger detector with the default trigger set,
// model-role filtering, and first-match-only batching.
func NewTriggerDetector(budget *Budget) *TriggerDetector {
	return &TriggerDetector{
		Triggers:       DefaultTriggers,
		Roles:          []types.Role{types.RoleModel},
		FirstMatchOnly: true,
		Budget:         budget,
	}
}

func (d *TriggerDetector) Name() string { return "trigger" }

func (d *TriggerDetector) Classify(ctx context.Context, events []types.Event, sess *types.Session) (Outcome, error) {
	triggers := d.Triggers
	if len(triggers) == 0 {
		triggers = DefaultTriggers
	}
	roles := d.Roles
	if len(roles) == 0 {
		roles = []types.Role{types.RoleModel}
	}

	base := len(sess.Events) - len(events)
	var out Outcome

	for i, ev := range events {
		if !roleAllowed(ev.Role, roles) {
			continue
		}
		for _, part := range ev.Parts {
			tp, ok := part.(*types.TextPart)
			if !ok {
				continue
			}
			text := strings.ToLower(tp.Text)
			for _, trigger := range triggers {
				if !strings.Contains(text, strings.ToLower(trigger)) {
					continue
				}
				out = Outcome{
					Matched:    true,
					EventIndex: base + i,
					Trigger:    trigger,
					Message:    d.compose(trigger, ev),
				}
				if d.FirstMatchOnly {
					return d.applyBudget(out), nil
				}
			}
		}
	}

	return d.applyBudget(out), nil
}

func (d *TriggerDetector) compose(trigger string, ev types.Event) string {
	if d.Compose != nil {
		return d.Compose(trigger, ev)
	}
	return fmt.Sprintf("%s Matched pattern: %q.", DefaultWarning, trigger)
}

// applyBudget strips the message from a matched outcome when the budget is
// exhausted. The match itself is preserved so alerts still fire.
func (d *TriggerDetector) applyBudget(out Outcome) Outcome {
	if out.Message == "" || d.Budget == nil {
		return out
	}
	if !d.Budget.TryConsume() {
		out.Message = ""
	}
	return out
}

func roleAllowed(role types.Role, roles []types.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
