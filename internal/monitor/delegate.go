package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/opencode-ai/sessionwatch/pkg/types"
)

// Analyst is the slice of the turn runner the delegated detector needs: one
// synchronous turn against the monitor agent's own session.
type Analyst interface {
	Run(ctx context.Context, key types.SessionKey, newMessage string, onEvent func(types.Event)) error
}

// DefaultSentinels are the substrings that mark an analysis response as
// calling for intervention.
var DefaultSentinels = []string{"intervene", "issue"}

// DelegatedDetector forwards each batch to a second agent (the monitor
// agent) for analysis. The batch is rendered as "role: text" lines, run as
// one turn on the analyst's own session, and the full response is scanned
// for sentinel substrings. On a match the detector prepares an insight
// message; whether it is actually queued is controlled by AutoEnqueue.
//
// The analyst call runs inside the poll tick, so its latency delays the next
// poll. Set Timeout to bound a slow analyst; zero means no bound.
type DelegatedDetector struct {
	// Analyst executes the analysis turn.
	Analyst Analyst
	// Key is the monitor agent's own session, distinct from the watched one.
	Key types.SessionKey
	// Sentinels are matched case-insensitively against the analysis
	// response. Defaults to DefaultSentinels.
	Sentinels []string
	// AutoEnqueue controls whether a matched analysis produces a message for
	// injection (true) or only an observable match (false, the default).
	AutoEnqueue bool
	// Timeout bounds a single analyst call. Zero disables the bound.
	Timeout time.Duration
	// InsightLimit truncates the quoted analysis in the prepared message.
	// Zero means the default of 200 characters.
	InsightLimit int
}

func (d *DelegatedDetector) Name() string { return "delegated" }

func (d *DelegatedDetector) Classify(ctx context.Context, events []types.Event, sess *types.Session) (Outcome, error) {
	var lines []string
	for _, ev := range events {
		for _, part := range ev.Parts {
			if tp, ok := part.(*types.TextPart); ok && tp.Text != "" {
				lines = append(lines, fmt.Sprintf("%s: %s", ev.Role, tp.Text))
			}
		}
	}
	if len(lines) == 0 {
		return Outcome{}, nil
	}

	prompt := fmt.Sprintf(
		"Analyze this conversation excerpt:\n\n%s\n\nShould I intervene or provide feedback?",
		strings.Join(lines, "\n"))

	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	var analysis strings.Builder
	err := d.Analyst.Run(ctx, d.Key, prompt, func(ev types.Event) {
		if ev.Role == types.RoleModel {
			analysis.WriteString(ev.Text())
		}
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("analysis turn failed: %w", err)
	}

	sentinels := d.Sentinels
	if len(sentinels) == 0 {
		sentinels = DefaultSentinels
	}

	response := analysis.String()
	lower := strings.ToLower(response)
	for _, sentinel := range sentinels {
		if !strings.Contains(lower, strings.ToLower(sentinel)) {
			continue
		}
		out := Outcome{
			Matched:    true,
			EventIndex: len(sess.Events) - len(events),
			Trigger:    sentinel,
		}
		if d.AutoEnqueue {
			out.Message = fmt.Sprintf("[Monitor Insight] %s", truncate(response, d.insightLimit()))
		}
		return out, nil
	}
	return Outcome{}, nil
}

func (d *DelegatedDetector) insightLimit() int {
	if d.InsightLimit > 0 {
		return d.InsightLimit
	}
	return 200
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
