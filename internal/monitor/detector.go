package monitor

import (
	"context"

	"github.com/opencode-ai/sessionwatch/pkg/types"
)

// Outcome is the result of classifying one batch of new events.
type Outcome struct {
	// Matched reports whether the detector found something noteworthy.
	Matched bool
	// Message is the text to queue for injection. Empty means observe only.
	Message string
	// EventIndex is the index into the session's event log of the event that
	// matched.
	EventIndex int
	// Trigger names what matched, for alert payloads and logs.
	Trigger string
}

// Detector classifies newly appended session events. Classify receives the
// batch in append order together with a snapshot of the full session; it must
// not mutate either. Malformed or non-text parts are skipped, never fatal: a
// returned error means the whole tick failed and the batch will be offered
// again.
type Detector interface {
	// Name identifies the detector in logs and alert events.
	Name() string
	Classify(ctx context.Context, events []types.Event, sess *types.Session) (Outcome, error)
}

// MultiDetector runs detectors in order and returns the first outcome that
// carries a message; match-only outcomes are remembered so a later detector
// cannot mask an earlier observation.
type MultiDetector struct {
	detectors []Detector
}

// NewMultiDetector combines detectors into one.
func NewMultiDetector(detectors ...Detector) *MultiDetector {
	return &MultiDetector{detectors: detectors}
}

func (m *MultiDetector) Name() string { return "multi" }

func (m *MultiDetector) Classify(ctx context.Context, events []types.Event, sess *types.Session) (Outcome, error) {
	var first Outcome
	for _, d := range m.detectors {
		out, err := d.Classify(ctx, events, sess)
		if err != nil {
			return Outcome{}, err
		}
		if out.Message != "" {
			return out, nil
		}
		if out.Matched && !first.Matched {
			first = out
		}
	}
	return first, nil
}
