package monitor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencode-ai/sessionwatch/pkg/types"
)

// fakeAnalyst replies to every analysis turn with a fixed model response,
// recording the prompts it was given.
type fakeAnalyst struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeAnalyst) Run(ctx context.Context, key types.SessionKey, newMessage string, onEvent func(types.Event)) error {
	f.prompts = append(f.prompts, newMessage)
	if f.err != nil {
		return f.err
	}
	onEvent(types.TextEvent("user-1", types.RoleUser, newMessage, 0))
	onEvent(types.TextEvent("model-1", types.RoleModel, f.response, 0))
	return nil
}

func analystKey() types.SessionKey {
	return types.SessionKey{AppID: "demo_app", UserID: "user123", SessionID: "monitor_session"}
}

func TestDelegatedDetector_SentinelMatch(t *testing.T) {
	analyst := &fakeAnalyst{response: "I would intervene here: the agent is about to delete user data."}
	d := &DelegatedDetector{Analyst: analyst, Key: analystKey()}

	events := []types.Event{modelText("Deleting all records now.")}
	out, err := d.Classify(context.Background(), events, sessionWith(events...))
	require.NoError(t, err)

	assert.True(t, out.Matched)
	assert.Equal(t, "intervene", out.Trigger)
	assert.Empty(t, out.Message, "AutoEnqueue is off by default")

	require.Len(t, analyst.prompts, 1)
	assert.Contains(t, analyst.prompts[0], "model: Deleting all records now.")
	assert.Contains(t, analyst.prompts[0], "Should I intervene or provide feedback?")
}

func TestDelegatedDetector_AutoEnqueue(t *testing.T) {
	analyst := &fakeAnalyst{response: "There is an issue with this plan."}
	d := &DelegatedDetector{Analyst: analyst, Key: analystKey(), AutoEnqueue: true}

	events := []types.Event{modelText("Plan drafted.")}
	out, err := d.Classify(context.Background(), events, sessionWith(events...))
	require.NoError(t, err)

	assert.True(t, out.Matched)
	assert.Contains(t, out.Message, "[Monitor Insight]")
	assert.Contains(t, out.Message, "There is an issue")
}

func TestDelegatedDetector_NoSentinel(t *testing.T) {
	analyst := &fakeAnalyst{response: "Everything looks fine, carry on."}
	d := &DelegatedDetector{Analyst: analyst, Key: analystKey()}

	events := []types.Event{modelText("Done.")}
	out, err := d.Classify(context.Background(), events, sessionWith(events...))
	require.NoError(t, err)
	assert.False(t, out.Matched)
}

func TestDelegatedDetector_CustomSentinels(t *testing.T) {
	analyst := &fakeAnalyst{response: "ESCALATE: this needs a human."}
	d := &DelegatedDetector{Analyst: analyst, Key: analystKey(), Sentinels: []string{"escalate"}}

	events := []types.Event{modelText("Proceeding.")}
	out, err := d.Classify(context.Background(), events, sessionWith(events...))
	require.NoError(t, err)
	assert.True(t, out.Matched)
	assert.Equal(t, "escalate", out.Trigger)
}

func TestDelegatedDetector_EmptyBatchSkipsAnalyst(t *testing.T) {
	analyst := &fakeAnalyst{response: "intervene"}
	d := &DelegatedDetector{Analyst: analyst, Key: analystKey()}

	out, err := d.Classify(context.Background(), nil, sessionWith())
	require.NoError(t, err)
	assert.False(t, out.Matched)
	assert.Empty(t, analyst.prompts)
}

func TestDelegatedDetector_AnalystError(t *testing.T) {
	analyst := &fakeAnalyst{err: errors.New("provider unavailable")}
	d := &DelegatedDetector{Analyst: analyst, Key: analystKey()}

	events := []types.Event{modelText("Working.")}
	_, err := d.Classify(context.Background(), events, sessionWith(events...))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis turn failed")
}

func TestDelegatedDetector_TruncatesInsight(t *testing.T) {
	long := "issue " + strings.Repeat("padding ", 100)
	analyst := &fakeAnalyst{response: long}
	d := &DelegatedDetector{Analyst: analyst, Key: analystKey(), AutoEnqueue: true, InsightLimit: 50}

	events := []types.Event{modelText("Working.")}
	out, err := d.Classify(context.Background(), events, sessionWith(events...))
	require.NoError(t, err)
	require.True(t, out.Matched)
	assert.LessOrEqual(t, len(out.Message), len("[Monitor Insight] ")+50)
}

func TestMultiDetector_FirstMessageWins(t *testing.T) {
	budget := NewBudget(10)
	multi := NewMultiDetector(
		NewPassiveDetector(),
		NewTriggerDetector(budget),
		NewCommandDetector(budget),
	)

	events := []types.Event{modelText("Running rm -rf /tmp/scratch to clean up.")}
	out, err := multi.Classify(context.Background(), events, sessionWith(events...))
	require.NoError(t, err)

	assert.True(t, out.Matched)
	assert.Equal(t, "rm -rf", out.Trigger)
	assert.Contains(t, out.Message, "SAFETY WARNING")
	// The command detector never ran against the budget for this batch.
	assert.Equal(t, 1, budget.Used())
}
