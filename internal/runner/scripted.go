package runner

import (
	"context"
	"sync"
	"time"

	"github.com/opencode-ai/sessionwatch/internal/session"
	"github.com/opencode-ai/sessionwatch/pkg/types"
)

// DefaultScriptedReply is returned once a ScriptedRunner's script is exhausted.
const DefaultScriptedReply = "Understood. Let me know if you need anything else."

// ScriptedRunner is a TurnRunner that replays a fixed list of model replies,
// one per turn. It appends the user event and the scripted model event to the
// store exactly like a real runtime would, which makes it suitable for
// exercising monitors and coordinators end to end.
type ScriptedRunner struct {
	store session.Store

	mu      sync.Mutex
	replies []string
}

// NewScriptedRunner creates a scripted runner over the given store.
func NewScriptedRunner(store session.Store, replies ...string) *ScriptedRunner {
	return &ScriptedRunner{store: store, replies: replies}
}

// Run appends the user event, then the next scripted model reply.
func (r *ScriptedRunner) Run(ctx context.Context, key types.SessionKey, newMessage string, onEvent func(types.Event)) error {
	now := time.Now().UnixMilli()

	userEv := types.TextEvent(session.NewID(), types.RoleUser, newMessage, now)
	if err := r.store.AppendEvent(ctx, key, userEv); err != nil {
		return err
	}
	if onEvent != nil {
		onEvent(userEv)
	}

	r.mu.Lock()
	reply := DefaultScriptedReply
	if len(r.replies) > 0 {
		reply = r.replies[0]
		r.replies = r.replies[1:]
	}
	r.mu.Unlock()

	modelEv := types.TextEvent(session.NewID(), types.RoleModel, reply, time.Now().UnixMilli())
	if err := r.store.AppendEvent(ctx, key, modelEv); err != nil {
		return err
	}
	if onEvent != nil {
		onEvent(modelEv)
	}
	return nil
}
