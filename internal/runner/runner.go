// Package runner defines the turn execution interface and the driver-side
// injection coordinator.
//
// A turn runner executes one conversation turn: it appends the inbound user
// event and every resulting model event to the session store, streaming them
// to the caller as they are appended. The real agent runtime (model
// invocation, tool execution) lives behind this interface; this package ships
// only a scripted implementation for demos and tests.
package runner

import (
	"context"

	"github.com/opencode-ai/sessionwatch/pkg/types"
)

// TurnRunner executes one conversation turn against a session.
//
// Run appends the user event for newMessage, produces zero or more model
// events, and invokes onEvent (if non-nil) for each appended event in order.
// A nil return guarantees every produced event is durably appended and
// visible to a subsequent store read.
type TurnRunner interface {
	Run(ctx context.Context, key types.SessionKey, newMessage string, onEvent func(types.Event)) error
}
