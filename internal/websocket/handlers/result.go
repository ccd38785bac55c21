package handlers

// EmitScope describes where an event should be emitted.
type EmitScope int

const (
	emitScopeUnknown EmitScope = iota
	emitScopeSelf
	emitScopeAll
)

// EmitInstruction describes a single outbound emission produced by a handler
// call.
type EmitInstruction struct {
	scope    EmitScope
	event    string
	payload  any
	skipSelf bool
}

func newSelfEmit(event string, payload any) EmitInstruction {
	return EmitInstruction{scope: emitScopeSelf, event: event, payload: payload}
}

func newBroadcastSkippingSelf(event string, payload any) EmitInstruction {
	return EmitInstruction{scope: emitScopeAll, event: event, payload: payload, skipSelf: true}
}

// Scope returns where the event should be emitted.
func (e EmitInstruction) Scope() EmitScope { return e.scope }

// IsSelf reports whether the event goes back to the calling socket only.
func (e EmitInstruction) IsSelf() bool { return e.scope == emitScopeSelf }

// IsAll reports whether the event goes to every authenticated socket.
func (e EmitInstruction) IsAll() bool { return e.scope == emitScopeAll }

// SkipSelf reports whether the transport adapter should skip emitting the event
// back to the calling socket.
func (e EmitInstruction) SkipSelf() bool { return e.skipSelf }

// Event returns the event name.
func (e EmitInstruction) Event() string { return e.event }

// Payload returns the event payload.
func (e EmitInstruction) Payload() any { return e.payload }

// EventResult is the output of a handler invocation.
type EventResult struct {
	ack   any
	emits []EmitInstruction
}

// NewEventResult constructs a handler result.
func NewEventResult(ack any, emits []EmitInstruction) EventResult {
	return EventResult{ack: ack, emits: emits}
}

// Ack returns the ACK payload to send to the caller.
func (r EventResult) Ack() any { return r.ack }

// Emits returns the list of emissions requested by the handler.
func (r EventResult) Emits() []EmitInstruction { return r.emits }
