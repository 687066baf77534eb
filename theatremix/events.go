package theatremix

import (
	"fmt"

	"github.com/zenibako/theatremix-display/queue"
)

// EventKind names an agent event for logging and metrics.
type EventKind string

const (
	EventCueFired      EventKind = "cue_fired"
	EventSubscribeOK   EventKind = "subscribe_ok"
	EventSubscribeFail EventKind = "subscribe_fail"
	EventThump         EventKind = "thump"
	EventError         EventKind = "error"
)

// Event is published by the agent to the display. The concrete types are
// CueFired, SubscribeOK, SubscribeFail, Thump and Error.
type Event interface {
	Kind() EventKind
}

// CueFired carries the cue from a /cuefired message.
type CueFired struct {
	Cue CueInfo
}

// SubscribeOK acknowledges a subscription. Expiry is the lease in seconds,
// already clamped to the two-second minimum.
type SubscribeOK struct {
	Expiry uint32
}

// SubscribeFail reports that the console refused the subscription.
type SubscribeFail struct{}

// Thump is the console's keep-alive.
type Thump struct{}

// Error reports an endpoint setup failure.
type Error struct {
	Err *EndpointError
}

func (CueFired) Kind() EventKind      { return EventCueFired }
func (SubscribeOK) Kind() EventKind   { return EventSubscribeOK }
func (SubscribeFail) Kind() EventKind { return EventSubscribeFail }
func (Thump) Kind() EventKind         { return EventThump }
func (Error) Kind() EventKind         { return EventError }

// Reason is the human-readable failure text shown in the status line.
func (e Error) Reason() string {
	if e.Err == nil {
		return "unknown error"
	}
	return e.Err.Error()
}

// Command is sent from the display to the agent.
type Command interface {
	isCommand()
}

// SetHost points the agent at a new console host.
type SetHost struct {
	Host string
}

func (SetHost) isCommand() {}

// Endpoint setup stages reported in EndpointError.Op.
const (
	OpResolve = "resolve"
	OpBind    = "bind"
)

// EndpointError describes why the agent could not set up its UDP endpoint.
type EndpointError struct {
	Op   string
	Host string
	Err  error
}

func (e *EndpointError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Host, e.Err)
}

func (e *EndpointError) Unwrap() error {
	return e.Err
}

// Channels bundles both directions between the agent and the display.
type Channels struct {
	Events   *queue.Queue[Event]
	Commands *queue.Queue[Command]
}

// NewChannels creates an empty pair of queues.
func NewChannels() Channels {
	return Channels{
		Events:   queue.New[Event](),
		Commands: queue.New[Command](),
	}
}
