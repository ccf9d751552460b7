package domain

// Command is consumed by the control actor, one at a time, in arrival order.
type Command interface {
	ActorRequest
	ControlCommand() string
}

type StartCommand struct {
	ActorRequestMixIn
}

func (StartCommand) ControlCommand() string {
	return "start"
}

type StopCommand struct {
	ActorRequestMixIn
}

func (StopCommand) ControlCommand() string {
	return "stop"
}

type TickCommand struct {
	ActorRequestMixIn
}

func (TickCommand) ControlCommand() string {
	return "tick"
}

type ControlState string

const (
	CONTROL_STATE_STARTING ControlState = "starting"
	CONTROL_STATE_STOPPED  ControlState = "stopped"
	CONTROL_STATE_RUNNING  ControlState = "running"
	CONTROL_STATE_FAILED   ControlState = "failed"
)

// CommandResponse answers Start, Stop and GetStateRequest with the state the
// control loop is in after handling them.
type CommandResponse struct {
	ActorResponseMixIn
	State ControlState
}

type GetStateRequest struct {
	ActorRequestMixIn
}

// SessionEnded is sent by the control actor to its parent once it gave up.
type SessionEnded struct {
	Kind  ErrorKind
	Error error
}

// ensure interface compliance
var (
	_ Command = StartCommand{}
	_ Command = StopCommand{}
	_ Command = TickCommand{}
)
