package actorutil

import (
	"github.com/asynkron/protoactor-go/actor"
)

// ActorWithStates drives an actor.Behavior from ActorState values and
// remembers which one is active.
type ActorWithStates struct {
	Behavior actor.Behavior
	current  ActorState
}

type ActorState interface {
	Name() string
	Receive(actor.Context)
}

func (s *ActorWithStates) Become(state ActorState) {
	s.current = state
	s.Behavior.Become(state.Receive)
}

// Current returns the active state, nil before the first Become.
func (s *ActorWithStates) Current() ActorState {
	return s.current
}

func (s *ActorWithStates) StateName() string {
	if current := s.Current(); current != nil {
		return current.Name()
	}
	return ""
}
