package actorutil

import (
	"solarspy/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
)

type forRequest struct {
	req domain.ActorRequest
}

type ExtendedRequest interface {
	Respond(ctx actor.Context, resp domain.ActorResponse)
	RespondTo(ctx actor.Context, sender *actor.PID, resp domain.ActorResponse)
	ReplyTo(ctx actor.Context) *actor.PID
}

func ForRequest(r domain.ActorRequest) ExtendedRequest {
	return forRequest{req: r}
}

func (r forRequest) Respond(ctx actor.Context, resp domain.ActorResponse) {
	r.RespondTo(ctx, ctx.Sender(), resp)
}

// RespondTo answers a request that is not the current message, e.g. one that
// was stashed. Fire-and-forget requests get no response.
func (r forRequest) RespondTo(ctx actor.Context, sender *actor.PID, resp domain.ActorResponse) {
	if r.req.ReplyTo() != nil {
		sender = (*actor.PID)(r.req.ReplyTo())
	}
	if sender != nil {
		ctx.Send(sender, resp)
	}
}

func (r forRequest) ReplyTo(ctx actor.Context) *actor.PID {
	if r.req.ReplyTo() != nil {
		return (*actor.PID)(r.req.ReplyTo())
	}
	return ctx.Sender()
}
