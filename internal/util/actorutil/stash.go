package actorutil

import (
	"github.com/asynkron/protoactor-go/actor"
)

type Stash struct {
	stash []stashElem
}

type stashElem struct {
	msg    any
	sender *actor.PID
}

func (stash *Stash) Stash(ctx actor.Context, msg any) {
	stash.stash = append(stash.stash, stashElem{
		msg:    msg,
		sender: ctx.Sender(),
	})
}

// StashLatest stashes msg unless the newest stashed message is of the same
// kind, in which case msg takes its place. The displaced message and its
// sender are returned so the caller can answer it.
func (stash *Stash) StashLatest(ctx actor.Context, msg any, sameKind func(any) bool) (displaced any, displacedSender *actor.PID, ok bool) {
	if n := len(stash.stash); n > 0 && sameKind(stash.stash[n-1].msg) {
		prev := stash.stash[n-1]
		stash.stash[n-1] = stashElem{msg: msg, sender: ctx.Sender()}
		return prev.msg, prev.sender, true
	}
	stash.Stash(ctx, msg)
	return nil, nil, false
}

func (stash *Stash) Len() int {
	return len(stash.stash)
}

// UnstashAll sends the stashed messages back to the mailbox. They are queued
// behind whatever arrived meanwhile.
func (stash *Stash) UnstashAll(ctx actor.Context) {
	for _, elem := range stash.stash {
		ctx.RequestWithCustomSender(ctx.Self(), elem.msg, elem.sender)
	}
	stash.stash = nil
}

func (stash *Stash) UnstashOldest(ctx actor.Context) {
	if len(stash.stash) > 0 {
		first := stash.stash[0]
		ctx.RequestWithCustomSender(ctx.Self(), first.msg, first.sender)
		stash.stash = stash.stash[1:]
	}
}

// ReplayAll hands the stashed messages to fn, oldest first, before the actor
// picks up anything else from its mailbox.
func (stash *Stash) ReplayAll(fn func(msg any, sender *actor.PID)) {
	pending := stash.stash
	stash.stash = nil
	for _, elem := range pending {
		fn(elem.msg, elem.sender)
	}
}
