package actor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solarspy/internal/config"
	"solarspy/internal/core/domain"
	"solarspy/internal/core/port"
	. "solarspy/internal/util/actorutil"
	"solarspy/pkg/powerwall"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

const DEFAULT_FETCH_TIMEOUT = 5 * time.Second

var ErrSessionFailed = errors.New("control session has failed")

// ControlActor owns the display and the telemetry client. Its mailbox is the
// command queue: Start, Stop and Tick are handled one at a time, in order.
type ControlActor struct {
	ActorWithStates
	stash        *Stash
	display      port.StatusDisplay
	client       port.TelemetryClient
	eventStream  *eventstream.EventStream
	fetchTimeout time.Duration
	parent       *actor.PID

	cancelStartup context.CancelFunc
	startupDone   chan struct{}
	failure       error

	logger *zap.Logger
}

type startupResult struct {
	err error
}

// controlState lets stashed messages be replayed straight into a state,
// ahead of anything queued in the mailbox.
type controlState interface {
	ActorState
	handle(ctx actor.Context, msg any, sender *actor.PID)
}

func NewControlActor(cfg *config.Config, display port.StatusDisplay, client port.TelemetryClient, eventStream *eventstream.EventStream, logger *zap.Logger) *ControlActor {
	act := &ControlActor{
		stash:        &Stash{},
		display:      display,
		client:       client,
		eventStream:  eventStream,
		fetchTimeout: FetchTimeout(cfg),
		logger:       ActorLogger(domain.ACTOR_ID_CONTROL, logger),
		ActorWithStates: ActorWithStates{
			Behavior: actor.NewBehavior(),
		},
	}
	act.Become(CStartingState{
		actor: act,
	})
	return act
}

func FetchTimeout(cfg *config.Config) time.Duration {
	if cfg.MonitorConfig.FetchTimeoutMillis == 0 {
		return DEFAULT_FETCH_TIMEOUT
	}
	return time.Duration(cfg.MonitorConfig.FetchTimeoutMillis) * time.Millisecond
}

func (state *ControlActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

func (state *ControlActor) replayStash(ctx actor.Context) {
	if state.stash.Len() > 0 {
		state.logger.Debug("replaying stashed messages", zap.Int("count", state.stash.Len()), zap.String("state", state.StateName()))
	}
	state.stash.ReplayAll(func(msg any, sender *actor.PID) {
		state.Current().(controlState).handle(ctx, msg, sender)
	})
}

// Starting state

type CStartingState struct {
	ActorState
	actor *ControlActor
}

func (state CStartingState) Name() string {
	return string(domain.CONTROL_STATE_STARTING)
}

func (state CStartingState) Receive(ctx actor.Context) {
	state.handle(ctx, ctx.Message(), ctx.Sender())
}

func (state CStartingState) handle(ctx actor.Context, message any, sender *actor.PID) {
	switch msg := message.(type) {
	case *actor.Started:
		state.actor.logger.Debug("control@starting started")
		state.actor.parent = ctx.Parent()
		state.actor.startup(ctx)
	case startupResult:
		state.actor.cancelStartup = nil
		if msg.err != nil {
			state.actor.fail(ctx, fmt.Errorf("startup: %w", msg.err))
		} else {
			state.actor.logger.Info("display is ready")
			state.actor.Become(CStoppedState{
				actor: state.actor,
			})
		}
		state.actor.replayStash(ctx)
	case domain.ActorHealthRequest:
		state.actor.respondHealth(ctx, msg, sender, true)
	case domain.GetStateRequest:
		state.actor.respondState(ctx, msg, sender, domain.CONTROL_STATE_STARTING, nil)
	case domain.TickCommand:
		// back to back ticks collapse into one, so a long startup does not
		// end in a burst of fetches
		if prev, prevSender, ok := state.actor.stash.StashLatest(ctx, msg, isTick); ok {
			state.actor.respondState(ctx, prev.(domain.ActorRequest), prevSender, domain.CONTROL_STATE_STARTING, nil)
		}
	case domain.Command:
		state.actor.logger.Debug("control@starting: stash", zap.String("command", msg.ControlCommand()))
		state.actor.stash.Stash(ctx, msg)
	case *actor.Stopping:
		state.actor.release()
	default:
		state.actor.logger.Debug("control@starting: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// startup runs the power-on animation for as long as the connection wait
// lasts. The outcome comes back to the mailbox as a startupResult.
func (state *ControlActor) startup(ctx actor.Context) {
	startCtx, cancel := context.WithCancel(context.Background())
	state.cancelStartup = cancel
	state.startupDone = make(chan struct{})

	self := ctx.Self()
	root := ctx.ActorSystem().Root
	display, client, done := state.display, state.client, state.startupDone

	go func() {
		defer close(done)
		err := runStartup(startCtx, display, client)
		root.Send(self, startupResult{err: err})
	}()
}

// runStartup ends when the connection wait does. The animation is cancelled
// at that point; it only ends the race itself when the display fails.
func runStartup(ctx context.Context, display port.StatusDisplay, client port.TelemetryClient) error {
	animCtx, cancelAnim := context.WithCancel(ctx)
	defer cancelAnim()
	waitCtx, cancelWait := context.WithCancel(ctx)
	defer cancelWait()

	animDone := make(chan error, 1)
	waitDone := make(chan error, 1)
	go func() { animDone <- display.Startup(animCtx) }()
	go func() { waitDone <- client.WaitForConnection(waitCtx) }()

	var err error
	select {
	case err = <-waitDone:
		cancelAnim()
		if animErr := <-animDone; err == nil {
			err = animErr
		}
	case animErr := <-animDone:
		if animErr != nil {
			// the indicator is broken, no point in waiting
			cancelWait()
			<-waitDone
			return animErr
		}
		err = <-waitDone
	}
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return display.Clear()
}

// Stopped state

type CStoppedState struct {
	ActorState
	actor *ControlActor
}

func (state CStoppedState) Name() string {
	return string(domain.CONTROL_STATE_STOPPED)
}

func (state CStoppedState) Receive(ctx actor.Context) {
	state.handle(ctx, ctx.Message(), ctx.Sender())
}

func (state CStoppedState) handle(ctx actor.Context, message any, sender *actor.PID) {
	switch msg := message.(type) {
	case domain.ActorHealthRequest:
		state.actor.respondHealth(ctx, msg, sender, true)
	case domain.GetStateRequest:
		state.actor.respondState(ctx, msg, sender, domain.CONTROL_STATE_STOPPED, nil)
	case domain.StartCommand:
		state.actor.logger.Info("control@stopped: start")
		state.actor.Become(CRunningState{
			actor: state.actor,
		})
		state.actor.eventStream.Publish(domain.DisplayStateUpdateEvent{Active: true})
		state.actor.respondState(ctx, msg, sender, domain.CONTROL_STATE_RUNNING, nil)
	case domain.StopCommand:
		state.actor.respondState(ctx, msg, sender, domain.CONTROL_STATE_STOPPED, nil)
	case domain.TickCommand:
		state.actor.logger.Debug("control@stopped: tick ignored")
		state.actor.respondState(ctx, msg, sender, domain.CONTROL_STATE_STOPPED, nil)
	case *actor.Stopping:
		state.actor.release()
	default:
		state.actor.logger.Debug("control@stopped: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// Running state

type CRunningState struct {
	ActorState
	actor *ControlActor
}

func (state CRunningState) Name() string {
	return string(domain.CONTROL_STATE_RUNNING)
}

func (state CRunningState) Receive(ctx actor.Context) {
	state.handle(ctx, ctx.Message(), ctx.Sender())
}

func (state CRunningState) handle(ctx actor.Context, message any, sender *actor.PID) {
	switch msg := message.(type) {
	case domain.ActorHealthRequest:
		state.actor.respondHealth(ctx, msg, sender, true)
	case domain.GetStateRequest:
		state.actor.respondState(ctx, msg, sender, domain.CONTROL_STATE_RUNNING, nil)
	case domain.TickCommand:
		if err := state.actor.tick(); err != nil {
			state.actor.fail(ctx, err)
			state.actor.respondState(ctx, msg, sender, domain.CONTROL_STATE_FAILED, err)
			return
		}
		state.actor.respondState(ctx, msg, sender, domain.CONTROL_STATE_RUNNING, nil)
	case domain.StopCommand:
		state.actor.logger.Info("control@running: stop")
		if err := state.actor.display.Clear(); err != nil {
			state.actor.fail(ctx, fmt.Errorf("clear display: %w", err))
			state.actor.respondState(ctx, msg, sender, domain.CONTROL_STATE_FAILED, err)
			return
		}
		state.actor.Become(CStoppedState{
			actor: state.actor,
		})
		state.actor.eventStream.Publish(domain.DisplayStateUpdateEvent{Active: false})
		state.actor.respondState(ctx, msg, sender, domain.CONTROL_STATE_STOPPED, nil)
	case domain.StartCommand:
		state.actor.respondState(ctx, msg, sender, domain.CONTROL_STATE_RUNNING, nil)
	case *actor.Stopping:
		state.actor.release()
	default:
		state.actor.logger.Debug("control@running: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// tick fetches one reading and renders it.
func (state *ControlActor) tick() error {
	var (
		reading  powerwall.Reading
		fetchErr error
	)
	NewBackgroundTask(func() (*powerwall.Reading, error) {
		fetchCtx, cancel := context.WithTimeout(context.Background(), state.fetchTimeout)
		defer cancel()
		return state.client.GetStats(fetchCtx)
	}).WithTimeout(state.fetchTimeout).OnError(func(err error) {
		fetchErr = err
	}).OnSuccess(func(r powerwall.Reading) {
		reading = r
	}).Run()
	if fetchErr != nil {
		return fmt.Errorf("fetch telemetry: %w", fetchErr)
	}

	if err := state.display.ShowStatus(&reading); err != nil {
		return fmt.Errorf("render reading: %w", err)
	}
	state.logger.Debug("reading rendered",
		zap.Int32("solar", reading.SolarPowerWatts),
		zap.Int32("house", reading.HousePowerWatts),
		zap.Int32("battery", reading.BatteryPowerWatts),
		zap.Int32("grid", reading.GridPowerWatts),
		zap.Float64("battery_level", reading.BatteryLevelPercent))
	state.eventStream.Publish(domain.ReadingUpdateEvent{Reading: reading})
	return nil
}

// Failed state

type CFailedState struct {
	ActorState
	actor *ControlActor
}

func (state CFailedState) Name() string {
	return string(domain.CONTROL_STATE_FAILED)
}

func (state CFailedState) Receive(ctx actor.Context) {
	state.handle(ctx, ctx.Message(), ctx.Sender())
}

func (state CFailedState) handle(ctx actor.Context, message any, sender *actor.PID) {
	switch msg := message.(type) {
	case domain.ActorHealthRequest:
		state.actor.respondHealth(ctx, msg, sender, false)
	case domain.GetStateRequest:
		state.actor.respondState(ctx, msg, sender, domain.CONTROL_STATE_FAILED, nil)
	case domain.Command:
		state.actor.logger.Debug("control@failed: ignored", zap.String("command", msg.ControlCommand()))
		state.actor.respondState(ctx, msg, sender, domain.CONTROL_STATE_FAILED, fmt.Errorf("%w: %w", ErrSessionFailed, state.actor.failure))
	case *actor.Stopping:
		state.actor.release()
	default:
		state.actor.logger.Debug("control@failed: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// fail shows the error, announces the end of the session and parks the actor.
func (state *ControlActor) fail(ctx actor.Context, err error) {
	kind := domain.Classify(err)
	state.logger.Error("control session failed", zap.String("kind", string(kind)), zap.Error(err))
	state.failure = err

	if derr := state.display.ShowError(err); derr != nil {
		state.logger.Warn("could not show error on display", zap.Error(derr))
	}
	state.eventStream.Publish(domain.SessionEndedEvent{Kind: kind, Error: err})
	if state.parent != nil {
		ctx.Send(state.parent, domain.SessionEnded{Kind: kind, Error: err})
	}
	state.Become(CFailedState{
		actor: state,
	})
}

// release cancels a pending startup and hands the display hardware back.
func (state *ControlActor) release() {
	if state.cancelStartup != nil {
		state.cancelStartup()
		state.cancelStartup = nil
	}
	if state.startupDone != nil {
		<-state.startupDone
	}
	if err := state.display.Shutdown(); err != nil {
		state.logger.Warn("display shutdown failed", zap.Error(err))
	}
}

func (state *ControlActor) respondHealth(ctx actor.Context, req domain.ActorRequest, sender *actor.PID, healthy bool) {
	ForRequest(req).RespondTo(ctx, sender, domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_CONTROL,
		Healthy: healthy,
		State:   state.StateName(),
	})
}

func isTick(msg any) bool {
	_, ok := msg.(domain.TickCommand)
	return ok
}

func (state *ControlActor) respondState(ctx actor.Context, req domain.ActorRequest, sender *actor.PID, controlState domain.ControlState, err error) {
	ForRequest(req).RespondTo(ctx, sender, domain.CommandResponse{
		ActorResponseMixIn: domain.ActorResponseMixIn{
			ResponseError: err,
		},
		State: controlState,
	})
}

// ensure interface compliance
var (
	_ controlState = CStartingState{}
	_ controlState = CStoppedState{}
	_ controlState = CRunningState{}
	_ controlState = CFailedState{}
)
