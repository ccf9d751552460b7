package actor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"solarspy/internal/adapter/display"
	"solarspy/internal/config"
	"solarspy/internal/core/domain"
	"solarspy/internal/core/port"
	"solarspy/internal/core/service"
	"solarspy/pkg/powerwall"
	"solarspy/pkg/sevenseg"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDisplay struct {
	mu         sync.Mutex
	startupErr error
	statusErr  error
	shown      []powerwall.Reading
	errors     []error
	clears     int
	shutdowns  int
}

func (d *fakeDisplay) Startup(ctx context.Context) error {
	d.mu.Lock()
	err := d.startupErr
	d.mu.Unlock()
	if err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func (d *fakeDisplay) ShowStatus(reading *powerwall.Reading) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.statusErr != nil {
		return d.statusErr
	}
	d.shown = append(d.shown, *reading)
	return nil
}

func (d *fakeDisplay) ShowError(err error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errors = append(d.errors, err)
	return nil
}

func (d *fakeDisplay) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clears++
	return nil
}

func (d *fakeDisplay) Shutdown() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shutdowns++
	return nil
}

func (d *fakeDisplay) counts() (shown, errors, clears, shutdowns int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.shown), len(d.errors), d.clears, d.shutdowns
}

type eventRecorder struct {
	mu     sync.Mutex
	events []any
}

func (r *eventRecorder) record(evt any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *eventRecorder) snapshot() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.events...)
}

var testControlReading = powerwall.Reading{
	SolarPowerWatts:     5000,
	HousePowerWatts:     1200,
	BatteryPowerWatts:   -800,
	GridPowerWatts:      -4000,
	BatteryLevelPercent: 62,
}

type controlFixture struct {
	system   *actor.ActorSystem
	pid      *actor.PID
	display  port.StatusDisplay
	client   *powerwall.TestClient
	recorder *eventRecorder
}

func newControlFixture(t *testing.T, display port.StatusDisplay, client *powerwall.TestClient) *controlFixture {
	as := actor.NewActorSystem()
	es := &eventstream.EventStream{}
	recorder := &eventRecorder{}
	es.Subscribe(recorder.record)

	cfg := &config.Config{MonitorConfig: config.MonitorConfig{FetchTimeoutMillis: 1000}}
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewControlActor(cfg, display, client, es, zap.NewNop())
	})
	pid, err := as.Root.SpawnNamed(props, domain.ACTOR_ID_CONTROL)
	require.NoError(t, err)
	t.Cleanup(as.Shutdown)

	return &controlFixture{system: as, pid: pid, display: display, client: client, recorder: recorder}
}

func (f *controlFixture) request(t *testing.T, msg any) domain.CommandResponse {
	res, err := f.system.Root.RequestFuture(f.pid, msg, 5*time.Second).Result()
	require.NoError(t, err)
	resp, ok := res.(domain.CommandResponse)
	require.True(t, ok, "unexpected response %T", res)
	return resp
}

func (f *controlFixture) waitState(t *testing.T, expected domain.ControlState) {
	assert.Eventually(t, func() bool {
		res, err := f.system.Root.RequestFuture(f.pid, domain.GetStateRequest{}, time.Second).Result()
		if err != nil {
			return false
		}
		resp, ok := res.(domain.CommandResponse)
		return ok && resp.State == expected
	}, 5*time.Second, 10*time.Millisecond)
}

func TestControlCommandsKeepOrderAcrossStartup(t *testing.T) {

	assert := assert.New(t)
	display := &fakeDisplay{}
	client := powerwall.NewTestClient(testControlReading)
	client.SetConnectionDelay(200*time.Millisecond, nil)
	f := newControlFixture(t, display, client)

	// sent while the actor is still starting, so they go through the stash
	f.system.Root.Send(f.pid, domain.StartCommand{})
	f.system.Root.Send(f.pid, domain.TickCommand{})
	f.system.Root.Send(f.pid, domain.TickCommand{})
	f.system.Root.Send(f.pid, domain.StopCommand{})
	resp := f.request(t, domain.TickCommand{})

	assert.Equal(domain.CONTROL_STATE_STOPPED, resp.State)
	assert.Equal(1, f.client.Fetches(), "ticks stashed back to back collapse, none after stop")
	shown, errs, clears, _ := display.counts()
	assert.Equal(1, shown)
	assert.Equal(0, errs)
	assert.Equal(2, clears, "startup clear and stop clear")
}

func TestControlCommandsKeepOrderWhenStopped(t *testing.T) {

	assert := assert.New(t)
	display := &fakeDisplay{}
	f := newControlFixture(t, display, powerwall.NewTestClient(testControlReading))
	f.waitState(t, domain.CONTROL_STATE_STOPPED)

	f.system.Root.Send(f.pid, domain.StartCommand{})
	f.system.Root.Send(f.pid, domain.TickCommand{})
	f.system.Root.Send(f.pid, domain.TickCommand{})
	f.system.Root.Send(f.pid, domain.StopCommand{})
	resp := f.request(t, domain.TickCommand{})

	assert.Equal(domain.CONTROL_STATE_STOPPED, resp.State)
	assert.Equal(2, f.client.Fetches())

	var readings, displayStates int
	for _, evt := range f.recorder.snapshot() {
		switch e := evt.(type) {
		case domain.ReadingUpdateEvent:
			readings++
			assert.Equal(int32(5000), e.Reading.SolarPowerWatts)
		case domain.DisplayStateUpdateEvent:
			displayStates++
		}
	}
	assert.Equal(2, readings)
	assert.Equal(2, displayStates)
}

func TestControlTickWhileStoppedIsIgnored(t *testing.T) {

	display := &fakeDisplay{}
	f := newControlFixture(t, display, powerwall.NewTestClient(testControlReading))
	f.waitState(t, domain.CONTROL_STATE_STOPPED)

	resp := f.request(t, domain.TickCommand{})
	assert.Equal(t, domain.CONTROL_STATE_STOPPED, resp.State)
	assert.Equal(t, 0, f.client.Fetches())
}

func TestControlFetchFailureEndsSession(t *testing.T) {

	assert := assert.New(t)
	display := &fakeDisplay{}
	client := powerwall.NewTestClient(testControlReading)
	client.SetStatsError(fmt.Errorf("%w: login responded 401", powerwall.ErrAuth))
	f := newControlFixture(t, display, client)
	f.waitState(t, domain.CONTROL_STATE_STOPPED)

	assert.Equal(domain.CONTROL_STATE_RUNNING, f.request(t, domain.StartCommand{}).State)
	resp := f.request(t, domain.TickCommand{})
	assert.Equal(domain.CONTROL_STATE_FAILED, resp.State)
	assert.ErrorIs(resp.GetResponseError(), powerwall.ErrAuth)

	_, errs, _, _ := display.counts()
	assert.Equal(1, errs, "error shown once")

	var ended []domain.SessionEndedEvent
	for _, evt := range f.recorder.snapshot() {
		if e, ok := evt.(domain.SessionEndedEvent); ok {
			ended = append(ended, e)
		}
	}
	require.Len(t, ended, 1)
	assert.Equal(domain.ERROR_KIND_AUTH, ended[0].Kind)

	// the session is over, further commands are refused
	resp = f.request(t, domain.StartCommand{})
	assert.Equal(domain.CONTROL_STATE_FAILED, resp.State)
	assert.ErrorIs(resp.GetResponseError(), ErrSessionFailed)
	assert.Equal(1, f.client.Fetches())

	res, err := f.system.Root.RequestFuture(f.pid, domain.ActorHealthRequest{}, time.Second).Result()
	require.NoError(t, err)
	health := res.(domain.ActorHealthResponse)
	assert.False(health.Healthy)
	assert.Equal(string(domain.CONTROL_STATE_FAILED), health.State)
}

func TestControlRenderFailureEndsSession(t *testing.T) {

	display := &fakeDisplay{statusErr: fmt.Errorf("wrapped: %w", context.DeadlineExceeded)}
	f := newControlFixture(t, display, powerwall.NewTestClient(testControlReading))
	f.waitState(t, domain.CONTROL_STATE_STOPPED)

	f.request(t, domain.StartCommand{})
	resp := f.request(t, domain.TickCommand{})
	assert.Equal(t, domain.CONTROL_STATE_FAILED, resp.State)
	_, errs, _, _ := display.counts()
	assert.Equal(t, 1, errs)
}

func TestControlConnectivityFailureAtStartup(t *testing.T) {

	display := &fakeDisplay{}
	client := powerwall.NewTestClient(testControlReading)
	client.SetConnectionDelay(0, powerwall.ErrConnectivity)
	f := newControlFixture(t, display, client)

	f.waitState(t, domain.CONTROL_STATE_FAILED)
	_, errs, clears, _ := display.counts()
	assert.Equal(t, 1, errs)
	assert.Equal(t, 0, clears)
}

func TestControlWaitsForSlowGateway(t *testing.T) {

	assert := assert.New(t)
	sink := &sevenseg.MemorySink{}
	buf, err := sevenseg.NewBuffer(sink, 10)
	require.NoError(t, err)
	rgb, err := display.NewRGBDigitDisplay(buf, display.Layout{
		Solar:        []int{0, 1},
		House:        []int{2, 3},
		Battery:      []int{4, 5},
		Grid:         []int{6, 7},
		BatteryLevel: []int{8, 9},
	}, service.NewDefaultReadingPresenter(1), zap.NewNop(), display.WithBlinkInterval(time.Millisecond))
	require.NoError(t, err)

	// the gateway needs far longer than one blink to come up
	client := powerwall.NewTestClient(testControlReading)
	client.SetConnectionDelay(300*time.Millisecond, nil)
	start := time.Now()
	f := newControlFixture(t, rgb, client)

	f.system.Root.Send(f.pid, domain.StartCommand{})
	resp := f.request(t, domain.TickCommand{})
	assert.Equal(domain.CONTROL_STATE_RUNNING, resp.State)
	assert.NoError(resp.GetResponseError())
	assert.GreaterOrEqual(time.Since(start), 300*time.Millisecond, "startup lasts until the gateway answers")
	assert.Equal(1, client.Fetches())
	assert.Greater(sink.Writes(), 10, "the animation kept blinking meanwhile")
}

func TestControlDisplayFailureAtStartup(t *testing.T) {

	display := &fakeDisplay{startupErr: fmt.Errorf("%w: spi gone", sevenseg.ErrHardwareIO)}
	client := powerwall.NewTestClient(testControlReading)
	client.SetConnectionDelay(time.Hour, nil)
	f := newControlFixture(t, display, client)

	f.waitState(t, domain.CONTROL_STATE_FAILED)
	_, errs, clears, _ := display.counts()
	assert.Equal(t, 1, errs)
	assert.Equal(t, 0, clears)
}

func TestControlTicksCollapseWhileStarting(t *testing.T) {

	assert := assert.New(t)
	display := &fakeDisplay{}
	client := powerwall.NewTestClient(testControlReading)
	client.SetConnectionDelay(200*time.Millisecond, nil)
	f := newControlFixture(t, display, client)

	f.system.Root.Send(f.pid, domain.StartCommand{})
	displaced := f.system.Root.RequestFuture(f.pid, domain.TickCommand{}, 5*time.Second)
	for i := 0; i < 20; i++ {
		f.system.Root.Send(f.pid, domain.TickCommand{})
	}
	resp := f.request(t, domain.TickCommand{})
	assert.Equal(domain.CONTROL_STATE_RUNNING, resp.State)
	assert.Equal(1, client.Fetches(), "one fetch for the whole burst")

	// a tick request that got displaced is still answered
	res, err := displaced.Result()
	require.NoError(t, err)
	early, ok := res.(domain.CommandResponse)
	require.True(t, ok)
	assert.Equal(domain.CONTROL_STATE_STARTING, early.State)
}

func TestControlHealthWhileStarting(t *testing.T) {

	display := &fakeDisplay{}
	client := powerwall.NewTestClient(testControlReading)
	client.SetConnectionDelay(time.Hour, nil)
	f := newControlFixture(t, display, client)

	res, err := f.system.Root.RequestFuture(f.pid, domain.ActorHealthRequest{}, time.Second).Result()
	require.NoError(t, err)
	health := res.(domain.ActorHealthResponse)
	assert.True(t, health.Healthy)
	assert.Equal(t, string(domain.CONTROL_STATE_STARTING), health.State)

	// stopping mid startup cancels it and releases the display
	require.NoError(t, f.system.Root.StopFuture(f.pid).Wait())
	_, _, _, shutdowns := display.counts()
	assert.Equal(t, 1, shutdowns)
}
