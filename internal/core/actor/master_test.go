package actor

import (
	"fmt"
	"testing"
	"time"

	adactor "solarspy/internal/adapter/actor"
	"solarspy/internal/core/domain"
	"solarspy/internal/mqtt"
	"solarspy/internal/util"
	"solarspy/pkg/powerwall"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type masterFixture struct {
	system    *actor.ActorSystem
	pid       *actor.PID
	client    *powerwall.TestClient
	published chan adactor.RawMessage
	ended     chan domain.SessionEnded
}

func newMasterFixture(t *testing.T) *masterFixture {
	cfg := util.LoadTestConfig()
	cfg.MQTT.Enable = true
	logger := zap.NewNop()

	f := &masterFixture{
		system:    actor.NewActorSystem(),
		client:    powerwall.NewTestClient(testControlReading),
		published: make(chan adactor.RawMessage, 128),
		ended:     make(chan domain.SessionEnded, 1),
	}
	t.Cleanup(f.system.Shutdown)

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterActor(cfg, func(es *eventstream.EventStream) *ControlActor {
			return NewControlActor(&cfg, &fakeDisplay{}, f.client, es, logger)
		}, func(es *eventstream.EventStream) *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(&cfg, es, f.published, logger)
		}, func(msg domain.SessionEnded) {
			f.ended <- msg
		}, logger)
	})
	pid, err := f.system.Root.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	require.NoError(t, err)
	f.pid = pid
	return f
}

func (f *masterFixture) health() (domain.ActorHealthResponse, bool) {
	res, err := f.system.Root.RequestFuture(f.pid, domain.ActorHealthRequest{}, 5*time.Second).Result()
	if err != nil {
		return domain.ActorHealthResponse{}, false
	}
	resp, ok := res.(domain.ActorHealthResponse)
	return resp, ok
}

func (f *masterFixture) waitPublished(t *testing.T, topic string) adactor.RawMessage {
	timeout := time.After(3 * time.Second)
	for {
		select {
		case m := <-f.published:
			if m.Topic == topic {
				return m
			}
		case <-timeout:
			t.Fatalf("nothing published on %s", topic)
		}
	}
}

func TestMasterActor(t *testing.T) {

	f := newMasterFixture(t)

	assert.Eventually(t, func() bool {
		resp, ok := f.health()
		return ok && resp.Healthy && resp.State == string(domain.CONTROL_STATE_STOPPED)
	}, 5*time.Second, 50*time.Millisecond, "healthy once the control loop is stopped")

	res, err := f.system.Root.RequestFuture(f.pid, domain.StartCommand{}, 2*time.Second).Result()
	require.NoError(t, err)
	assert.Equal(t, domain.CONTROL_STATE_RUNNING, res.(domain.CommandResponse).State)

	res, err = f.system.Root.RequestFuture(f.pid, domain.TickCommand{}, 2*time.Second).Result()
	require.NoError(t, err)
	assert.Equal(t, domain.CONTROL_STATE_RUNNING, res.(domain.CommandResponse).State)
	assert.Equal(t, 1, f.client.Fetches())

	m := f.waitPublished(t, "solarspy/sensor/solar_power/state")
	assert.Equal(t, "5.000", m.Message)
}

func TestMasterActorRoutesSwitchCommand(t *testing.T) {

	f := newMasterFixture(t)

	f.system.Root.Send(f.pid, adactor.ParsedCommand{Command: &mqtt.ParsedMQTTCommand{
		DeviceId: domain.SWITCH_ID_DISPLAY,
		Command:  mqtt.MQTT_COMMAND_SWITCH,
		Payload:  mqtt.MQTT_PAYLOAD_ON,
	}})

	m := f.waitPublished(t, "solarspy/switch/display/state")
	assert.Equal(t, mqtt.MQTT_PAYLOAD_ON, m.Message)

	res, err := f.system.Root.RequestFuture(f.pid, domain.GetStateRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	assert.Equal(t, domain.CONTROL_STATE_RUNNING, res.(domain.CommandResponse).State)
}

func TestMasterActorPublishesDiscovery(t *testing.T) {

	f := newMasterFixture(t)

	cfg := util.LoadTestConfig()
	sensors, switches := DiscoveryComponents(&cfg)
	require.Len(t, sensors, 7)
	require.Len(t, switches, 1)

	f.waitPublished(t, mqtt.HADiscoverySwitchTopic("homeassistant", switches[0]))
}

func TestMasterActorSessionEnd(t *testing.T) {

	f := newMasterFixture(t)
	f.client.SetStatsError(fmt.Errorf("%w: gone", powerwall.ErrGateway))

	f.system.Root.Send(f.pid, domain.StartCommand{})
	f.system.Root.Send(f.pid, domain.TickCommand{})

	select {
	case msg := <-f.ended:
		assert.Equal(t, domain.ERROR_KIND_GATEWAY, msg.Kind)
	case <-time.After(5 * time.Second):
		t.Fatal("session end not reported")
	}

	resp, ok := f.health()
	require.True(t, ok)
	assert.False(t, resp.Healthy)
	assert.Equal(t, string(domain.CONTROL_STATE_FAILED), resp.State)
}

func TestMasterActorHealthyDuringSlowFetch(t *testing.T) {

	assert := assert.New(t)
	f := newMasterFixture(t)
	// slower than a short probe, within the fetch timeout
	f.client.SetFetchDelay(800 * time.Millisecond)

	assert.Eventually(func() bool {
		resp, ok := f.health()
		return ok && resp.Healthy && resp.State == string(domain.CONTROL_STATE_STOPPED)
	}, 5*time.Second, 20*time.Millisecond)

	f.system.Root.Send(f.pid, domain.StartCommand{})
	f.system.Root.Send(f.pid, domain.TickCommand{})
	time.Sleep(50 * time.Millisecond)

	resp, ok := f.health()
	require.True(t, ok)
	assert.True(resp.Healthy, "a fetch in progress is not a failure")
	assert.Equal(string(domain.CONTROL_STATE_RUNNING), resp.State)
	assert.Equal(1, f.client.Fetches())
}
