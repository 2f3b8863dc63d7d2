package actor

import (
	"testing"
	"time"

	"github.com/berfenger/hassbridge/internal/core/domain"
	"github.com/berfenger/hassbridge/internal/util"
	"github.com/berfenger/hassbridge/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMQTTActor(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	es := eventstream.EventStream{}

	props := actor.PropsFromProducer(func() actor.Actor { return NewTestMQTTActor(&cfg, &es, logger) })
	pid := context.Spawn(props)

	result, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	resp, ok := result.(domain.ActorHealthResponse)
	assert.True(ok)
	assert.True(resp.Healthy)

	es.Publish(domain.FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id: "ppv",
		},
		Value:    2450.4,
		Unit:     "W",
		Decimals: 0,
	})
	es.Publish(domain.FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id: "e_total",
		},
		Value:    12873.2,
		Unit:     "kWh",
		Decimals: 3,
	})
	es.Publish(domain.TextSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id: "work_mode",
		},
		Value: "Normal (On-Grid)",
	})
	// not a sensor update, ignored
	es.Publish("noise")

	time.Sleep(200 * time.Millisecond)

	result, err = context.RequestFuture(pid, GetPublishedRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	published := result.(GetPublishedResponse)

	assert.Equal(map[string]string{
		"hassbridge/sensor/ppv/state":       "2450",
		"hassbridge/sensor/e_total/state":   "12873.200",
		"hassbridge/sensor/work_mode/state": "Normal (On-Grid)",
	}, published.Messages)

	context.Stop(pid)
	as.Shutdown()
}

func TestMQTTActorForwardsHAStatusToParent(t *testing.T) {

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	received := make(chan domain.HomeAssistantStatus, 1)

	parentProps := actor.PropsFromFunc(func(ctx actor.Context) {
		switch msg := ctx.Message().(type) {
		case *actor.Started:
			child := ctx.Spawn(actor.PropsFromProducer(func() actor.Actor { return NewTestMQTTActor(&cfg, nil, logger) }))
			ctx.Send(child, domain.HomeAssistantStatus{Online: true})
		case domain.HomeAssistantStatus:
			received <- msg
		}
	})
	pid := context.Spawn(parentProps)

	select {
	case status := <-received:
		assert.True(t, status.Online)
	case <-time.After(2 * time.Second):
		t.Fatal("parent did not receive the Home Assistant status")
	}

	context.Stop(pid)
	as.Shutdown()
}

func TestMQTTActorBridgeStateIsRetained(t *testing.T) {

	cfg := util.LoadTestConfig()
	act := NewTestMQTTActor(&cfg, nil, zap.NewNop())
	logger := zap.NewNop()
	as := actorutil.NewActorSystemWithZapLogger(logger)
	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor { return act }))

	_, err := as.Root.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	require.NoError(t, err)

	raw := act.event2MQTTMessage(domain.BridgeStateUpdateEvent{Value: false})
	require.NotNil(t, raw)
	assert.Equal(t, "hassbridge/bridge/state", raw.topic)
	assert.Equal(t, "offline", raw.message)
	assert.True(t, raw.retain)

	assert.Nil(t, act.event2MQTTMessage(domain.HomeAssistantStatus{}))

	as.Root.Stop(pid)
	as.Shutdown()
}
