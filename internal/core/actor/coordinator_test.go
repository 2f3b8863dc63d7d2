package actor

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	adactor "github.com/berfenger/hassbridge/internal/adapter/actor"
	"github.com/berfenger/hassbridge/internal/core/domain"
	"github.com/berfenger/hassbridge/internal/core/service"
	"github.com/berfenger/hassbridge/internal/util"
	"github.com/berfenger/hassbridge/internal/util/actorutil"
	"github.com/berfenger/hassbridge/pkg/goodwe"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type eventRecorder struct {
	mu     sync.Mutex
	values map[string][]float64
}

func (r *eventRecorder) record(evt any) {
	if ev, ok := evt.(domain.FloatSensorUpdateEvent); ok {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.values[ev.Id] = append(r.values[ev.Id], ev.Value)
	}
}

func (r *eventRecorder) get(id string) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.values[id]...)
}

func TestCoordinatorActor(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	es := &eventstream.EventStream{}
	recorder := &eventRecorder{values: map[string][]float64{}}
	es.Subscribe(recorder.record)

	inv := goodwe.NewTestInverter()
	inverterPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor { return adactor.NewInverterActor(inv, logger) }))
	coordinatorPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewCoordinatorActor(&cfg, inverterPID, es, logger)
	}))

	info, err := inv.GetInfo()
	require.NoError(t, err)
	entities := []domain.SensorEntity{}
	for _, s := range service.SetupInverterSensors(domain.InverterDevice(info), info.SerialNumber, inv.Sensors()) {
		entities = append(entities, s)
	}

	res, err := context.RequestFuture(coordinatorPID, domain.RegisterEntitiesRequest{Entities: entities}, 2*time.Second).Result()
	require.NoError(t, err)
	assert.Equal(len(entities), res.(domain.RegisterEntitiesResponse).Registered)

	assert.Eventually(func() bool {
		return len(recorder.get("e_total")) > 0
	}, 3*time.Second, 50*time.Millisecond)
	assert.Equal(12873.2, recorder.get("e_total")[0])

	// a zero total keeps the last known value
	inv.Set("e_total", 0.0)
	inv.Set("e_day", 0.0)
	assert.Eventually(func() bool {
		return len(recorder.get("e_day")) > 0 && recorder.get("e_day")[len(recorder.get("e_day"))-1] == 0
	}, 3*time.Second, 50*time.Millisecond)
	totals := recorder.get("e_total")
	assert.Equal(12873.2, totals[len(totals)-1])

	// a failed refresh publishes nothing and keeps the snapshot
	inv.Fail(errors.New("udp timeout"))
	assert.Eventually(func() bool {
		res, err := context.RequestFuture(coordinatorPID, domain.ActorHealthRequest{}, 1*time.Second).Result()
		return err == nil && strings.HasPrefix(res.(domain.ActorHealthResponse).State, "last refresh failed")
	}, 3*time.Second, 100*time.Millisecond)
	published := len(recorder.get("e_total"))
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(published, len(recorder.get("e_total")))

	res, err = context.RequestFuture(coordinatorPID, domain.GetRuntimeDataRequest{}, 1*time.Second).Result()
	require.NoError(t, err)
	assert.Equal(64.0, res.(domain.GetRuntimeDataResponse).Data.Get("battery_soc", nil))

	context.Stop(coordinatorPID)
	context.Stop(inverterPID)
	as.Shutdown()
}

func TestCoordinatorActorUnhealthyAfterFailedRefreshes(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	cfg.GoodWe.PollIntervalMillis = 100
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	inv := goodwe.NewTestInverter()
	inv.Fail(errors.New("udp timeout"))
	inverterPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor { return adactor.NewInverterActor(inv, logger) }))
	coordinatorPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewCoordinatorActor(&cfg, inverterPID, &eventstream.EventStream{}, logger)
	}))

	health := func() domain.ActorHealthResponse {
		res, err := context.RequestFuture(coordinatorPID, domain.ActorHealthRequest{}, 1*time.Second).Result()
		if err != nil {
			return domain.ActorHealthResponse{Healthy: true}
		}
		return res.(domain.ActorHealthResponse)
	}

	assert.Eventually(func() bool {
		return !health().Healthy
	}, 3*time.Second, 50*time.Millisecond)

	// one good refresh clears the failure count
	inv.Fail(nil)
	assert.Eventually(func() bool {
		h := health()
		return h.Healthy && strings.HasPrefix(h.State, "updated")
	}, 3*time.Second, 50*time.Millisecond)

	context.Stop(coordinatorPID)
	context.Stop(inverterPID)
	as.Shutdown()
}
