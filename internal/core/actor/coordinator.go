package actor

import (
	"fmt"
	"maps"
	"time"

	"github.com/berfenger/hassbridge/internal/config"
	"github.com/berfenger/hassbridge/internal/core/domain"
	"github.com/berfenger/hassbridge/internal/core/events"
	. "github.com/berfenger/hassbridge/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// CoordinatorActor polls the inverter, keeps the latest snapshot and
// publishes the value of every registered entity after each refresh.
type CoordinatorActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	inverterActor *actor.PID
	config        *config.Config
	eventStream   *eventstream.EventStream
	entities      []domain.SensorEntity
	data          domain.SensorData
	lastUpdate    time.Time
	lastError     error
	failures      int

	logger *zap.Logger
}

type coordinatorTick struct {
}

const (
	COORDINATOR_REFRESH_TIMEOUT = 10 * time.Second
	// consecutive failed refreshes before the coordinator reports unhealthy
	COORDINATOR_MAX_FAILED_REFRESHES = 3
)

func NewCoordinatorActor(config *config.Config, inverterActor *actor.PID, eventStream *eventstream.EventStream, logger *zap.Logger) *CoordinatorActor {
	act := &CoordinatorActor{
		config:        config,
		inverterActor: inverterActor,
		behavior:      actor.NewBehavior(),
		stash:         &Stash{},
		logger:        ActorLogger(domain.ACTOR_ID_COORDINATOR, logger),
		eventStream:   eventStream,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *CoordinatorActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *CoordinatorActor) pollInterval() time.Duration {
	return time.Duration(state.config.GoodWe.PollIntervalMillis) * time.Millisecond
}

func (state *CoordinatorActor) healthy() bool {
	return state.failures < COORDINATOR_MAX_FAILED_REFRESHES
}

func (state *CoordinatorActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("coordinator@starting started")
		state.scheduler = scheduler.NewTimerScheduler(ctx)
		// first refresh right away
		ctx.Send(ctx.Self(), coordinatorTick{})
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
	default:
		state.logger.Debug("coordinator@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *CoordinatorActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("coordinator@default: ActorHealthRequest")
		healthState := "idle"
		if state.lastError != nil {
			healthState = fmt.Sprintf("last refresh failed: %s", state.lastError)
		} else if !state.lastUpdate.IsZero() {
			healthState = fmt.Sprintf("updated %s", state.lastUpdate.Format(time.RFC3339))
		}
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_COORDINATOR,
			Healthy: state.healthy(),
			State:   healthState,
		})
	case domain.RegisterEntitiesRequest:
		state.logger.Debug("coordinator@default: RegisterEntitiesRequest", zap.Int("entities", len(msg.Entities)))
		state.entities = append(state.entities, msg.Entities...)
		ForRequest(msg).Respond(ctx, domain.RegisterEntitiesResponse{
			Registered: len(msg.Entities),
		})
		// new entities get their first value from the current snapshot
		if state.data != nil {
			PublishAll(state.eventStream, events.SensorValuesToUpdateEvents(msg.Entities, state.data))
		}
	case domain.GetRuntimeDataRequest:
		state.logger.Debug("coordinator@default: GetRuntimeDataRequest")
		ForRequest(msg).Respond(ctx, domain.GetRuntimeDataResponse{
			Data: maps.Clone(state.data),
		})
	case coordinatorTick:
		state.logger.Debug("coordinator@default tick")
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.inverterActor, domain.GetRuntimeDataRequest{}, COORDINATOR_REFRESH_TIMEOUT), func(err error) any {
			return domain.GetRuntimeDataResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
		// schedule next tick
		state.scheduler.RequestOnce(state.pollInterval(), ctx.Self(), coordinatorTick{})
		state.behavior.BecomeStacked(state.WaitingDataReceive)
	case domain.GetRuntimeDataResponse:
		state.logger.Debug("coordinator@default: late GetRuntimeDataResponse ignored")
	case *actor.Stopping:
	case *actor.Stopped:
	default:
		state.logger.Debug("coordinator@default: unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *CoordinatorActor) WaitingDataReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetRuntimeDataResponse:
		if msg.HasResponseError() {
			// keep the previous snapshot
			state.lastError = msg.GetResponseError()
			state.failures++
			state.logger.Error("coordinator@waiting GetRuntimeDataResponse error", zap.Error(state.lastError), zap.Int("failures", state.failures))
		} else {
			state.logger.Debug("coordinator@waiting GetRuntimeDataResponse", zap.Int("values", len(msg.Data)))
			state.lastError = nil
			state.failures = 0
			state.lastUpdate = time.Now()
			state.data = msg.Data
			PublishAll(state.eventStream, events.SensorValuesToUpdateEvents(state.entities, state.data))
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case coordinatorTick:
		// a refresh is already in flight, try again on the next interval
		state.logger.Debug("coordinator@waiting tick skipped")
		state.scheduler.RequestOnce(state.pollInterval(), ctx.Self(), coordinatorTick{})
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_COORDINATOR,
			Healthy: state.healthy(),
			State:   "refreshing",
		})
	default:
		state.logger.Debug("coordinator@waiting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}
