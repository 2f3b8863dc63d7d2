package actor

import (
	"fmt"
	"time"

	"github.com/berfenger/hassbridge/internal/core/domain"
	"github.com/berfenger/hassbridge/internal/util/actorutil"
	"github.com/berfenger/hassbridge/pkg/goodwe"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const (
	INVERTER_TASK_TIMEOUT = 5 * time.Second
)

// InverterActor owns the inverter client and serializes every read on it.
type InverterActor struct {
	behavior actor.Behavior
	stash    *actorutil.Stash
	inverter goodwe.Inverter
	opened   bool
	logger   *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewInverterActor(inverter goodwe.Inverter, logger *zap.Logger) *InverterActor {
	act := &InverterActor{
		inverter: inverter,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger(domain.ACTOR_ID_INVERTER, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *InverterActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *InverterActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("inverter@starting started")
		if err := state.inverter.Open(); err != nil {
			panic(fmt.Errorf("open inverter: %w", err))
		}
		state.opened = true
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.close()
	default:
		state.logger.Debug("inverter@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *InverterActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("inverter@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_INVERTER,
			Healthy: state.opened,
			State:   "idle",
		})
	case domain.GetDeviceInfoRequest:
		state.logger.Debug("inverter@default: GetDeviceInfoRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getDeviceInfo),
			mapTaskResult[domain.GetDeviceInfoResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetDeviceInfoResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(INVERTER_TASK_TIMEOUT).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingInverter)
	case domain.GetRuntimeDataRequest:
		state.logger.Debug("inverter@default: GetRuntimeDataRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getRuntimeData),
			mapTaskResult[domain.GetRuntimeDataResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetRuntimeDataResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(INVERTER_TASK_TIMEOUT).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingInverter)
	case *actor.Stopping:
		state.close()
	default:
		state.logger.Debug("inverter@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *InverterActor) WaitingInverter(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("inverter@waiting backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		ctx.Send(msg.replyTo, msg.message)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_INVERTER,
			Healthy: state.opened,
			State:   "reading",
		})
	case *actor.Stopping:
		state.close()
	default:
		state.logger.Debug("inverter@waiting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *InverterActor) close() {
	if !state.opened {
		return
	}
	if err := state.inverter.Close(); err != nil {
		state.logger.Warn("inverter close", zap.Error(err))
	}
	state.opened = false
}

func (state *InverterActor) getDeviceInfo() (*domain.GetDeviceInfoResponse, error) {
	info, err := state.inverter.GetInfo()
	if err != nil {
		state.logger.Error("read inverter info", zap.Error(err))
		return nil, err
	}
	return &domain.GetDeviceInfoResponse{
		Inverter: info,
		Sensors:  state.inverter.Sensors(),
	}, nil
}

func (state *InverterActor) getRuntimeData() (*domain.GetRuntimeDataResponse, error) {
	data, err := state.inverter.ReadRuntimeData()
	if err != nil {
		state.logger.Error("read inverter runtime data", zap.Error(err))
		return nil, err
	}
	return &domain.GetRuntimeDataResponse{
		Data: data,
	}, nil
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
