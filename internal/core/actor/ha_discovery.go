package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/hassbridge/internal/config"
	"github.com/berfenger/hassbridge/internal/core/domain"
	"github.com/berfenger/hassbridge/internal/core/service"
	"github.com/berfenger/hassbridge/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// HADiscoveryActor sets up the inverter entities once the inverter and MQTT
// actors are healthy: it hands them to the coordinator and publishes their
// discovery configs.
type HADiscoveryActor struct {
	config             *config.Config
	behavior           actor.Behavior
	stash              *actorutil.Stash
	inverterActor      *actor.PID
	mqttActor          *actor.PID
	coordinatorActor   *actor.PID
	inverterHealthy    bool
	mqttHealthy        bool
	healthyRecv        int
	discoverySensors   []domain.GenericSensor
	registeredEntities int

	logger *zap.Logger
}

func NewHADiscoveryActor(config *config.Config, inverterActor, mqttActor, coordinatorActor *actor.PID, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:           config,
		inverterActor:    inverterActor,
		mqttActor:        mqttActor,
		coordinatorActor: coordinatorActor,
		behavior:         actor.NewBehavior(),
		stash:            &actorutil.Stash{},
		logger:           actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")

		state.healthyRecv = 0
		state.inverterHealthy = false
		state.mqttHealthy = false
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.inverterActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_INVERTER,
				Healthy: false,
			}
		})
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		state.behavior.Become(state.WaitingHealthyReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("hadiscovery@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.healthyRecv++
		if msg.Healthy {
			switch msg.Id {
			case domain.ACTOR_ID_INVERTER:
				state.inverterHealthy = true
			case domain.ACTOR_ID_MQTT:
				state.mqttHealthy = true
			}
		}
		if state.healthyRecv == 2 {
			if !state.inverterHealthy || !state.mqttHealthy {
				panic(errors.New("MQTT actor or inverter actor are not healthy"))
			}
			actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.inverterActor, domain.GetDeviceInfoRequest{}, 10*time.Second), func(err error) any {
				return domain.GetDeviceInfoResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				}
			})
			state.behavior.Become(state.WaitingInfoReceive)
			state.stash.UnstashAll(ctx)
		}
	default:
		state.logger.Debug("hadiscovery@healthcheck: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingInfoReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetDeviceInfoResponse:
		if msg.HasResponseError() {
			panic(msg.GetResponseError())
		}
		state.logger.Debug("hadiscovery@info: GetDeviceInfoResponse", zap.String("serial", msg.Inverter.SerialNumber), zap.Int("sensors", len(msg.Sensors)))

		bridgeDevice := domain.BridgeDevice(state.config.MQTT.BaseTopic)
		inverterDevice := domain.InverterDevice(msg.Inverter)
		inverterDevice.ViaDevice = bridgeDevice.Id

		inverterSensors := service.SetupInverterSensors(inverterDevice, msg.Inverter.SerialNumber, msg.Sensors)

		entities := make([]domain.SensorEntity, 0, len(inverterSensors))
		sensors := domain.BridgeSensors(bridgeDevice)
		for i, s := range inverterSensors {
			entities = append(entities, s)
			desc := s.Describe()
			// full device info only once per device
			if i > 0 {
				desc.Device = domain.IdDevice(inverterDevice)
			}
			sensors = append(sensors, desc)
		}
		state.discoverySensors = sensors

		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.coordinatorActor, domain.RegisterEntitiesRequest{Entities: entities}, 5*time.Second), func(err error) any {
			return domain.RegisterEntitiesResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
		state.behavior.Become(state.WaitingRegisterReceive)
	default:
		state.logger.Debug("hadiscovery@info: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingRegisterReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.RegisterEntitiesResponse:
		if msg.HasResponseError() {
			panic(msg.GetResponseError())
		}
		state.registeredEntities = msg.Registered
		state.logger.Info("inverter entities registered", zap.Int("entities", msg.Registered))
		state.publishDiscovery(ctx)
		state.behavior.Become(state.DoneReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("hadiscovery@register: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) DoneReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.HomeAssistantStatus:
		if msg.Online {
			state.logger.Debug("hadiscovery@done: home assistant online, republish")
			state.publishDiscovery(ctx)
		}
	case domain.PublishDiscoveryResponse:
		if msg.HasResponseError() {
			state.logger.Error("hadiscovery@done: publish failed", zap.Error(msg.GetResponseError()))
		} else {
			state.logger.Info("hadiscovery@done: discovery published", zap.Int("sensors", len(state.discoverySensors)))
		}
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_HA_DISCOVERY,
			Healthy: state.registeredEntities > 0,
			State:   "done",
		})
	default:
		state.logger.Debug("hadiscovery@done: default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *HADiscoveryActor) publishDiscovery(ctx actor.Context) {
	if !state.config.MQTT.HADiscoveryEnable {
		return
	}
	ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
		ActorRequestMixIn: domain.ActorRequestMixIn{
			ReplyToRef: domain.RefOf(ctx.Self()),
		},
		Sensors: state.discoverySensors,
	})
}
