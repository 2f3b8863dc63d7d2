package domain

import "github.com/berfenger/hassbridge/pkg/goodwe"

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_INVERTER     = "inverter"
	ACTOR_ID_COORDINATOR  = "coordinator"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

type GetDeviceInfoRequest struct {
	ActorRequestMixIn
}

type GetDeviceInfoResponse struct {
	ActorResponseMixIn
	Inverter *goodwe.InverterInfo
	Sensors  []goodwe.Sensor
}

type GetRuntimeDataRequest struct {
	ActorRequestMixIn
}

type GetRuntimeDataResponse struct {
	ActorResponseMixIn
	Data SensorData
}

type RegisterEntitiesRequest struct {
	ActorRequestMixIn
	Entities []SensorEntity
}

type RegisterEntitiesResponse struct {
	ActorResponseMixIn
	Registered int
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors []GenericSensor
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}

// HomeAssistantStatus is received on the Home Assistant birth/will topic.
type HomeAssistantStatus struct {
	Online bool
}
