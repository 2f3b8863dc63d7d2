package goodwe

import "fmt"

// SensorKind is the coarse category the inverter assigns to a sensor.
type SensorKind int

const (
	SensorKindNone SensorKind = iota
	SensorKindPV
	SensorKindAC
	SensorKindUPS
	SensorKindBAT
	SensorKindGRID
	SensorKindBMS
)

func (k SensorKind) String() string {
	switch k {
	case SensorKindPV:
		return "PV"
	case SensorKindAC:
		return "AC"
	case SensorKindUPS:
		return "UPS"
	case SensorKindBAT:
		return "BAT"
	case SensorKindGRID:
		return "GRID"
	case SensorKindBMS:
		return "BMS"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sensor describes a single reading exposed by the inverter.
type Sensor struct {
	Id   string
	Name string
	Unit string
	Kind SensorKind
}

type InverterInfo struct {
	ModelName    string
	SerialNumber string
	Firmware     string
	Manufacturer string
}

// Inverter is implemented by every inverter family reader.
type Inverter interface {
	Open() error
	Close() error
	GetInfo() (*InverterInfo, error)
	Sensors() []Sensor
	ReadRuntimeData() (map[string]any, error)
}

// register encodings
const (
	EncodingU16 = iota
	EncodingS16
	EncodingU32
	EncodingS32
)

// battery modes
const (
	BatteryModeNoBattery   = 0
	BatteryModeStandby     = 1
	BatteryModeDischarge   = 2
	BatteryModeCharge      = 3
	BatteryModeToBeCharged = 4
)

const (
	BatteryModeNoBatteryStr   = "no_battery"
	BatteryModeStandbyStr     = "standby"
	BatteryModeDischargeStr   = "discharge"
	BatteryModeChargeStr      = "charge"
	BatteryModeToBeChargedStr = "to_be_charged"
	BatteryModeUnknownStr     = "unknown"
)

func BatteryModeToString(mode uint16) string {
	switch mode {
	case BatteryModeNoBattery:
		return BatteryModeNoBatteryStr
	case BatteryModeStandby:
		return BatteryModeStandbyStr
	case BatteryModeDischarge:
		return BatteryModeDischargeStr
	case BatteryModeCharge:
		return BatteryModeChargeStr
	case BatteryModeToBeCharged:
		return BatteryModeToBeChargedStr
	default:
		return fmt.Sprintf("%s(%d)", BatteryModeUnknownStr, mode)
	}
}
