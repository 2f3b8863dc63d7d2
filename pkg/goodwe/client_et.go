package goodwe

import (
	"fmt"
	"time"

	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
)

const (
	ET_DEFAULT_PORT    = 8899
	ET_DEFAULT_UNIT_ID = 0xF7
)

// device info registers
const (
	etRegSerialNumber = 35003
	etRegModelName    = 35011
	etRegDSP1Version  = 35016
	etRegARMVersion   = 35019
)

type registerSensor struct {
	Sensor
	register uint16
	encoding int
	scale    float64
	// text converts the raw register value into a label (enum sensors)
	text func(uint16) string
}

// computedSensor derives a value from already decoded readings.
type computedSensor struct {
	Sensor
	fn func(values map[string]any) any
}

var etBlocks = []registerBlock{
	{start: 35100, count: 100},
	{start: 35200, count: 25},
	{start: 36000, count: 40},
	{start: 37000, count: 20},
}

// Subset of the ET/EH/BT/BH running data map.
var etSensors = []registerSensor{
	{Sensor: Sensor{Id: "vpv1", Name: "PV1 Voltage", Unit: "V", Kind: SensorKindPV}, register: 35103, encoding: EncodingU16, scale: 0.1},
	{Sensor: Sensor{Id: "ipv1", Name: "PV1 Current", Unit: "A", Kind: SensorKindPV}, register: 35104, encoding: EncodingU16, scale: 0.1},
	{Sensor: Sensor{Id: "ppv1", Name: "PV1 Power", Unit: "W", Kind: SensorKindPV}, register: 35105, encoding: EncodingU32, scale: 1},
	{Sensor: Sensor{Id: "vpv2", Name: "PV2 Voltage", Unit: "V", Kind: SensorKindPV}, register: 35107, encoding: EncodingU16, scale: 0.1},
	{Sensor: Sensor{Id: "ipv2", Name: "PV2 Current", Unit: "A", Kind: SensorKindPV}, register: 35108, encoding: EncodingU16, scale: 0.1},
	{Sensor: Sensor{Id: "ppv2", Name: "PV2 Power", Unit: "W", Kind: SensorKindPV}, register: 35109, encoding: EncodingU32, scale: 1},
	{Sensor: Sensor{Id: "pv_mode", Name: "PV Mode code", Unit: "", Kind: SensorKindPV}, register: 35119, encoding: EncodingU16, scale: 1},
	{Sensor: Sensor{Id: "xx35120", Name: "Unknown sensor@35120"}, register: 35120, encoding: EncodingU16, scale: 1},
	{Sensor: Sensor{Id: "vgrid", Name: "On-grid L1 Voltage", Unit: "V", Kind: SensorKindAC}, register: 35121, encoding: EncodingU16, scale: 0.1},
	{Sensor: Sensor{Id: "igrid", Name: "On-grid L1 Current", Unit: "A", Kind: SensorKindAC}, register: 35122, encoding: EncodingU16, scale: 0.1},
	{Sensor: Sensor{Id: "fgrid", Name: "On-grid L1 Frequency", Unit: "Hz", Kind: SensorKindAC}, register: 35123, encoding: EncodingU16, scale: 0.01},
	{Sensor: Sensor{Id: "pgrid", Name: "On-grid L1 Power", Unit: "W", Kind: SensorKindAC}, register: 35124, encoding: EncodingS32, scale: 1},
	{Sensor: Sensor{Id: "total_inverter_power", Name: "Total Power", Unit: "W", Kind: SensorKindAC}, register: 35138, encoding: EncodingS16, scale: 1},
	{Sensor: Sensor{Id: "active_power", Name: "Active Power", Unit: "W", Kind: SensorKindGRID}, register: 35140, encoding: EncodingS16, scale: 1},
	{Sensor: Sensor{Id: "backup_v1", Name: "Back-up L1 Voltage", Unit: "V", Kind: SensorKindUPS}, register: 35145, encoding: EncodingU16, scale: 0.1},
	{Sensor: Sensor{Id: "backup_i1", Name: "Back-up L1 Current", Unit: "A", Kind: SensorKindUPS}, register: 35146, encoding: EncodingU16, scale: 0.1},
	{Sensor: Sensor{Id: "backup_p1", Name: "Back-up L1 Power", Unit: "W", Kind: SensorKindUPS}, register: 35150, encoding: EncodingS32, scale: 1},
	{Sensor: Sensor{Id: "temperature_air", Name: "Inverter Temperature (Air)", Unit: "C", Kind: SensorKindAC}, register: 35174, encoding: EncodingS16, scale: 0.1},
	{Sensor: Sensor{Id: "temperature", Name: "Inverter Temperature", Unit: "C", Kind: SensorKindAC}, register: 35176, encoding: EncodingS16, scale: 0.1},
	{Sensor: Sensor{Id: "vbattery1", Name: "Battery Voltage", Unit: "V", Kind: SensorKindBAT}, register: 35180, encoding: EncodingU16, scale: 0.1},
	{Sensor: Sensor{Id: "ibattery1", Name: "Battery Current", Unit: "A", Kind: SensorKindBAT}, register: 35181, encoding: EncodingS16, scale: 0.1},
	{Sensor: Sensor{Id: "pbattery1", Name: "Battery Power", Unit: "W", Kind: SensorKindBAT}, register: 35182, encoding: EncodingS32, scale: 1},
	{Sensor: Sensor{Id: "battery_mode", Name: "Battery Mode", Unit: "", Kind: SensorKindBAT}, register: 35184, encoding: EncodingU16, scale: 1, text: BatteryModeToString},
	{Sensor: Sensor{Id: "e_total", Name: "Total PV Generation", Unit: "kWh", Kind: SensorKindPV}, register: 35191, encoding: EncodingU32, scale: 0.1},
	{Sensor: Sensor{Id: "e_day", Name: "Today's PV Generation", Unit: "kWh", Kind: SensorKindPV}, register: 35193, encoding: EncodingU32, scale: 0.1},
	{Sensor: Sensor{Id: "e_total_exp", Name: "Total Energy (export)", Unit: "kWh", Kind: SensorKindAC}, register: 35195, encoding: EncodingU32, scale: 0.1},
	{Sensor: Sensor{Id: "e_bat_charge_total", Name: "Total Battery Charge", Unit: "kWh", Kind: SensorKindBAT}, register: 35206, encoding: EncodingU32, scale: 0.1},
	{Sensor: Sensor{Id: "e_bat_charge_day", Name: "Today Battery Charge", Unit: "kWh", Kind: SensorKindBAT}, register: 35208, encoding: EncodingU16, scale: 0.1},
	{Sensor: Sensor{Id: "e_bat_discharge_total", Name: "Total Battery Discharge", Unit: "kWh", Kind: SensorKindBAT}, register: 35209, encoding: EncodingU32, scale: 0.1},
	{Sensor: Sensor{Id: "e_bat_discharge_day", Name: "Today Battery Discharge", Unit: "kWh", Kind: SensorKindBAT}, register: 35211, encoding: EncodingU16, scale: 0.1},
	{Sensor: Sensor{Id: "meter_freq", Name: "Meter Frequency", Unit: "Hz", Kind: SensorKindGRID}, register: 36014, encoding: EncodingU16, scale: 0.01},
	{Sensor: Sensor{Id: "meter_e_total_exp", Name: "Meter Total Energy (export)", Unit: "kWh", Kind: SensorKindGRID}, register: 36015, encoding: EncodingU32, scale: 0.01},
	{Sensor: Sensor{Id: "meter_e_total_imp", Name: "Meter Total Energy (import)", Unit: "kWh", Kind: SensorKindGRID}, register: 36017, encoding: EncodingU32, scale: 0.01},
	{Sensor: Sensor{Id: "meter_active_power", Name: "Meter Active Power", Unit: "W", Kind: SensorKindGRID}, register: 36025, encoding: EncodingS32, scale: 1},
	{Sensor: Sensor{Id: "battery_bms", Name: "Battery BMS", Unit: "", Kind: SensorKindBMS}, register: 37000, encoding: EncodingU16, scale: 1},
	{Sensor: Sensor{Id: "battery_temperature", Name: "Battery Temperature", Unit: "C", Kind: SensorKindBMS}, register: 37003, encoding: EncodingS16, scale: 0.1},
	{Sensor: Sensor{Id: "battery_soc", Name: "Battery State of Charge", Unit: "%", Kind: SensorKindBAT}, register: 37007, encoding: EncodingU16, scale: 1},
	{Sensor: Sensor{Id: "battery_soh", Name: "Battery State of Health", Unit: "%", Kind: SensorKindBAT}, register: 37008, encoding: EncodingU16, scale: 1},
}

var etComputedSensors = []computedSensor{
	{Sensor: Sensor{Id: "ppv", Name: "PV Power", Unit: "W", Kind: SensorKindPV}, fn: func(values map[string]any) any {
		return sumOf(values, "ppv1", "ppv2")
	}},
	{Sensor: Sensor{Id: "house_consumption", Name: "House Consumption", Unit: "W", Kind: SensorKindAC}, fn: func(values map[string]any) any {
		return sumOf(values, "ppv1", "ppv2", "pbattery1") - floatOf(values, "active_power")
	}},
}

type ETInverter struct {
	ModbusClient

	logger *zap.Logger
}

func CreateETInverter(host string, port uint, unitId uint8, timeout time.Duration,
	logger *zap.Logger, instrumentation *ModbusInstrument) (Inverter, error) {
	if port == 0 {
		port = ET_DEFAULT_PORT
	}
	if unitId == 0 {
		unitId = ET_DEFAULT_UNIT_ID
	}
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     fmt.Sprintf("rtuoverudp://%s:%d", host, port),
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}

	// instrumentation
	var inst []ModbusInstrument
	if logger != nil {
		logger = logger.With(zap.String("target", "inverter"), zap.Uint8("unit", unitId))
	}
	if logInst := debugLoggerInstrumentation(logger); logInst != nil {
		inst = append(inst, *logInst)
	}
	if instrumentation != nil {
		inst = append(inst, *instrumentation)
	}

	if err = client.SetUnitId(unitId); err != nil {
		return nil, err
	}
	if err = client.SetEncoding(modbus.BIG_ENDIAN, modbus.HIGH_WORD_FIRST); err != nil {
		return nil, err
	}

	return &ETInverter{
		ModbusClient: ModbusClient{
			client:     client,
			instrument: inst,
		},
		logger: logger,
	}, nil
}

func (inv *ETInverter) Open() error {
	return inv.client.Open()
}

func (inv *ETInverter) Close() error {
	return inv.client.Close()
}

func (inv *ETInverter) GetInfo() (*InverterInfo, error) {
	serial, err := inv.readString(etRegSerialNumber, 8)
	if err != nil {
		return nil, err
	}
	model, err := inv.readString(etRegModelName, 5)
	if err != nil {
		return nil, err
	}
	dsp, err := inv.readRegister(etRegDSP1Version, modbus.HOLDING_REGISTER)
	if err != nil {
		return nil, err
	}
	arm, err := inv.readRegister(etRegARMVersion, modbus.HOLDING_REGISTER)
	if err != nil {
		return nil, err
	}
	return &InverterInfo{
		ModelName:    model,
		SerialNumber: serial,
		Firmware:     fmt.Sprintf("%d.%d", dsp, arm),
		Manufacturer: "GoodWe",
	}, nil
}

func (inv *ETInverter) Sensors() []Sensor {
	return etSensorList()
}

func (inv *ETInverter) ReadRuntimeData() (map[string]any, error) {
	words, err := inv.readBlocks(etBlocks)
	if err != nil {
		return nil, err
	}
	return decodeETRuntimeData(words), nil
}

func etSensorList() []Sensor {
	sensors := make([]Sensor, 0, len(etSensors)+len(etComputedSensors))
	for i := range etSensors {
		sensors = append(sensors, etSensors[i].Sensor)
	}
	for i := range etComputedSensors {
		sensors = append(sensors, etComputedSensors[i].Sensor)
	}
	return sensors
}

func decodeETRuntimeData(words map[uint16]uint16) map[string]any {
	values := make(map[string]any, len(etSensors)+len(etComputedSensors))
	for _, s := range etSensors {
		v, ok := decodeRegister(words, s.register, s.encoding, s.scale)
		if !ok {
			continue
		}
		if s.text != nil {
			values[s.Id] = s.text(uint16(v))
		} else {
			values[s.Id] = v
		}
	}
	for _, s := range etComputedSensors {
		values[s.Id] = s.fn(values)
	}
	return values
}

func floatOf(values map[string]any, key string) float64 {
	if v, ok := values[key].(float64); ok {
		return v
	}
	return 0
}

func sumOf(values map[string]any, keys ...string) float64 {
	var total float64
	for _, k := range keys {
		total += floatOf(values, k)
	}
	return total
}
