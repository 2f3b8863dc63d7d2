package goodwe

import "sync"

func CreateTestInverter() (Inverter, error) {
	return NewTestInverter(), nil
}

// TestInverter is an in-memory ET inverter used by tests and the dry-run mode.
type TestInverter struct {
	mu   sync.Mutex
	data map[string]any
	err  error
}

func NewTestInverter() *TestInverter {
	return &TestInverter{
		data: map[string]any{
			"vpv1":                  385.2,
			"ipv1":                  4.1,
			"ppv1":                  1579.0,
			"ppv2":                  0.0,
			"fgrid":                 50.01,
			"vgrid":                 234.5,
			"active_power":          -120.0,
			"pbattery1":             -800.0,
			"battery_mode":          BatteryModeChargeStr,
			"battery_soc":           64.0,
			"temperature":           41.3,
			"e_day":                 8.4,
			"e_total":               12873.2,
			"meter_e_total_exp":     2770.34,
			"meter_e_total_imp":     550.22,
			"e_bat_charge_total":    1230.1,
			"e_bat_discharge_total": 1102.7,
			"house_consumption":     899.0,
			"ppv":                   1579.0,
			"xx35120":               0.0,
		},
	}
}

func (inv *TestInverter) Open() error {
	return nil
}

func (inv *TestInverter) Close() error {
	return nil
}

func (inv *TestInverter) GetInfo() (*InverterInfo, error) {
	return &InverterInfo{
		ModelName:    "GW10K-ET",
		SerialNumber: "9010KETU000W0000",
		Firmware:     "4.4",
		Manufacturer: "GoodWe",
	}, nil
}

func (inv *TestInverter) Sensors() []Sensor {
	return etSensorList()
}

func (inv *TestInverter) ReadRuntimeData() (map[string]any, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.err != nil {
		return nil, inv.err
	}
	data := make(map[string]any, len(inv.data))
	for k, v := range inv.data {
		data[k] = v
	}
	return data, nil
}

// Set overrides a single reading. A nil value removes it from the next poll.
func (inv *TestInverter) Set(id string, value any) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if value == nil {
		delete(inv.data, id)
		return
	}
	inv.data[id] = value
}

// Fail makes the next polls return err until it is called with nil.
func (inv *TestInverter) Fail(err error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.err = err
}
