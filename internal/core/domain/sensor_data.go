package domain

// SensorData is the latest snapshot of raw readings keyed by sensor id.
type SensorData map[string]any

// Get returns the reading for id, or fallback when the id is absent.
func (d SensorData) Get(id string, fallback any) any {
	if d == nil {
		return fallback
	}
	if v, ok := d[id]; ok {
		return v
	}
	return fallback
}
