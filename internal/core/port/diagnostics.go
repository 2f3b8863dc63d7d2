package port

import "context"

type SystemInfoProvider interface {
	SystemInfo(ctx context.Context) (map[string]any, error)
}

// RawConfigReader returns the configuration file keyed by integration domain.
type RawConfigReader interface {
	ReadConfig(ctx context.Context) (map[string]any, error)
}

type KNXConnection interface {
	Version() string
	CurrentAddress() string
}

// ConfigSchema validates a whole configuration document. Unrelated keys
// are ignored.
type ConfigSchema interface {
	Validate(config map[string]any) error
}
