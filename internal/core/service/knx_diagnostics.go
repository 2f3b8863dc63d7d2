package service

import (
	"context"
	"fmt"
	"maps"

	"github.com/berfenger/hassbridge/internal/core/port"
)

const KNX_DOMAIN = "knx"

type KNXDiagnostics struct {
	SystemInfo         map[string]any    `json:"system_info"`
	KNX                KNXConnectionInfo `json:"knx"`
	ConfigEntryData    map[string]any    `json:"config_entry_data"`
	ConfigurationYAML  any               `json:"configuration_yaml"`
	ConfigurationError *string           `json:"configuration_error"`
}

type KNXConnectionInfo struct {
	Version        string `json:"version"`
	CurrentAddress string `json:"current_address"`
}

// KNXDiagnosticsCollector assembles the diagnostics snapshot of a KNX config
// entry. It only reads from its collaborators.
type KNXDiagnosticsCollector struct {
	entries    port.ConfigEntryStore
	systemInfo port.SystemInfoProvider
	config     port.RawConfigReader
	schema     port.ConfigSchema
	connection port.KNXConnection
}

func NewKNXDiagnosticsCollector(entries port.ConfigEntryStore, systemInfo port.SystemInfoProvider,
	config port.RawConfigReader, schema port.ConfigSchema, connection port.KNXConnection) *KNXDiagnosticsCollector {
	return &KNXDiagnosticsCollector{
		entries:    entries,
		systemInfo: systemInfo,
		config:     config,
		schema:     schema,
		connection: connection,
	}
}

// ConfigEntryDiagnostics returns the snapshot for entryId. A configuration
// that fails validation is reported in ConfigurationError and does not fail
// the call. Errors from the system info provider or the config reader do.
func (c *KNXDiagnosticsCollector) ConfigEntryDiagnostics(ctx context.Context, entryId string) (*KNXDiagnostics, error) {
	entry, err := c.entries.Get(entryId)
	if err != nil {
		return nil, err
	}
	if entry.Domain != KNX_DOMAIN {
		return nil, fmt.Errorf("config entry %s belongs to %s, not %s", entryId, entry.Domain, KNX_DOMAIN)
	}

	info, err := c.systemInfo.SystemInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect system info: %w", err)
	}

	rawConfig, err := c.config.ReadConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("read configuration: %w", err)
	}

	diag := &KNXDiagnostics{
		SystemInfo: info,
		KNX: KNXConnectionInfo{
			Version:        c.connection.Version(),
			CurrentAddress: c.connection.CurrentAddress(),
		},
		ConfigEntryData:   maps.Clone(entry.Data),
		ConfigurationYAML: rawConfig[KNX_DOMAIN],
	}
	if diag.ConfigEntryData == nil {
		diag.ConfigEntryData = map[string]any{}
	}
	if err := c.schema.Validate(rawConfig); err != nil {
		msg := err.Error()
		diag.ConfigurationError = &msg
	}
	return diag, nil
}
