package knx

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

const DOMAIN = "knx"

type fieldKind int

const (
	fieldString fieldKind = iota
	fieldScalar
	fieldBool
	fieldInt
	fieldFloat
	fieldGroupAddress
	fieldGroupAddressList
	fieldList
	fieldMapping
	fieldAny
)

type fieldSpec struct {
	name     string
	kind     fieldKind
	required bool
	min, max float64
	oneOf    []string
	// entries validates every value of a mapping field
	entries *platformSpec
}

func (f fieldSpec) ranged() bool {
	return f.min != f.max
}

// platformSpec describes the items of one platform list. atLeastOne names
// keys of which one must be present.
type platformSpec struct {
	fields     []fieldSpec
	atLeastOne []string
}

func (p platformSpec) field(name string) (fieldSpec, bool) {
	for _, f := range p.fields {
		if f.name == name {
			return f, true
		}
	}
	return fieldSpec{}, false
}

func ga(name string) fieldSpec {
	return fieldSpec{name: name, kind: fieldGroupAddress}
}

func gaList(name string) fieldSpec {
	return fieldSpec{name: name, kind: fieldGroupAddressList}
}

func required(f fieldSpec) fieldSpec {
	f.required = true
	return f
}

func str(name string) fieldSpec {
	return fieldSpec{name: name, kind: fieldString}
}

func boolean(name string) fieldSpec {
	return fieldSpec{name: name, kind: fieldBool}
}

func intRange(name string, min, max float64) fieldSpec {
	return fieldSpec{name: name, kind: fieldInt, min: min, max: max}
}

func floatRange(name string, min, max float64) fieldSpec {
	return fieldSpec{name: name, kind: fieldFloat, min: min, max: max}
}

func enum(name string, values ...string) fieldSpec {
	return fieldSpec{name: name, kind: fieldString, oneOf: values}
}

// entity fields shared by every platform
var entityFields = []fieldSpec{
	str("name"),
	enum("entity_category", "config", "diagnostic"),
}

var (
	syncState     = fieldSpec{name: "sync_state", kind: fieldScalar}
	respondToRead = boolean("respond_to_read")
)

func platform(atLeastOne []string, fields ...fieldSpec) platformSpec {
	return platformSpec{
		fields:     append(append([]fieldSpec(nil), entityFields...), fields...),
		atLeastOne: atLeastOne,
	}
}

var lightColorSpec = platformSpec{fields: []fieldSpec{
	gaList("address"),
	gaList("state_address"),
	gaList("brightness_address"),
	gaList("brightness_state_address"),
}}

var platformSpecs = map[string]platformSpec{
	"event": {fields: []fieldSpec{
		required(gaList("address")),
		str("type"),
	}},
	"expose": {fields: []fieldSpec{
		required(str("type")),
		required(ga("address")),
		str("entity_id"),
		str("attribute"),
		{name: "default", kind: fieldAny},
		floatRange("cooldown", 0, 0),
		respondToRead,
		str("value_template"),
	}},
	"binary_sensor": platform(nil,
		required(gaList("state_address")),
		syncState,
		boolean("ignore_internal_state"),
		floatRange("context_timeout", 0, 10),
		boolean("invert"),
		str("device_class"),
		floatRange("reset_after", 0, 0),
	),
	"button": platform(nil,
		required(ga("address")),
		fieldSpec{name: "payload", kind: fieldAny},
		intRange("payload_length", 0, 14),
		str("type"),
		fieldSpec{name: "value", kind: fieldAny},
	),
	"climate": platform(nil,
		required(gaList("temperature_address")),
		required(gaList("target_temperature_state_address")),
		gaList("target_temperature_address"),
		floatRange("temperature_step", 0, 2),
		gaList("setpoint_shift_address"),
		gaList("setpoint_shift_state_address"),
		enum("setpoint_shift_mode", "DPT6010", "DPT9002"),
		floatRange("setpoint_shift_max", 0, 32),
		floatRange("setpoint_shift_min", -32, 0),
		gaList("operation_mode_address"),
		gaList("operation_mode_state_address"),
		gaList("controller_status_address"),
		gaList("controller_status_state_address"),
		gaList("controller_mode_address"),
		gaList("controller_mode_state_address"),
		gaList("command_value_state_address"),
		gaList("heat_cool_address"),
		gaList("heat_cool_state_address"),
		gaList("operation_mode_frost_protection_address"),
		gaList("operation_mode_night_address"),
		gaList("operation_mode_comfort_address"),
		gaList("operation_mode_standby_address"),
		fieldSpec{name: "operation_modes", kind: fieldList},
		fieldSpec{name: "controller_modes", kind: fieldList},
		str("default_controller_mode"),
		gaList("on_off_address"),
		gaList("on_off_state_address"),
		boolean("on_off_invert"),
		floatRange("min_temp", 0, 0),
		floatRange("max_temp", 0, 0),
		gaList("humidity_state_address"),
		gaList("fan_speed_address"),
		gaList("fan_speed_state_address"),
		intRange("fan_max_step", 1, 100),
		enum("fan_speed_mode", "percent", "step"),
		enum("fan_zero_mode", "off", "auto"),
		gaList("swing_address"),
		gaList("swing_state_address"),
		gaList("swing_horizontal_address"),
		gaList("swing_horizontal_state_address"),
		syncState,
	),
	"cover": platform([]string{"move_long_address", "position_address"},
		gaList("move_long_address"),
		gaList("move_short_address"),
		gaList("stop_address"),
		gaList("position_address"),
		gaList("position_state_address"),
		gaList("angle_address"),
		gaList("angle_state_address"),
		floatRange("travelling_time_down", 0, 0),
		floatRange("travelling_time_up", 0, 0),
		boolean("invert_updown"),
		boolean("invert_position"),
		boolean("invert_angle"),
		str("device_class"),
	),
	"date": platform(nil,
		required(gaList("address")),
		gaList("state_address"),
		respondToRead,
		syncState,
	),
	"datetime": platform(nil,
		required(gaList("address")),
		gaList("state_address"),
		respondToRead,
		syncState,
	),
	"fan": platform(nil,
		required(gaList("address")),
		gaList("state_address"),
		gaList("oscillation_address"),
		gaList("oscillation_state_address"),
		intRange("max_step", 1, 100),
		gaList("switch_address"),
		gaList("switch_state_address"),
	),
	"light": platform([]string{"address", "individual_colors"},
		gaList("address"),
		gaList("state_address"),
		gaList("brightness_address"),
		gaList("brightness_state_address"),
		gaList("color_address"),
		gaList("color_state_address"),
		gaList("color_temperature_address"),
		gaList("color_temperature_state_address"),
		enum("color_temperature_mode", "absolute", "absolute_float", "relative"),
		gaList("rgbw_address"),
		gaList("rgbw_state_address"),
		gaList("hue_address"),
		gaList("hue_state_address"),
		gaList("saturation_address"),
		gaList("saturation_state_address"),
		gaList("xyy_address"),
		gaList("xyy_state_address"),
		fieldSpec{name: "individual_colors", kind: fieldMapping, oneOf: []string{"red", "green", "blue", "white"}, entries: &lightColorSpec},
		intRange("min_kelvin", 1, 0xFFFF),
		intRange("max_kelvin", 1, 0xFFFF),
	),
	"notify": platform(nil,
		required(ga("address")),
		enum("type", "latin_1", "string"),
	),
	"number": platform(nil,
		required(ga("address")),
		gaList("state_address"),
		required(str("type")),
		enum("mode", "auto", "box", "slider"),
		floatRange("min", 0, 0),
		floatRange("max", 0, 0),
		floatRange("step", 0, 0),
		respondToRead,
		syncState,
	),
	"scene": platform(nil,
		required(gaList("address")),
		required(intRange("scene_number", 1, 64)),
	),
	"select": platform(nil,
		required(gaList("address")),
		gaList("state_address"),
		required(intRange("payload_length", 0, 14)),
		required(fieldSpec{name: "options", kind: fieldList}),
		respondToRead,
		syncState,
	),
	"sensor": platform(nil,
		required(gaList("state_address")),
		required(str("type")),
		syncState,
		boolean("always_callback"),
		str("state_class"),
		str("device_class"),
	),
	"switch": platform(nil,
		required(gaList("address")),
		gaList("state_address"),
		boolean("invert"),
		respondToRead,
		str("device_class"),
	),
	"text": platform(nil,
		required(ga("address")),
		gaList("state_address"),
		enum("type", "latin_1", "string"),
		enum("mode", "text", "password"),
		respondToRead,
		syncState,
	),
	"time": platform(nil,
		required(gaList("address")),
		gaList("state_address"),
		respondToRead,
		syncState,
	),
	"valve": platform(nil,
		required(gaList("address")),
		gaList("state_address"),
		boolean("invert"),
		respondToRead,
		syncState,
	),
	"weather": platform(nil,
		required(gaList("address_temperature")),
		gaList("address_brightness_south"),
		gaList("address_brightness_west"),
		gaList("address_brightness_east"),
		gaList("address_brightness_north"),
		gaList("address_wind_speed"),
		gaList("address_wind_bearing"),
		gaList("address_rain_alarm"),
		gaList("address_frost_alarm"),
		gaList("address_wind_alarm"),
		gaList("address_day_night"),
		gaList("address_air_pressure"),
		gaList("address_humidity"),
		syncState,
	),
}

var sectionSpec = platformSpec{fields: []fieldSpec{
	intRange("rate_limit", 1, 100),
	// connection settings moved to the config entry; still accepted in the file
	{name: "config_file", kind: fieldAny},
	{name: "individual_address", kind: fieldAny},
	{name: "routing", kind: fieldAny},
	{name: "tunneling", kind: fieldAny},
	{name: "state_updater", kind: fieldAny},
}}

// SchemaError is a single validation failure located by its path in the
// configuration document.
type SchemaError struct {
	Path    []any
	Message string
}

func (e SchemaError) Error() string {
	if len(e.Path) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s @ data%s", e.Message, formatPath(e.Path))
}

// ValidationError collects every SchemaError found in one validation run.
type ValidationError struct {
	Errors []SchemaError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, se := range e.Errors {
		msgs = append(msgs, se.Error())
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// Schema validates the knx section of a configuration document. Keys other
// than knx are ignored. A missing or empty knx section is valid.
type Schema struct{}

func NewSchema() Schema {
	return Schema{}
}

func (Schema) Validate(config map[string]any) error {
	section, ok := config[DOMAIN]
	if !ok || section == nil {
		return nil
	}
	v := &validator{}
	v.section(section, []any{DOMAIN})
	if len(v.errs) > 0 {
		return &ValidationError{Errors: v.errs}
	}
	return nil
}

type validator struct {
	errs []SchemaError
}

func (v *validator) fail(path []any, format string, args ...any) {
	v.errs = append(v.errs, SchemaError{
		Path:    append([]any(nil), path...),
		Message: fmt.Sprintf(format, args...),
	})
}

func (v *validator) section(value any, path []any) {
	section, ok := value.(map[string]any)
	if !ok {
		v.fail(path, "expected a dictionary")
		return
	}
	for _, key := range sortedKeys(section) {
		keyPath := append(path, key)
		if spec, ok := platformSpecs[key]; ok {
			v.platform(spec, section[key], keyPath)
			continue
		}
		if spec, ok := sectionSpec.field(key); ok {
			v.value(spec, section[key], keyPath)
			continue
		}
		v.fail(keyPath, "extra keys not allowed")
	}
}

func (v *validator) platform(spec platformSpec, value any, path []any) {
	if value == nil {
		return
	}
	items, ok := value.([]any)
	if !ok {
		// a single item is accepted in place of a list
		if _, isMap := value.(map[string]any); isMap {
			items = []any{value}
		} else {
			v.fail(path, "expected a list")
			return
		}
	}
	for i, item := range items {
		itemPath := append(path, i)
		entity, ok := item.(map[string]any)
		if !ok {
			v.fail(itemPath, "expected a dictionary")
			continue
		}
		v.item(spec, entity, itemPath)
	}
}

func (v *validator) item(spec platformSpec, entity map[string]any, itemPath []any) {
	for _, f := range spec.fields {
		raw, present := entity[f.name]
		if !present {
			if f.required {
				v.fail(append(itemPath, f.name), "required key not provided")
			}
			continue
		}
		v.value(f, raw, append(itemPath, f.name))
	}
	for _, key := range sortedKeys(entity) {
		if _, known := spec.field(key); !known {
			v.fail(append(itemPath, key), "extra keys not allowed")
		}
	}
	if len(spec.atLeastOne) > 0 && !hasAnyKey(entity, spec.atLeastOne) {
		v.fail(itemPath, "must contain at least one of %s.", strings.Join(spec.atLeastOne, ", "))
	}
}

func hasAnyKey(m map[string]any, keys []string) bool {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

func (v *validator) value(f fieldSpec, raw any, path []any) {
	switch f.kind {
	case fieldString:
		switch raw.(type) {
		case map[string]any, []any, nil:
			v.fail(path, "expected str for dictionary value")
			return
		}
		if len(f.oneOf) > 0 && !slices.Contains(f.oneOf, cast.ToString(raw)) {
			v.fail(path, "value must be one of %s for dictionary value", quotedList(f.oneOf))
		}
	case fieldScalar:
		switch raw.(type) {
		case map[string]any, []any, nil:
			v.fail(path, "expected a scalar for dictionary value")
		}
	case fieldBool:
		if _, err := cast.ToBoolE(raw); err != nil {
			v.fail(path, "expected boolean for dictionary value")
		}
	case fieldInt:
		n, err := cast.ToIntE(raw)
		if err != nil {
			v.fail(path, "expected int for dictionary value")
			return
		}
		v.inRange(f, float64(n), path)
	case fieldFloat:
		n, err := cast.ToFloat64E(raw)
		if err != nil {
			v.fail(path, "expected float for dictionary value")
			return
		}
		v.inRange(f, n, path)
	case fieldGroupAddress:
		v.groupAddress(raw, path)
	case fieldGroupAddressList:
		if list, ok := raw.([]any); ok {
			if len(list) == 0 {
				v.fail(path, "length of value must be at least 1 for dictionary value")
			}
			for i, item := range list {
				v.groupAddress(item, append(path, i))
			}
			return
		}
		v.groupAddress(raw, path)
	case fieldList:
		if _, ok := raw.([]any); !ok {
			v.fail(path, "expected list for dictionary value")
		}
	case fieldMapping:
		m, ok := raw.(map[string]any)
		if !ok {
			v.fail(path, "expected a dictionary for dictionary value")
			return
		}
		if f.entries == nil {
			return
		}
		for _, key := range sortedKeys(m) {
			keyPath := append(path, key)
			if len(f.oneOf) > 0 && !slices.Contains(f.oneOf, key) {
				v.fail(keyPath, "extra keys not allowed")
				continue
			}
			entry, ok := m[key].(map[string]any)
			if !ok {
				v.fail(keyPath, "expected a dictionary")
				continue
			}
			v.item(*f.entries, entry, keyPath)
		}
	case fieldAny:
	}
}

func (v *validator) inRange(f fieldSpec, n float64, path []any) {
	if !f.ranged() {
		return
	}
	if n < f.min {
		v.fail(path, "value must be at least %s for dictionary value", formatNumber(f.min))
	} else if n > f.max {
		v.fail(path, "value must be at most %s for dictionary value", formatNumber(f.max))
	}
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func quotedList(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, s := range values {
		quoted = append(quoted, "'"+s+"'")
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func (v *validator) groupAddress(raw any, path []any) {
	var s string
	switch ga := raw.(type) {
	case string:
		s = ga
	case int:
		s = strconv.Itoa(ga)
	default:
		v.fail(path, "expected str for dictionary value")
		return
	}
	if _, err := ParseGroupAddress(s); err != nil {
		v.fail(path, "'%s' is not a valid KNX group address for dictionary value", s)
	}
}

func formatPath(path []any) string {
	var b strings.Builder
	for _, p := range path {
		switch k := p.(type) {
		case int:
			fmt.Fprintf(&b, "[%d]", k)
		default:
			fmt.Fprintf(&b, "['%v']", k)
		}
	}
	return b.String()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
