package viewstate

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
)

// Persisted names of settings fields.
const (
	KeyColumns            = "columns"
	KeyColumnWidths       = "columnWidths"
	KeyCompare            = "compare"
	KeyFilterset          = "filterset"
	KeyHeatmapOn          = "heatmapOn"
	KeyHeatmapSkipped     = "heatmapSkipped"
	KeyPageLimit          = "pageLimit"
	KeyPinnedColumnsCount = "pinnedColumnsCount"
	KeySelection          = "selection"
	KeySortString         = "sortString"
)

type settingsField struct {
	name    string
	present func(p Partial) bool
	decode  func(p *Partial, v any) error
	encode  func(p Partial) any
}

// settingsFields is the schema of persisted settings. Read-only after init.
var settingsFields = []*settingsField{
	{
		name:    KeyColumns,
		present: func(p Partial) bool { return p.Columns != nil },
		decode: func(p *Partial, v any) (err error) {
			p.Columns, err = decodeStrings(v)
			return
		},
		encode: func(p Partial) any { return encodeStrings(p.Columns) },
	},
	{
		name:    KeyColumnWidths,
		present: func(p Partial) bool { return p.ColumnWidths != nil },
		decode: func(p *Partial, v any) (err error) {
			p.ColumnWidths, err = decodeWidths(v)
			return
		},
		encode: func(p Partial) any { return encodeWidths(p.ColumnWidths) },
	},
	{
		name:    KeyCompare,
		present: func(p Partial) bool { return p.Compare != nil },
		decode: func(p *Partial, v any) (err error) {
			p.Compare, err = decodeBool(v)
			return
		},
		encode: func(p Partial) any { return *p.Compare },
	},
	{
		name:    KeyFilterset,
		present: func(p Partial) bool { return p.Filterset != nil },
		decode: func(p *Partial, v any) (err error) {
			p.Filterset, err = decodeString(v)
			return
		},
		encode: func(p Partial) any { return *p.Filterset },
	},
	{
		name:    KeyHeatmapOn,
		present: func(p Partial) bool { return p.HeatmapOn != nil },
		decode: func(p *Partial, v any) (err error) {
			p.HeatmapOn, err = decodeBool(v)
			return
		},
		encode: func(p Partial) any { return *p.HeatmapOn },
	},
	{
		name:    KeyHeatmapSkipped,
		present: func(p Partial) bool { return p.HeatmapSkipped != nil },
		decode: func(p *Partial, v any) (err error) {
			p.HeatmapSkipped, err = decodeStrings(v)
			return
		},
		encode: func(p Partial) any { return encodeStrings(p.HeatmapSkipped) },
	},
	{
		name:    KeyPageLimit,
		present: func(p Partial) bool { return p.PageLimit != nil },
		decode: func(p *Partial, v any) (err error) {
			p.PageLimit, err = decodeInt(v, 1)
			return
		},
		encode: func(p Partial) any { return int64(*p.PageLimit) },
	},
	{
		name:    KeyPinnedColumnsCount,
		present: func(p Partial) bool { return p.PinnedColumnsCount != nil },
		decode: func(p *Partial, v any) (err error) {
			p.PinnedColumnsCount, err = decodeInt(v, 0)
			return
		},
		encode: func(p Partial) any { return int64(*p.PinnedColumnsCount) },
	},
	{
		name:    KeySelection,
		present: func(p Partial) bool { return p.Selection != nil },
		decode: func(p *Partial, v any) error {
			sel, err := decodeSelection(v)
			if err != nil {
				return err
			}
			p.Selection = &sel
			return nil
		},
		encode: func(p Partial) any { return p.Selection.raw() },
	},
	{
		name:    KeySortString,
		present: func(p Partial) bool { return p.SortString != nil },
		decode: func(p *Partial, v any) (err error) {
			p.SortString, err = decodeString(v)
			return
		},
		encode: func(p Partial) any { return *p.SortString },
	},
}

var settingsFieldsByName = func() map[string]*settingsField {
	m := make(map[string]*settingsField, len(settingsFields))
	for _, f := range settingsFields {
		m[f.name] = f
	}
	return m
}()

// IsSettingsKey reports whether name is a field of the settings schema.
func IsSettingsKey(name string) bool {
	return settingsFieldsByName[name] != nil
}

// Decode validates a raw stored settings object against the schema.
//
// Unknown keys are ignored. A key whose value has the wrong type or is out of
// range is left absent from the result, so that its default applies, and is
// reported in the returned *DecodeError; every other key is still decoded.
// The returned partial is usable even when the error is non-nil.
func Decode(raw map[string]any) (Partial, error) {
	var p Partial
	var de DecodeError
	for _, f := range settingsFields {
		v, found := raw[f.name]
		if !found {
			continue
		}
		var fp Partial
		if err := f.decode(&fp, v); err != nil {
			de.Fields = append(de.Fields, FieldError{Key: f.name, Value: v, Err: err})
			continue
		}
		p = p.Merge(fp)
	}
	if len(de.Fields) > 0 {
		return p, &de
	}
	return p, nil
}

// Encode returns the raw representation of the fields present in p, as
// accepted by a settings Store. Decode(Encode(p)) yields p back.
func Encode(p Partial) map[string]any {
	raw := make(map[string]any)
	for _, f := range settingsFields {
		if f.present(p) {
			raw[f.name] = f.encode(p)
		}
	}
	return raw
}

// EncodeSettings returns the raw representation of every field of s.
func EncodeSettings(s Settings) map[string]any {
	return Encode(s.Partial())
}

func decodeString(v any) (*string, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %s", describeRaw(v))
	}
	return &s, nil
}

func decodeBool(v any) (*bool, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, fmt.Errorf("expected boolean, got %s", describeRaw(v))
	}
	return &b, nil
}

func decodeInt(v any, lo int64) (*int, error) {
	n, ok := asInt64(v)
	if !ok {
		return nil, fmt.Errorf("expected integer, got %s", describeRaw(v))
	}
	if n < lo {
		return nil, fmt.Errorf("expected integer >= %d, got %d", lo, n)
	}
	if n > math.MaxInt32 {
		return nil, fmt.Errorf("integer %d is out of range", n)
	}
	i := int(n)
	return &i, nil
}

func decodeStrings(v any) ([]string, error) {
	items, ok := asSlice(v)
	if !ok {
		return nil, fmt.Errorf("expected array of strings, got %s", describeRaw(v))
	}
	result := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("[%d]: expected string, got %s", i, describeRaw(item))
		}
		result = append(result, s)
	}
	return result, nil
}

func encodeStrings(v []string) []any {
	items := make([]any, len(v))
	for i, s := range v {
		items[i] = s
	}
	return items
}

func decodeWidths(v any) (map[string]float64, error) {
	m, ok := asStringMap(v)
	if !ok {
		return nil, fmt.Errorf("expected record of numbers, got %s", describeRaw(v))
	}
	result := make(map[string]float64, len(m))
	for k, item := range m {
		w, ok := asFloat64(item)
		if !ok {
			return nil, fmt.Errorf("[%q]: expected number, got %s", k, describeRaw(item))
		}
		result[k] = w
	}
	return result, nil
}

func encodeWidths(v map[string]float64) map[string]any {
	m := make(map[string]any, len(v))
	for k, w := range v {
		m[k] = w
	}
	return m
}

// asInt64 accepts any integral number: JSON decodes numbers as float64,
// msgpack picks the smallest integer type that fits.
func asInt64(v any) (int64, bool) {
	switch v := v.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, true
		}
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt64(f)
	case float32:
		return floatToInt64(float64(v))
	case float64:
		return floatToInt64(v)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	default:
		return 0, false
	}
}

func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func asFloat64(v any) (float64, bool) {
	var f float64
	switch v := v.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case json.Number:
		var err error
		f, err = v.Float64()
		if err != nil {
			return 0, false
		}
	default:
		n, ok := asInt64(v)
		if !ok {
			return 0, false
		}
		f = float64(n)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func asSlice(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false // []byte is a blob, not an array
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

func asStringMap(v any) (map[string]any, bool) {
	switch v := v.(type) {
	case map[string]any:
		return v, true
	case map[any]any:
		m := make(map[string]any, len(v))
		for k, item := range v {
			s, ok := k.(string)
			if !ok {
				return nil, false
			}
			m[s] = item
		}
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	m := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		m[iter.Key().String()] = iter.Value().Interface()
	}
	return m, true
}

func describeRaw(v any) string {
	if v == nil {
		return "null"
	}
	switch v := v.(type) {
	case string:
		return fmt.Sprintf("string %q", v)
	case bool:
		return fmt.Sprintf("boolean %v", v)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map:
		return "object"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprintf("number %v", v)
	default:
		return fmt.Sprintf("%T", v)
	}
}
