package viewstate

import (
	"maps"
	"slices"
)

// Settings is a fully populated configuration of one list view.
type Settings struct {
	Columns            []string
	ColumnWidths       map[string]float64
	Compare            bool
	Filterset          string
	HeatmapOn          bool
	HeatmapSkipped     []string
	PageLimit          int
	PinnedColumnsCount int
	Selection          Selection
	SortString         string
}

// Partial is the persisted, partially specified form of Settings. Nil
// pointers, slices and maps mean “absent”; a non-nil empty slice or map is
// a present empty value.
type Partial struct {
	Columns            []string
	ColumnWidths       map[string]float64
	Compare            *bool
	Filterset          *string
	HeatmapOn          *bool
	HeatmapSkipped     []string
	PageLimit          *int
	PinnedColumnsCount *int
	Selection          *Selection
	SortString         *string
}

// Ptr returns a pointer to v, for building Partials.
func Ptr[T any](v T) *T {
	return &v
}

func (s Settings) Clone() Settings {
	s.Columns = cloneStrings(s.Columns)
	s.ColumnWidths = cloneWidths(s.ColumnWidths)
	s.HeatmapSkipped = cloneStrings(s.HeatmapSkipped)
	s.Selection = s.Selection.Clone()
	return s
}

// Equal reports whether two settings hold the same values. Nil and empty
// collections are equal.
func (s Settings) Equal(o Settings) bool {
	return slices.Equal(s.Columns, o.Columns) &&
		maps.Equal(s.ColumnWidths, o.ColumnWidths) &&
		s.Compare == o.Compare &&
		s.Filterset == o.Filterset &&
		s.HeatmapOn == o.HeatmapOn &&
		slices.Equal(s.HeatmapSkipped, o.HeatmapSkipped) &&
		s.PageLimit == o.PageLimit &&
		s.PinnedColumnsCount == o.PinnedColumnsCount &&
		s.Selection.Equal(o.Selection) &&
		s.SortString == o.SortString
}

// Partial returns a partial with every field of s present.
func (s Settings) Partial() Partial {
	s = s.Clone()
	return Partial{
		Columns:            nonNilStrings(s.Columns),
		ColumnWidths:       nonNilWidths(s.ColumnWidths),
		Compare:            &s.Compare,
		Filterset:          &s.Filterset,
		HeatmapOn:          &s.HeatmapOn,
		HeatmapSkipped:     nonNilStrings(s.HeatmapSkipped),
		PageLimit:          &s.PageLimit,
		PinnedColumnsCount: &s.PinnedColumnsCount,
		Selection:          &s.Selection,
		SortString:         &s.SortString,
	}
}

// WithDefaults produces full settings: each field of defaults is used unless
// the partial has it. The override is shallow, per key: a present
// ColumnWidths map replaces the default map entirely.
func WithDefaults(p Partial, defaults Settings) Settings {
	s := defaults.Clone()
	if p.Columns != nil {
		s.Columns = cloneStrings(p.Columns)
	}
	if p.ColumnWidths != nil {
		s.ColumnWidths = cloneWidths(p.ColumnWidths)
	}
	if p.Compare != nil {
		s.Compare = *p.Compare
	}
	if p.Filterset != nil {
		s.Filterset = *p.Filterset
	}
	if p.HeatmapOn != nil {
		s.HeatmapOn = *p.HeatmapOn
	}
	if p.HeatmapSkipped != nil {
		s.HeatmapSkipped = cloneStrings(p.HeatmapSkipped)
	}
	if p.PageLimit != nil {
		s.PageLimit = *p.PageLimit
	}
	if p.PinnedColumnsCount != nil {
		s.PinnedColumnsCount = *p.PinnedColumnsCount
	}
	if p.Selection != nil {
		s.Selection = p.Selection.Clone()
	}
	if p.SortString != nil {
		s.SortString = *p.SortString
	}
	return s
}

// Merge returns p with every field present in o overriding p's.
func (p Partial) Merge(o Partial) Partial {
	if o.Columns != nil {
		p.Columns = o.Columns
	}
	if o.ColumnWidths != nil {
		p.ColumnWidths = o.ColumnWidths
	}
	if o.Compare != nil {
		p.Compare = o.Compare
	}
	if o.Filterset != nil {
		p.Filterset = o.Filterset
	}
	if o.HeatmapOn != nil {
		p.HeatmapOn = o.HeatmapOn
	}
	if o.HeatmapSkipped != nil {
		p.HeatmapSkipped = o.HeatmapSkipped
	}
	if o.PageLimit != nil {
		p.PageLimit = o.PageLimit
	}
	if o.PinnedColumnsCount != nil {
		p.PinnedColumnsCount = o.PinnedColumnsCount
	}
	if o.Selection != nil {
		p.Selection = o.Selection
	}
	if o.SortString != nil {
		p.SortString = o.SortString
	}
	return p
}

// Keys returns the persisted names of the fields present in p, in schema
// order.
func (p Partial) Keys() []string {
	var keys []string
	for _, f := range settingsFields {
		if f.present(p) {
			keys = append(keys, f.name)
		}
	}
	return keys
}

func (p Partial) IsEmpty() bool {
	for _, f := range settingsFields {
		if f.present(p) {
			return false
		}
	}
	return true
}

func cloneStrings(v []string) []string {
	if v == nil {
		return nil
	}
	return append(make([]string, 0, len(v)), v...)
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func cloneWidths(v map[string]float64) map[string]float64 {
	if v == nil {
		return nil
	}
	c := make(map[string]float64, len(v))
	maps.Copy(c, v)
	return c
}

func nonNilWidths(v map[string]float64) map[string]float64 {
	if v == nil {
		return map[string]float64{}
	}
	return v
}
