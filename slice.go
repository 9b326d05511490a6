package viewstate

// ColumnWidthsSlice is the part of the settings holding column widths. It is
// persisted on its own cadence (debounced while a column is being resized)
// under the same settings key as the rest of the settings.
type ColumnWidthsSlice struct {
	ColumnWidths map[string]float64
}

// DecodeColumnWidths decodes the slice from a raw stored settings object.
// Every key other than columnWidths is ignored. On a malformed value the
// slice is empty and a *DecodeError is returned.
func DecodeColumnWidths(raw map[string]any) (ColumnWidthsSlice, error) {
	v, found := raw[KeyColumnWidths]
	if !found {
		return ColumnWidthsSlice{}, nil
	}
	widths, err := decodeWidths(v)
	if err != nil {
		return ColumnWidthsSlice{}, &DecodeError{[]FieldError{{Key: KeyColumnWidths, Value: v, Err: err}}}
	}
	return ColumnWidthsSlice{widths}, nil
}

// Encode returns a raw partial holding only columnWidths, or an empty object
// if the slice is absent.
func (cs ColumnWidthsSlice) Encode() map[string]any {
	return Encode(cs.Partial())
}

func (cs ColumnWidthsSlice) Partial() Partial {
	return Partial{ColumnWidths: cs.ColumnWidths}
}

func (cs ColumnWidthsSlice) IsEmpty() bool {
	return cs.ColumnWidths == nil
}

// ColumnWidthsSlice extracts the column widths slice of p.
func (p Partial) ColumnWidthsSlice() ColumnWidthsSlice {
	return ColumnWidthsSlice{cloneWidths(p.ColumnWidths)}
}

// WithoutColumnWidths returns p with the column widths slice removed, for
// the eager write path.
func (p Partial) WithoutColumnWidths() Partial {
	p.ColumnWidths = nil
	return p
}
