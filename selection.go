package viewstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// RowID identifies a row (an experiment or a run) of a list view. It is
// stable across pagination; ids are neither contiguous nor bounded.
type RowID int64

// SelectionKind is the discriminant of Selection.
type SelectionKind int

const (
	// OnlyIn selects exactly the listed rows.
	OnlyIn SelectionKind = iota
	// AllExcept selects every row of the collection except the listed ones.
	AllExcept
)

const (
	onlyInTag    = "ONLY_IN"
	allExceptTag = "ALL_EXCEPT"

	selectionTypeKey       = "type"
	selectionSelectionsKey = "selections"
	selectionExclusionsKey = "exclusions"
)

func (k SelectionKind) String() string {
	switch k {
	case OnlyIn:
		return onlyInTag
	case AllExcept:
		return allExceptTag
	default:
		return "SelectionKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// idsKey is the name of the payload array for the given kind in the
// persisted representation.
func (k SelectionKind) idsKey() string {
	switch k {
	case OnlyIn:
		return selectionSelectionsKey
	case AllExcept:
		return selectionExclusionsKey
	default:
		panic(fmt.Errorf("invalid %v", k))
	}
}

func ParseSelectionKind(tag string) (SelectionKind, bool) {
	switch tag {
	case onlyInTag:
		return OnlyIn, true
	case allExceptTag:
		return AllExcept, true
	default:
		return 0, false
	}
}

// ErrUnknownTotal is returned by Selection.Count for an AllExcept selection
// when the size of the collection is not known. Callers must treat it as
// an indeterminate count, not as zero.
var ErrUnknownTotal = errors.New("selection count is unknown: collection size not known")

// Total is the size of the whole collection as known to the caller.
type Total struct {
	n     int
	known bool
}

// UnknownTotal is a Total for a collection whose size has not been
// reported by the server yet.
var UnknownTotal = Total{}

func KnownTotal(n int) Total {
	return Total{n: n, known: true}
}

func (t Total) Value() (int, bool) {
	return t.n, t.known
}

// Selection tracks which rows of a potentially unbounded, paginated
// collection are selected without materializing the collection.
//
// In OnlyIn mode the id set holds the selected rows; in AllExcept mode it
// holds the excluded ones. The zero value is OnlyIn with nothing selected.
//
// A Selection holds a map, so copies share state; use Clone to fork one.
type Selection struct {
	kind SelectionKind
	ids  map[RowID]struct{}
}

// NewSelection returns a selection of the given kind with the given
// payload ids.
func NewSelection(kind SelectionKind, ids ...RowID) Selection {
	if kind != OnlyIn && kind != AllExcept {
		panic(fmt.Errorf("invalid %v", kind))
	}
	s := Selection{kind: kind}
	for _, id := range ids {
		s.add(id)
	}
	return s
}

func (s Selection) Kind() SelectionKind {
	return s.kind
}

// Len returns the size of the payload set: the number of selected rows for
// OnlyIn, the number of excluded rows for AllExcept.
func (s Selection) Len() int {
	return len(s.ids)
}

// IDs returns the payload ids in ascending order.
func (s Selection) IDs() []RowID {
	ids := make([]RowID, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s Selection) has(id RowID) bool {
	_, found := s.ids[id]
	return found
}

func (s *Selection) add(id RowID) {
	if s.ids == nil {
		s.ids = make(map[RowID]struct{})
	}
	s.ids[id] = struct{}{}
}

func (s *Selection) remove(id RowID) {
	delete(s.ids, id)
	if len(s.ids) == 0 {
		s.ids = nil
	}
}

func (s Selection) IsSelected(id RowID) bool {
	switch s.kind {
	case OnlyIn:
		return s.has(id)
	case AllExcept:
		return !s.has(id)
	default:
		panic(fmt.Errorf("invalid %v", s.kind))
	}
}

// Toggle flips the selection state of one row. An AllExcept selection stays
// AllExcept even once its exclusion set becomes empty again.
func (s *Selection) Toggle(id RowID) {
	if s.has(id) {
		s.remove(id)
	} else {
		s.add(id)
	}
}

// Select marks the given rows as selected.
func (s *Selection) Select(ids ...RowID) {
	for _, id := range ids {
		switch s.kind {
		case OnlyIn:
			s.add(id)
		case AllExcept:
			s.remove(id)
		}
	}
}

// Deselect marks the given rows as not selected.
func (s *Selection) Deselect(ids ...RowID) {
	for _, id := range ids {
		switch s.kind {
		case OnlyIn:
			s.remove(id)
		case AllExcept:
			s.add(id)
		}
	}
}

func (s *Selection) SelectAll() {
	*s = Selection{kind: AllExcept}
}

func (s *Selection) ClearAll() {
	*s = Selection{kind: OnlyIn}
}

// Count returns the number of selected rows. For AllExcept, total must be
// known, otherwise ErrUnknownTotal is returned.
func (s Selection) Count(total Total) (int, error) {
	switch s.kind {
	case OnlyIn:
		return len(s.ids), nil
	case AllExcept:
		if !total.known {
			return 0, ErrUnknownTotal
		}
		return total.n - len(s.ids), nil
	default:
		panic(fmt.Errorf("invalid %v", s.kind))
	}
}

// SelectedOf returns the subset of ids (typically the rows of the current
// page) that are selected, preserving order.
func (s Selection) SelectedOf(ids []RowID) []RowID {
	var result []RowID
	for _, id := range ids {
		if s.IsSelected(id) {
			result = append(result, id)
		}
	}
	return result
}

func (s Selection) Clone() Selection {
	c := Selection{kind: s.kind}
	if len(s.ids) > 0 {
		c.ids = make(map[RowID]struct{}, len(s.ids))
		for id := range s.ids {
			c.ids[id] = struct{}{}
		}
	}
	return c
}

func (s Selection) Equal(o Selection) bool {
	if s.kind != o.kind || len(s.ids) != len(o.ids) {
		return false
	}
	for id := range s.ids {
		if !o.has(id) {
			return false
		}
	}
	return true
}

func (s Selection) String() string {
	var buf strings.Builder
	buf.WriteString(s.kind.String())
	buf.WriteByte('{')
	for i, id := range s.IDs() {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.FormatInt(int64(id), 10))
	}
	buf.WriteByte('}')
	return buf.String()
}

// raw returns the untyped storage representation:
// {"type": "ONLY_IN", "selections": [...]} or
// {"type": "ALL_EXCEPT", "exclusions": [...]}.
func (s Selection) raw() map[string]any {
	ids := s.IDs()
	items := make([]any, len(ids))
	for i, id := range ids {
		items[i] = int64(id)
	}
	return map[string]any{
		selectionTypeKey: s.kind.String(),
		s.kind.idsKey():  items,
	}
}

func decodeSelection(v any) (Selection, error) {
	m, ok := asStringMap(v)
	if !ok {
		return Selection{}, fmt.Errorf("expected object, got %s", describeRaw(v))
	}
	tag, ok := m[selectionTypeKey].(string)
	if !ok {
		return Selection{}, fmt.Errorf("missing or invalid %q", selectionTypeKey)
	}
	kind, ok := ParseSelectionKind(tag)
	if !ok {
		return Selection{}, fmt.Errorf("unknown selection type %q", tag)
	}
	key := kind.idsKey()
	rawIDs, found := m[key]
	if !found {
		return Selection{}, fmt.Errorf("%s selection is missing %q", tag, key)
	}
	items, ok := asSlice(rawIDs)
	if !ok {
		return Selection{}, fmt.Errorf("%q: expected array, got %s", key, describeRaw(rawIDs))
	}
	s := Selection{kind: kind}
	for i, item := range items {
		id, ok := asInt64(item)
		if !ok {
			return Selection{}, fmt.Errorf("%q[%d]: expected integer, got %s", key, i, describeRaw(item))
		}
		s.add(RowID(id))
	}
	return s, nil
}

type onlyInJSON struct {
	Selections []RowID `json:"selections"`
	Type       string  `json:"type"`
}

type allExceptJSON struct {
	Exclusions []RowID `json:"exclusions"`
	Type       string  `json:"type"`
}

func (s Selection) MarshalJSON() ([]byte, error) {
	switch s.kind {
	case OnlyIn:
		return json.Marshal(onlyInJSON{s.IDs(), onlyInTag})
	case AllExcept:
		return json.Marshal(allExceptJSON{s.IDs(), allExceptTag})
	default:
		return nil, fmt.Errorf("invalid %v", s.kind)
	}
}

func (s *Selection) UnmarshalJSON(data []byte) error {
	var v any
	err := json.Unmarshal(data, &v)
	if err != nil {
		return err
	}
	sel, err := decodeSelection(v)
	if err != nil {
		return fmt.Errorf("selection: %w", err)
	}
	*s = sel
	return nil
}

var (
	_ msgpack.CustomEncoder = Selection{}
	_ msgpack.CustomDecoder = (*Selection)(nil)
)

// EncodeMsgpack writes the same two-key map as the JSON form, keys sorted.
func (s Selection) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(2); err != nil {
		return err
	}
	if err := enc.EncodeString(s.kind.idsKey()); err != nil {
		return err
	}
	ids := s.IDs()
	if err := enc.EncodeArrayLen(len(ids)); err != nil {
		return err
	}
	for _, id := range ids {
		if err := enc.EncodeInt(int64(id)); err != nil {
			return err
		}
	}
	if err := enc.EncodeString(selectionTypeKey); err != nil {
		return err
	}
	return enc.EncodeString(s.kind.String())
}

func (s *Selection) DecodeMsgpack(dec *msgpack.Decoder) error {
	v, err := dec.DecodeInterface()
	if err != nil {
		return err
	}
	sel, err := decodeSelection(v)
	if err != nil {
		return fmt.Errorf("selection: %w", err)
	}
	*s = sel
	return nil
}
