package viewstate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/andreyvit/viewstate/report"
)

// DefaultDebounceWait is the idle window after the last column resize before
// the column widths slice is written.
const DefaultDebounceWait = 500 * time.Millisecond

type ViewOptions struct {
	Logger   *slog.Logger
	Reporter report.Reporter
	Metrics  *Metrics

	DebounceWait time.Duration

	// AfterFunc replaces time.AfterFunc for the debounced write, for tests.
	AfterFunc AfterFunc
}

// View holds the settings of one list view instance and keeps them in sync
// with a Store.
//
// Everything except the column widths is written eagerly on every change;
// column widths are written once resizing settles. Store failures are
// reported through ViewOptions.Reporter and never returned.
type View struct {
	store     Store
	kind      *ViewKind
	projectID int
	key       string

	logger    *slog.Logger
	reporter  report.Reporter
	metrics   *Metrics
	debouncer *Debouncer

	mu       sync.Mutex
	settings Settings
	loaded   bool

	widthsMu     sync.Mutex
	widthsDigest uint64
	widthsStored bool
}

func NewView(store Store, kind *ViewKind, projectID int, opt ViewOptions) *View {
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	if opt.DebounceWait == 0 {
		opt.DebounceWait = DefaultDebounceWait
	}
	return &View{
		store:     store,
		kind:      kind,
		projectID: projectID,
		key:       kind.Key(projectID),
		logger:    opt.Logger.With(slog.String("settings_key", kind.Key(projectID))),
		reporter:  report.Or(opt.Reporter),
		metrics:   opt.Metrics,
		debouncer: NewDebouncer(opt.DebounceWait, opt.AfterFunc),
		settings:  kind.Defaults(),
	}
}

func (v *View) Kind() *ViewKind {
	return v.kind
}

func (v *View) ProjectID() int {
	return v.projectID
}

// Key returns the settings key this view reads and writes.
func (v *View) Key() string {
	return v.key
}

// Load reads the stored settings and merges them over the kind's defaults.
// Invalid stored fields are dropped and logged; a store failure is reported
// and leaves the defaults in effect.
func (v *View) Load(ctx context.Context) Settings {
	defaults := v.kind.Defaults()

	raw, err := v.store.Load(ctx, v.key)
	if err != nil {
		v.metrics.storeFailure(v.kind.name, "load")
		v.reporter.Report(ctx, err, report.Options{
			Level:         report.LevelError,
			Type:          report.TypeServer,
			PublicMessage: "Unable to load settings.",
			Attrs:         []slog.Attr{slog.String("settings_key", v.key)},
		})
		v.mu.Lock()
		v.settings = defaults
		v.loaded = true
		v.mu.Unlock()
		return defaults.Clone()
	}

	p, err := Decode(raw)
	var de *DecodeError
	if errors.As(err, &de) {
		for _, fe := range de.Fields {
			v.metrics.droppedField(v.kind.name, fe.Key)
			v.logger.LogAttrs(ctx, slog.LevelWarn, "dropped invalid stored setting",
				slog.String("field", fe.Key),
				slog.Any("err", fe.Err),
			)
		}
	}

	if p.ColumnWidths != nil {
		digest, err := widthsDigest(p.ColumnWidths)
		if err == nil {
			v.widthsMu.Lock()
			v.widthsDigest, v.widthsStored = digest, true
			v.widthsMu.Unlock()
		}
	}

	s := WithDefaults(p, defaults)
	v.mu.Lock()
	v.settings = s
	v.loaded = true
	v.mu.Unlock()
	return s.Clone()
}

// Loaded reports whether Load has completed.
func (v *View) Loaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loaded
}

// Settings returns a copy of the current settings.
func (v *View) Settings() Settings {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.settings.Clone()
}

// Update applies p over the current settings. Column widths, if present,
// go through the debounced path; the rest is written right away.
func (v *View) Update(ctx context.Context, p Partial) {
	v.mu.Lock()
	v.settings = WithDefaults(p, v.settings)
	v.mu.Unlock()

	if p.ColumnWidths != nil {
		v.scheduleWidths(ctx)
	}
	if eager := p.WithoutColumnWidths(); !eager.IsEmpty() {
		v.save(ctx, sliceSettings, Encode(eager))
	}
}

// SetColumnWidth sets the width of one column.
func (v *View) SetColumnWidth(ctx context.Context, column string, width float64) {
	v.mu.Lock()
	widths := cloneWidths(v.settings.ColumnWidths)
	if widths == nil {
		widths = make(map[string]float64)
	}
	widths[column] = width
	v.settings.ColumnWidths = widths
	v.mu.Unlock()

	v.scheduleWidths(ctx)
}

// SetColumnWidths replaces all column widths.
func (v *View) SetColumnWidths(ctx context.Context, widths map[string]float64) {
	v.mu.Lock()
	v.settings.ColumnWidths = nonNilWidths(cloneWidths(widths))
	v.mu.Unlock()

	v.scheduleWidths(ctx)
}

func (v *View) ToggleRow(ctx context.Context, id RowID) {
	v.updateSelection(ctx, func(sel *Selection) { sel.Toggle(id) })
}

func (v *View) SelectRows(ctx context.Context, ids ...RowID) {
	v.updateSelection(ctx, func(sel *Selection) { sel.Select(ids...) })
}

func (v *View) DeselectRows(ctx context.Context, ids ...RowID) {
	v.updateSelection(ctx, func(sel *Selection) { sel.Deselect(ids...) })
}

func (v *View) SelectAllRows(ctx context.Context) {
	v.updateSelection(ctx, (*Selection).SelectAll)
}

func (v *View) ClearSelection(ctx context.Context) {
	v.updateSelection(ctx, (*Selection).ClearAll)
}

// SelectionCount returns the number of selected rows given the collection
// size reported by the server, see Selection.Count.
func (v *View) SelectionCount(total Total) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.settings.Selection.Count(total)
}

func (v *View) IsSelected(id RowID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.settings.Selection.IsSelected(id)
}

func (v *View) updateSelection(ctx context.Context, f func(sel *Selection)) {
	v.mu.Lock()
	f(&v.settings.Selection)
	sel := v.settings.Selection.Clone()
	v.mu.Unlock()

	v.save(ctx, sliceSettings, Encode(Partial{Selection: &sel}))
}

// Flush writes pending column widths immediately.
func (v *View) Flush(ctx context.Context) {
	if v.debouncer.Cancel() {
		v.writeWidths(ctx)
	}
}

// Close flushes pending writes. Later changes are kept in memory only.
func (v *View) Close(ctx context.Context) {
	v.Flush(ctx)
	v.debouncer.Stop()
}

func (v *View) scheduleWidths(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	if v.debouncer.Trigger(func() { v.writeWidths(ctx) }) {
		v.metrics.coalesced(v.kind.name)
	}
}

func (v *View) writeWidths(ctx context.Context) {
	v.mu.Lock()
	slice := ColumnWidthsSlice{nonNilWidths(cloneWidths(v.settings.ColumnWidths))}
	v.mu.Unlock()

	v.widthsMu.Lock()
	defer v.widthsMu.Unlock()

	digest, err := widthsDigest(slice.ColumnWidths)
	if err == nil && v.widthsStored && digest == v.widthsDigest {
		v.metrics.skippedWrite(v.kind.name)
		return
	}
	if v.save(ctx, sliceColumnWidths, slice.Encode()) && err == nil {
		v.widthsDigest, v.widthsStored = digest, true
	}
}

func (v *View) save(ctx context.Context, slice string, raw map[string]any) bool {
	err := v.store.Save(ctx, v.key, raw)
	if err != nil {
		v.metrics.storeFailure(v.kind.name, "save")
		v.reporter.Report(ctx, err, report.Options{
			Level:         report.LevelError,
			Type:          report.TypeServer,
			PublicMessage: "Unable to save settings.",
			Attrs: []slog.Attr{
				slog.String("settings_key", v.key),
				slog.String("slice", slice),
			},
		})
		return false
	}
	v.metrics.write(v.kind.name, slice)
	return true
}

func widthsDigest(widths map[string]float64) (uint64, error) {
	data, err := MsgPack.EncodeValue(nil, encodeWidths(widths))
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}
