package viewstate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/andreyvit/viewstate/report"
)

// recordingStore wraps a Store, records saves and can be told to fail.
type recordingStore struct {
	Store

	mu       sync.Mutex
	saves    []map[string]any
	failLoad error
	failSave error
}

func (s *recordingStore) Load(ctx context.Context, key string) (map[string]any, error) {
	s.mu.Lock()
	err := s.failLoad
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.Store.Load(ctx, key)
}

func (s *recordingStore) Save(ctx context.Context, key string, partial map[string]any) error {
	s.mu.Lock()
	s.saves = append(s.saves, partial)
	err := s.failSave
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.Store.Save(ctx, key, partial)
}

func (s *recordingStore) savedKeys() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result [][]string
	for _, raw := range s.saves {
		p, _ := Decode(raw)
		result = append(result, p.Keys())
	}
	return result
}

type reports struct {
	mu   sync.Mutex
	errs []error
	opts []report.Options
}

func (r *reports) Report(ctx context.Context, err error, opt report.Options) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
	r.opts = append(r.opts, opt)
}

type viewFixture struct {
	db      *DB
	store   *recordingStore
	clock   *fakeClock
	reports *reports
}

func setupView(t testing.TB) *viewFixture {
	db := setup(t)
	return &viewFixture{
		db:      db,
		store:   &recordingStore{Store: db},
		clock:   &fakeClock{},
		reports: &reports{},
	}
}

func (f *viewFixture) newView(kind *ViewKind, projectID int) *View {
	return NewView(f.store, kind, projectID, ViewOptions{
		Logger:    slog.Default(),
		Reporter:  f.reports,
		AfterFunc: f.clock.AfterFunc,
	})
}

func TestView_LoadDefaults(t *testing.T) {
	ctx := context.Background()
	f := setupView(t)
	v := f.newView(ExperimentListing, 12)
	deepEqual(t, v.Key(), "experimentListingForProject12")
	deepEqual(t, v.Loaded(), false)

	s := v.Load(ctx)
	deepEqual(t, v.Loaded(), true)
	if !s.Equal(ExperimentListing.Defaults()) {
		t.Errorf("** Load() = %+v, wanted defaults", s)
	}
	deepEqual(t, len(f.store.saves), 0)
}

func TestView_LoadMergesStored(t *testing.T) {
	ctx := context.Background()
	f := setupView(t)
	ensure(f.db.Save(ctx, FlatRuns.Key(1), map[string]any{
		KeyPageLimit:  int64(80),
		KeyHeatmapOn:  "yes", // invalid, dropped
		"legacyField": 1,
	}))

	v := f.newView(FlatRuns, 1)
	s := v.Load(ctx)
	deepEqual(t, s.PageLimit, 80)
	deepEqual(t, s.HeatmapOn, false)
	deepEqual(t, s.SortString, DefaultSortString)
	deepEqual(t, len(f.reports.errs), 0)
}

func TestView_LoadFailureFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()
	f := setupView(t)
	boom := errors.New("boom")
	f.store.failLoad = boom

	v := f.newView(ExperimentListing, 1)
	s := v.Load(ctx)
	if !s.Equal(ExperimentListing.Defaults()) {
		t.Errorf("** Load() = %+v, wanted defaults", s)
	}
	deepEqual(t, len(f.reports.errs), 1)
	deepEqual(t, errors.Is(f.reports.errs[0], boom), true)
	deepEqual(t, f.reports.opts[0].Level, report.LevelError)
	deepEqual(t, f.reports.opts[0].Type, report.TypeServer)
}

func TestView_UpdateWritesEagerly(t *testing.T) {
	ctx := context.Background()
	f := setupView(t)
	v := f.newView(ExperimentListing, 2)
	v.Load(ctx)

	v.Update(ctx, Partial{PageLimit: Ptr(50), SortString: Ptr("name=asc")})
	deepEqual(t, f.store.savedKeys(), [][]string{{KeyPageLimit, KeySortString}})
	deepEqual(t, v.Settings().PageLimit, 50)
	deepEqual(t, f.clock.Live(), 0)

	// a fresh view sees the write
	s := f.newView(ExperimentListing, 2).Load(ctx)
	deepEqual(t, s.PageLimit, 50)
	deepEqual(t, s.SortString, "name=asc")
}

func TestView_UpdateRoutesColumnWidthsThroughDebounce(t *testing.T) {
	ctx := context.Background()
	f := setupView(t)
	v := f.newView(FlatRuns, 3)
	v.Load(ctx)

	v.Update(ctx, Partial{Compare: Ptr(true), ColumnWidths: map[string]float64{"id": 10}})
	deepEqual(t, f.store.savedKeys(), [][]string{{KeyCompare}})
	deepEqual(t, v.Settings().ColumnWidths, map[string]float64{"id": 10})

	deepEqual(t, f.clock.Fire(), 1)
	deepEqual(t, f.store.savedKeys(), [][]string{{KeyCompare}, {KeyColumnWidths}})
}

func TestView_ColumnWidthsDebounced(t *testing.T) {
	ctx := context.Background()
	f := setupView(t)
	v := f.newView(ExperimentListing, 4)
	v.Load(ctx)

	v.SetColumnWidth(ctx, "name", 200)
	v.SetColumnWidth(ctx, "name", 210)
	v.SetColumnWidth(ctx, "name", 220)
	deepEqual(t, len(f.store.saves), 0)
	deepEqual(t, v.Settings().ColumnWidths["name"], 220.0)

	deepEqual(t, f.clock.Fire(), 1)
	deepEqual(t, len(f.store.saves), 1)
	widths := must(Decode(f.store.saves[0])).ColumnWidths
	deepEqual(t, widths["name"], 220.0)
	deepEqual(t, widths["id"], 60.0)

	// other persisted fields are untouched by the slice write
	v.Update(ctx, Partial{PageLimit: Ptr(30)})
	v.SetColumnWidth(ctx, "id", 61)
	f.clock.Fire()
	s := f.newView(ExperimentListing, 4).Load(ctx)
	deepEqual(t, s.PageLimit, 30)
	deepEqual(t, s.ColumnWidths["id"], 61.0)
	deepEqual(t, s.ColumnWidths["name"], 220.0)
}

func TestView_UnchangedWidthsNotRewritten(t *testing.T) {
	ctx := context.Background()
	f := setupView(t)
	v := f.newView(FlatRuns, 5)
	v.Load(ctx)

	v.SetColumnWidth(ctx, "id", 120)
	f.clock.Fire()
	deepEqual(t, len(f.store.saves), 1)

	v.SetColumnWidth(ctx, "id", 130)
	v.SetColumnWidth(ctx, "id", 120)
	f.clock.Fire()
	deepEqual(t, len(f.store.saves), 1)

	// digest is seeded from stored widths on load
	v2 := f.newView(FlatRuns, 5)
	v2.Load(ctx)
	v2.SetColumnWidth(ctx, "id", 120)
	f.clock.Fire()
	deepEqual(t, len(f.store.saves), 1)
}

func TestView_SetColumnWidthsReplaces(t *testing.T) {
	ctx := context.Background()
	f := setupView(t)
	v := f.newView(FlatRuns, 6)
	v.Load(ctx)

	v.SetColumnWidths(ctx, map[string]float64{"id": 1})
	v.Flush(ctx)
	deepEqual(t, len(f.store.saves), 1)
	deepEqual(t, f.clock.Live(), 0)

	s := f.newView(FlatRuns, 6).Load(ctx)
	deepEqual(t, s.ColumnWidths, map[string]float64{"id": 1})
}

func TestView_FlushWithoutPendingIsNoop(t *testing.T) {
	ctx := context.Background()
	f := setupView(t)
	v := f.newView(FlatRuns, 6)
	v.Load(ctx)
	v.Flush(ctx)
	deepEqual(t, len(f.store.saves), 0)
}

func TestView_Selection(t *testing.T) {
	ctx := context.Background()
	f := setupView(t)
	v := f.newView(ExperimentListing, 7)
	v.Load(ctx)

	v.ToggleRow(ctx, 3)
	v.ToggleRow(ctx, 5)
	deepEqual(t, v.IsSelected(3), true)
	deepEqual(t, must(v.SelectionCount(UnknownTotal)), 2)
	deepEqual(t, f.store.savedKeys(), [][]string{{KeySelection}, {KeySelection}})

	v.SelectAllRows(ctx)
	v.ToggleRow(ctx, 9)
	deepEqual(t, v.IsSelected(3), true)
	deepEqual(t, v.IsSelected(9), false)
	if _, err := v.SelectionCount(UnknownTotal); !errors.Is(err, ErrUnknownTotal) {
		t.Errorf("** SelectionCount(unknown) err = %v", err)
	}
	deepEqual(t, must(v.SelectionCount(KnownTotal(100))), 99)

	loaded := f.newView(ExperimentListing, 7).Load(ctx)
	deepEqual(t, loaded.Selection.String(), "ALL_EXCEPT{9}")

	v.DeselectRows(ctx, 1, 2)
	v.SelectRows(ctx, 9, 1)
	deepEqual(t, v.Settings().Selection.String(), "ALL_EXCEPT{2}")

	v.ClearSelection(ctx)
	loaded = f.newView(ExperimentListing, 7).Load(ctx)
	deepEqual(t, loaded.Selection.String(), "ONLY_IN{}")
}

func TestView_SaveFailureIsReported(t *testing.T) {
	ctx := context.Background()
	f := setupView(t)
	v := f.newView(FlatRuns, 8)
	v.Load(ctx)

	boom := errors.New("boom")
	f.store.failSave = boom
	v.Update(ctx, Partial{PageLimit: Ptr(99)})
	v.SetColumnWidth(ctx, "id", 5)
	f.clock.Fire()

	deepEqual(t, v.Settings().PageLimit, 99)
	deepEqual(t, len(f.reports.errs), 2)
	for i, err := range f.reports.errs {
		deepEqual(t, errors.Is(err, boom), true)
		deepEqual(t, f.reports.opts[i].Level, report.LevelError)
		deepEqual(t, f.reports.opts[i].Type, report.TypeServer)
		deepEqual(t, f.reports.opts[i].Silent, false)
	}

	// a failed widths write is retried on the next change, not skipped
	f.store.failSave = nil
	v.SetColumnWidth(ctx, "id", 5)
	f.clock.Fire()
	deepEqual(t, len(f.store.saves), 3)
	deepEqual(t, len(f.reports.errs), 2)
}

func TestView_CloseFlushes(t *testing.T) {
	ctx := context.Background()
	f := setupView(t)
	v := f.newView(ExperimentListing, 9)
	v.Load(ctx)

	v.SetColumnWidth(ctx, "id", 33)
	v.Close(ctx)
	deepEqual(t, len(f.store.saves), 1)

	v.SetColumnWidth(ctx, "id", 34)
	deepEqual(t, f.clock.Live(), 0)
	deepEqual(t, len(f.store.saves), 1)
	deepEqual(t, v.Settings().ColumnWidths["id"], 34.0)
}

func TestView_DebouncedWriteOutlivesCanceledContext(t *testing.T) {
	f := setupView(t)
	v := f.newView(FlatRuns, 10)
	v.Load(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	v.SetColumnWidth(ctx, "id", 44)
	cancel()
	f.clock.Fire()

	deepEqual(t, len(f.reports.errs), 0)
	s := f.newView(FlatRuns, 10).Load(context.Background())
	deepEqual(t, s.ColumnWidths["id"], 44.0)
}
