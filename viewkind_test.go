package viewstate

import (
	"encoding/json"
	"testing"
)

func TestSettingsKey(t *testing.T) {
	deepEqual(t, ExperimentListing.Key(42), "experimentListingForProject42")
	deepEqual(t, FlatRuns.Key(7), "flatRunsForProject7")
	deepEqual(t, ExperimentListing.Key(0), "experimentListingForProject0")
	deepEqual(t, SettingsKey("x", 1), "x1")
}

func TestSettingsKey_Injective(t *testing.T) {
	seen := make(map[string]int)
	for _, vk := range ViewKinds() {
		for id := 0; id < 1000; id++ {
			key := vk.Key(id)
			if _, dup := seen[key]; dup {
				t.Fatalf("** duplicate key %q", key)
			}
			seen[key] = id
		}
	}
}

func TestParseSettingsKey(t *testing.T) {
	tests := []struct {
		key       string
		kind      *ViewKind
		projectID int
		ok        bool
	}{
		{"experimentListingForProject42", ExperimentListing, 42, true},
		{"flatRunsForProject0", FlatRuns, 0, true},
		{"flatRunsForProject", nil, 0, false},
		{"flatRunsForProject007", nil, 0, false},
		{"flatRunsForProjectX", nil, 0, false},
		{"somethingElse1", nil, 0, false},
	}
	for _, tt := range tests {
		vk, id, ok := ParseSettingsKey(tt.key)
		if vk != tt.kind || id != tt.projectID || ok != tt.ok {
			t.Errorf("** ParseSettingsKey(%q) = (%v, %d, %v), wanted (%v, %d, %v)", tt.key, vk, id, ok, tt.kind, tt.projectID, tt.ok)
		}
	}
	for _, vk := range ViewKinds() {
		for _, id := range []int{0, 1, 10, 123456} {
			pvk, pid, ok := ParseSettingsKey(vk.Key(id))
			if pvk != vk || pid != id || !ok {
				t.Errorf("** ParseSettingsKey(%q) = (%v, %d, %v)", vk.Key(id), pvk, pid, ok)
			}
		}
	}
}

func TestDefaults(t *testing.T) {
	for _, vk := range ViewKinds() {
		d := vk.Defaults()
		deepEqual(t, d.PageLimit, 20)
		deepEqual(t, d.PinnedColumnsCount, 3)
		deepEqual(t, d.SortString, "id=desc")
		deepEqual(t, d.Compare, false)
		deepEqual(t, d.HeatmapOn, false)
		deepEqual(t, d.HeatmapSkipped, []string{})
		deepEqual(t, d.Selection.Kind(), OnlyIn)
		deepEqual(t, d.Selection.Len(), 0)

		for _, col := range d.Columns {
			if _, ok := d.ColumnWidths[col]; !ok {
				t.Errorf("** %s: no default width for column %q", vk, col)
			}
		}
		if d.PinnedColumnsCount > len(d.Columns) {
			t.Errorf("** %s: pins more columns than it has", vk)
		}

		var fs map[string]any
		ensure(json.Unmarshal([]byte(d.Filterset), &fs))
		deepEqual(t, fs["showArchived"], any(false))
	}
}

func TestDefaults_AreCopies(t *testing.T) {
	d := FlatRuns.Defaults()
	d.Columns = append(d.Columns[:0], "zzz")
	d.ColumnWidths["id"] = 1
	deepEqual(t, FlatRuns.Defaults().Columns[0], "id")
	deepEqual(t, FlatRuns.Defaults().ColumnWidths["id"], 100.0)
}
