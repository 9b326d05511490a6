package viewstate

import (
	"strconv"
	"strings"
)

// ViewKind is a category of list view. It determines the default settings
// and the storage key prefix.
type ViewKind struct {
	name     string
	prefix   string
	defaults Settings
}

func (vk *ViewKind) Name() string {
	return vk.name
}

func (vk *ViewKind) Prefix() string {
	return vk.prefix
}

// Defaults returns a copy of the default settings of this view kind.
func (vk *ViewKind) Defaults() Settings {
	return vk.defaults.Clone()
}

// Key returns the settings key of this view for the given project.
func (vk *ViewKind) Key(projectID int) string {
	return SettingsKey(vk.prefix, projectID)
}

func (vk *ViewKind) String() string {
	return vk.name
}

// SettingsKey returns "<prefix><projectID>", the id in decimal without
// padding.
func SettingsKey(prefix string, projectID int) string {
	return prefix + strconv.Itoa(projectID)
}

// ParseSettingsKey splits a settings key into its view kind and project id.
func ParseSettingsKey(key string) (*ViewKind, int, bool) {
	for _, vk := range viewKinds {
		rem, ok := strings.CutPrefix(key, vk.prefix)
		if !ok || rem == "" {
			continue
		}
		if len(rem) > 1 && rem[0] == '0' {
			continue
		}
		id, err := strconv.Atoi(rem)
		if err != nil {
			continue
		}
		return vk, id, true
	}
	return nil, 0, false
}

// ViewKinds returns the known view kinds.
func ViewKinds() []*ViewKind {
	return append([]*ViewKind(nil), viewKinds...)
}

const (
	ExperimentListingPrefix = "experimentListingForProject"
	FlatRunsPrefix          = "flatRunsForProject"

	DefaultPageLimit          = 20
	DefaultPinnedColumnsCount = 3
	DefaultSortString         = "id=desc"

	// DefaultFilterset is the serialized empty filter form set used until the
	// user edits filters.
	DefaultFilterset = `{"filterGroup":{"children":[],"conjunction":"and","kind":"group"},"showArchived":false}`
)

var (
	ExperimentListing = &ViewKind{
		name:   "experiment-listing",
		prefix: ExperimentListingPrefix,
		defaults: baseDefaults(
			[]string{
				"id", "name", "description", "tags", "forkedFrom", "startTime",
				"state", "searcherType", "user", "duration", "numTrials",
				"resourcePool", "checkpointSize", "checkpointCount",
				"searcherMetricsVal",
			},
			map[string]float64{
				"id": 60, "name": 150, "description": 148, "tags": 106,
				"forkedFrom": 128, "startTime": 118, "state": 106,
				"searcherType": 129, "user": 85, "duration": 96,
				"numTrials": 74, "resourcePool": 140, "checkpointSize": 110,
				"checkpointCount": 105, "searcherMetricsVal": 150,
			},
		),
	}

	FlatRuns = &ViewKind{
		name:   "flat-runs",
		prefix: FlatRunsPrefix,
		defaults: baseDefaults(
			[]string{
				"id", "state", "startTime", "searcherType", "searcherMetricsVal",
				"user", "duration", "experimentId", "experimentName",
				"resourcePool", "checkpointSize", "checkpointCount",
				"externalExperimentId", "externalRunId",
			},
			map[string]float64{
				"id": 100, "state": 106, "startTime": 118, "searcherType": 140,
				"searcherMetricsVal": 150, "user": 85, "duration": 96,
				"experimentId": 100, "experimentName": 150, "resourcePool": 140,
				"checkpointSize": 110, "checkpointCount": 105,
				"externalExperimentId": 160, "externalRunId": 130,
			},
		),
	}

	viewKinds = []*ViewKind{ExperimentListing, FlatRuns}
)

func baseDefaults(columns []string, widths map[string]float64) Settings {
	return Settings{
		Columns:            columns,
		ColumnWidths:       widths,
		Compare:            false,
		Filterset:          DefaultFilterset,
		HeatmapOn:          false,
		HeatmapSkipped:     []string{},
		PageLimit:          DefaultPageLimit,
		PinnedColumnsCount: DefaultPinnedColumnsCount,
		Selection:          Selection{kind: OnlyIn},
		SortString:         DefaultSortString,
	}
}
