package viewstate

import (
	"fmt"
	"strings"
)

type DumpFlags uint64

const (
	DumpKeyHeaders = DumpFlags(1 << iota)
	DumpFields
	DumpMeta
	DumpMerged
	DumpStats

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)
)

var (
	dumpSep1 = strings.Repeat("=", 80)
	dumpSep2 = strings.Repeat("-", 60)
)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// Dump renders every stored settings key for debugging.
func (tx *Tx) Dump(f DumpFlags) string {
	var buf strings.Builder
	keys := tx.Keys("")
	if f.Contains(DumpStats) {
		fmt.Fprintf(&buf, "settings.stats: keys = %d, size = %d, reads = %d, writes = %d, noop_writes = %d\n", len(keys), tx.stx.Size(), tx.db.ReadCount.Load(), tx.db.WriteCount.Load(), tx.db.NoopWriteCount.Load())
	}
	for _, key := range keys {
		tx.dumpKey(&buf, f, key)
	}
	return buf.String()
}

func (tx *Tx) dumpKey(w *strings.Builder, f DumpFlags, key string) {
	buck := tx.stx.Bucket(settingsBucket.String(), key)
	if buck == nil {
		return
	}
	vk, projectID, known := ParseSettingsKey(key)

	if f.Contains(DumpKeyHeaders) {
		fmt.Fprintln(w, dumpSep1)
		if known {
			fmt.Fprintf(w, "%s (%s, project %d, %d fields)\n", key, vk.Name(), projectID, buck.KeyCount())
		} else {
			fmt.Fprintf(w, "%s (unknown view kind, %d fields)\n", key, buck.KeyCount())
		}
	}

	raw := make(map[string]any)
	c := buck.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		fv, meta, err := tx.decodeField(v)
		if err != nil {
			if f.Contains(DumpFields) {
				fmt.Fprintf(w, "%s.%s ** ERROR: %v\n", key, k, err)
			}
			continue
		}
		raw[string(k)] = fv
		if f.Contains(DumpFields) {
			if f.Contains(DumpMeta) {
				fmt.Fprintf(w, "%s.%s = (m%d s%d) %s\n", key, k, meta.ModCount, meta.SchemaVer, loggableRaw(fv))
			} else {
				fmt.Fprintf(w, "%s.%s = %s\n", key, k, loggableRaw(fv))
			}
		}
	}

	if f.Contains(DumpMerged) && known {
		fmt.Fprintln(w, dumpSep2)
		p, err := Decode(raw)
		if err != nil {
			fmt.Fprintf(w, "%s: %v\n", key, err)
		}
		fmt.Fprintf(w, "%s.merged = %s\n", key, loggableRaw(EncodeSettings(WithDefaults(p, vk.defaults))))
	}
}
