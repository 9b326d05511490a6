package viewstate

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestDB_LoadMissing(t *testing.T) {
	db := setup(t)
	raw := must(db.Load(context.Background(), "experimentListingForProject1"))
	if raw != nil {
		t.Errorf("** Load(missing) = %v, wanted nil", raw)
	}
}

func TestDB_SaveLoad(t *testing.T) {
	ctx := context.Background()
	db := setup(t)
	key := ExperimentListing.Key(1)

	s := ExperimentListing.Defaults()
	s.Selection = NewSelection(AllExcept, 3)
	s.PageLimit = 40
	ensure(db.Save(ctx, key, EncodeSettings(s)))

	raw := must(db.Load(ctx, key))
	p, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if back := WithDefaults(p, Settings{}); !back.Equal(s) {
		t.Errorf("** loaded %+v, wanted %+v", back, s)
	}
}

func TestDB_PartialWriteKeepsOtherFields(t *testing.T) {
	ctx := context.Background()
	db := setup(t)
	key := FlatRuns.Key(5)

	ensure(db.Save(ctx, key, Encode(Partial{PageLimit: Ptr(50), SortString: Ptr("name=asc")})))
	ensure(db.Save(ctx, key, Encode(Partial{PageLimit: Ptr(30)})))
	ensure(db.Save(ctx, key, ColumnWidthsSlice{map[string]float64{"id": 90}}.Encode()))

	p := must(Decode(must(db.Load(ctx, key))))
	deepEqual(t, *p.PageLimit, 30)
	deepEqual(t, *p.SortString, "name=asc")
	deepEqual(t, p.ColumnWidths, map[string]float64{"id": 90})
	deepEqual(t, p.Keys(), []string{KeyColumnWidths, KeyPageLimit, KeySortString})
}

func TestDB_KeysAreIsolated(t *testing.T) {
	ctx := context.Background()
	db := setup(t)

	ensure(db.Save(ctx, ExperimentListing.Key(1), Encode(Partial{PageLimit: Ptr(10)})))
	ensure(db.Save(ctx, ExperimentListing.Key(2), Encode(Partial{PageLimit: Ptr(20)})))
	ensure(db.Save(ctx, FlatRuns.Key(1), Encode(Partial{PageLimit: Ptr(30)})))

	deepEqual(t, *must(Decode(must(db.Load(ctx, ExperimentListing.Key(1))))).PageLimit, 10)
	deepEqual(t, *must(Decode(must(db.Load(ctx, ExperimentListing.Key(2))))).PageLimit, 20)
	deepEqual(t, *must(Decode(must(db.Load(ctx, FlatRuns.Key(1))))).PageLimit, 30)

	deepEqual(t, must(db.Keys(ctx, "")), []string{
		"experimentListingForProject1",
		"experimentListingForProject2",
		"flatRunsForProject1",
	})
	deepEqual(t, must(db.Keys(ctx, FlatRunsPrefix)), []string{"flatRunsForProject1"})
}

func TestDB_NoopWrites(t *testing.T) {
	ctx := context.Background()
	db := setup(t)
	key := ExperimentListing.Key(3)

	ensure(db.Save(ctx, key, Encode(Partial{PageLimit: Ptr(10), Compare: Ptr(true)})))
	deepEqual(t, db.WriteCount.Load(), uint64(2))
	deepEqual(t, db.NoopWriteCount.Load(), uint64(0))

	ensure(db.Save(ctx, key, Encode(Partial{PageLimit: Ptr(10), Compare: Ptr(false)})))
	deepEqual(t, db.WriteCount.Load(), uint64(3))
	deepEqual(t, db.NoopWriteCount.Load(), uint64(1))

	db.Read(func(tx *Tx) {
		_, meta, found := must3(tx.LoadField(key, KeyPageLimit))
		deepEqual(t, found, true)
		deepEqual(t, meta, ValueMeta{SchemaVer: settingsSchemaVer, ModCount: 1})

		_, meta, _ = must3(tx.LoadField(key, KeyCompare))
		deepEqual(t, meta.ModCount, uint64(2))

		_, _, found = must3(tx.LoadField(key, KeyHeatmapOn))
		deepEqual(t, found, false)
	})
}

func TestDB_EmptySaveIsNoop(t *testing.T) {
	ctx := context.Background()
	db := setup(t)
	ensure(db.Save(ctx, "k1", map[string]any{}))
	deepEqual(t, must(db.Keys(ctx, "")), []string(nil))
}

func TestDB_NilDeletesField(t *testing.T) {
	ctx := context.Background()
	db := setup(t)
	key := ExperimentListing.Key(4)

	ensure(db.Save(ctx, key, Encode(Partial{PageLimit: Ptr(10), SortString: Ptr("x")})))
	ensure(db.Save(ctx, key, map[string]any{KeyPageLimit: nil, "notStored": nil}))
	deepEqual(t, must(db.Load(ctx, key)), map[string]any{KeySortString: "x"})
}

func TestDB_Reset(t *testing.T) {
	ctx := context.Background()
	db := setup(t)
	key := FlatRuns.Key(8)

	ensure(db.Save(ctx, key, Encode(Partial{PageLimit: Ptr(10)})))
	deepEqual(t, must(db.Reset(ctx, key)), true)
	deepEqual(t, must(db.Reset(ctx, key)), false)
	if raw := must(db.Load(ctx, key)); raw != nil {
		t.Errorf("** Load after Reset = %v, wanted nil", raw)
	}
}

func TestDB_CorruptFieldSkipped(t *testing.T) {
	ctx := context.Background()
	db := setup(t)
	key := ExperimentListing.Key(9)

	ensure(db.Save(ctx, key, Encode(Partial{PageLimit: Ptr(10), SortString: Ptr("x")})))
	db.Write(func(tx *Tx) {
		buck := must(tx.stx.CreateBucket(settingsBucket.String(), key))
		ensure(buck.Put([]byte(KeyPageLimit), []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF}))
		tx.markWritten()
	})

	deepEqual(t, must(db.Load(ctx, key)), map[string]any{KeySortString: "x"})

	db.Read(func(tx *Tx) {
		_, _, found, err := tx.LoadField(key, KeyPageLimit)
		deepEqual(t, found, true)
		var se *StoreError
		if !errors.As(err, &se) {
			t.Fatalf("LoadField err = %v, wanted *StoreError", err)
		}
		var de *DataError
		if !errors.As(err, &de) {
			t.Errorf("** LoadField err = %v, wanted to wrap *DataError", err)
		}
	})

	// overwriting a corrupt field works
	ensure(db.Save(ctx, key, Encode(Partial{PageLimit: Ptr(11)})))
	deepEqual(t, *must(Decode(must(db.Load(ctx, key)))).PageLimit, 11)
}

func TestDB_JSONEncoding(t *testing.T) {
	ctx := context.Background()
	db := setupWith(t, Options{Encoding: JSON})
	key := FlatRuns.Key(2)

	s := FlatRuns.Defaults()
	s.Selection = NewSelection(OnlyIn, 1, 2)
	ensure(db.Save(ctx, key, EncodeSettings(s)))

	p := must(Decode(must(db.Load(ctx, key))))
	if back := WithDefaults(p, Settings{}); !back.Equal(s) {
		t.Errorf("** loaded %+v, wanted %+v", back, s)
	}

	db.Read(func(tx *Tx) {
		buck := tx.stx.Bucket(settingsBucket.String(), key)
		var vle value
		ensure(vle.decode(buck.Get([]byte(KeySortString))))
		deepEqual(t, vle.Flags.encoding(), JSON)
		deepEqual(t, string(vle.Data), `"id=desc"`)
	})
}

func TestDB_ContextCanceled(t *testing.T) {
	db := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := db.Load(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Errorf("** Load err = %v, wanted context.Canceled", err)
	}
	if err := db.Save(ctx, "k", map[string]any{"pageLimit": 1}); !errors.Is(err, context.Canceled) {
		t.Errorf("** Save err = %v, wanted context.Canceled", err)
	}
}

func TestDB_SaveEmptyKey(t *testing.T) {
	db := setup(t)
	err := db.Save(context.Background(), "", map[string]any{"pageLimit": 1})
	if err == nil || !strings.Contains(err.Error(), "empty settings key") {
		t.Errorf("** Save(\"\") err = %v, wanted empty key error", err)
	}
}

func TestDB_PanicInTx(t *testing.T) {
	db := setup(t)
	err := db.Tx(true, func(tx *Tx) error {
		panic("boom")
	})
	if err == nil || !strings.Contains(err.Error(), "panic: boom") {
		t.Errorf("** Tx err = %v, wanted recovered panic", err)
	}
}

func TestDB_Size(t *testing.T) {
	ctx := context.Background()
	db := setup(t)
	ensure(db.Save(ctx, "k", map[string]any{"pageLimit": 1}))
	if db.Size() <= 0 {
		t.Errorf("** Size() = %d, wanted > 0", db.Size())
	}
}

func TestDump(t *testing.T) {
	ctx := context.Background()
	db := setup(t)
	ensure(db.Save(ctx, ExperimentListing.Key(1), Encode(Partial{PageLimit: Ptr(40)})))
	ensure(db.Save(ctx, "strayKey", map[string]any{"x": "y"}))

	var out string
	db.Read(func(tx *Tx) {
		out = tx.Dump(DumpAll)
	})
	for _, want := range []string{
		"settings.stats: keys = 2",
		"experimentListingForProject1 (experiment-listing, project 1, 1 fields)",
		"experimentListingForProject1.pageLimit = (m1 s1) 40",
		`experimentListingForProject1.merged = {`,
		`"pageLimit":40`,
		"strayKey (unknown view kind, 1 fields)",
		`strayKey.x = (m1 s1) "y"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("** Dump output lacks %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "strayKey.merged") {
		t.Errorf("** Dump merged an unknown key:\n%s", out)
	}
}

func must3[A, B, C any](a A, b B, c C, err error) (A, B, C) {
	if err != nil {
		panic(err)
	}
	return a, b, c
}
