package viewstate

import (
	"os"
	"reflect"
	"testing"
)

func setup(t testing.TB) *DB {
	t.Helper()
	return setupWith(t, Options{})
}

func setupWith(t testing.TB, opt Options) *DB {
	t.Helper()
	opt.IsTesting = true
	if opt.Logf == nil {
		opt.Logf = t.Logf
	}

	path := InMemory
	if !testing.Short() {
		dbFile := must(os.CreateTemp("", "viewstate_test_*.db"))
		path = dbFile.Name()
		dbFile.Close()
		t.Cleanup(func() { os.Remove(path) })
	}
	t.Logf("DB: %s", path)

	db := must(Open(path, opt))
	t.Cleanup(db.Close)
	return db
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func ensure(err error) {
	if err != nil {
		panic(err)
	}
}

func deepEqual[T any](t testing.TB, a, e T) {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
	}
}

func isnil[T any, P ~*T](t testing.TB, a P) {
	if a != nil {
		t.Helper()
		t.Errorf("** got &%v, wanted nil", *a)
	}
}
