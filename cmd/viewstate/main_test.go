package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/go-kit/log"

	"github.com/andreyvit/viewstate"
)

func reopen(t *testing.T, path string) *viewstate.DB {
	t.Helper()
	db, err := viewstate.Open(path, viewstate.Options{IsTesting: true})
	if err != nil {
		t.Fatalf("** reopen: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func TestRunSetStores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")
	err := run([]string{"--db", path, "set", "k", "pageLimit=50"}, log.NewNopLogger())
	if err != nil {
		t.Fatalf("** run: %v", err)
	}

	got, err := reopen(t, path).Load(context.Background(), "k")
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := got["pageLimit"]; !ok || v == nil {
		t.Errorf("** pageLimit not stored: %v", got)
	}
}

func TestRunFailureClosesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")
	err := run([]string{"--db", path, "set", "k", "noSuchField=1"}, log.NewNopLogger())
	if err == nil {
		t.Fatal("** expected an error for an unknown field")
	}
	reopen(t, path)
}

func TestRunRequiresPath(t *testing.T) {
	err := run([]string{"keys"}, log.NewNopLogger())
	if err == nil {
		t.Fatal("** expected an error without --db")
	}
}
