package viewstate

import (
	"fmt"
	"runtime/debug"
)

type Tx struct {
	db      *DB
	stx     storageTx
	managed bool
	written bool
}

func (db *DB) newTx(stx storageTx, managed bool) *Tx {
	return &Tx{
		db:      db,
		stx:     stx,
		managed: managed,
	}
}

func (tx *Tx) DB() *DB {
	return tx.db
}

// Tx runs f inside a transaction. A writable transaction is committed when
// f returns nil and rolled back otherwise; a panic inside f is returned as
// an error.
func (db *DB) Tx(writable bool, f func(tx *Tx) error) error {
	stx, err := db.stor.BeginTx(writable)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	tx := db.newTx(stx, true)
	defer stx.Rollback()

	err = safelyCall(f, tx)
	if err != nil || !writable {
		return err
	}
	size := stx.Size() // Bolt cannot report size after commit
	err = stx.Commit()
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if tx.written {
		db.lastSize.Store(size)
	}
	return nil
}

type panicked struct {
	reason interface{}
	stack  string
}

func (p panicked) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", p.reason, p.stack)
}

func safelyCall(fn func(*Tx) error, tx *Tx) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicked{p, string(debug.Stack())}
		}
	}()
	return fn(tx)
}

func (db *DB) BeginRead() *Tx {
	stx, err := db.stor.BeginTx(false)
	if err != nil {
		panic(fmt.Errorf("failed to start reading: %w", err))
	}
	return db.newTx(stx, false)
}

func (db *DB) Read(f func(tx *Tx)) {
	tx := db.BeginRead()
	defer tx.Close()
	f(tx)
}

func (db *DB) ReadErr(f func(tx *Tx) error) error {
	tx := db.BeginRead()
	defer tx.Close()
	return f(tx)
}

func (db *DB) Write(f func(tx *Tx)) {
	tx := db.BeginUpdate()
	defer tx.Close()
	f(tx)
	err := tx.Commit()
	if err != nil {
		panic(fmt.Errorf("commit: %w", err))
	}
}

func (db *DB) BeginUpdate() *Tx {
	stx, err := db.stor.BeginTx(true)
	if err != nil {
		panic(fmt.Errorf("db.Begin(true) failed: %w", err))
	}
	return db.newTx(stx, false)
}

func (tx *Tx) IsWritable() bool {
	return tx.stx.Writable()
}

func (tx *Tx) markWritten() {
	tx.written = true
}

func (tx *Tx) Close() {
	if !tx.managed {
		// Rollback after Commit is a no-op, so this is safe in the normal flow.
		err := tx.stx.Rollback()
		if err != nil {
			panic(err) // not expected to happen with the bundled backends
		}
	}
}

func (tx *Tx) Commit() error {
	size := tx.stx.Size()
	err := tx.stx.Commit()
	if err == nil && tx.written {
		tx.db.lastSize.Store(size)
	}
	return err
}
