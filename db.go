package viewstate

import (
	"fmt"
	"sync/atomic"
	"time"

	"go.etcd.io/bbolt"
)

// InMemory is a special path that makes Open use a transient in-memory
// storage instead of a Bolt file.
const InMemory = ":memory:"

var settingsBucket = makeBucketName("settings")

// DB is a key-value settings store. Each settings key (see SettingsKey) is a
// nested bucket holding one record per top-level settings field, so a
// partial write touches only the fields it names.
type DB struct {
	stor    storage
	bdb     *bbolt.DB
	logf    func(format string, args ...any)
	verbose bool
	enc     Encoding

	lastSize       atomic.Int64
	ReadCount      atomic.Uint64
	WriteCount     atomic.Uint64
	NoopWriteCount atomic.Uint64
}

type Options struct {
	Logf      func(format string, args ...any)
	Verbose   bool
	IsTesting bool
	MmapSize  int
	Encoding  Encoding
}

func Open(path string, opt Options) (*DB, error) {
	db := &DB{
		logf:    opt.Logf,
		verbose: opt.Verbose,
		enc:     opt.Encoding,
	}
	if db.logf == nil {
		db.logf = func(format string, args ...any) {}
	}

	if path == InMemory {
		db.stor = newMemStorage()
	} else {
		bopt := &bbolt.Options{}
		*bopt = *bbolt.DefaultOptions
		bopt.Timeout = 10 * time.Second
		if opt.IsTesting {
			bopt.NoSync = true
			bopt.NoFreelistSync = true
			bopt.InitialMmapSize = 1024 * 1024
		} else {
			bopt.InitialMmapSize = 16 * 1024 * 1024
			bopt.FreelistType = bbolt.FreelistMapType
		}
		if opt.MmapSize != 0 {
			bopt.InitialMmapSize = opt.MmapSize
		}

		bdb, err := bbolt.Open(path, 0666, bopt)
		if err != nil {
			return nil, fmt.Errorf("viewstate: %w", err)
		}
		db.bdb = bdb
		db.stor = newBoltStorage(bdb)
	}

	err := db.Tx(true, func(tx *Tx) error {
		_, err := tx.stx.CreateBucket(settingsBucket.String(), "")
		return err
	})
	if err != nil {
		db.stor.Close()
		return nil, fmt.Errorf("viewstate: preparing buckets: %w", err)
	}
	return db, nil
}

// Bolt returns the underlying Bolt database, nil for InMemory databases.
func (db *DB) Bolt() *bbolt.DB {
	return db.bdb
}

// Size returns the database size as of the last committed write.
func (db *DB) Size() int64 {
	return db.lastSize.Load()
}

func (db *DB) Close() {
	err := db.stor.Close()
	if err != nil {
		panic(fmt.Errorf("viewstate: closing: %w", err))
	}
}

type bucketName []byte

func makeBucketName(name string) bucketName {
	return bucketName(name)
}

func (bn bucketName) String() string {
	return string(bn)
}
