package viewstate

import "errors"

// ErrBucketNotFound is returned by storageTx.DeleteBucket when the bucket doesn't exist.
var ErrBucketNotFound = errors.New("bucket not found")

// storage is a key-value backend with one level of bucket nesting: a root
// bucket (the settings bucket) holding one sub-bucket per settings key.
type storage interface {
	BeginTx(writable bool) (storageTx, error)
	Close() error
}

type storageTx interface {
	Writable() bool

	// Bucket returns the root bucket name when sub is empty, or its nested
	// bucket sub otherwise. Returns nil if the bucket doesn't exist.
	Bucket(name, sub string) storageBucket

	// CreateBucket is like Bucket, but creates missing buckets (including
	// the root one).
	CreateBucket(name, sub string) (storageBucket, error)

	// DeleteBucket deletes a nested bucket along with its records.
	DeleteBucket(name, sub string) error

	// SubBuckets returns the sorted names of the nested buckets of name that
	// start with prefix.
	SubBuckets(name, prefix string) []string

	Commit() error

	// Rollback aborts the transaction. Safe to call after Commit.
	Rollback() error

	// Size returns the storage size in bytes, 0 if unknown.
	Size() int64
}

type storageBucket interface {
	// Get returns nil if not found. The value is only valid during the
	// transaction.
	Get(key []byte) []byte
	Put(key, value []byte) error
	Delete(key []byte) error
	Cursor() storageCursor
	KeyCount() int
}

// storageCursor iterates over records in key order. Both methods return a
// nil key once exhausted.
type storageCursor interface {
	First() (key, value []byte)
	Next() (key, value []byte)
}
