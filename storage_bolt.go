package viewstate

import (
	"bytes"
	"errors"
	"unsafe"

	"go.etcd.io/bbolt"
)

// boltStorage maps root buckets and settings-key buckets onto Bolt's own
// nested buckets.
type boltStorage struct {
	bdb *bbolt.DB
}

func newBoltStorage(bdb *bbolt.DB) storage {
	return boltStorage{bdb}
}

func (s boltStorage) BeginTx(writable bool) (storageTx, error) {
	btx, err := s.bdb.Begin(writable)
	if err != nil {
		return nil, err
	}
	return boltTx{btx}, nil
}

func (s boltStorage) Close() error {
	return s.bdb.Close()
}

type boltTx struct {
	btx *bbolt.Tx
}

func (tx boltTx) Writable() bool {
	return tx.btx.Writable()
}

func (tx boltTx) lookup(name, sub string) *bbolt.Bucket {
	b := tx.btx.Bucket(byteView(name))
	if b != nil && sub != "" {
		b = b.Bucket(byteView(sub))
	}
	return b
}

func (tx boltTx) Bucket(name, sub string) storageBucket {
	b := tx.lookup(name, sub)
	if b == nil {
		return nil
	}
	return boltBucket{b}
}

func (tx boltTx) CreateBucket(name, sub string) (storageBucket, error) {
	// Bolt retains the name slices of buckets it creates
	b, err := tx.btx.CreateBucketIfNotExists([]byte(name))
	if err == nil && sub != "" {
		b, err = b.CreateBucketIfNotExists([]byte(sub))
	}
	if err != nil {
		return nil, err
	}
	return boltBucket{b}, nil
}

func (tx boltTx) DeleteBucket(name, sub string) error {
	root := tx.lookup(name, "")
	if root == nil || sub == "" {
		return ErrBucketNotFound
	}
	err := root.DeleteBucket(byteView(sub))
	if errors.Is(err, bbolt.ErrBucketNotFound) {
		return ErrBucketNotFound
	}
	return err
}

func (tx boltTx) SubBuckets(name, prefix string) []string {
	root := tx.lookup(name, "")
	if root == nil {
		return nil
	}
	p := byteView(prefix)
	var names []string
	c := root.Cursor()
	for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
		if v == nil { // nested bucket
			names = append(names, string(k))
		}
	}
	return names
}

func (tx boltTx) Commit() error {
	return tx.btx.Commit()
}

func (tx boltTx) Rollback() error {
	err := tx.btx.Rollback()
	if errors.Is(err, bbolt.ErrTxClosed) {
		return nil
	}
	return err
}

func (tx boltTx) Size() int64 {
	return tx.btx.Size()
}

type boltBucket struct {
	b *bbolt.Bucket
}

func (b boltBucket) Get(key []byte) []byte       { return b.b.Get(key) }
func (b boltBucket) Put(key, value []byte) error { return b.b.Put(key, value) }
func (b boltBucket) Delete(key []byte) error     { return b.b.Delete(key) }
func (b boltBucket) KeyCount() int               { return b.b.Stats().KeyN }

func (b boltBucket) Cursor() storageCursor {
	return b.b.Cursor()
}

// byteView returns the bytes of s without copying. The result must not be
// modified or retained by Bolt.
func byteView(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
