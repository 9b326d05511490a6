package viewstate

import (
	"errors"
	"maps"
	"slices"
	"strings"
	"sync"
)

var (
	errMemClosed      = errors.New("in-memory storage closed")
	errMemNotWritable = errors.New("tx not writable")
)

// memRecords is the contents of one bucket.
type memRecords map[string][]byte

func (r memRecords) clone() memRecords {
	c := make(memRecords, len(r))
	for k, v := range r {
		c[k] = slices.Clone(v)
	}
	return c
}

func (r memRecords) size() int64 {
	var n int64
	for k, v := range r {
		n += int64(len(k) + len(v))
	}
	return n
}

// memRoot is a root bucket: its own records plus nested buckets.
type memRoot struct {
	records memRecords
	subs    map[string]memRecords
}

func newMemRoot() *memRoot {
	return &memRoot{records: make(memRecords), subs: make(map[string]memRecords)}
}

func (r *memRoot) clone() *memRoot {
	c := &memRoot{records: r.records.clone(), subs: make(map[string]memRecords, len(r.subs))}
	for name, recs := range r.subs {
		c.subs[name] = recs.clone()
	}
	return c
}

// memStorage keeps everything in maps. A transaction works on a private
// copy of the data, which a writable one installs on commit; writers are
// serialized by writeMu. Settings databases are tiny, so the copying is
// not a concern.
type memStorage struct {
	writeMu sync.Mutex

	mu     sync.Mutex
	roots  map[string]*memRoot
	closed bool
}

func newMemStorage() storage {
	return &memStorage{roots: make(map[string]*memRoot)}
}

func (s *memStorage) BeginTx(writable bool) (storageTx, error) {
	if writable {
		s.writeMu.Lock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		if writable {
			s.writeMu.Unlock()
		}
		return nil, errMemClosed
	}
	tx := &memTx{s: s, writable: writable, roots: make(map[string]*memRoot, len(s.roots))}
	for name, root := range s.roots {
		tx.roots[name] = root.clone()
	}
	return tx, nil
}

func (s *memStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.roots = nil
	return nil
}

type memTx struct {
	s        *memStorage
	writable bool
	roots    map[string]*memRoot
	done     bool
}

func (tx *memTx) Writable() bool { return tx.writable }

func (tx *memTx) checkOpen() {
	if tx.done {
		panic("tx is closed")
	}
}

func (tx *memTx) Bucket(name, sub string) storageBucket {
	tx.checkOpen()
	root := tx.roots[name]
	if root == nil {
		return nil
	}
	if sub == "" {
		return memBucket{tx, root.records}
	}
	recs := root.subs[sub]
	if recs == nil {
		return nil
	}
	return memBucket{tx, recs}
}

func (tx *memTx) CreateBucket(name, sub string) (storageBucket, error) {
	tx.checkOpen()
	if !tx.writable {
		return nil, errMemNotWritable
	}
	root := tx.roots[name]
	if root == nil {
		root = newMemRoot()
		tx.roots[name] = root
	}
	if sub == "" {
		return memBucket{tx, root.records}, nil
	}
	recs := root.subs[sub]
	if recs == nil {
		recs = make(memRecords)
		root.subs[sub] = recs
	}
	return memBucket{tx, recs}, nil
}

func (tx *memTx) DeleteBucket(name, sub string) error {
	tx.checkOpen()
	if !tx.writable {
		return errMemNotWritable
	}
	root := tx.roots[name]
	if root == nil || sub == "" || root.subs[sub] == nil {
		return ErrBucketNotFound
	}
	delete(root.subs, sub)
	return nil
}

func (tx *memTx) SubBuckets(name, prefix string) []string {
	tx.checkOpen()
	root := tx.roots[name]
	if root == nil {
		return nil
	}
	var names []string
	for sub := range root.subs {
		if strings.HasPrefix(sub, prefix) {
			names = append(names, sub)
		}
	}
	slices.Sort(names)
	return names
}

func (tx *memTx) Commit() error {
	if tx.done {
		return nil
	}
	if !tx.writable {
		return errMemNotWritable
	}
	tx.s.mu.Lock()
	closed := tx.s.closed
	if !closed {
		tx.s.roots = tx.roots
	}
	tx.s.mu.Unlock()
	tx.finish()
	if closed {
		return errMemClosed
	}
	return nil
}

func (tx *memTx) Rollback() error {
	if !tx.done {
		tx.finish()
	}
	return nil
}

func (tx *memTx) finish() {
	tx.done = true
	if tx.writable {
		tx.s.writeMu.Unlock()
	}
}

func (tx *memTx) Size() int64 {
	var n int64
	for name, root := range tx.roots {
		n += int64(len(name)) + root.records.size()
		for sub, recs := range root.subs {
			n += int64(len(sub)) + recs.size()
		}
	}
	return n
}

type memBucket struct {
	tx   *memTx
	recs memRecords
}

func (b memBucket) Get(key []byte) []byte {
	return b.recs[string(key)]
}

func (b memBucket) Put(key, value []byte) error {
	if !b.tx.writable {
		return errMemNotWritable
	}
	b.recs[string(key)] = slices.Clone(value)
	return nil
}

func (b memBucket) Delete(key []byte) error {
	if !b.tx.writable {
		return errMemNotWritable
	}
	delete(b.recs, string(key))
	return nil
}

func (b memBucket) KeyCount() int {
	return len(b.recs)
}

// Cursor iterates over the keys present when it was created.
func (b memBucket) Cursor() storageCursor {
	return &memCursor{recs: b.recs, keys: slices.Sorted(maps.Keys(b.recs)), pos: -1}
}

type memCursor struct {
	recs memRecords
	keys []string
	pos  int
}

func (c *memCursor) First() ([]byte, []byte) {
	c.pos = -1
	return c.Next()
}

func (c *memCursor) Next() ([]byte, []byte) {
	c.pos++
	if c.pos >= len(c.keys) {
		return nil, nil
	}
	k := c.keys[c.pos]
	return []byte(k), c.recs[k]
}
