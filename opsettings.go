package viewstate

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
)

// Load returns the raw stored settings for key, nil if nothing is stored.
// A field whose stored bytes cannot be decoded is left out and logged.
func (tx *Tx) Load(key string) map[string]any {
	tx.db.ReadCount.Add(1)
	buck := tx.stx.Bucket(settingsBucket.String(), key)
	if buck == nil {
		if tx.db.verbose {
			tx.db.logf("db: GET.NOTFOUND settings/%s", key)
		}
		return nil
	}

	raw := make(map[string]any)
	c := buck.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		fv, _, err := tx.decodeField(v)
		if err != nil {
			tx.db.logf("db: GET.CORRUPT settings/%s.%s: %v", key, k, err)
			continue
		}
		raw[string(k)] = fv
	}
	if tx.db.verbose {
		tx.db.logf("db: GET settings/%s => %s", key, loggableRaw(raw))
	}
	return raw
}

// LoadField returns a single stored field. found is false when the field is
// not stored.
func (tx *Tx) LoadField(key, field string) (v any, meta ValueMeta, found bool, err error) {
	tx.db.ReadCount.Add(1)
	buck := tx.stx.Bucket(settingsBucket.String(), key)
	if buck == nil {
		return nil, ValueMeta{}, false, nil
	}
	data := buck.Get([]byte(field))
	if data == nil {
		return nil, ValueMeta{}, false, nil
	}
	v, meta, err = tx.decodeField(data)
	if err != nil {
		return nil, meta, true, storeErrf(key, field, err, "decoding")
	}
	return v, meta, true, nil
}

func (tx *Tx) decodeField(data []byte) (any, ValueMeta, error) {
	var vle value
	err := vle.decode(data)
	if err != nil {
		return nil, ValueMeta{}, err
	}
	v, err := vle.Flags.encoding().DecodeValue(vle.Data)
	return v, vle.ValueMeta(), err
}

// Save writes the given top-level fields of key, leaving the other stored
// fields untouched. A nil field value deletes the field. Fields whose
// encoded value is unchanged are not rewritten.
func (tx *Tx) Save(key string, partial map[string]any) error {
	if key == "" {
		return storeErrf(key, "", nil, "empty settings key")
	}
	buck, err := tx.stx.CreateBucket(settingsBucket.String(), key)
	if err != nil {
		return storeErrf(key, "", err, "creating bucket")
	}

	for _, field := range slices.Sorted(maps.Keys(partial)) {
		fv := partial[field]
		fk := []byte(field)
		old := buck.Get(fk)

		if fv == nil {
			if old == nil {
				continue
			}
			if err := buck.Delete(fk); err != nil {
				return storeErrf(key, field, err, "DELETE")
			}
			tx.markWritten()
			tx.db.WriteCount.Add(1)
			if tx.db.verbose {
				tx.db.logf("db: DELETE settings/%s.%s", key, field)
			}
			continue
		}

		var oldVle value
		if old != nil {
			if err := oldVle.decode(old); err != nil {
				tx.db.logf("db: PUT.OVERWRITE_CORRUPT settings/%s.%s: %v", key, field, err)
				oldVle = value{}
			}
		}

		buf := reserveValueHeader(nil)
		dataOff := len(buf)
		buf, err := tx.db.enc.EncodeValue(buf, fv)
		if err != nil {
			return storeErrf(key, field, err, "encoding")
		}
		flags := flagsForEncoding(tx.db.enc)

		if old != nil && oldVle.Flags == flags && oldVle.SchemaVer == settingsSchemaVer && bytes.Equal(buf[dataOff:], oldVle.Data) {
			tx.db.NoopWriteCount.Add(1)
			if tx.db.verbose {
				tx.db.logf("db: PUT.NOOP settings/%s.%s => m=%d %s", key, field, oldVle.ModCount, loggableRaw(fv))
			}
			continue
		}

		modCount := oldVle.ModCount + 1
		buf = putValueHeader(buf, flags, settingsSchemaVer, modCount)
		if err := buck.Put(fk, buf); err != nil {
			return storeErrf(key, field, err, "PUT")
		}
		tx.markWritten()
		tx.db.WriteCount.Add(1)
		if tx.db.verbose {
			tx.db.logf("db: PUT settings/%s.%s => m=%d %s", key, field, modCount, loggableRaw(fv))
		}
	}
	return nil
}

// Reset deletes everything stored under key. It returns false if nothing
// was stored.
func (tx *Tx) Reset(key string) (bool, error) {
	err := tx.stx.DeleteBucket(settingsBucket.String(), key)
	if err == ErrBucketNotFound {
		return false, nil
	} else if err != nil {
		return false, storeErrf(key, "", err, "RESET")
	}
	tx.markWritten()
	tx.db.WriteCount.Add(1)
	if tx.db.verbose {
		tx.db.logf("db: RESET settings/%s", key)
	}
	return true, nil
}

// Keys returns the stored settings keys starting with prefix, sorted.
func (tx *Tx) Keys(prefix string) []string {
	return tx.stx.SubBuckets(settingsBucket.String(), prefix)
}

func loggableRaw(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "<unloggable: " + err.Error() + ">"
	}
	return string(b)
}
