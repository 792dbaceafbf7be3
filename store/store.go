// Package store is the append-only record store, backed by bbolt.
//
// Locations and inclines are appended to per-kind buckets keyed by the
// bucket sequence (big-endian), so cursor order is append order.
// Routes are keyed by name, since stopping a route rewrites its end time.
// The most recent record of each kind is also kept under the "last" bucket.
package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/metrics"
	"github.com/rotblauer/trailhud/types"
	"go.etcd.io/bbolt"
)

var ErrNotFound = errors.New("not found")

var lastBucket = []byte("last")

// Record is anything the store can hold.
type Record interface {
	Kind() types.Kind
}

var appendsMeter metrics.Meter

func init() {
	metrics.Enabled = true
	appendsMeter = metrics.NewRegisteredMeter("store/appends", nil)
}

type Store struct {
	DB    *bbolt.DB
	rOnly bool
}

// Open opens or creates the store at path.
// A writable store holds an exclusive file lock until Close;
// other writers block until then.
func Open(path string, readOnly bool) (*Store, error) {
	if !readOnly {
		if err := os.MkdirAll(filepath.Dir(path), 0770); err != nil {
			return nil, err
		}
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		ReadOnly: readOnly,
		Timeout:  10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	s := &Store{DB: db, rOnly: readOnly}
	if readOnly {
		return s, nil
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{
			[]byte(types.KindLocation),
			[]byte(types.KindIncline),
			[]byte(types.KindRoute),
			lastBucket,
		} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

func (s *Store) ReadOnly() bool {
	return s.rOnly
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// Append stores rec at the end of its kind's bucket.
// Routes are upserted by name instead.
func (s *Store) Append(rec Record) error {
	if r, ok := rec.(types.Route); ok {
		return s.PutRoute(r)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s: %w", rec.Kind(), err)
	}
	kind := []byte(rec.Kind())
	err = s.DB.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(kind)
		if err != nil {
			return err
		}
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		if err := bucket.Put(itob(seq), data); err != nil {
			return err
		}
		last, err := tx.CreateBucketIfNotExists(lastBucket)
		if err != nil {
			return err
		}
		return last.Put(kind, data)
	})
	if err != nil {
		return fmt.Errorf("append %s: %w", rec.Kind(), err)
	}
	appendsMeter.Mark(1)
	return nil
}

// ForEach calls fn with the raw JSON of each record of kind, in append order.
// The data is only valid during fn.
func (s *Store) ForEach(kind types.Kind, fn func(data []byte) error) error {
	return s.DB.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(kind))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(_, v []byte) error {
			return fn(v)
		})
	})
}

// Count is the number of stored records of kind.
func (s *Store) Count(kind types.Kind) (int, error) {
	n := 0
	err := s.DB.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(kind))
		if bucket == nil {
			return nil
		}
		n = bucket.Stats().KeyN
		return nil
	})
	return n, err
}

// Last decodes the most recently appended record of kind into v.
func (s *Store) Last(kind types.Kind, v any) error {
	var got []byte
	err := s.DB.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(lastBucket)
		if bucket == nil {
			return nil
		}
		// Values are only valid within the transaction.
		if b := bucket.Get([]byte(kind)); b != nil {
			got = append([]byte{}, b...)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if got == nil {
		return fmt.Errorf("last %s: %w", kind, ErrNotFound)
	}
	return json.Unmarshal(got, v)
}

// QueryAll returns every stored record of T's kind in append order.
// Records that fail to decode are logged and skipped.
func QueryAll[T Record](s *Store) ([]T, error) {
	return Query[T](s, nil)
}

// Query returns the stored records of T's kind for which keep is true.
// A nil keep keeps everything.
func Query[T Record](s *Store, keep func(T) bool) ([]T, error) {
	var zero T
	kind := zero.Kind()
	out := []T{}
	err := s.ForEach(kind, func(data []byte) error {
		var rec T
		if err := json.Unmarshal(data, &rec); err != nil {
			slog.Warn("Skipping undecodable record", "kind", kind, "error", err)
			return nil
		}
		if keep == nil || keep(rec) {
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", kind, err)
	}
	return out, nil
}
