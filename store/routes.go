package store

import (
	"encoding/json"
	"fmt"

	"github.com/rotblauer/trailhud/types"
	"go.etcd.io/bbolt"
)

// PutRoute inserts or replaces the route with r.Name.
func (s *Store) PutRoute(r types.Route) error {
	if r.Name == "" {
		return fmt.Errorf("put route: empty name")
	}
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.DB.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(types.KindRoute))
		if err != nil {
			return err
		}
		if err := bucket.Put([]byte(r.Name), data); err != nil {
			return err
		}
		last, err := tx.CreateBucketIfNotExists(lastBucket)
		if err != nil {
			return err
		}
		return last.Put([]byte(types.KindRoute), data)
	})
}

// Route gets one route by name.
func (s *Store) Route(name string) (types.Route, error) {
	r := types.Route{}
	var got []byte
	err := s.DB.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(types.KindRoute))
		if bucket == nil {
			return nil
		}
		if b := bucket.Get([]byte(name)); b != nil {
			got = append([]byte{}, b...)
		}
		return nil
	})
	if err != nil {
		return r, err
	}
	if got == nil {
		return r, fmt.Errorf("route %q: %w", name, ErrNotFound)
	}
	err = json.Unmarshal(got, &r)
	return r, err
}

// Routes lists every route, ordered by name.
func (s *Store) Routes() ([]types.Route, error) {
	return QueryAll[types.Route](s)
}

// QueryRoute returns a route with the locations tagged with its name,
// and the inclines recorded within its time window.
func (s *Store) QueryRoute(name string) (types.Route, []types.Location, []types.Incline, error) {
	route, err := s.Route(name)
	if err != nil {
		return route, nil, nil, err
	}
	locs, err := Query(s, func(l types.Location) bool {
		return l.Route == name
	})
	if err != nil {
		return route, nil, nil, err
	}
	inclines, err := Query(s, func(in types.Incline) bool {
		return route.Contains(in.Time)
	})
	if err != nil {
		return route, nil, nil, err
	}
	return route, locs, inclines, nil
}
