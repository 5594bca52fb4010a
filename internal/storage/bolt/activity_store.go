package bolt

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goodtune/baralga/internal/storage"
	"go.etcd.io/bbolt"
)

type activityStore struct {
	db *bbolt.DB
}

func (s *activityStore) Get(ctx context.Context, id string) (*storage.Activity, error) {
	return getBucketValue[storage.Activity](ctx, s.db, bucketActivities, id)
}

func (s *activityStore) Upsert(ctx context.Context, activity storage.Activity) error {
	if err := activity.Validate(); err != nil {
		return err
	}
	data, err := marshal(activity)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketActivities))
		if b == nil {
			return fmt.Errorf("bucket missing: %s", bucketActivities)
		}
		if existing := b.Get([]byte(activity.ID)); existing != nil {
			var previous storage.Activity
			if err := unmarshal(existing, &previous); err != nil {
				return err
			}
			if err := removeIndexes(tx, previous); err != nil {
				return err
			}
		}
		if err := b.Put([]byte(activity.ID), data); err != nil {
			return err
		}
		return addIndexes(tx, activity)
	})
}

func (s *activityStore) Delete(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketActivities))
		if b == nil {
			return storage.ErrNotFound
		}
		existing := b.Get([]byte(id))
		if existing == nil {
			return storage.ErrNotFound
		}
		var previous storage.Activity
		if err := unmarshal(existing, &previous); err != nil {
			return err
		}
		if err := removeIndexes(tx, previous); err != nil {
			return err
		}
		return b.Delete([]byte(id))
	})
}

// Query walks the start index in ascending order. A project filter uses
// the project index instead so only that project's keys are visited.
func (s *activityStore) Query(ctx context.Context, filter storage.ActivityFilter) ([]storage.Activity, error) {
	activities := make([]storage.Activity, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketActivities))
		if b == nil {
			return nil
		}

		var (
			index  *bbolt.Bucket
			prefix []byte
			err    error
		)
		if filter.ProjectID != 0 {
			index, err = indexBucket(tx, bucketIndexProject)
			prefix = []byte(fmt.Sprintf("%020d/", filter.ProjectID))
		} else {
			index, err = indexBucket(tx, bucketIndexStart)
		}
		if err != nil {
			return err
		}

		c := index.Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			value := b.Get(v)
			if value == nil {
				continue
			}
			var activity storage.Activity
			if err := unmarshal(value, &activity); err != nil {
				return err
			}
			if !filter.Matches(activity) {
				continue
			}
			activities = append(activities, activity)
			if filter.Limit > 0 && len(activities) >= filter.Limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return activities, nil
}

func (s *activityStore) Count(ctx context.Context) (int, error) {
	count := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketActivities))
		if b == nil {
			return nil
		}
		count = b.Stats().KeyN
		return nil
	})
	return count, err
}

func addIndexes(tx *bbolt.Tx, activity storage.Activity) error {
	byStart, err := indexBucket(tx, bucketIndexStart)
	if err != nil {
		return err
	}
	if err := byStart.Put([]byte(startIndexKey(activity.Start, activity.ID)), []byte(activity.ID)); err != nil {
		return err
	}
	byProject, err := indexBucket(tx, bucketIndexProject)
	if err != nil {
		return err
	}
	return byProject.Put([]byte(projectIndexKey(activity.ProjectID, activity.Start, activity.ID)), []byte(activity.ID))
}

func removeIndexes(tx *bbolt.Tx, activity storage.Activity) error {
	byStart, err := indexBucket(tx, bucketIndexStart)
	if err != nil {
		return err
	}
	if err := byStart.Delete([]byte(startIndexKey(activity.Start, activity.ID))); err != nil {
		return err
	}
	byProject, err := indexBucket(tx, bucketIndexProject)
	if err != nil {
		return err
	}
	return byProject.Delete([]byte(projectIndexKey(activity.ProjectID, activity.Start, activity.ID)))
}
