package bolt

import (
	"context"
	"fmt"

	"github.com/goodtune/baralga/internal/storage"
	"go.etcd.io/bbolt"
)

type projectStore struct {
	db *bbolt.DB
}

func (s *projectStore) Get(ctx context.Context, id int64) (*storage.Project, error) {
	return getBucketValue[storage.Project](ctx, s.db, bucketProjects, projectKey(id))
}

func (s *projectStore) List(ctx context.Context) ([]storage.Project, error) {
	return listBucket[storage.Project](ctx, s.db, bucketProjects)
}

// Create assigns the next id from the bucket sequence and stores the project.
func (s *projectStore) Create(ctx context.Context, project *storage.Project) error {
	if err := project.Validate(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketProjects))
		if b == nil {
			return fmt.Errorf("bucket missing: %s", bucketProjects)
		}
		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("next project id: %w", err)
		}
		project.ID = int64(seq)
		data, err := marshal(project)
		if err != nil {
			return err
		}
		return b.Put([]byte(projectKey(project.ID)), data)
	})
}

func (s *projectStore) Upsert(ctx context.Context, project storage.Project) error {
	if err := project.Validate(); err != nil {
		return err
	}
	data, err := marshal(project)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketProjects))
		if b == nil {
			return fmt.Errorf("bucket missing: %s", bucketProjects)
		}
		// Keep the sequence ahead of explicitly chosen ids.
		if uint64(project.ID) > b.Sequence() {
			if err := b.SetSequence(uint64(project.ID)); err != nil {
				return err
			}
		}
		return b.Put([]byte(projectKey(project.ID)), data)
	})
}

func (s *projectStore) Delete(ctx context.Context, id int64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketProjects))
		if b == nil {
			return storage.ErrNotFound
		}
		key := []byte(projectKey(id))
		if b.Get(key) == nil {
			return storage.ErrNotFound
		}
		return b.Delete(key)
	})
}
