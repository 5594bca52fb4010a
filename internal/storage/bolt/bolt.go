package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/goodtune/baralga/internal/storage"
	"go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"
)

const (
	bucketProjects     = "projects"
	bucketActivities   = "activities"
	bucketIndexes      = "indexes"
	bucketIndexStart   = "activity_start"
	bucketIndexProject = "activity_project"
)

// Store implements the storage.Store interface using bbolt. The bolt file
// is the primary data file that backups are taken from.
type Store struct {
	db *bbolt.DB
}

// Open opens a BoltDB-backed store.
func Open(path string) (*Store, error) {
	if err := storage.EnsureParent(path); err != nil {
		return nil, err
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		if unusable(path, err) {
			return nil, fmt.Errorf("open bolt db: %w: %w", ErrCorrupt, err)
		}
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	store := &Store{db: db}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// ErrCorrupt marks an Open failure on a non-empty file that bbolt could
// not read as a database, such as one truncated by a crash.
var ErrCorrupt = errors.New("corrupt database file")

// IsCorrupt reports whether an Open error means the file is not a usable
// database, as opposed to being locked or unreadable.
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCorrupt) ||
		errors.Is(err, berrors.ErrInvalid) ||
		errors.Is(err, berrors.ErrChecksum) ||
		errors.Is(err, berrors.ErrVersionMismatch)
}

// unusable reports whether an Open error is down to the file content.
// Lock timeouts and access errors leave the file alone.
func unusable(path string, err error) bool {
	if errors.Is(err, berrors.ErrTimeout) || errors.Is(err, fs.ErrPermission) {
		return false
	}
	info, statErr := os.Stat(path)
	return statErr == nil && info.Mode().IsRegular() && info.Size() > 0
}

// ensureBuckets creates missing buckets. An existing file is left
// untouched so its content, and so its backup hash, stays stable.
func (s *Store) ensureBuckets() error {
	complete := false
	if err := s.db.View(func(tx *bbolt.Tx) error {
		indexes := tx.Bucket([]byte(bucketIndexes))
		complete = tx.Bucket([]byte(bucketProjects)) != nil &&
			tx.Bucket([]byte(bucketActivities)) != nil &&
			indexes != nil &&
			indexes.Bucket([]byte(bucketIndexStart)) != nil &&
			indexes.Bucket([]byte(bucketIndexProject)) != nil
		return nil
	}); err != nil {
		return err
	}
	if complete {
		return nil
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{
			[]byte(bucketProjects),
			[]byte(bucketActivities),
			[]byte(bucketIndexes),
		}

		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}

		indexes := tx.Bucket([]byte(bucketIndexes))
		if indexes == nil {
			return fmt.Errorf("indexes bucket missing")
		}
		if _, err := indexes.CreateBucketIfNotExists([]byte(bucketIndexStart)); err != nil {
			return fmt.Errorf("create start index: %w", err)
		}
		if _, err := indexes.CreateBucketIfNotExists([]byte(bucketIndexProject)); err != nil {
			return fmt.Errorf("create project index: %w", err)
		}

		return nil
	})
}

// Close closes the underlying store database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the location of the bolt file.
func (s *Store) Path() string {
	return s.db.Path()
}

// Projects returns the project store.
func (s *Store) Projects() storage.ProjectStore { return &projectStore{db: s.db} }

// Activities returns the activity store.
func (s *Store) Activities() storage.ActivityStore { return &activityStore{db: s.db} }

// Snapshot copies the whole database to w inside a single read
// transaction, so writers cannot interleave with the copy.
func (s *Store) Snapshot(ctx context.Context, w io.Writer) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, err := tx.WriteTo(w)
		return err
	})
}

func marshal(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return data, nil
}

func unmarshal(data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal value: %w", err)
	}
	return nil
}

func listBucket[T any](ctx context.Context, db *bbolt.DB, bucket string) ([]T, error) {
	items := make([]T, 0)
	err := db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var item T
			if err := unmarshal(v, &item); err != nil {
				return err
			}
			items = append(items, item)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func getBucketValue[T any](ctx context.Context, db *bbolt.DB, bucket string, key string) (*T, error) {
	var item *T
	err := db.View(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return storage.ErrNotFound
		}
		value := b.Get([]byte(key))
		if value == nil {
			return storage.ErrNotFound
		}
		var result T
		if err := unmarshal(value, &result); err != nil {
			return err
		}
		item = &result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func indexBucket(tx *bbolt.Tx, name string) (*bbolt.Bucket, error) {
	root := tx.Bucket([]byte(bucketIndexes))
	if root == nil {
		return nil, fmt.Errorf("indexes bucket missing")
	}
	bucket := root.Bucket([]byte(name))
	if bucket == nil {
		return nil, fmt.Errorf("index bucket missing: %s", name)
	}
	return bucket, nil
}

func projectKey(id int64) string {
	return fmt.Sprintf("%020d", id)
}

func startIndexKey(start time.Time, id string) string {
	return fmt.Sprintf("%020d/%s", start.UnixNano(), id)
}

func projectIndexKey(projectID int64, start time.Time, id string) string {
	return fmt.Sprintf("%020d/%020d/%s", projectID, start.UnixNano(), id)
}
