package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/goodtune/baralga/internal/config"
	"github.com/goodtune/baralga/internal/storage"
	"github.com/redis/go-redis/v9"
)

// Store implements the storage.Store interface using Redis
type Store struct {
	client        *redis.Client
	keys          keyspace
	projectStore  *projectStore
	activityStore *activityStore
}

// Open creates a new Redis-backed storage instance
func Open(cfg config.RedisConfig) (*Store, error) {
	dialTimeout, err := time.ParseDuration(cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid dial_timeout: %w", err)
	}

	readTimeout, err := time.ParseDuration(cfg.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid read_timeout: %w", err)
	}

	writeTimeout, err := time.ParseDuration(cfg.WriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid write_timeout: %w", err)
	}

	// Host may already carry the port
	addr := cfg.Host
	if cfg.Port > 0 {
		addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "baralga"
	}
	keys := keyspace{prefix: prefix}

	return &Store{
		client:        client,
		keys:          keys,
		projectStore:  &projectStore{client: client, keys: keys},
		activityStore: &activityStore{client: client, keys: keys},
	}, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Path is empty: the data lives on the Redis server.
func (s *Store) Path() string {
	return ""
}

// Projects returns the ProjectStore implementation
func (s *Store) Projects() storage.ProjectStore {
	return s.projectStore
}

// Activities returns the ActivityStore implementation
func (s *Store) Activities() storage.ActivityStore {
	return s.activityStore
}

// Snapshot writes all projects and activities as one JSON document.
func (s *Store) Snapshot(ctx context.Context, w io.Writer) error {
	projects, err := s.projectStore.List(ctx)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}
	activities, err := s.activityStore.Query(ctx, storage.ActivityFilter{})
	if err != nil {
		return fmt.Errorf("list activities: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(storage.Dump{
		Projects:   projects,
		Activities: activities,
	})
}

type keyspace struct {
	prefix string
}

func (k keyspace) projectSeq() string        { return k.prefix + ":project:seq" }
func (k keyspace) projectSet() string        { return k.prefix + ":projects" }
func (k keyspace) project(id int64) string   { return fmt.Sprintf("%s:project:%d", k.prefix, id) }
func (k keyspace) activity(id string) string { return fmt.Sprintf("%s:activity:%s", k.prefix, id) }
func (k keyspace) byStart() string           { return k.prefix + ":activities:start" }
func (k keyspace) byProject(id int64) string {
	return fmt.Sprintf("%s:activities:project:%d", k.prefix, id)
}
func (k keyspace) byProjectPrefix() string { return k.prefix + ":activities:project:" }
