package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/goodtune/baralga/internal/storage"
	"github.com/redis/go-redis/v9"
)

type activityStore struct {
	client *redis.Client
	keys   keyspace
}

// Get retrieves an activity by ID
func (s *activityStore) Get(ctx context.Context, id string) (*storage.Activity, error) {
	data, err := s.client.HGetAll(ctx, s.keys.activity(id)).Result()
	if err != nil {
		return nil, err
	}
	return parseActivity(data)
}

// Upsert creates or updates an activity and its indexes
func (s *activityStore) Upsert(ctx context.Context, activity storage.Activity) error {
	if err := activity.Validate(); err != nil {
		return err
	}

	script := redis.NewScript(upsertActivityScript)
	keys := []string{
		s.keys.activity(activity.ID),
		s.keys.byStart(),
		s.keys.byProject(activity.ProjectID),
	}
	args := []interface{}{
		activity.ID,
		strconv.FormatInt(activity.ProjectID, 10),
		activity.Start.Format(time.RFC3339Nano),
		activity.End.Format(time.RFC3339Nano),
		activity.Description,
		score(activity.Start),
		s.keys.byProjectPrefix(),
	}
	return script.Run(ctx, s.client, keys, args...).Err()
}

// Delete removes an activity and its index entries
func (s *activityStore) Delete(ctx context.Context, id string) error {
	script := redis.NewScript(deleteActivityScript)
	keys := []string{s.keys.activity(id), s.keys.byStart()}
	removed, err := script.Run(ctx, s.client, keys, id, s.keys.byProjectPrefix()).Int()
	if err != nil {
		return err
	}
	if removed == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Query returns activities in ascending start order
func (s *activityStore) Query(ctx context.Context, filter storage.ActivityFilter) ([]storage.Activity, error) {
	index := s.keys.byStart()
	if filter.ProjectID != 0 {
		index = s.keys.byProject(filter.ProjectID)
	}

	ids, err := s.client.ZRangeByScore(ctx, index, &redis.ZRangeBy{
		Min:   scoreBound(filter.StartTime, "-inf", false),
		Max:   scoreBound(filter.EndTime, "+inf", true),
		Count: int64(filter.Limit),
	}).Result()
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return []storage.Activity{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.keys.activity(id))
	}

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	activities := make([]storage.Activity, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil || len(data) == 0 {
			continue
		}
		activity, err := parseActivity(data)
		if err != nil {
			continue
		}
		if filter.Matches(*activity) {
			activities = append(activities, *activity)
		}
	}

	return activities, nil
}

// Count returns the number of indexed activities
func (s *activityStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, s.keys.byStart()).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
