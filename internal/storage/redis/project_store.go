package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/goodtune/baralga/internal/storage"
	"github.com/redis/go-redis/v9"
)

type projectStore struct {
	client *redis.Client
	keys   keyspace
}

// Get retrieves a project by ID
func (s *projectStore) Get(ctx context.Context, id int64) (*storage.Project, error) {
	data, err := s.client.HGetAll(ctx, s.keys.project(id)).Result()
	if err != nil {
		return nil, err
	}
	return parseProject(data)
}

// List returns all projects ordered by ID
func (s *projectStore) List(ctx context.Context) ([]storage.Project, error) {
	members, err := s.client.SMembers(ctx, s.keys.projectSet()).Result()
	if err != nil {
		return nil, err
	}

	if len(members) == 0 {
		return []storage.Project{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, 0, len(members))
	for _, member := range members {
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		cmds = append(cmds, pipe.HGetAll(ctx, s.keys.project(id)))
	}

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, err
	}

	projects := make([]storage.Project, 0, len(cmds))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil || len(data) == 0 {
			continue
		}
		project, err := parseProject(data)
		if err == nil {
			projects = append(projects, *project)
		}
	}

	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })
	return projects, nil
}

// Create allocates the next project ID and stores the project
func (s *projectStore) Create(ctx context.Context, project *storage.Project) error {
	if err := project.Validate(); err != nil {
		return err
	}
	id, err := s.client.Incr(ctx, s.keys.projectSeq()).Result()
	if err != nil {
		return fmt.Errorf("next project id: %w", err)
	}
	project.ID = id
	return s.Upsert(ctx, *project)
}

// Upsert creates or updates a project
func (s *projectStore) Upsert(ctx context.Context, project storage.Project) error {
	if err := project.Validate(); err != nil {
		return err
	}
	script := redis.NewScript(upsertProjectScript)
	keys := []string{s.keys.project(project.ID), s.keys.projectSet(), s.keys.projectSeq()}
	args := []interface{}{
		strconv.FormatInt(project.ID, 10),
		project.Title,
		project.Description,
		strconv.FormatBool(project.Active),
	}
	return script.Run(ctx, s.client, keys, args...).Err()
}

// Delete removes a project
func (s *projectStore) Delete(ctx context.Context, id int64) error {
	removed, err := s.client.SRem(ctx, s.keys.projectSet(), strconv.FormatInt(id, 10)).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return storage.ErrNotFound
	}
	return s.client.Del(ctx, s.keys.project(id)).Err()
}
