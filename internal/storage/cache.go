package storage

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultProjectCacheSize bounds the number of projects kept in memory.
const DefaultProjectCacheSize = 256

// CachedProjects wraps a ProjectStore with an LRU cache for Get. Reports
// resolve the same handful of projects for every activity.
type CachedProjects struct {
	ProjectStore
	cache *lru.Cache[int64, Project]
}

// NewCachedProjects creates a caching ProjectStore.
func NewCachedProjects(inner ProjectStore, size int) (*CachedProjects, error) {
	if size <= 0 {
		size = DefaultProjectCacheSize
	}
	cache, err := lru.New[int64, Project](size)
	if err != nil {
		return nil, fmt.Errorf("create project cache: %w", err)
	}
	return &CachedProjects{ProjectStore: inner, cache: cache}, nil
}

// Get returns a project, consulting the cache first.
func (c *CachedProjects) Get(ctx context.Context, id int64) (*Project, error) {
	if project, ok := c.cache.Get(id); ok {
		return &project, nil
	}
	project, err := c.ProjectStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Add(id, *project)
	return project, nil
}

// Create stores a new project and caches it.
func (c *CachedProjects) Create(ctx context.Context, project *Project) error {
	if err := c.ProjectStore.Create(ctx, project); err != nil {
		return err
	}
	c.cache.Add(project.ID, *project)
	return nil
}

// Upsert stores the project and refreshes the cache entry.
func (c *CachedProjects) Upsert(ctx context.Context, project Project) error {
	if err := c.ProjectStore.Upsert(ctx, project); err != nil {
		return err
	}
	c.cache.Add(project.ID, project)
	return nil
}

// Delete removes the project and its cache entry.
func (c *CachedProjects) Delete(ctx context.Context, id int64) error {
	c.cache.Remove(id)
	return c.ProjectStore.Delete(ctx, id)
}

// Title resolves a project title, falling back to the numeric id.
func Title(ctx context.Context, projects ProjectStore, id int64) string {
	project, err := projects.Get(ctx, id)
	if err != nil {
		return fmt.Sprintf("#%d", id)
	}
	return project.Title
}
