package settings

import (
	"strconv"
	"time"

	"github.com/magiconair/properties"
	"github.com/spf13/cast"
)

// Running is an activity that has been started but not stopped.
type Running struct {
	ProjectID int64
	Start     time.Time
}

// RunningActivity returns the running activity, if any. Inconsistent
// values are logged and reported as not running.
func (s *Store) RunningActivity() (Running, bool) {
	active, err := cast.ToBoolE(s.getString(KeyActivityActive))
	if err != nil {
		s.logger.Error().Err(err).Str("key", KeyActivityActive).Msg("Ignoring invalid setting")
		return Running{}, false
	}
	if !active {
		return Running{}, false
	}

	raw, _ := s.Get(KeyActivityStart)
	start, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		s.logger.Error().Err(err).Str("key", KeyActivityStart).Str("value", raw).Msg("Ignoring invalid setting")
		return Running{}, false
	}

	projectID := s.int64Value(KeyActivityProject)
	if projectID == 0 {
		s.logger.Error().Str("key", KeyActivityProject).Msg("Running activity has no project")
		return Running{}, false
	}

	return Running{ProjectID: projectID, Start: start.Local()}, true
}

// SetRunningActivity records a started activity.
func (s *Store) SetRunningActivity(r Running) error {
	return s.update(func(p *properties.Properties) error {
		values := [][2]string{
			{KeyActivityActive, "true"},
			{KeyActivityStart, r.Start.Format(time.RFC3339)},
			{KeyActivityProject, strconv.FormatInt(r.ProjectID, 10)},
		}
		for _, kv := range values {
			if _, _, err := p.Set(kv[0], kv[1]); err != nil {
				return err
			}
		}
		return nil
	})
}

// ClearRunningActivity forgets the running activity.
func (s *Store) ClearRunningActivity() error {
	return s.update(func(p *properties.Properties) error {
		if _, _, err := p.Set(KeyActivityActive, "false"); err != nil {
			return err
		}
		p.Delete(KeyActivityStart)
		p.Delete(KeyActivityProject)
		return nil
	})
}
