package settings

import (
	"strconv"
	"time"

	"github.com/goodtune/baralga/internal/filter"
	"github.com/magiconair/properties"
)

// legacyAll is how files written before dummy values marked "all".
const legacyAll = "*"

// Selection returns the stored filter selection. Unparsable values are
// logged and treated as unset.
func (s *Store) Selection() filter.Selection {
	return filter.Selection{
		Year:      s.selectionValue(KeyFilterYear),
		Month:     s.selectionValue(KeyFilterMonth),
		Week:      s.selectionValue(KeyFilterWeek),
		ProjectID: s.int64Value(KeyFilterProject),
	}
}

// RestoreFilter rebuilds the stored filter relative to now.
func (s *Store) RestoreFilter(now time.Time) filter.Filter {
	return s.Selection().Resolve(now)
}

// SaveFilter stores a filter selection. Zero fields are removed so they
// read back as unset.
func (s *Store) SaveFilter(sel filter.Selection) error {
	if err := sel.Validate(); err != nil {
		return err
	}
	return s.update(func(p *properties.Properties) error {
		for key, v := range map[string]filter.Value{
			KeyFilterYear:  sel.Year,
			KeyFilterMonth: sel.Month,
			KeyFilterWeek:  sel.Week,
		} {
			if err := setOrDelete(p, key, int64(v)); err != nil {
				return err
			}
		}
		return setOrDelete(p, KeyFilterProject, sel.ProjectID)
	})
}

func setOrDelete(p *properties.Properties, key string, v int64) error {
	if v == 0 {
		p.Delete(key)
		return nil
	}
	_, _, err := p.Set(key, strconv.FormatInt(v, 10))
	return err
}

func (s *Store) selectionValue(key string) filter.Value {
	raw, ok := s.Get(key)
	if !ok {
		return 0
	}

	if raw == legacyAll && (key == KeyFilterMonth || key == KeyFilterYear) {
		if err := s.setString(key, strconv.Itoa(filter.All)); err != nil {
			s.logger.Error().Err(err).Str("key", key).Msg("Could not migrate legacy filter value")
		}
		return filter.All
	}

	n, err := parseDecimal(raw)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Str("value", raw).Msg("Ignoring invalid filter value")
		return 0
	}
	v := filter.Value(n)
	if !v.Valid() {
		s.logger.Error().Str("key", key).Str("value", raw).Msg("Ignoring invalid filter value")
		return 0
	}
	return v
}

func (s *Store) int64Value(key string) int64 {
	raw, ok := s.Get(key)
	if !ok || raw == "" {
		return 0
	}
	n, err := parseDecimal(raw)
	if err != nil || n < 0 {
		s.logger.Error().Err(err).Str("key", key).Str("value", raw).Msg("Ignoring invalid setting")
		return 0
	}
	return n
}
