package settings

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goodtune/baralga/internal/filter"
	"github.com/spf13/cast"
)

func isKnown(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

// validateValue checks a raw value against the type of a known key.
func validateValue(key, value string) error {
	switch key {
	case KeyFilterYear, KeyFilterMonth, KeyFilterWeek:
		n, err := parseDecimal(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		sel := filter.Selection{}
		switch key {
		case KeyFilterYear:
			sel.Year = filter.Value(n)
		case KeyFilterMonth:
			sel.Month = filter.Value(n)
		default:
			sel.Week = filter.Value(n)
		}
		if err := sel.Validate(); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	case KeyFilterProject, KeyActivityProject:
		n, err := parseDecimal(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if n < 0 {
			return fmt.Errorf("%s: invalid project id %d", key, n)
		}
	case KeyActivityActive:
		if _, err := cast.ToBoolE(value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	case KeyActivityStart:
		if _, err := time.Parse(time.RFC3339, value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	case KeyExcelExportDirectory, KeyDataExportDirectory, KeyLastDescription, KeyShownCategory:
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

// parseDecimal reads a base 10 integer. Leading zeros are not taken as an
// octal prefix, so "08" is 8 and "010" is 10.
func parseDecimal(value string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(value), 10, 64)
}
