package config

import (
	"fmt"
	"strings"
	"time"
)

// durationField parses an optional Go duration string from the config.
// An empty value yields def; negative values are rejected. key names the
// config entry in error messages.
func durationField(key, raw string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, raw, err)
	case d < 0:
		return 0, fmt.Errorf("%s: duration must be >= 0", key)
	}
	return d, nil
}
