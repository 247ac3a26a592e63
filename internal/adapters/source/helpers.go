package source

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// pickStr returns the first non-empty string under keys, searched in each map in turn.
func pickStr(maps []map[string]any, keys ...string) string {
	for _, m := range maps {
		for _, k := range keys {
			if v, ok := m[k]; ok {
				if s, ok := v.(string); ok {
					if strings.TrimSpace(s) != "" {
						return s
					}
				}
			}
		}
	}
	return ""
}

// pickTags returns the first tag list found under key.
func pickTags(maps []map[string]any, key string) []string {
	for _, m := range maps {
		raw, ok := m[key].([]any)
		if !ok || len(raw) == 0 {
			continue
		}
		tags := make([]string, 0, len(raw))
		for _, v := range raw {
			if s, ok := v.(string); ok && s != "" {
				tags = append(tags, s)
			}
		}
		return tags
	}
	return nil
}

// pickTime reads key as RFC3339 text or epoch seconds/milliseconds.
func pickTime(maps []map[string]any, key string) time.Time {
	for _, m := range maps {
		switch v := m[key].(type) {
		case string:
			if t, err := parseTimeFlexible(v); err == nil {
				return t
			}
		case float64:
			return epochToTime(int64(v))
		}
	}
	return time.Time{}
}

// epochToTime accepts seconds or milliseconds.
func epochToTime(v int64) time.Time {
	const msThreshold = 1e11
	if v > msThreshold {
		return time.UnixMilli(v).UTC()
	}
	return time.Unix(v, 0).UTC()
}

// parseTimeFlexible parses RFC3339, epoch seconds/milliseconds and a few common layouts.
func parseTimeFlexible(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return epochToTime(n), nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time: %s", s)
}

// attributeMaps returns attrs and, when present, its nested "attributes" map.
func attributeMaps(attrs map[string]any) []map[string]any {
	maps := []map[string]any{attrs}
	if nested, ok := attrs["attributes"].(map[string]any); ok {
		maps = append(maps, nested)
	}
	return maps
}
