package handler

import "time"

func parseBoolQuery(raw string) *bool {
	switch raw {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	}
	return nil
}

// parseDateQuery parses a YYYY-MM-DD query parameter. The returned flag is
// false when the value is present but malformed.
func parseDateQuery(raw string) (*time.Time, bool) {
	if raw == "" {
		return nil, true
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, false
	}
	return &parsed, true
}
