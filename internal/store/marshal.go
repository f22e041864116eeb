package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/assetline/assetline/internal/model"
)

// timeLayout is the column format for all timestamps. RFC 3339 with
// nanoseconds sorts lexicographically for fixed-width UTC values, which the
// ORDER BY clauses rely on.
const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// marshalExtra serializes an extra map to its JSON column value.
// Nil maps serialize as the empty object so the column is never NULL.
func marshalExtra(extra model.Extra) (string, error) {
	if extra == nil {
		return "{}", nil
	}
	b, err := json.Marshal(extra)
	if err != nil {
		return "", fmt.Errorf("marshal extra: %w", err)
	}
	return string(b), nil
}

// unmarshalExtra deserializes a JSON column value into an extra map.
func unmarshalExtra(raw string) (model.Extra, error) {
	if raw == "" {
		return model.Extra{}, nil
	}
	var extra model.Extra
	if err := json.Unmarshal([]byte(raw), &extra); err != nil {
		return nil, fmt.Errorf("unmarshal extra: %w", err)
	}
	return extra, nil
}
