package storage

import (
	"encoding/json"
	"regexp"
	"time"
)

// isoTimestampPattern matches the ISO-8601 instant forms the remote store is
// known to hold: seconds precision, optional fractional seconds, and either a
// Z suffix or a numeric offset.
var isoTimestampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})$`)

// reviveTimestamps walks the decoded JSON tree and rewrites every string that
// looks like an ISO-8601 instant into canonical RFC 3339 UTC, so the typed
// decode that follows always succeeds regardless of which client wrote the
// document. Strings that fail to parse are left untouched.
func reviveTimestamps(raw []byte) ([]byte, error) {
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}
	return json.Marshal(reviveValue(tree))
}

func reviveValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, item := range v {
			v[key] = reviveValue(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = reviveValue(item)
		}
		return v
	case string:
		if !isoTimestampPattern.MatchString(v) {
			return v
		}
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return v
		}
		return parsed.UTC().Format(time.RFC3339Nano)
	default:
		return value
	}
}
