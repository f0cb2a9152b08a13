package result

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/stemsi/exam-portal/internal/model"
)

var errEmptyOptions = errors.New("empty options payload")

// ParseOptions decodes the stored answer options of a question. The payload is
// either a key→value object or an array of {key, value} objects, optionally
// wrapped in a JSON string. Malformed payloads are logged and yield an empty list.
func ParseOptions(raw json.RawMessage, log zerolog.Logger) []model.Option {
	opts, err := decodeOptions(raw)
	if err != nil {
		if !errors.Is(err, errEmptyOptions) {
			log.Warn().Err(err).Msg("Unparsable answer options, rendering none")
		}
		return []model.Option{}
	}
	return opts
}

func decodeOptions(raw json.RawMessage) ([]model.Option, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, errEmptyOptions
	}

	// Stored as a serialized string.
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("unquote options: %w", err)
		}
		return decodeOptions(json.RawMessage(inner))
	}

	switch raw[0] {
	case '{':
		var m map[string]string
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("decode options object: %w", err)
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		opts := make([]model.Option, 0, len(keys))
		for _, k := range keys {
			opts = append(opts, model.Option{Key: k, Value: m[k]})
		}
		return opts, nil
	case '[':
		var opts []model.Option
		if err := json.Unmarshal(raw, &opts); err != nil {
			return nil, fmt.Errorf("decode options array: %w", err)
		}
		for i, o := range opts {
			if o.Key == "" {
				return nil, fmt.Errorf("option %d has no key", i)
			}
		}
		return opts, nil
	default:
		return nil, fmt.Errorf("unexpected options payload starting with %q", raw[0])
	}
}

// HasOption reports whether key is one of opts.
func HasOption(opts []model.Option, key string) bool {
	for _, o := range opts {
		if o.Key == key {
			return true
		}
	}
	return false
}
