package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// ErrMalformed marks collaborator output that could not be decoded into the expected shape.
var ErrMalformed = errors.New("malformed structured response")

// ExtractJSON strips a surrounding code fence and any prose around the JSON payload.
func ExtractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```JSON")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.TrimSpace(strings.Trim(raw, "`"))

	if raw == "" || raw[0] == '{' || raw[0] == '[' {
		return raw
	}

	start := strings.IndexAny(raw, "{[")
	if start == -1 {
		return raw
	}

	closing := "}"
	if raw[start] == '[' {
		closing = "]"
	}

	end := strings.LastIndex(raw, closing)
	if end <= start {
		return raw
	}

	return raw[start : end+1]
}

// ParseObject decodes the response as a JSON object.
func ParseObject(raw string) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(ExtractJSON(raw)), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: null object", ErrMalformed)
	}
	return data, nil
}

// Decode parses the response and decodes it into out, matching fields by their json tags.
// Scalars are coerced loosely (for example "85" into a float).
func Decode(raw string, out any) error {
	var data any
	if err := json.Unmarshal([]byte(ExtractJSON(raw)), &data); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if data == nil {
		return fmt.Errorf("%w: null payload", ErrMalformed)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("building decoder: %w", err)
	}

	if err := decoder.Decode(data); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return nil
}

// CoerceFloat converts a loosely typed JSON value into a float. NaN signals failure.
func CoerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// CoerceString converts a loosely typed JSON value into trimmed text.
func CoerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
