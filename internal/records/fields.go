package records

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/orthodoxmetrics/om-backend/pkg/errors"
)

const dateLayout = "2006-01-02"

// readOnlyColumns may be echoed back by clients and are dropped silently.
var readOnlyColumns = map[string]struct{}{
	"created_by": {},
	"created_at": {},
	"updated_at": {},
}

// parseFields decodes a record body, keeps only writable columns, converts
// blank strings to NULL and dates to time values, then checks required
// columns. The id, when present, is returned separately.
func parseFields(def Definition, raw json.RawMessage) (Fields, uint, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil || body == nil {
		return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "record body must be a JSON object")
	}

	details := map[string]string{}
	fields := Fields{}
	var id uint
	for key, value := range body {
		switch {
		case key == "id":
			parsed, ok := parseID(value)
			if !ok {
				details["id"] = "must be a positive integer"
				continue
			}
			id = parsed
		case def.hasColumn(def.Columns, key):
			normalized, err := normalizeValue(def, key, value)
			if err != nil {
				details[key] = err.Error()
				continue
			}
			fields[key] = normalized
		default:
			if _, ok := readOnlyColumns[key]; !ok {
				details[key] = "unknown field"
			}
		}
	}

	for _, column := range def.Required {
		if fields[column] == nil {
			details[column] = "is required"
		}
	}
	if len(details) > 0 {
		return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid %s record", def.Kind)).WithDetails(details)
	}
	return fields, id, nil
}

func normalizeValue(def Definition, column string, value any) (any, error) {
	str, isString := value.(string)
	if isString {
		str = strings.TrimSpace(str)
		if str == "" {
			return nil, nil
		}
	}
	if value == nil {
		return nil, nil
	}

	if def.isDate(column) {
		if !isString {
			return nil, fmt.Errorf("must be a date (YYYY-MM-DD)")
		}
		return parseDate(str)
	}

	switch v := value.(type) {
	case string:
		return str, nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return nil, fmt.Errorf("must be an integer")
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unsupported value")
	}
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("must be a date (YYYY-MM-DD)")
}

func parseID(value any) (uint, bool) {
	var raw string
	switch v := value.(type) {
	case json.Number:
		raw = v.String()
	case string:
		raw = strings.TrimSpace(v)
	default:
		return 0, false
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// decodeInto maps column-keyed fields onto a model through its JSON tags.
func decodeInto[T any](fields Fields) (*T, error) {
	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "record field has the wrong type")
	}
	return &out, nil
}
