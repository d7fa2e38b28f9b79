// Package payload normalizes heterogeneous request payloads. Callers reach
// the gateway over JSON bodies or form posts, and form transports serialize
// list/object fields as strings (or drop them entirely), so every
// array-valued field may arrive as a native value, a JSON-encoded string,
// or only inside the raw body.
package payload

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/erpgate/erpgate/internal/platform/httpx"
)

// Map is a loosely-typed field mapping.
type Map map[string]any

// Args pairs the named request parameters with the decoded raw JSON body.
// Named parameters win for scalar fields; the raw body wins for
// array-valued fields, which form transports mishandle.
type Args struct {
	Named Map
	Raw   Map
}

// FromRequest collects named parameters (query and form values) and, when
// the body is a JSON object, the decoded raw body.
func FromRequest(r *http.Request) (Args, error) {
	args := Args{Named: Map{}}

	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			args.Named[key] = values[0]
		}
	}

	contentType := r.Header.Get("Content-Type")
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil &&
		(mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data") {
		if err := r.ParseForm(); err != nil {
			return args, fmt.Errorf("%w: request body", httpx.ErrMalformedField)
		}
		for key, values := range r.PostForm {
			if len(values) > 0 {
				args.Named[key] = values[0]
			}
		}
		return args, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return args, fmt.Errorf("read request body: %w", err)
	}
	if len(body) > 0 {
		var raw Map
		if err := json.Unmarshal(body, &raw); err != nil {
			return args, fmt.Errorf("%w: request body is not a JSON object", httpx.ErrMalformedField)
		}
		args.Raw = raw
	}
	return args, nil
}

// Get returns the field value, preferring named parameters and falling back
// to the raw body.
func (a Args) Get(key string) (any, bool) {
	if v, ok := a.Named[key]; ok && v != nil {
		return v, true
	}
	if v, ok := a.Raw[key]; ok && v != nil {
		return v, true
	}
	return nil, false
}

// Structured returns the value of an array/object-valued field. When
// preferRaw is set the raw body wins outright, because the named-parameter
// transport is known to mangle nested arrays.
func (a Args) Structured(key string, preferRaw bool) (any, bool) {
	if preferRaw {
		if v, ok := a.Raw[key]; ok && v != nil {
			return v, true
		}
	}
	return a.Get(key)
}

// Str returns the field as a string. Numbers and booleans are formatted;
// structured values return "".
func (a Args) Str(key string) string {
	v, ok := a.Get(key)
	if !ok {
		return ""
	}
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	default:
		return ""
	}
}

// Bool returns the field as a boolean, accepting JSON booleans, numbers and
// the form-value spellings "1"/"0"/"true"/"false".
func (a Args) Bool(key string, def bool) bool {
	v, ok := a.Get(key)
	if !ok {
		return def
	}
	switch value := v.(type) {
	case bool:
		return value
	case float64:
		return value != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "1", "true", "yes":
			return true
		case "0", "false", "no", "":
			return false
		}
	}
	return def
}

// Decimal returns the field as a decimal, tolerating numeric strings.
// Unparseable or absent values yield zero.
func (a Args) Decimal(key string) decimal.Decimal {
	v, ok := a.Get(key)
	if !ok {
		return decimal.Zero
	}
	return toDecimal(v)
}

func toDecimal(v any) decimal.Decimal {
	switch value := v.(type) {
	case float64:
		return decimal.NewFromFloat(value)
	case string:
		if d, err := decimal.NewFromString(strings.TrimSpace(value)); err == nil {
			return d
		}
	case int:
		return decimal.NewFromInt(int64(value))
	}
	return decimal.Zero
}

// Decode maps a structured field value onto out. String values are parsed
// as JSON; native values are re-marshalled through JSON so loosely-typed
// maps land in typed structs. A parse failure is a MalformedField error
// naming the field.
func Decode(field string, value any, out any) error {
	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("%w: %s", httpx.ErrMalformedField, field)
		}
		data = encoded
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s", httpx.ErrMalformedField, field)
	}
	return nil
}

// CoerceList wraps a bare object in a single-element list, so callers may
// send one line item without the enclosing array.
func CoerceList(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return []any{v}
	case string:
		trimmed := strings.TrimSpace(v)
		if strings.HasPrefix(trimmed, "{") {
			return "[" + trimmed + "]"
		}
		return v
	default:
		return value
	}
}
