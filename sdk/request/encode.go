package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/oapi-codegen/runtime"

	"github.com/crf-service/crf-sdk-go/sdk/constants"
)

var absoluteURL = regexp.MustCompile(`^(?i)([a-z][a-z\d+\-.]*:)?//`)

// joinURL appends path to base unless path is already absolute.
func joinURL(base, path string) string {
	if path == "" {
		return base
	}
	if base == "" || absoluteURL.MatchString(path) {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

func appendQuery(target, query string) string {
	if i := strings.IndexByte(target, '#'); i >= 0 {
		target = target[:i]
	}
	if query == "" {
		return target
	}
	if strings.Contains(target, "?") {
		return target + "&" + query
	}
	return target + "?" + query
}

// encodeValues renders v as a query string with repeated keys for arrays
// (a=1&a=2). Keys are sorted. A string is taken as already encoded.
func encodeValues(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	fields, err := toFields(v)
	if err != nil {
		return "", err
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		part, err := encodeField(k, fields[k])
		if err != nil {
			return "", fmt.Errorf("encode %q: %w", k, err)
		}
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "&"), nil
}

func encodeField(key string, val any) (string, error) {
	if val == nil {
		return url.QueryEscape(key) + "=", nil
	}
	rv := reflect.ValueOf(val)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return url.QueryEscape(key) + "=", nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		if rv.Len() == 0 {
			return "", nil
		}
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Struct:
		return runtime.MarshalDeepObject(rv.Interface(), key)
	case reflect.Slice, reflect.Array:
		// arrays of objects get indexed keys: arr[0][x]=1
		if hasObjects(rv) {
			return runtime.MarshalDeepObject(rv.Interface(), key)
		}
	}
	switch rv.Kind() {
	case reflect.Array:
		items := make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
		return runtime.StyleParamWithLocation("form", true, key, runtime.ParamLocationQuery, items)
	}
	return runtime.StyleParamWithLocation("form", true, key, runtime.ParamLocationQuery, rv.Interface())
}

func hasObjects(rv reflect.Value) bool {
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i)
		for elem.Kind() == reflect.Interface || elem.Kind() == reflect.Pointer {
			if elem.IsNil() {
				break
			}
			elem = elem.Elem()
		}
		switch elem.Kind() {
		case reflect.Map, reflect.Struct:
			return true
		}
	}
	return false
}

// toFields flattens v into top-level fields. Anything that is not one of the
// common map shapes goes through encoding/json so struct tags apply.
func toFields(v any) (map[string]any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return t, nil
	case url.Values:
		return stringSlices(t), nil
	case map[string][]string:
		return stringSlices(t), nil
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out, nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", constants.ErrInvalidConfig, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %T is not an object", constants.ErrInvalidConfig, v)
	}
	return out, nil
}

func stringSlices(m map[string][]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, vs := range m {
		if len(vs) == 1 {
			out[k] = vs[0]
			continue
		}
		out[k] = vs
	}
	return out
}

// encodeForm turns Data into a form string. Raw payloads are left alone and
// an empty encoding becomes an empty object.
func encodeForm(data any) (any, error) {
	switch data.(type) {
	case string, []byte, json.RawMessage, io.Reader:
		return data, nil
	}
	encoded, err := encodeValues(data)
	if err != nil {
		return nil, err
	}
	if encoded == "" {
		return map[string]any{}, nil
	}
	return encoded, nil
}

// encodeBody serializes Data for the wire. Raw payloads are sent as-is and
// everything else as JSON.
func encodeBody(data any) (io.Reader, error) {
	switch b := data.(type) {
	case nil:
		return nil, nil
	case string:
		return strings.NewReader(b), nil
	case []byte:
		return bytes.NewReader(b), nil
	case json.RawMessage:
		return bytes.NewReader(b), nil
	case io.Reader:
		return b, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return bytes.NewReader(raw), nil
}
