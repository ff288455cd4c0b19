package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// parseHeaders turns "key:value" pairs into a header map.
func parseHeaders(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header %q; use key:value", pair)
		}
		headers[key] = strings.TrimSpace(value)
	}
	return headers, nil
}

// parseData turns "key=value" pairs into a payload. A key given more than
// once collects its values into an array.
func parseData(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	data := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid data %q; use key=value", pair)
		}
		switch prev := data[key].(type) {
		case nil:
			data[key] = value
		case string:
			data[key] = []string{prev, value}
		case []string:
			data[key] = append(prev, value)
		}
	}
	return data, nil
}

// render formats a response body for the terminal, indenting JSON.
func render(result any) (string, error) {
	switch v := result.(type) {
	case nil:
		return "", nil
	case json.RawMessage:
		var buf bytes.Buffer
		if err := json.Indent(&buf, v, "", "  "); err != nil {
			return string(v), nil
		}
		return buf.String(), nil
	case string:
		return v, nil
	}
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render response: %w", err)
	}
	return string(out), nil
}
