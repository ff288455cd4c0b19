package request

import (
	"net/http"
	"strings"

	"github.com/crf-service/crf-sdk-go/sdk/constants"
)

// normalize settles method and data type, moves payloads between Params and
// Data for GET and POST, and negotiates the Content-Type header.
func normalize(cfg Config) (Config, error) {
	cfg.Method = strings.ToUpper(cfg.Method)
	if cfg.Method == "" {
		cfg.Method = http.MethodGet
	}
	if cfg.DataType == "" {
		cfg.DataType = DataTypeJSON
	}

	switch cfg.Method {
	case http.MethodGet:
		if cfg.Params == nil {
			cfg.Params = cfg.Data
			if cfg.Params == nil {
				cfg.Params = map[string]any{}
			}
		}
	case http.MethodPost:
		if cfg.Data == nil {
			cfg.Data = cfg.Params
			cfg.Params = nil
			if cfg.Data == nil {
				cfg.Data = map[string]any{}
			}
		}
	}

	headers := make(map[string]string, len(cfg.Headers)+1)
	for k, v := range cfg.Headers {
		if strings.EqualFold(k, constants.HeaderContentType) {
			continue
		}
		headers[k] = v
	}
	cfg.Headers = headers

	if cfg.DataType.IsJSON() {
		headers[constants.HeaderContentType] = constants.ContentTypeJSON
		return cfg, nil
	}

	headers[constants.HeaderContentType] = constants.ContentTypeForm
	data, err := encodeForm(cfg.Data)
	if err != nil {
		return cfg, err
	}
	cfg.Data = data
	return cfg, nil
}
