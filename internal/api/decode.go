package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// DecodeError reports a response that does not map onto the canonical shape.
type DecodeError struct {
	Endpoint string
	// Field is the missing required field, empty for malformed bodies.
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid response from %s: missing %s", e.Endpoint, e.Field)
	}
	return fmt.Sprintf("invalid response from %s: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// validator is implemented by every canonical response type.
type validator interface {
	validate() (missing string)
}

func decode[T any](resp *http.Response, endpoint, requestID string) (T, error) {
	var out T
	defer drain(resp)

	if err := checkStatus(resp, requestID); err != nil {
		return out, err
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, &DecodeError{Endpoint: endpoint, Err: err}
	}
	if v, ok := any(&out).(validator); ok {
		if missing := v.validate(); missing != "" {
			return out, &DecodeError{Endpoint: endpoint, Field: missing}
		}
	}
	return out, nil
}

func decodeList[T any](resp *http.Response, endpoint, requestID string) ([]T, error) {
	items, err := decode[[]T](resp, endpoint, requestID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	for i := range items {
		if v, ok := any(&items[i]).(validator); ok {
			if missing := v.validate(); missing != "" {
				return nil, &DecodeError{Endpoint: endpoint, Field: fmt.Sprintf("[%d].%s", i, missing)}
			}
		}
	}
	return items, nil
}
