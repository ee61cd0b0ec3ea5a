package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound matches a ResponseError with status 404.
var ErrNotFound = errors.New("not found")

// ResponseError is returned for non 2XX responses of the engine.
type ResponseError struct {
	Path       string
	StatusCode int
	Type       string
	Message    string
}

func (e *ResponseError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("GET %s: unexpected status %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: unexpected status %d: %s: %s", e.Path, e.StatusCode, e.Type, e.Message)
}

func (e *ResponseError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

func newResponseError(path string, status int, body []byte) *ResponseError {
	respErr := ResponseError{Path: path, StatusCode: status}
	var engineErr struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &engineErr) == nil {
		respErr.Type = engineErr.Type
		respErr.Message = engineErr.Message
	}
	return &respErr
}
