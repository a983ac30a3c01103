package model

import (
	"encoding/json"
	"errors"
)

// DefaultDocument is served when nothing has been written yet. It is never persisted.
var DefaultDocument = json.RawMessage(`{"users":{},"passwords":{},"teams":{}}`)

var (
	// ErrNotFound means the backing store holds no document.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidDocument means a write payload was not valid UTF-8 JSON.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrCorruptDocument means the stored document could not be parsed.
	ErrCorruptDocument = errors.New("stored document is corrupt")
)

type WriteResponse struct {
	Success bool `json:"success"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
