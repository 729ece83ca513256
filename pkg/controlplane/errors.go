package controlplane

import "errors"

// Client errors
var (
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrDecodeResponse   = errors.New("malformed response body")
)
