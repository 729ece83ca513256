package kv

import "errors"

// Client errors
var (
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrPutRejected      = errors.New("put rejected by node")
	ErrDecodeResponse   = errors.New("malformed response body")
)
