package promapi

import "errors"

// TransportError reports an HTTP-level failure: either the transport itself
// failed, or the server answered with a status code outside the set that may
// still carry a decodable error envelope.
type TransportError struct {
	StatusCode int
	Status     string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Status
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError reports an envelope whose status field is "error".
type APIError struct {
	Message string
}

func (e *APIError) Error() string { return e.Message }

// ErrMissingData reports a "success" envelope that carries no data field.
var ErrMissingData = errors.New(`missing "data" field in response JSON`)
