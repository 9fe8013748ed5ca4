package core

import "encoding/json"

// Error codes for the one hard-error path in the system: serialization.
// Every other failure mode in this package is represented as a Diagnostic,
// never as a returned error.
const (
	ErrMalformedJSON   = "ERR_MALFORMED_JSON"
	ErrUnknownShape    = "ERR_UNKNOWN_SHAPE"
	ErrMissingTree     = "ERR_MISSING_TREE"
	ErrSchemaMismatch  = "ERR_SCHEMA_MISMATCH"
	ErrInvalidOperation = "ERR_INVALID_OPERATION"
)

// CLIError is a uniform error payload usable both as a human-readable error
// and as a JSON diagnostic payload.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (e CLIError) Error() string {
	if e.Detail != "" {
		return e.Message + ": " + e.Detail
	}
	return e.Message
}

// JSON renders the error as a JSON string; errors in marshalling are
// impossible for this struct shape, so the error return is discarded.
func (e CLIError) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// Wrap builds a CLIError carrying the wrapped cause as Detail.
func Wrap(code, msg string, cause error) error {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return CLIError{Code: code, Message: msg, Detail: detail}
}
