package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

var (
	// ErrMalformed indicates the payload is not a valid request envelope
	ErrMalformed = errors.New("malformed envelope")
	// ErrInvalidParams indicates the method's parameters failed validation
	ErrInvalidParams = errors.New("invalid params")
)

// SniffID extracts the request ID from a raw payload without a full decode,
// so that oversized or malformed envelopes can still be answered with the
// original ID. Returns nil when the payload carries none.
func SniffID(data []byte) any {
	if !gjson.ValidBytes(data) {
		return nil
	}
	id := gjson.GetBytes(data, "id")
	if !id.Exists() {
		return nil
	}
	return id.Value()
}

// DecodeRequest parses a raw text frame into a request envelope.
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if req.Method == "" {
		return nil, fmt.Errorf("%w: missing method", ErrMalformed)
	}
	return &req, nil
}

// decodeParams strictly unmarshals the request params into the given target.
func decodeParams(req *Request, target any) error {
	if len(req.Params) == 0 {
		return fmt.Errorf("%w: missing params", ErrInvalidParams)
	}
	if err := json.Unmarshal(req.Params, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

// RunParamsOf validates and extracts agent.run parameters.
func RunParamsOf(req *Request) (*RunParams, error) {
	var p RunParams
	if err := decodeParams(req, &p); err != nil {
		return nil, err
	}
	if p.Prompt == "" {
		return nil, fmt.Errorf("%w: prompt is required", ErrInvalidParams)
	}
	return &p, nil
}

// CancelParamsOf validates and extracts agent.cancel parameters.
func CancelParamsOf(req *Request) (*CancelParams, error) {
	var p CancelParams
	if err := decodeParams(req, &p); err != nil {
		return nil, err
	}
	if p.JobID == "" {
		return nil, fmt.Errorf("%w: jobId is required", ErrInvalidParams)
	}
	return &p, nil
}

// ResumeParamsOf validates and extracts session.resume parameters.
func ResumeParamsOf(req *Request) (*ResumeParams, error) {
	var p ResumeParams
	if err := decodeParams(req, &p); err != nil {
		return nil, err
	}
	if p.SessionID == "" {
		return nil, fmt.Errorf("%w: sessionId is required", ErrInvalidParams)
	}
	if p.LastSeq < 0 {
		return nil, fmt.Errorf("%w: lastSeq must be non-negative", ErrInvalidParams)
	}
	return &p, nil
}

// AckParamsOf validates and extracts ack parameters.
func AckParamsOf(req *Request) (*AckParams, error) {
	var p AckParams
	if err := decodeParams(req, &p); err != nil {
		return nil, err
	}
	if p.LastSeq < 0 {
		return nil, fmt.Errorf("%w: lastSeq must be non-negative", ErrInvalidParams)
	}
	return &p, nil
}
