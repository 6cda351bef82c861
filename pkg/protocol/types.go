package protocol

import "encoding/json"

type (
	// Request represents an inbound JSON-RPC request envelope
	Request struct {
		// JSONRPC version, must be "2.0"
		JSONRPC string `json:"jsonrpc"`
		// A uniquely identifying ID for a request, echoed back in replies.
		// May be a string, a number or null.
		ID any `json:"id,omitempty"`
		// The method to be invoked
		Method string `json:"method"`
		// The parameters to be passed to the method
		Params json.RawMessage `json:"params,omitempty"`
	}

	// BaseResult carries the fields common to every reply envelope
	BaseResult struct {
		JSONRPC string `json:"jsonrpc"`
		ID      any    `json:"id"`
	}

	// Response represents a successful JSON-RPC reply
	Response struct {
		BaseResult
		Result any `json:"result"`
	}

	// Error describes a protocol-level failure reported in-band
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}

	// ErrorResponse represents a JSON-RPC error reply
	ErrorResponse struct {
		BaseResult
		Error Error `json:"error"`
	}

	// Event is a server push produced while an agent run is in flight.
	// Session-scoped events carry a strictly increasing per-session Seq;
	// heartbeats and other connection-scoped events carry none.
	Event struct {
		Type string         `json:"type"`
		Seq  int64          `json:"seq,omitempty"`
		Text string         `json:"text,omitempty"`
		Data map[string]any `json:"data,omitempty"`
	}

	// EventPush wraps an Event for the wire; pushes carry no request ID
	EventPush struct {
		JSONRPC string `json:"jsonrpc"`
		Event   *Event `json:"event"`
	}

	// RunParams are the parameters of an agent.run request
	RunParams struct {
		Prompt    string         `json:"prompt"`
		SessionID string         `json:"sessionId,omitempty"`
		Options   map[string]any `json:"options,omitempty"`
	}

	// CancelParams are the parameters of an agent.cancel request
	CancelParams struct {
		JobID string `json:"jobId"`
	}

	// ResumeParams are the parameters of a session.resume request
	ResumeParams struct {
		SessionID string `json:"sessionId"`
		LastSeq   int64  `json:"lastSeq"`
	}

	// AckParams are the parameters of an ack request
	AckParams struct {
		LastSeq int64 `json:"lastSeq"`
	}
)

// NewResponse builds a result envelope echoing the request ID
func NewResponse(id any, result any) *Response {
	return &Response{
		BaseResult: BaseResult{JSONRPC: Version, ID: id},
		Result:     result,
	}
}

// NewErrorResponse builds an error envelope echoing the request ID
func NewErrorResponse(id any, code int, message string) *ErrorResponse {
	return &ErrorResponse{
		BaseResult: BaseResult{JSONRPC: Version, ID: id},
		Error:      Error{Code: code, Message: message},
	}
}

// NewEventPush wraps an event for transmission
func NewEventPush(ev *Event) *EventPush {
	return &EventPush{JSONRPC: Version, Event: ev}
}
