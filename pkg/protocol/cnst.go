package protocol

// Version is the JSON-RPC protocol version carried by every envelope.
const Version = "2.0"

// Methods
const (
	MethodAgentRun      = "agent.run"
	MethodAgentCancel   = "agent.cancel"
	MethodSessionResume = "session.resume"
	MethodAck           = "ack"
)

// Standard JSON-RPC error codes
const (
	ErrorCodeInvalidRequest = -32600
	ErrorCodeMethodNotFound = -32601
	ErrorCodeInvalidParams  = -32602
	ErrorCodeInternalError  = -32603
)

// Application error codes, reported in-band without closing the connection
const (
	ErrorCodeMessageTooLarge = 4009
	ErrorCodeRateLimited     = 429
	ErrorCodeSessionNotFound = 404
)

// WebSocket close codes
const (
	// CloseCodeAuthFailure is sent before any protocol traffic when the
	// bearer token is missing or fails validation.
	CloseCodeAuthFailure = 4401
)

// Event types pushed by the gateway
const (
	EventTypePing   = "ping"
	EventTypeToken  = "token"
	EventTypeError  = "error"
	EventTypeStatus = "status"
)

// Result statuses
const (
	StatusStarted   = "started"
	StatusDone      = "done"
	StatusCancelled = "cancelled"
	StatusResumed   = "resumed"
)
