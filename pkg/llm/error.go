// Package llm provides the wire representations of chat requests and replies
// exchanged with browser clients of the chat API.
package llm

// ErrorChatFailed is the only error marker a caller ever sees. Upstream detail
// stays in the server log.
const ErrorChatFailed = "chat_failed"

// ErrorResponse represents a failed chat request.
type ErrorResponse struct {
	Error string `json:"error"`
}
