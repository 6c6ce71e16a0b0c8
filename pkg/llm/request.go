package llm

import (
	"bytes"
	"encoding/json"
)

// ChatRequest is the body of POST /api/chat. Every field is optional.
type ChatRequest struct {
	Messages []Message `json:"messages,omitempty"` // Conversation history, oldest first
	Account  string    `json:"account,omitempty"`  // Account identifier echoed into the prompt
	CIDs     CIDList   `json:"cids,omitempty"`     // Content identifiers to ground the reply on
}

// CIDList is a list of content identifiers. A JSON value that is not an
// array (a string, an object, null) decodes to an empty list instead of
// failing the request.
type CIDList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *CIDList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		*l = nil
		return nil
	}

	var ids []string
	if err := json.Unmarshal(trimmed, &ids); err != nil {
		return err
	}
	*l = ids
	return nil
}
