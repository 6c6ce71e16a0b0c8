package llm

// ChatResponse is the successful reply to POST /api/chat.
type ChatResponse struct {
	Reply string `json:"reply"`
}
