// Package reply turns a conversation and its record snippets into a prompt
// and asks the completion service for the assistant's answer.
package reply

import (
	"strings"

	"github.com/curavault/cura/pkg/llm"
)

const (
	// Fallback is returned when the completion service produces no text.
	Fallback = "Sorry, I couldn't generate a reply."

	contextHeader  = "Context from patient records:"
	unknownAccount = "unknown account"
)

var persona = []string{
	"You are 'Cura', a friendly health-records assistant for the CuraVault app.",
	"You can summarize the patient's uploaded records if provided.",
	"Never give medical diagnosis. Encourage consulting a doctor for clinical advice.",
	"If data is missing, say so clearly and suggest what to upload or check next.",
}

// Instructions is the system instruction sent with every prompt.
func Instructions() string {
	return strings.Join(persona, " ")
}

// LastUserText is the text of the last message with role "user", or "" when
// there is none.
func LastUserText(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleUser {
			return messages[i].Text
		}
	}
	return ""
}

// BuildInput assembles the prompt body: the snippet block under a header when
// there is one, then the attributed user line.
func BuildInput(block, account, userText string) string {
	var contextPart string
	if block != "" {
		contextPart = contextHeader + "\n" + block + "\n"
	}

	if account == "" {
		account = unknownAccount
	}
	userLine := "User (" + account + "): " + userText

	return contextPart + "\n" + userLine
}
