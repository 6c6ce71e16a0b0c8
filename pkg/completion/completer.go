// Package completion talks to the hosted text-completion service.
package completion

import "context"

// Completer produces text for a system instruction and a prompt in one
// non-streaming call. An empty string with a nil error means the service
// answered without usable text.
type Completer interface {
	Complete(ctx context.Context, instructions, input string) (string, error)
}
