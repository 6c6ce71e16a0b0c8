package reply

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/curavault/cura/pkg/completion"
	"github.com/curavault/cura/pkg/llm"
)

// Observer is notified after every completion call.
type Observer interface {
	ObserveCompletion(elapsed time.Duration, err error)
}

// Generator produces assistant replies. It is stateless and safe for
// concurrent use.
type Generator struct {
	completer completion.Completer
	observer  Observer
	logger    *zap.Logger
}

// NewGenerator creates a Generator. observer may be nil.
func NewGenerator(completer completion.Completer, observer Observer, logger *zap.Logger) *Generator {
	return &Generator{
		completer: completer,
		observer:  observer,
		logger:    logger,
	}
}

// Generate answers the last user message of messages, grounded on block (the
// rendered snippets, possibly empty). Completion failures are returned;
// an empty completion yields Fallback.
func (g *Generator) Generate(ctx context.Context, messages []llm.Message, account, block string) (string, error) {
	input := BuildInput(block, account, LastUserText(messages))

	start := time.Now()
	text, err := g.completer.Complete(ctx, Instructions(), input)
	if g.observer != nil {
		g.observer.ObserveCompletion(time.Since(start), err)
	}
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}

	if text == "" {
		g.logger.Warn("completion returned no text, using fallback reply")
		return Fallback, nil
	}

	return text, nil
}
