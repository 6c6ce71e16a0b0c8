package gateway

import (
	"fmt"
	"strings"
)

// Block renders snippets as the labeled context block of a prompt. Labels
// count the given snippets from 1 (#CID_1, #CID_2, ...), and snippets are
// separated by a blank line. No snippets render as "".
func Block(snippets []Snippet) string {
	parts := make([]string, len(snippets))
	for i, s := range snippets {
		parts[i] = fmt.Sprintf("#CID_%d\n%s", i+1, s.Text)
	}
	return strings.Join(parts, "\n\n")
}
