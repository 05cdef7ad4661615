package ai

import (
	"regexp"
	"strings"
)

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

func truncate(b []byte) string {
	if len(b) > 200 {
		return string(b[:200]) + "..."
	}
	return string(b)
}

// cleanReply drops reasoning blocks and one pair of wrapping quotes.
func cleanReply(reply string) string {
	reply = strings.TrimSpace(thinkBlock.ReplaceAllString(reply, ""))

	if len(reply) >= 2 {
		quotes := []struct{ open, close string }{
			{`"`, `"`}, {"“", "”"}, {"「", "」"},
		}
		for _, q := range quotes {
			if !strings.HasPrefix(reply, q.open) || !strings.HasSuffix(reply, q.close) ||
				len(reply) < len(q.open)+len(q.close) {
				continue
			}
			inner := reply[len(q.open) : len(reply)-len(q.close)]
			if !strings.Contains(inner, q.open) && !strings.Contains(inner, q.close) {
				reply = strings.TrimSpace(inner)
			}
			break
		}
	}
	return reply
}

// PersonaPrompt prefixes a user question with the persona instructions.
func PersonaPrompt(persona, query string) string {
	if persona == "" {
		return query
	}
	return persona + "\n\nユーザーからの質問:\n" + query
}
