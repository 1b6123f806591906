package vision

import "strings"

// ExtractJSON locates the first JSON object in a free-form model reply.
//
// Replies are often wrapped in fenced code blocks or framed by
// commentary. The scan strips fences, finds the first "{", and walks
// forward counting brace balance until it returns to zero. The counter
// is not aware of string-literal content, so a brace inside a label
// string can mis-balance the scan; if balance never reaches zero the
// span between the first "{" and the last "}" is returned instead.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)

	// Unwrap fenced code blocks, tolerating a leading language tag.
	if strings.Contains(text, "```") {
		for _, part := range strings.Split(text, "```") {
			if !strings.Contains(part, "{") {
				continue
			}
			candidate := strings.TrimSpace(part)
			candidate = strings.TrimSpace(strings.TrimPrefix(candidate, "json"))
			text = candidate
			break
		}
	}

	start := strings.IndexByte(text, '{')
	if start == -1 {
		return text
	}

	balance := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			balance++
		case '}':
			balance--
			if balance == 0 {
				return text[start : i+1]
			}
		}
	}

	// Malformed nesting: take the widest plausible span.
	end := strings.LastIndexByte(text, '}')
	if end < start {
		return ""
	}
	return text[start : end+1]
}
