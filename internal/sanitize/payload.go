package sanitize

import "strings"

const fence = "```"

// ExtractStructuredPayload pulls a single brace-delimited object out of model output that may be
// wrapped in a markdown fence or surrounded by prose. It never fails: when no object is found the
// trimmed input is returned and the caller's parse step reports the problem.
func ExtractStructuredPayload(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return text
	}

	if strings.HasPrefix(text, fence) {
		parts := strings.SplitN(text, fence, 3)
		if len(parts) >= 2 {
			text = stripLanguageTag(parts[1])
		}
	}
	text = strings.TrimSpace(strings.TrimSuffix(text, fence))

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end != -1 && end > start {
		return text[start : end+1]
	}

	return text
}

// stripLanguageTag drops an info string such as "json" that directly follows an opening fence.
func stripLanguageTag(block string) string {
	block = strings.TrimLeft(block, " \t")
	if nl := strings.IndexByte(block, '\n'); nl != -1 {
		tag := strings.TrimSpace(block[:nl])
		if tag != "" && !strings.ContainsAny(tag, "{}[]\"") {
			block = block[nl+1:]
		}
	}
	return strings.TrimSpace(block)
}
