package relay

import "regexp"

var (
	urlPattern   = regexp.MustCompile(`https?://\S+`)
	emojiPattern = regexp.MustCompile(`<a?:.*?:\d+>`)
)

// Transform prepares a message for synthesis: URLs and custom emoji codes
// are removed, then the result is truncated to maxRunes runes. Whitespace is
// deliberately left alone; the synthesizer handles it fine. The result may
// be empty, which callers treat as nothing to speak.
func Transform(content string, maxRunes int) string {
	s := urlPattern.ReplaceAllString(content, "")
	s = emojiPattern.ReplaceAllString(s, "")
	if runes := []rune(s); len(runes) > maxRunes {
		s = string(runes[:maxRunes])
	}
	return s
}
