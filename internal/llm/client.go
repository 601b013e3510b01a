package llm

import (
	"context"
	"strings"
)

// LLMClient is the generation-service boundary. Both providers stream or
// buffer internally; callers only see the final text.
type LLMClient interface {
	Chat(ctx context.Context, prompt string) (string, error)
	Ping(ctx context.Context) error
}

// SanitizeOutput strips markdown fences and curly quotes and reduces the
// reply to its first balanced JSON object. Models wrap JSON in prose often
// enough that every JSON consumer in this repo goes through here.
func SanitizeOutput(s string) string {
	s = strings.TrimSpace(s)

	// remover cualquier bloque ```xxx ... ```
	if strings.HasPrefix(s, "```") {
		lines := strings.Split(s, "\n")
		if len(lines) > 1 {
			s = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}

	// comillas curvas → comillas normales
	s = strings.ReplaceAll(s, "“", "\"")
	s = strings.ReplaceAll(s, "”", "\"")
	s = strings.ReplaceAll(s, "‘", "'")
	s = strings.ReplaceAll(s, "’", "'")

	if obj, ok := FirstJSONObject(s); ok {
		return obj
	}
	return strings.TrimSpace(s)
}

// FirstJSONObject returns the first balanced {...} substring of s. Braces
// inside JSON strings do not count toward the balance.
func FirstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
