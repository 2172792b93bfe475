package jsonb

import (
	"fmt"
	"strconv"
	"strings"
)

// Path represents a JSON path (e.g., $.user.address.city)
type Path struct {
	Parts []string
}

// String returns the JSON path notation
func (p Path) String() string {
	if len(p.Parts) == 0 {
		return "$"
	}

	var b strings.Builder
	b.WriteString("$")
	for _, part := range p.Parts {
		// Check if part is numeric (array index)
		if _, err := strconv.Atoi(part); err == nil {
			b.WriteString("[" + part + "]")
		} else {
			b.WriteString("." + part)
		}
	}
	return b.String()
}

// PostgreSQLPath returns the text[] literal used by the #> and #>> operators
func (p Path) PostgreSQLPath() string {
	if len(p.Parts) == 0 {
		return "{}"
	}

	quoted := make([]string, len(p.Parts))
	for i, part := range p.Parts {
		part = strings.ReplaceAll(part, `\`, `\\`)
		part = strings.ReplaceAll(part, `"`, `\"`)
		quoted[i] = `"` + part + `"`
	}
	return "{" + strings.Join(quoted, ",") + "}"
}

// ParsePath parses "$.a.b[0]", "a.b[0]" or "a.b.0" into a Path
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimPrefix(s, ".")
	if s == "" {
		return Path{}, nil
	}

	var parts []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		switch ch := s[i]; ch {
		case '.':
			if current.Len() == 0 && (i == 0 || s[i-1] != ']') {
				return Path{}, fmt.Errorf("empty path segment at %d", i)
			}
			flush()
		case '[':
			flush()
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return Path{}, fmt.Errorf("unterminated index at %d", i)
			}
			idx := s[i+1 : i+end]
			if _, err := strconv.Atoi(idx); err != nil {
				return Path{}, fmt.Errorf("invalid array index: %s", idx)
			}
			parts = append(parts, idx)
			i += end
		default:
			current.WriteByte(ch)
		}
	}
	flush()

	return Path{Parts: parts}, nil
}
