package parse

import "sort"

// extractJSONCandidates scans content for balanced JSON objects and arrays and
// returns them ordered by their starting position, outermost first. Text
// surrounding the candidates is ignored, which lets callers recover structured
// data embedded in narrative output. Unbalanced fragments are skipped.
func extractJSONCandidates(content string) []string {
	type bracket struct {
		char  byte
		start int
	}
	type span struct {
		start int
		end   int
	}

	var stack []bracket
	var spans []span
	inString := false
	escaped := false

	for i := 0; i < len(content); i++ {
		c := content[i]

		if inString {
			if escaped {
				escaped = false
				continue
			}
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			// Only track strings inside a candidate; quotes in surrounding
			// prose would otherwise swallow the rest of the content.
			if len(stack) > 0 {
				inString = true
			}
		case '{', '[':
			stack = append(stack, bracket{char: c, start: i})
		case '}', ']':
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			if (c == '}' && top.char == '{') || (c == ']' && top.char == '[') {
				stack = stack[:len(stack)-1]
				spans = append(spans, span{start: top.start, end: i + 1})
			} else {
				// Mismatched closer invalidates everything currently open.
				stack = nil
			}
		}
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	candidates := make([]string, 0, len(spans))
	for _, s := range spans {
		candidates = append(candidates, content[s.start:s.end])
	}
	return candidates
}
