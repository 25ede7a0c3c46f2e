// Package directive splits an inbound chat message into per-agent
// directives using the `@@role content` convention.
package directive

import "strings"

// Directive addresses a chunk of content to the Commander (Target == "")
// or to a named role.
type Directive struct {
	Target  string // "" routes to the Commander
	Content string
}

func isRoleChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
}

// Parse splits input into one or more directives. It never fails: a
// degenerate input always yields at least one directive.
func Parse(input string) []Directive {
	if !strings.Contains(input, "@@") {
		return []Directive{{Content: strings.TrimSpace(input)}}
	}

	var out []Directive

	first := strings.Index(input, "@@")
	if lead := strings.TrimSpace(input[:first]); lead != "" {
		out = append(out, Directive{Content: lead})
	}

	rest := input[first:]
	for len(rest) > 0 {
		rest = rest[2:] // drop "@@"

		i := 0
		for i < len(rest) && isRoleChar(rune(rest[i])) {
			i++
		}
		role := rest[:i]
		rest = rest[i:]

		next := strings.Index(rest, "@@")
		var segment string
		if next < 0 {
			segment = rest
			rest = ""
		} else {
			segment = rest[:next]
			rest = rest[next:]
		}

		if role == "" {
			// Empty role name: treat the "@@" + segment as Commander content.
			content := strings.TrimSpace("@@" + segment)
			if content != "" {
				out = append(out, Directive{Content: content})
			}
			continue
		}

		out = append(out, Directive{Target: role, Content: strings.TrimSpace(segment)})
	}

	if len(out) == 0 {
		return []Directive{{Content: ""}}
	}
	return out
}

// Format is the inverse of Parse: Commander directives emit their content
// unchanged; role directives emit "@@role" or "@@role content". Segments
// are joined by single spaces. parse(format(parse(x))) == parse(x) for
// every input x.
func Format(directives []Directive) string {
	parts := make([]string, 0, len(directives))
	for _, d := range directives {
		if d.Target == "" {
			parts = append(parts, d.Content)
			continue
		}
		if d.Content == "" {
			parts = append(parts, "@@"+d.Target)
		} else {
			parts = append(parts, "@@"+d.Target+" "+strings.TrimSpace(d.Content))
		}
	}
	return strings.Join(parts, " ")
}
